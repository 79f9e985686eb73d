// Package harvest implements the HTTP client for the external video
// system's change feed.
package harvest
