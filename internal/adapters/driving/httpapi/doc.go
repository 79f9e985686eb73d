// Package httpapi exposes the realm tree, search, and sync status over
// HTTP. Authentication is delegated to a trusted reverse proxy that
// asserts the user via base64-encoded headers; the API itself only
// resolves roles into permissions.
package httpapi
