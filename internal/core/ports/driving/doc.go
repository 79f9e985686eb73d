// Package driving defines the interfaces the core offers to its callers:
// the sync daemon, the search indexer, the realm mutation API, and the
// read-only query surface. The CLI and HTTP adapters consume these.
package driving
