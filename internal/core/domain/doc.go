// Package domain contains the core entities and business rules of Lectern:
// mirrored series and events harvested from the external video system, the
// realm page tree with its content blocks, access control resolution, and
// the sync daemon's state machine. It has no dependencies on adapters.
package domain
