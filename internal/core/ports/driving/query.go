package driving

import (
	"context"

	"github.com/lectern-labs/lectern/internal/core/domain"
)

// RealmReader is the read-only traversal of the realm tree. Referenced
// entities behind a tombstone are returned as explicit deleted markers
// rather than omitted, so callers can render placeholders. The query
// surface never errors on a missing reference.
type RealmReader interface {
	// RealmByID loads a realm with its sorted children and resolved
	// blocks.
	RealmByID(ctx context.Context, user *domain.User, id int64) (*RealmView, error)

	// RealmByPath loads a realm by full materialized path ("" or "/"
	// for the root).
	RealmByPath(ctx context.Context, user *domain.User, path string) (*RealmView, error)

	// Search queries the full-text index, filtering results the user
	// may not read.
	Search(ctx context.Context, user *domain.User, query string, limit int) ([]domain.SearchDocument, error)
}

// RealmView is a realm with its children (sorted per the realm's order
// mode) and its blocks with resolved references.
type RealmView struct {
	Realm    domain.Realm
	Children []domain.Realm
	Blocks   []domain.ResolvedBlock
}
