package driving

import (
	"context"

	"github.com/lectern-labs/lectern/internal/core/domain"
)

// RealmEditor is the write-side contract for the realm tree. Every
// operation checks access first: structural edits require the moderator
// role or admin. Errors are one of domain.ErrValidation,
// domain.ErrNotFound, domain.ErrConflict or domain.ErrForbidden, each
// wrapped with a human-readable detail.
type RealmEditor interface {
	// AddChild creates a realm under parent with the given name and
	// path segment.
	AddChild(ctx context.Context, user *domain.User, parentID int64, name, segment string) (*domain.Realm, error)

	// Rename sets the display name. The root's name is controlled
	// externally and cannot be renamed here.
	Rename(ctx context.Context, user *domain.User, id int64, name string) (*domain.Realm, error)

	// ChangePathSegment updates the segment, atomically recomputing the
	// materialized paths of the whole subtree. Fails for the root.
	ChangePathSegment(ctx context.Context, user *domain.User, id int64, segment string) (*domain.Realm, error)

	// Delete removes the realm and its entire subtree atomically. Fails
	// for the root.
	Delete(ctx context.Context, user *domain.User, id int64) error

	// SetChildOrder switches the child ordering mode. In manual mode a
	// non-nil childIDs fixes the explicit sequence; it must be a
	// permutation of the realm's current children.
	SetChildOrder(ctx context.Context, user *domain.User, id int64, mode domain.OrderMode, childIDs []int64) (*domain.Realm, error)

	// InsertBlock places a block at block.Position, shifting subsequent
	// blocks down.
	InsertBlock(ctx context.Context, user *domain.User, block domain.Block) (*domain.Block, error)

	// UpdateBlock replaces content and flags of an existing block.
	UpdateBlock(ctx context.Context, user *domain.User, block domain.Block) (*domain.Block, error)

	// MoveBlock swaps the block at position with its neighbour above
	// (up) or below (!up), matching the exposed move-up/move-down
	// affordance.
	MoveBlock(ctx context.Context, user *domain.User, realmID int64, position int, up bool) error

	// RemoveBlock deletes the block at position, closing the gap.
	RemoveBlock(ctx context.Context, user *domain.User, realmID int64, position int) error
}
