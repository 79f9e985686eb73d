package driven

import (
	"context"

	"github.com/lectern-labs/lectern/internal/core/domain"
)

// RealmStore is the durable page tree: realms with materialized paths and
// their ordered content blocks.
//
// Structural mutations (create, delete, path change, reorder) on the same
// subtree are serialized by the store; a conflicting concurrent write
// fails with domain.ErrConflict rather than leaving a dangling parent
// pointer. Position arguments refer to the dense, zero-based block order,
// which every mutation keeps gap-free.
type RealmStore interface {
	// GetRealm resolves a realm by key.
	GetRealm(ctx context.Context, id int64) (*domain.Realm, error)

	// GetRealmByPath resolves a realm by its full materialized path.
	// The root has path "".
	GetRealmByPath(ctx context.Context, path string) (*domain.Realm, error)

	// Children lists the direct children of a realm, unsorted.
	Children(ctx context.Context, parentID int64) ([]domain.Realm, error)

	// CreateRealm adds a child realm under parent with an empty block
	// list, appended at the end of manual order. Fails with
	// domain.ErrValidation when the segment collides with a sibling and
	// domain.ErrNotFound when the parent is missing.
	CreateRealm(ctx context.Context, parentID int64, name, segment string) (*domain.Realm, error)

	// RenameRealm sets the display name.
	RenameRealm(ctx context.Context, id int64, name string) error

	// UpdatePathSegment changes the segment and atomically recomputes
	// the materialized paths of the whole subtree.
	UpdatePathSegment(ctx context.Context, id int64, segment string) (*domain.Realm, error)

	// DeleteRealm removes the realm, every descendant realm, and all
	// their blocks in one atomic step. Returns the number of realms
	// removed.
	DeleteRealm(ctx context.Context, id int64) (int, error)

	// SetChildOrder switches the realm's child ordering mode.
	SetChildOrder(ctx context.Context, id int64, mode domain.OrderMode) error

	// SetManualOrder stores an explicit child sequence. childIDs must be
	// a permutation of the realm's current children.
	SetManualOrder(ctx context.Context, parentID int64, childIDs []int64) error

	// Blocks lists a realm's blocks ordered by position.
	Blocks(ctx context.Context, realmID int64) ([]domain.Block, error)

	// GetBlock resolves a block by key.
	GetBlock(ctx context.Context, id int64) (*domain.Block, error)

	// InsertBlock inserts the block at block.Position, shifting
	// subsequent positions. A position of len(blocks) appends.
	InsertBlock(ctx context.Context, block domain.Block) (*domain.Block, error)

	// UpdateBlock replaces the stored content and flags of the block
	// with the given key. Position and owning realm are not changed by
	// this operation.
	UpdateBlock(ctx context.Context, block domain.Block) error

	// SwapBlocks exchanges the blocks at the two positions of a realm.
	SwapBlocks(ctx context.Context, realmID int64, posA, posB int) error

	// RemoveBlock deletes the block at the position, closing the gap.
	RemoveBlock(ctx context.Context, realmID int64, position int) error
}
