package services

import (
	"context"
	"fmt"

	"github.com/lectern-labs/lectern/internal/core/domain"
	"github.com/lectern-labs/lectern/internal/core/ports/driven"
	"github.com/lectern-labs/lectern/internal/core/ports/driving"
	"github.com/lectern-labs/lectern/internal/logger"
)

// Ensure RealmService implements the interface.
var _ driving.RealmEditor = (*RealmService)(nil)

// RealmService is the write side of the realm tree. It validates input,
// enforces access control, and delegates structural consistency (sibling
// uniqueness, cascades, serialization of conflicting writes) to the store.
type RealmService struct {
	realms driven.RealmStore
	access domain.Access
}

// NewRealmService creates a realm editor.
func NewRealmService(realms driven.RealmStore, access domain.Access) *RealmService {
	return &RealmService{realms: realms, access: access}
}

// AddChild creates a realm under parent.
func (s *RealmService) AddChild(
	ctx context.Context,
	user *domain.User,
	parentID int64,
	name, segment string,
) (*domain.Realm, error) {
	if err := s.requireEditor(user); err != nil {
		return nil, err
	}
	if err := domain.ValidateRealmName(name); err != nil {
		return nil, err
	}
	if err := domain.ValidateSegment(segment); err != nil {
		return nil, err
	}

	realm, err := s.realms.CreateRealm(ctx, parentID, name, segment)
	if err != nil {
		return nil, err
	}
	logger.Debug("Created realm %d at %s", realm.ID, realm.Path)
	return realm, nil
}

// Rename sets the display name of a non-root realm.
func (s *RealmService) Rename(
	ctx context.Context,
	user *domain.User,
	id int64,
	name string,
) (*domain.Realm, error) {
	if err := s.requireEditor(user); err != nil {
		return nil, err
	}
	if id == domain.RootRealmID {
		return nil, fmt.Errorf("%w: the root realm cannot be renamed", domain.ErrValidation)
	}
	if err := domain.ValidateRealmName(name); err != nil {
		return nil, err
	}

	if err := s.realms.RenameRealm(ctx, id, name); err != nil {
		return nil, err
	}
	return s.realms.GetRealm(ctx, id)
}

// ChangePathSegment updates a realm's segment, recomputing the
// materialized paths of the whole subtree atomically.
func (s *RealmService) ChangePathSegment(
	ctx context.Context,
	user *domain.User,
	id int64,
	segment string,
) (*domain.Realm, error) {
	if err := s.requireEditor(user); err != nil {
		return nil, err
	}
	if id == domain.RootRealmID {
		return nil, fmt.Errorf("%w: the root realm has no path segment", domain.ErrValidation)
	}
	if err := domain.ValidateSegment(segment); err != nil {
		return nil, err
	}

	realm, err := s.realms.UpdatePathSegment(ctx, id, segment)
	if err != nil {
		return nil, err
	}
	logger.Debug("Moved realm %d to %s", realm.ID, realm.Path)
	return realm, nil
}

// Delete removes a realm and its entire subtree.
func (s *RealmService) Delete(ctx context.Context, user *domain.User, id int64) error {
	if err := s.requireEditor(user); err != nil {
		return err
	}
	if id == domain.RootRealmID {
		return fmt.Errorf("%w: the root realm cannot be deleted", domain.ErrValidation)
	}

	removed, err := s.realms.DeleteRealm(ctx, id)
	if err != nil {
		return err
	}
	logger.Debug("Deleted realm %d and %d descendants", id, removed-1)
	return nil
}

// SetChildOrder switches a realm's child ordering mode and, in manual
// mode, optionally stores an explicit child sequence.
func (s *RealmService) SetChildOrder(
	ctx context.Context,
	user *domain.User,
	id int64,
	mode domain.OrderMode,
	childIDs []int64,
) (*domain.Realm, error) {
	if err := s.requireEditor(user); err != nil {
		return nil, err
	}
	if !domain.ValidOrderMode(mode) {
		return nil, fmt.Errorf("%w: unknown order mode %q", domain.ErrValidation, mode)
	}
	if childIDs != nil && mode != domain.OrderManual {
		return nil, fmt.Errorf("%w: an explicit child sequence requires manual ordering", domain.ErrValidation)
	}

	if err := s.realms.SetChildOrder(ctx, id, mode); err != nil {
		return nil, err
	}
	if childIDs != nil {
		if err := s.realms.SetManualOrder(ctx, id, childIDs); err != nil {
			return nil, err
		}
	}
	return s.realms.GetRealm(ctx, id)
}

// InsertBlock places a block at block.Position, shifting later blocks.
func (s *RealmService) InsertBlock(
	ctx context.Context,
	user *domain.User,
	block domain.Block,
) (*domain.Block, error) {
	if err := s.requireEditor(user); err != nil {
		return nil, err
	}
	if err := block.Validate(); err != nil {
		return nil, err
	}
	return s.realms.InsertBlock(ctx, block)
}

// UpdateBlock replaces content and flags of an existing block. The block
// type is fixed at insertion.
func (s *RealmService) UpdateBlock(
	ctx context.Context,
	user *domain.User,
	block domain.Block,
) (*domain.Block, error) {
	if err := s.requireEditor(user); err != nil {
		return nil, err
	}

	existing, err := s.realms.GetBlock(ctx, block.ID)
	if err != nil {
		return nil, err
	}
	if block.Type != "" && block.Type != existing.Type {
		return nil, fmt.Errorf("%w: block type cannot change from %s to %s",
			domain.ErrValidation, existing.Type, block.Type)
	}

	updated := *existing
	updated.Content = block.Content
	updated.SeriesID = block.SeriesID
	updated.EventID = block.EventID
	updated.ShowTitle = block.ShowTitle
	updated.ShowMetadata = block.ShowMetadata
	if err := updated.Validate(); err != nil {
		return nil, err
	}

	if err := s.realms.UpdateBlock(ctx, updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// MoveBlock swaps the block at position with its neighbour.
func (s *RealmService) MoveBlock(
	ctx context.Context,
	user *domain.User,
	realmID int64,
	position int,
	up bool,
) error {
	if err := s.requireEditor(user); err != nil {
		return err
	}

	neighbour := position + 1
	if up {
		neighbour = position - 1
	}
	if position < 0 || neighbour < 0 {
		return fmt.Errorf("%w: block is already at the top", domain.ErrValidation)
	}
	return s.realms.SwapBlocks(ctx, realmID, position, neighbour)
}

// RemoveBlock deletes the block at position, closing the gap.
func (s *RealmService) RemoveBlock(
	ctx context.Context,
	user *domain.User,
	realmID int64,
	position int,
) error {
	if err := s.requireEditor(user); err != nil {
		return err
	}
	return s.realms.RemoveBlock(ctx, realmID, position)
}

func (s *RealmService) requireEditor(user *domain.User) error {
	if user == nil {
		user = &domain.Anonymous
	}
	if !s.access.CanEditRealms(user) {
		return fmt.Errorf("%w: editing the page tree requires the %s role",
			domain.ErrForbidden, s.access.ModeratorRole)
	}
	return nil
}
