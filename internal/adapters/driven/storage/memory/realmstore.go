package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/lectern-labs/lectern/internal/core/domain"
	"github.com/lectern-labs/lectern/internal/core/ports/driven"
)

// Ensure RealmStore implements the interface.
var _ driven.RealmStore = (*RealmStore)(nil)

// RealmStore is an in-memory implementation of driven.RealmStore. A
// single mutex serializes all structural mutations, which trivially
// satisfies the subtree serialization guarantee.
type RealmStore struct {
	mu          sync.RWMutex
	realms      map[int64]domain.Realm
	blocks      map[int64][]domain.Block // realm ID -> blocks ordered by position
	nextRealmID int64
	nextBlockID int64
}

// NewRealmStore creates an in-memory realm store holding only the root.
func NewRealmStore() *RealmStore {
	s := &RealmStore{
		realms:      make(map[int64]domain.Realm),
		blocks:      make(map[int64][]domain.Block),
		nextRealmID: 1,
		nextBlockID: 1,
	}
	s.realms[domain.RootRealmID] = domain.Realm{
		ID:         domain.RootRealmID,
		Name:       "Home",
		ChildOrder: domain.OrderAlphabeticAsc,
	}
	return s
}

// GetRealm resolves a realm by key.
func (s *RealmStore) GetRealm(_ context.Context, id int64) (*domain.Realm, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	realm, ok := s.realms[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &realm, nil
}

// GetRealmByPath resolves a realm by its full materialized path.
func (s *RealmStore) GetRealmByPath(_ context.Context, path string) (*domain.Realm, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, realm := range s.realms {
		if realm.Path == path {
			r := realm
			return &r, nil
		}
	}
	return nil, domain.ErrNotFound
}

// Children lists the direct children of a realm.
func (s *RealmStore) Children(_ context.Context, parentID int64) ([]domain.Realm, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.realms[parentID]; !ok {
		return nil, domain.ErrNotFound
	}
	return s.childrenLocked(parentID), nil
}

func (s *RealmStore) childrenLocked(parentID int64) []domain.Realm {
	var children []domain.Realm
	for _, realm := range s.realms {
		if realm.ParentID != nil && *realm.ParentID == parentID {
			children = append(children, realm)
		}
	}
	sort.Slice(children, func(i, j int) bool { return children[i].ID < children[j].ID })
	return children
}

// CreateRealm adds a child realm under parent.
func (s *RealmStore) CreateRealm(_ context.Context, parentID int64, name, segment string) (*domain.Realm, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	parent, ok := s.realms[parentID]
	if !ok {
		return nil, fmt.Errorf("%w: parent realm %d", domain.ErrNotFound, parentID)
	}

	siblings := s.childrenLocked(parentID)
	for _, sib := range siblings {
		if sib.PathSegment == segment {
			return nil, fmt.Errorf("%w: path segment %q already exists under this realm",
				domain.ErrValidation, segment)
		}
	}

	// Append after the highest surviving position; deletions leave gaps.
	position := 0
	for _, sib := range siblings {
		if sib.Index >= position {
			position = sib.Index + 1
		}
	}

	realm := domain.Realm{
		ID:          s.nextRealmID,
		ParentID:    &parentID,
		Name:        name,
		PathSegment: segment,
		Path:        domain.JoinPath(parent.Path, segment),
		ChildOrder:  domain.OrderAlphabeticAsc,
		Index:       position,
	}
	s.nextRealmID++
	s.realms[realm.ID] = realm
	return &realm, nil
}

// RenameRealm sets the display name.
func (s *RealmStore) RenameRealm(_ context.Context, id int64, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	realm, ok := s.realms[id]
	if !ok {
		return domain.ErrNotFound
	}
	realm.Name = name
	s.realms[id] = realm
	return nil
}

// UpdatePathSegment changes the segment and recomputes the subtree paths.
func (s *RealmStore) UpdatePathSegment(_ context.Context, id int64, segment string) (*domain.Realm, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	realm, ok := s.realms[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if realm.ParentID == nil {
		return nil, fmt.Errorf("%w: the root realm has no path segment", domain.ErrValidation)
	}

	for _, sib := range s.childrenLocked(*realm.ParentID) {
		if sib.ID != id && sib.PathSegment == segment {
			return nil, fmt.Errorf("%w: path segment %q already exists under this realm",
				domain.ErrValidation, segment)
		}
	}

	parent := s.realms[*realm.ParentID]
	oldPath := realm.Path
	realm.PathSegment = segment
	realm.Path = domain.JoinPath(parent.Path, segment)
	s.realms[id] = realm

	prefix := oldPath + "/"
	for rid, r := range s.realms {
		if strings.HasPrefix(r.Path, prefix) {
			r.Path = realm.Path + "/" + strings.TrimPrefix(r.Path, prefix)
			s.realms[rid] = r
		}
	}
	return &realm, nil
}

// DeleteRealm removes the realm, its subtree, and all their blocks.
func (s *RealmStore) DeleteRealm(_ context.Context, id int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	realm, ok := s.realms[id]
	if !ok {
		return 0, domain.ErrNotFound
	}
	if realm.ParentID == nil {
		return 0, fmt.Errorf("%w: the root realm cannot be deleted", domain.ErrValidation)
	}

	prefix := realm.Path + "/"
	removed := 0
	for rid, r := range s.realms {
		if rid == id || strings.HasPrefix(r.Path, prefix) {
			delete(s.realms, rid)
			delete(s.blocks, rid)
			removed++
		}
	}
	return removed, nil
}

// SetChildOrder switches the child ordering mode.
func (s *RealmStore) SetChildOrder(_ context.Context, id int64, mode domain.OrderMode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	realm, ok := s.realms[id]
	if !ok {
		return domain.ErrNotFound
	}
	realm.ChildOrder = mode
	s.realms[id] = realm
	return nil
}

// SetManualOrder stores an explicit child sequence.
func (s *RealmStore) SetManualOrder(_ context.Context, parentID int64, childIDs []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.realms[parentID]; !ok {
		return domain.ErrNotFound
	}
	children := s.childrenLocked(parentID)
	if len(childIDs) != len(children) {
		return fmt.Errorf("%w: sequence must list every child exactly once", domain.ErrValidation)
	}
	byID := make(map[int64]domain.Realm, len(children))
	for _, child := range children {
		byID[child.ID] = child
	}
	seen := make(map[int64]bool, len(childIDs))
	for i, cid := range childIDs {
		child, ok := byID[cid]
		if !ok || seen[cid] {
			return fmt.Errorf("%w: sequence must be a permutation of the current children", domain.ErrValidation)
		}
		seen[cid] = true
		child.Index = i
		s.realms[cid] = child
	}
	return nil
}

// Blocks lists a realm's blocks ordered by position.
func (s *RealmStore) Blocks(_ context.Context, realmID int64) ([]domain.Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.realms[realmID]; !ok {
		return nil, domain.ErrNotFound
	}
	blocks := make([]domain.Block, len(s.blocks[realmID]))
	copy(blocks, s.blocks[realmID])
	return blocks, nil
}

// GetBlock resolves a block by key.
func (s *RealmStore) GetBlock(_ context.Context, id int64) (*domain.Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, list := range s.blocks {
		for _, block := range list {
			if block.ID == id {
				b := block
				return &b, nil
			}
		}
	}
	return nil, domain.ErrNotFound
}

// InsertBlock inserts the block at block.Position.
func (s *RealmStore) InsertBlock(_ context.Context, block domain.Block) (*domain.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.realms[block.RealmID]; !ok {
		return nil, fmt.Errorf("%w: realm %d", domain.ErrNotFound, block.RealmID)
	}
	list := s.blocks[block.RealmID]
	if block.Position < 0 || block.Position > len(list) {
		return nil, fmt.Errorf("%w: position %d out of range 0..%d",
			domain.ErrValidation, block.Position, len(list))
	}

	block.ID = s.nextBlockID
	s.nextBlockID++

	list = append(list, domain.Block{})
	copy(list[block.Position+1:], list[block.Position:])
	list[block.Position] = block
	renumber(list)
	s.blocks[block.RealmID] = list
	return &block, nil
}

// UpdateBlock replaces the stored block with the same key.
func (s *RealmStore) UpdateBlock(_ context.Context, block domain.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.blocks[block.RealmID]
	for i := range list {
		if list[i].ID == block.ID {
			block.Position = list[i].Position
			list[i] = block
			return nil
		}
	}
	return domain.ErrNotFound
}

// SwapBlocks exchanges the blocks at the two positions of a realm.
func (s *RealmStore) SwapBlocks(_ context.Context, realmID int64, posA, posB int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, ok := s.blocks[realmID]
	if !ok {
		if _, exists := s.realms[realmID]; !exists {
			return fmt.Errorf("%w: realm %d", domain.ErrNotFound, realmID)
		}
	}
	if posA < 0 || posA >= len(list) || posB < 0 || posB >= len(list) {
		return fmt.Errorf("%w: positions %d and %d must both be within 0..%d",
			domain.ErrValidation, posA, posB, len(list)-1)
	}

	list[posA], list[posB] = list[posB], list[posA]
	renumber(list)
	return nil
}

// RemoveBlock deletes the block at the position, closing the gap.
func (s *RealmStore) RemoveBlock(_ context.Context, realmID int64, position int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.realms[realmID]; !ok {
		return fmt.Errorf("%w: realm %d", domain.ErrNotFound, realmID)
	}
	list := s.blocks[realmID]
	if position < 0 || position >= len(list) {
		return fmt.Errorf("%w: position %d out of range", domain.ErrValidation, position)
	}

	list = append(list[:position], list[position+1:]...)
	renumber(list)
	s.blocks[realmID] = list
	return nil
}

// renumber keeps block positions dense: exactly 0..n-1.
func renumber(blocks []domain.Block) {
	for i := range blocks {
		blocks[i].Position = i
	}
}
