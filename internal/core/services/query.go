package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lectern-labs/lectern/internal/core/domain"
	"github.com/lectern-labs/lectern/internal/core/ports/driven"
	"github.com/lectern-labs/lectern/internal/core/ports/driving"
)

// Ensure QueryService implements the interface.
var _ driving.RealmReader = (*QueryService)(nil)

// QueryService is the read side: realm traversal with resolved block
// references and ACL-filtered search. Tombstoned references are reported
// as explicit deleted markers, never as errors.
type QueryService struct {
	realms driven.RealmStore
	mirror driven.MirrorStore
	index  driven.SearchIndex
	access domain.Access
}

// NewQueryService creates a query service. The index is optional; without
// one, Search is unavailable.
func NewQueryService(
	realms driven.RealmStore,
	mirror driven.MirrorStore,
	index driven.SearchIndex,
	access domain.Access,
) *QueryService {
	return &QueryService{realms: realms, mirror: mirror, index: index, access: access}
}

// RealmByID loads a realm with children and resolved blocks.
func (s *QueryService) RealmByID(ctx context.Context, user *domain.User, id int64) (*driving.RealmView, error) {
	realm, err := s.realms.GetRealm(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, user, realm)
}

// RealmByPath loads a realm by materialized path. Both "" and "/" address
// the root; a trailing slash is ignored.
func (s *QueryService) RealmByPath(ctx context.Context, user *domain.User, path string) (*driving.RealmView, error) {
	path = strings.TrimSuffix(path, "/")
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	realm, err := s.realms.GetRealmByPath(ctx, path)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, user, realm)
}

// Search queries the full-text index and drops documents the user may
// not read.
func (s *QueryService) Search(
	ctx context.Context,
	user *domain.User,
	query string,
	limit int,
) ([]domain.SearchDocument, error) {
	if s.index == nil {
		return nil, fmt.Errorf("search: %w", domain.ErrNotImplemented)
	}
	if user == nil {
		user = &domain.Anonymous
	}
	if limit <= 0 {
		limit = 20
	}

	// Over-fetch to compensate for results removed by the ACL filter.
	hits, err := s.index.Search(ctx, query, limit*2)
	if err != nil {
		return nil, err
	}

	results := make([]domain.SearchDocument, 0, limit)
	for i := range hits {
		if !s.access.CanReadDocument(user, &hits[i]) {
			continue
		}
		results = append(results, hits[i])
		if len(results) == limit {
			break
		}
	}
	return results, nil
}

func (s *QueryService) view(ctx context.Context, user *domain.User, realm *domain.Realm) (*driving.RealmView, error) {
	if user == nil {
		user = &domain.Anonymous
	}

	children, err := s.realms.Children(ctx, realm.ID)
	if err != nil {
		return nil, err
	}
	domain.SortChildren(children, realm.ChildOrder)

	blocks, err := s.realms.Blocks(ctx, realm.ID)
	if err != nil {
		return nil, err
	}

	resolved := make([]domain.ResolvedBlock, 0, len(blocks))
	for _, block := range blocks {
		rb, err := s.resolve(ctx, user, block)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, rb)
	}

	return &driving.RealmView{Realm: *realm, Children: children, Blocks: resolved}, nil
}

// resolve attaches the referenced mirror entity to a block. A tombstoned
// or vanished reference yields a deleted marker; an unreadable event is
// simply left unresolved.
func (s *QueryService) resolve(ctx context.Context, user *domain.User, block domain.Block) (domain.ResolvedBlock, error) {
	rb := domain.ResolvedBlock{Block: block}

	switch block.Type {
	case domain.BlockSeries:
		if block.SeriesID == nil {
			rb.Deleted = true
			return rb, nil
		}
		series, err := s.mirror.GetSeries(ctx, *block.SeriesID)
		if errors.Is(err, domain.ErrNotFound) {
			rb.Deleted = true
			return rb, nil
		}
		if err != nil {
			return rb, err
		}
		if series.Deleted {
			rb.Deleted = true
			return rb, nil
		}
		rb.Series = series

	case domain.BlockVideo:
		if block.EventID == nil {
			rb.Deleted = true
			return rb, nil
		}
		event, err := s.mirror.GetEvent(ctx, *block.EventID)
		if errors.Is(err, domain.ErrNotFound) {
			rb.Deleted = true
			return rb, nil
		}
		if err != nil {
			return rb, err
		}
		if event.Deleted {
			rb.Deleted = true
			return rb, nil
		}
		if !s.access.CanReadEvent(user, event) {
			return rb, nil
		}
		rb.Event = event

	case domain.BlockTitle, domain.BlockText:
		// Nothing to resolve.
	}
	return rb, nil
}
