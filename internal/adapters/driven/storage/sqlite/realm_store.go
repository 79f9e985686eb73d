package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lectern-labs/lectern/internal/core/domain"
	"github.com/lectern-labs/lectern/internal/core/ports/driven"
)

// realmStore implements driven.RealmStore. Structural mutations run in
// immediate transactions, so conflicting writers serialize on the
// database lock instead of interleaving.
type realmStore struct {
	store *Store
}

var _ driven.RealmStore = (*realmStore)(nil)

const realmColumns = "id, parent_id, name, path_segment, path, child_order, position"

// GetRealm resolves a realm by key.
func (s *realmStore) GetRealm(ctx context.Context, id int64) (*domain.Realm, error) {
	row := s.store.db.QueryRowContext(ctx,
		"SELECT "+realmColumns+" FROM realms WHERE id = ?", id)
	realm, err := scanRealm(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: realm %d", domain.ErrNotFound, id)
	}
	return realm, err
}

// GetRealmByPath resolves a realm by its materialized path.
func (s *realmStore) GetRealmByPath(ctx context.Context, path string) (*domain.Realm, error) {
	row := s.store.db.QueryRowContext(ctx,
		"SELECT "+realmColumns+" FROM realms WHERE path = ?", path)
	realm, err := scanRealm(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: realm at %q", domain.ErrNotFound, path)
	}
	return realm, err
}

// Children lists direct children, unsorted.
func (s *realmStore) Children(ctx context.Context, parentID int64) ([]domain.Realm, error) {
	rows, err := s.store.db.QueryContext(ctx,
		"SELECT "+realmColumns+" FROM realms WHERE parent_id = ?", parentID)
	if err != nil {
		return nil, fmt.Errorf("listing children: %w", err)
	}
	defer rows.Close()

	var children []domain.Realm
	for rows.Next() {
		realm, err := scanRealm(rows)
		if err != nil {
			return nil, err
		}
		children = append(children, *realm)
	}
	return children, rows.Err()
}

// CreateRealm adds a child realm under parent, appended to manual order.
func (s *realmStore) CreateRealm(ctx context.Context, parentID int64, name, segment string) (*domain.Realm, error) {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, wrapWriteErr(err, "begin create realm")
	}
	defer tx.Rollback() //nolint:errcheck // No-op after commit.

	var parentPath string
	err = tx.QueryRowContext(ctx, "SELECT path FROM realms WHERE id = ?", parentID).Scan(&parentPath)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: parent realm %d", domain.ErrNotFound, parentID)
	}
	if err != nil {
		return nil, fmt.Errorf("loading parent realm: %w", err)
	}

	// Deletions leave position gaps, so append after the highest
	// surviving position rather than at the sibling count.
	var position int
	err = tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(position) + 1, 0) FROM realms WHERE parent_id = ?", parentID).Scan(&position)
	if err != nil {
		return nil, fmt.Errorf("counting siblings: %w", err)
	}

	path := domain.JoinPath(parentPath, segment)
	res, err := tx.ExecContext(ctx, `
		INSERT INTO realms (parent_id, name, path_segment, path, position)
		VALUES (?, ?, ?, ?, ?)
	`, parentID, name, segment, path, position)
	if err != nil {
		return nil, wrapWriteErr(err, fmt.Sprintf("creating realm %q", segment))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("creating realm: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, wrapWriteErr(err, "commit create realm")
	}

	return &domain.Realm{
		ID:          id,
		ParentID:    &parentID,
		Name:        name,
		PathSegment: segment,
		Path:        path,
		ChildOrder:  domain.OrderAlphabeticAsc,
		Index:       position,
	}, nil
}

// RenameRealm sets the display name.
func (s *realmStore) RenameRealm(ctx context.Context, id int64, name string) error {
	res, err := s.store.db.ExecContext(ctx,
		"UPDATE realms SET name = ? WHERE id = ?", name, id)
	if err != nil {
		return wrapWriteErr(err, "renaming realm")
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("renaming realm: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: realm %d", domain.ErrNotFound, id)
	}
	return nil
}

// UpdatePathSegment changes the segment and recomputes the materialized
// paths of the whole subtree in one transaction.
func (s *realmStore) UpdatePathSegment(ctx context.Context, id int64, segment string) (*domain.Realm, error) {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, wrapWriteErr(err, "begin path change")
	}
	defer tx.Rollback() //nolint:errcheck // No-op after commit.

	row := tx.QueryRowContext(ctx, "SELECT "+realmColumns+" FROM realms WHERE id = ?", id)
	realm, err := scanRealm(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: realm %d", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	if realm.IsRoot() {
		return nil, fmt.Errorf("%w: the root realm has no path segment", domain.ErrValidation)
	}

	var parentPath string
	err = tx.QueryRowContext(ctx, "SELECT path FROM realms WHERE id = ?", *realm.ParentID).Scan(&parentPath)
	if err != nil {
		return nil, fmt.Errorf("loading parent realm: %w", err)
	}

	oldPath := realm.Path
	newPath := domain.JoinPath(parentPath, segment)

	// Descendants first; the realm's own row would otherwise collide
	// with the prefix rewrite on the unique path index. The prefix is
	// matched with substr, not LIKE, since '_' is a legal segment
	// character, and the offset is computed in SQL so both sides count
	// characters rather than bytes.
	_, err = tx.ExecContext(ctx, `
		UPDATE realms SET path = ? || substr(path, length(?) + 1)
		WHERE substr(path, 1, length(? || '/')) = ? || '/'
	`, newPath, oldPath, oldPath, oldPath)
	if err != nil {
		return nil, wrapWriteErr(err, "recomputing subtree paths")
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE realms SET path_segment = ?, path = ? WHERE id = ?", segment, newPath, id)
	if err != nil {
		return nil, wrapWriteErr(err, fmt.Sprintf("moving realm to %q", segment))
	}

	if err := tx.Commit(); err != nil {
		return nil, wrapWriteErr(err, "commit path change")
	}

	realm.PathSegment = segment
	realm.Path = newPath
	return realm, nil
}

// DeleteRealm removes the realm and its whole subtree, blocks included.
func (s *realmStore) DeleteRealm(ctx context.Context, id int64) (int, error) {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, wrapWriteErr(err, "begin delete realm")
	}
	defer tx.Rollback() //nolint:errcheck // No-op after commit.

	var path string
	var parentID sql.NullInt64
	err = tx.QueryRowContext(ctx,
		"SELECT path, parent_id FROM realms WHERE id = ?", id).Scan(&path, &parentID)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("%w: realm %d", domain.ErrNotFound, id)
	}
	if err != nil {
		return 0, fmt.Errorf("loading realm: %w", err)
	}
	if !parentID.Valid {
		return 0, fmt.Errorf("%w: the root realm cannot be deleted", domain.ErrValidation)
	}

	// substr instead of LIKE: '_' is a legal segment character and must
	// not act as a wildcard.
	_, err = tx.ExecContext(ctx, `
		DELETE FROM blocks WHERE realm_id IN (
			SELECT id FROM realms WHERE path = ? OR substr(path, 1, length(? || '/')) = ? || '/'
		)
	`, path, path, path)
	if err != nil {
		return 0, wrapWriteErr(err, "deleting subtree blocks")
	}

	res, err := tx.ExecContext(ctx,
		"DELETE FROM realms WHERE path = ? OR substr(path, 1, length(? || '/')) = ? || '/'",
		path, path, path)
	if err != nil {
		return 0, wrapWriteErr(err, "deleting subtree")
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("deleting subtree: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, wrapWriteErr(err, "commit delete realm")
	}
	return int(removed), nil
}

// SetChildOrder switches the child ordering mode.
func (s *realmStore) SetChildOrder(ctx context.Context, id int64, mode domain.OrderMode) error {
	res, err := s.store.db.ExecContext(ctx,
		"UPDATE realms SET child_order = ? WHERE id = ?", mode, id)
	if err != nil {
		return wrapWriteErr(err, "setting child order")
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("setting child order: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: realm %d", domain.ErrNotFound, id)
	}
	return nil
}

// SetManualOrder stores an explicit child sequence. childIDs must be a
// permutation of the current children.
func (s *realmStore) SetManualOrder(ctx context.Context, parentID int64, childIDs []int64) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapWriteErr(err, "begin set manual order")
	}
	defer tx.Rollback() //nolint:errcheck // No-op after commit.

	rows, err := tx.QueryContext(ctx, "SELECT id FROM realms WHERE parent_id = ?", parentID)
	if err != nil {
		return fmt.Errorf("listing children: %w", err)
	}
	current := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("scanning child: %w", err)
		}
		current[id] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	if len(childIDs) != len(current) {
		return fmt.Errorf("%w: expected %d child IDs, got %d",
			domain.ErrValidation, len(current), len(childIDs))
	}
	for _, id := range childIDs {
		if !current[id] {
			return fmt.Errorf("%w: realm %d is not a child of %d",
				domain.ErrValidation, id, parentID)
		}
		delete(current, id)
	}

	for position, id := range childIDs {
		if _, err := tx.ExecContext(ctx,
			"UPDATE realms SET position = ? WHERE id = ?", position, id); err != nil {
			return wrapWriteErr(err, "setting manual order")
		}
	}

	if err := tx.Commit(); err != nil {
		return wrapWriteErr(err, "commit set manual order")
	}
	return nil
}

const blockColumns = "id, realm_id, position, type, content, series_id, event_id, show_title, show_metadata"

// Blocks lists a realm's blocks ordered by position.
func (s *realmStore) Blocks(ctx context.Context, realmID int64) ([]domain.Block, error) {
	rows, err := s.store.db.QueryContext(ctx,
		"SELECT "+blockColumns+" FROM blocks WHERE realm_id = ? ORDER BY position", realmID)
	if err != nil {
		return nil, fmt.Errorf("listing blocks: %w", err)
	}
	defer rows.Close()

	var blocks []domain.Block
	for rows.Next() {
		block, err := scanBlock(rows)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, *block)
	}
	return blocks, rows.Err()
}

// GetBlock resolves a block by key.
func (s *realmStore) GetBlock(ctx context.Context, id int64) (*domain.Block, error) {
	row := s.store.db.QueryRowContext(ctx,
		"SELECT "+blockColumns+" FROM blocks WHERE id = ?", id)
	block, err := scanBlock(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: block %d", domain.ErrNotFound, id)
	}
	return block, err
}

// InsertBlock inserts at block.Position, shifting subsequent positions.
func (s *realmStore) InsertBlock(ctx context.Context, block domain.Block) (*domain.Block, error) {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, wrapWriteErr(err, "begin insert block")
	}
	defer tx.Rollback() //nolint:errcheck // No-op after commit.

	var exists int
	err = tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM realms WHERE id = ?", block.RealmID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("loading realm: %w", err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("%w: realm %d", domain.ErrNotFound, block.RealmID)
	}

	var count int
	err = tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM blocks WHERE realm_id = ?", block.RealmID).Scan(&count)
	if err != nil {
		return nil, fmt.Errorf("counting blocks: %w", err)
	}
	if block.Position < 0 || block.Position > count {
		return nil, fmt.Errorf("%w: position %d out of range 0..%d",
			domain.ErrValidation, block.Position, count)
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE blocks SET position = position + 1 WHERE realm_id = ? AND position >= ?",
		block.RealmID, block.Position)
	if err != nil {
		return nil, wrapWriteErr(err, "shifting blocks")
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO blocks (realm_id, position, type, content, series_id, event_id, show_title, show_metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, block.RealmID, block.Position, block.Type, block.Content,
		block.SeriesID, block.EventID, block.ShowTitle, block.ShowMetadata)
	if err != nil {
		return nil, wrapWriteErr(err, "inserting block")
	}
	block.ID, err = res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("inserting block: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, wrapWriteErr(err, "commit insert block")
	}
	return &block, nil
}

// UpdateBlock replaces content and flags of the stored block.
func (s *realmStore) UpdateBlock(ctx context.Context, block domain.Block) error {
	res, err := s.store.db.ExecContext(ctx, `
		UPDATE blocks SET content = ?, series_id = ?, event_id = ?, show_title = ?, show_metadata = ?
		WHERE id = ?
	`, block.Content, block.SeriesID, block.EventID, block.ShowTitle, block.ShowMetadata, block.ID)
	if err != nil {
		return wrapWriteErr(err, "updating block")
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating block: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: block %d", domain.ErrNotFound, block.ID)
	}
	return nil
}

// SwapBlocks exchanges the blocks at the two positions.
func (s *realmStore) SwapBlocks(ctx context.Context, realmID int64, posA, posB int) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapWriteErr(err, "begin swap blocks")
	}
	defer tx.Rollback() //nolint:errcheck // No-op after commit.

	idA, err := blockIDAt(ctx, tx, realmID, posA)
	if err != nil {
		return err
	}
	idB, err := blockIDAt(ctx, tx, realmID, posB)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE blocks SET position = ? WHERE id = ?", posB, idA); err != nil {
		return wrapWriteErr(err, "swapping blocks")
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE blocks SET position = ? WHERE id = ?", posA, idB); err != nil {
		return wrapWriteErr(err, "swapping blocks")
	}

	if err := tx.Commit(); err != nil {
		return wrapWriteErr(err, "commit swap blocks")
	}
	return nil
}

// RemoveBlock deletes the block at position and closes the gap.
func (s *realmStore) RemoveBlock(ctx context.Context, realmID int64, position int) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapWriteErr(err, "begin remove block")
	}
	defer tx.Rollback() //nolint:errcheck // No-op after commit.

	id, err := blockIDAt(ctx, tx, realmID, position)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM blocks WHERE id = ?", id); err != nil {
		return wrapWriteErr(err, "removing block")
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE blocks SET position = position - 1 WHERE realm_id = ? AND position > ?",
		realmID, position); err != nil {
		return wrapWriteErr(err, "renumbering blocks")
	}

	if err := tx.Commit(); err != nil {
		return wrapWriteErr(err, "commit remove block")
	}
	return nil
}

func blockIDAt(ctx context.Context, tx *sql.Tx, realmID int64, position int) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx,
		"SELECT id FROM blocks WHERE realm_id = ? AND position = ?", realmID, position).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("%w: no block at position %d in realm %d",
			domain.ErrNotFound, position, realmID)
	}
	if err != nil {
		return 0, fmt.Errorf("loading block at position %d: %w", position, err)
	}
	return id, nil
}

func scanRealm(row scanner) (*domain.Realm, error) {
	var realm domain.Realm
	var parentID sql.NullInt64
	err := row.Scan(&realm.ID, &parentID, &realm.Name, &realm.PathSegment,
		&realm.Path, &realm.ChildOrder, &realm.Index)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning realm: %w", err)
	}
	if parentID.Valid {
		realm.ParentID = &parentID.Int64
	}
	return &realm, nil
}

func scanBlock(row scanner) (*domain.Block, error) {
	var block domain.Block
	err := row.Scan(&block.ID, &block.RealmID, &block.Position, &block.Type,
		&block.Content, &block.SeriesID, &block.EventID, &block.ShowTitle, &block.ShowMetadata)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning block: %w", err)
	}
	return &block, nil
}
