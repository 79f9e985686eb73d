package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lectern-labs/lectern/internal/core/domain"
	"github.com/lectern-labs/lectern/internal/core/ports/driven"
)

// mirrorStore implements driven.MirrorStore.
type mirrorStore struct {
	store *Store
}

var _ driven.MirrorStore = (*mirrorStore)(nil)

// ApplyBatch reconciles one harvest batch inside a single transaction.
// Upserts win only with a strictly newer revision; deletes tombstone.
// Each effective write also enqueues a change event for the indexer, so
// mirror state and queue commit or roll back together.
func (s *mirrorStore) ApplyBatch(ctx context.Context, records []domain.ChangeRecord) (int, error) {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin apply: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // No-op after commit.

	applied := 0
	for i := range records {
		changed, err := s.applyRecord(ctx, tx, &records[i])
		if err != nil {
			return 0, err
		}
		if changed {
			applied++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit apply: %w", err)
	}
	return applied, nil
}

func (s *mirrorStore) applyRecord(ctx context.Context, tx *sql.Tx, record *domain.ChangeRecord) (bool, error) {
	var changed bool
	var err error
	switch {
	case record.Op == domain.OpUpsert && record.Kind == domain.KindSeries:
		changed, err = s.upsertSeries(ctx, tx, record.Series)
	case record.Op == domain.OpUpsert && record.Kind == domain.KindEvent:
		changed, err = s.upsertEvent(ctx, tx, record.Event)
	case record.Op == domain.OpDelete:
		changed, err = s.tombstone(ctx, tx, record.Kind, record.ID)
	default:
		return false, fmt.Errorf("%w: unsupported change %s/%s", domain.ErrProtocol, record.Op, record.Kind)
	}
	if err != nil || !changed {
		return changed, err
	}

	deleted := 0
	if record.Op == domain.OpDelete {
		deleted = 1
	}
	_, err = tx.ExecContext(ctx,
		"INSERT INTO change_queue (kind, entity_id, deleted) VALUES (?, ?, ?)",
		record.Kind, record.ID, deleted)
	if err != nil {
		return false, fmt.Errorf("enqueue change: %w", err)
	}
	return true, nil
}

func (s *mirrorStore) upsertSeries(ctx context.Context, tx *sql.Tx, series *domain.Series) (bool, error) {
	if series == nil {
		return false, fmt.Errorf("%w: series upsert without payload", domain.ErrProtocol)
	}
	res, err := tx.ExecContext(ctx, `
		INSERT INTO series (id, title, description, updated, deleted)
		VALUES (?, ?, ?, ?, 0)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			updated = excluded.updated,
			deleted = 0
		WHERE excluded.updated > series.updated
	`, series.ID, series.Title, series.Description, series.Updated)
	if err != nil {
		return false, fmt.Errorf("upsert series %s: %w", series.ID, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("upsert series %s: %w", series.ID, err)
	}
	return rows > 0, nil
}

func (s *mirrorStore) upsertEvent(ctx context.Context, tx *sql.Tx, event *domain.Event) (bool, error) {
	if event == nil {
		return false, fmt.Errorf("%w: event upsert without payload", domain.ErrProtocol)
	}
	tracks, err := json.Marshal(event.Tracks)
	if err != nil {
		return false, fmt.Errorf("marshalling tracks: %w", err)
	}
	readRoles, err := json.Marshal(event.ReadRoles)
	if err != nil {
		return false, fmt.Errorf("marshalling read roles: %w", err)
	}
	writeRoles, err := json.Marshal(event.WriteRoles)
	if err != nil {
		return false, fmt.Errorf("marshalling write roles: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO events (
			id, series_id, title, description, creator, duration,
			thumbnail, tracks, created, updated, read_roles, write_roles, deleted
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0)
		ON CONFLICT(id) DO UPDATE SET
			series_id = excluded.series_id,
			title = excluded.title,
			description = excluded.description,
			creator = excluded.creator,
			duration = excluded.duration,
			thumbnail = excluded.thumbnail,
			tracks = excluded.tracks,
			created = excluded.created,
			updated = excluded.updated,
			read_roles = excluded.read_roles,
			write_roles = excluded.write_roles,
			deleted = 0
		WHERE excluded.updated > events.updated
	`, event.ID, event.SeriesID, event.Title, event.Description, event.Creator,
		event.Duration, event.Thumbnail, string(tracks), event.Created,
		event.Updated, string(readRoles), string(writeRoles))
	if err != nil {
		return false, fmt.Errorf("upsert event %s: %w", event.ID, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("upsert event %s: %w", event.ID, err)
	}
	return rows > 0, nil
}

// tombstone marks the entity deleted. A delete for an unknown ID still
// leaves a placeholder tombstone so later stale upserts cannot revive it
// silently; deleting an already tombstoned entity is a no-op.
func (s *mirrorStore) tombstone(ctx context.Context, tx *sql.Tx, kind domain.Kind, id string) (bool, error) {
	table, err := tableFor(kind)
	if err != nil {
		return false, err
	}

	res, err := tx.ExecContext(ctx,
		fmt.Sprintf("UPDATE %s SET deleted = 1 WHERE id = ? AND deleted = 0", table), id)
	if err != nil {
		return false, fmt.Errorf("tombstone %s %s: %w", kind, id, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("tombstone %s %s: %w", kind, id, err)
	}
	if rows > 0 {
		return true, nil
	}

	var exists int
	err = tx.QueryRowContext(ctx,
		fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE id = ?", table), id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("tombstone %s %s: %w", kind, id, err)
	}
	if exists > 0 {
		return false, nil
	}

	if kind == domain.KindSeries {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO series (id, title, updated, deleted) VALUES (?, '', 0, 1)", id)
	} else {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO events (id, title, updated, deleted) VALUES (?, '', 0, 1)", id)
	}
	if err != nil {
		return false, fmt.Errorf("tombstone %s %s: %w", kind, id, err)
	}
	return true, nil
}

func tableFor(kind domain.Kind) (string, error) {
	switch kind {
	case domain.KindSeries:
		return "series", nil
	case domain.KindEvent:
		return "events", nil
	default:
		return "", fmt.Errorf("%w: unknown entity kind %q", domain.ErrProtocol, kind)
	}
}

// GetSeries resolves a series by ID, tombstoned ones included.
func (s *mirrorStore) GetSeries(ctx context.Context, id string) (*domain.Series, error) {
	row := s.store.db.QueryRowContext(ctx,
		"SELECT id, title, description, updated, deleted FROM series WHERE id = ?", id)

	var series domain.Series
	if err := row.Scan(&series.ID, &series.Title, &series.Description,
		&series.Updated, &series.Deleted); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: series %s", domain.ErrNotFound, id)
		}
		return nil, fmt.Errorf("scanning series: %w", err)
	}
	return &series, nil
}

// GetEvent resolves an event by ID, tombstoned ones included.
func (s *mirrorStore) GetEvent(ctx context.Context, id string) (*domain.Event, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, series_id, title, description, creator, duration,
		       thumbnail, tracks, created, updated, read_roles, write_roles, deleted
		FROM events WHERE id = ?
	`, id)

	event, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: event %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return event, nil
}

// EventsForSeries lists live events of a series ordered by creation.
func (s *mirrorStore) EventsForSeries(ctx context.Context, seriesID string) ([]domain.Event, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, series_id, title, description, creator, duration,
		       thumbnail, tracks, created, updated, read_roles, write_roles, deleted
		FROM events WHERE series_id = ? AND deleted = 0
		ORDER BY created, id
	`, seriesID)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *event)
	}
	return events, rows.Err()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(row scanner) (*domain.Event, error) {
	var event domain.Event
	var tracks, readRoles, writeRoles string
	var created sql.NullTime
	err := row.Scan(&event.ID, &event.SeriesID, &event.Title, &event.Description,
		&event.Creator, &event.Duration, &event.Thumbnail, &tracks, &created,
		&event.Updated, &readRoles, &writeRoles, &event.Deleted)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning event: %w", err)
	}

	if err := json.Unmarshal([]byte(tracks), &event.Tracks); err != nil {
		return nil, fmt.Errorf("unmarshalling tracks: %w", err)
	}
	if err := json.Unmarshal([]byte(readRoles), &event.ReadRoles); err != nil {
		return nil, fmt.Errorf("unmarshalling read roles: %w", err)
	}
	if err := json.Unmarshal([]byte(writeRoles), &event.WriteRoles); err != nil {
		return nil, fmt.Errorf("unmarshalling write roles: %w", err)
	}
	if created.Valid {
		event.Created = created.Time
	}
	return &event, nil
}

// PendingChanges returns unindexed change events in queue order.
func (s *mirrorStore) PendingChanges(ctx context.Context, limit int) ([]domain.ChangeEvent, error) {
	query := "SELECT seq, kind, entity_id, deleted FROM change_queue ORDER BY seq"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing pending changes: %w", err)
	}
	defer rows.Close()

	var events []domain.ChangeEvent
	for rows.Next() {
		var ev domain.ChangeEvent
		if err := rows.Scan(&ev.Seq, &ev.Kind, &ev.ID, &ev.Deleted); err != nil {
			return nil, fmt.Errorf("scanning change event: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// MarkIndexed drops confirmed change events from the queue.
func (s *mirrorStore) MarkIndexed(ctx context.Context, seq int64) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM change_queue WHERE seq <= ?", seq)
	if err != nil {
		return fmt.Errorf("confirming changes: %w", err)
	}
	return nil
}

// Document builds the denormalized search document for a live entity.
func (s *mirrorStore) Document(ctx context.Context, kind domain.Kind, id string) (*domain.SearchDocument, error) {
	switch kind {
	case domain.KindSeries:
		row := s.store.db.QueryRowContext(ctx,
			"SELECT id, title, description FROM series WHERE id = ? AND deleted = 0", id)
		doc := domain.SearchDocument{Kind: domain.KindSeries}
		var entityID string
		if err := row.Scan(&entityID, &doc.Title, &doc.Description); err != nil {
			if err == sql.ErrNoRows {
				return nil, fmt.Errorf("%w: series %s", domain.ErrNotFound, id)
			}
			return nil, fmt.Errorf("scanning series document: %w", err)
		}
		doc.DocID = domain.DocID(domain.KindSeries, entityID)
		return &doc, nil

	case domain.KindEvent:
		row := s.store.db.QueryRowContext(ctx, `
			SELECT e.id, e.title, e.description, e.creator, e.read_roles,
			       COALESCE(s.title, '')
			FROM events e
			LEFT JOIN series s ON s.id = e.series_id AND s.deleted = 0
			WHERE e.id = ? AND e.deleted = 0
		`, id)
		doc := domain.SearchDocument{Kind: domain.KindEvent}
		var entityID, readRoles string
		if err := row.Scan(&entityID, &doc.Title, &doc.Description, &doc.Creator,
			&readRoles, &doc.SeriesTitle); err != nil {
			if err == sql.ErrNoRows {
				return nil, fmt.Errorf("%w: event %s", domain.ErrNotFound, id)
			}
			return nil, fmt.Errorf("scanning event document: %w", err)
		}
		if err := json.Unmarshal([]byte(readRoles), &doc.ReadRoles); err != nil {
			return nil, fmt.Errorf("unmarshalling read roles: %w", err)
		}
		doc.DocID = domain.DocID(domain.KindEvent, entityID)
		return &doc, nil

	default:
		return nil, fmt.Errorf("%w: unknown entity kind %q", domain.ErrProtocol, kind)
	}
}

// AllDocuments re-derives the documents of every live entity.
func (s *mirrorStore) AllDocuments(ctx context.Context) ([]domain.SearchDocument, error) {
	var docs []domain.SearchDocument

	rows, err := s.store.db.QueryContext(ctx,
		"SELECT id, title, description FROM series WHERE deleted = 0 ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("listing series documents: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		doc := domain.SearchDocument{Kind: domain.KindSeries}
		var id string
		if err := rows.Scan(&id, &doc.Title, &doc.Description); err != nil {
			return nil, fmt.Errorf("scanning series document: %w", err)
		}
		doc.DocID = domain.DocID(domain.KindSeries, id)
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	eventRows, err := s.store.db.QueryContext(ctx, `
		SELECT e.id, e.title, e.description, e.creator, e.read_roles,
		       COALESCE(s.title, '')
		FROM events e
		LEFT JOIN series s ON s.id = e.series_id AND s.deleted = 0
		WHERE e.deleted = 0
		ORDER BY e.id
	`)
	if err != nil {
		return nil, fmt.Errorf("listing event documents: %w", err)
	}
	defer eventRows.Close()
	for eventRows.Next() {
		doc := domain.SearchDocument{Kind: domain.KindEvent}
		var id, readRoles string
		if err := eventRows.Scan(&id, &doc.Title, &doc.Description, &doc.Creator,
			&readRoles, &doc.SeriesTitle); err != nil {
			return nil, fmt.Errorf("scanning event document: %w", err)
		}
		if err := json.Unmarshal([]byte(readRoles), &doc.ReadRoles); err != nil {
			return nil, fmt.Errorf("unmarshalling read roles: %w", err)
		}
		doc.DocID = domain.DocID(domain.KindEvent, id)
		docs = append(docs, doc)
	}
	return docs, eventRows.Err()
}
