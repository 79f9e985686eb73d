// Package sqlitefts implements the search index on SQLite's FTS5
// extension, available in modernc.org/sqlite without CGO. The index is a
// separate database file from the metadata store: it is derived state
// that can always be rebuilt from the mirror.
package sqlitefts

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/lectern-labs/lectern/internal/core/domain"
	"github.com/lectern-labs/lectern/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.SearchIndex = (*Index)(nil)

// Index is a full-text search index over the mirrored entities.
type Index struct {
	db   *sql.DB
	path string
}

// NewIndex creates (or opens) the search index in the data directory.
func NewIndex(dataDir string) (*Index, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".lectern", "data")
	}
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "search.db")
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening search index: %w", err)
	}

	_, err = db.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS documents USING fts5(
			doc_id UNINDEXED,
			kind UNINDEXED,
			title,
			description,
			creator,
			series_title,
			read_roles UNINDEXED
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating documents table: %w", err)
	}

	return &Index{db: db, path: dbPath}, nil
}

// Close closes the index.
func (ix *Index) Close() error {
	return ix.db.Close()
}

// Path returns the index file path.
func (ix *Index) Path() string {
	return ix.path
}

// Upsert replaces the given documents in the index.
func (ix *Index) Upsert(ctx context.Context, docs []domain.SearchDocument) error {
	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // No-op after commit.

	for i := range docs {
		if err := upsertDoc(ctx, tx, &docs[i]); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert: %w", err)
	}
	return nil
}

func upsertDoc(ctx context.Context, tx *sql.Tx, doc *domain.SearchDocument) error {
	readRoles, err := json.Marshal(doc.ReadRoles)
	if err != nil {
		return fmt.Errorf("marshalling read roles: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM documents WHERE doc_id = ?", doc.DocID); err != nil {
		return fmt.Errorf("replacing document %s: %w", doc.DocID, err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (doc_id, kind, title, description, creator, series_title, read_roles)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, doc.DocID, doc.Kind, doc.Title, doc.Description, doc.Creator,
		doc.SeriesTitle, string(readRoles))
	if err != nil {
		return fmt.Errorf("indexing document %s: %w", doc.DocID, err)
	}
	return nil
}

// Delete removes documents by ID. Unknown IDs are ignored.
func (ix *Index) Delete(ctx context.Context, docIDs []string) error {
	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // No-op after commit.

	for _, id := range docIDs {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM documents WHERE doc_id = ?", id); err != nil {
			return fmt.Errorf("deleting document %s: %w", id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}
	return nil
}

// Rebuild replaces the whole index with the given documents.
func (ix *Index) Rebuild(ctx context.Context, docs []domain.SearchDocument) error {
	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin rebuild: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // No-op after commit.

	if _, err := tx.ExecContext(ctx, "DELETE FROM documents"); err != nil {
		return fmt.Errorf("clearing index: %w", err)
	}
	for i := range docs {
		if err := upsertDoc(ctx, tx, &docs[i]); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit rebuild: %w", err)
	}
	return nil
}

// Search runs a full-text query ranked by relevance.
func (ix *Index) Search(ctx context.Context, query string, limit int) ([]domain.SearchDocument, error) {
	match := buildMatch(query)
	if match == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := ix.db.QueryContext(ctx, `
		SELECT doc_id, kind, title, description, creator, series_title, read_roles
		FROM documents
		WHERE documents MATCH ?
		ORDER BY rank
		LIMIT ?
	`, match, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: search: %v", domain.ErrIndexing, err)
	}
	defer rows.Close()

	var docs []domain.SearchDocument
	for rows.Next() {
		var doc domain.SearchDocument
		var readRoles string
		if err := rows.Scan(&doc.DocID, &doc.Kind, &doc.Title, &doc.Description,
			&doc.Creator, &doc.SeriesTitle, &readRoles); err != nil {
			return nil, fmt.Errorf("scanning search hit: %w", err)
		}
		if err := json.Unmarshal([]byte(readRoles), &doc.ReadRoles); err != nil {
			return nil, fmt.Errorf("unmarshalling read roles: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// buildMatch turns free-form user input into an FTS5 query: each term is
// quoted (so FTS operators are literal) and prefix-matched, terms are
// implicitly ANDed.
func buildMatch(query string) string {
	terms := strings.Fields(query)
	if len(terms) == 0 {
		return ""
	}
	quoted := make([]string, 0, len(terms))
	for _, term := range terms {
		term = strings.ReplaceAll(term, `"`, `""`)
		quoted = append(quoted, `"`+term+`"*`)
	}
	return strings.Join(quoted, " ")
}
