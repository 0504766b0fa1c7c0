// Package sqlite implements store.Store on SQLite (modernc.org/sqlite, no
// cgo). Postings live in one table indexed by term and tag; conjunctive
// lookups are built with squirrel.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"github.com/cognicore/kiwi-analysis/pkg/kiwi/internalerr"
	"github.com/cognicore/kiwi-analysis/pkg/kiwi/store"
)

// sqliteStore implements the Store interface using SQLite
type sqliteStore struct {
	db *sql.DB
}

// OpenSQLite opens a SQLite database with WAL mode enabled and creates the
// schema if needed.
func OpenSQLite(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One writer at a time; avoids SQLITE_BUSY between pooled connections.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	// Enable foreign keys
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, err
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS docs (
	id TEXT PRIMARY KEY,
	url TEXT UNIQUE,
	title TEXT,
	body TEXT,
	indexed_at TEXT
);

CREATE TABLE IF NOT EXISTS postings (
	doc_id TEXT NOT NULL,
	term TEXT NOT NULL,
	tag TEXT NOT NULL,
	position INTEGER NOT NULL,
	start_offset INTEGER NOT NULL,
	end_offset INTEGER NOT NULL,
	FOREIGN KEY(doc_id) REFERENCES docs(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS postings_term_tag ON postings(term, tag);
CREATE INDEX IF NOT EXISTS postings_doc ON postings(doc_id, position);
`

	_, err := db.ExecContext(ctx, schema)
	return err
}

// UpsertDoc inserts or updates a document and replaces its postings. A URL
// already stored under another ID keeps that ID.
func (s *sqliteStore) UpsertDoc(ctx context.Context, d store.Doc) (string, error) {
	if d.ID == "" {
		return "", fmt.Errorf("%w: document without ID", internalerr.ErrInvalidInput)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	if d.URL != "" {
		var owner string
		err := tx.QueryRowContext(ctx, `SELECT id FROM docs WHERE url = ?`, d.URL).Scan(&owner)
		switch {
		case err == nil:
			d.ID = owner
		case !errors.Is(err, sql.ErrNoRows):
			return "", err
		}
	}

	const stmt = `
INSERT INTO docs (id, url, title, body, indexed_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	url=excluded.url,
	title=excluded.title,
	body=excluded.body,
	indexed_at=excluded.indexed_at;
`
	var url sql.NullString
	if d.URL != "" {
		url = sql.NullString{String: d.URL, Valid: true}
	}
	var indexed string
	if !d.IndexedAt.IsZero() {
		indexed = d.IndexedAt.UTC().Format(time.RFC3339Nano)
	}
	if _, err := tx.ExecContext(ctx, stmt, d.ID, url, d.Title, d.Body, indexed); err != nil {
		return "", err
	}

	if err := replacePostings(ctx, tx, d.ID, d.Postings); err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return d.ID, nil
}

func replacePostings(ctx context.Context, tx *sql.Tx, docID string, postings []store.Posting) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM postings WHERE doc_id=?`, docID); err != nil {
		return err
	}
	if len(postings) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO postings (doc_id, term, tag, position, start_offset, end_offset)
VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, p := range postings {
		if p.Term == "" {
			continue
		}
		if _, err := stmt.ExecContext(ctx, docID, p.Term, p.Tag, p.Position, p.Start, p.End); err != nil {
			return err
		}
	}
	return nil
}

// GetDoc retrieves a document by ID
func (s *sqliteStore) GetDoc(ctx context.Context, id string) (store.Doc, error) {
	return s.loadDoc(ctx, id)
}

// GetDocByURL retrieves a document by URL
func (s *sqliteStore) GetDocByURL(ctx context.Context, url string) (store.Doc, bool, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM docs WHERE url = ?`, url).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Doc{}, false, nil
	}
	if err != nil {
		return store.Doc{}, false, err
	}

	doc, err := s.loadDoc(ctx, id)
	if err != nil {
		return store.Doc{}, false, err
	}
	return doc, true, nil
}

// DocsByTerms retrieves documents containing every given term
func (s *sqliteStore) DocsByTerms(ctx context.Context, q store.TermQuery) ([]store.Doc, error) {
	unique := store.UniqueStrings(q.Terms)
	if len(unique) == 0 {
		return nil, nil
	}
	limit := q.Limit
	if limit <= 0 {
		limit = store.DefaultLimit
	}

	query := squirrel.Select("doc_id").
		From("postings").
		Where(squirrel.Eq{"term": unique})
	if tagFilter := store.UniqueStrings(q.Tags); len(tagFilter) > 0 {
		query = query.Where(squirrel.Eq{"tag": tagFilter})
	}
	if q.After != "" {
		query = query.Where(squirrel.Gt{"doc_id": q.After})
	}
	query = query.
		GroupBy("doc_id").
		Having("COUNT(DISTINCT term) = ?", len(unique)).
		OrderBy("doc_id").
		Limit(uint64(limit))

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	ids, err := s.loadStringColumn(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}

	results := make([]store.Doc, 0, len(ids))
	for _, id := range ids {
		doc, err := s.loadDoc(ctx, id)
		if err != nil {
			return nil, err
		}
		results = append(results, doc)
	}
	return results, nil
}

// TermDF counts documents containing term
func (s *sqliteStore) TermDF(ctx context.Context, term string) (int64, error) {
	var df int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT doc_id) FROM postings WHERE term=?`, term).Scan(&df)
	return df, err
}

// DocCount counts stored documents
func (s *sqliteStore) DocCount(ctx context.Context) (int64, error) {
	var total int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM docs`).Scan(&total)
	return total, err
}

func (s *sqliteStore) loadDoc(ctx context.Context, id string) (store.Doc, error) {
	var (
		doc     store.Doc
		url     sql.NullString
		indexed string
	)
	err := s.db.QueryRowContext(ctx, `
SELECT id, url, title, body, indexed_at
FROM docs
WHERE id = ?;
`, id).Scan(&doc.ID, &url, &doc.Title, &doc.Body, &indexed)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Doc{}, fmt.Errorf("%w: document %s", internalerr.ErrNotFound, id)
	}
	if err != nil {
		return store.Doc{}, err
	}
	doc.URL = url.String

	if indexed != "" {
		if parsed, perr := time.Parse(time.RFC3339Nano, indexed); perr == nil {
			doc.IndexedAt = parsed
		}
	}

	doc.Postings, err = s.loadPostings(ctx, id)
	if err != nil {
		return store.Doc{}, err
	}
	return doc, nil
}

func (s *sqliteStore) loadPostings(ctx context.Context, docID string) ([]store.Posting, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT term, tag, position, start_offset, end_offset
FROM postings
WHERE doc_id=?
ORDER BY position, rowid`, docID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var postings []store.Posting
	for rows.Next() {
		var p store.Posting
		if err := rows.Scan(&p.Term, &p.Tag, &p.Position, &p.Start, &p.End); err != nil {
			return nil, err
		}
		postings = append(postings, p)
	}
	return postings, rows.Err()
}

func (s *sqliteStore) loadStringColumn(ctx context.Context, query string, args ...interface{}) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var val string
		if err := rows.Scan(&val); err != nil {
			return nil, err
		}
		result = append(result, val)
	}
	return result, rows.Err()
}
