package search

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// EntityRow represents a row in the entities table.
type EntityRow struct {
	Path      string
	Category  string
	EntityID  string
	Title     string
	Status    string
	Checksum  string
	UpdatedAt time.Time
}

// Result represents one search hit.
type Result struct {
	Path    string `json:"path"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// Upsert inserts or replaces an entity row and its FTS entry.
func (db *DB) Upsert(row EntityRow, body string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("search: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.Exec(`
		INSERT INTO entities (path, category, entity_id, title, status, checksum, body, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			category   = excluded.category,
			entity_id  = excluded.entity_id,
			title      = excluded.title,
			status     = excluded.status,
			checksum   = excluded.checksum,
			body       = excluded.body,
			updated_at = excluded.updated_at
	`, row.Path, row.Category, row.EntityID, row.Title, row.Status, row.Checksum, body, row.UpdatedAt)
	if err != nil {
		return fmt.Errorf("search: upsert entity: %w", err)
	}

	// FTS upsert (no-op when the FTS5 tag is absent).
	if err := ftsUpsert(tx, row.Path, row.Title, body); err != nil {
		return err
	}

	return tx.Commit()
}

// Delete removes an entity row and its FTS entry.
func (db *DB) Delete(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("search: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, path)
	_, _ = tx.Exec(`DELETE FROM entities WHERE path = ?`, path)

	return tx.Commit()
}

// Get returns the row for path, or nil when absent.
func (db *DB) Get(path string) (*EntityRow, error) {
	var r EntityRow
	err := db.conn.QueryRow(`
		SELECT path, category, entity_id, title, status, checksum, updated_at
		FROM entities WHERE path = ?
	`, path).Scan(&r.Path, &r.Category, &r.EntityID, &r.Title, &r.Status, &r.Checksum, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("search: get: %w", err)
	}
	return &r, nil
}

// List returns paginated rows with an optional category filter, plus the
// total match count.
func (db *DB) List(category string, limit, offset int) ([]EntityRow, int, error) {
	if limit <= 0 {
		limit = 50
	}
	var total int
	if err := db.conn.QueryRow(`
		SELECT count(*) FROM entities WHERE (? = '' OR category = ?)
	`, category, category).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("search: count: %w", err)
	}

	rows, err := db.conn.Query(`
		SELECT path, category, entity_id, title, status, checksum, updated_at
		FROM entities
		WHERE (? = '' OR category = ?)
		ORDER BY updated_at DESC, path
		LIMIT ? OFFSET ?
	`, category, category, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("search: list: %w", err)
	}
	defer rows.Close()

	var out []EntityRow
	for rows.Next() {
		var r EntityRow
		if err := rows.Scan(&r.Path, &r.Category, &r.EntityID, &r.Title, &r.Status, &r.Checksum, &r.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, r)
	}
	return out, total, rows.Err()
}

// GetChecksum returns the stored checksum for path, or "" when the path
// is not indexed.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM entities WHERE path = ?`, path).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("search: get checksum: %w", err)
	}
	return cs, nil
}

// AllChecksums returns a path-to-checksum map of every indexed entity.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM entities`)
	if err != nil {
		return nil, fmt.Errorf("search: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}
