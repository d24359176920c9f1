package vectorstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/SaiNageswarS/course-rag/embed"
	_ "modernc.org/sqlite"
)

// CurrentSchemaVersion is the latest schema version.
// Bump this when adding migrations.
const CurrentSchemaVersion = 1

// SQLiteStore persists records and their embeddings in a single SQLite file.
// Similarity is computed in process over the rows of a collection.
type SQLiteStore struct {
	db       *sql.DB
	embedder embed.Embedder
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path string, embedder embed.Embedder) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db, embedder: embedder}, nil
}

func (s *SQLiteStore) Collection(_ context.Context, name string) (Collection, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("collection name is empty")
	}
	return &sqliteCollection{name: name, store: s}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// migrate applies schema migrations based on user_version.
func migrate(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return fmt.Errorf("failed to get user_version: %w", err)
	}

	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS records (
		  collection    TEXT NOT NULL,
		  id            TEXT NOT NULL,
		  text          TEXT NOT NULL,
		  metadata_json TEXT NOT NULL,
		  embedding     TEXT NOT NULL,
		  PRIMARY KEY (collection, id)
		);
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration 1 failed: %w", err)
		}
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", 1)); err != nil {
			return fmt.Errorf("failed to set user_version: %w", err)
		}
	}

	return nil
}

type sqliteCollection struct {
	name  string
	store *SQLiteStore
}

func (c *sqliteCollection) Name() string { return c.name }

func (c *sqliteCollection) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	texts := make([]string, len(records))
	for i, r := range records {
		texts[i] = r.Text
	}
	vectors, err := c.store.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", c.name, err)
	}

	tx, err := c.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", c.name, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO records (collection, id, text, metadata_json, embedding)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (collection, id) DO UPDATE SET
		  text = excluded.text,
		  metadata_json = excluded.metadata_json,
		  embedding = excluded.embedding
	`)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", c.name, err)
	}
	defer stmt.Close()

	for i, r := range records {
		metadata := r.Metadata
		if metadata == nil {
			metadata = map[string]any{}
		}
		metaJSON, err := json.Marshal(metadata)
		if err != nil {
			return fmt.Errorf("upsert %s: metadata of %s: %w", c.name, r.ID, err)
		}
		vecJSON, err := json.Marshal(vectors[i])
		if err != nil {
			return fmt.Errorf("upsert %s: embedding of %s: %w", c.name, r.ID, err)
		}

		if _, err := stmt.ExecContext(ctx, c.name, r.ID, r.Text, string(metaJSON), string(vecJSON)); err != nil {
			return fmt.Errorf("upsert %s: %w", c.name, err)
		}
	}

	return tx.Commit()
}

func (c *sqliteCollection) Query(ctx context.Context, text string, k int, filter Filter) ([]Hit, error) {
	if k <= 0 {
		return nil, nil
	}

	vectors, err := c.store.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", c.name, err)
	}
	query := vectors[0]

	rows, err := c.store.db.QueryContext(ctx,
		`SELECT id, text, metadata_json, embedding FROM records WHERE collection = ?`, c.name)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", c.name, err)
	}
	defer rows.Close()

	var scanErr error
	hits := nearest(k, func(offer func(Hit)) {
		for rows.Next() {
			var rec Record
			var metaJSON, vecJSON string
			if err := rows.Scan(&rec.ID, &rec.Text, &metaJSON, &vecJSON); err != nil {
				scanErr = err
				return
			}
			if err := json.Unmarshal([]byte(metaJSON), &rec.Metadata); err != nil {
				scanErr = err
				return
			}
			if !filter.Matches(rec.Metadata) {
				continue
			}

			var vec []float32
			if err := json.Unmarshal([]byte(vecJSON), &vec); err != nil {
				scanErr = err
				return
			}
			offer(Hit{Record: rec, Distance: embed.CosineDistance(query, vec)})
		}
		scanErr = rows.Err()
	})
	if scanErr != nil {
		return nil, fmt.Errorf("query %s: %w", c.name, scanErr)
	}
	return hits, nil
}

func (c *sqliteCollection) Get(ctx context.Context, ids []string) ([]Record, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, 0, len(ids)+1)
	args = append(args, c.name)
	for _, id := range ids {
		args = append(args, id)
	}

	found, err := c.selectRecords(ctx,
		`SELECT id, text, metadata_json FROM records WHERE collection = ? AND id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]Record, len(found))
	for _, r := range found {
		byID[r.ID] = r
	}
	out := make([]Record, 0, len(ids))
	for _, id := range ids {
		if r, ok := byID[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (c *sqliteCollection) List(ctx context.Context) ([]Record, error) {
	return c.selectRecords(ctx,
		`SELECT id, text, metadata_json FROM records WHERE collection = ? ORDER BY id`, c.name)
}

func (c *sqliteCollection) Count(ctx context.Context) (int, error) {
	var n int
	if err := c.store.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM records WHERE collection = ?`, c.name).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", c.name, err)
	}
	return n, nil
}

func (c *sqliteCollection) Delete(ctx context.Context, filter Filter) (int, error) {
	query := `DELETE FROM records WHERE collection = ?`
	args := []any{c.name}
	for key, value := range filter {
		query += ` AND json_extract(metadata_json, '$."' || ? || '"') = ?`
		args = append(args, key, value)
	}

	res, err := c.store.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", c.name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", c.name, err)
	}
	return int(n), nil
}

func (c *sqliteCollection) Reset(ctx context.Context) error {
	if _, err := c.store.db.ExecContext(ctx, `DELETE FROM records WHERE collection = ?`, c.name); err != nil {
		return fmt.Errorf("reset %s: %w", c.name, err)
	}
	return nil
}

func (c *sqliteCollection) selectRecords(ctx context.Context, query string, args ...any) ([]Record, error) {
	rows, err := c.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", c.name, err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var metaJSON string
		if err := rows.Scan(&rec.ID, &rec.Text, &metaJSON); err != nil {
			return nil, fmt.Errorf("select %s: %w", c.name, err)
		}
		if err := json.Unmarshal([]byte(metaJSON), &rec.Metadata); err != nil {
			return nil, fmt.Errorf("select %s: metadata of %s: %w", c.name, rec.ID, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
