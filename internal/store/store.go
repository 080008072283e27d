// Package store persists content fingerprints. The production store is
// SQLite-backed; Memory provides the same contract for tests and dry runs.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"blogsmith/internal/core"
	"blogsmith/internal/dedup"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the SQLite-based fingerprint store. database/sql serializes
// access to the underlying connection, so concurrent readers and writers
// are safe without extra locking.
type Store struct {
	db   *sql.DB
	path string
}

// Stats summarizes the fingerprint table.
type Stats struct {
	TotalFingerprints  int `json:"total_fingerprints"`
	RecentFingerprints int `json:"recent_fingerprints_7d"`
}

// NewStore opens (and if needed creates) the fingerprint database under
// dataDir.
func NewStore(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "fingerprints.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return store, nil
}

// initialize creates the fingerprints table.
func (s *Store) initialize() error {
	table := `
	CREATE TABLE IF NOT EXISTS fingerprints (
		content_hash TEXT PRIMARY KEY,
		title TEXT,
		title_shingles TEXT,
		body_shingles TEXT,
		word_count INTEGER,
		source_topic TEXT,
		created_at DATETIME
	);`
	if _, err := s.db.Exec(table); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	index := `CREATE INDEX IF NOT EXISTS idx_fingerprints_created_at ON fingerprints (created_at);`
	if _, err := s.db.Exec(index); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record persists a fingerprint durably. The write is committed before
// Record returns; a failure here means the caller must not treat the article
// as accepted. Recording a content hash that already exists refreshes the
// stored row, so a topic legitimately re-covered after the recency window
// gets a fresh created_at.
func (s *Store) Record(ctx context.Context, fp core.ContentFingerprint) error {
	titleShingles, err := json.Marshal(fp.TitleShingles)
	if err != nil {
		return fmt.Errorf("failed to encode title shingles: %w", err)
	}
	bodyShingles, err := json.Marshal(fp.BodyShingles)
	if err != nil {
		return fmt.Errorf("failed to encode body shingles: %w", err)
	}

	query := `
	INSERT INTO fingerprints
	(content_hash, title, title_shingles, body_shingles, word_count, source_topic, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(content_hash) DO UPDATE SET
		title = excluded.title,
		title_shingles = excluded.title_shingles,
		body_shingles = excluded.body_shingles,
		word_count = excluded.word_count,
		source_topic = excluded.source_topic,
		created_at = excluded.created_at`

	_, err = s.db.ExecContext(ctx, query,
		fp.ContentHash,
		fp.Title,
		string(titleShingles),
		string(bodyShingles),
		fp.WordCount,
		fp.SourceTopic,
		fp.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record fingerprint: %w", err)
	}
	return nil
}

// QuerySimilar scans fingerprints created at or after q.Since and returns
// the best-scoring match, or nil when nothing in the window compares.
func (s *Store) QuerySimilar(ctx context.Context, q dedup.SimilarityQuery) (*dedup.Match, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT content_hash, title, title_shingles, body_shingles, word_count, source_topic, created_at
	FROM fingerprints WHERE created_at >= ?`, q.Since)
	if err != nil {
		return nil, fmt.Errorf("failed to query fingerprints: %w", err)
	}
	defer rows.Close()

	var best *dedup.Match
	for rows.Next() {
		fp, err := scanFingerprint(rows)
		if err != nil {
			return nil, err
		}
		match := dedup.ScoreMatch(q, fp)
		if best == nil || match.Score() > best.Score() {
			best = &match
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate fingerprints: %w", err)
	}
	return best, nil
}

// PruneOlderThan deletes fingerprints past the retention horizon and returns
// how many were removed.
func (s *Store) PruneOlderThan(ctx context.Context, horizon time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-horizon)
	res, err := s.db.ExecContext(ctx, `DELETE FROM fingerprints WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune fingerprints: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// GetStats returns counts over the fingerprint table.
func (s *Store) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM fingerprints`).Scan(&stats.TotalFingerprints)
	if err != nil {
		return nil, fmt.Errorf("failed to count fingerprints: %w", err)
	}

	weekAgo := time.Now().UTC().Add(-7 * 24 * time.Hour)
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM fingerprints WHERE created_at >= ?`, weekAgo).Scan(&stats.RecentFingerprints)
	if err != nil {
		return nil, fmt.Errorf("failed to count recent fingerprints: %w", err)
	}

	return stats, nil
}

func scanFingerprint(rows *sql.Rows) (core.ContentFingerprint, error) {
	var fp core.ContentFingerprint
	var titleShingles, bodyShingles string

	err := rows.Scan(&fp.ContentHash, &fp.Title, &titleShingles, &bodyShingles,
		&fp.WordCount, &fp.SourceTopic, &fp.CreatedAt)
	if err != nil {
		return fp, fmt.Errorf("failed to scan fingerprint: %w", err)
	}

	if err := json.Unmarshal([]byte(titleShingles), &fp.TitleShingles); err != nil {
		return fp, fmt.Errorf("failed to decode title shingles: %w", err)
	}
	if err := json.Unmarshal([]byte(bodyShingles), &fp.BodyShingles); err != nil {
		return fp, fmt.Errorf("failed to decode body shingles: %w", err)
	}
	return fp, nil
}
