package kb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/semloc/semloc/internal/models"
	"github.com/semloc/semloc/internal/vector"
)

// SQLiteStore implements Store using SQLite, with a vector index kept in sync
// for nearest-neighbor lookups.
type SQLiteStore struct {
	db    *sql.DB
	index vector.Index
}

// NewSQLiteStore opens or creates a SQLite database at dbPath and initializes
// the schema. Parent directories are created if they do not exist. index may
// be nil, in which case NearestNeighbors always returns no hits.
func NewSQLiteStore(dbPath string, index vector.Index) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db, index: index}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS semantic_records (
		semantic_key TEXT NOT NULL,
		build_id TEXT NOT NULL,
		version INTEGER NOT NULL,
		feature TEXT,
		selectors TEXT NOT NULL,
		confidence REAL NOT NULL,
		status TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		PRIMARY KEY (semantic_key, build_id)
	);

	CREATE INDEX IF NOT EXISTS idx_records_key_created ON semantic_records(semantic_key, created_at);

	CREATE TABLE IF NOT EXISTS annotations (
		id TEXT PRIMARY KEY,
		semantic_key TEXT NOT NULL,
		kind TEXT NOT NULL,
		value TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		revoked_at TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_annotations_key ON annotations(semantic_key);
	`
	_, err := db.Exec(schema)
	return err
}

// recordID builds the vector index ID for a (key, build) pair.
func recordID(semanticKey, buildID string) string {
	return semanticKey + "@" + buildID
}

// splitRecordID splits a vector index ID back into key and build. The build
// ID cannot contain "@"; the semantic key may.
func splitRecordID(id string) (semanticKey, buildID string, ok bool) {
	i := strings.LastIndex(id, "@")
	if i <= 0 || i == len(id)-1 {
		return "", "", false
	}
	return id[:i], id[i+1:], true
}

// Put writes rec with optimistic versioning. A version mismatch against the
// stored row returns ErrConflict; the caller re-fetches and retries.
func (s *SQLiteStore) Put(ctx context.Context, rec *models.SemanticRecord) error {
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("invalid record: %w", err)
	}
	featureJSON, err := json.Marshal(rec.Feature)
	if err != nil {
		return fmt.Errorf("failed to marshal feature: %w", err)
	}
	selectorsJSON, err := json.Marshal(rec.Selectors)
	if err != nil {
		return fmt.Errorf("failed to marshal selectors: %w", err)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var current int64
	err = tx.QueryRowContext(ctx,
		`SELECT version FROM semantic_records WHERE semantic_key = ? AND build_id = ?`,
		rec.SemanticKey, rec.BuildID,
	).Scan(&current)

	switch {
	case err == sql.ErrNoRows:
		if rec.Version != 0 {
			return fmt.Errorf("no stored record for %s@%s: %w", rec.SemanticKey, rec.BuildID, ErrConflict)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO semantic_records (semantic_key, build_id, version, feature, selectors, confidence, status, created_at)
			 VALUES (?, ?, 1, ?, ?, ?, ?, ?)`,
			rec.SemanticKey, rec.BuildID, string(featureJSON), string(selectorsJSON),
			rec.Confidence, string(rec.Status), rec.CreatedAt,
		); err != nil {
			return err
		}
		rec.Version = 1
	case err != nil:
		return err
	default:
		if current != rec.Version {
			return fmt.Errorf("stored version %d, got %d: %w", current, rec.Version, ErrConflict)
		}
		result, err := tx.ExecContext(ctx,
			`UPDATE semantic_records SET version = ?, feature = ?, selectors = ?, confidence = ?, status = ?, created_at = ?
			 WHERE semantic_key = ? AND build_id = ? AND version = ?`,
			current+1, string(featureJSON), string(selectorsJSON), rec.Confidence, string(rec.Status),
			rec.CreatedAt, rec.SemanticKey, rec.BuildID, current,
		)
		if err != nil {
			return err
		}
		n, _ := result.RowsAffected()
		if n == 0 {
			return fmt.Errorf("concurrent write on %s@%s: %w", rec.SemanticKey, rec.BuildID, ErrConflict)
		}
		rec.Version = current + 1
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	if s.index != nil && rec.Feature != nil && rec.Feature.Embedding != nil {
		id := recordID(rec.SemanticKey, rec.BuildID)
		if err := s.index.Add(ctx, []string{id}, [][]float32{rec.Feature.Embedding}); err != nil {
			return fmt.Errorf("failed to index embedding: %w", err)
		}
	}
	return nil
}

// Get returns the record for (semanticKey, buildID) with its key's annotations.
func (s *SQLiteStore) Get(ctx context.Context, semanticKey, buildID string) (*models.SemanticRecord, error) {
	rec, err := s.scanRecord(s.db.QueryRowContext(ctx,
		`SELECT semantic_key, build_id, version, feature, selectors, confidence, status, created_at
		 FROM semantic_records WHERE semantic_key = ? AND build_id = ?`,
		semanticKey, buildID,
	))
	if err != nil {
		return nil, err
	}
	anns, err := s.Annotations(ctx, semanticKey)
	if err != nil {
		return nil, err
	}
	rec.Annotations = anns
	return rec, nil
}

// History returns records for semanticKey, newest build first. Build ids
// order monotonically, so re-running an old build never promotes its record
// past newer builds; created_at only breaks ties.
func (s *SQLiteStore) History(ctx context.Context, semanticKey string, limit int) ([]*models.SemanticRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT semantic_key, build_id, version, feature, selectors, confidence, status, created_at
		 FROM semantic_records WHERE semantic_key = ? ORDER BY build_id DESC, created_at DESC LIMIT ?`,
		semanticKey, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.SemanticRecord
	for rows.Next() {
		rec, err := s.scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(records) > 0 {
		anns, err := s.Annotations(ctx, semanticKey)
		if err != nil {
			return nil, err
		}
		for _, rec := range records {
			rec.Annotations = anns
		}
	}
	return records, nil
}

// ListKeys returns the distinct semantic keys in the store.
func (s *SQLiteStore) ListKeys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT semantic_key FROM semantic_records ORDER BY semantic_key`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// NearestNeighbors returns the records closest to embedding by cosine
// similarity. Index entries whose records have since disappeared are skipped.
func (s *SQLiteStore) NearestNeighbors(ctx context.Context, embedding []float32, k int) ([]*Neighbor, error) {
	if s.index == nil || len(embedding) == 0 || k <= 0 {
		return nil, nil
	}
	hits, err := s.index.Search(ctx, embedding, k)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	neighbors := make([]*Neighbor, 0, len(hits))
	for _, hit := range hits {
		semanticKey, buildID, ok := splitRecordID(hit.ID)
		if !ok {
			continue
		}
		rec, err := s.Get(ctx, semanticKey, buildID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		sim := hit.Score
		if sim < 0 {
			sim = 0
		}
		if sim > 1 {
			sim = 1
		}
		neighbors = append(neighbors, &Neighbor{Record: rec, Similarity: sim})
	}
	return neighbors, nil
}

// RebuildVectorIndex reloads every stored embedding into the vector index.
// Used at startup when the persisted index is missing or stale.
func (s *SQLiteStore) RebuildVectorIndex(ctx context.Context) error {
	if s.index == nil {
		return nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT semantic_key, build_id, feature FROM semantic_records`,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	var ids []string
	var vectors [][]float32
	for rows.Next() {
		var semanticKey, buildID, featureJSON string
		if err := rows.Scan(&semanticKey, &buildID, &featureJSON); err != nil {
			return err
		}
		var feature models.FeatureVector
		if err := json.Unmarshal([]byte(featureJSON), &feature); err != nil {
			continue
		}
		if feature.Embedding == nil {
			continue
		}
		ids = append(ids, recordID(semanticKey, buildID))
		vectors = append(vectors, feature.Embedding)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	return s.index.Add(ctx, ids, vectors)
}

// Annotate stores a new annotation for a semantic key.
func (s *SQLiteStore) Annotate(ctx context.Context, ann *models.Annotation) error {
	if ann.ID == "" {
		return fmt.Errorf("annotation id cannot be empty")
	}
	if ann.SemanticKey == "" {
		return fmt.Errorf("annotation semantic key cannot be empty")
	}
	if ann.CreatedAt.IsZero() {
		ann.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO annotations (id, semantic_key, kind, value, created_at, revoked_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		ann.ID, ann.SemanticKey, string(ann.Kind), ann.Value, ann.CreatedAt, ann.RevokedAt,
	)
	return err
}

// RevokeAnnotation marks the annotation as revoked. Revoking an already
// revoked annotation is a no-op.
func (s *SQLiteStore) RevokeAnnotation(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE annotations SET revoked_at = ? WHERE id = ? AND revoked_at IS NULL`,
		time.Now(), id,
	)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		var exists int
		err := s.db.QueryRowContext(ctx, `SELECT 1 FROM annotations WHERE id = ?`, id).Scan(&exists)
		if err == sql.ErrNoRows {
			return fmt.Errorf("annotation not found: %s", id)
		}
		return err
	}
	return nil
}

// Annotations returns all annotations for semanticKey, oldest first,
// including revoked ones.
func (s *SQLiteStore) Annotations(ctx context.Context, semanticKey string) ([]models.Annotation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, semantic_key, kind, value, created_at, revoked_at
		 FROM annotations WHERE semantic_key = ? ORDER BY created_at`,
		semanticKey,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var anns []models.Annotation
	for rows.Next() {
		var ann models.Annotation
		var kind string
		var revokedAt sql.NullTime
		if err := rows.Scan(&ann.ID, &ann.SemanticKey, &kind, &ann.Value, &ann.CreatedAt, &revokedAt); err != nil {
			return nil, err
		}
		ann.Kind = models.AnnotationKind(kind)
		if revokedAt.Valid {
			t := revokedAt.Time
			ann.RevokedAt = &t
		}
		anns = append(anns, ann)
	}
	return anns, rows.Err()
}

// Count returns the total number of stored records.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM semantic_records`).Scan(&count)
	return count, err
}

// Close closes the database connection. The vector index has its own owner.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (s *SQLiteStore) scanRecord(row rowScanner) (*models.SemanticRecord, error) {
	var rec models.SemanticRecord
	var featureJSON, selectorsJSON, status string
	err := row.Scan(&rec.SemanticKey, &rec.BuildID, &rec.Version, &featureJSON,
		&selectorsJSON, &rec.Confidence, &status, &rec.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	rec.Status = models.Status(status)
	if featureJSON != "" && featureJSON != "null" {
		var feature models.FeatureVector
		if err := json.Unmarshal([]byte(featureJSON), &feature); err != nil {
			return nil, fmt.Errorf("failed to unmarshal feature: %w", err)
		}
		rec.Feature = &feature
	}
	if err := json.Unmarshal([]byte(selectorsJSON), &rec.Selectors); err != nil {
		return nil, fmt.Errorf("failed to unmarshal selectors: %w", err)
	}
	return &rec, nil
}
