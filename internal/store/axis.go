package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Artifact names for single-vector and scalar-pair artifacts
const (
	ArtifactAxisVector = "axis_vector"
	ArtifactScoreRange = "score_range"
)

// AxisStore persists per-token axis scores, pole memberships and the axis
// vector artifact itself
type AxisStore struct {
	db *DB
}

// NewAxisStore creates a new axis store
func NewAxisStore(db *DB) *AxisStore {
	return &AxisStore{db: db}
}

// TokenScore is one token's signed projection onto the semantic axis
type TokenScore struct {
	Token         string
	Score         float64
	EvidencePole  bool
	IntuitionPole bool
}

// ReplaceAll replaces the full axis score table in one transaction.
// Axis scores are derived data; a rebuild always rewrites the whole table.
func (a *AxisStore) ReplaceAll(scores []TokenScore) error {
	tx, err := a.db.BeginTx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM axis_scores"); err != nil {
		return fmt.Errorf("failed to clear axis scores: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO axis_scores (token, score, evidence_pole, intuition_pole)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, ts := range scores {
		if _, err := stmt.Exec(ts.Token, ts.Score, boolToInt(ts.EvidencePole), boolToInt(ts.IntuitionPole)); err != nil {
			return fmt.Errorf("failed to insert axis score for %q: %w", ts.Token, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	return nil
}

// AllScores returns the full token -> axis score map
func (a *AxisStore) AllScores() (map[string]float64, error) {
	rows, err := a.db.sqlDB.Query("SELECT token, score FROM axis_scores")
	if err != nil {
		return nil, fmt.Errorf("failed to query axis scores: %w", err)
	}
	defer rows.Close()

	scores := make(map[string]float64)
	for rows.Next() {
		var token string
		var score float64
		if err := rows.Scan(&token, &score); err != nil {
			return nil, fmt.Errorf("failed to scan axis score: %w", err)
		}
		scores[token] = score
	}

	return scores, rows.Err()
}

// PoleSizes returns the expanded evidence and intuition pole sizes
func (a *AxisStore) PoleSizes() (evidence, intuition int64, err error) {
	err = a.db.sqlDB.QueryRow(
		"SELECT COALESCE(SUM(evidence_pole), 0), COALESCE(SUM(intuition_pole), 0) FROM axis_scores",
	).Scan(&evidence, &intuition)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to query pole sizes: %w", err)
	}
	return evidence, intuition, nil
}

// SaveVectorArtifact stores a named vector artifact (e.g. the axis vector)
func (a *AxisStore) SaveVectorArtifact(name string, vector []float32) error {
	blob := vectorToBlob(vector)
	_, err := a.db.sqlDB.Exec(`
		INSERT OR REPLACE INTO artifacts (name, vector, created_at)
		VALUES (?, ?, ?)
	`, name, blob, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save artifact %q: %w", name, err)
	}
	return nil
}

// VectorArtifact loads a named vector artifact
func (a *AxisStore) VectorArtifact(name string) ([]float32, error) {
	var blob []byte
	err := a.db.sqlDB.QueryRow("SELECT vector FROM artifacts WHERE name = ?", name).Scan(&blob)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("artifact not found: %s", name)
		}
		return nil, fmt.Errorf("failed to load artifact %q: %w", name, err)
	}
	return blobToVector(blob)
}

// SaveScalarPair stores a named (a, b) scalar artifact, e.g. the min-max
// normalization bounds
func (a *AxisStore) SaveScalarPair(name string, valueA, valueB float64) error {
	_, err := a.db.sqlDB.Exec(`
		INSERT OR REPLACE INTO artifacts (name, value_a, value_b, created_at)
		VALUES (?, ?, ?, ?)
	`, name, valueA, valueB, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save artifact %q: %w", name, err)
	}
	return nil
}

// ScalarPair loads a named (a, b) scalar artifact
func (a *AxisStore) ScalarPair(name string) (float64, float64, error) {
	var valueA, valueB sql.NullFloat64
	err := a.db.sqlDB.QueryRow("SELECT value_a, value_b FROM artifacts WHERE name = ?", name).Scan(&valueA, &valueB)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, 0, fmt.Errorf("artifact not found: %s", name)
		}
		return 0, 0, fmt.Errorf("failed to load artifact %q: %w", name, err)
	}
	if !valueA.Valid || !valueB.Valid {
		return 0, 0, fmt.Errorf("artifact %q has no scalar values", name)
	}
	return valueA.Float64, valueB.Float64, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
