package store

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

// VectorStore persists the trained embedding table (token -> vector)
type VectorStore struct {
	db *DB
}

// NewVectorStore creates a new vector store
func NewVectorStore(db *DB) *VectorStore {
	return &VectorStore{db: db}
}

// InsertBatch inserts token vectors in a single transaction
func (v *VectorStore) InsertBatch(tokens []string, vectors [][]float32, frequencies []int64) error {
	if len(tokens) != len(vectors) || len(tokens) != len(frequencies) {
		return fmt.Errorf("tokens, vectors and frequencies length mismatch")
	}
	if len(tokens) == 0 {
		return nil
	}

	tx, err := v.db.BeginTx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO embeddings (token, vector, dimension, frequency, created_at)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)

	for i, vec := range vectors {
		if len(vec) == 0 {
			continue
		}
		blob := vectorToBlob(vec)
		if _, err := stmt.Exec(tokens[i], blob, len(vec), frequencies[i], now); err != nil {
			return fmt.Errorf("failed to insert vector for %q: %w", tokens[i], err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	return nil
}

// Get retrieves the vector for a token
func (v *VectorStore) Get(token string) ([]float32, error) {
	var blob []byte
	var dimension int

	err := v.db.sqlDB.QueryRow(
		"SELECT vector, dimension FROM embeddings WHERE token = ?", token,
	).Scan(&blob, &dimension)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("vector not found for token: %s", token)
		}
		return nil, fmt.Errorf("failed to get vector: %w", err)
	}

	vector, err := blobToVector(blob)
	if err != nil {
		return nil, fmt.Errorf("failed to convert blob to vector: %w", err)
	}
	if len(vector) != dimension {
		return nil, fmt.Errorf("vector dimension mismatch: expected %d, got %d", dimension, len(vector))
	}

	return vector, nil
}

// All streams every (token, vector, frequency) row
func (v *VectorStore) All(fn func(token string, vector []float32, frequency int64) error) error {
	rows, err := v.db.sqlDB.Query("SELECT token, vector, frequency FROM embeddings")
	if err != nil {
		return fmt.Errorf("failed to query vectors: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var token string
		var blob []byte
		var frequency int64
		if err := rows.Scan(&token, &blob, &frequency); err != nil {
			return fmt.Errorf("failed to scan vector row: %w", err)
		}
		vector, err := blobToVector(blob)
		if err != nil {
			return fmt.Errorf("failed to decode vector for %q: %w", token, err)
		}
		if err := fn(token, vector, frequency); err != nil {
			return err
		}
	}

	return rows.Err()
}

// Count returns the vocabulary size
func (v *VectorStore) Count() (int64, error) {
	var count int64
	if err := v.db.sqlDB.QueryRow("SELECT COUNT(*) FROM embeddings").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count vectors: %w", err)
	}
	return count, nil
}

// vectorToBlob converts a float32 vector to a little-endian binary blob
func vectorToBlob(vector []float32) []byte {
	blob := make([]byte, len(vector)*4)
	for i, f := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(f))
	}
	return blob
}

// blobToVector converts a binary blob back to a float32 vector
func blobToVector(blob []byte) ([]float32, error) {
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("invalid blob length: %d", len(blob))
	}
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vector, nil
}
