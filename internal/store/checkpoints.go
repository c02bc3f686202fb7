package store

import (
	"database/sql"
	"fmt"
	"time"
)

// CheckpointStore persists trained regression heads.
// The encoder is frozen, so a checkpoint is just the head parameters plus
// evaluation bookkeeping.
type CheckpointStore struct {
	db *DB
}

// NewCheckpointStore creates a new checkpoint store
func NewCheckpointStore(db *DB) *CheckpointStore {
	return &CheckpointStore{db: db}
}

// Save stores a checkpoint and returns its ID
func (c *CheckpointStore) Save(cp *Checkpoint) (int64, error) {
	blob := vectorToBlob(cp.Weights)

	res, err := c.db.sqlDB.Exec(`
		INSERT INTO checkpoints (encoder_model, weights, bias, dimension, val_mae, test_mae, test_pearson, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, cp.EncoderModel, blob, cp.Bias, cp.Dimension, cp.ValMAE, cp.TestMAE, cp.TestPearson,
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("failed to save checkpoint: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get checkpoint id: %w", err)
	}
	cp.ID = id
	return id, nil
}

// Latest returns the most recently saved checkpoint
func (c *CheckpointStore) Latest() (*Checkpoint, error) {
	row := c.db.sqlDB.QueryRow(`
		SELECT id, encoder_model, weights, bias, dimension, val_mae, test_mae, test_pearson
		FROM checkpoints ORDER BY id DESC LIMIT 1
	`)

	var cp Checkpoint
	var blob []byte
	var testMAE, testPearson sql.NullFloat64
	if err := row.Scan(&cp.ID, &cp.EncoderModel, &blob, &cp.Bias, &cp.Dimension,
		&cp.ValMAE, &testMAE, &testPearson); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("no checkpoint found")
		}
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}

	weights, err := blobToVector(blob)
	if err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint weights: %w", err)
	}
	cp.Weights = weights
	if testMAE.Valid {
		v := testMAE.Float64
		cp.TestMAE = &v
	}
	if testPearson.Valid {
		v := testPearson.Float64
		cp.TestPearson = &v
	}

	return &cp, nil
}

// Count returns the number of saved checkpoints
func (c *CheckpointStore) Count() (int64, error) {
	var count int64
	if err := c.db.sqlDB.QueryRow("SELECT COUNT(*) FROM checkpoints").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count checkpoints: %w", err)
	}
	return count, nil
}
