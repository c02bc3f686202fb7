package store

import (
	"fmt"
)

// AnnotationStore persists human annotation records.
// Annotations are validation-only input; nothing in the training stages
// reads this table.
type AnnotationStore struct {
	db *DB
}

// NewAnnotationStore creates a new annotation store
func NewAnnotationStore(db *DB) *AnnotationStore {
	return &AnnotationStore{db: db}
}

// InsertBatch inserts annotations in a single transaction
func (a *AnnotationStore) InsertBatch(annotations []Annotation) error {
	if len(annotations) == 0 {
		return nil
	}

	tx, err := a.db.BeginTx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO annotations (sentence_id, score1, score2, score3)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, ann := range annotations {
		for _, score := range ann.Scores {
			if score < 0 || score > 5 {
				return fmt.Errorf("annotation score out of ordinal range for sentence %d: %d", ann.SentenceID, score)
			}
		}
		if _, err := stmt.Exec(ann.SentenceID, ann.Scores[0], ann.Scores[1], ann.Scores[2]); err != nil {
			return fmt.Errorf("failed to insert annotation for sentence %d: %w", ann.SentenceID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	return nil
}

// All returns every annotation record
func (a *AnnotationStore) All() ([]Annotation, error) {
	rows, err := a.db.sqlDB.Query("SELECT sentence_id, score1, score2, score3 FROM annotations ORDER BY sentence_id")
	if err != nil {
		return nil, fmt.Errorf("failed to query annotations: %w", err)
	}
	defer rows.Close()

	var annotations []Annotation
	for rows.Next() {
		var ann Annotation
		if err := rows.Scan(&ann.SentenceID, &ann.Scores[0], &ann.Scores[1], &ann.Scores[2]); err != nil {
			return nil, fmt.Errorf("failed to scan annotation: %w", err)
		}
		annotations = append(annotations, ann)
	}

	return annotations, rows.Err()
}

// Count returns the number of annotated sentences
func (a *AnnotationStore) Count() (int64, error) {
	var count int64
	if err := a.db.sqlDB.QueryRow("SELECT COUNT(*) FROM annotations").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count annotations: %w", err)
	}
	return count, nil
}
