package store

import (
	"fmt"
)

// EducationStore persists per-district education aggregates
type EducationStore struct {
	db *DB
}

// NewEducationStore creates a new education store
func NewEducationStore(db *DB) *EducationStore {
	return &EducationStore{db: db}
}

// InsertBatch inserts education records in a single transaction
func (e *EducationStore) InsertBatch(records []EducationRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := e.db.BeginTx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO education (state, district, congress, pct_bachelors)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		if _, err := stmt.Exec(rec.State, rec.District, rec.Congress, rec.PctBachelors); err != nil {
			return fmt.Errorf("failed to insert education record %s-%s: %w", rec.State, rec.District, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	return nil
}

// Count returns the number of education records
func (e *EducationStore) Count() (int64, error) {
	var count int64
	if err := e.db.sqlDB.QueryRow("SELECT COUNT(*) FROM education").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count education records: %w", err)
	}
	return count, nil
}

// AnalysisRow is one scored sentence joined with its education record,
// carrying everything the hierarchical analyzer needs.
type AnalysisRow struct {
	SentenceID   int64
	Score        float64
	ModelScore   *float64
	Party        string
	Speaker      string
	PctBachelors float64
}

// JoinScored joins scored sentences with education records on
// (state, district, congress). Sentences without a matching education record
// are excluded and counted, never silently dropped.
func (e *EducationStore) JoinScored() ([]AnalysisRow, int64, error) {
	rows, err := e.db.sqlDB.Query(`
		SELECT s.id, s.norm_score, s.model_score, s.party,
		       s.last_name || ', ' || s.first_name || ' (' || s.state || '-' || s.district || ')',
		       ed.pct_bachelors
		FROM sentences s
		JOIN education ed
		  ON ed.state = s.state AND ed.district = s.district AND ed.congress = s.congress
		WHERE s.norm_score IS NOT NULL
		ORDER BY s.id
	`)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to join sentences with education: %w", err)
	}
	defer rows.Close()

	var joined []AnalysisRow
	for rows.Next() {
		var row AnalysisRow
		var model *float64
		if err := rows.Scan(&row.SentenceID, &row.Score, &model, &row.Party, &row.Speaker, &row.PctBachelors); err != nil {
			return nil, 0, fmt.Errorf("failed to scan analysis row: %w", err)
		}
		row.ModelScore = model
		joined = append(joined, row)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var scored int64
	if err := e.db.sqlDB.QueryRow("SELECT COUNT(*) FROM sentences WHERE norm_score IS NOT NULL").Scan(&scored); err != nil {
		return nil, 0, fmt.Errorf("failed to count scored sentences: %w", err)
	}

	excluded := scored - int64(len(joined))
	return joined, excluded, nil
}
