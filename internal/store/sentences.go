package store

import (
	"database/sql"
	"fmt"
)

// SentenceStore provides sentence persistence and stage-boundary queries
type SentenceStore struct {
	db *DB
}

// NewSentenceStore creates a new sentence store
func NewSentenceStore(db *DB) *SentenceStore {
	return &SentenceStore{db: db}
}

// InsertBatch inserts sentences in a single transaction and assigns IDs
func (s *SentenceStore) InsertBatch(sentences []*Sentence) error {
	if len(sentences) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO sentences (first_name, last_name, state, district, party, congress, text, tokens)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, sent := range sentences {
		res, err := stmt.Exec(sent.FirstName, sent.LastName, sent.State, sent.District,
			sent.Party, sent.Congress, sent.Text, joinTokens(sent.Tokens))
		if err != nil {
			return fmt.Errorf("failed to insert sentence: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get sentence id: %w", err)
		}
		sent.ID = id
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	return nil
}

// Count returns the total number of sentences
func (s *SentenceStore) Count() (int64, error) {
	var count int64
	if err := s.db.sqlDB.QueryRow("SELECT COUNT(*) FROM sentences").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count sentences: %w", err)
	}
	return count, nil
}

// IterateTokens streams (id, tokens) for every sentence in insertion order.
// Used by the embedding trainer and the TF-IDF fit, which never need the
// full records in memory.
func (s *SentenceStore) IterateTokens(fn func(id int64, tokens []string) error) error {
	rows, err := s.db.sqlDB.Query("SELECT id, tokens FROM sentences ORDER BY id")
	if err != nil {
		return fmt.Errorf("failed to query sentences: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var tokens string
		if err := rows.Scan(&id, &tokens); err != nil {
			return fmt.Errorf("failed to scan sentence: %w", err)
		}
		if err := fn(id, splitTokens(tokens)); err != nil {
			return err
		}
	}

	return rows.Err()
}

// UpdateRawScores writes raw axis scores for a batch of sentence IDs
func (s *SentenceStore) UpdateRawScores(ids []int64, scores []float64) error {
	if len(ids) != len(scores) {
		return fmt.Errorf("ids and scores length mismatch: %d vs %d", len(ids), len(scores))
	}
	if len(ids) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare("UPDATE sentences SET raw_score = ? WHERE id = ?")
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i, id := range ids {
		if _, err := stmt.Exec(scores[i], id); err != nil {
			return fmt.Errorf("failed to update score for sentence %d: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	return nil
}

// RawScoreBounds returns the (min, max) of raw scores over scored sentences
func (s *SentenceStore) RawScoreBounds() (float64, float64, error) {
	var min, max sql.NullFloat64
	err := s.db.sqlDB.QueryRow(
		"SELECT MIN(raw_score), MAX(raw_score) FROM sentences WHERE raw_score IS NOT NULL",
	).Scan(&min, &max)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to query score bounds: %w", err)
	}
	if !min.Valid || !max.Valid {
		return 0, 0, fmt.Errorf("no scored sentences")
	}
	return min.Float64, max.Float64, nil
}

// ApplyNormalization writes norm_score and bin for every scored sentence.
// binFn maps a normalized score to its bin label.
func (s *SentenceStore) ApplyNormalization(normFn func(float64) float64, binFn func(float64) int) error {
	rows, err := s.db.sqlDB.Query("SELECT id, raw_score FROM sentences WHERE raw_score IS NOT NULL")
	if err != nil {
		return fmt.Errorf("failed to query raw scores: %w", err)
	}

	type update struct {
		id   int64
		norm float64
		bin  int
	}
	var updates []update
	for rows.Next() {
		var id int64
		var raw float64
		if err := rows.Scan(&id, &raw); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan raw score: %w", err)
		}
		norm := normFn(raw)
		updates = append(updates, update{id: id, norm: norm, bin: binFn(norm)})
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("error iterating raw scores: %w", err)
	}
	rows.Close()

	tx, err := s.db.BeginTx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare("UPDATE sentences SET norm_score = ?, bin = ? WHERE id = ?")
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, u := range updates {
		if _, err := stmt.Exec(u.norm, u.bin, u.id); err != nil {
			return fmt.Errorf("failed to update sentence %d: %w", u.id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	return nil
}

// BinCounts returns the number of scored sentences per bin
func (s *SentenceStore) BinCounts() (map[int]int64, error) {
	rows, err := s.db.sqlDB.Query("SELECT bin, COUNT(*) FROM sentences WHERE bin IS NOT NULL GROUP BY bin")
	if err != nil {
		return nil, fmt.Errorf("failed to query bin counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[int]int64)
	for rows.Next() {
		var bin int
		var count int64
		if err := rows.Scan(&bin, &count); err != nil {
			return nil, fmt.Errorf("failed to scan bin count: %w", err)
		}
		counts[bin] = count
	}

	return counts, rows.Err()
}

// ScoredIDsByBin returns the IDs of scored sentences grouped by bin label
func (s *SentenceStore) ScoredIDsByBin() (map[int][]int64, error) {
	rows, err := s.db.sqlDB.Query("SELECT id, bin FROM sentences WHERE bin IS NOT NULL ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query scored sentences: %w", err)
	}
	defer rows.Close()

	byBin := make(map[int][]int64)
	for rows.Next() {
		var id int64
		var bin int
		if err := rows.Scan(&id, &bin); err != nil {
			return nil, fmt.Errorf("failed to scan sentence: %w", err)
		}
		byBin[bin] = append(byBin[bin], id)
	}

	return byBin, rows.Err()
}

// AssignSplits writes split labels for the given sentence IDs
func (s *SentenceStore) AssignSplits(splits map[int64]string) error {
	if len(splits) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare("UPDATE sentences SET split = ? WHERE id = ?")
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for id, split := range splits {
		if _, err := stmt.Exec(split, id); err != nil {
			return fmt.Errorf("failed to assign split for sentence %d: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	return nil
}

// GetBySplit returns scored sentences belonging to a split
func (s *SentenceStore) GetBySplit(split string) ([]*Sentence, error) {
	rows, err := s.db.sqlDB.Query(`
		SELECT id, first_name, last_name, state, district, party, congress, text, tokens,
		       raw_score, norm_score, bin, split, model_score
		FROM sentences WHERE split = ? ORDER BY id
	`, split)
	if err != nil {
		return nil, fmt.Errorf("failed to query split %q: %w", split, err)
	}
	defer rows.Close()

	return scanSentences(rows)
}

// GetByIDs returns the sentences with the given IDs
func (s *SentenceStore) GetByIDs(ids []int64) ([]*Sentence, error) {
	sentences := make([]*Sentence, 0, len(ids))
	stmt, err := s.db.sqlDB.Prepare(`
		SELECT id, first_name, last_name, state, district, party, congress, text, tokens,
		       raw_score, norm_score, bin, split, model_score
		FROM sentences WHERE id = ?
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, id := range ids {
		rows, err := stmt.Query(id)
		if err != nil {
			return nil, fmt.Errorf("failed to query sentence %d: %w", id, err)
		}
		batch, err := scanSentences(rows)
		rows.Close()
		if err != nil {
			return nil, err
		}
		if len(batch) == 0 {
			return nil, fmt.Errorf("sentence not found: %d", id)
		}
		sentences = append(sentences, batch[0])
	}

	return sentences, nil
}

// UpdateModelScores writes regression model predictions for a batch of IDs
func (s *SentenceStore) UpdateModelScores(ids []int64, scores []float64) error {
	if len(ids) != len(scores) {
		return fmt.Errorf("ids and scores length mismatch: %d vs %d", len(ids), len(scores))
	}
	if len(ids) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare("UPDATE sentences SET model_score = ? WHERE id = ?")
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i, id := range ids {
		if _, err := stmt.Exec(scores[i], id); err != nil {
			return fmt.Errorf("failed to update model score for sentence %d: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	return nil
}

func scanSentences(rows *sql.Rows) ([]*Sentence, error) {
	var sentences []*Sentence
	for rows.Next() {
		var sent Sentence
		var tokens string
		var raw, norm, model sql.NullFloat64
		var bin sql.NullInt64
		var split sql.NullString

		if err := rows.Scan(&sent.ID, &sent.FirstName, &sent.LastName, &sent.State,
			&sent.District, &sent.Party, &sent.Congress, &sent.Text, &tokens,
			&raw, &norm, &bin, &split, &model); err != nil {
			return nil, fmt.Errorf("failed to scan sentence: %w", err)
		}

		sent.Tokens = splitTokens(tokens)
		if raw.Valid {
			v := raw.Float64
			sent.RawScore = &v
		}
		if norm.Valid {
			v := norm.Float64
			sent.NormScore = &v
		}
		if bin.Valid {
			v := int(bin.Int64)
			sent.Bin = &v
		}
		if split.Valid {
			sent.Split = split.String
		}
		if model.Valid {
			v := model.Float64
			sent.ModelScore = &v
		}

		sentences = append(sentences, &sent)
	}

	return sentences, rows.Err()
}
