package corpus

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/poliscilab/speechaxis/internal/store"
)

// ReadAnnotations parses the human annotation CSV with columns
// {sentence_id, score1, score2, score3}. Scores are ordinal 0-5; range
// checking happens on insert.
func ReadAnnotations(path string) ([]store.Annotation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open annotation file: %w", err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read annotation header: %w", err)
	}
	cols, err := columnIndex(header, []string{"sentence_id", "score1", "score2", "score3"})
	if err != nil {
		return nil, fmt.Errorf("annotation file %s: %w", path, err)
	}

	var annotations []store.Annotation
	line := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("failed to read annotation row %d: %w", line, err)
		}

		id, err := strconv.ParseInt(strings.TrimSpace(record[cols["sentence_id"]]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("annotation row %d: invalid sentence_id: %w", line, err)
		}

		var ann store.Annotation
		ann.SentenceID = id
		for i, col := range []string{"score1", "score2", "score3"} {
			score, err := strconv.Atoi(strings.TrimSpace(record[cols[col]]))
			if err != nil {
				return nil, fmt.Errorf("annotation row %d: invalid %s: %w", line, col, err)
			}
			ann.Scores[i] = score
		}
		annotations = append(annotations, ann)
	}

	return annotations, nil
}
