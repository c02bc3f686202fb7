package corpus

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"

	"github.com/poliscilab/speechaxis/internal/store"
)

// Transcript CSV column names. Files are produced by the external
// transcript-scraping collaborator; the header row is required.
var transcriptColumns = []string{
	"first_name", "last_name", "state", "party", "congress", "district", "dialogue",
}

// Reader ingests transcript CSV files into sentence records
type Reader struct {
	segmenter *Segmenter
	analyzer  *Analyzer
	logger    *zap.Logger
}

// NewReader creates a transcript reader
func NewReader(segmenter *Segmenter, analyzer *Analyzer, logger *zap.Logger) *Reader {
	return &Reader{segmenter: segmenter, analyzer: analyzer, logger: logger}
}

// ExpandGlobs resolves doublestar patterns to a sorted, deduplicated file list
func ExpandGlobs(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string

	for _, pattern := range patterns {
		base, rest := doublestar.SplitPattern(filepath.ToSlash(pattern))
		matches, err := doublestar.Glob(os.DirFS(base), rest)
		if err != nil {
			return nil, fmt.Errorf("invalid transcript pattern %q: %w", pattern, err)
		}
		for _, m := range matches {
			full := filepath.Join(base, filepath.FromSlash(m))
			if !seen[full] {
				seen[full] = true
				files = append(files, full)
			}
		}
	}

	sort.Strings(files)
	return files, nil
}

// ReadFile parses one transcript CSV, segments each dialogue turn into
// sentences and tokenizes them. Rows with missing fields are skipped and
// counted.
func (r *Reader) ReadFile(path string) ([]*store.Sentence, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open transcript file: %w", err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read transcript header: %w", err)
	}
	cols, err := columnIndex(header, transcriptColumns)
	if err != nil {
		return nil, fmt.Errorf("transcript file %s: %w", path, err)
	}

	var sentences []*store.Sentence
	var skipped int
	line := 1

	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("failed to read transcript row %d: %w", line, err)
		}
		if len(record) < len(header) {
			skipped++
			continue
		}

		congress, convErr := strconv.Atoi(strings.TrimSpace(record[cols["congress"]]))
		dialogue := strings.TrimSpace(record[cols["dialogue"]])
		if convErr != nil || dialogue == "" {
			skipped++
			continue
		}

		for _, text := range r.segmenter.Split(dialogue) {
			sentences = append(sentences, &store.Sentence{
				FirstName: strings.TrimSpace(record[cols["first_name"]]),
				LastName:  strings.TrimSpace(record[cols["last_name"]]),
				State:     strings.ToUpper(strings.TrimSpace(record[cols["state"]])),
				District:  strings.TrimSpace(record[cols["district"]]),
				Party:     strings.ToUpper(strings.TrimSpace(record[cols["party"]])),
				Congress:  congress,
				Text:      text,
				Tokens:    r.analyzer.Tokens(text),
			})
		}
	}

	if skipped > 0 {
		r.logger.Warn("skipped malformed transcript rows",
			zap.String("file", path),
			zap.Int("skipped", skipped))
	}

	return sentences, nil
}

// ReadEducation parses the per-district education CSV with columns
// {state, district, congress, pct_bachelors}.
func ReadEducation(path string) ([]store.EducationRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open education file: %w", err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read education header: %w", err)
	}
	cols, err := columnIndex(header, []string{"state", "district", "congress", "pct_bachelors"})
	if err != nil {
		return nil, fmt.Errorf("education file %s: %w", path, err)
	}

	var records []store.EducationRecord
	line := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("failed to read education row %d: %w", line, err)
		}

		congress, err := strconv.Atoi(strings.TrimSpace(record[cols["congress"]]))
		if err != nil {
			return nil, fmt.Errorf("education row %d: invalid congress: %w", line, err)
		}
		pct, err := strconv.ParseFloat(strings.TrimSpace(record[cols["pct_bachelors"]]), 64)
		if err != nil {
			return nil, fmt.Errorf("education row %d: invalid pct_bachelors: %w", line, err)
		}

		records = append(records, store.EducationRecord{
			State:        strings.ToUpper(strings.TrimSpace(record[cols["state"]])),
			District:     strings.TrimSpace(record[cols["district"]]),
			Congress:     congress,
			PctBachelors: pct,
		})
	}

	return records, nil
}

// columnIndex maps required column names to their header positions
func columnIndex(header, required []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}

	for _, name := range required {
		if _, ok := index[name]; !ok {
			return nil, fmt.Errorf("missing required column %q", name)
		}
	}

	return index, nil
}
