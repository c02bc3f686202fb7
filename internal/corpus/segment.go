package corpus

import (
	"fmt"
	"strings"

	"gopkg.in/neurosnap/sentences.v1"
	"gopkg.in/neurosnap/sentences.v1/english"
)

// Segmenter splits a dialogue turn into sentences using the punkt model.
type Segmenter struct {
	tokenizer *sentences.DefaultSentenceTokenizer
}

// NewSegmenter loads the English punkt training data
func NewSegmenter() (*Segmenter, error) {
	tok, err := english.NewSentenceTokenizer(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load sentence tokenizer: %w", err)
	}
	return &Segmenter{tokenizer: tok}, nil
}

// Split returns the trimmed, non-empty sentences of a dialogue turn
func (s *Segmenter) Split(text string) []string {
	raw := s.tokenizer.Tokenize(text)
	out := make([]string, 0, len(raw))
	for _, sent := range raw {
		trimmed := strings.TrimSpace(sent.Text)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}
	return out
}
