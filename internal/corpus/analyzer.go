package corpus

import (
	"fmt"
	"unicode"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/analysis/token/length"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/token/stop"
	tokenizer "github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
)

// Analyzer normalizes sentence text into the token stream shared by the
// embedding trainer and the sentence scorer. Both stages must see identical
// tokens, so there is exactly one analyzer per pipeline run.
type Analyzer struct {
	chain *analysis.DefaultAnalyzer
}

// AnalyzerOptions controls token normalization
type AnalyzerOptions struct {
	MinTokenLength int
	KeepStopwords  bool
}

// NewAnalyzer builds the token analysis chain:
// unicode tokenizer -> lowercase -> English stopword removal -> length filter.
func NewAnalyzer(opts AnalyzerOptions) (*Analyzer, error) {
	if opts.MinTokenLength < 1 {
		opts.MinTokenLength = 1
	}

	filters := []analysis.TokenFilter{
		lowercase.NewLowerCaseFilter(),
	}

	if !opts.KeepStopwords {
		stopMap := analysis.NewTokenMap()
		if err := stopMap.LoadBytes(en.EnglishStopWords); err != nil {
			return nil, fmt.Errorf("failed to load stopword list: %w", err)
		}
		filters = append(filters, stop.NewStopTokensFilter(stopMap))
	}

	filters = append(filters, length.NewLengthFilter(opts.MinTokenLength, 40))

	return &Analyzer{
		chain: &analysis.DefaultAnalyzer{
			Tokenizer:    tokenizer.NewUnicodeTokenizer(),
			TokenFilters: filters,
		},
	}, nil
}

// Tokens returns the normalized token stream for a sentence.
// Purely numeric tokens are dropped; they carry no axis signal and bloat
// the embedding vocabulary with bill and section numbers.
func (a *Analyzer) Tokens(text string) []string {
	stream := a.chain.Analyze([]byte(text))
	tokens := make([]string, 0, len(stream))
	for _, tok := range stream {
		term := string(tok.Term)
		if isNumeric(term) {
			continue
		}
		tokens = append(tokens, term)
	}
	return tokens
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return len(s) > 0
}
