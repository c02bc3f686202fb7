package scoring

import "math"

// TFIDF holds corpus-level document frequencies fit over the full sentence
// corpus. Fit once per pipeline run and read-only afterwards.
type TFIDF struct {
	docFreq map[string]int64
	docs    int64
}

// NewTFIDF creates an empty TF-IDF model
func NewTFIDF() *TFIDF {
	return &TFIDF{docFreq: make(map[string]int64)}
}

// Add counts one sentence. A token is counted once per sentence: document
// frequency, not term frequency.
func (m *TFIDF) Add(tokens []string) {
	seen := make(map[string]bool, len(tokens))
	for _, token := range tokens {
		if !seen[token] {
			m.docFreq[token]++
			seen[token] = true
		}
	}
	m.docs++
}

// Docs returns the number of sentences the model was fit on
func (m *TFIDF) Docs() int64 {
	return m.docs
}

// DocFreq returns the number of sentences containing the token
func (m *TFIDF) DocFreq(token string) int64 {
	return m.docFreq[token]
}

// IDF returns the smoothed inverse document frequency:
// log(1 + N/(1+df)). Always positive, so TF-IDF weights never vanish for
// in-vocabulary tokens.
func (m *TFIDF) IDF(token string) float64 {
	return math.Log(1 + float64(m.docs)/(1+float64(m.docFreq[token])))
}

// Weights returns the per-token TF-IDF weight map for one sentence:
// tf (count / sentence length) times idf.
func (m *TFIDF) Weights(tokens []string) map[string]float64 {
	if len(tokens) == 0 {
		return map[string]float64{}
	}

	tf := make(map[string]float64, len(tokens))
	for _, token := range tokens {
		tf[token]++
	}

	n := float64(len(tokens))
	weights := make(map[string]float64, len(tf))
	for token, count := range tf {
		weights[token] = (count / n) * m.IDF(token)
	}
	return weights
}
