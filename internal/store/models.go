package store

import "strings"

// Split labels for the regression model stages
const (
	SplitTrain = "train"
	SplitVal   = "val"
	SplitTest  = "test"
)

// Sentence is one transcript sentence with its accumulated pipeline fields.
// Score, bin and split fields are nil until the corresponding stage has run.
type Sentence struct {
	ID        int64
	FirstName string
	LastName  string
	State     string
	District  string
	Party     string
	Congress  int
	Text      string
	Tokens    []string

	RawScore   *float64
	NormScore  *float64
	Bin        *int
	Split      string
	ModelScore *float64
}

// Speaker returns the representative identity key used for grouping.
func (s *Sentence) Speaker() string {
	return s.LastName + ", " + s.FirstName + " (" + s.State + "-" + s.District + ")"
}

// EducationRecord is one district-session education aggregate.
type EducationRecord struct {
	State        string
	District     string
	Congress     int
	PctBachelors float64
}

// Annotation holds three independent ordinal human scores for one sentence.
type Annotation struct {
	SentenceID int64
	Scores     [3]int
}

// Mean returns the consensus score on the annotators' 0-5 scale.
func (a *Annotation) Mean() float64 {
	return float64(a.Scores[0]+a.Scores[1]+a.Scores[2]) / 3
}

// Checkpoint is a trained regression head together with its evaluation.
type Checkpoint struct {
	ID           int64
	EncoderModel string
	Weights      []float32
	Bias         float64
	Dimension    int
	ValMAE       float64
	TestMAE      *float64
	TestPearson  *float64
}

func joinTokens(tokens []string) string {
	return strings.Join(tokens, " ")
}

func splitTokens(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Fields(s)
}
