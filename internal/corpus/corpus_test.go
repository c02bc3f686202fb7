package corpus

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func newTestAnalyzer(t *testing.T) *Analyzer {
	t.Helper()
	a, err := NewAnalyzer(AnalyzerOptions{MinTokenLength: 2})
	if err != nil {
		t.Fatalf("NewAnalyzer() error = %v", err)
	}
	return a
}

func TestAnalyzer_Tokens(t *testing.T) {
	a := newTestAnalyzer(t)

	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "lowercases and drops stopwords",
			text: "The Committee reviewed the Data",
			want: []string{"committee", "reviewed", "data"},
		},
		{
			name: "drops numeric tokens",
			text: "Section 230 of the bill",
			want: []string{"section", "bill"},
		},
		{
			name: "drops single characters",
			text: "a b evidence",
			want: []string{"evidence"},
		},
		{
			name: "empty input",
			text: "",
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := a.Tokens(tt.text)
			if len(got) != len(tt.want) {
				t.Fatalf("Tokens(%q) = %v, want %v", tt.text, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Tokens(%q)[%d] = %q, want %q", tt.text, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestAnalyzer_KeepStopwords(t *testing.T) {
	a, err := NewAnalyzer(AnalyzerOptions{MinTokenLength: 2, KeepStopwords: true})
	if err != nil {
		t.Fatalf("NewAnalyzer() error = %v", err)
	}
	got := a.Tokens("the data")
	if len(got) != 2 || got[0] != "the" {
		t.Errorf("Tokens() = %v, want [the data]", got)
	}
}

func TestSegmenter_Split(t *testing.T) {
	seg, err := NewSegmenter()
	if err != nil {
		t.Fatalf("NewSegmenter() error = %v", err)
	}

	got := seg.Split("The study is clear. We must act now.")
	if len(got) != 2 {
		t.Fatalf("Split() returned %d sentences, want 2: %v", len(got), got)
	}
	if got[0] != "The study is clear." {
		t.Errorf("Split()[0] = %q", got[0])
	}

	if got := seg.Split("   "); len(got) != 0 {
		t.Errorf("Split(blank) = %v, want empty", got)
	}
}

func TestReader_ReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hearing.csv")
	content := `first_name,last_name,state,party,congress,district,dialogue
Jane,Doe,ca,d,117,12,"The data is clear. We should pass this bill."
John,Roe,TX,R,not-a-number,3,"Broken row."
John,Roe,TX
John,Roe,TX,R,117,3,""
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test csv: %v", err)
	}

	seg, err := NewSegmenter()
	if err != nil {
		t.Fatalf("NewSegmenter() error = %v", err)
	}
	reader := NewReader(seg, newTestAnalyzer(t), zap.NewNop())

	sentences, err := reader.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}

	// One valid row with two sentences; the malformed, short and empty rows
	// are skipped.
	if len(sentences) != 2 {
		t.Fatalf("ReadFile() returned %d sentences, want 2", len(sentences))
	}
	first := sentences[0]
	if first.State != "CA" || first.Party != "D" || first.Congress != 117 {
		t.Errorf("normalization mismatch: %+v", first)
	}
	if len(first.Tokens) == 0 {
		t.Error("ReadFile() produced no tokens for first sentence")
	}
}

func TestReader_ReadFile_MissingColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.csv")
	if err := os.WriteFile(path, []byte("first_name,last_name\nJane,Doe\n"), 0644); err != nil {
		t.Fatalf("failed to write test csv: %v", err)
	}

	seg, err := NewSegmenter()
	if err != nil {
		t.Fatalf("NewSegmenter() error = %v", err)
	}
	reader := NewReader(seg, newTestAnalyzer(t), zap.NewNop())

	if _, err := reader.ReadFile(path); err == nil {
		t.Error("ReadFile() expected error for missing columns, got nil")
	}
}

func TestReadEducation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "education.csv")
	content := `state,district,congress,pct_bachelors
CA,12,117,54.2
TX,3,117,38.9
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test csv: %v", err)
	}

	records, err := ReadEducation(path)
	if err != nil {
		t.Fatalf("ReadEducation() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("ReadEducation() returned %d records, want 2", len(records))
	}
	if records[0].State != "CA" || records[0].PctBachelors != 54.2 {
		t.Errorf("ReadEducation()[0] = %+v", records[0])
	}
}

func TestExpandGlobs(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "hearings", "117")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"a.csv", "b.csv", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(sub, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	files, err := ExpandGlobs([]string{filepath.Join(dir, "hearings", "**", "*.csv")})
	if err != nil {
		t.Fatalf("ExpandGlobs() error = %v", err)
	}
	if len(files) != 2 {
		t.Errorf("ExpandGlobs() returned %d files, want 2: %v", len(files), files)
	}
}
