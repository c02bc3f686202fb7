package internal

import (
	"fmt"
	"os"

	"github.com/poliscilab/speechaxis/internal/config"
)

// LoadConfig reads the YAML configuration from the given path, or from the
// default location when the path is empty
func LoadConfig(configPath string) (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromFile(configPath)
	}
	return config.Load()
}

// PrintConfigExample writes a starter configuration to stderr
func PrintConfigExample() {
	homeDir, _ := os.UserHomeDir()
	configPath := fmt.Sprintf("%s/.speechaxis/config/speechaxis.yaml", homeDir)

	fmt.Fprintf(os.Stderr, `Create a configuration file at %s:

corpus:
  transcript_globs:
    - ~/data/hearings/**/*.csv
  education_path: ~/data/census/district_education.csv

embedding:
  dimensions: 300
  window: 10
  epochs: 20
  min_count: 5

axis:
  evidence_threshold: 0.75
  intuition_threshold: 0.35

regressor:
  model_path: ~/models/encoder/model.onnx
  tokenizer_path: ~/models/encoder/tokenizer.json

validation:
  annotation_path: ~/data/annotations/annotations.csv

Usage:
  1. Create the config file
  2. Run: speechaxis ingest
  3. Continue through embed, axis, score, train, validate, analyze
`, configPath)
}
