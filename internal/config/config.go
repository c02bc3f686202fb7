package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the full pipeline configuration
type Config struct {
	Corpus     CorpusConfig     `yaml:"corpus"`
	Database   DatabaseConfig   `yaml:"database"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Axis       AxisConfig       `yaml:"axis"`
	Scoring    ScoringConfig    `yaml:"scoring"`
	Regressor  RegressorConfig  `yaml:"regressor"`
	Validation ValidationConfig `yaml:"validation"`
	Analysis   AnalysisConfig   `yaml:"analysis"`
}

// CorpusConfig holds ingestion configuration
type CorpusConfig struct {
	// Doublestar patterns for transcript CSV files, e.g. "transcripts/**/*.csv"
	TranscriptGlobs []string `yaml:"transcript_globs"`

	// Path to the per-district education CSV
	EducationPath string `yaml:"education_path"`

	// Minimum token length kept by the analyzer
	MinTokenLength int `yaml:"min_token_length,omitempty"`

	// Keep stopwords instead of filtering them
	KeepStopwords bool `yaml:"keep_stopwords,omitempty"`
}

// DatabaseConfig holds artifact store configuration
type DatabaseConfig struct {
	// Path to the SQLite artifact store.
	// If empty, uses ~/.speechaxis/data/speechaxis.db
	Path string `yaml:"path,omitempty"`
}

// EmbeddingConfig holds skip-gram training configuration
type EmbeddingConfig struct {
	Dimensions   int     `yaml:"dimensions"`    // vector dimensionality (300)
	Window       int     `yaml:"window"`        // context window radius (10)
	Epochs       int     `yaml:"epochs"`        // training epochs (20)
	MinCount     int     `yaml:"min_count"`     // vocabulary frequency floor (5)
	Negative     int     `yaml:"negative"`      // negative samples per target (5)
	LearningRate float64 `yaml:"learning_rate"` // initial SGD rate (0.025)
	Subsample    float64 `yaml:"subsample"`     // frequent-token subsample threshold (1e-3)
	Workers      int     `yaml:"workers,omitempty"`
	Seed         int64   `yaml:"seed,omitempty"`
}

// AxisConfig holds SemAxis construction configuration.
// The two expansion thresholds are independent on purpose: expansion is
// asymmetric and produces pole sets of different sizes.
type AxisConfig struct {
	EvidenceThreshold  float64 `yaml:"evidence_threshold"`  // cos > t joins the evidence pole (0.75)
	IntuitionThreshold float64 `yaml:"intuition_threshold"` // cos < t joins the intuition pole (0.35)

	// Optional seed overrides; defaults ship with the semaxis package
	EvidenceSeeds  []string `yaml:"evidence_seeds,omitempty"`
	IntuitionSeeds []string `yaml:"intuition_seeds,omitempty"`
}

// ScoringConfig holds sentence scoring configuration
type ScoringConfig struct {
	Bins      int `yaml:"bins"`                 // equal-width bins over [0,1] (5)
	BatchSize int `yaml:"batch_size,omitempty"` // sentences per write transaction
}

// RegressorConfig holds fine-tuning configuration
type RegressorConfig struct {
	ModelPath     string  `yaml:"model_path"`     // ONNX encoder checkpoint
	TokenizerPath string  `yaml:"tokenizer_path"` // tokenizer.json for the encoder
	OrtLibrary    string  `yaml:"ort_library,omitempty"`
	MaxSeqLen     int     `yaml:"max_seq_len,omitempty"`
	Epochs        int     `yaml:"epochs"`         // head training epochs (3)
	TrainBatch    int     `yaml:"train_batch"`    // 64
	EvalBatch     int     `yaml:"eval_batch"`     // 128
	LearningRate  float64 `yaml:"learning_rate"`  // head SGD rate
	TrainFraction float64 `yaml:"train_fraction"` // 0.70
	ValFraction   float64 `yaml:"val_fraction"`   // 0.15
	Seed          int64   `yaml:"seed,omitempty"`
}

// ValidationConfig holds human-annotation validation configuration
type ValidationConfig struct {
	SampleSize     int     `yaml:"sample_size"`     // 200
	PerBin         int     `yaml:"per_bin"`         // 40
	AlphaThreshold float64 `yaml:"alpha_threshold"` // Krippendorff floor (0.667)
	AnnotationPath string  `yaml:"annotation_path"` // CSV of {sentence_id, score1..3}
	Seed           int64   `yaml:"seed,omitempty"`  // sample draw seed, independent of the regressor
}

// AnalysisConfig holds mixed-effects analysis configuration
type AnalysisConfig struct {
	MaxIterations int     `yaml:"max_iterations,omitempty"` // EM iteration cap
	Tolerance     float64 `yaml:"tolerance,omitempty"`      // EM convergence tolerance
	OutputDir     string  `yaml:"output_dir,omitempty"`     // CSV result tables
}

// Load loads configuration from the default config file
// Default location: ~/.speechaxis/config/speechaxis.yaml
func Load() (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	configPath := filepath.Join(homeDir, ".speechaxis", "config", "speechaxis.yaml")
	return LoadFromFile(configPath)
}

// LoadFromFile loads configuration from a specific file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			homeDir, _ := os.UserHomeDir()
			defaultPath := filepath.Join(homeDir, ".speechaxis", "config", "speechaxis.yaml")
			return nil, &ConfigNotFoundError{
				RequestedPath: path,
				DefaultPath:   defaultPath,
			}
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.applyDefaults(); err != nil {
		return nil, fmt.Errorf("failed to apply defaults: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// ConfigNotFoundError is returned when config file is not found
type ConfigNotFoundError struct {
	RequestedPath string
	DefaultPath   string
}

func (e *ConfigNotFoundError) Error() string {
	return fmt.Sprintf("config file not found at: %s\n\nDefault location: %s\n\nYou can:\n"+
		"  1. Create the config file at the default location\n"+
		"  2. Specify a custom path with -config flag\n"+
		"  3. Run 'speechaxis ingest' once to create a template",
		e.RequestedPath, e.DefaultPath)
}

// IsConfigNotFound checks if error is config not found
func IsConfigNotFound(err error) bool {
	_, ok := err.(*ConfigNotFoundError)
	return ok
}

// expandPath expands ~ and $HOME to the user's home directory
func expandPath(path string) string {
	if strings.HasPrefix(path, "$HOME/") || path == "$HOME" {
		homeDir := os.Getenv("HOME")
		if homeDir == "" {
			var err error
			homeDir, err = os.UserHomeDir()
			if err != nil {
				return path
			}
		}
		if path == "$HOME" {
			return homeDir
		}
		return filepath.Join(homeDir, path[6:])
	}

	if strings.HasPrefix(path, "~/") || path == "~" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		if path == "~" {
			return homeDir
		}
		return filepath.Join(homeDir, path[2:])
	}

	return path
}

// applyDefaults sets default values for missing configuration
func (c *Config) applyDefaults() error {
	if c.Corpus.MinTokenLength == 0 {
		c.Corpus.MinTokenLength = 2
	}
	c.Corpus.EducationPath = expandPath(c.Corpus.EducationPath)
	for i, g := range c.Corpus.TranscriptGlobs {
		c.Corpus.TranscriptGlobs[i] = expandPath(g)
	}

	if c.Database.Path != "" {
		c.Database.Path = expandPath(c.Database.Path)
	}

	if c.Embedding.Dimensions == 0 {
		c.Embedding.Dimensions = 300
	}
	if c.Embedding.Window == 0 {
		c.Embedding.Window = 10
	}
	if c.Embedding.Epochs == 0 {
		c.Embedding.Epochs = 20
	}
	if c.Embedding.MinCount == 0 {
		c.Embedding.MinCount = 5
	}
	if c.Embedding.Negative == 0 {
		c.Embedding.Negative = 5
	}
	if c.Embedding.LearningRate == 0 {
		c.Embedding.LearningRate = 0.025
	}
	if c.Embedding.Subsample == 0 {
		c.Embedding.Subsample = 1e-3
	}
	if c.Embedding.Workers == 0 {
		c.Embedding.Workers = 4
	}
	if c.Embedding.Seed == 0 {
		c.Embedding.Seed = 1
	}

	if c.Axis.EvidenceThreshold == 0 {
		c.Axis.EvidenceThreshold = 0.75
	}
	if c.Axis.IntuitionThreshold == 0 {
		c.Axis.IntuitionThreshold = 0.35
	}

	if c.Scoring.Bins == 0 {
		c.Scoring.Bins = 5
	}
	if c.Scoring.BatchSize == 0 {
		c.Scoring.BatchSize = 5000
	}

	if c.Regressor.MaxSeqLen == 0 {
		c.Regressor.MaxSeqLen = 128
	}
	if c.Regressor.Epochs == 0 {
		c.Regressor.Epochs = 3
	}
	if c.Regressor.TrainBatch == 0 {
		c.Regressor.TrainBatch = 64
	}
	if c.Regressor.EvalBatch == 0 {
		c.Regressor.EvalBatch = 128
	}
	if c.Regressor.LearningRate == 0 {
		c.Regressor.LearningRate = 0.01
	}
	if c.Regressor.TrainFraction == 0 {
		c.Regressor.TrainFraction = 0.70
	}
	if c.Regressor.ValFraction == 0 {
		c.Regressor.ValFraction = 0.15
	}
	if c.Regressor.Seed == 0 {
		c.Regressor.Seed = 1
	}
	c.Regressor.ModelPath = expandPath(c.Regressor.ModelPath)
	c.Regressor.TokenizerPath = expandPath(c.Regressor.TokenizerPath)
	c.Regressor.OrtLibrary = expandPath(c.Regressor.OrtLibrary)

	if c.Validation.SampleSize == 0 {
		c.Validation.SampleSize = 200
	}
	if c.Validation.PerBin == 0 {
		c.Validation.PerBin = 40
	}
	if c.Validation.AlphaThreshold == 0 {
		c.Validation.AlphaThreshold = 0.667
	}
	if c.Validation.Seed == 0 {
		c.Validation.Seed = 1
	}
	c.Validation.AnnotationPath = expandPath(c.Validation.AnnotationPath)

	if c.Analysis.MaxIterations == 0 {
		c.Analysis.MaxIterations = 500
	}
	if c.Analysis.Tolerance == 0 {
		c.Analysis.Tolerance = 1e-7
	}
	if c.Analysis.OutputDir == "" {
		c.Analysis.OutputDir = "results"
	}
	c.Analysis.OutputDir = expandPath(c.Analysis.OutputDir)

	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding dimensions must be positive, got: %d", c.Embedding.Dimensions)
	}
	if c.Embedding.Window <= 0 {
		return fmt.Errorf("embedding window must be positive, got: %d", c.Embedding.Window)
	}
	if c.Embedding.MinCount < 1 {
		return fmt.Errorf("embedding min_count must be at least 1, got: %d", c.Embedding.MinCount)
	}

	if c.Axis.EvidenceThreshold <= -1 || c.Axis.EvidenceThreshold >= 1 {
		return fmt.Errorf("axis evidence_threshold must be in (-1, 1), got: %g", c.Axis.EvidenceThreshold)
	}
	if c.Axis.IntuitionThreshold <= -1 || c.Axis.IntuitionThreshold >= 1 {
		return fmt.Errorf("axis intuition_threshold must be in (-1, 1), got: %g", c.Axis.IntuitionThreshold)
	}

	if c.Scoring.Bins < 2 {
		return fmt.Errorf("scoring bins must be at least 2, got: %d", c.Scoring.Bins)
	}

	frac := c.Regressor.TrainFraction + c.Regressor.ValFraction
	if frac <= 0 || frac >= 1 {
		return fmt.Errorf("regressor train_fraction + val_fraction must be in (0, 1), got: %g", frac)
	}

	if c.Validation.PerBin*c.Scoring.Bins != c.Validation.SampleSize {
		return fmt.Errorf("validation sample_size %d does not equal per_bin %d x bins %d",
			c.Validation.SampleSize, c.Validation.PerBin, c.Scoring.Bins)
	}

	return nil
}

// Save saves the configuration to the default location
func (c *Config) Save() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	configDir := filepath.Join(homeDir, ".speechaxis", "config")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return c.SaveToFile(filepath.Join(configDir, "speechaxis.yaml"))
}

// SaveToFile saves the configuration to a specific file
func (c *Config) SaveToFile(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

const defaultConfigTemplate = `# speechaxis configuration
#
# Copy and edit this file for your environment.
# Default location: $HOME/.speechaxis/config/speechaxis.yaml

corpus:
  transcript_globs:
    - ~/data/hearings/**/*.csv
  education_path: ~/data/census/district_education.csv

database:
  path: ~/.speechaxis/data/speechaxis.db

embedding:
  dimensions: 300
  window: 10
  epochs: 20
  min_count: 5

axis:
  # Independent expansion thresholds; asymmetric pole sizes are expected.
  evidence_threshold: 0.75
  intuition_threshold: 0.35

scoring:
  bins: 5

regressor:
  model_path: ~/models/encoder/model.onnx
  tokenizer_path: ~/models/encoder/tokenizer.json
  epochs: 3
  train_batch: 64
  eval_batch: 128

validation:
  sample_size: 200
  per_bin: 40
  alpha_threshold: 0.667
  annotation_path: ~/data/annotations/annotations.csv

analysis:
  output_dir: results
`

// WriteDefaultTemplate creates a default configuration file if it does not exist.
// It returns true if a file was created, false if it already existed.
func WriteDefaultTemplate(path string) (bool, error) {
	if path == "" {
		return false, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("failed to stat config file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(defaultConfigTemplate), 0644); err != nil {
		return false, fmt.Errorf("failed to write config template: %w", err)
	}

	return true, nil
}
