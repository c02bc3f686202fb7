package internal

import (
	"fmt"
	"os"
)

const Version = "0.3.1"

// PrintUsage writes the top-level usage text to stderr
func PrintUsage() {
	fmt.Fprintf(os.Stderr, `speechaxis - Evidence vs. Intuition Scoring for Congressional Speech

Version: %s

USAGE:
    speechaxis [global options] <command> [command options]

GLOBAL OPTIONS:
    -config <path>
        Path to config file (default: ~/.speechaxis/config/speechaxis.yaml)

    -db <path>
        Override artifact store path

    -v, -version
        Show version information

    -h, -help
        Show this help message

COMMANDS:
    ingest
        Load transcript and education CSVs into the artifact store

    embed
        Train skip-gram embeddings over the tokenized corpus

    axis
        Build the evidence/intuition axis and score every vocabulary token

    score
        Score, normalize and bin every sentence

    train
        Split the corpus, fine-tune the regression head and score with it

    validate
        Compare both scoring systems against human annotations

    analyze
        Fit the mixed-effects models and write result tables

    stats
        Show artifact store statistics

The stages run in the order listed; each reads the previous stage's output
from the artifact store.

EXAMPLES:
    # Load the corpus
    speechaxis ingest

    # Train embeddings and build the axis
    speechaxis embed
    speechaxis axis

    # Score every sentence
    speechaxis score

    # Fine-tune and apply the regression model
    speechaxis train

    # Draw an annotation sample, then validate once annotations exist
    speechaxis validate -sample sample.csv
    speechaxis validate

    # Final analysis tables
    speechaxis analyze -output results/

For detailed help on each command, use:
    speechaxis <command> -help
`, Version)
}
