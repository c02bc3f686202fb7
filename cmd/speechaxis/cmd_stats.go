package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/poliscilab/speechaxis/internal/config"
	"github.com/poliscilab/speechaxis/internal/store"
)

// handleStats implements the stats subcommand
func handleStats(cfg *config.Config, logger *zap.Logger, args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	var jsonOutput bool
	fs.BoolVar(&jsonOutput, "json", false, "Output as JSON")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `USAGE:
    speechaxis stats [options]

DESCRIPTION:
    Show artifact store statistics for every pipeline stage.

OPTIONS:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		logger.Fatal("failed to parse arguments", zap.Error(err))
	}

	db, err := store.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatal("failed to open artifact store", zap.Error(err))
	}
	defer db.Close()

	stats, err := db.Stats()
	if err != nil {
		logger.Fatal("failed to read statistics", zap.Error(err))
	}

	if jsonOutput {
		out := map[string]interface{}{
			"sentences":   stats.SentenceCount,
			"scored":      stats.ScoredCount,
			"vocabulary":  stats.VocabularyCount,
			"axis_scores": stats.AxisScoreCount,
			"education":   stats.EducationCount,
			"annotations": stats.AnnotationCount,
			"checkpoints": stats.CheckpointCount,
			"size_bytes":  stats.SizeBytes,
		}
		jsonData, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(jsonData))
		return
	}

	fmt.Println("Artifact Store Statistics")
	fmt.Println()
	fmt.Printf("Sentences:    %10d\n", stats.SentenceCount)
	fmt.Printf("Scored:       %10d\n", stats.ScoredCount)
	fmt.Printf("Vocabulary:   %10d\n", stats.VocabularyCount)
	fmt.Printf("Axis scores:  %10d\n", stats.AxisScoreCount)
	fmt.Printf("Education:    %10d\n", stats.EducationCount)
	fmt.Printf("Annotations:  %10d\n", stats.AnnotationCount)
	fmt.Printf("Checkpoints:  %10d\n", stats.CheckpointCount)
	fmt.Printf("Size:         %10d bytes\n", stats.SizeBytes)
}
