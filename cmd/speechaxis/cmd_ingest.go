package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/poliscilab/speechaxis/internal/config"
	"github.com/poliscilab/speechaxis/internal/corpus"
	"github.com/poliscilab/speechaxis/internal/progress"
	"github.com/poliscilab/speechaxis/internal/store"
)

// handleIngest implements the ingest subcommand
func handleIngest(cfg *config.Config, logger *zap.Logger, args []string) {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	var skipEducation bool
	fs.BoolVar(&skipEducation, "skip-education", false, "Skip the education CSV")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `USAGE:
    speechaxis ingest [options]

DESCRIPTION:
    Read the transcript CSVs matched by corpus.transcript_globs, segment
    each dialogue turn into sentences, tokenize them and load everything
    into the artifact store together with the district education table.

OPTIONS:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		logger.Fatal("failed to parse arguments", zap.Error(err))
	}

	if len(cfg.Corpus.TranscriptGlobs) == 0 {
		logger.Fatal("no transcript globs configured; set corpus.transcript_globs")
	}

	files, err := corpus.ExpandGlobs(cfg.Corpus.TranscriptGlobs)
	if err != nil {
		logger.Fatal("failed to expand transcript globs", zap.Error(err))
	}
	if len(files) == 0 {
		logger.Fatal("no transcript files matched", zap.Strings("globs", cfg.Corpus.TranscriptGlobs))
	}

	segmenter, err := corpus.NewSegmenter()
	if err != nil {
		logger.Fatal("failed to create sentence segmenter", zap.Error(err))
	}
	analyzer, err := corpus.NewAnalyzer(corpus.AnalyzerOptions{
		MinTokenLength: cfg.Corpus.MinTokenLength,
		KeepStopwords:  cfg.Corpus.KeepStopwords,
	})
	if err != nil {
		logger.Fatal("failed to create analyzer", zap.Error(err))
	}
	reader := corpus.NewReader(segmenter, analyzer, logger)

	db, err := store.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatal("failed to open artifact store", zap.Error(err))
	}
	defer db.Close()
	sentenceStore := store.NewSentenceStore(db)

	reporter := progress.New(progress.DefaultEnabled())
	if reporter != nil {
		reporter.Start("ingesting transcripts", len(files))
	}

	var total int64
	for _, file := range files {
		sentences, err := reader.ReadFile(file)
		if err != nil {
			logger.Fatal("failed to read transcript file", zap.String("file", file), zap.Error(err))
		}
		if err := sentenceStore.InsertBatch(sentences); err != nil {
			logger.Fatal("failed to store sentences", zap.String("file", file), zap.Error(err))
		}
		total += int64(len(sentences))
		if reporter != nil {
			reporter.Increment()
		}
	}
	if reporter != nil {
		reporter.Finish()
	}

	var educationCount int
	if !skipEducation {
		if cfg.Corpus.EducationPath == "" {
			logger.Fatal("no education CSV configured; set corpus.education_path or pass -skip-education")
		}
		records, err := corpus.ReadEducation(cfg.Corpus.EducationPath)
		if err != nil {
			logger.Fatal("failed to read education file", zap.Error(err))
		}
		if err := store.NewEducationStore(db).InsertBatch(records); err != nil {
			logger.Fatal("failed to store education records", zap.Error(err))
		}
		educationCount = len(records)
	}

	logger.Info("ingest complete",
		zap.Int("files", len(files)),
		zap.Int64("sentences", total),
		zap.Int("education_records", educationCount))

	fmt.Printf("Ingested %d sentences from %d files", total, len(files))
	if !skipEducation {
		fmt.Printf(" and %d education records", educationCount)
	}
	fmt.Println()
}
