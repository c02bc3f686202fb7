package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"

	"go.uber.org/zap"

	"github.com/poliscilab/speechaxis/internal/config"
	"github.com/poliscilab/speechaxis/internal/progress"
	"github.com/poliscilab/speechaxis/internal/scoring"
	"github.com/poliscilab/speechaxis/internal/store"
)

// handleScore implements the score subcommand
func handleScore(cfg *config.Config, logger *zap.Logger, args []string) {
	fs := flag.NewFlagSet("score", flag.ExitOnError)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `USAGE:
    speechaxis score

DESCRIPTION:
    Fit TF-IDF weights over the full corpus, score every sentence as the
    TF-IDF weighted average of its tokens' axis scores, then min-max
    normalize to [0,1] and assign equal-width bins. Sentences with no
    in-vocabulary token are dropped and counted; they are never scored
    as zero.
`)
	}

	if err := fs.Parse(args); err != nil {
		logger.Fatal("failed to parse arguments", zap.Error(err))
	}

	db, err := store.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatal("failed to open artifact store", zap.Error(err))
	}
	defer db.Close()

	axisScores, err := store.NewAxisStore(db).AllScores()
	if err != nil {
		logger.Fatal("failed to load axis scores", zap.Error(err))
	}
	if len(axisScores) == 0 {
		logger.Fatal("no axis scores in the artifact store; run `speechaxis axis` first")
	}

	sentenceStore := store.NewSentenceStore(db)
	total, err := sentenceStore.Count()
	if err != nil {
		logger.Fatal("failed to count sentences", zap.Error(err))
	}

	reporter := progress.New(progress.DefaultEnabled())

	// First pass: fit corpus-level TF-IDF
	tfidf := scoring.NewTFIDF()
	if reporter != nil {
		reporter.Start("fitting TF-IDF", int(total))
	}
	err = sentenceStore.IterateTokens(func(_ int64, tokens []string) error {
		tfidf.Add(tokens)
		if reporter != nil {
			reporter.Increment()
		}
		return nil
	})
	if reporter != nil {
		reporter.Finish()
	}
	if err != nil {
		logger.Fatal("failed to fit TF-IDF", zap.Error(err))
	}

	// Second pass: score sentences, flushing in batches
	scorer := scoring.NewScorer(tfidf, axisScores)
	batchSize := cfg.Scoring.BatchSize
	var ids []int64
	var scores []float64
	var scored, dropped int64

	if reporter != nil {
		reporter.Start("scoring sentences", int(total))
	}
	err = sentenceStore.IterateTokens(func(id int64, tokens []string) error {
		if reporter != nil {
			reporter.Increment()
		}
		score, err := scorer.Score(tokens)
		if err != nil {
			if errors.Is(err, scoring.ErrNoVocabulary) {
				dropped++
				return nil
			}
			return err
		}
		ids = append(ids, id)
		scores = append(scores, score)
		scored++
		if len(ids) >= batchSize {
			if err := sentenceStore.UpdateRawScores(ids, scores); err != nil {
				return err
			}
			ids = ids[:0]
			scores = scores[:0]
		}
		return nil
	})
	if reporter != nil {
		reporter.Finish()
	}
	if err != nil {
		logger.Fatal("failed to score sentences", zap.Error(err))
	}
	if err := sentenceStore.UpdateRawScores(ids, scores); err != nil {
		logger.Fatal("failed to store scores", zap.Error(err))
	}

	if scored == 0 {
		logger.Fatal("no sentence has any in-vocabulary token")
	}

	// Normalize and bin with corpus-wide bounds; bounds are persisted so the
	// later stages can map between raw and normalized scores
	min, max, err := sentenceStore.RawScoreBounds()
	if err != nil {
		logger.Fatal("failed to read score bounds", zap.Error(err))
	}
	normalizer, err := scoring.NewMinMax(min, max)
	if err != nil {
		logger.Fatal("cannot normalize scores", zap.Error(err))
	}
	if err := store.NewAxisStore(db).SaveScalarPair(store.ArtifactScoreRange, min, max); err != nil {
		logger.Fatal("failed to store score range", zap.Error(err))
	}

	bins := cfg.Scoring.Bins
	err = sentenceStore.ApplyNormalization(normalizer.Normalize, func(norm float64) int {
		return scoring.Bin(norm, bins)
	})
	if err != nil {
		logger.Fatal("failed to normalize scores", zap.Error(err))
	}

	logger.Info("sentence scoring complete",
		zap.Int64("scored", scored),
		zap.Int64("dropped_no_vocabulary", dropped),
		zap.Float64("raw_min", min),
		zap.Float64("raw_max", max))

	binCounts, err := sentenceStore.BinCounts()
	if err != nil {
		logger.Fatal("failed to read bin counts", zap.Error(err))
	}

	fmt.Printf("Scored %d sentences (%d dropped with no in-vocabulary tokens)\n", scored, dropped)
	fmt.Printf("Raw score range: [%.4f, %.4f]\n\n", min, max)
	fmt.Println("Bin distribution:")
	binLabels := make([]int, 0, len(binCounts))
	for bin := range binCounts {
		binLabels = append(binLabels, bin)
	}
	sort.Ints(binLabels)
	for _, bin := range binLabels {
		lo := float64(bin) / float64(bins)
		hi := float64(bin+1) / float64(bins)
		fmt.Printf("  [%.1f, %.1f): %8d\n", lo, hi, binCounts[bin])
	}
}
