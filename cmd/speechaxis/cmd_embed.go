package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/poliscilab/speechaxis/internal/config"
	"github.com/poliscilab/speechaxis/internal/embedding"
	"github.com/poliscilab/speechaxis/internal/progress"
	"github.com/poliscilab/speechaxis/internal/store"
)

// handleEmbed implements the embed subcommand
func handleEmbed(cfg *config.Config, logger *zap.Logger, args []string) {
	fs := flag.NewFlagSet("embed", flag.ExitOnError)
	var workers int
	fs.IntVar(&workers, "workers", cfg.Embedding.Workers, "Training worker goroutines")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `USAGE:
    speechaxis embed [options]

DESCRIPTION:
    Train skip-gram embeddings over every tokenized sentence in the
    artifact store and persist the vocabulary vectors. Tokens below the
    min_count frequency floor receive no vector.

OPTIONS:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
EXAMPLES:
    # Deterministic single-worker run
    speechaxis embed -workers 1
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

	var sentences [][]string
	err = store.NewSentenceStore(db).IterateTokens(func(_ int64, tokens []string) error {
		if len(tokens) > 0 {
			sentences = append(sentences, tokens)
		}
		return nil
	})
	if err != nil {
		logger.Fatal("failed to load tokenized corpus", zap.Error(err))
	}
	if len(sentences) == 0 {
		logger.Fatal("no tokenized sentences in the artifact store; run `speechaxis ingest` first")
	}

	trainer := embedding.NewTrainer(embedding.TrainerConfig{
		Dimensions:   cfg.Embedding.Dimensions,
		Window:       cfg.Embedding.Window,
		Epochs:       cfg.Embedding.Epochs,
		MinCount:     cfg.Embedding.MinCount,
		Negative:     cfg.Embedding.Negative,
		LearningRate: cfg.Embedding.LearningRate,
		Subsample:    cfg.Embedding.Subsample,
		Workers:      workers,
		Seed:         cfg.Embedding.Seed,
	}, logger, progress.New(progress.DefaultEnabled()))

	space, err := trainer.Train(context.Background(), sentences)
	if err != nil {
		logger.Fatal("embedding training failed", zap.Error(err))
	}

	tokens := space.Tokens()
	vectors := make([][]float32, len(tokens))
	frequencies := make([]int64, len(tokens))
	for i, token := range tokens {
		vec, _ := space.Vector(token)
		vectors[i] = vec
		frequencies[i] = space.Frequency(token)
	}
	if err := store.NewVectorStore(db).InsertBatch(tokens, vectors, frequencies); err != nil {
		logger.Fatal("failed to store embeddings", zap.Error(err))
	}

	logger.Info("embedding training complete",
		zap.Int("vocabulary", space.Size()),
		zap.Int("dimensions", space.Dim()),
		zap.Int("sentences", len(sentences)))

	fmt.Printf("Trained %d-dimensional vectors for %d tokens over %d sentences\n",
		space.Dim(), space.Size(), len(sentences))
}
