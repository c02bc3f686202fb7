package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	"go.uber.org/zap"

	"github.com/poliscilab/speechaxis/internal/config"
	"github.com/poliscilab/speechaxis/internal/embedding"
	"github.com/poliscilab/speechaxis/internal/semaxis"
	"github.com/poliscilab/speechaxis/internal/store"
)

// handleAxis implements the axis subcommand
func handleAxis(cfg *config.Config, logger *zap.Logger, args []string) {
	fs := flag.NewFlagSet("axis", flag.ExitOnError)
	var top int
	fs.IntVar(&top, "top", 0, "Print the N highest- and lowest-scoring tokens")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `USAGE:
    speechaxis axis [options]

DESCRIPTION:
    Build the evidence/intuition axis from the seed dictionaries, expand
    both poles over the embedding vocabulary and persist one axis score
    per token. Rebuilding replaces the previous axis entirely.

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

	space, err := loadSpace(db)
	if err != nil {
		logger.Fatal("failed to load embeddings; run `speechaxis embed` first", zap.Error(err))
	}

	result, err := semaxis.Build(space, semaxis.Config{
		EvidenceThreshold:  cfg.Axis.EvidenceThreshold,
		IntuitionThreshold: cfg.Axis.IntuitionThreshold,
		EvidenceSeeds:      cfg.Axis.EvidenceSeeds,
		IntuitionSeeds:     cfg.Axis.IntuitionSeeds,
	}, logger)
	if err != nil {
		logger.Fatal("failed to build axis", zap.Error(err))
	}

	scores := make([]store.TokenScore, len(result.Scores))
	for i, ts := range result.Scores {
		scores[i] = store.TokenScore{
			Token:         ts.Token,
			Score:         ts.Score,
			EvidencePole:  ts.EvidencePole,
			IntuitionPole: ts.IntuitionPole,
		}
	}

	axisStore := store.NewAxisStore(db)
	if err := axisStore.ReplaceAll(scores); err != nil {
		logger.Fatal("failed to store axis scores", zap.Error(err))
	}
	if err := axisStore.SaveVectorArtifact(store.ArtifactAxisVector, result.Axis); err != nil {
		logger.Fatal("failed to store axis vector", zap.Error(err))
	}

	fmt.Printf("Axis built: %d tokens scored\n", len(scores))
	fmt.Printf("Evidence pole:  %6d tokens (%d/%d seeds in vocabulary)\n",
		result.EvidencePoleSize, result.EvidenceSeedsInVocab, len(semaxis.DefaultEvidenceSeeds))
	fmt.Printf("Intuition pole: %6d tokens (%d/%d seeds in vocabulary)\n",
		result.IntuitionPoleSize, result.IntuitionSeedsInVocab, len(semaxis.DefaultIntuitionSeeds))

	if top > 0 {
		printExtremes(result.Scores, top)
	}
}

// loadSpace reads the persisted embedding table back into memory
func loadSpace(db *store.DB) (*embedding.Space, error) {
	var space *embedding.Space
	err := store.NewVectorStore(db).All(func(token string, vector []float32, frequency int64) error {
		if space == nil {
			space = embedding.NewSpace(len(vector))
		}
		return space.Add(token, vector, frequency)
	})
	if err != nil {
		return nil, err
	}
	if space == nil || space.Size() == 0 {
		return nil, fmt.Errorf("no embeddings in the artifact store")
	}
	return space, nil
}

func printExtremes(scores []semaxis.TokenScore, n int) {
	sorted := make([]semaxis.TokenScore, len(scores))
	copy(sorted, scores)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })

	if n > len(sorted) {
		n = len(sorted)
	}
	fmt.Println("\nMost evidence-aligned:")
	for _, ts := range sorted[:n] {
		fmt.Printf("  %-24s %+.4f\n", ts.Token, ts.Score)
	}
	fmt.Println("\nMost intuition-aligned:")
	for i := len(sorted) - n; i < len(sorted); i++ {
		fmt.Printf("  %-24s %+.4f\n", sorted[i].Token, sorted[i].Score)
	}
}
