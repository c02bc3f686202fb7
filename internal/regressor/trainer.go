package regressor

import (
	"context"
	"fmt"
	"math/rand"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/poliscilab/speechaxis/internal/progress"
	"github.com/poliscilab/speechaxis/internal/store"
)

// Config holds fine-tuning parameters for the regression head
type Config struct {
	Epochs       int
	TrainBatch   int
	EvalBatch    int
	LearningRate float64
	Seed         int64
}

// Result is a trained head with its evaluation on the held-out test split.
// Test metrics compare against the normalized axis scores the head was
// trained to predict; human labels are reserved for the validation stage.
type Result struct {
	Head            *Head
	Dim             int
	ValMAE          float64
	TestMAE         float64
	TestPearson     float64
	EpochsCompleted int
	BestEpoch       int
}

// Trainer fine-tunes the regression head on frozen encoder embeddings
type Trainer struct {
	cfg      Config
	logger   *zap.Logger
	reporter progress.Reporter
}

// NewTrainer creates a trainer
func NewTrainer(cfg Config, logger *zap.Logger, reporter progress.Reporter) *Trainer {
	return &Trainer{cfg: cfg, logger: logger, reporter: reporter}
}

// Train embeds the three splits, optimizes the head on the train split, and
// selects the epoch with the best validation MAE. The test split is touched
// exactly once, for the final evaluation.
func (t *Trainer) Train(ctx context.Context, enc Encoder, train, val, test []*store.Sentence) (*Result, error) {
	trainEmb, trainTargets, err := t.embedSplit(ctx, enc, train, "embedding train split")
	if err != nil {
		return nil, err
	}
	valEmb, valTargets, err := t.embedSplit(ctx, enc, val, "embedding val split")
	if err != nil {
		return nil, err
	}
	testEmb, testTargets, err := t.embedSplit(ctx, enc, test, "embedding test split")
	if err != nil {
		return nil, err
	}

	dim := len(trainEmb[0])
	head := NewHead(dim)
	best := head.Clone()
	bestMAE := 0.0
	bestEpoch := 0
	rng := rand.New(rand.NewSource(t.cfg.Seed))

	if bestMAE, err = head.MAE(valEmb, valTargets); err != nil {
		return nil, err
	}

	for epoch := 1; epoch <= t.cfg.Epochs; epoch++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		head.trainEpoch(trainEmb, trainTargets, t.cfg.TrainBatch, t.cfg.LearningRate, rng)

		valMAE, err := head.MAE(valEmb, valTargets)
		if err != nil {
			return nil, err
		}
		t.logger.Info("head training epoch complete",
			zap.Int("epoch", epoch),
			zap.Float64("val_mae", valMAE))

		if valMAE < bestMAE {
			bestMAE = valMAE
			best = head.Clone()
			bestEpoch = epoch
		}
	}

	testMAE, err := best.MAE(testEmb, testTargets)
	if err != nil {
		return nil, err
	}

	predictions := make([]float64, len(testEmb))
	for i, emb := range testEmb {
		predictions[i] = best.Predict(emb)
	}
	testPearson := stat.Correlation(predictions, testTargets, nil)

	t.logger.Info("head training complete",
		zap.Int("best_epoch", bestEpoch),
		zap.Float64("val_mae", bestMAE),
		zap.Float64("test_mae", testMAE),
		zap.Float64("test_pearson", testPearson))

	return &Result{
		Head:            best,
		Dim:             dim,
		ValMAE:          bestMAE,
		TestMAE:         testMAE,
		TestPearson:     testPearson,
		EpochsCompleted: t.cfg.Epochs,
		BestEpoch:       bestEpoch,
	}, nil
}

// embedSplit encodes one split in eval-sized batches and collects targets
func (t *Trainer) embedSplit(ctx context.Context, enc Encoder, sentences []*store.Sentence, desc string) ([][]float32, []float64, error) {
	if len(sentences) == 0 {
		return nil, nil, fmt.Errorf("split is empty")
	}

	texts := make([]string, len(sentences))
	targets := make([]float64, len(sentences))
	for i, sent := range sentences {
		if sent.NormScore == nil {
			return nil, nil, fmt.Errorf("sentence %d has no normalized score", sent.ID)
		}
		texts[i] = sent.Text
		targets[i] = *sent.NormScore
	}

	embeddings, err := EmbedBatches(ctx, enc, texts, t.cfg.EvalBatch, desc, t.reporter)
	if err != nil {
		return nil, nil, err
	}
	return embeddings, targets, nil
}

// EmbedBatches encodes texts through the encoder in fixed-size batches
func EmbedBatches(ctx context.Context, enc Encoder, texts []string, batchSize int, desc string, reporter progress.Reporter) ([][]float32, error) {
	if batchSize <= 0 {
		batchSize = 128
	}

	if reporter != nil {
		reporter.Start(desc, len(texts))
		defer reporter.Finish()
	}

	embeddings := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += batchSize {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		end := start + batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := enc.Embed(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("failed to embed batch at %d: %w", start, err)
		}
		embeddings = append(embeddings, batch...)

		if reporter != nil {
			for range batch {
				reporter.Increment()
			}
		}
	}

	return embeddings, nil
}

// Predict runs the trained head over sentences and returns clamped scores
func Predict(ctx context.Context, enc Encoder, head *Head, sentences []*store.Sentence, batchSize int, reporter progress.Reporter) ([]float64, error) {
	texts := make([]string, len(sentences))
	for i, sent := range sentences {
		texts[i] = sent.Text
	}

	embeddings, err := EmbedBatches(ctx, enc, texts, batchSize, "scoring with regression model", reporter)
	if err != nil {
		return nil, err
	}

	scores := make([]float64, len(embeddings))
	for i, emb := range embeddings {
		scores[i] = head.Predict(emb)
	}
	return scores, nil
}
