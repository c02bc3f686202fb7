package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"

	"go.uber.org/zap"

	"github.com/poliscilab/speechaxis/internal/config"
	"github.com/poliscilab/speechaxis/internal/progress"
	"github.com/poliscilab/speechaxis/internal/regressor"
	"github.com/poliscilab/speechaxis/internal/store"
)

// handleTrain implements the train subcommand
func handleTrain(cfg *config.Config, logger *zap.Logger, args []string) {
	fs := flag.NewFlagSet("train", flag.ExitOnError)
	var skipScoring bool
	fs.BoolVar(&skipScoring, "skip-scoring", false, "Train and evaluate only; do not score the full corpus")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `USAGE:
    speechaxis train [options]

DESCRIPTION:
    Split the scored corpus 70/15/15 with per-bin stratification, train
    the regression head on frozen encoder embeddings, evaluate on the
    held-out test split, persist the checkpoint and score the full
    corpus with the trained model.

OPTIONS:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		logger.Fatal("failed to parse arguments", zap.Error(err))
	}
	if cfg.Regressor.ModelPath == "" || cfg.Regressor.TokenizerPath == "" {
		logger.Fatal("encoder not configured; set regressor.model_path and regressor.tokenizer_path")
	}

	db, err := store.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatal("failed to open artifact store", zap.Error(err))
	}
	defer db.Close()
	sentenceStore := store.NewSentenceStore(db)

	byBin, err := sentenceStore.ScoredIDsByBin()
	if err != nil {
		logger.Fatal("failed to load binned sentences", zap.Error(err))
	}
	if len(byBin) == 0 {
		logger.Fatal("no binned sentences in the artifact store; run `speechaxis score` first")
	}

	splits, err := regressor.StratifiedSplit(byBin, cfg.Regressor.TrainFraction, cfg.Regressor.ValFraction, cfg.Regressor.Seed)
	if err != nil {
		var stratErr *regressor.StratificationError
		if errors.As(err, &stratErr) {
			logger.Fatal("stratified split failed; widen the bins (lower scoring.bins) or gather more data",
				zap.Int("bin", stratErr.Bin),
				zap.Int("size", stratErr.Size))
		}
		logger.Fatal("failed to split corpus", zap.Error(err))
	}
	if err := sentenceStore.AssignSplits(splits); err != nil {
		logger.Fatal("failed to store split labels", zap.Error(err))
	}

	train, err := sentenceStore.GetBySplit(store.SplitTrain)
	if err != nil {
		logger.Fatal("failed to load train split", zap.Error(err))
	}
	val, err := sentenceStore.GetBySplit(store.SplitVal)
	if err != nil {
		logger.Fatal("failed to load val split", zap.Error(err))
	}
	test, err := sentenceStore.GetBySplit(store.SplitTest)
	if err != nil {
		logger.Fatal("failed to load test split", zap.Error(err))
	}
	logger.Info("stratified split assigned",
		zap.Int("train", len(train)),
		zap.Int("val", len(val)),
		zap.Int("test", len(test)))

	encoder, err := regressor.NewOrtEncoder(regressor.OrtEncoderConfig{
		ModelPath:     cfg.Regressor.ModelPath,
		TokenizerPath: cfg.Regressor.TokenizerPath,
		OrtLibrary:    cfg.Regressor.OrtLibrary,
		MaxSeqLen:     cfg.Regressor.MaxSeqLen,
	})
	if err != nil {
		logger.Fatal("failed to load encoder", zap.Error(err))
	}
	defer encoder.Close()

	reporter := progress.New(progress.DefaultEnabled())
	trainer := regressor.NewTrainer(regressor.Config{
		Epochs:       cfg.Regressor.Epochs,
		TrainBatch:   cfg.Regressor.TrainBatch,
		EvalBatch:    cfg.Regressor.EvalBatch,
		LearningRate: cfg.Regressor.LearningRate,
		Seed:         cfg.Regressor.Seed,
	}, logger, reporter)

	ctx := context.Background()
	result, err := trainer.Train(ctx, encoder, train, val, test)
	if err != nil {
		logger.Fatal("regression training failed", zap.Error(err))
	}

	testMAE := result.TestMAE
	testPearson := result.TestPearson
	checkpoint := &store.Checkpoint{
		EncoderModel: encoder.ModelID(),
		Weights:      result.Head.Weights,
		Bias:         result.Head.Bias,
		Dimension:    result.Dim,
		ValMAE:       result.ValMAE,
		TestMAE:      &testMAE,
		TestPearson:  &testPearson,
	}
	if _, err := store.NewCheckpointStore(db).Save(checkpoint); err != nil {
		logger.Fatal("failed to save checkpoint", zap.Error(err))
	}

	fmt.Printf("Training complete (best epoch %d of %d)\n", result.BestEpoch, result.EpochsCompleted)
	fmt.Printf("Validation MAE:  %.4f\n", result.ValMAE)
	fmt.Printf("Test MAE:        %.4f\n", result.TestMAE)
	fmt.Printf("Test Pearson r:  %.4f  (against axis scores)\n", result.TestPearson)

	if skipScoring {
		return
	}

	// Score the whole corpus with the trained head so validation and
	// analysis can compare the two systems sentence by sentence
	var ids []int64
	for _, binIDs := range byBin {
		ids = append(ids, binIDs...)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	if reporter != nil {
		reporter.Start("scoring corpus with regression model", len(ids))
	}
	const chunk = 1024
	for start := 0; start < len(ids); start += chunk {
		end := start + chunk
		if end > len(ids) {
			end = len(ids)
		}
		sentences, err := sentenceStore.GetByIDs(ids[start:end])
		if err != nil {
			logger.Fatal("failed to load sentences for model scoring", zap.Error(err))
		}
		scores, err := regressor.Predict(ctx, encoder, result.Head, sentences, cfg.Regressor.EvalBatch, nil)
		if err != nil {
			logger.Fatal("model scoring failed", zap.Error(err))
		}
		if err := sentenceStore.UpdateModelScores(ids[start:end], scores); err != nil {
			logger.Fatal("failed to store model scores", zap.Error(err))
		}
		if reporter != nil {
			for range scores {
				reporter.Increment()
			}
		}
	}
	if reporter != nil {
		reporter.Finish()
	}

	fmt.Printf("Scored %d sentences with the trained model\n", len(ids))
}
