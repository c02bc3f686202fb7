package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"strconv"

	"go.uber.org/zap"

	"github.com/poliscilab/speechaxis/internal/config"
	"github.com/poliscilab/speechaxis/internal/corpus"
	"github.com/poliscilab/speechaxis/internal/store"
	"github.com/poliscilab/speechaxis/internal/validate"
)

// handleValidate implements the validate subcommand
func handleValidate(cfg *config.Config, logger *zap.Logger, args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	var samplePath string
	var annotationPath string
	fs.StringVar(&samplePath, "sample", "", "Write a stratified annotation sample CSV and exit")
	fs.StringVar(&annotationPath, "annotations", "", "Annotation CSV to load (default: validation.annotation_path)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `USAGE:
    speechaxis validate [options]

DESCRIPTION:
    With -sample, draw the stratified annotation sample and write it as a
    CSV of sentence IDs and texts for the annotators.

    Without -sample, load the completed annotations, check inter-annotator
    agreement (Krippendorff's alpha, ordinal) and compare both scoring
    systems against the consensus score. Low agreement is reported as a
    caveat, never by suppressing results.

OPTIONS:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
EXAMPLES:
    # Draw the sample for the annotators
    speechaxis validate -sample sample.csv

    # Validate once annotations.csv has been filled in
    speechaxis validate -annotations annotations.csv
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
	sentenceStore := store.NewSentenceStore(db)

	if samplePath != "" {
		writeSample(cfg, logger, sentenceStore, samplePath)
		return
	}

	annotationStore := store.NewAnnotationStore(db)
	count, err := annotationStore.Count()
	if err != nil {
		logger.Fatal("failed to count annotations", zap.Error(err))
	}
	if annotationPath == "" {
		annotationPath = cfg.Validation.AnnotationPath
	}
	if count == 0 {
		if annotationPath == "" {
			logger.Fatal("no annotations in the artifact store and no annotation CSV configured")
		}
		annotations, err := corpus.ReadAnnotations(annotationPath)
		if err != nil {
			logger.Fatal("failed to read annotations", zap.Error(err))
		}
		if err := annotationStore.InsertBatch(annotations); err != nil {
			logger.Fatal("failed to store annotations", zap.Error(err))
		}
		logger.Info("annotations loaded", zap.Int("count", len(annotations)))
	}

	annotations, err := annotationStore.All()
	if err != nil {
		logger.Fatal("failed to load annotations", zap.Error(err))
	}
	if len(annotations) == 0 {
		logger.Fatal("no annotations available")
	}

	ids := make([]int64, len(annotations))
	for i, ann := range annotations {
		ids[i] = ann.SentenceID
	}
	sentences, err := sentenceStore.GetByIDs(ids)
	if err != nil {
		logger.Fatal("failed to load annotated sentences", zap.Error(err))
	}

	semScores := make(map[int64]float64, len(sentences))
	modelScores := make(map[int64]float64, len(sentences))
	for _, sent := range sentences {
		if sent.NormScore != nil {
			semScores[sent.ID] = *sent.NormScore
		}
		if sent.ModelScore != nil {
			modelScores[sent.ID] = *sent.ModelScore
		}
	}

	report, err := validate.Evaluate(annotations, semScores, modelScores, cfg.Validation.AlphaThreshold)
	if err != nil {
		logger.Fatal("validation failed", zap.Error(err))
	}

	logger.Info("validation complete",
		zap.Float64("alpha", report.Alpha),
		zap.Bool("caveat", report.Caveat),
		zap.Float64("semaxis_pearson", report.SemAxis.Pearson),
		zap.Float64("model_pearson", report.Model.Pearson))

	fmt.Printf("Validation over %d annotated sentences\n\n", report.Sentences)
	fmt.Printf("Inter-annotator agreement (Krippendorff's alpha, ordinal): %.3f\n", report.Alpha)
	if report.Caveat {
		fmt.Printf("CAVEAT: agreement is below the %.3f threshold; interpret the results below with reduced confidence.\n",
			report.Threshold)
	}
	fmt.Println()
	fmt.Println("Against human consensus (mean of 3 scores, rescaled to [0,1]):")
	fmt.Printf("  SemAxis scores:  Pearson r = %+.4f   MAE = %.4f\n", report.SemAxis.Pearson, report.SemAxis.MAE)
	fmt.Printf("  Model scores:    Pearson r = %+.4f   MAE = %.4f\n", report.Model.Pearson, report.Model.MAE)
	fmt.Printf("  Baseline (predict corpus mean):      MAE = %.4f\n", report.BaselineMAE)
	fmt.Println()
	fmt.Printf("SemAxis vs model (cross-check):  Pearson r = %+.4f\n", report.SystemPearson)
}

// writeSample draws the stratified annotation sample and writes it for the
// annotators
func writeSample(cfg *config.Config, logger *zap.Logger, sentenceStore *store.SentenceStore, path string) {
	byBin, err := sentenceStore.ScoredIDsByBin()
	if err != nil {
		logger.Fatal("failed to load binned sentences", zap.Error(err))
	}
	if len(byBin) == 0 {
		logger.Fatal("no binned sentences in the artifact store; run `speechaxis score` first")
	}

	ids, err := validate.SampleForAnnotation(byBin, cfg.Validation.PerBin, cfg.Validation.Seed)
	if err != nil {
		logger.Fatal("failed to draw annotation sample", zap.Error(err))
	}

	sentences, err := sentenceStore.GetByIDs(ids)
	if err != nil {
		logger.Fatal("failed to load sampled sentences", zap.Error(err))
	}

	f, err := os.Create(path)
	if err != nil {
		logger.Fatal("failed to create sample file", zap.Error(err))
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write([]string{"sentence_id", "text", "score1", "score2", "score3"}); err != nil {
		logger.Fatal("failed to write sample header", zap.Error(err))
	}
	for _, sent := range sentences {
		if err := cw.Write([]string{strconv.FormatInt(sent.ID, 10), sent.Text, "", "", ""}); err != nil {
			logger.Fatal("failed to write sample row", zap.Error(err))
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		logger.Fatal("failed to flush sample file", zap.Error(err))
	}

	fmt.Printf("Wrote %d sentences (%d per bin) to %s\n", len(sentences), cfg.Validation.PerBin, path)
}
