package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/poliscilab/speechaxis/internal/config"
	"github.com/poliscilab/speechaxis/internal/hierarch"
	"github.com/poliscilab/speechaxis/internal/store"
)

// handleAnalyze implements the analyze subcommand
func handleAnalyze(cfg *config.Config, logger *zap.Logger, args []string) {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	var outputDir string
	fs.StringVar(&outputDir, "output", cfg.Analysis.OutputDir, "Directory for the CSV result tables")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `USAGE:
    speechaxis analyze [options]

DESCRIPTION:
    Join the scored corpus with the district education table, fit the
    mixed-effects model (education fixed effect; party and representative
    random intercepts) on the SemAxis scores and on the model scores, and
    write the coefficient and variance-decomposition tables as CSV.

    Sentences without a matching education record are excluded and the
    exclusion count reported.

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

	rows, excluded, err := store.NewEducationStore(db).JoinScored()
	if err != nil {
		logger.Fatal("failed to join sentences with education records", zap.Error(err))
	}
	if len(rows) == 0 {
		logger.Fatal("no scored sentences with education records; run the earlier stages first")
	}
	logger.Info("analysis input joined",
		zap.Int("rows", len(rows)),
		zap.Int64("excluded_no_education", excluded))

	semObs := make([]hierarch.Observation, 0, len(rows))
	modelObs := make([]hierarch.Observation, 0, len(rows))
	var missingModel int64
	for _, row := range rows {
		obs := hierarch.Observation{
			Education: row.PctBachelors,
			Party:     row.Party,
			Speaker:   row.Speaker,
		}
		obs.Score = row.Score
		semObs = append(semObs, obs)

		if row.ModelScore != nil {
			obs.Score = *row.ModelScore
			modelObs = append(modelObs, obs)
		} else {
			missingModel++
		}
	}

	engine := hierarch.Engine(&hierarch.EMEngine{
		MaxIter: cfg.Analysis.MaxIterations,
		Tol:     cfg.Analysis.Tolerance,
	})
	ctx := context.Background()

	semFit, err := engine.Fit(ctx, semObs)
	if err != nil {
		logger.Fatal("mixed-effects fit on SemAxis scores failed", zap.Error(err))
	}
	fits := []hierarch.SystemFit{{System: "semaxis", Fit: semFit}}

	if len(modelObs) > 0 {
		modelFit, err := engine.Fit(ctx, modelObs)
		if err != nil {
			logger.Fatal("mixed-effects fit on model scores failed", zap.Error(err))
		}
		fits = append(fits, hierarch.SystemFit{System: "model", Fit: modelFit})
	} else {
		logger.Warn("no model scores available; run `speechaxis train` for the model-score fit")
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		logger.Fatal("failed to create output directory", zap.Error(err))
	}
	coefPath := filepath.Join(outputDir, "coefficients.csv")
	varPath := filepath.Join(outputDir, "variance_decomposition.csv")
	if err := writeCSV(coefPath, func(f *os.File) error { return hierarch.WriteCoefficients(f, fits) }); err != nil {
		logger.Fatal("failed to write coefficient table", zap.Error(err))
	}
	if err := writeCSV(varPath, func(f *os.File) error { return hierarch.WriteVarianceDecomposition(f, fits) }); err != nil {
		logger.Fatal("failed to write variance table", zap.Error(err))
	}

	fmt.Printf("Analyzed %d sentences (%d excluded without education records", len(rows), excluded)
	if missingModel > 0 {
		fmt.Printf(", %d without model scores", missingModel)
	}
	fmt.Println(")")
	fmt.Println()
	for _, sf := range fits {
		fit := sf.Fit
		fmt.Printf("[%s] %d observations, %d parties, %d representatives (converged: %v, %d iterations)\n",
			sf.System, fit.Observations, fit.Parties, fit.Representatives, fit.Converged, fit.Iterations)
		fmt.Printf("  education: %+.5f (se %.5f, z %+.2f, p %.4f)\n",
			fit.Education.Estimate, fit.Education.StdErr, fit.Education.Z, fit.Education.P)
		fmt.Println("  variance decomposition:")
		for _, comp := range fit.Components {
			fmt.Printf("    %-16s %.6f  (%.1f%%)\n", comp.Level, comp.Variance, 100*comp.Share)
		}
		fmt.Println()
	}
	fmt.Printf("Tables written to %s and %s\n", coefPath, varPath)
}

func writeCSV(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()
	return write(f)
}
