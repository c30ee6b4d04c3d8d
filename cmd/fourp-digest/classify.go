// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/fourp-digest/internal/classify"
	"github.com/pdiddy/fourp-digest/internal/pipeline"
	"github.com/pdiddy/fourp-digest/internal/pubmed"
	"github.com/pdiddy/fourp-digest/internal/report"
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Assess fetched articles against 4P medicine",
	Long: `Classify sends each article abstract to a language model (Gemini, Claude,
or OpenAI) and records whether it is relevant to 4P medicine, which aspects
it touches, and an impact score. Articles without an abstract are skipped.

Results are written to 4p_analysis_<date>.json. Without --file the most
recently modified medical_papers_*.json in the fetch output directory is used.`,
	RunE: runClassify,
}

var classifyKeys = map[string]string{
	keyClassifyMaxArticles: "max",
	keyClassifyProvider:    "provider",
	keyClassifyModel:       "model",
	keyClassifyAPIKey:      "api-key",
	keyClassifyWorkers:     "workers",
	keyClassifyRPM:         "rpm",
	keyClassifyMaxRetries:  "retries",
	keyClassifyTimeout:     "timeout",
	keyClassifySkip:        "skip-assessed",
	keyClassifyOutputDir:   "output-dir",
	keyStoreEnabled:        "store",
	keyExportConsoleLimit:  "top",
}

func init() {
	classifyCmd.Flags().String("file", "", "articles JSON file (default: most recent medical_papers_*.json)")
	classifyCmd.Flags().Int("max", 0, "maximum number of articles to assess (0 = all)")
	classifyCmd.Flags().String("provider", "gemini", "language model provider: gemini, claude, or openai")
	classifyCmd.Flags().String("model", "", "model identifier (default depends on provider)")
	classifyCmd.Flags().String("api-key", "", "API key for the provider (default: .secrets/ or environment)")
	classifyCmd.Flags().Int("workers", classify.DefaultWorkers, "concurrent requests")
	classifyCmd.Flags().Int("rpm", 0, "maximum requests per minute (0 = unpaced)")
	classifyCmd.Flags().Int("retries", classify.DefaultMaxRetries, "attempts per article")
	classifyCmd.Flags().Duration("timeout", classify.DefaultRequestTimeout, "timeout per request")
	classifyCmd.Flags().Bool("skip-assessed", false, "skip articles the store already holds for this model")
	classifyCmd.Flags().String("output-dir", ".", "directory for the assessments JSON file")
	classifyCmd.Flags().Bool("store", false, "also save assessments to the assessment store")
	classifyCmd.Flags().Int("top", report.DefaultConsoleLimit, "number of top papers to print")

	rootCmd.AddCommand(classifyCmd)
}

func runClassify(cmd *cobra.Command, args []string) error {
	if err := bindFlags(cmd, classifyKeys); err != nil {
		return err
	}
	cfg := classifyConfig()

	path, _ := cmd.Flags().GetString("file")
	if path == "" {
		dir := viper.GetString(keyFetchOutputDir)
		if dir == "" {
			dir = "."
		}
		latest, err := pubmed.LatestArticlesFile(dir)
		if err != nil {
			return err
		}
		path = latest
	}
	fmt.Printf("Analyzing papers from %s\n", path)

	articles, err := pubmed.ReadArticles(path)
	if err != nil {
		return err
	}

	backend, err := newBackend(cfg)
	if err != nil {
		return err
	}

	enabled := viper.GetBool(keyStoreEnabled) || cfg.SkipAssessed
	st, err := openStore(enabled)
	if err != nil {
		return err
	}
	if st != nil {
		defer st.Close()
	}

	c := classify.New(backend, cfg, recorder)
	if err := pipeline.SkipAssessed(cmd.Context(), c, st, cfg.SkipAssessed, backend.Model()); err != nil {
		return err
	}

	assessments, sum, err := c.Run(cmd.Context(), articles, cfg.MaxArticles, os.Stdout)
	if err != nil {
		return err
	}

	out := filepath.Join(cfg.OutputDir, classify.OutputFilename(time.Now()))
	if err := classify.WriteAssessments(out, assessments); err != nil {
		return err
	}
	fmt.Printf("\nAnalysis saved to %s (%d assessed, %d skipped, %d failed)\n",
		out, sum.Assessed, sum.Skipped, sum.Failed)

	if st != nil {
		if _, err := st.SaveAssessments(cmd.Context(), assessments); err != nil {
			slog.Warn("could not store assessments", slog.Any("error", err))
		}
	}

	ranked := report.Rank(assessments)
	fmt.Printf("Found %d relevant papers\n", len(ranked))
	if len(ranked) > 0 {
		report.WriteConsole(os.Stdout, ranked, viper.GetInt(keyExportConsoleLimit))
	}

	if sum.HasFailures() {
		slog.Warn("some articles could not be assessed", slog.Int("failed", sum.Failed))
	}
	return nil
}
