// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/fourp-digest/internal/classify"
	"github.com/pdiddy/fourp-digest/internal/pipeline"
	"github.com/pdiddy/fourp-digest/internal/pubmed"
	"github.com/pdiddy/fourp-digest/internal/report"
	"github.com/pdiddy/fourp-digest/pkg/types"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch, classify, and export in one go",
	Long: `Run chains the three stages: it fetches recent articles, assesses those
with abstracts, and writes the CSV and Markdown reports. Stage output files
are written exactly as the individual subcommands write them.`,
	RunE: runRun,
}

// pipelineKeys binds the flags added by addPipelineFlags. Flag names differ
// from the single-stage commands where two stages would otherwise clash.
var pipelineKeys = map[string]string{
	keyFetchGroup:          "group",
	keyFetchJournals:       "journals",
	keyFetchDaysBack:       "days",
	keyFetchMaxResults:     "max-results",
	keyFetchArticleTypes:   "types",
	keyFetchAPIKey:         "ncbi-api-key",
	keyFetchEmail:          "email",
	keyFetchOutputDir:      "output-dir",
	keyClassifyProvider:    "provider",
	keyClassifyModel:       "model",
	keyClassifyAPIKey:      "api-key",
	keyClassifyMaxArticles: "max-articles",
	keyClassifyWorkers:     "workers",
	keyClassifyRPM:         "rpm",
	keyClassifyMaxRetries:  "retries",
	keyClassifyTimeout:     "timeout",
	keyClassifySkip:        "skip-assessed",
	keyClassifyOutputDir:   "output-dir",
	keyExportOutputDir:     "output-dir",
	keyExportReportLimit:   "report-limit",
	keyExportConsoleLimit:  "console-limit",
	keyStoreEnabled:        "store",
	keyStoreDataDir:        "data-dir",
}

func addPipelineFlags(cmd *cobra.Command) {
	cmd.Flags().String("group", "", "journal group from the journals file")
	cmd.Flags().StringSlice("journals", nil, "journals to search, overriding --group")
	cmd.Flags().Int("days", pubmed.DefaultDaysBack, "number of days to look back")
	cmd.Flags().Int("max-results", pubmed.DefaultMaxResults, "maximum number of PubMed results")
	cmd.Flags().StringSlice("types", pubmed.DefaultArticleTypes, "publication types to include")
	cmd.Flags().String("ncbi-api-key", "", "NCBI API key")
	cmd.Flags().String("email", "", "contact email sent to NCBI")
	cmd.Flags().String("provider", "gemini", "language model provider: gemini, claude, or openai")
	cmd.Flags().String("model", "", "model identifier (default depends on provider)")
	cmd.Flags().String("api-key", "", "API key for the provider")
	cmd.Flags().Int("max-articles", 0, "maximum number of articles to assess (0 = all)")
	cmd.Flags().Int("workers", classify.DefaultWorkers, "concurrent model requests")
	cmd.Flags().Int("rpm", 0, "maximum model requests per minute (0 = unpaced)")
	cmd.Flags().Int("retries", classify.DefaultMaxRetries, "attempts per article")
	cmd.Flags().Duration("timeout", classify.DefaultRequestTimeout, "timeout per model request")
	cmd.Flags().Bool("skip-assessed", false, "skip articles the store already holds for this model")
	cmd.Flags().String("output-dir", ".", "directory for all stage output")
	cmd.Flags().Int("report-limit", report.DefaultReportLimit, "papers in the Markdown report")
	cmd.Flags().Int("console-limit", report.DefaultConsoleLimit, "papers printed to the console")
	cmd.Flags().Bool("store", false, "save articles and assessments to the store")
	cmd.Flags().String("data-dir", "data", "base directory for the store")
}

func init() {
	addPipelineFlags(runCmd)
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	if err := bindFlags(cmd, pipelineKeys); err != nil {
		return err
	}
	res, err := runPipeline(cmd.Context())
	if err != nil {
		return err
	}
	if res.ArticlesPath == "" {
		fmt.Println("No articles found.")
		return nil
	}
	fmt.Printf("\nArticles:    %s\nAssessments: %s\n", res.ArticlesPath, res.AssessmentsPath)
	if res.Export.MarkdownPath != "" {
		fmt.Printf("Report:      %s\n", res.Export.MarkdownPath)
	}
	return nil
}

// runPipeline assembles the stage configs from flags and configuration and
// executes one pipeline run.
func runPipeline(ctx context.Context) (pipeline.Result, error) {
	fetchCfg, group, err := fetchConfig()
	if err != nil {
		return pipeline.Result{}, err
	}
	cfg := types.PipelineConfig{
		Fetch:    fetchCfg,
		Classify: classifyConfig(),
		Export:   exportConfig(),
		Store:    storeConfig(),
	}

	backend, err := newBackend(cfg.Classify)
	if err != nil {
		return pipeline.Result{}, err
	}

	st, err := openStore(viper.GetBool(keyStoreEnabled) || cfg.Classify.SkipAssessed)
	if err != nil {
		return pipeline.Result{}, err
	}
	if st != nil {
		defer st.Close()
	}

	return pipeline.Run(ctx, pipeline.Options{
		Config:  cfg,
		Group:   group,
		Backend: backend,
		Store:   st,
		Metrics: recorder,
	}, os.Stdout)
}
