// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/fourp-digest/internal/classify"
	"github.com/pdiddy/fourp-digest/internal/pubmed"
	"github.com/pdiddy/fourp-digest/internal/report"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write CSV and Markdown reports",
	Long: `Export turns stage output into reports.

With --file, an assessments JSON file becomes 4p_assessments_<date>.csv and,
when any paper is relevant, the ranked 4p_medicine_papers_<date>.md report.
With --articles, an articles JSON file becomes a CSV next to it (or at --csv).`,
	RunE: runExport,
}

var exportKeys = map[string]string{
	keyExportOutputDir:    "output-dir",
	keyExportReportLimit:  "report-limit",
	keyExportConsoleLimit: "console-limit",
}

func init() {
	exportCmd.Flags().String("file", "", "assessments JSON file from classify")
	exportCmd.Flags().String("articles", "", "articles JSON file from fetch")
	exportCmd.Flags().String("csv", "", "articles CSV path (default: --articles with a .csv extension)")
	exportCmd.Flags().String("output-dir", ".", "directory for assessment reports")
	exportCmd.Flags().Int("report-limit", report.DefaultReportLimit, "papers in the Markdown report")
	exportCmd.Flags().Int("console-limit", report.DefaultConsoleLimit, "papers printed to the console")

	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	if err := bindFlags(cmd, exportKeys); err != nil {
		return err
	}

	assessmentsPath, _ := cmd.Flags().GetString("file")
	articlesPath, _ := cmd.Flags().GetString("articles")
	if assessmentsPath == "" && articlesPath == "" {
		return fmt.Errorf("provide --file (assessments) and/or --articles (fetched articles)")
	}

	if articlesPath != "" {
		csvPath, _ := cmd.Flags().GetString("csv")
		if csvPath == "" {
			csvPath = report.ArticlesCSVPath(articlesPath)
		}
		articles, err := pubmed.ReadArticles(articlesPath)
		if err != nil {
			return err
		}
		if err := report.SaveCSV(csvPath, func(w io.Writer) error {
			return report.WriteArticlesCSV(w, articles)
		}); err != nil {
			return err
		}
		fmt.Printf("Successfully converted %s to %s (%d articles)\n", articlesPath, csvPath, len(articles))
	}

	if assessmentsPath != "" {
		assessments, err := classify.ReadAssessments(assessmentsPath)
		if err != nil {
			return err
		}
		if _, err := report.Export(assessments, exportConfig(), time.Now(), os.Stdout); err != nil {
			return err
		}
		recorder.StageCompleted("export", time.Now())
	}
	return nil
}
