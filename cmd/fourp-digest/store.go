// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/fourp-digest/internal/store"
	"github.com/pdiddy/fourp-digest/pkg/types"
)

var storeKeys = map[string]string{
	keyStoreDataDir:    "data-dir",
	keyStoreMaxResults: "max-results",
}

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Keep articles and assessments in a searchable SQLite store",
	Long: `Store manages data/index/digest.db, which accumulates fetched articles and
their assessments across runs. Use ingest to load JSON output files,
query to search them, and export to dump them as YAML or JSON.`,
}

// --- ingest subcommand ---

var storeIngestCmd = &cobra.Command{
	Use:   "ingest [files...]",
	Short: "Load articles or assessments JSON files into the store",
	Long: `Ingest reads medical_papers_*.json and 4p_analysis_*.json files and
upserts their records. The record kind is detected per file.`,
	RunE: runStoreIngest,
}

func runStoreIngest(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("provide one or more articles or assessments JSON files")
	}
	st, err := openStoreCmd(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	sum, err := st.Ingest(cmd.Context(), args, os.Stdout)
	if err != nil {
		return err
	}
	if sum.Failed > 0 {
		return fmt.Errorf("%d file(s) failed ingestion", sum.Failed)
	}
	return nil
}

// --- query subcommand ---

var storeQueryCmd = &cobra.Command{
	Use:   "query [text...]",
	Short: "Search stored assessments",
	Long: `Query searches article titles and abstracts with full-text search and
filters assessments by aspect, minimum score, relevance, journal, or model.
Without text, results are ordered by impact score.`,
	RunE: runStoreQuery,
}

func runStoreQuery(cmd *cobra.Command, args []string) error {
	opts, err := queryOptsFromFlags(cmd, args)
	if err != nil {
		return err
	}
	st, err := openStoreCmd(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	results, err := st.Query(cmd.Context(), opts)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatQueryOutput(results, jsonOutput)
}

func formatQueryOutput(results []types.Assessment, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-4s  %-10s  %-5s  %-3s  %-40s  %s\n",
		"Rank", "PMID", "Score", "Rel", "Aspects", "Title")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 110))

	for i, a := range results {
		aspects := strings.Join(a.AspectStrings(), ",")
		if len(aspects) > 40 {
			aspects = aspects[:37] + "..."
		}
		title := a.Article.Title
		if len(title) > 50 {
			title = title[:47] + "..."
		}
		rel := "no"
		if a.Relevant {
			rel = "yes"
		}
		fmt.Fprintf(os.Stdout, "%-4d  %-10s  %-5d  %-3s  %-40s  %s\n",
			i+1, a.Article.ID, a.Score, rel, aspects, title)
	}

	fmt.Fprintf(os.Stdout, "\n%d results\n", len(results))
	return nil
}

// --- export subcommand ---

var storeExportCmd = &cobra.Command{
	Use:   "export [text...]",
	Short: "Export stored assessments to YAML or JSON",
	Long: `Export writes all stored assessments (or a filtered subset) to
data/index/export.yaml or export.json. Supports the same filter flags as
query for partial exports.`,
	RunE: runStoreExport,
}

func runStoreExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")

	opts, err := queryOptsFromFlags(cmd, args)
	if err != nil {
		return err
	}
	st, err := openStoreCmd(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	var path string
	switch format {
	case "yaml", "":
		path, err = st.ExportYAML(cmd.Context(), opts)
	case "json":
		path, err = st.ExportJSON(cmd.Context(), opts)
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}
	if err != nil {
		return err
	}
	fmt.Printf("Exported to %s\n", path)
	return nil
}

// --- shared helpers ---

func openStoreCmd(cmd *cobra.Command) (*store.Store, error) {
	if err := bindFlags(cmd, storeKeys); err != nil {
		return nil, err
	}
	return store.Open(storeConfig())
}

func queryOptsFromFlags(cmd *cobra.Command, args []string) (store.QueryOptions, error) {
	text, _ := cmd.Flags().GetString("query")
	if text == "" && len(args) > 0 {
		text = strings.Join(args, " ")
	}

	aspectFlag, _ := cmd.Flags().GetString("aspect")
	minScore, _ := cmd.Flags().GetInt("min-score")
	relevant, _ := cmd.Flags().GetBool("relevant")
	journal, _ := cmd.Flags().GetString("journal")
	model, _ := cmd.Flags().GetString("model")
	limit, _ := cmd.Flags().GetInt("limit")

	opts := store.QueryOptions{
		Text:         text,
		MinScore:     minScore,
		RelevantOnly: relevant,
		Journal:      journal,
		Model:        model,
		MaxResults:   limit,
	}
	if aspectFlag != "" {
		aspect, ok := types.ParseAspect(aspectFlag)
		if !ok {
			return opts, fmt.Errorf("unknown aspect %q: use predictive, preventive, personalized, or participatory", aspectFlag)
		}
		opts.Aspect = aspect
	}
	return opts, nil
}

func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().String("query", "", "full-text search over title and abstract")
	cmd.Flags().String("aspect", "", "filter by 4P aspect")
	cmd.Flags().Int("min-score", 0, "minimum impact score")
	cmd.Flags().Bool("relevant", false, "only assessments marked relevant")
	cmd.Flags().String("journal", "", "filter by journal title substring")
	cmd.Flags().String("model", "", "filter by model identifier")
}

func init() {
	// Shared flags on the parent command, inherited by subcommands.
	storeCmd.PersistentFlags().String("data-dir", "data", "base directory for the store (contains index/)")
	storeCmd.PersistentFlags().Int("max-results", 20, "default maximum number of query results")

	// Query flags.
	addFilterFlags(storeQueryCmd)
	storeQueryCmd.Flags().Int("limit", 0, "maximum results (0 = use default)")
	storeQueryCmd.Flags().Bool("json", false, "output results as JSON")

	// Export flags.
	addFilterFlags(storeExportCmd)
	storeExportCmd.Flags().String("format", "yaml", "export format: yaml or json")

	// Wire subcommands.
	storeCmd.AddCommand(storeIngestCmd)
	storeCmd.AddCommand(storeQueryCmd)
	storeCmd.AddCommand(storeExportCmd)

	rootCmd.AddCommand(storeCmd)
}
