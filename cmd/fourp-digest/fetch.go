// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/fourp-digest/internal/pubmed"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch recent articles from PubMed",
	Long: `Fetch searches PubMed for articles published in the selected journals
within the last --days days, downloads their records and writes them to
medical_papers_<group>_<date>.json.

Journals come from a named group in the journals file, or from --journals
which overrides any group.`,
	RunE: runFetch,
}

var fetchKeys = map[string]string{
	keyFetchGroup:        "group",
	keyFetchJournals:     "journals",
	keyFetchDaysBack:     "days",
	keyFetchMaxResults:   "max",
	keyFetchArticleTypes: "types",
	keyFetchAPIKey:       "api-key",
	keyFetchEmail:        "email",
	keyFetchTimeout:      "timeout",
	keyFetchOutputDir:    "output-dir",
	keyFetchRawXML:       "raw-xml",
	keyStoreEnabled:      "store",
}

func init() {
	fetchCmd.Flags().String("group", "", "journal group from the journals file (default: the file's default_group)")
	fetchCmd.Flags().StringSlice("journals", nil, "journals to search, overriding --group")
	fetchCmd.Flags().Int("days", pubmed.DefaultDaysBack, "number of days to look back")
	fetchCmd.Flags().Int("max", pubmed.DefaultMaxResults, "maximum number of results")
	fetchCmd.Flags().StringSlice("types", pubmed.DefaultArticleTypes, "publication types to include")
	fetchCmd.Flags().String("api-key", "", "NCBI API key (default: .secrets/ncbi-api-key or NCBI_API_KEY)")
	fetchCmd.Flags().String("email", "", "contact email sent to NCBI")
	fetchCmd.Flags().Duration("timeout", defaultFetchTimeout, "HTTP request timeout")
	fetchCmd.Flags().String("output-dir", ".", "directory for the articles JSON file")
	fetchCmd.Flags().String("raw-xml", "", "also save the raw efetch XML here (path.N.xml per batch when there are several)")
	fetchCmd.Flags().Bool("store", false, "also save articles to the assessment store")
	fetchCmd.Flags().Bool("list-groups", false, "list journal groups and exit")

	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	if err := bindFlags(cmd, fetchKeys); err != nil {
		return err
	}

	if list, _ := cmd.Flags().GetBool("list-groups"); list {
		return listGroups()
	}

	cfg, group, err := fetchConfig()
	if err != nil {
		return err
	}
	fmt.Printf("Using journal group: %s\n", group)
	fmt.Printf("Journals: %s\n", strings.Join(cfg.Journals, ", "))

	client := pubmed.NewClient(nil, cfg, recorder)
	res, err := pubmed.Fetch(cmd.Context(), client, cfg, os.Stdout)
	if err != nil {
		return err
	}
	recorder.StageCompleted("fetch", time.Now())
	if len(res.Articles) == 0 {
		fmt.Println("No articles found.")
		return nil
	}

	path := filepath.Join(cfg.OutputDir, pubmed.OutputFilename(group, cfg.Journals, time.Now()))
	if err := pubmed.WriteArticles(path, res.Articles); err != nil {
		return err
	}

	st, err := openStore(viper.GetBool(keyStoreEnabled))
	if err != nil {
		return err
	}
	if st != nil {
		defer st.Close()
		n, err := st.SaveArticles(cmd.Context(), res.Articles)
		if err != nil {
			slog.Warn("could not store articles", slog.Any("error", err))
		} else {
			fmt.Printf("Stored %d articles in %s\n", n, st.Path())
		}
	}

	fmt.Printf("\nSaved %d articles to %s\n", len(res.Articles), path)
	fmt.Printf("Articles with abstracts: %d of %d (%.1f%%)\n",
		res.WithAbstracts, len(res.Articles), res.AbstractCoverage())
	return nil
}

func listGroups() error {
	jc, err := pubmed.LoadJournalConfig(viper.GetString("journals-file"))
	if err != nil {
		return err
	}
	for _, name := range jc.GroupNames() {
		marker := " "
		if name == jc.DefaultGroup {
			marker = "*"
		}
		fmt.Printf("%s %-20s %s\n", marker, name, strings.Join(jc.Groups[name], ", "))
	}
	return nil
}
