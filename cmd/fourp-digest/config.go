// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/fourp-digest/internal/classify"
	"github.com/pdiddy/fourp-digest/internal/pubmed"
	"github.com/pdiddy/fourp-digest/internal/secrets"
	"github.com/pdiddy/fourp-digest/internal/store"
	"github.com/pdiddy/fourp-digest/pkg/types"
)

const (
	defaultUserAgent    = "fourp-digest/0.1"
	defaultFetchTimeout = 30 * time.Second
)

// Configuration keys shared by the stage subcommands. They mirror the yaml
// tags of the pkg/types config structs so a fourp-digest.yaml reads like a
// serialized PipelineConfig.
const (
	keyFetchGroup        = "fetch.group"
	keyFetchJournals     = "fetch.journals"
	keyFetchDaysBack     = "fetch.days_back"
	keyFetchMaxResults   = "fetch.max_results"
	keyFetchArticleTypes = "fetch.article_types"
	keyFetchAPIKey       = "fetch.api_key"
	keyFetchEmail        = "fetch.email"
	keyFetchTimeout      = "fetch.timeout"
	keyFetchOutputDir    = "fetch.output_dir"
	keyFetchRawXML       = "fetch.raw_xml_path"

	keyClassifyProvider    = "classify.provider"
	keyClassifyModel       = "classify.model"
	keyClassifyAPIKey      = "classify.api_key"
	keyClassifyMaxRetries  = "classify.max_retries"
	keyClassifyTimeout     = "classify.request_timeout"
	keyClassifyRPM         = "classify.requests_per_minute"
	keyClassifyMaxArticles = "classify.max_articles"
	keyClassifyWorkers     = "classify.workers"
	keyClassifySkip        = "classify.skip_assessed"
	keyClassifyOutputDir   = "classify.output_dir"

	keyExportOutputDir    = "export.output_dir"
	keyExportReportLimit  = "export.report_limit"
	keyExportConsoleLimit = "export.console_limit"

	keyStoreEnabled    = "store.enabled"
	keyStoreDataDir    = "store.data_dir"
	keyStoreMaxResults = "store.max_results"
)

func init() {
	viper.SetDefault(keyFetchDaysBack, pubmed.DefaultDaysBack)
	viper.SetDefault(keyFetchMaxResults, pubmed.DefaultMaxResults)
	viper.SetDefault(keyFetchArticleTypes, pubmed.DefaultArticleTypes)
	viper.SetDefault(keyFetchTimeout, defaultFetchTimeout)
	viper.SetDefault(keyClassifyProvider, string(types.ProviderGemini))
	viper.SetDefault(keyClassifyMaxRetries, classify.DefaultMaxRetries)
	viper.SetDefault(keyClassifyTimeout, classify.DefaultRequestTimeout)
	viper.SetDefault(keyClassifyWorkers, classify.DefaultWorkers)
	viper.SetDefault(keyStoreDataDir, "data")
	viper.SetDefault(keyStoreMaxResults, 20)
}

// bindFlags binds configuration keys to flags of cmd; one flag may feed
// several keys. Commands bind at run time so that two subcommands sharing a
// key do not shadow each other.
func bindFlags(cmd *cobra.Command, keys map[string]string) error {
	for key, flag := range keys {
		f := cmd.Flags().Lookup(flag)
		if f == nil {
			return fmt.Errorf("binding %s: no flag --%s", key, flag)
		}
		if err := viper.BindPFlag(key, f); err != nil {
			return fmt.Errorf("binding --%s: %w", flag, err)
		}
	}
	return nil
}

// fetchConfig assembles the fetch stage settings and resolves the journal
// group. It returns the group name used for the output filename.
func fetchConfig() (types.FetchConfig, string, error) {
	jc, err := pubmed.LoadJournalConfig(viper.GetString("journals-file"))
	if err != nil {
		return types.FetchConfig{}, "", err
	}
	journals, group := jc.Resolve(viper.GetString(keyFetchGroup), splitList(viper.GetStringSlice(keyFetchJournals)))

	cfg := types.FetchConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   viper.GetDuration(keyFetchTimeout),
			UserAgent: defaultUserAgent,
		},
		DaysBack:     viper.GetInt(keyFetchDaysBack),
		MaxResults:   viper.GetInt(keyFetchMaxResults),
		Journals:     journals,
		ArticleTypes: splitList(viper.GetStringSlice(keyFetchArticleTypes)),
		APIKey:       secrets.Resolve(loadedSecrets, secrets.NCBIAPIKey, viper.GetString(keyFetchAPIKey)),
		Email:        secrets.Resolve(loadedSecrets, secrets.NCBIEmail, viper.GetString(keyFetchEmail)),
		OutputDir:    viper.GetString(keyFetchOutputDir),
		RawXMLPath:   viper.GetString(keyFetchRawXML),
	}
	return cfg, group, nil
}

// classifyConfig assembles the classify stage settings, resolving the API
// key for the selected provider from flags, .secrets/ and the environment.
func classifyConfig() types.ClassifyConfig {
	provider := types.Provider(strings.ToLower(viper.GetString(keyClassifyProvider)))
	return types.ClassifyConfig{
		AIConfig: types.AIConfig{
			Provider:          provider,
			Model:             viper.GetString(keyClassifyModel),
			APIKey:            secrets.Resolve(loadedSecrets, providerSecret(provider), viper.GetString(keyClassifyAPIKey)),
			MaxRetries:        viper.GetInt(keyClassifyMaxRetries),
			RequestTimeout:    viper.GetDuration(keyClassifyTimeout),
			RequestsPerMinute: viper.GetInt(keyClassifyRPM),
		},
		MaxArticles:  viper.GetInt(keyClassifyMaxArticles),
		Workers:      viper.GetInt(keyClassifyWorkers),
		SkipAssessed: viper.GetBool(keyClassifySkip),
		OutputDir:    viper.GetString(keyClassifyOutputDir),
	}
}

func exportConfig() types.ExportConfig {
	return types.ExportConfig{
		OutputDir:    viper.GetString(keyExportOutputDir),
		ReportLimit:  viper.GetInt(keyExportReportLimit),
		ConsoleLimit: viper.GetInt(keyExportConsoleLimit),
	}
}

func storeConfig() types.StoreConfig {
	return types.StoreConfig{
		DataDir:    viper.GetString(keyStoreDataDir),
		MaxResults: viper.GetInt(keyStoreMaxResults),
	}
}

// providerSecret maps a provider to its key file in .secrets/.
func providerSecret(p types.Provider) string {
	switch p {
	case types.ProviderClaude:
		return secrets.AnthropicAPIKey
	case types.ProviderOpenAI:
		return secrets.OpenAIAPIKey
	default:
		return secrets.GoogleAPIKey
	}
}

// newBackend builds the language-model backend for cfg. Request deadlines
// come from the classifier, so the HTTP client carries no timeout of its own.
func newBackend(cfg types.ClassifyConfig) (classify.Backend, error) {
	return classify.NewBackend(cfg.AIConfig, &http.Client{})
}

// openStore opens the assessment store when enabled, returning nil otherwise.
func openStore(enabled bool) (*store.Store, error) {
	if !enabled {
		return nil, nil
	}
	return store.Open(storeConfig())
}

// splitList flattens comma-separated entries so "A,B" from the environment
// and repeated flags both work.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
