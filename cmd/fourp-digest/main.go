// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the fourp-digest CLI.
// Stages: fetch (PubMed), classify (LLM 4P assessment), export (CSV and
// Markdown), plus the assessment store, one-shot run and cron schedule.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/fourp-digest/internal/logging"
	"github.com/pdiddy/fourp-digest/internal/metrics"
	"github.com/pdiddy/fourp-digest/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// recorder collects run metrics when --metrics-file is set; nil otherwise.
var recorder *metrics.Recorder

// rootCmd is the base command for the fourp-digest CLI.
var rootCmd = &cobra.Command{
	Use:   "fourp-digest",
	Short: "Find and rank recent papers relevant to 4P medicine",
	Long: `fourp-digest searches PubMed for recent articles in a set of journals,
asks a language model to assess each abstract against 4P medicine
(predictive, preventive, personalized, participatory) and writes ranked
CSV and Markdown reports.

Each stage is a subcommand: fetch, classify, and export. Stages hand off
through JSON files so any one of them can be re-run on its own; run
chains all three and schedule repeats run on a cron expression.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if _, err := logging.Setup(os.Stderr, viper.GetString("log-level"), viper.GetString("log-format")); err != nil {
			return err
		}

		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}

		if viper.GetString("metrics-file") != "" {
			recorder = metrics.New()
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		path := viper.GetString("metrics-file")
		if path == "" || recorder == nil {
			return nil
		}
		if err := recorder.WriteTextfile(path); err != nil {
			return fmt.Errorf("writing metrics: %w", err)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./fourp-digest.yaml or ~/.config/fourp-digest/fourp-digest.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, or error")
	rootCmd.PersistentFlags().String("log-format", "text", "log format: text or json")
	rootCmd.PersistentFlags().String("metrics-file", "", "write Prometheus textfile metrics here after the command")
	rootCmd.PersistentFlags().String("journals-file", "journals.yaml", "journal group configuration (YAML or JSON)")

	for _, name := range []string{"log-level", "log-format", "metrics-file", "journals-file"} {
		_ = viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name))
	}
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("fourp-digest")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "fourp-digest"))
		}
	}

	viper.SetEnvPrefix("FOURP_DIGEST")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
