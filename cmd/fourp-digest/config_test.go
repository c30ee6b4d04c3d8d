// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/fourp-digest/internal/secrets"
	"github.com/pdiddy/fourp-digest/pkg/types"
)

func TestSplitList(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"nil", nil, nil},
		{"separate", []string{"Lancet", "BMJ"}, []string{"Lancet", "BMJ"}},
		{"comma joined", []string{"Lancet, BMJ"}, []string{"Lancet", "BMJ"}},
		{"blanks dropped", []string{"", " ,JAMA,"}, []string{"JAMA"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, splitList(tt.in))
		})
	}
}

func TestProviderSecret(t *testing.T) {
	assert.Equal(t, secrets.GoogleAPIKey, providerSecret(types.ProviderGemini))
	assert.Equal(t, secrets.GoogleAPIKey, providerSecret(""))
	assert.Equal(t, secrets.AnthropicAPIKey, providerSecret(types.ProviderClaude))
	assert.Equal(t, secrets.OpenAIAPIKey, providerSecret(types.ProviderOpenAI))
}

func TestBindFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "probe"}
	cmd.Flags().Int("days", 30, "")
	cmd.Flags().String("dir", ".", "")

	require.NoError(t, bindFlags(cmd, map[string]string{
		"probe.days_back": "days",
		"probe.first":     "dir",
		"probe.second":    "dir",
	}))
	require.NoError(t, cmd.Flags().Set("days", "7"))
	require.NoError(t, cmd.Flags().Set("dir", "out"))

	assert.Equal(t, 7, viper.GetInt("probe.days_back"))
	assert.Equal(t, "out", viper.GetString("probe.first"))
	assert.Equal(t, "out", viper.GetString("probe.second"))
}

func TestBindFlagsUnknownFlag(t *testing.T) {
	cmd := &cobra.Command{Use: "probe"}
	err := bindFlags(cmd, map[string]string{"probe.missing": "missing"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no flag --missing")
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"fetch", "classify", "export", "store", "run", "schedule", "version"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}
