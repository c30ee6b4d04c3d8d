// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pubmed

import (
	"fmt"
	"log/slog"
	"os"
	"sort"

	"go.yaml.in/yaml/v3"
)

// CustomGroup names a journal selection given explicitly rather than by group.
const CustomGroup = "custom"

// JournalConfig maps group names to journal title lists. The file may be
// YAML or JSON, since JSON is a subset of YAML.
type JournalConfig struct {
	Groups       map[string][]string `yaml:"journal_groups" json:"journal_groups"`
	DefaultGroup string              `yaml:"default_group" json:"default_group"`
}

// DefaultJournalConfig is used when no journal file exists.
func DefaultJournalConfig() JournalConfig {
	return JournalConfig{
		Groups: map[string][]string{
			"major_medical": {"Lancet", "The New England journal of medicine", "JAMA", "BMJ"},
		},
		DefaultGroup: "major_medical",
	}
}

// LoadJournalConfig reads path. A missing file yields DefaultJournalConfig
// with a warning; an unparsable file or one whose default group does not
// exist is an error.
func LoadJournalConfig(path string) (JournalConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Warn("journal configuration not found, using built-in groups", slog.String("path", path))
			return DefaultJournalConfig(), nil
		}
		return JournalConfig{}, fmt.Errorf("reading journal config: %w", err)
	}

	var cfg JournalConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return JournalConfig{}, fmt.Errorf("parsing journal config %s: %w", path, err)
	}
	if len(cfg.Groups) == 0 {
		return JournalConfig{}, fmt.Errorf("journal config %s defines no journal_groups", path)
	}
	if _, ok := cfg.Groups[cfg.DefaultGroup]; !ok {
		return JournalConfig{}, fmt.Errorf("journal config %s: default_group %q is not defined", path, cfg.DefaultGroup)
	}
	return cfg, nil
}

// GroupNames returns the configured group names sorted.
func (c JournalConfig) GroupNames() []string {
	names := make([]string, 0, len(c.Groups))
	for name := range c.Groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve picks the journals to search. Explicit journals win and are
// reported as the custom group. Otherwise the named group is used, falling
// back to the default group with a warning when the name is unknown.
func (c JournalConfig) Resolve(group string, explicit []string) ([]string, string) {
	if len(explicit) > 0 {
		return explicit, CustomGroup
	}
	if group != "" {
		if journals, ok := c.Groups[group]; ok {
			return journals, group
		}
		slog.Warn("journal group not found, using default group",
			slog.String("group", group),
			slog.String("default", c.DefaultGroup))
	}
	if journals, ok := c.Groups[c.DefaultGroup]; ok {
		return journals, c.DefaultGroup
	}
	return DefaultJournals, CustomGroup
}
