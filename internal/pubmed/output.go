// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pubmed

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/pdiddy/fourp-digest/pkg/types"
)

// ArticlesFilePrefix starts every fetch output filename.
const ArticlesFilePrefix = "medical_papers_"

const fileDateFmt = "20060102"

// OutputFilename names a fetch output file after the journal selection:
// the group name, the sanitized journal name for a single custom journal,
// or custom_<n>_journals for several.
func OutputFilename(group string, journals []string, now time.Time) string {
	label := group
	if group == CustomGroup {
		if len(journals) == 1 {
			label = sanitizeJournal(journals[0])
		} else {
			label = fmt.Sprintf("custom_%d_journals", len(journals))
		}
	}
	return ArticlesFilePrefix + label + "_" + now.Format(fileDateFmt) + ".json"
}

// sanitizeJournal lowercases, turns spaces into underscores and keeps only
// letters, digits and underscores.
func sanitizeJournal(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.ReplaceAll(name, " ", "_")) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// WriteArticles saves articles as indented JSON.
func WriteArticles(path string, articles []types.Article) error {
	if articles == nil {
		articles = []types.Article{}
	}
	data, err := json.MarshalIndent(articles, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling articles: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadArticles loads a file written by WriteArticles.
func ReadArticles(path string) ([]types.Article, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading articles file: %w", err)
	}
	var articles []types.Article
	if err := json.Unmarshal(data, &articles); err != nil {
		return nil, fmt.Errorf("parsing articles file %s: %w", path, err)
	}
	return articles, nil
}

// LatestArticlesFile returns the most recently modified fetch output file in
// dir, or an error when there is none.
func LatestArticlesFile(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", dir, err)
	}

	var (
		latest     string
		latestTime time.Time
	)
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, ArticlesFilePrefix) || !strings.HasSuffix(name, ".json") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if latest == "" || info.ModTime().After(latestTime) {
			latest = filepath.Join(dir, name)
			latestTime = info.ModTime()
		}
	}
	if latest == "" {
		return "", fmt.Errorf("no %s*.json files in %s: run fetch first", ArticlesFilePrefix, dir)
	}
	return latest, nil
}
