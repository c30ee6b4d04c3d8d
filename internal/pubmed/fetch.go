// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pubmed

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/fourp-digest/pkg/types"
)

// Result holds the outcome of one fetch run.
type Result struct {
	Query         string
	IDs           []string
	Articles      []types.Article
	WithAbstracts int
}

// AbstractCoverage returns the percentage of articles carrying an abstract.
func (r Result) AbstractCoverage() float64 {
	if len(r.Articles) == 0 {
		return 0
	}
	return float64(r.WithAbstracts) / float64(len(r.Articles)) * 100
}

// RawXMLPaths names the files for n efetch bodies. A single body goes to path
// itself; several go to path with a 1-based batch number before the
// extension (raw.xml becomes raw.1.xml, raw.2.xml), one XML document each.
func RawXMLPaths(path string, n int) []string {
	if n <= 1 {
		return []string{path}
	}
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	paths := make([]string, n)
	for i := range paths {
		paths[i] = fmt.Sprintf("%s.%d%s", base, i+1, ext)
	}
	return paths
}

// Fetch searches PubMed with the configured journals, window and types,
// downloads the matching records and parses them. Progress lines go to w.
func Fetch(ctx context.Context, c *Client, cfg types.FetchConfig, w io.Writer) (Result, error) {
	journals := cfg.Journals
	if len(journals) == 0 {
		journals = DefaultJournals
	}

	res := Result{Query: BuildQuery(journals, cfg.DaysBack, cfg.ArticleTypes)}
	fmt.Fprintf(w, "searching PubMed: %s\n", res.Query)

	ids, err := c.Search(ctx, res.Query, cfg.MaxResults)
	if err != nil {
		return res, err
	}
	res.IDs = ids
	if len(ids) == 0 {
		fmt.Fprintln(w, "no articles matched")
		return res, nil
	}
	fmt.Fprintf(w, "found %d matching articles\n", len(ids))

	bodies, err := c.Fetch(ctx, ids)
	if err != nil {
		return res, err
	}

	if cfg.RawXMLPath != "" {
		paths := RawXMLPaths(cfg.RawXMLPath, len(bodies))
		for i, body := range bodies {
			if err := os.WriteFile(paths[i], body, 0o644); err != nil {
				fmt.Fprintf(w, "warning: could not save raw XML: %v\n", err)
			}
		}
	}

	for _, body := range bodies {
		articles, err := ParseArticles(body)
		if err != nil {
			return res, err
		}
		res.Articles = append(res.Articles, articles...)
	}
	for _, a := range res.Articles {
		if a.HasAbstract() {
			res.WithAbstracts++
		}
	}
	c.metrics.ArticlesFetched(len(res.Articles))

	return res, nil
}
