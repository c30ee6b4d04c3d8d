// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs fetch, classify and export back to back, once or on
// a cron schedule.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/pdiddy/fourp-digest/internal/classify"
	"github.com/pdiddy/fourp-digest/internal/metrics"
	"github.com/pdiddy/fourp-digest/internal/pubmed"
	"github.com/pdiddy/fourp-digest/internal/report"
	"github.com/pdiddy/fourp-digest/internal/store"
	"github.com/pdiddy/fourp-digest/pkg/types"
)

// Options wires the stages of one pipeline run.
type Options struct {
	Config types.PipelineConfig

	// Group names the journal selection for the articles filename.
	Group string

	Backend    classify.Backend
	HTTPClient *http.Client

	// Store, when set, receives articles and assessments and backs
	// Classify.SkipAssessed.
	Store   *store.Store
	Metrics *metrics.Recorder

	Now func() time.Time
}

// Result records what each stage produced.
type Result struct {
	ArticlesPath    string
	AssessmentsPath string
	Fetch           pubmed.Result
	Classify        classify.Summary
	Export          report.Result
}

// Run executes fetch, classify and export. A fetch that matches nothing ends
// the run early without error.
func Run(ctx context.Context, opts Options, w io.Writer) (Result, error) {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	cfg := opts.Config
	var res Result

	fmt.Fprintln(w, "== fetch ==")
	client := pubmed.NewClient(opts.HTTPClient, cfg.Fetch, opts.Metrics)
	fetched, err := pubmed.Fetch(ctx, client, cfg.Fetch, w)
	if err != nil {
		return res, fmt.Errorf("fetch: %w", err)
	}
	res.Fetch = fetched
	opts.Metrics.StageCompleted("fetch", now())
	if len(fetched.Articles) == 0 {
		return res, nil
	}

	journals := cfg.Fetch.Journals
	if len(journals) == 0 {
		journals = pubmed.DefaultJournals
	}
	group := opts.Group
	if group == "" {
		group = pubmed.CustomGroup
	}
	res.ArticlesPath = filepath.Join(outputDir(cfg.Fetch.OutputDir), pubmed.OutputFilename(group, journals, now()))
	if err := pubmed.WriteArticles(res.ArticlesPath, fetched.Articles); err != nil {
		return res, fmt.Errorf("writing articles: %w", err)
	}
	fmt.Fprintf(w, "saved %d articles to %s (%.1f%% with abstracts)\n",
		len(fetched.Articles), res.ArticlesPath, fetched.AbstractCoverage())

	if opts.Store != nil {
		if _, err := opts.Store.SaveArticles(ctx, fetched.Articles); err != nil {
			slog.Warn("could not store articles", slog.Any("error", err))
		}
	}

	fmt.Fprintln(w, "== classify ==")
	classifier := classify.New(opts.Backend, cfg.Classify, opts.Metrics)
	if err := SkipAssessed(ctx, classifier, opts.Store, cfg.Classify.SkipAssessed, opts.Backend.Model()); err != nil {
		return res, err
	}
	assessments, sum, err := classifier.Run(ctx, fetched.Articles, cfg.Classify.MaxArticles, w)
	if err != nil {
		return res, err
	}
	res.Classify = sum

	res.AssessmentsPath = filepath.Join(outputDir(cfg.Classify.OutputDir), classify.OutputFilename(now()))
	if err := classify.WriteAssessments(res.AssessmentsPath, assessments); err != nil {
		return res, fmt.Errorf("writing assessments: %w", err)
	}
	fmt.Fprintf(w, "saved %d assessments to %s\n", len(assessments), res.AssessmentsPath)

	if opts.Store != nil {
		if _, err := opts.Store.SaveAssessments(ctx, assessments); err != nil {
			slog.Warn("could not store assessments", slog.Any("error", err))
		}
	}

	fmt.Fprintln(w, "== export ==")
	exported, err := report.Export(assessments, cfg.Export, now(), w)
	if err != nil {
		return res, fmt.Errorf("export: %w", err)
	}
	res.Export = exported
	opts.Metrics.StageCompleted("export", now())

	return res, nil
}

// SkipAssessed points c at the PMIDs st already holds for model. It does
// nothing unless enabled and st is set.
func SkipAssessed(ctx context.Context, c *classify.Classifier, st *store.Store, enabled bool, model string) error {
	if !enabled || st == nil {
		return nil
	}
	done, err := st.Assessed(ctx, model)
	if err != nil {
		return fmt.Errorf("loading assessed articles: %w", err)
	}
	c.Skip = func(pmid string) bool { return done[pmid] }
	return nil
}

func outputDir(dir string) string {
	if dir == "" {
		return "."
	}
	return dir
}
