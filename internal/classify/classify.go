// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package classify scores article abstracts against the 4P medicine taxonomy
// by sending each one to a language-model backend.
package classify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/pdiddy/fourp-digest/internal/metrics"
	"github.com/pdiddy/fourp-digest/internal/resilience/circuitbreaker"
	"github.com/pdiddy/fourp-digest/internal/resilience/retry"
	"github.com/pdiddy/fourp-digest/pkg/types"
)

// Defaults applied when ClassifyConfig leaves a field at zero.
const (
	DefaultMaxRetries     = 3
	DefaultRequestTimeout = 60 * time.Second
	DefaultWorkers        = 1
)

// Summary holds counts from one classify run.
type Summary struct {
	RunID    string
	Assessed int
	Relevant int
	Skipped  int
	Failed   int
}

// Total returns the number of articles considered.
func (s Summary) Total() int {
	return s.Assessed + s.Skipped + s.Failed
}

// HasFailures reports whether any article could not be assessed.
func (s Summary) HasFailures() bool {
	return s.Failed > 0
}

// Classifier assesses articles with a Backend guarded by retry, a circuit
// breaker and an optional request pacer.
type Classifier struct {
	backend Backend
	breaker *circuitbreaker.CircuitBreaker
	retry   retry.Config
	timeout time.Duration
	workers int
	limiter *rate.Limiter
	metrics *metrics.Recorder

	// Skip reports PMIDs that already have an assessment and should not be
	// sent again. Nil skips nothing.
	Skip func(pmid string) bool

	now func() time.Time
}

// New creates a Classifier for backend using the limits in cfg. rec may be nil.
func New(backend Backend, cfg types.ClassifyConfig, rec *metrics.Recorder) *Classifier {
	rc := retry.AIAPIConfig()
	rc.MaxAttempts = cfg.MaxRetries
	if rc.MaxAttempts <= 0 {
		rc.MaxAttempts = DefaultMaxRetries
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	limit := rate.Inf
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.RequestsPerMinute))
	}

	return &Classifier{
		backend: backend,
		breaker: circuitbreaker.New(circuitbreaker.LLMConfig(backend.Name()), isCallerError),
		retry:   rc,
		timeout: timeout,
		workers: workers,
		limiter: rate.NewLimiter(limit, 1),
		metrics: rec,
		now:     time.Now,
	}
}

// isCallerError reports failures that say nothing about the API's health.
func isCallerError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, ErrMalformedReply)
}

// Run assesses every article that has an abstract, up to maxArticles when
// positive. Articles that fail after retries are logged and left out; the
// returned assessments keep input order. Progress lines go to w. Run only
// returns an error when ctx ends.
func (c *Classifier) Run(ctx context.Context, articles []types.Article, maxArticles int, w io.Writer) ([]types.Assessment, Summary, error) {
	sum := Summary{RunID: uuid.NewString()}

	work := WithAbstracts(articles)
	fmt.Fprintf(w, "analyzing %d articles, %d with abstracts\n", len(articles), len(work))
	if len(work) == 0 {
		fmt.Fprintln(w, "no articles with abstracts, nothing to assess")
		return []types.Assessment{}, sum, nil
	}
	if maxArticles > 0 && len(work) > maxArticles {
		work = work[:maxArticles]
		fmt.Fprintf(w, "limiting analysis to %d articles\n", maxArticles)
	}

	results := make([]*types.Assessment, len(work))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i, art := range work {
		if c.Skip != nil && c.Skip(art.ID) {
			mu.Lock()
			sum.Skipped++
			fmt.Fprintf(w, "[%d/%d] skip %s: already assessed\n", i+1, len(work), art.ID)
			mu.Unlock()
			c.metrics.Assessment(c.backend.Name(), metrics.OutcomeSkipped)
			continue
		}

		g.Go(func() error {
			a, err := c.Assess(gctx, art)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				sum.Failed++
				fmt.Fprintf(w, "[%d/%d] FAIL %s: %v\n", i+1, len(work), art.ID, err)
				slog.Warn("assessment failed, skipping article",
					slog.String("pmid", art.ID),
					slog.String("provider", c.backend.Name()),
					slog.Any("error", err))
				c.metrics.Assessment(c.backend.Name(), metrics.OutcomeFailed)
				return nil
			}

			a.RunID = sum.RunID
			results[i] = &a
			sum.Assessed++
			if a.Relevant {
				sum.Relevant++
			}
			verdict := "not relevant"
			if a.Relevant {
				verdict = "relevant"
			}
			fmt.Fprintf(w, "[%d/%d] %s: %s (score %d)\n", i+1, len(work), art.ID, verdict, a.Score)
			c.metrics.Assessment(c.backend.Name(), metrics.OutcomeAssessed)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, sum, fmt.Errorf("classify interrupted: %w", err)
	}

	out := make([]types.Assessment, 0, sum.Assessed)
	for _, a := range results {
		if a != nil {
			out = append(out, *a)
		}
	}
	c.metrics.StageCompleted("classify", c.now())
	return out, sum, nil
}

// Assess sends one article to the backend with pacing, a per-attempt timeout,
// retry and the circuit breaker, and parses the reply.
func (c *Classifier) Assess(ctx context.Context, article types.Article) (types.Assessment, error) {
	prompt, err := renderPrompt(article)
	if err != nil {
		return types.Assessment{}, fmt.Errorf("rendering prompt: %w", err)
	}

	provider := c.backend.Name()
	var result types.Assessment
	err = retry.WithBackoff(ctx, c.retry, func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		start := time.Now()
		text, err := c.breaker.Call(func() (string, error) {
			return c.backend.Assess(attemptCtx, prompt)
		})
		c.metrics.LLMDuration(provider, time.Since(start))
		if err != nil {
			if circuitbreaker.IsOpenErr(err) {
				return retry.Permanent(fmt.Errorf("%s unavailable: circuit breaker open: %w", c.breaker.Name(), err))
			}
			if errors.Is(err, ErrMalformedReply) {
				return retry.Permanent(err)
			}
			return err
		}

		a, err := ParseReply(text, article)
		if err != nil {
			return retry.Permanent(err)
		}
		result = a
		return nil
	}, func(int, error) {
		c.metrics.LLMRetry(provider)
	})
	if err != nil {
		return types.Assessment{}, err
	}

	result.Provider = provider
	result.Model = c.backend.Model()
	result.AssessedAt = c.now().UTC()
	return result, nil
}

// WithAbstracts returns the articles whose abstract is not blank.
func WithAbstracts(articles []types.Article) []types.Article {
	out := make([]types.Article, 0, len(articles))
	for _, a := range articles {
		if a.HasAbstract() {
			out = append(out, a)
		}
	}
	return out
}
