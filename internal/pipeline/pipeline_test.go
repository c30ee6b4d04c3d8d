// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/fourp-digest/internal/classify"
	"github.com/pdiddy/fourp-digest/internal/store"
	"github.com/pdiddy/fourp-digest/pkg/types"
)

const esearchBody = `{"esearchresult":{"count":"2","idlist":["501","502"]}}`

const efetchBody = `<PubmedArticleSet>
<PubmedArticle><MedlineCitation><PMID>501</PMID><Article>
  <Journal><Title>Lancet</Title><JournalIssue><PubDate><Year>2025</Year></PubDate></JournalIssue></Journal>
  <ArticleTitle>Genomic screening trial</ArticleTitle>
  <Abstract><AbstractText>Screening 40 000 adults.</AbstractText></Abstract>
</Article></MedlineCitation></PubmedArticle>
<PubmedArticle><MedlineCitation><PMID>502</PMID><Article>
  <Journal><Title>BMJ</Title><JournalIssue><PubDate><Year>2025</Year></PubDate></JournalIssue></Journal>
  <ArticleTitle>Parking fees</ArticleTitle>
  <Abstract><AbstractText>Fees rose.</AbstractText></Abstract>
</Article></MedlineCitation></PubmedArticle>
</PubmedArticleSet>`

// redirectTransport sends every request to target, keeping path and query.
type redirectTransport struct {
	target *url.URL
}

func (rt redirectTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.URL.Scheme = rt.target.Scheme
	r.URL.Host = rt.target.Host
	r.Host = rt.target.Host
	return http.DefaultTransport.RoundTrip(r)
}

func fakeEUtils(t *testing.T, esearch string) *http.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "esearch.fcgi"):
			fmt.Fprint(w, esearch)
		case strings.HasSuffix(r.URL.Path, "efetch.fcgi"):
			fmt.Fprint(w, efetchBody)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	return &http.Client{Transport: redirectTransport{target: u}}
}

// titleBackend marks articles relevant when their prompt mentions "Genomic".
type titleBackend struct {
	calls atomic.Int32
}

func (b *titleBackend) Name() string  { return "stub" }
func (b *titleBackend) Model() string { return "stub-1" }

func (b *titleBackend) Assess(_ context.Context, prompt string) (string, error) {
	b.calls.Add(1)
	if strings.Contains(prompt, "Genomic") {
		return "```json\n{\"is_relevant\": true, \"aspects\": [\"Predictive\"], \"is_large_trial\": true, \"summary\": \"Big.\", \"impact_score\": 8}\n```", nil
	}
	return `{"is_relevant": false, "impact_score": 2}`, nil
}

func testOptions(t *testing.T, httpClient *http.Client, backend classify.Backend) Options {
	dir := t.TempDir()
	return Options{
		Config: types.PipelineConfig{
			Fetch:    types.FetchConfig{Journals: []string{"Lancet", "BMJ"}, OutputDir: dir},
			Classify: types.ClassifyConfig{OutputDir: dir},
			Export:   types.ExportConfig{OutputDir: dir},
			Store:    types.StoreConfig{DataDir: dir},
		},
		Group:      "major_medical",
		Backend:    backend,
		HTTPClient: httpClient,
		Now:        func() time.Time { return time.Date(2025, 4, 20, 8, 0, 0, 0, time.UTC) },
	}
}

func TestRun(t *testing.T) {
	backend := &titleBackend{}
	opts := testOptions(t, fakeEUtils(t, esearchBody), backend)
	st, err := store.Open(opts.Config.Store)
	require.NoError(t, err)
	defer st.Close()
	opts.Store = st

	var out bytes.Buffer
	res, err := Run(context.Background(), opts, &out)
	require.NoError(t, err)

	assert.Len(t, res.Fetch.Articles, 2)
	assert.True(t, strings.HasSuffix(res.ArticlesPath, "medical_papers_major_medical_20250420.json"))
	assert.True(t, strings.HasSuffix(res.AssessmentsPath, "4p_analysis_20250420.json"))
	assert.Equal(t, 2, res.Classify.Assessed)
	assert.Equal(t, 1, res.Classify.Relevant)
	assert.Equal(t, 1, res.Export.Relevant)
	assert.FileExists(t, res.ArticlesPath)
	assert.FileExists(t, res.AssessmentsPath)
	assert.FileExists(t, res.Export.MarkdownPath)
	assert.Contains(t, out.String(), "1. Genomic screening trial (Impact: 8/10)")

	stored, err := st.Query(context.Background(), store.QueryOptions{RelevantOnly: true})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "501", stored[0].Article.ID)

	// A second run with SkipAssessed sends nothing to the backend.
	opts.Config.Classify.SkipAssessed = true
	_, err = Run(context.Background(), opts, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, int32(2), backend.calls.Load())
}

func TestRunNoMatches(t *testing.T) {
	backend := &titleBackend{}
	opts := testOptions(t, fakeEUtils(t, `{"esearchresult":{"idlist":[]}}`), backend)

	res, err := Run(context.Background(), opts, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Empty(t, res.ArticlesPath)
	assert.Zero(t, backend.calls.Load())
}

func TestRunFetchError(t *testing.T) {
	opts := testOptions(t, fakeEUtils(t, `{"esearchresult":{"ERROR":"bad term"}}`), &titleBackend{})
	_, err := Run(context.Background(), opts, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch:")
}

func TestValidateSchedule(t *testing.T) {
	assert.NoError(t, ValidateSchedule("30 5 * * *"))
	assert.NoError(t, ValidateSchedule("@daily"))
	assert.NoError(t, ValidateSchedule("@every 6h"))
	assert.Error(t, ValidateSchedule(""))
	assert.Error(t, ValidateSchedule("61 * * * *"))
}

func TestSchedule(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ran := make(chan struct{}, 4)
	done := make(chan error, 1)
	go func() {
		done <- Schedule(ctx, "@every 1s", time.UTC, func(context.Context) error {
			ran <- struct{}{}
			return errors.New("job failures do not stop the schedule")
		})
	}()

	for range 2 {
		select {
		case <-ran:
		case <-time.After(5 * time.Second):
			t.Fatal("scheduled job did not run")
		}
	}
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Schedule did not return after cancel")
	}
}

func TestScheduleInvalid(t *testing.T) {
	err := Schedule(context.Background(), "not a schedule", nil, func(context.Context) error { return nil })
	assert.Error(t, err)
}
