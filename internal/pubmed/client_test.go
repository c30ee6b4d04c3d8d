// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pubmed

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/pdiddy/fourp-digest/internal/metrics"
	"github.com/pdiddy/fourp-digest/pkg/types"
)

// eutilsServer records requests and answers esearch and efetch.
type eutilsServer struct {
	mu       sync.Mutex
	searches []*http.Request
	fetchIDs []string
	esearch  string
	efetch   string
}

func (s *eutilsServer) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		s.mu.Lock()
		defer s.mu.Unlock()
		switch {
		case strings.HasSuffix(r.URL.Path, "/esearch.fcgi"):
			s.searches = append(s.searches, r)
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, s.esearch)
		case strings.HasSuffix(r.URL.Path, "/efetch.fcgi"):
			assert.Equal(t, http.MethodPost, r.Method)
			s.fetchIDs = append(s.fetchIDs, r.PostForm.Get("id"))
			w.Header().Set("Content-Type", "text/xml")
			fmt.Fprint(w, s.efetch)
		default:
			http.NotFound(w, r)
		}
	}
}

// newTestClient points eutilsBase at srv and disables pacing.
func newTestClient(t *testing.T, srv *httptest.Server, cfg types.FetchConfig, rec *metrics.Recorder) *Client {
	t.Helper()
	orig := eutilsBase
	eutilsBase = srv.URL + "/"
	t.Cleanup(func() { eutilsBase = orig })

	c := NewClient(srv.Client(), cfg, rec)
	c.limiter = rate.NewLimiter(rate.Inf, 1)
	return c
}

func TestNewClientRateLimit(t *testing.T) {
	anon := NewClient(nil, types.FetchConfig{}, nil)
	assert.Equal(t, rate.Limit(anonymousRate), anon.limiter.Limit())
	assert.NotNil(t, anon.HTTP)

	keyed := NewClient(nil, types.FetchConfig{APIKey: "k"}, nil)
	assert.Equal(t, rate.Limit(keyedRate), keyed.limiter.Limit())
}

func TestSearch(t *testing.T) {
	fake := &eutilsServer{esearch: sampleEsearchJSON}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	c := newTestClient(t, srv, types.FetchConfig{
		APIKey:     "secret",
		Email:      "lab@example.org",
		HTTPConfig: types.HTTPConfig{UserAgent: "fourp-digest/test"},
	}, nil)

	ids, err := c.Search(context.Background(), `("BMJ"[Journal])`, 25)
	require.NoError(t, err)
	assert.Equal(t, []string{"40111111", "40222222", "40333333"}, ids)

	require.Len(t, fake.searches, 1)
	q := fake.searches[0].Form
	assert.Equal(t, "pubmed", q.Get("db"))
	assert.Equal(t, `("BMJ"[Journal])`, q.Get("term"))
	assert.Equal(t, "25", q.Get("retmax"))
	assert.Equal(t, "json", q.Get("retmode"))
	assert.Equal(t, "date", q.Get("sort"))
	assert.Equal(t, toolName, q.Get("tool"))
	assert.Equal(t, "lab@example.org", q.Get("email"))
	assert.Equal(t, "secret", q.Get("api_key"))
	assert.Equal(t, "fourp-digest/test", fake.searches[0].Header.Get("User-Agent"))
}

func TestSearchDefaultsMax(t *testing.T) {
	fake := &eutilsServer{esearch: sampleEsearchJSON}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	c := newTestClient(t, srv, types.FetchConfig{}, nil)
	_, err := c.Search(context.Background(), "x", 0)
	require.NoError(t, err)
	assert.Equal(t, "250", fake.searches[0].Form.Get("retmax"))
	assert.Empty(t, fake.searches[0].Form.Get("api_key"))
}

func TestSearchAPIError(t *testing.T) {
	fake := &eutilsServer{esearch: `{"esearchresult":{"ERROR":"Invalid query"}}`}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	c := newTestClient(t, srv, types.FetchConfig{}, nil)
	_, err := c.Search(context.Background(), "x", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid query")
}

func TestSearchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer srv.Close()

	rec := metrics.New()
	c := newTestClient(t, srv, types.FetchConfig{}, rec)
	_, err := c.Search(context.Background(), "x", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 400")
	assert.Contains(t, err.Error(), "bad request")
}

func TestFetchBatches(t *testing.T) {
	fake := &eutilsServer{efetch: sampleEfetchXML}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	c := newTestClient(t, srv, types.FetchConfig{}, nil)

	ids := make([]string, fetchBatchSize+5)
	for i := range ids {
		ids[i] = fmt.Sprintf("%d", 1000+i)
	}
	bodies, err := c.Fetch(context.Background(), ids)
	require.NoError(t, err)
	assert.Len(t, bodies, 2)

	require.Len(t, fake.fetchIDs, 2)
	assert.Len(t, strings.Split(fake.fetchIDs[0], ","), fetchBatchSize)
	assert.Equal(t, "1200,1201,1202,1203,1204", fake.fetchIDs[1])
}

func TestFetchOrchestration(t *testing.T) {
	fake := &eutilsServer{esearch: sampleEsearchJSON, efetch: sampleEfetchXML}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	rawPath := filepath.Join(t.TempDir(), "raw.xml")
	c := newTestClient(t, srv, types.FetchConfig{}, nil)

	var out bytes.Buffer
	res, err := Fetch(context.Background(), c, types.FetchConfig{
		Journals:     []string{"BMJ"},
		DaysBack:     14,
		ArticleTypes: []string{"Review"},
		RawXMLPath:   rawPath,
	}, &out)
	require.NoError(t, err)

	assert.Equal(t, `("BMJ"[Journal]) AND "last 14 days"[PDat] AND ("Review"[Publication Type]) AND hasabstract[text]`, res.Query)
	assert.Len(t, res.IDs, 3)
	assert.Len(t, res.Articles, 3)
	assert.Equal(t, 2, res.WithAbstracts)
	assert.InDelta(t, 66.67, res.AbstractCoverage(), 0.01)

	raw, err := os.ReadFile(rawPath)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "<PubmedArticleSet>")

	assert.Contains(t, out.String(), "searching PubMed")
	assert.Contains(t, out.String(), "found 3 matching articles")
}

func TestFetchRawXMLPerBatch(t *testing.T) {
	ids := make([]string, fetchBatchSize+5)
	for i := range ids {
		ids[i] = fmt.Sprintf(`"%d"`, 1000+i)
	}
	fake := &eutilsServer{
		esearch: `{"esearchresult":{"count":"205","idlist":[` + strings.Join(ids, ",") + `]}}`,
		efetch:  sampleEfetchXML,
	}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	dir := t.TempDir()
	c := newTestClient(t, srv, types.FetchConfig{}, nil)
	_, err := Fetch(context.Background(), c, types.FetchConfig{
		RawXMLPath: filepath.Join(dir, "raw.xml"),
	}, &bytes.Buffer{})
	require.NoError(t, err)

	assert.NoFileExists(t, filepath.Join(dir, "raw.xml"))
	for _, name := range []string{"raw.1.xml", "raw.2.xml"} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err, name)
		assert.Equal(t, 1, strings.Count(string(data), "<PubmedArticleSet>"), name)
		articles, err := ParseArticles(data)
		require.NoError(t, err, name)
		assert.Len(t, articles, 3, name)
	}
}

func TestRawXMLPaths(t *testing.T) {
	assert.Equal(t, []string{"out/raw.xml"}, RawXMLPaths("out/raw.xml", 1))
	assert.Equal(t, []string{"out/raw.xml"}, RawXMLPaths("out/raw.xml", 0))
	assert.Equal(t, []string{"out/raw.1.xml", "out/raw.2.xml", "out/raw.3.xml"}, RawXMLPaths("out/raw.xml", 3))
	assert.Equal(t, []string{"dump.1", "dump.2"}, RawXMLPaths("dump", 2))
}

func TestFetchNoMatches(t *testing.T) {
	fake := &eutilsServer{esearch: `{"esearchresult":{"count":"0","idlist":[]}}`}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	c := newTestClient(t, srv, types.FetchConfig{}, nil)
	var out bytes.Buffer
	res, err := Fetch(context.Background(), c, types.FetchConfig{}, &out)
	require.NoError(t, err)
	assert.Empty(t, res.Articles)
	assert.Empty(t, fake.fetchIDs, "efetch must not be called without ids")
	assert.Zero(t, res.AbstractCoverage())
	assert.Contains(t, out.String(), "no articles matched")
}

func TestFetchEmptyEfetchBody(t *testing.T) {
	fake := &eutilsServer{esearch: sampleEsearchJSON, efetch: ""}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	c := newTestClient(t, srv, types.FetchConfig{}, nil)
	_, err := Fetch(context.Background(), c, types.FetchConfig{}, &bytes.Buffer{})
	assert.ErrorIs(t, err, ErrEmptyResponse)
}
