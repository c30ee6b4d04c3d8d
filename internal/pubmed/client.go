// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pubmed queries NCBI E-utilities for recent journal articles and
// parses the efetch XML into Article records.
package pubmed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/time/rate"

	"github.com/pdiddy/fourp-digest/internal/httputil"
	"github.com/pdiddy/fourp-digest/internal/metrics"
	"github.com/pdiddy/fourp-digest/pkg/types"
)

// eutilsBase is the E-utilities endpoint root. Declared as a var so tests
// can substitute an httptest server.
var eutilsBase = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/"

// toolName identifies this program to NCBI.
const toolName = "fourp-digest"

// NCBI request budgets: 3 requests/second anonymously, 10 with an API key.
const (
	anonymousRate = 3
	keyedRate     = 10
)

// fetchBatchSize bounds the PMIDs sent per efetch call. Larger id lists are
// posted in several calls because NCBI truncates or empties oversized replies.
const fetchBatchSize = 200

// Client talks to esearch and efetch.
type Client struct {
	HTTP      *http.Client
	UserAgent string
	APIKey    string
	Email     string

	limiter *rate.Limiter
	metrics *metrics.Recorder
}

// NewClient returns a Client paced to NCBI's published request budget.
func NewClient(httpClient *http.Client, cfg types.FetchConfig, rec *metrics.Recorder) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	perSecond := anonymousRate
	if cfg.APIKey != "" {
		perSecond = keyedRate
	}
	return &Client{
		HTTP:      httpClient,
		UserAgent: cfg.UserAgent,
		APIKey:    cfg.APIKey,
		Email:     cfg.Email,
		limiter:   rate.NewLimiter(rate.Limit(perSecond), 1),
		metrics:   rec,
	}
}

// esearchResponse is the JSON envelope returned by esearch with retmode=json.
type esearchResponse struct {
	Result struct {
		Count  string   `json:"count"`
		IDList []string `json:"idlist"`
		Error  string   `json:"ERROR"`
	} `json:"esearchresult"`
}

// Search runs esearch for term and returns matching PMIDs, newest first.
func (c *Client) Search(ctx context.Context, term string, maxResults int) ([]string, error) {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	params := c.baseParams()
	params.Set("term", term)
	params.Set("retmax", strconv.Itoa(maxResults))
	params.Set("retmode", "json")
	params.Set("sort", "date")

	body, err := c.do(ctx, "esearch", http.MethodGet, params)
	if err != nil {
		return nil, err
	}

	var resp esearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing esearch response: %w", err)
	}
	if resp.Result.Error != "" {
		return nil, fmt.Errorf("esearch error: %s", resp.Result.Error)
	}
	return resp.Result.IDList, nil
}

// Fetch runs efetch for ids and returns the raw XML bodies, one per batch.
func (c *Client) Fetch(ctx context.Context, ids []string) ([][]byte, error) {
	var bodies [][]byte
	for start := 0; start < len(ids); start += fetchBatchSize {
		end := min(start+fetchBatchSize, len(ids))

		params := c.baseParams()
		params.Set("id", strings.Join(ids[start:end], ","))
		params.Set("retmode", "xml")
		params.Set("rettype", "abstract")

		body, err := c.do(ctx, "efetch", http.MethodPost, params)
		if err != nil {
			return nil, fmt.Errorf("fetching records %d-%d: %w", start+1, end, err)
		}
		bodies = append(bodies, body)
	}
	return bodies, nil
}

func (c *Client) baseParams() url.Values {
	params := url.Values{}
	params.Set("db", "pubmed")
	params.Set("tool", toolName)
	if c.Email != "" {
		params.Set("email", c.Email)
	}
	if c.APIKey != "" {
		params.Set("api_key", c.APIKey)
	}
	return params
}

// do waits for the rate limiter, issues the request with throttling retries
// and returns the body of a 200 response.
func (c *Client) do(ctx context.Context, endpoint, method string, params url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	target := eutilsBase + endpoint + ".fcgi"
	var (
		req *http.Request
		err error
	)
	if method == http.MethodPost {
		req, err = http.NewRequestWithContext(ctx, method, target, strings.NewReader(params.Encode()))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	} else {
		req, err = http.NewRequestWithContext(ctx, method, target+"?"+params.Encode(), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("creating %s request: %w", endpoint, err)
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, c.HTTP, req, 0)
	if err != nil {
		c.metrics.EUtilsRequest(endpoint, 0)
		return nil, fmt.Errorf("%s request: %w", endpoint, err)
	}
	defer resp.Body.Close()
	c.metrics.EUtilsRequest(endpoint, resp.StatusCode)

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%s returned HTTP %d: %s", endpoint, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s response: %w", endpoint, err)
	}
	return body, nil
}
