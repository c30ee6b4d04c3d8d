// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/fourp-digest/pkg/types"
)

// --- test helpers ---

func testStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(types.StoreConfig{DataDir: dir, MaxResults: 20})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, dir
}

func strPtr(s string) *string { return &s }

func sampleArticle(id, title, journal, abstract string) types.Article {
	return types.Article{
		ID:               id,
		Title:            title,
		Journal:          journal,
		PublicationDate:  "2025 Apr",
		Abstract:         abstract,
		URL:              types.ArticleURL(id),
		Authors:          []string{"Ada Okafor"},
		PublicationTypes: []string{"Journal Article"},
	}
}

func sampleAssessments() []types.Assessment {
	at := time.Date(2025, 4, 9, 12, 0, 0, 0, time.UTC)
	return []types.Assessment{
		{
			Article:         sampleArticle("1", "Polygenic risk scores for prevention", "Lancet", "Genomic screening of adults."),
			Relevant:        true,
			Aspects:         []types.Aspect{types.AspectPredictive, types.AspectPreventive},
			LargeTrial:      true,
			Summary:         "Large screening trial.",
			NotableFindings: strPtr("Population scale."),
			Score:           9,
			Provider:        "gemini",
			Model:           "gemini-2.5-pro",
			RunID:           "run-1",
			AssessedAt:      at,
		},
		{
			Article:    sampleArticle("2", "Shared decision making", "BMJ", "Patients co-designed care plans."),
			Relevant:   true,
			Aspects:    []types.Aspect{types.AspectParticipatory},
			Summary:    "Participatory care.",
			Score:      6,
			Provider:   "gemini",
			Model:      "gemini-2.5-pro",
			RunID:      "run-1",
			AssessedAt: at,
		},
		{
			Article:    sampleArticle("3", "Hospital parking costs", "BMJ", "Parking fees rose."),
			Relevant:   false,
			Aspects:    []types.Aspect{},
			Score:      1,
			Provider:   "gemini",
			Model:      "gemini-2.5-pro",
			RunID:      "run-1",
			AssessedAt: at,
		},
	}
}

func seed(t *testing.T, s *Store) {
	t.Helper()
	n, err := s.SaveAssessments(context.Background(), sampleAssessments())
	require.NoError(t, err)
	require.Equal(t, 3, n)
}

func queryIDs(t *testing.T, s *Store, opts QueryOptions) []string {
	t.Helper()
	got, err := s.Query(context.Background(), opts)
	require.NoError(t, err)
	ids := make([]string, len(got))
	for i, a := range got {
		ids[i] = a.Article.ID
	}
	return ids
}

// --- Open ---

func TestOpenCreatesDBFile(t *testing.T) {
	s, dir := testStore(t)
	assert.FileExists(t, filepath.Join(dir, "index", "digest.db"))
	assert.Equal(t, filepath.Join(dir, "index", "digest.db"), s.Path())
}

func TestOpenIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	s1, err := Open(types.StoreConfig{DataDir: dir})
	require.NoError(t, err)
	_, err = s1.SaveArticles(context.Background(), []types.Article{sampleArticle("1", "T", "J", "A")})
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(types.StoreConfig{DataDir: dir})
	require.NoError(t, err)
	defer s2.Close()
	assert.Equal(t, defaultMaxResults, s2.maxResults)

	var count int
	require.NoError(t, s2.db.QueryRow(`SELECT count(*) FROM articles`).Scan(&count))
	assert.Equal(t, 1, count)
}

// --- Save ---

func TestSaveArticlesUpserts(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()

	n, err := s.SaveArticles(ctx, []types.Article{
		sampleArticle("1", "Old title", "BMJ", "A"),
		{Title: "no id"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = s.SaveArticles(ctx, []types.Article{sampleArticle("1", "New title", "BMJ", "A")})
	require.NoError(t, err)

	var title string
	require.NoError(t, s.db.QueryRow(`SELECT title FROM articles WHERE pmid = '1'`).Scan(&title))
	assert.Equal(t, "New title", title)
}

func TestSaveAssessmentsUpsertsPerModel(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()
	seed(t, s)

	again := sampleAssessments()[:1]
	again[0].Score = 4
	_, err := s.SaveAssessments(ctx, again)
	require.NoError(t, err)

	other := sampleAssessments()[:1]
	other[0].Model = "claude-sonnet-4-5-20250929"
	other[0].Provider = "claude"
	_, err = s.SaveAssessments(ctx, other)
	require.NoError(t, err)

	var count int
	require.NoError(t, s.db.QueryRow(`SELECT count(*) FROM assessments WHERE pmid = '1'`).Scan(&count))
	assert.Equal(t, 2, count)

	var score int
	require.NoError(t, s.db.QueryRow(
		`SELECT impact_score FROM assessments WHERE pmid = '1' AND model = 'gemini-2.5-pro'`).Scan(&score))
	assert.Equal(t, 4, score)
}

func TestAssessed(t *testing.T) {
	s, _ := testStore(t)
	seed(t, s)

	got, err := s.Assessed(context.Background(), "gemini-2.5-pro")
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"1": true, "2": true, "3": true}, got)

	got, err = s.Assessed(context.Background(), "other")
	require.NoError(t, err)
	assert.Empty(t, got)
}

// --- Query ---

func TestQueryRoundTripsFields(t *testing.T) {
	s, _ := testStore(t)
	seed(t, s)

	got, err := s.Query(context.Background(), QueryOptions{})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, sampleAssessments()[0], got[0])
	assert.Nil(t, got[1].NotableFindings)
}

func TestQueryStructuredOrder(t *testing.T) {
	s, _ := testStore(t)
	seed(t, s)
	assert.Equal(t, []string{"1", "2", "3"}, queryIDs(t, s, QueryOptions{}))
}

func TestQueryFilters(t *testing.T) {
	s, _ := testStore(t)
	seed(t, s)

	tests := []struct {
		name string
		opts QueryOptions
		want []string
	}{
		{"relevant only", QueryOptions{RelevantOnly: true}, []string{"1", "2"}},
		{"aspect", QueryOptions{Aspect: types.AspectParticipatory}, []string{"2"}},
		{"min score", QueryOptions{MinScore: 7}, []string{"1"}},
		{"journal", QueryOptions{Journal: "BMJ"}, []string{"2", "3"}},
		{"model", QueryOptions{Model: "nope"}, []string{}},
		{"limit", QueryOptions{MaxResults: 2}, []string{"1", "2"}},
		{"combined", QueryOptions{Journal: "BMJ", RelevantOnly: true}, []string{"2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, queryIDs(t, s, tt.opts))
		})
	}
}

func TestQueryText(t *testing.T) {
	s, _ := testStore(t)
	seed(t, s)

	assert.Equal(t, []string{"1"}, queryIDs(t, s, QueryOptions{Text: "polygenic"}))
	assert.Equal(t, []string{"2"}, queryIDs(t, s, QueryOptions{Text: "patients"}))
	assert.Empty(t, queryIDs(t, s, QueryOptions{Text: "oncology"}))
}

func TestQueryTextSeesUpdatedArticle(t *testing.T) {
	s, _ := testStore(t)
	seed(t, s)

	_, err := s.SaveArticles(context.Background(), []types.Article{
		sampleArticle("3", "Wearable sensors", "BMJ", "Continuous monitoring."),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"3"}, queryIDs(t, s, QueryOptions{Text: "wearable"}))
	assert.Empty(t, queryIDs(t, s, QueryOptions{Text: "parking"}))
}

func TestBuildQueryUsesPlaceholders(t *testing.T) {
	s := &Store{maxResults: 20, fts: true}
	query, args, err := s.buildQuery(QueryOptions{Text: "x", MinScore: 5, Model: "m"})
	require.NoError(t, err)
	assert.Contains(t, query, "articles_fts MATCH ?")
	assert.Contains(t, query, "a.impact_score >= ?")
	assert.Contains(t, query, "LIMIT 20")
	assert.Equal(t, []any{`"x"`, 5, "m"}, args)
}

func TestQueryTextWithPunctuation(t *testing.T) {
	s, _ := testStore(t)
	seed(t, s)

	a := sampleAssessments()[1]
	a.Article = sampleArticle("4", "COVID-19 vaccine trial", "Lancet", "Most participants reached HbA1c < 6.5% at one year.")
	_, err := s.SaveAssessments(context.Background(), []types.Assessment{a})
	require.NoError(t, err)

	assert.Equal(t, []string{"4"}, queryIDs(t, s, QueryOptions{Text: "COVID-19"}))
	assert.Equal(t, []string{"4"}, queryIDs(t, s, QueryOptions{Text: "HbA1c < 6.5%"}))
}

func TestFTSQuery(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"COVID-19", `"COVID-19"`},
		{"HbA1c < 6.5%", `"HbA1c" "6.5%"`},
		{`say "hi"`, `"say" """hi"""`},
		{"- < *", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ftsQuery(tt.in))
		})
	}
}

func TestBuildQueryPunctuationOnlyFallsBackToLike(t *testing.T) {
	s := &Store{maxResults: 20, fts: true}
	query, args, err := s.buildQuery(QueryOptions{Text: "<"})
	require.NoError(t, err)
	assert.NotContains(t, query, "MATCH")
	assert.Equal(t, []any{"%<%", "%<%"}, args)
}

func TestQueryOptionsIsEmpty(t *testing.T) {
	assert.True(t, QueryOptions{MaxResults: 5}.IsEmpty())
	assert.False(t, QueryOptions{RelevantOnly: true}.IsEmpty())
}

// --- Ingest ---

func TestIngest(t *testing.T) {
	s, dir := testStore(t)

	articlesPath := filepath.Join(dir, "medical_papers_x_20250409.json")
	data, err := json.Marshal([]types.Article{sampleArticle("9", "Ingested", "JAMA", "Text")})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(articlesPath, data, 0o644))

	assessPath := filepath.Join(dir, "4p_analysis_20250409.json")
	data, err = json.Marshal(sampleAssessments())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(assessPath, data, 0o644))

	badPath := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(badPath, []byte(`[{"x": 1}]`), 0o644))

	var out bytes.Buffer
	sum, err := s.Ingest(context.Background(), []string{articlesPath, assessPath, badPath, filepath.Join(dir, "missing.json")}, &out)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Articles)
	assert.Equal(t, 3, sum.Assessments)
	assert.Equal(t, 2, sum.Failed)
	assert.Equal(t, 4, sum.Total())
	assert.Contains(t, out.String(), "(1 articles)")
	assert.Contains(t, out.String(), "(3 assessments)")
	assert.Contains(t, out.String(), "neither articles nor assessments")

	var count int
	require.NoError(t, s.db.QueryRow(`SELECT count(*) FROM articles`).Scan(&count))
	assert.Equal(t, 4, count)
}

// --- Export ---

func TestExportYAML(t *testing.T) {
	s, dir := testStore(t)
	seed(t, s)

	path, err := s.ExportYAML(context.Background(), QueryOptions{RelevantOnly: true})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "index", "export.yaml"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var entries []types.Assessment
	require.NoError(t, yaml.Unmarshal(data, &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "1", entries[0].Article.ID)
	assert.True(t, strings.Contains(string(data), "impact_score: 9"))
}

func TestExportJSON(t *testing.T) {
	s, _ := testStore(t)
	seed(t, s)

	path, err := s.ExportJSON(context.Background(), QueryOptions{Aspect: types.AspectPredictive})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var entries []types.Assessment
	require.NoError(t, json.Unmarshal(data, &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "Population scale.", *entries[0].NotableFindings)
}

func TestExportEmpty(t *testing.T) {
	s, _ := testStore(t)
	path, err := s.ExportJSON(context.Background(), QueryOptions{})
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}
