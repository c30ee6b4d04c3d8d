// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pubmed

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/fourp-digest/pkg/types"
)

func TestParseArticles(t *testing.T) {
	articles, err := ParseArticles([]byte(sampleEfetchXML))
	require.NoError(t, err)
	// The PubmedData-only and Article-less records are skipped.
	require.Len(t, articles, 3)

	want := types.Article{
		ID:              "40111111",
		Title:           "Polygenic risk scores for early cardiovascular prevention.",
		Journal:         "Lancet (London, England)",
		PublicationDate: "2025 Apr 12",
		Abstract: "BACKGROUND: Risk prediction is imperfect. " +
			"METHODS: We enrolled 12 000 adults (HbA1c < 6.5%). " +
			"FINDINGS: Events fell by 18%.",
		URL:              "https://pubmed.ncbi.nlm.nih.gov/40111111/",
		Authors:          []string{"Ada Okafor", "P Lindqvist", "PRS-PREVENT Investigators"},
		PublicationTypes: []string{"Journal Article", "Randomized Controlled Trial"},
	}
	if diff := cmp.Diff(want, articles[0]); diff != "" {
		t.Errorf("first article mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, "2025 May", articles[1].PublicationDate)
	assert.Equal(t, "Patients who co-designed their care plans reported higher adherence.", articles[1].Abstract)
	assert.Nil(t, articles[1].Authors)

	assert.Equal(t, "2025 Mar-Apr", articles[2].PublicationDate)
	assert.Empty(t, articles[2].Abstract)
	assert.False(t, articles[2].HasAbstract())
	assert.Equal(t, []string{}, articles[2].PublicationTypes)
}

func TestParseArticlesEmptyBody(t *testing.T) {
	_, err := ParseArticles([]byte("  \n"))
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestParseArticlesMalformed(t *testing.T) {
	_, err := ParseArticles([]byte("<PubmedArticleSet><PubmedArticle>"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing PubMed XML")
}

func TestParseArticlesNoRecords(t *testing.T) {
	articles, err := ParseArticles([]byte("<PubmedArticleSet></PubmedArticleSet>"))
	require.NoError(t, err)
	assert.Empty(t, articles)
}

func TestFormatPubDate(t *testing.T) {
	tests := []struct {
		name string
		in   pubDate
		want string
	}{
		{"full", pubDate{Year: "2025", Month: "Apr", Day: "3"}, "2025 Apr 3"},
		{"year only", pubDate{Year: "2025"}, "2025"},
		{"missing month keeps single spaces", pubDate{Year: "2025", Day: "3"}, "2025 3"},
		{"medline date", pubDate{MedlineDate: " 2024 Winter "}, "2024 Winter"},
		{"nothing", pubDate{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatPubDate(tt.in))
		})
	}
}

func TestJoinAbstract(t *testing.T) {
	got := joinAbstract([]abstractText{
		{Text: "Unlabelled opening."},
		{Label: "CONCLUSIONS", Text: "It works."},
	})
	assert.Equal(t, "Unlabelled opening. CONCLUSIONS: It works.", got)
	assert.Equal(t, "", joinAbstract(nil))
}
