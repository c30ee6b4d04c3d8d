// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode"

	sq "github.com/Masterminds/squirrel"

	"github.com/pdiddy/fourp-digest/pkg/types"
)

// QueryOptions holds parameters for assessment queries.
type QueryOptions struct {
	// Text is a full-text search over article title and abstract.
	Text string

	// Aspect keeps assessments that matched this 4P aspect.
	Aspect types.Aspect

	// MinScore keeps assessments scoring at least this much.
	MinScore int

	// RelevantOnly keeps assessments flagged relevant.
	RelevantOnly bool

	// Journal keeps articles whose journal title contains this text.
	Journal string

	// Model keeps assessments produced by this model.
	Model string

	// MaxResults limits result count. Zero uses the store default.
	MaxResults int
}

// IsEmpty reports whether the query has no search terms or filters.
func (q QueryOptions) IsEmpty() bool {
	return q.Text == "" && q.Aspect == "" && q.MinScore == 0 && !q.RelevantOnly && q.Journal == "" && q.Model == ""
}

var assessmentColumns = []string{
	"p.pmid", "p.title", "p.journal", "p.publication_date", "p.abstract", "p.url",
	"p.authors", "p.publication_types",
	"a.model", "a.provider", "a.is_relevant", "a.aspects", "a.is_large_trial",
	"a.summary", "a.revolutionary_aspects", "a.impact_score", "a.run_id", "a.assessed_at",
}

// buildQuery assembles the SELECT for opts. Text queries are ranked by FTS5
// relevance; structured queries by score, then recency.
func (s *Store) buildQuery(opts QueryOptions) (string, []any, error) {
	limit := opts.MaxResults
	if limit <= 0 {
		limit = s.maxResults
	}

	qb := sq.Select(assessmentColumns...).
		From("assessments a").
		Join("articles p ON p.pmid = a.pmid")

	match := ""
	if s.fts {
		match = ftsQuery(opts.Text)
	}

	switch {
	case match != "":
		qb = qb.Join("articles_fts ON articles_fts.rowid = p.rowid").
			Where("articles_fts MATCH ?", match).
			OrderBy("articles_fts.rank", "a.impact_score DESC")
	case opts.Text != "":
		like := "%" + opts.Text + "%"
		qb = qb.Where(sq.Or{sq.Like{"p.title": like}, sq.Like{"p.abstract": like}}).
			OrderBy("a.impact_score DESC", "a.assessed_at DESC", "p.pmid")
	default:
		qb = qb.OrderBy("a.impact_score DESC", "a.assessed_at DESC", "p.pmid")
	}

	if opts.Aspect != "" {
		qb = qb.Where("EXISTS (SELECT 1 FROM json_each(a.aspects) WHERE value = ?)", string(opts.Aspect))
	}
	if opts.MinScore > 0 {
		qb = qb.Where(sq.GtOrEq{"a.impact_score": opts.MinScore})
	}
	if opts.RelevantOnly {
		qb = qb.Where(sq.Eq{"a.is_relevant": true})
	}
	if opts.Journal != "" {
		qb = qb.Where(sq.Like{"p.journal": "%" + opts.Journal + "%"})
	}
	if opts.Model != "" {
		qb = qb.Where(sq.Eq{"a.model": opts.Model})
	}

	return qb.Limit(uint64(limit)).ToSql()
}

// ftsQuery turns free text into an FTS5 expression: each whitespace-separated
// term becomes a quoted string, so operators and punctuation such as "-" or
// "<" are matched as text. Terms without a letter or digit are dropped.
func ftsQuery(text string) string {
	var terms []string
	for _, f := range strings.Fields(text) {
		if strings.IndexFunc(f, func(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }) < 0 {
			continue
		}
		terms = append(terms, `"`+strings.ReplaceAll(f, `"`, `""`)+`"`)
	}
	return strings.Join(terms, " ")
}

// Query returns stored assessments matching opts.
func (s *Store) Query(ctx context.Context, opts QueryOptions) ([]types.Assessment, error) {
	query, args, err := s.buildQuery(opts)
	if err != nil {
		return nil, fmt.Errorf("building query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying assessments: %w", err)
	}
	defer rows.Close()

	var results []types.Assessment
	for rows.Next() {
		var (
			a           types.Assessment
			authorsJSON sql.NullString
			typesJSON   sql.NullString
			provider    sql.NullString
			aspectsJSON sql.NullString
			summary     sql.NullString
			notable     sql.NullString
			runID       sql.NullString
			assessedAt  sql.NullString
		)
		if err := rows.Scan(
			&a.Article.ID, &a.Article.Title, &a.Article.Journal, &a.Article.PublicationDate,
			&a.Article.Abstract, &a.Article.URL, &authorsJSON, &typesJSON,
			&a.Model, &provider, &a.Relevant, &aspectsJSON, &a.LargeTrial,
			&summary, &notable, &a.Score, &runID, &assessedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		if authorsJSON.Valid {
			json.Unmarshal([]byte(authorsJSON.String), &a.Article.Authors)
		}
		a.Article.PublicationTypes = []string{}
		if typesJSON.Valid {
			json.Unmarshal([]byte(typesJSON.String), &a.Article.PublicationTypes)
		}
		var aspects []string
		if aspectsJSON.Valid {
			json.Unmarshal([]byte(aspectsJSON.String), &aspects)
		}
		a.Aspects = types.NormalizeAspects(aspects)
		a.Provider = provider.String
		a.Summary = summary.String
		a.RunID = runID.String
		if notable.Valid {
			text := notable.String
			a.NotableFindings = &text
		}
		if assessedAt.Valid && assessedAt.String != "" {
			if t, err := time.Parse(time.RFC3339, assessedAt.String); err == nil {
				a.AssessedAt = t
			}
		}
		results = append(results, a)
	}
	return results, rows.Err()
}
