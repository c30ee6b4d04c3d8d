// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pubmed

import (
	"fmt"
	"strings"
)

// Default search parameters.
const (
	DefaultDaysBack   = 30
	DefaultMaxResults = 250
)

// DefaultJournals is used when neither a journal group nor explicit journals
// are configured.
var DefaultJournals = []string{"Lancet", "The New England journal of medicine"}

// DefaultArticleTypes restricts results to primary research and reviews.
var DefaultArticleTypes = []string{
	"Journal Article",
	"Clinical Trial",
	"Randomized Controlled Trial",
	"Review",
}

// BuildQuery assembles an Entrez search term:
//
//	("J1"[Journal] OR "J2"[Journal]) AND "last N days"[PDat] AND ("T1"[Publication Type] OR ...) AND hasabstract[text]
//
// Journals that are all blank fall back to DefaultJournals. The
// publication-type clause is omitted when no usable type is given.
func BuildQuery(journals []string, daysBack int, articleTypes []string) string {
	if daysBack <= 0 {
		daysBack = DefaultDaysBack
	}

	journalClause := orClause(journals, "Journal")
	if journalClause == "" {
		journalClause = orClause(DefaultJournals, "Journal")
	}

	var b strings.Builder
	b.WriteString("(")
	b.WriteString(journalClause)
	b.WriteString(")")
	fmt.Fprintf(&b, ` AND "last %d days"[PDat]`, daysBack)
	if typeClause := orClause(articleTypes, "Publication Type"); typeClause != "" {
		b.WriteString(" AND (")
		b.WriteString(typeClause)
		b.WriteString(")")
	}
	b.WriteString(" AND hasabstract[text]")
	return b.String()
}

// orClause quotes each term, tags it with field and joins with OR. Embedded
// double quotes are dropped since Entrez has no escape for them.
func orClause(terms []string, field string) string {
	parts := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.TrimSpace(strings.ReplaceAll(t, `"`, ""))
		if t == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf(`"%s"[%s]`, t, field))
	}
	return strings.Join(parts, " OR ")
}
