// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report ranks assessments and renders them as Markdown, CSV and
// console summaries.
package report

import (
	"sort"

	"github.com/pdiddy/fourp-digest/pkg/types"
)

// Default entry limits.
const (
	DefaultReportLimit  = 20
	DefaultConsoleLimit = 5
)

// Rank returns the relevant assessments ordered by impact score, notable
// findings and large-trial status, all descending. Ties keep input order.
func Rank(assessments []types.Assessment) []types.Assessment {
	ranked := make([]types.Assessment, 0, len(assessments))
	for _, a := range assessments {
		if a.Relevant {
			ranked = append(ranked, a)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].RanksAbove(ranked[j])
	})
	return ranked
}

// top returns at most limit entries; a non-positive limit keeps all.
func top(ranked []types.Assessment, limit int) []types.Assessment {
	if limit > 0 && len(ranked) > limit {
		return ranked[:limit]
	}
	return ranked
}
