// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"strings"
	"time"
)

// Aspect is one of the four care qualities of 4P medicine.
type Aspect string

const (
	AspectPredictive    Aspect = "Predictive"
	AspectPreventive    Aspect = "Preventive"
	AspectPersonalized  Aspect = "Personalized"
	AspectParticipatory Aspect = "Participatory"
)

// AllAspects lists the taxonomy in canonical order.
var AllAspects = []Aspect{
	AspectPredictive,
	AspectPreventive,
	AspectPersonalized,
	AspectParticipatory,
}

// ParseAspect matches s case-insensitively against the taxonomy. British
// spelling of Personalised is accepted.
func ParseAspect(s string) (Aspect, bool) {
	key := strings.ToLower(strings.TrimSpace(s))
	if key == "personalised" {
		key = "personalized"
	}
	for _, a := range AllAspects {
		if strings.ToLower(string(a)) == key {
			return a, true
		}
	}
	return "", false
}

// NormalizeAspects maps raw labels onto the taxonomy, dropping unknown
// labels and duplicates. The result is in canonical order and never nil.
func NormalizeAspects(raw []string) []Aspect {
	seen := make(map[Aspect]bool, len(raw))
	for _, s := range raw {
		if a, ok := ParseAspect(s); ok {
			seen[a] = true
		}
	}
	out := make([]Aspect, 0, len(seen))
	for _, a := range AllAspects {
		if seen[a] {
			out = append(out, a)
		}
	}
	return out
}

// Impact score bounds. Zero means the model did not provide a score.
const (
	ScoreMin = 0
	ScoreMax = 10
)

// ClampScore forces a score into [ScoreMin, ScoreMax].
func ClampScore(score int) int {
	switch {
	case score < ScoreMin:
		return ScoreMin
	case score > ScoreMax:
		return ScoreMax
	default:
		return score
	}
}

// Assessment is the language model's 4P relevance and impact judgment for one
// Article. Field names on the wire follow the prompt's requested JSON schema.
type Assessment struct {
	// Article is the assessed publication.
	Article Article `json:"paper" yaml:"paper"`

	// Relevant reports whether the article is relevant to 4P medicine.
	Relevant bool `json:"is_relevant" yaml:"is_relevant"`

	// Aspects lists the matched taxonomy labels in canonical order.
	Aspects []Aspect `json:"aspects" yaml:"aspects"`

	// LargeTrial reports whether the study is a large trial or RCT.
	LargeTrial bool `json:"is_large_trial" yaml:"is_large_trial"`

	// Summary is a 2-3 sentence statement of significance.
	Summary string `json:"summary" yaml:"summary"`

	// NotableFindings describes what makes the work revolutionary or
	// exciting. Nil when the model reported nothing.
	NotableFindings *string `json:"revolutionary_aspects" yaml:"revolutionary_aspects"`

	// Score is the impact score in [ScoreMin, ScoreMax].
	Score int `json:"impact_score" yaml:"impact_score"`

	// Provider names the backend that produced the assessment (e.g. "gemini").
	Provider string `json:"provider,omitempty" yaml:"provider,omitempty"`

	// Model is the model identifier used.
	Model string `json:"model,omitempty" yaml:"model,omitempty"`

	// RunID groups assessments produced by one classify run.
	RunID string `json:"run_id,omitempty" yaml:"run_id,omitempty"`

	// AssessedAt records when the assessment was produced.
	AssessedAt time.Time `json:"assessed_at,omitzero" yaml:"assessed_at,omitempty"`
}

// HasNotableFindings reports whether NotableFindings carries text.
func (a Assessment) HasNotableFindings() bool {
	return a.NotableFindings != nil && strings.TrimSpace(*a.NotableFindings) != ""
}

// HasAspect reports whether the assessment matched the given aspect.
func (a Assessment) HasAspect(want Aspect) bool {
	for _, got := range a.Aspects {
		if got == want {
			return true
		}
	}
	return false
}

// AspectStrings returns the aspects as plain strings.
func (a Assessment) AspectStrings() []string {
	out := make([]string, len(a.Aspects))
	for i, asp := range a.Aspects {
		out[i] = string(asp)
	}
	return out
}

// RanksAbove orders assessments by impact score, then presence of notable
// findings, then large-trial status, all descending.
func (a Assessment) RanksAbove(b Assessment) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	an, bn := a.HasNotableFindings(), b.HasNotableFindings()
	if an != bn {
		return an
	}
	return a.LargeTrial && !b.LargeTrial
}
