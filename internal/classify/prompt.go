// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package classify

import (
	"bytes"
	"text/template"

	"github.com/pdiddy/fourp-digest/pkg/types"
)

// assessmentPromptTmpl asks the model to judge one article against the 4P
// taxonomy and answer with a JSON object whose fields match types.Assessment.
var assessmentPromptTmpl = template.Must(template.New("assessment").Parse(`You are a medical research expert specializing in 4P medicine (Predictive, Preventive, Personalized, and Participatory medicine). Review the following medical research paper and evaluate it carefully.

Title: {{.Title}}
Journal: {{.Journal}}
Publication Date: {{.PublicationDate}}
Abstract: {{.Abstract}}

Analyze this paper for:
1. Relevance to 4P medicine (Predictive, Preventive, Personalized, Participatory)
2. Impact and significance, with particular focus on large trials/RCTs
3. Revolutionary, interesting, or exciting aspects of the research
4. Potential to change clinical practice or understanding of medicine

Please provide:
1. Is this paper relevant to 4P medicine? (Yes/No)
2. Which specific aspects of 4P medicine does it address? (Predictive, Preventive, Personalized, Participatory)
3. Is this a large trial or RCT? (Yes/No)
4. Brief summary of the paper's significance (2-3 sentences)
5. What makes this paper revolutionary, interesting, or exciting? (if applicable)
6. Overall impact score (1-10 scale, where 10 is extremely high impact)

Format your response as JSON with the following fields:
- is_relevant: boolean
- aspects: list of strings (e.g., ["Predictive", "Personalized"])
- is_large_trial: boolean
- summary: string
- revolutionary_aspects: string (or null if none)
- impact_score: integer
`))

// renderPrompt executes the assessment prompt for one article.
func renderPrompt(a types.Article) (string, error) {
	var buf bytes.Buffer
	if err := assessmentPromptTmpl.Execute(&buf, a); err != nil {
		return "", err
	}
	return buf.String(), nil
}
