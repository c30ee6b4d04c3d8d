// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/pdiddy/fourp-digest/pkg/types"
)

// MarkdownFilePrefix starts every Markdown report filename.
const MarkdownFilePrefix = "4p_medicine_papers_"

// MarkdownFilename returns 4p_medicine_papers_<YYYYMMDD>.md for now.
func MarkdownFilename(now time.Time) string {
	return MarkdownFilePrefix + now.Format("20060102") + ".md"
}

var markdownFuncs = template.FuncMap{
	"tags": func(aspects []types.Aspect) string {
		parts := make([]string, len(aspects))
		for i, a := range aspects {
			parts[i] = "[" + string(a) + "]"
		}
		return strings.Join(parts, ", ")
	},
	"badges": func(aspects []types.Aspect) string {
		parts := make([]string, len(aspects))
		for i, a := range aspects {
			parts[i] = fmt.Sprintf("![%s](https://img.shields.io/badge/-%s-blue)", a, url.PathEscape(string(a)))
		}
		return strings.Join(parts, " ")
	},
	"deref": func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	},
	"yesno": func(b bool) string {
		if b {
			return "Yes"
		}
		return "No"
	},
}

// markdownTmpl renders the ranked report. Lines ending in two spaces are
// Markdown hard breaks.
var markdownTmpl = template.Must(template.New("report").Funcs(markdownFuncs).Parse(`# Top Papers Relevant to 4P Medicine

*Generated on: {{.Date}}*

This report highlights the most impactful, revolutionary, and exciting papers related to 4P Medicine (Predictive, Preventive, Personalized, and Participatory).

## Table of Contents

{{range .Entries}}{{.N}}. [{{.Article.Title}}](#{{.N}}) {{tags .Aspects}}
{{end}}
## Detailed Paper Reviews

{{range .Entries}}<a id='{{.N}}'></a>
### {{.N}}. {{.Article.Title}}

{{badges .Aspects}}

**Journal:** {{.Article.Journal}}  
**Publication Date:** {{.Article.PublicationDate}}  
**Impact Score:** {{.Score}}/10  
**Large Trial/RCT:** {{yesno .LargeTrial}}  

**Summary:**  
{{.Summary}}

{{if .HasNotableFindings}}**Revolutionary Aspects:**  
{{deref .NotableFindings}}

{{end}}[View on PubMed]({{.Article.URL}})

---

{{end}}`))

type markdownEntry struct {
	N int
	types.Assessment
}

type markdownData struct {
	Date    string
	Entries []markdownEntry
}

// WriteMarkdown renders the first limit ranked assessments to w.
func WriteMarkdown(w io.Writer, ranked []types.Assessment, limit int, now time.Time) error {
	if limit <= 0 {
		limit = DefaultReportLimit
	}
	data := markdownData{Date: now.Format("2006-01-02")}
	for i, a := range top(ranked, limit) {
		data.Entries = append(data.Entries, markdownEntry{N: i + 1, Assessment: a})
	}
	return markdownTmpl.Execute(w, data)
}

// SaveMarkdown writes the report to path, creating its directory.
func SaveMarkdown(path string, ranked []types.Assessment, limit int, now time.Time) error {
	var buf bytes.Buffer
	if err := WriteMarkdown(&buf, ranked, limit, now); err != nil {
		return fmt.Errorf("rendering markdown report: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
