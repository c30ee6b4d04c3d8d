// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/fourp-digest/pkg/types"
)

// WriteConsole prints the first limit ranked assessments in a compact form.
func WriteConsole(w io.Writer, ranked []types.Assessment, limit int) {
	if limit <= 0 {
		limit = DefaultConsoleLimit
	}
	entries := top(ranked, limit)
	if len(entries) == 0 {
		return
	}
	fmt.Fprintf(w, "\nTop %d most impactful papers for 4P medicine:\n", len(entries))
	for i, a := range entries {
		fmt.Fprintf(w, "%d. %s (Impact: %d/10)\n", i+1, a.Article.Title, a.Score)
		fmt.Fprintf(w, "   Aspects: %s\n", strings.Join(a.AspectStrings(), ", "))
		fmt.Fprintf(w, "   URL: %s\n", a.Article.URL)
		fmt.Fprintf(w, "   Summary: %s\n", a.Summary)
		if a.HasNotableFindings() {
			fmt.Fprintf(w, "   Revolutionary aspects: %s\n", *a.NotableFindings)
		}
		fmt.Fprintln(w)
	}
}
