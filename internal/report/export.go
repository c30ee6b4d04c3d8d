// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/pdiddy/fourp-digest/pkg/types"
)

// AssessmentsCSVPrefix starts every assessments CSV filename.
const AssessmentsCSVPrefix = "4p_assessments_"

// Result records what Export wrote.
type Result struct {
	Relevant     int
	MarkdownPath string
	CSVPath      string
}

// Export writes the Markdown report and the assessments CSV into
// cfg.OutputDir and prints the console summary to w. No Markdown file is
// written when nothing is relevant.
func Export(assessments []types.Assessment, cfg types.ExportConfig, now time.Time, w io.Writer) (Result, error) {
	dir := cfg.OutputDir
	if dir == "" {
		dir = "."
	}

	ranked := Rank(assessments)
	res := Result{
		Relevant: len(ranked),
		CSVPath:  filepath.Join(dir, AssessmentsCSVPrefix+now.Format("20060102")+".csv"),
	}

	if err := SaveCSV(res.CSVPath, func(out io.Writer) error {
		return WriteAssessmentsCSV(out, assessments)
	}); err != nil {
		return res, err
	}
	fmt.Fprintf(w, "assessments CSV saved to %s\n", res.CSVPath)

	fmt.Fprintf(w, "found %d papers relevant to 4P medicine\n", len(ranked))
	if len(ranked) == 0 {
		return res, nil
	}

	res.MarkdownPath = filepath.Join(dir, MarkdownFilename(now))
	if err := SaveMarkdown(res.MarkdownPath, ranked, cfg.ReportLimit, now); err != nil {
		return res, err
	}
	fmt.Fprintf(w, "markdown report saved to %s\n", res.MarkdownPath)

	WriteConsole(w, ranked, cfg.ConsoleLimit)
	return res, nil
}
