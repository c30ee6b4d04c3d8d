// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pdiddy/fourp-digest/pkg/types"
)

// listSep joins list fields inside one CSV cell.
const listSep = "; "

var articleColumns = []string{
	"pubmed_id",
	"title",
	"journal",
	"publication_date",
	"url",
	"authors",
	"abstract",
	"publication_types",
}

var assessmentColumns = []string{
	"pubmed_id",
	"title",
	"journal",
	"publication_date",
	"url",
	"is_relevant",
	"aspects",
	"is_large_trial",
	"impact_score",
	"summary",
	"revolutionary_aspects",
}

// ArticlesCSVPath derives the CSV path for an articles JSON file by swapping
// the .json extension for .csv.
func ArticlesCSVPath(jsonPath string) string {
	return strings.TrimSuffix(jsonPath, filepath.Ext(jsonPath)) + ".csv"
}

// WriteArticlesCSV writes one row per article after a header row.
func WriteArticlesCSV(w io.Writer, articles []types.Article) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(articleColumns); err != nil {
		return err
	}
	for _, a := range articles {
		if err := cw.Write([]string{
			a.ID,
			a.Title,
			a.Journal,
			a.PublicationDate,
			a.URL,
			strings.Join(a.Authors, listSep),
			a.Abstract,
			strings.Join(a.PublicationTypes, listSep),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteAssessmentsCSV writes one row per assessment after a header row.
func WriteAssessmentsCSV(w io.Writer, assessments []types.Assessment) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(assessmentColumns); err != nil {
		return err
	}
	for _, a := range assessments {
		notable := ""
		if a.NotableFindings != nil {
			notable = *a.NotableFindings
		}
		if err := cw.Write([]string{
			a.Article.ID,
			a.Article.Title,
			a.Article.Journal,
			a.Article.PublicationDate,
			a.Article.URL,
			strconv.FormatBool(a.Relevant),
			strings.Join(a.AspectStrings(), listSep),
			strconv.FormatBool(a.LargeTrial),
			strconv.Itoa(a.Score),
			a.Summary,
			notable,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveCSV creates path and fills it with write.
func SaveCSV(path string, write func(io.Writer) error) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating csv directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if err := write(f); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
