// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pubmed

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"strings"

	"github.com/pdiddy/fourp-digest/pkg/types"
)

// ErrEmptyResponse is returned when efetch answers with an empty body, which
// NCBI does when a request asks for too many records.
var ErrEmptyResponse = errors.New("empty response from PubMed: try a smaller --max or narrower search")

// PubMed efetch XML structures. Pointers mark elements whose absence
// disqualifies a record.
type articleSet struct {
	Articles []pubmedArticle `xml:"PubmedArticle"`
}

type pubmedArticle struct {
	Citation *medlineCitation `xml:"MedlineCitation"`
}

type medlineCitation struct {
	PMID    string         `xml:"PMID"`
	Article *articleRecord `xml:"Article"`
}

type articleRecord struct {
	Journal  journal    `xml:"Journal"`
	Title    richText   `xml:"ArticleTitle"`
	Abstract *abstract  `xml:"Abstract"`
	Authors  []author   `xml:"AuthorList>Author"`
	PubTypes []richText `xml:"PublicationTypeList>PublicationType"`
}

type journal struct {
	Title   string  `xml:"Title"`
	PubDate pubDate `xml:"JournalIssue>PubDate"`
}

type pubDate struct {
	Year        string `xml:"Year"`
	Month       string `xml:"Month"`
	Day         string `xml:"Day"`
	MedlineDate string `xml:"MedlineDate"`
}

type abstract struct {
	Sections []abstractText `xml:"AbstractText"`
}

type author struct {
	LastName       string `xml:"LastName"`
	ForeName       string `xml:"ForeName"`
	Initials       string `xml:"Initials"`
	CollectiveName string `xml:"CollectiveName"`
}

// richText collects all character data inside an element, including text
// nested in inline markup such as <i> or <sup>.
type richText string

func (t *richText) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	s, err := collectText(d)
	if err != nil {
		return err
	}
	*t = richText(s)
	return nil
}

// abstractText is one AbstractText section with its optional Label.
type abstractText struct {
	Label string
	Text  string
}

func (a *abstractText) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for _, attr := range start.Attr {
		if attr.Name.Local == "Label" {
			a.Label = strings.TrimSpace(attr.Value)
		}
	}
	s, err := collectText(d)
	if err != nil {
		return err
	}
	a.Text = s
	return nil
}

// collectText consumes tokens up to the end of the current element and
// returns the concatenated, whitespace-normalized character data.
func collectText(d *xml.Decoder) (string, error) {
	var b strings.Builder
	depth := 0
	for {
		tok, err := d.Token()
		if err != nil {
			return "", err
		}
		switch tt := tok.(type) {
		case xml.CharData:
			b.Write(tt)
		case xml.StartElement:
			depth++
		case xml.EndElement:
			if depth == 0 {
				return strings.Join(strings.Fields(b.String()), " "), nil
			}
			depth--
		}
	}
}

// ParseArticles decodes an efetch XML body into Articles. Records without a
// MedlineCitation or Article element are skipped.
func ParseArticles(data []byte) ([]types.Article, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyResponse
	}

	var set articleSet
	if err := xml.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("parsing PubMed XML: %w", err)
	}

	articles := make([]types.Article, 0, len(set.Articles))
	for _, pa := range set.Articles {
		if pa.Citation == nil || pa.Citation.Article == nil {
			continue
		}
		articles = append(articles, toArticle(pa.Citation))
	}
	return articles, nil
}

func toArticle(mc *medlineCitation) types.Article {
	rec := mc.Article
	pmid := strings.TrimSpace(mc.PMID)

	a := types.Article{
		ID:               pmid,
		Title:            string(rec.Title),
		Journal:          strings.TrimSpace(rec.Journal.Title),
		PublicationDate:  formatPubDate(rec.Journal.PubDate),
		URL:              types.ArticleURL(pmid),
		PublicationTypes: []string{},
	}

	if rec.Abstract != nil {
		a.Abstract = joinAbstract(rec.Abstract.Sections)
	}

	for _, au := range rec.Authors {
		if name := authorName(au); name != "" {
			a.Authors = append(a.Authors, name)
		}
	}

	for _, pt := range rec.PubTypes {
		if s := string(pt); s != "" {
			a.PublicationTypes = append(a.PublicationTypes, s)
		}
	}
	return a
}

// formatPubDate renders "Year Month Day" from whichever parts are present,
// falling back to the free-text MedlineDate.
func formatPubDate(d pubDate) string {
	var parts []string
	for _, p := range []string{d.Year, d.Month, d.Day} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return strings.TrimSpace(d.MedlineDate)
	}
	return strings.Join(parts, " ")
}

// joinAbstract joins sections with single spaces, prefixing labelled
// sections with "LABEL: ".
func joinAbstract(sections []abstractText) string {
	parts := make([]string, 0, len(sections))
	for _, s := range sections {
		if s.Label != "" {
			parts = append(parts, s.Label+": "+s.Text)
			continue
		}
		parts = append(parts, s.Text)
	}
	return strings.Join(parts, " ")
}

func authorName(a author) string {
	if a.CollectiveName != "" {
		return strings.TrimSpace(a.CollectiveName)
	}
	first := a.ForeName
	if first == "" {
		first = a.Initials
	}
	return strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(a.LastName))
}
