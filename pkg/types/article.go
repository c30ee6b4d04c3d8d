// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the fourp-digest pipeline.
// Articles come out of the fetch stage, Assessments out of the classify
// stage, and the per-stage configuration structs are shared by the CLI and
// the mage targets.
package types

import (
	"fmt"
	"strings"
)

// pubmedArticleURL is the canonical PubMed landing page pattern.
const pubmedArticleURL = "https://pubmed.ncbi.nlm.nih.gov/%s/"

// Article holds the bibliographic record and abstract of one PubMed
// publication. Articles are produced once by the fetch stage and only read
// afterward.
type Article struct {
	// ID is the PubMed identifier (PMID).
	ID string `json:"pubmed_id" yaml:"pubmed_id"`

	// Title is the article title.
	Title string `json:"title" yaml:"title"`

	// Journal is the full journal title.
	Journal string `json:"journal" yaml:"journal"`

	// PublicationDate is free text assembled from the journal issue date
	// (e.g. "2025 Apr 12", "2025 Apr", "2025").
	PublicationDate string `json:"publication_date" yaml:"publication_date"`

	// Abstract joins all abstract sections. Labelled sections are rendered as
	// "LABEL: text". Empty when the record carries no abstract.
	Abstract string `json:"abstract" yaml:"abstract"`

	// URL is the PubMed landing page for the article.
	URL string `json:"url" yaml:"url"`

	// Authors lists author display names in source order.
	Authors []string `json:"authors,omitempty" yaml:"authors,omitempty"`

	// PublicationTypes lists the PubMed publication-type tags in source order.
	PublicationTypes []string `json:"publication_types" yaml:"publication_types"`
}

// ArticleURL returns the PubMed landing page for a PMID.
func ArticleURL(pmid string) string {
	return fmt.Sprintf(pubmedArticleURL, pmid)
}

// HasAbstract reports whether the article carries non-blank abstract text.
func (a Article) HasAbstract() bool {
	return strings.TrimSpace(a.Abstract) != ""
}
