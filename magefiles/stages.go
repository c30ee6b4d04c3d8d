//go:build mage

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/magefile/mage/sh"
)

// Fetch downloads recent articles for the default journal group into output/papers.
// Set FOURP_GROUP to pick another group from journals.yaml.
func Fetch() error {
	bin := binary()
	args := []string{"fetch", "--output-dir", "output/papers", "--store"}
	if g := os.Getenv("FOURP_GROUP"); g != "" {
		args = append(args, "--group", g)
	}
	fmt.Println("[fetch] Searching PubMed for recent articles.")
	return sh.RunV(bin, args...)
}

// Classify assesses the most recent fetch with the configured language model.
// Set FOURP_PROVIDER to gemini, claude, or openai.
func Classify() error {
	bin := binary()
	args := []string{"classify", "--output-dir", "output/papers", "--skip-assessed", "--store"}
	if p := os.Getenv("FOURP_PROVIDER"); p != "" {
		args = append(args, "--provider", p)
	}
	fmt.Println("[classify] Assessing abstracts against 4P medicine.")
	return sh.RunWithV(map[string]string{"FOURP_DIGEST_FETCH_OUTPUT_DIR": "output/papers"}, bin, args...)
}

// Export writes reports for an assessments file into output/reports.
// Set FOURP_ASSESSMENTS to the 4p_analysis_*.json file to export.
func Export() error {
	bin := binary()
	file := os.Getenv("FOURP_ASSESSMENTS")
	if file == "" {
		return fmt.Errorf("set FOURP_ASSESSMENTS to an assessments JSON file")
	}
	fmt.Println("[export] Writing CSV and Markdown reports.")
	return sh.RunV(bin, "export", "--file", file, "--output-dir", "output/reports")
}

// Pipeline runs fetch, classify, and export in one process.
func Pipeline() error {
	bin := binary()
	return sh.RunV(bin, "run", "--output-dir", "output/reports", "--store", "--skip-assessed")
}
