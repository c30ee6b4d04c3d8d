// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package classify

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pdiddy/fourp-digest/pkg/types"
)

// AssessmentsFilePrefix starts every classify output filename.
const AssessmentsFilePrefix = "4p_analysis_"

// OutputFilename returns 4p_analysis_<YYYYMMDD>.json for now.
func OutputFilename(now time.Time) string {
	return AssessmentsFilePrefix + now.Format("20060102") + ".json"
}

// WriteAssessments saves assessments as indented JSON.
func WriteAssessments(path string, assessments []types.Assessment) error {
	if assessments == nil {
		assessments = []types.Assessment{}
	}
	data, err := json.MarshalIndent(assessments, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling assessments: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadAssessments loads a file written by WriteAssessments.
func ReadAssessments(path string) ([]types.Assessment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading assessments file: %w", err)
	}
	var out []types.Assessment
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parsing assessments file %s: %w", path, err)
	}
	return out, nil
}
