// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/fourp-digest/pkg/types"
)

const exportLimit = 100000

// ExportYAML writes matching assessments to <DataDir>/index/export.yaml and
// returns the path.
func (s *Store) ExportYAML(ctx context.Context, opts QueryOptions) (string, error) {
	entries, err := s.exportEntries(ctx, opts)
	if err != nil {
		return "", err
	}
	data, err := yaml.Marshal(entries)
	if err != nil {
		return "", fmt.Errorf("marshaling YAML: %w", err)
	}
	path := filepath.Join(s.dataDir, indexDir, "export.yaml")
	return path, os.WriteFile(path, data, 0o644)
}

// ExportJSON writes matching assessments to <DataDir>/index/export.json and
// returns the path.
func (s *Store) ExportJSON(ctx context.Context, opts QueryOptions) (string, error) {
	entries, err := s.exportEntries(ctx, opts)
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling JSON: %w", err)
	}
	path := filepath.Join(s.dataDir, indexDir, "export.json")
	return path, os.WriteFile(path, data, 0o644)
}

func (s *Store) exportEntries(ctx context.Context, opts QueryOptions) ([]types.Assessment, error) {
	opts.MaxResults = exportLimit
	results, err := s.Query(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("querying for export: %w", err)
	}
	if results == nil {
		results = []types.Assessment{}
	}
	return results, nil
}
