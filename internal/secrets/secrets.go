// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys and credentials from a directory of plain-text files.
// Each file in the directory represents one secret: the filename is the key name and the
// file contents (trimmed) are the value.
package secrets

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Key file names understood by the pipeline, with the environment variable
// consulted when the file is absent.
const (
	GoogleAPIKey    = "google-api-key"
	AnthropicAPIKey = "anthropic-api-key"
	OpenAIAPIKey    = "openai-api-key"
	NCBIAPIKey      = "ncbi-api-key"
	NCBIEmail       = "ncbi-email"
)

var envFallback = map[string]string{
	GoogleAPIKey:    "GOOGLE_API_KEY",
	AnthropicAPIKey: "ANTHROPIC_API_KEY",
	OpenAIAPIKey:    "OPENAI_API_KEY",
	NCBIAPIKey:      "NCBI_API_KEY",
	NCBIEmail:       "NCBI_EMAIL",
}

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files produce a warning but do not abort.
func Load(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			slog.Warn("could not read secret", slog.String("name", name), slog.Any("error", err))
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// Resolve picks a credential by precedence: an explicit value (flag or
// config), then the secrets file, then the key's environment variable.
// It returns "" when none is set.
func Resolve(loaded map[string]string, key, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if v, ok := loaded[key]; ok {
		return v
	}
	if env, ok := envFallback[key]; ok {
		return strings.TrimSpace(os.Getenv(env))
	}
	return ""
}
