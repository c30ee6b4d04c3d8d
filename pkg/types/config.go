// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "fourp-digest/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// FetchConfig holds settings for the fetch stage.
type FetchConfig struct {
	HTTPConfig `yaml:",inline"`

	// DaysBack is the publication-date window in days (default 30).
	DaysBack int `json:"days_back" yaml:"days_back"`

	// MaxResults caps the number of PMIDs requested from esearch (default 250).
	MaxResults int `json:"max_results" yaml:"max_results"`

	// Journals lists journal titles matched with the [Journal] field tag.
	Journals []string `json:"journals" yaml:"journals"`

	// ArticleTypes lists PubMed publication types; empty means any type.
	ArticleTypes []string `json:"article_types" yaml:"article_types"`

	// APIKey is an optional NCBI API key that raises the rate limit to 10 req/s.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// Email identifies the caller to NCBI (E-utilities "email" parameter).
	Email string `json:"email,omitempty" yaml:"email,omitempty"`

	// OutputDir is where articles JSON files are written.
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// RawXMLPath, when set, receives the raw efetch response body.
	RawXMLPath string `json:"raw_xml_path,omitempty" yaml:"raw_xml_path,omitempty"`
}

// Provider identifies a language-model backend.
type Provider string

const (
	ProviderGemini Provider = "gemini"
	ProviderClaude Provider = "claude"
	ProviderOpenAI Provider = "openai"
)

// AIConfig holds shared settings for stages that call a Generative AI API.
type AIConfig struct {
	// Provider selects the backend: gemini, claude, or openai.
	Provider Provider `json:"provider" yaml:"provider"`

	// Model is the AI model identifier (e.g. "gemini-2.5-pro").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxRetries is the number of attempts per article (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// RequestTimeout bounds a single API call (default 60s).
	RequestTimeout time.Duration `json:"request_timeout" yaml:"request_timeout"`

	// RequestsPerMinute paces API calls; zero disables pacing.
	RequestsPerMinute int `json:"requests_per_minute" yaml:"requests_per_minute"`
}

// ClassifyConfig holds settings for the classify stage.
type ClassifyConfig struct {
	AIConfig `yaml:",inline"`

	// MaxArticles limits how many articles with abstracts are assessed;
	// zero means all.
	MaxArticles int `json:"max_articles" yaml:"max_articles"`

	// Workers is the number of concurrent requests (default 1).
	Workers int `json:"workers" yaml:"workers"`

	// SkipAssessed skips articles the store already holds an assessment for
	// under the same model.
	SkipAssessed bool `json:"skip_assessed" yaml:"skip_assessed"`

	// OutputDir is where assessment JSON files are written.
	OutputDir string `json:"output_dir" yaml:"output_dir"`
}

// ExportConfig holds settings for the export stage.
type ExportConfig struct {
	// OutputDir is where CSV and Markdown reports are written.
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// ReportLimit caps the entries in the Markdown report (default 20).
	ReportLimit int `json:"report_limit" yaml:"report_limit"`

	// ConsoleLimit caps the entries printed to the console (default 5).
	ConsoleLimit int `json:"console_limit" yaml:"console_limit"`
}

// StoreConfig holds settings for the assessment store.
type StoreConfig struct {
	// DataDir is the base directory (contains index/).
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// MaxResults is the default maximum number of query results (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// PipelineConfig groups all stage configurations for the pipeline.
type PipelineConfig struct {
	Fetch    FetchConfig    `json:"fetch" yaml:"fetch"`
	Classify ClassifyConfig `json:"classify" yaml:"classify"`
	Export   ExportConfig   `json:"export" yaml:"export"`
	Store    StoreConfig    `json:"store" yaml:"store"`
}
