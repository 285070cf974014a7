// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "causal-kg/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// GenerationConfig holds settings for the text-generation service shared by
// every stage that prompts a model.
type GenerationConfig struct {
	// Model is the model identifier (default "gpt-4").
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// BaseURL points at an OpenAI-compatible endpoint. Empty uses the
	// OpenAI default.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url"`

	// APIKey is the authentication key for the generation API.
	APIKey string `json:"-" yaml:"-" mapstructure:"api_key"`

	// Temperature is the sampling temperature (default 0.5).
	Temperature float32 `json:"temperature" yaml:"temperature" mapstructure:"temperature"`

	// MaxTokens is the completion token budget per call (default 500).
	MaxTokens int `json:"max_tokens" yaml:"max_tokens" mapstructure:"max_tokens"`

	// MaxRetries is the number of retries for retryable failures (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`

	// Timeout bounds a single generation request.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
}

// SearchConfig holds settings for the search stage.
type SearchConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// MaxResults is the number of PubMed records to fetch (default 20).
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results"`

	// TopK is the number of articles the model should select (default 5).
	TopK int `json:"top_k" yaml:"top_k" mapstructure:"top_k"`

	// NCBIAPIKey raises the E-utilities rate limit when set.
	NCBIAPIKey string `json:"-" yaml:"-" mapstructure:"ncbi_api_key"`

	// Email is sent to NCBI as the contact address.
	Email string `json:"email,omitempty" yaml:"email,omitempty" mapstructure:"email"`

	// OutputDir is where search run records are written (default "search").
	OutputDir string `json:"output_dir" yaml:"output_dir" mapstructure:"output_dir"`
}

// AcquisitionConfig holds settings for the acquisition stage.
type AcquisitionConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// DownloadDelay is the delay between consecutive downloads.
	DownloadDelay time.Duration `json:"download_delay" yaml:"download_delay" mapstructure:"download_delay"`

	// PapersDir is the base directory for papers (contains raw/, text/).
	PapersDir string `json:"papers_dir" yaml:"papers_dir" mapstructure:"papers_dir"`

	// Overwrite replaces files that already exist.
	Overwrite bool `json:"overwrite" yaml:"overwrite" mapstructure:"overwrite"`

	// Validate checks each downloaded file is a structurally valid PDF.
	Validate bool `json:"validate" yaml:"validate" mapstructure:"validate"`
}

// ConversionBackend identifies the PDF text extraction tool.
type ConversionBackend string

const (
	// BackendPdftotext runs the pdftotext binary from PATH.
	BackendPdftotext ConversionBackend = "pdftotext"

	// BackendContainer runs pdftotext inside a docker or podman image.
	BackendContainer ConversionBackend = "container"
)

// ConversionConfig holds settings for the conversion stage.
type ConversionConfig struct {
	// Backend selects the extraction tool: pdftotext or container.
	Backend ConversionBackend `json:"backend" yaml:"backend" mapstructure:"backend"`

	// Image is the container image providing pdftotext for the container
	// backend (default "poppler-utils:latest").
	Image string `json:"image" yaml:"image" mapstructure:"image"`

	// PapersDir is the base directory for papers (contains raw/, text/).
	PapersDir string `json:"papers_dir" yaml:"papers_dir" mapstructure:"papers_dir"`
}

// ExtractionConfig holds settings for the causal extraction stage.
type ExtractionConfig struct {
	// ChunkSize is the maximum chunk length in characters (default 600).
	ChunkSize int `json:"chunk_size" yaml:"chunk_size" mapstructure:"chunk_size"`

	// MaxChunks limits how many chunks of each document are processed.
	// Zero processes every chunk.
	MaxChunks int `json:"max_chunks" yaml:"max_chunks" mapstructure:"max_chunks"`

	// Concurrency is the number of extraction jobs run at once (default 1).
	Concurrency int `json:"concurrency" yaml:"concurrency" mapstructure:"concurrency"`

	// DedupTypes skips a causal type already extracted for an earlier
	// chunk of the same document.
	DedupTypes bool `json:"dedup_types" yaml:"dedup_types" mapstructure:"dedup_types"`

	// PapersDir is the base directory for papers (contains text/).
	PapersDir string `json:"papers_dir" yaml:"papers_dir" mapstructure:"papers_dir"`

	// GraphDir is the directory for extraction output.
	GraphDir string `json:"graph_dir" yaml:"graph_dir" mapstructure:"graph_dir"`
}

// PipelineConfig groups all stage configurations for the pipeline.
type PipelineConfig struct {
	Generation  GenerationConfig  `json:"generation" yaml:"generation" mapstructure:"generation"`
	Search      SearchConfig      `json:"search" yaml:"search" mapstructure:"search"`
	Acquisition AcquisitionConfig `json:"acquisition" yaml:"acquisition" mapstructure:"acquisition"`
	Conversion  ConversionConfig  `json:"conversion" yaml:"conversion" mapstructure:"conversion"`
	Extraction  ExtractionConfig  `json:"extraction" yaml:"extraction" mapstructure:"extraction"`
}

// Pipeline defaults.
const (
	DefaultModel       = "gpt-4"
	DefaultTemperature = 0.5
	DefaultMaxTokens   = 500
	DefaultMaxRetries  = 3
	DefaultChunkSize   = 600
	DefaultMaxResults  = 20
	DefaultTopK        = 5
	DefaultUserAgent   = "causal-kg/0.1"
	DefaultPapersDir   = "papers"
	DefaultGraphDir    = "graph"
	DefaultSearchDir   = "search"
	DefaultImage       = "poppler-utils:latest"
)

// DefaultPipelineConfig returns the configuration used when neither a
// config file nor flags say otherwise.
func DefaultPipelineConfig() PipelineConfig {
	httpCfg := HTTPConfig{Timeout: 20 * time.Second, UserAgent: DefaultUserAgent}
	return PipelineConfig{
		Generation: GenerationConfig{
			Model:       DefaultModel,
			Temperature: DefaultTemperature,
			MaxTokens:   DefaultMaxTokens,
			MaxRetries:  DefaultMaxRetries,
			Timeout:     2 * time.Minute,
		},
		Search: SearchConfig{
			HTTPConfig: httpCfg,
			MaxResults: DefaultMaxResults,
			TopK:       DefaultTopK,
			OutputDir:  DefaultSearchDir,
		},
		Acquisition: AcquisitionConfig{
			HTTPConfig:    httpCfg,
			DownloadDelay: time.Second,
			PapersDir:     DefaultPapersDir,
		},
		Conversion: ConversionConfig{
			Backend:   BackendPdftotext,
			Image:     DefaultImage,
			PapersDir: DefaultPapersDir,
		},
		Extraction: ExtractionConfig{
			ChunkSize:   DefaultChunkSize,
			Concurrency: 1,
			PapersDir:   DefaultPapersDir,
			GraphDir:    DefaultGraphDir,
		},
	}
}
