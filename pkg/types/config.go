// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// EngineName selects the conversion backend.
type EngineName string

const (
	EngineNative     EngineName = "native"
	EngineMarkitdown EngineName = "markitdown"
	EngineGemini     EngineName = "gemini"
)

// GeminiConfig holds settings for the Gemini conversion backend.
type GeminiConfig struct {
	// Model is the Gemini model identifier (default "gemini-2.5-flash").
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// APIKey authenticates against the Gemini API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// MaxRetries is the number of retries on HTTP 429 (default 5).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`

	// BaseURL overrides the API endpoint, for proxies and tests.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url"`
}

// Settings is the resolved configuration of one docmark run.
type Settings struct {
	// InputDir is the root that relative config entries resolve against.
	InputDir string `json:"input_dir" yaml:"input_dir" mapstructure:"input_dir"`

	// OutputDir receives Markdown files, image directories and patched PDFs.
	OutputDir string `json:"output_dir" yaml:"output_dir" mapstructure:"output_dir"`

	// ConfigFile lists the documents to convert, one per line.
	ConfigFile string `json:"config_file" yaml:"config_file" mapstructure:"config_file"`

	// Engine selects the conversion backend.
	Engine EngineName `json:"engine" yaml:"engine" mapstructure:"engine"`

	// Frontmatter prepends a YAML header to each Markdown file.
	Frontmatter bool `json:"frontmatter" yaml:"frontmatter" mapstructure:"frontmatter"`

	// Incremental skips sources unchanged since their last successful
	// conversion.
	Incremental bool `json:"incremental" yaml:"incremental" mapstructure:"incremental"`

	// PageBox is the geometry injected into pages missing a MediaBox.
	PageBox Box `json:"page_box" yaml:"page_box" mapstructure:"-"`

	// MarkitdownImage is the container image used by the markitdown engine.
	MarkitdownImage string `json:"markitdown_image" yaml:"markitdown_image" mapstructure:"markitdown_image"`

	Gemini GeminiConfig `json:"gemini" yaml:"gemini" mapstructure:"gemini"`
}
