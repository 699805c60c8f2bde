// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Defaults for the ranking configuration surface.
const (
	DefaultSemanticWeight = 0.7
	DefaultTopK           = 10
	DefaultInterest       = "zero-knowledge proofs, chameleon hash functions, public key cryptography, digital signatures, and cryptographic protocols"
)

// RankConfig holds the parameters of one ranking run.
type RankConfig struct {
	// Interest is the research-interest statement papers are scored against.
	Interest string `mapstructure:"interest" json:"interest,omitempty" yaml:"interest,omitempty"`

	// SemanticWeight is the weight of the normalized similarity score; the
	// normalized rule score gets 1 - SemanticWeight.
	SemanticWeight float64 `mapstructure:"semantic_weight" json:"semantic_weight" yaml:"semantic_weight" validate:"gte=0,lte=1"`

	// TopK is the maximum number of ranked papers returned.
	TopK int `mapstructure:"top_k" json:"top_k" yaml:"top_k" validate:"gte=0"`

	// KeywordsFile points to a YAML keyword table. Empty selects the built-in table.
	KeywordsFile string `mapstructure:"keywords_file" json:"keywords_file,omitempty" yaml:"keywords_file,omitempty"`
}

// RuleWeight returns the weight applied to the normalized rule score.
func (c RankConfig) RuleWeight() float64 {
	return 1 - c.SemanticWeight
}

// DefaultRankConfig returns the configuration used when nothing is set.
func DefaultRankConfig() RankConfig {
	return RankConfig{
		Interest:       DefaultInterest,
		SemanticWeight: DefaultSemanticWeight,
		TopK:           DefaultTopK,
	}
}

// EmbedderProvider identifies the embedding backend.
type EmbedderProvider string

const (
	ProviderTEI    EmbedderProvider = "tei"
	ProviderOpenAI EmbedderProvider = "openai"
	ProviderAzure  EmbedderProvider = "azure"
)

// EmbedderConfig holds settings for the embedding provider.
type EmbedderConfig struct {
	// Provider selects the backend: tei, openai, or azure.
	Provider EmbedderProvider `mapstructure:"provider" json:"provider" yaml:"provider" validate:"oneof=tei openai azure"`

	// BaseURL is the API endpoint (TEI server, OpenAI-compatible base, or
	// Azure resource endpoint).
	BaseURL string `mapstructure:"base_url" json:"base_url" yaml:"base_url"`

	// APIKey authenticates against hosted providers. Unused by tei.
	APIKey string `mapstructure:"api_key" json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// Model is the embedding model name (or Azure deployment name).
	Model string `mapstructure:"model" json:"model" yaml:"model" validate:"required"`

	// BatchSize caps the number of texts sent per request (default 32).
	BatchSize int `mapstructure:"batch_size" json:"batch_size" yaml:"batch_size" validate:"gte=0"`

	// Timeout is the HTTP request timeout.
	Timeout time.Duration `mapstructure:"timeout" json:"timeout" yaml:"timeout"`

	// Cache enables the SQLite embedding cache.
	Cache bool `mapstructure:"cache" json:"cache" yaml:"cache"`

	// Image is the container image started by "embedder start" for tei.
	Image string `mapstructure:"image" json:"image,omitempty" yaml:"image,omitempty"`
}

// StoreConfig holds settings for the SQLite store.
type StoreConfig struct {
	// Path is the database file path.
	Path string `mapstructure:"path" json:"path" yaml:"path"`
}

// LoggingConfig holds settings for the structured logger.
type LoggingConfig struct {
	// Level is the minimum level (trace, debug, info, warn, error).
	Level string `mapstructure:"level" json:"level" yaml:"level"`

	// Format is json or console.
	Format string `mapstructure:"format" json:"format" yaml:"format"`

	// Output is stdout or stderr.
	Output string `mapstructure:"output" json:"output" yaml:"output"`
}

// MetricsConfig holds settings for the Prometheus textfile output.
type MetricsConfig struct {
	// File is the textfile written after each run; empty disables metrics output.
	File string `mapstructure:"file" json:"file,omitempty" yaml:"file,omitempty"`
}

// AppConfig groups all configuration sections.
type AppConfig struct {
	Rank     RankConfig     `mapstructure:"rank" json:"rank" yaml:"rank"`
	Embedder EmbedderConfig `mapstructure:"embedder" json:"embedder" yaml:"embedder"`
	Store    StoreConfig    `mapstructure:"store" json:"store" yaml:"store"`
	Logging  LoggingConfig  `mapstructure:"logging" json:"logging" yaml:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics" json:"metrics" yaml:"metrics"`
}
