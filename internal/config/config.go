package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Gemini    GeminiConfig    `yaml:"gemini" mapstructure:"gemini"`
	Corpus    CorpusConfig    `yaml:"corpus" mapstructure:"corpus"`
	Pipeline  PipelineConfig  `yaml:"pipeline" mapstructure:"pipeline"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// AnthropicConfig holds Anthropic API settings for field extraction.
type AnthropicConfig struct {
	Key         string  `yaml:"key" mapstructure:"key"`
	Model       string  `yaml:"model" mapstructure:"model"`
	MaxTokens   int64   `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`
}

// GeminiConfig holds Google embedding API settings.
type GeminiConfig struct {
	Key            string `yaml:"key" mapstructure:"key"`
	EmbeddingModel string `yaml:"embedding_model" mapstructure:"embedding_model"`
}

// CorpusConfig configures the regulatory corpus store and ingestion.
type CorpusConfig struct {
	Path              string  `yaml:"path" mapstructure:"path"`
	ChunkSize         int     `yaml:"chunk_size" mapstructure:"chunk_size"`
	ChunkOverlap      int     `yaml:"chunk_overlap" mapstructure:"chunk_overlap"`
	EmbedRatePerSec   float64 `yaml:"embed_rate_per_sec" mapstructure:"embed_rate_per_sec"`
	RelevanceMinScore float64 `yaml:"relevance_min_score" mapstructure:"relevance_min_score"`
}

// PipelineConfig configures per-query behavior.
type PipelineConfig struct {
	TopK                  int `yaml:"top_k" mapstructure:"top_k"`
	MinQuestionLen        int `yaml:"min_question_len" mapstructure:"min_question_len"`
	RetrievalTimeoutSecs  int `yaml:"retrieval_timeout_secs" mapstructure:"retrieval_timeout_secs"`
	ExtractionTimeoutSecs int `yaml:"extraction_timeout_secs" mapstructure:"extraction_timeout_secs"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("COREP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 4096)
	v.SetDefault("anthropic.temperature", 0.0)
	v.SetDefault("gemini.embedding_model", "gemini-embedding-001")
	v.SetDefault("corpus.path", "corpus.db")
	v.SetDefault("corpus.chunk_size", 800)
	v.SetDefault("corpus.chunk_overlap", 100)
	v.SetDefault("corpus.embed_rate_per_sec", 2.0)
	v.SetDefault("corpus.relevance_min_score", 0.65)
	v.SetDefault("pipeline.top_k", 5)
	v.SetDefault("pipeline.min_question_len", 10)
	v.SetDefault("pipeline.retrieval_timeout_secs", 30)
	v.SetDefault("pipeline.extraction_timeout_secs", 120)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
