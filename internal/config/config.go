package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigPath = "./configs/config.yaml"

	defaultBaseDir       = "./data"
	defaultAddr          = ":8000"
	defaultEmbedProvider = "ollama"
	defaultEmbedURL      = "http://localhost:11434"
	defaultEmbedModel    = "bge-m3"
	defaultDimensions    = 768
	defaultBatchSize     = 16
	defaultTopK          = 3
	defaultThreshold     = 5.0
	defaultSettleDelayMS = 500
)

type ServerConfig struct {
	Addr    string `yaml:"addr"`
	GinMode string `yaml:"gin_mode"`
}

type StorageConfig struct {
	Dir          string `yaml:"dir"`
	IndexFile    string `yaml:"index_file"`
	MetadataFile string `yaml:"metadata_file"`
}

type IngestConfig struct {
	InputDir      string `yaml:"input_dir"`
	SettleDelayMS int    `yaml:"settle_delay_ms"`
	Watch         bool   `yaml:"watch"`
}

type LLMConfig struct {
	Provider   string `yaml:"provider"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	Key        string `yaml:"key"`
	Dimensions int    `yaml:"dimensions"`
	BatchSize  int    `yaml:"batch_size"`
}

type RAGConfig struct {
	ChunkConfigPath     string  `yaml:"chunk_config_path"`
	SimilarityThreshold float32 `yaml:"similarity_threshold"`
	TopK                int     `yaml:"top_k"`
	EncryptionKey       string  `yaml:"encryption_key"`
}

type SessionsConfig struct {
	// Driver is "file" or "postgres".
	Driver string `yaml:"driver"`
	Dir    string `yaml:"dir"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	// Driver is "pgdriver" or "pq".
	Driver string `yaml:"driver"`
	Debug  bool   `yaml:"debug"`
}

type Config struct {
	BaseDir  string         `yaml:"base_dir"`
	LogLevel string         `yaml:"log_level"`
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Ingest   IngestConfig   `yaml:"ingest"`
	EmbedLLM LLMConfig      `yaml:"embed_llm"`
	RAG      RAGConfig      `yaml:"rag"`
	Sessions SessionsConfig `yaml:"sessions"`
	Database DatabaseConfig `yaml:"database"`
}

// LoadConfig reads the YAML config at path. A missing file yields defaults;
// a malformed one is an error. Secrets can be overridden from the environment.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}
	applyEnvOverrides(&cfg)
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	var cfg Config
	applyConfigDefaults(&cfg)
	return &cfg
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("EMBED_API_KEY"); v != "" {
		cfg.EmbedLLM.Key = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("DATABASE_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
}

func applyConfigDefaults(cfg *Config) {
	if cfg.BaseDir == "" {
		cfg.BaseDir = defaultBaseDir
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "debug"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultAddr
	}
	if cfg.Server.GinMode == "" {
		cfg.Server.GinMode = "release"
	}

	cfg.Storage.Dir = underBase(cfg.BaseDir, cfg.Storage.Dir, "vector_db")
	if cfg.Storage.IndexFile == "" {
		cfg.Storage.IndexFile = "vector.index"
	}
	if cfg.Storage.MetadataFile == "" {
		cfg.Storage.MetadataFile = "metadata.json"
	}

	cfg.Ingest.InputDir = underBase(cfg.BaseDir, cfg.Ingest.InputDir, "input_files")
	if cfg.Ingest.SettleDelayMS <= 0 {
		cfg.Ingest.SettleDelayMS = defaultSettleDelayMS
	}

	if cfg.EmbedLLM.Provider == "" {
		cfg.EmbedLLM.Provider = defaultEmbedProvider
	}
	cfg.EmbedLLM.Provider = strings.ToLower(cfg.EmbedLLM.Provider)
	if cfg.EmbedLLM.BaseURL == "" && cfg.EmbedLLM.Provider == defaultEmbedProvider {
		cfg.EmbedLLM.BaseURL = defaultEmbedURL
	}
	if cfg.EmbedLLM.Model == "" {
		cfg.EmbedLLM.Model = defaultEmbedModel
	}
	if cfg.EmbedLLM.Dimensions <= 0 {
		cfg.EmbedLLM.Dimensions = defaultDimensions
	}
	if cfg.EmbedLLM.BatchSize <= 0 {
		cfg.EmbedLLM.BatchSize = defaultBatchSize
	}

	cfg.RAG.ChunkConfigPath = underBase(cfg.BaseDir, cfg.RAG.ChunkConfigPath, "chunk_config.json")
	if cfg.RAG.SimilarityThreshold <= 0 {
		cfg.RAG.SimilarityThreshold = defaultThreshold
	}
	if cfg.RAG.TopK <= 0 {
		cfg.RAG.TopK = defaultTopK
	}

	if cfg.Sessions.Driver == "" {
		cfg.Sessions.Driver = "file"
	}
	cfg.Sessions.Dir = underBase(cfg.BaseDir, cfg.Sessions.Dir, "chat_sessions")

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "pgdriver"
	}
}

// underBase returns value when set, otherwise name inside base.
func underBase(base, value, name string) string {
	if value != "" {
		return value
	}
	return filepath.Join(base, name)
}
