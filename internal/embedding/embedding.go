package embedding

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"document-qa/internal/config"
)

const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// Service is a langchaingo embedder that also reports its vector dimension.
type Service struct {
	*embeddings.EmbedderImpl
	dimensions int
}

// Dimensions returns the configured native dimension of the embedding model.
func (s *Service) Dimensions() int { return s.dimensions }

// New creates the embedder selected by cfg.Provider.
func New(cfg *config.LLMConfig) (*Service, error) {
	var (
		impl *embeddings.EmbedderImpl
		err  error
	)
	switch cfg.Provider {
	case ProviderOllama, "":
		impl, err = NewOllamaEmbedder(cfg)
	case ProviderOpenAI:
		impl, err = NewOpenAIEmbedder(cfg)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return &Service{EmbedderImpl: impl, dimensions: cfg.Dimensions}, nil
}

// new ollama embedder
func NewOllamaEmbedder(cfg *config.LLMConfig) (*embeddings.EmbedderImpl, error) {
	log.Debug().Interface("config", map[string]string{
		"base_url":        cfg.BaseURL,
		"embedding_model": cfg.Model,
	}).Msg("Creating ollama embedder")

	llm, err := ollama.New(
		ollama.WithServerURL(cfg.BaseURL),
		ollama.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ollama client: %w", err)
	}
	return newEmbedder(llm, cfg)
}

// NewOpenAIEmbedder works with any OpenAI compatible endpoint.
func NewOpenAIEmbedder(cfg *config.LLMConfig) (*embeddings.EmbedderImpl, error) {
	log.Debug().Interface("config", map[string]string{
		"base_url":        cfg.BaseURL,
		"embedding_model": cfg.Model,
	}).Msg("Creating openai embedder")

	opts := []openai.Option{
		openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
		openai.WithModel(cfg.Model),
		openai.WithEmbeddingModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize openai client: %w", err)
	}
	return newEmbedder(llm, cfg)
}

func newEmbedder(client embeddings.EmbedderClient, cfg *config.LLMConfig) (*embeddings.EmbedderImpl, error) {
	embedder, err := embeddings.NewEmbedder(client,
		embeddings.WithBatchSize(cfg.BatchSize),
		embeddings.WithStripNewLines(false),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	return embedder, nil
}
