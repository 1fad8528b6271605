package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join("data", "vector_db"), cfg.Storage.Dir)
	assert.Equal(t, "vector.index", cfg.Storage.IndexFile)
	assert.Equal(t, 3, cfg.RAG.TopK)
	assert.Equal(t, float32(5.0), cfg.RAG.SimilarityThreshold)
	assert.Equal(t, 768, cfg.EmbedLLM.Dimensions)
	assert.Equal(t, "ollama", cfg.EmbedLLM.Provider)
	assert.Equal(t, "file", cfg.Sessions.Driver)
	assert.Equal(t, 500, cfg.Ingest.SettleDelayMS)
}

func TestLoadConfig_FileValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
base_dir: /srv/qa
server:
  addr: ":9000"
storage:
  dir: /var/lib/qa/index
embed_llm:
  provider: OpenAI
  base_url: https://api.example.com/v1
  model: text-embedding-3-small
  dimensions: 1536
rag:
  top_k: 5
sessions:
  driver: postgres
database:
  url: postgres://qa@localhost:5432/qa
  debug: true
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, "/var/lib/qa/index", cfg.Storage.Dir)
	assert.Equal(t, filepath.Join("/srv/qa", "input_files"), cfg.Ingest.InputDir)
	assert.Equal(t, "openai", cfg.EmbedLLM.Provider)
	assert.Empty(t, cfg.EmbedLLM.Key)
	assert.Equal(t, 1536, cfg.EmbedLLM.Dimensions)
	assert.Equal(t, 5, cfg.RAG.TopK)
	assert.Equal(t, float32(5.0), cfg.RAG.SimilarityThreshold)
	assert.Equal(t, "postgres", cfg.Sessions.Driver)
	assert.True(t, cfg.Database.Debug)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("EMBED_API_KEY", "sk-test")
	t.Setenv("DATABASE_URL", "postgres://env@db:5432/qa")
	t.Setenv("DATABASE_PASSWORD", "secret")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "sk-test", cfg.EmbedLLM.Key)
	assert.Equal(t, "postgres://env@db:5432/qa", cfg.Database.URL)
	assert.Equal(t, "secret", cfg.Database.Password)
}

func TestLoadConfig_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0o644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}
