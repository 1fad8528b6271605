package rag

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"document-qa/internal/chunking"
	"document-qa/internal/models"
	"document-qa/internal/vectorstore"
)

type countingEmbedder struct{}

func (countingEmbedder) vector(text string) []float32 {
	v := make([]float32, 3)
	for i, r := range []rune(text) {
		v[i%3] += float32(r % 13)
	}
	return v
}

func (e countingEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.vector(t)
	}
	return out, nil
}

func (e countingEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return e.vector(text), nil
}

func (countingEmbedder) Dimensions() int { return 3 }

func setupIngestor(t *testing.T, chunkConfig string) (*Ingestor, *vectorstore.Store, string) {
	t.Helper()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "chunk_config.json")
	require.NoError(t, os.WriteFile(cfgPath, []byte(chunkConfig), 0o644))

	store, err := vectorstore.Open(filepath.Join(dir, "store"), countingEmbedder{})
	require.NoError(t, err)
	return NewIngestor(chunking.NewEngine(cfgPath), store), store, dir
}

func TestIngestor_ColumnRecordCSV(t *testing.T) {
	ing, store, dir := setupIngestor(t, `{"csv": {"people.csv": {"strategy": "column_record", "mapping": {"name": 0, "phone": 2}}}}`)
	path := filepath.Join(dir, "people.csv")
	require.NoError(t, os.WriteFile(path, []byte("kim,dev,010-1111\nlee,ops,010-2222\n"), 0o644))

	res, err := ing.IngestFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, IngestResult{FileName: "people.csv", Chunks: 2, Added: 2}, res)

	records := store.Records()
	require.Len(t, records, 2)
	assert.Equal(t, models.NoPage, records[0].PageNo())
	assert.Equal(t, "name: kim\nphone: 010-1111", Render(records[0]))

	res, err = ing.IngestFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Added)
	assert.Equal(t, 2, res.Skipped)
}

func TestIngestor_LawText(t *testing.T) {
	ing, store, dir := setupIngestor(t, `{"pdf": {"statute.txt": {"strategy": "law"}}}`)
	path := filepath.Join(dir, "statute.txt")
	require.NoError(t, os.WriteFile(path, []byte("제1조(목적)\n이 법은...\n제2조(정의) 1. 사람 2. 동물"), 0o644))

	chunks, err := ing.Chunks(path)
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	res, err := ing.IngestFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Added)
	title, _ := store.Records()[2].Fields.Get(models.KeyTitle)
	assert.Equal(t, "정의", title.String())
}

func TestIngestor_ExtractionFailureLeavesStore(t *testing.T) {
	ing, store, dir := setupIngestor(t, `{}`)

	_, err := ing.IngestFile(context.Background(), filepath.Join(dir, "image.png"))
	assert.ErrorIs(t, err, models.ErrUnsupportedFormat)

	_, err = ing.IngestFile(context.Background(), filepath.Join(dir, "missing.txt"))
	assert.Error(t, err)
	assert.Zero(t, store.Len())
}
