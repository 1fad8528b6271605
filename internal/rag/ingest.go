package rag

import (
	"context"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"document-qa/internal/chunking"
	"document-qa/internal/models"
	"document-qa/internal/parser"
	"document-qa/internal/vectorstore"
)

// Appender is the write side of the vector store.
type Appender interface {
	Append(ctx context.Context, chunks []models.ChunkRecord, fileName string) (vectorstore.AppendResult, error)
}

// IngestResult summarizes one ingested file.
type IngestResult struct {
	FileName string `json:"filename"`
	Chunks   int    `json:"chunks"`
	Added    int    `json:"added"`
	Skipped  int    `json:"skipped"`
}

// Ingestor extracts, chunks and stores documents.
type Ingestor struct {
	engine *chunking.Engine
	store  Appender
}

func NewIngestor(engine *chunking.Engine, store Appender) *Ingestor {
	return &Ingestor{engine: engine, store: store}
}

// Chunks extracts filePath and applies the configured chunk strategy. Every
// chunk carries the page_no of the page it came from.
func (i *Ingestor) Chunks(filePath string) ([]models.ChunkRecord, error) {
	pages, err := parser.ExtractPages(filePath)
	if err != nil {
		return nil, err
	}
	return i.engine.ApplyPages(pages, filepath.Base(filePath)), nil
}

// IngestFile chunks filePath and appends the chunks under its base name.
// Extraction errors leave the store untouched.
func (i *Ingestor) IngestFile(ctx context.Context, filePath string) (IngestResult, error) {
	fileName := filepath.Base(filePath)
	chunks, err := i.Chunks(filePath)
	if err != nil {
		return IngestResult{FileName: fileName}, err
	}

	res, err := i.store.Append(ctx, chunks, fileName)
	if err != nil {
		return IngestResult{FileName: fileName, Chunks: len(chunks)}, err
	}
	log.Info().Str("file", fileName).Int("chunks", len(chunks)).Int("added", res.Added).Msg("Ingested document")
	return IngestResult{FileName: fileName, Chunks: len(chunks), Added: res.Added, Skipped: res.Skipped}, nil
}
