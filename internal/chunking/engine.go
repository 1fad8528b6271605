// Package chunking turns extracted document text into chunk records using a
// strategy chosen per file from the chunk config.
package chunking

import (
	"github.com/rs/zerolog/log"

	"document-qa/internal/models"
)

// Engine resolves a strategy per file and applies it. The config file is read
// on every call so edits take effect without a restart.
type Engine struct {
	configPath string
}

func NewEngine(configPath string) *Engine {
	return &Engine{configPath: configPath}
}

// Settings returns the resolved settings for fileName.
func (e *Engine) Settings(fileName string) Settings {
	return LoadFileConfig(e.configPath).Resolve(fileName)
}

// Apply chunks rawText with the strategy configured for fileName.
func (e *Engine) Apply(rawText, fileName string) []models.ChunkRecord {
	s := e.Settings(fileName)
	log.Debug().Str("file", fileName).Str("strategy", s.Strategy.String()).
		Int("chunk_size", s.ChunkSize).Int("overlap", s.Overlap).Msg("Applying chunk strategy")
	return Apply(rawText, s)
}

// ApplyPages chunks every page and prefixes each record with its page_no.
func (e *Engine) ApplyPages(pages []models.Page, fileName string) []models.ChunkRecord {
	s := e.Settings(fileName)
	var chunks []models.ChunkRecord
	for _, p := range pages {
		for _, c := range Apply(p.Text, s) {
			chunks = append(chunks, c.Prepend(models.Field{Key: models.KeyPageNo, Value: p.Number}))
		}
	}
	log.Debug().Str("file", fileName).Str("strategy", s.Strategy.String()).
		Int("pages", len(pages)).Int("chunks", len(chunks)).Msg("Chunked document")
	return chunks
}

// Apply dispatches to the strategy in s.
func Apply(rawText string, s Settings) []models.ChunkRecord {
	switch s.Strategy {
	case Law:
		return ChunkLaw(rawText)
	case ColumnRecord:
		return ChunkColumnRecords(rawText, s.Mapping)
	case Page:
		return ChunkPage(rawText)
	default:
		return ChunkRegular(rawText, s.ChunkSize, s.Overlap)
	}
}
