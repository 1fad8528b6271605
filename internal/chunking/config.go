package chunking

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

const (
	DefaultChunkSize = 800 // code points
	DefaultOverlap   = 80  // code points

	KindPDF = "pdf"
	KindCSV = "csv"

	// kindDefaultKey holds the per-kind fallback inside a kind table.
	kindDefaultKey = "default"
)

// Rule is one entry of the chunk config file. Unset fields inherit from the
// next broader rule.
type Rule struct {
	Strategy  *string       `json:"strategy,omitempty"`
	ChunkSize *int          `json:"chunk_size,omitempty"`
	Overlap   *int          `json:"overlap,omitempty"`
	Mapping   ColumnMapping `json:"mapping,omitempty"`
}

// FileConfig is the chunk config document:
//
//	{"default": {...}, "pdf": {"<file>": {...}}, "csv": {"<file>": {...}}}
type FileConfig struct {
	Default Rule            `json:"default"`
	PDF     map[string]Rule `json:"pdf"`
	CSV     map[string]Rule `json:"csv"`
}

// Settings is a fully resolved strategy configuration.
type Settings struct {
	Strategy  Strategy
	ChunkSize int
	Overlap   int
	Mapping   ColumnMapping
}

// DefaultSettings returns the built-in fallback: regular, 800/80.
func DefaultSettings() Settings {
	return Settings{Strategy: Regular, ChunkSize: DefaultChunkSize, Overlap: DefaultOverlap}
}

// LoadFileConfig reads the chunk config at path. A missing or corrupt file
// yields an empty config, which resolves to DefaultSettings.
func LoadFileConfig(path string) FileConfig {
	if path == "" {
		return FileConfig{}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", path).Msg("chunk config unreadable, using defaults")
		}
		return FileConfig{}
	}
	var cfg FileConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("chunk config corrupt, using defaults")
		return FileConfig{}
	}
	return cfg
}

// Kind returns the config section a file belongs to: tabular files are "csv",
// everything else is "pdf".
func Kind(fileName string) string {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".csv", ".xlsx", ".xlsm", ".xltx", ".xltm":
		return KindCSV
	default:
		return KindPDF
	}
}

// Resolve picks the settings for fileName: exact file match, then the kind
// default, then the global default, then built-in values.
func (c FileConfig) Resolve(fileName string) Settings {
	table := c.PDF
	if Kind(fileName) == KindCSV {
		table = c.CSV
	}

	s := DefaultSettings()
	s.apply(c.Default)
	if rule, ok := table[kindDefaultKey]; ok {
		s.apply(rule)
	}
	if rule, ok := table[fileName]; ok {
		s.apply(rule)
	}
	return s
}

func (s *Settings) apply(r Rule) {
	if r.Strategy != nil {
		s.Strategy = ParseStrategy(*r.Strategy)
	}
	if r.ChunkSize != nil {
		s.ChunkSize = *r.ChunkSize
	}
	if r.Overlap != nil {
		s.Overlap = *r.Overlap
	}
	if r.Mapping != nil {
		s.Mapping = r.Mapping
	}
}

// ColumnField maps a record field name to a zero-based CSV column.
type ColumnField struct {
	Name  string
	Index int
}

// ColumnMapping keeps the field order of the config file.
type ColumnMapping []ColumnField

func (m *ColumnMapping) UnmarshalJSON(data []byte) error {
	if string(bytes.TrimSpace(data)) == "null" {
		return nil
	}
	om := orderedmap.New[string, int]()
	if err := json.Unmarshal(data, om); err != nil {
		return fmt.Errorf("mapping: %w", err)
	}
	out := make(ColumnMapping, 0, om.Len())
	for pair := om.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, ColumnField{Name: pair.Key, Index: pair.Value})
	}
	*m = out
	return nil
}

func (m ColumnMapping) MarshalJSON() ([]byte, error) {
	om := orderedmap.New[string, int](orderedmap.WithCapacity[string, int](len(m)))
	for _, f := range m {
		om.Set(f.Name, f.Index)
	}
	return om.MarshalJSON()
}
