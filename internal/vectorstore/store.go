// Package vectorstore keeps chunk vectors and their metadata as one logical
// table: an exact L2 index plus a positional metadata sequence, persisted
// together under a storage directory.
package vectorstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"

	"document-qa/internal/models"
	"document-qa/internal/resolver"
)

const (
	DefaultIndexFile    = "vector.index"
	DefaultMetadataFile = "metadata.json"
)

// Embedder turns text into fixed-dimension vectors. Dimensions reports the
// native dimension used for an empty index.
type Embedder interface {
	embeddings.Embedder
	Dimensions() int
}

// snapshot is an immutable (index, metadata) pair. Readers only ever see a
// whole snapshot, so both views always have the same length.
type snapshot struct {
	index   *FlatIndex
	records []models.MetadataRecord
}

// Store is safe for concurrent use. Writers are serialized; readers load the
// current snapshot without locking.
type Store struct {
	dir          string
	indexFile    string
	metadataFile string
	embedder     Embedder

	mu      sync.Mutex
	current atomic.Pointer[snapshot]
}

type Option func(*Store)

func WithIndexFile(name string) Option {
	return func(s *Store) {
		if name != "" {
			s.indexFile = name
		}
	}
}

func WithMetadataFile(name string) Option {
	return func(s *Store) {
		if name != "" {
			s.metadataFile = name
		}
	}
}

// AppendResult reports what an Append call did.
type AppendResult struct {
	Added   int
	Skipped int
	Total   int
}

// Stats describes the committed store state.
type Stats struct {
	Initialized bool           `json:"initialized"`
	Vectors     int            `json:"vectors"`
	Dimension   int            `json:"dimension"`
	Files       map[string]int `json:"files"`
}

// Open loads persisted artifacts from dir. Missing or inconsistent artifacts
// leave the store uninitialized rather than failing.
func Open(dir string, embedder Embedder, opts ...Option) (*Store, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required: %w", models.ErrInvalidInput)
	}
	s := &Store{
		dir:          dir,
		indexFile:    DefaultIndexFile,
		metadataFile: DefaultMetadataFile,
		embedder:     embedder,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage dir: %w", err)
	}

	snap, err := s.load()
	switch {
	case err == nil:
		s.current.Store(snap)
		log.Info().Int("vectors", snap.index.Len()).Int("dimension", snap.index.Dimension()).Msg("Vector index loaded")
	case errors.Is(err, os.ErrNotExist):
		log.Info().Str("dir", dir).Msg("No vector index found, starting fresh")
	default:
		log.Warn().Err(err).Str("dir", dir).Msg("Vector index unusable, starting fresh")
	}
	return s, nil
}

func (s *Store) indexPath() string    { return filepath.Join(s.dir, s.indexFile) }
func (s *Store) metadataPath() string { return filepath.Join(s.dir, s.metadataFile) }

func (s *Store) load() (*snapshot, error) {
	f, err := os.Open(s.indexPath())
	if err != nil {
		return nil, err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	idx, sum, err := readIndex(f, info.Size())
	if err != nil {
		return nil, err
	}
	meta, err := os.ReadFile(s.metadataPath())
	if err != nil {
		return nil, fmt.Errorf("metadata unreadable: %w", err)
	}
	records, err := decodeMetadata(meta)
	if err != nil {
		return nil, err
	}
	if sha256.Sum256(meta) != sum {
		records, err = committedPrefix(records, idx.Len(), sum)
		if err != nil {
			return nil, err
		}
		log.Warn().Int("vectors", idx.Len()).Str("dir", s.dir).Msg("Metadata ahead of index, keeping the records the index covers")
	}
	if len(records) != idx.Len() {
		return nil, fmt.Errorf("%w: %d vectors for %d records", errCorruptIndex, idx.Len(), len(records))
	}
	for i, r := range records {
		if r.ID != i {
			return nil, fmt.Errorf("%w: record at position %d has id %d", errCorruptIndex, i, r.ID)
		}
	}
	return &snapshot{index: idx, records: records}, nil
}

// committedPrefix returns the first n records when they encode to exactly the
// metadata the index was written with. That is the state left by a crash
// between the two renames of an append.
func committedPrefix(records []models.MetadataRecord, n int, sum [sha256.Size]byte) ([]models.MetadataRecord, error) {
	if len(records) < n {
		return nil, fmt.Errorf("%w: metadata does not match index", errCorruptIndex)
	}
	prefix := records[:n:n]
	meta, err := encodeMetadata(prefix)
	if err != nil {
		return nil, err
	}
	if sha256.Sum256(meta) != sum {
		return nil, fmt.Errorf("%w: metadata does not match index", errCorruptIndex)
	}
	return prefix, nil
}

// persist writes both artifacts. The metadata file is renamed first and the
// index header carries the checksum of the metadata it was written with, so
// load can tell which records a surviving index still covers.
func (s *Store) persist(snap *snapshot) error {
	meta, err := encodeMetadata(snap.records)
	if err != nil {
		return err
	}
	sum := sha256.Sum256(meta)

	metaTmp, err := writeTemp(s.dir, s.metadataFile+".*.tmp", func(w io.Writer) error {
		_, err := io.Copy(w, bytes.NewReader(meta))
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	indexTmp, err := writeTemp(s.dir, s.indexFile+".*.tmp", func(w io.Writer) error {
		return writeIndex(w, snap.index, sum)
	})
	if err != nil {
		os.Remove(metaTmp)
		return fmt.Errorf("failed to write index: %w", err)
	}

	if err := os.Rename(metaTmp, s.metadataPath()); err != nil {
		os.Remove(metaTmp)
		os.Remove(indexTmp)
		return fmt.Errorf("failed to commit metadata: %w", err)
	}
	if err := os.Rename(indexTmp, s.indexPath()); err != nil {
		os.Remove(indexTmp)
		return fmt.Errorf("failed to commit index: %w", err)
	}
	return nil
}

// commit persists snap and publishes it. On failure the previous snapshot
// stays current.
func (s *Store) commit(snap *snapshot) error {
	if err := s.persist(snap); err != nil {
		return err
	}
	s.current.Store(snap)
	return nil
}

// Append embeds and stores chunks that are not already present. A chunk is
// present when the hash of its embedding text matches any stored record or an
// earlier chunk of the same call.
func (s *Store) Append(ctx context.Context, chunks []models.ChunkRecord, fileName string) (AppendResult, error) {
	if len(chunks) == 0 {
		log.Debug().Str("file", fileName).Msg("No chunks to store")
		return AppendResult{Total: s.Len()}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.current.Load()
	var existing []models.MetadataRecord
	if cur != nil {
		existing = cur.records
	}

	seen := make(map[string]struct{}, len(existing)+len(chunks))
	for _, r := range existing {
		seen[r.Hash] = struct{}{}
	}

	var (
		texts   []string
		pending []models.MetadataRecord
	)
	for _, c := range chunks {
		fields := c.Without(models.KeyID, models.KeyFileName, models.KeyHash)
		text, hash := resolver.ResolveAndHash(fields)
		if _, dup := seen[hash]; dup {
			continue
		}
		seen[hash] = struct{}{}
		texts = append(texts, text)
		pending = append(pending, models.MetadataRecord{
			ID:       len(existing) + len(pending),
			FileName: fileName,
			Fields:   fields,
			Hash:     hash,
		})
	}

	result := AppendResult{Skipped: len(chunks) - len(pending), Total: len(existing)}
	if len(pending) == 0 {
		log.Info().Str("file", fileName).Int("skipped", result.Skipped).Msg("All chunks already stored, nothing to add")
		return result, nil
	}

	vectors, err := s.embed(ctx, texts)
	if err != nil {
		return result, err
	}

	var index *FlatIndex
	if cur == nil || cur.index.Len() == 0 {
		index = NewFlatIndex(len(vectors[0]))
	} else {
		index = cur.index.Clone()
	}
	if err := index.Add(vectors...); err != nil {
		return result, err
	}

	records := make([]models.MetadataRecord, 0, len(existing)+len(pending))
	records = append(records, existing...)
	records = append(records, pending...)

	if err := s.commit(&snapshot{index: index, records: records}); err != nil {
		return result, err
	}

	result.Added = len(pending)
	result.Total = len(records)
	log.Info().Str("file", fileName).Int("added", result.Added).Int("skipped", result.Skipped).
		Int("total", result.Total).Msg("Stored chunks")
	return result, nil
}

// Rebuild replaces the whole store with records. Ids are reassigned by
// position and every record is re-embedded in one batch. An empty input
// yields an empty index of the embedder's native dimension.
func (s *Store) Rebuild(ctx context.Context, records []models.MetadataRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rebuildLocked(ctx, records)
}

func (s *Store) rebuildLocked(ctx context.Context, records []models.MetadataRecord) error {
	cleaned := make([]models.MetadataRecord, len(records))
	texts := make([]string, len(records))
	for i, r := range records {
		fields := r.Fields.Without(models.KeyID, models.KeyFileName, models.KeyHash)
		text, hash := resolver.ResolveAndHash(fields)
		texts[i] = text
		cleaned[i] = models.MetadataRecord{ID: i, FileName: r.FileName, Fields: fields, Hash: hash}
	}

	if len(cleaned) == 0 {
		if err := s.commit(&snapshot{index: NewFlatIndex(s.embedder.Dimensions())}); err != nil {
			return err
		}
		log.Info().Msg("Vector index reset to empty")
		return nil
	}

	vectors, err := s.embed(ctx, texts)
	if err != nil {
		return err
	}
	index := NewFlatIndex(len(vectors[0]))
	if err := index.Add(vectors...); err != nil {
		return err
	}
	if err := s.commit(&snapshot{index: index, records: cleaned}); err != nil {
		return err
	}
	log.Info().Int("vectors", index.Len()).Msg("Vector index rebuilt")
	return nil
}

// DeleteFile drops every record of fileName and compacts the store, reusing
// the stored vectors of the remaining records. It returns the number removed.
func (s *Store) DeleteFile(ctx context.Context, fileName string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.current.Load()
	if cur == nil {
		return 0, models.ErrStoreUninitialized
	}

	index := NewFlatIndex(cur.index.Dimension())
	var kept []models.MetadataRecord
	for i, r := range cur.records {
		if r.FileName == fileName {
			continue
		}
		r.ID = len(kept)
		kept = append(kept, r)
		if err := index.Add(cur.index.Vector(i)); err != nil {
			return 0, err
		}
	}

	removed := len(cur.records) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	if err := s.commit(&snapshot{index: index, records: kept}); err != nil {
		return 0, err
	}
	log.Info().Str("file", fileName).Int("removed", removed).Int("total", len(kept)).Msg("Deleted document from store")
	return removed, nil
}

// Search returns up to topK records ordered by ascending L2 distance to the
// query embedding.
func (s *Store) Search(ctx context.Context, query string, topK int) ([]models.SearchHit, error) {
	cur := s.current.Load()
	if cur == nil {
		return nil, models.ErrStoreUninitialized
	}
	if topK <= 0 {
		return nil, fmt.Errorf("top_k must be positive, got %d: %w", topK, models.ErrInvalidInput)
	}
	if cur.index.Len() == 0 {
		return []models.SearchHit{}, nil
	}

	q, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	neighbors, err := cur.index.Search(q, topK)
	if err != nil {
		return nil, err
	}

	hits := make([]models.SearchHit, 0, len(neighbors))
	for _, n := range neighbors {
		if n.Position < 0 || n.Position >= len(cur.records) {
			log.Warn().Int("position", n.Position).Msg("Index position without metadata, skipping")
			continue
		}
		hits = append(hits, models.SearchHit{MetadataRecord: cur.records[n.Position], Score: n.Distance})
	}
	return hits, nil
}

// Records returns a copy of the committed metadata table.
func (s *Store) Records() []models.MetadataRecord {
	cur := s.current.Load()
	if cur == nil {
		return nil
	}
	out := make([]models.MetadataRecord, len(cur.records))
	copy(out, cur.records)
	return out
}

// Snapshot returns the committed records with their vectors, position by position.
func (s *Store) Snapshot() ([]models.MetadataRecord, [][]float32) {
	cur := s.current.Load()
	if cur == nil {
		return nil, nil
	}
	vectors := make([][]float32, cur.index.Len())
	for i := range vectors {
		vectors[i] = cur.index.Vector(i)
	}
	return s.Records(), vectors
}

// Len returns the number of committed records.
func (s *Store) Len() int {
	cur := s.current.Load()
	if cur == nil {
		return 0
	}
	return len(cur.records)
}

func (s *Store) Stats() Stats {
	cur := s.current.Load()
	if cur == nil {
		return Stats{Files: map[string]int{}}
	}
	files := make(map[string]int)
	for _, r := range cur.records {
		files[r.FileName]++
	}
	return Stats{
		Initialized: true,
		Vectors:     cur.index.Len(),
		Dimension:   cur.index.Dimension(),
		Files:       files,
	}
}

// Files lists stored file names in sorted order.
func (s *Store) Files() []string {
	stats := s.Stats()
	names := make([]string, 0, len(stats.Files))
	for name := range stats.Files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// embed runs one batch and validates its shape. Any failure discards the
// whole batch.
func (s *Store) embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed %d chunks: %w", len(texts), err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(texts))
	}
	dim := len(vectors[0])
	if dim == 0 {
		return nil, fmt.Errorf("embedder returned empty vectors: %w", models.ErrDimensionMismatch)
	}
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("vector %d has dimension %d, batch has %d: %w", i, len(v), dim, models.ErrDimensionMismatch)
		}
	}
	return vectors, nil
}
