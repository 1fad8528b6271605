// Package chromemdb exchanges store snapshots as chromem-go collection files.
package chromemdb

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime"
	"strconv"
	"strings"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"document-qa/internal/models"
	"document-qa/internal/resolver"
)

const (
	CollectionName = "documents"

	metaFileName = "file_name"
	metaHash     = "hash"
	metaRecord   = "record"
)

// VectorDBManager wraps an in-memory chromem database holding one collection.
type VectorDBManager struct {
	db            *chromem.DB
	collection    *chromem.Collection
	filePath      string
	compress      bool
	encryptionKey string
}

// NewVectorDBManager prepares a manager for the snapshot file at filePath.
// Paths ending in .gz are compressed. A non-empty key must be 32 bytes.
func NewVectorDBManager(filePath, encryptionKey string) (*VectorDBManager, error) {
	if filePath == "" {
		return nil, fmt.Errorf("file path is required")
	}
	if encryptionKey != "" && len(encryptionKey) != 32 {
		return nil, fmt.Errorf("encryption key must be 32 bytes, got %d", len(encryptionKey))
	}
	return &VectorDBManager{
		db:            chromem.NewDB(),
		filePath:      filePath,
		compress:      strings.HasSuffix(filePath, ".gz"),
		encryptionKey: encryptionKey,
	}, nil
}

// create or read collection
func (m *VectorDBManager) GetOrCreateCollection(collectionName string) (*chromem.Collection, error) {
	c, err := m.db.GetOrCreateCollection(collectionName, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create/get collection: %w", err)
	}
	m.collection = c
	return c, nil
}

// add multiple documents
func (m *VectorDBManager) CreateDocs(ctx context.Context, documents []chromem.Document) error {
	if len(documents) == 0 {
		return nil
	}
	if err := m.collection.AddDocuments(ctx, documents, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add documents: %w", err)
	}
	return nil
}

// export to file
func (m *VectorDBManager) Export() error {
	if m.collection == nil {
		return fmt.Errorf("collection is required")
	}
	log.Debug().Str("collection", m.collection.Name).Str("file", m.filePath).Bool("compress", m.compress).Msg("Exporting collection")
	if err := m.db.ExportToFile(m.filePath, m.compress, m.encryptionKey, m.collection.Name); err != nil {
		return fmt.Errorf("failed to export database: %w", err)
	}
	return nil
}

// import from file
func (m *VectorDBManager) Import(collectionName string) error {
	if err := m.db.ImportFromFile(m.filePath, m.encryptionKey, collectionName); err != nil {
		return fmt.Errorf("failed to import database: %w", err)
	}
	m.collection = m.db.GetCollection(collectionName, nil)
	if m.collection == nil {
		return fmt.Errorf("collection %q not found in %s", collectionName, m.filePath)
	}
	return nil
}

// Documents returns every document of the collection ordered by numeric id.
func (m *VectorDBManager) Documents(ctx context.Context) ([]chromem.Document, error) {
	n := m.collection.Count()
	docs := make([]chromem.Document, 0, n)
	for i := range n {
		doc, err := m.collection.GetByID(ctx, strconv.Itoa(i))
		if err != nil {
			return nil, fmt.Errorf("snapshot is missing document %d: %w", i, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Export writes records and their vectors to a chromem snapshot file.
func Export(ctx context.Context, filePath, encryptionKey string, records []models.MetadataRecord, vectors [][]float32) error {
	if len(records) != len(vectors) {
		return fmt.Errorf("%d records for %d vectors: %w", len(records), len(vectors), models.ErrInvalidInput)
	}
	m, err := NewVectorDBManager(filePath, encryptionKey)
	if err != nil {
		return err
	}
	if _, err := m.GetOrCreateCollection(CollectionName); err != nil {
		return err
	}

	docs := make([]chromem.Document, len(records))
	for i, r := range records {
		raw, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("record %d: %w", r.ID, err)
		}
		docs[i] = chromem.Document{
			ID:      strconv.Itoa(r.ID),
			Content: resolver.Resolve(r.Fields),
			Metadata: map[string]string{
				metaFileName: r.FileName,
				metaHash:     r.Hash,
				metaRecord:   string(raw),
			},
			Embedding: vectors[i],
		}
	}
	if err := m.CreateDocs(ctx, docs); err != nil {
		return err
	}
	if err := m.Export(); err != nil {
		return err
	}
	log.Info().Str("file", filePath).Int("documents", len(docs)).Msg("Exported snapshot")
	return nil
}

// Import reads the records of a snapshot file in id order. The vectors are
// not returned: callers rebuild the index from the records.
func Import(ctx context.Context, filePath, encryptionKey string) ([]models.MetadataRecord, error) {
	m, err := NewVectorDBManager(filePath, encryptionKey)
	if err != nil {
		return nil, err
	}
	if err := m.Import(CollectionName); err != nil {
		return nil, err
	}
	docs, err := m.Documents(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]models.MetadataRecord, len(docs))
	for i, doc := range docs {
		var r models.MetadataRecord
		if err := json.Unmarshal([]byte(doc.Metadata[metaRecord]), &r); err != nil {
			return nil, fmt.Errorf("document %s: %w", doc.ID, err)
		}
		records[i] = r
	}
	log.Info().Str("file", filePath).Int("documents", len(records)).Msg("Imported snapshot")
	return records, nil
}
