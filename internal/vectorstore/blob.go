package vectorstore

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/bits"
	"os"
	"path/filepath"

	"document-qa/internal/models"
)

const (
	blobVersion = 1
	// maxBlobFloats bounds allocations when reading a damaged header.
	maxBlobFloats = 1 << 31
)

var (
	blobMagic      = [4]byte{'D', 'Q', 'V', 'I'}
	blobHeaderSize = int64(binary.Size(blobHeader{}))

	errCorruptIndex = errors.New("corrupt index file")
)

// blobHeader precedes the little-endian float32 payload of the index file.
// MetadataSum ties the blob to the exact metadata file written with it.
type blobHeader struct {
	Magic       [4]byte
	Version     uint32
	Dimension   uint32
	Count       uint64
	MetadataSum [sha256.Size]byte
}

func writeIndex(w io.Writer, idx *FlatIndex, metadataSum [sha256.Size]byte) error {
	bw := bufio.NewWriter(w)
	h := blobHeader{
		Magic:       blobMagic,
		Version:     blobVersion,
		Dimension:   uint32(idx.Dimension()),
		Count:       uint64(idx.Len()),
		MetadataSum: metadataSum,
	}
	if err := binary.Write(bw, binary.LittleEndian, &h); err != nil {
		return fmt.Errorf("failed to write index header: %w", err)
	}
	if len(idx.data) > 0 {
		if err := binary.Write(bw, binary.LittleEndian, idx.data); err != nil {
			return fmt.Errorf("failed to write vectors: %w", err)
		}
	}
	return bw.Flush()
}

// readIndex decodes an index blob of size bytes. The header must account for
// exactly size bytes before any payload is allocated.
func readIndex(r io.Reader, size int64) (*FlatIndex, [sha256.Size]byte, error) {
	br := bufio.NewReader(r)
	var h blobHeader
	if err := binary.Read(br, binary.LittleEndian, &h); err != nil {
		return nil, h.MetadataSum, fmt.Errorf("%w: header: %v", errCorruptIndex, err)
	}
	if h.Magic != blobMagic || h.Version != blobVersion {
		return nil, h.MetadataSum, fmt.Errorf("%w: unknown format %q v%d", errCorruptIndex, h.Magic[:], h.Version)
	}
	hi, total := bits.Mul64(h.Count, uint64(h.Dimension))
	payload := size - blobHeaderSize
	if hi != 0 || total > maxBlobFloats || (h.Count > 0 && h.Dimension == 0) ||
		payload < 0 || uint64(payload) != total*4 {
		return nil, h.MetadataSum, fmt.Errorf("%w: %d vectors of dimension %d in %d bytes", errCorruptIndex, h.Count, h.Dimension, size)
	}
	data := make([]float32, total)
	if total > 0 {
		if err := binary.Read(br, binary.LittleEndian, data); err != nil {
			return nil, h.MetadataSum, fmt.Errorf("%w: payload: %v", errCorruptIndex, err)
		}
	}
	if _, err := br.ReadByte(); err != io.EOF {
		return nil, h.MetadataSum, fmt.Errorf("%w: trailing bytes", errCorruptIndex)
	}
	return &FlatIndex{dim: int(h.Dimension), data: data}, h.MetadataSum, nil
}

// encodeMetadata renders the metadata table as an indented JSON array.
// Non-ASCII text is written as is.
func encodeMetadata(records []models.MetadataRecord) ([]byte, error) {
	if records == nil {
		records = []models.MetadataRecord{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return nil, fmt.Errorf("failed to encode metadata: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeMetadata(data []byte) ([]models.MetadataRecord, error) {
	var records []models.MetadataRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}
	return records, nil
}

// writeTemp writes a temp file next to its destination and returns its path.
// The caller renames it into place.
func writeTemp(dir, pattern string, write func(io.Writer) error) (string, error) {
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	name := f.Name()
	if err := write(f); err != nil {
		f.Close()
		os.Remove(name)
		return "", err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(name)
		return "", fmt.Errorf("failed to sync %s: %w", filepath.Base(name), err)
	}
	if err := f.Close(); err != nil {
		os.Remove(name)
		return "", err
	}
	return name, nil
}
