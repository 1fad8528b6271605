package chunking

import "document-qa/internal/models"

// ChunkRegular cuts text into overlapping windows of size code points.
// Windows start every max(size-overlap, 1) code points and stop once a window
// reaches the end of the text; the last window may be short.
func ChunkRegular(text string, size, overlap int) []models.ChunkRecord {
	if size <= 0 {
		size = DefaultChunkSize
	}
	runes := []rune(text)
	step := max(size-overlap, 1)

	var blocks []models.ChunkRecord
	for start := 0; start < len(runes); start += step {
		end := min(start+size, len(runes))
		blocks = append(blocks, models.NewTextChunk(string(runes[start:end])))
		if end == len(runes) {
			break
		}
	}
	return blocks
}

// ChunkPage keeps the whole text as a single record.
func ChunkPage(text string) []models.ChunkRecord {
	return []models.ChunkRecord{models.NewTextChunk(text)}
}
