// Package resolver picks the text that represents a chunk in embedding space
// and derives the content hash used for deduplication.
package resolver

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
	"unicode/utf8"

	"document-qa/internal/models"
)

// Resolve returns the embedding text for a chunk. It never fails:
// a non-blank text field wins, then the longest string field (first one on
// ties), then the canonical JSON form of the whole record.
func Resolve(chunk models.ChunkRecord) string {
	if v, ok := chunk.Get(models.KeyText); ok {
		if s, ok := v.Str(); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}

	longest, found := "", false
	best := -1
	for _, f := range chunk.Fields() {
		s, ok := f.Value.Str()
		if !ok {
			continue
		}
		if n := utf8.RuneCountInString(s); n > best {
			longest, best, found = s, n, true
		}
	}
	if found {
		return longest
	}
	return chunk.Canonical()
}

// Hash returns the hex MD5 digest of text.
func Hash(text string) string {
	sum := md5.Sum([]byte(text))
	return hex.EncodeToString(sum[:])
}

// ResolveAndHash is Resolve followed by Hash.
func ResolveAndHash(chunk models.ChunkRecord) (string, string) {
	text := Resolve(chunk)
	return text, Hash(text)
}
