package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"document-qa/internal/models"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name  string
		chunk models.ChunkRecord
		want  string
	}{
		{
			name:  "text field verbatim",
			chunk: models.NewRecord(models.Field{Key: "text", Value: models.String("  body ")}, models.Field{Key: "note", Value: models.String("a much longer note field")}),
			want:  "  body ",
		},
		{
			name: "blank text falls through to longest string",
			chunk: models.NewRecord(
				models.Field{Key: "text", Value: models.String("   ")},
				models.Field{Key: "name", Value: models.String("kim")},
				models.Field{Key: "addr", Value: models.String("seoul")},
			),
			want: "seoul",
		},
		{
			name: "first field wins ties",
			chunk: models.NewRecord(
				models.Field{Key: "a", Value: models.String("abc")},
				models.Field{Key: "b", Value: models.String("xyz")},
			),
			want: "abc",
		},
		{
			name: "length counts code points",
			chunk: models.NewRecord(
				models.Field{Key: "ko", Value: models.String("가나다")},
				models.Field{Key: "en", Value: models.String("abcd")},
			),
			want: "abcd",
		},
		{
			name: "no strings serializes the record",
			chunk: models.NewRecord(
				models.Field{Key: "n", Value: models.Int(3)},
				models.Field{Key: "x", Value: models.Null()},
			),
			want: `{"n":3,"x":null}`,
		},
		{
			name:  "empty record",
			chunk: models.ChunkRecord{},
			want:  `{}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.chunk))
		})
	}
}

func TestHash(t *testing.T) {
	assert.Equal(t, "d41d8cd98f00b204e9800998ecf8427e", Hash(""))
	assert.Equal(t, "900150983cd24fb0d6963f7d28e17f72", Hash("abc"))

	text, hash := ResolveAndHash(models.NewTextChunk("abc"))
	assert.Equal(t, "abc", text)
	assert.Equal(t, Hash("abc"), hash)
}
