package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkRecord_PreservesFieldOrder(t *testing.T) {
	raw := `{"zeta":"z","alpha":1,"mid":null}`

	var r ChunkRecord
	require.NoError(t, json.Unmarshal([]byte(raw), &r))

	fields := r.Fields()
	require.Len(t, fields, 3)
	assert.Equal(t, "zeta", fields[0].Key)
	assert.Equal(t, "alpha", fields[1].Key)
	assert.Equal(t, "mid", fields[2].Key)
	assert.True(t, fields[2].Value.IsNull())

	out, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(out))
	assert.Equal(t, raw, string(out))
}

func TestChunkRecord_Set(t *testing.T) {
	t.Run("replaces in place", func(t *testing.T) {
		r := NewLawChunk("제1조", "목적", "body")
		r.Set(KeyTitle, String("정의"))

		fields := r.Fields()
		require.Len(t, fields, 3)
		assert.Equal(t, KeyTitle, fields[1].Key)
		v, _ := fields[1].Value.Str()
		assert.Equal(t, "정의", v)
	})

	t.Run("does not alias copies", func(t *testing.T) {
		base := NewTextChunk("a")
		cp := base
		cp.Set("extra", Int(1))
		cp.Set(KeyText, String("b"))

		assert.Equal(t, 1, base.Len())
		assert.Equal(t, "a", base.Text())
		assert.Equal(t, "b", cp.Text())
	})
}

func TestChunkRecord_PrependAndWithout(t *testing.T) {
	r := NewTextChunk("hello").Prepend(Field{Key: KeyPageNo, Value: Int(3)})

	fields := r.Fields()
	require.Len(t, fields, 2)
	assert.Equal(t, KeyPageNo, fields[0].Key)
	assert.Equal(t, KeyText, fields[1].Key)

	stripped := r.Without(KeyPageNo)
	assert.Equal(t, 1, stripped.Len())
	assert.Equal(t, 2, r.Len())
}

func TestChunkRecord_PrependKeepsExistingValue(t *testing.T) {
	r := NewRecord(Field{Key: "name", Value: String("kim")}, Field{Key: KeyPageNo, Value: String("7")})

	got := r.Prepend(Field{Key: KeyPageNo, Value: Int(2)})

	fields := got.Fields()
	require.Len(t, fields, 2)
	assert.Equal(t, KeyPageNo, fields[0].Key)
	assert.Equal(t, "7", fields[0].Value.String())
	assert.Equal(t, "name", fields[1].Key)

	orig, _ := r.Get(KeyPageNo)
	assert.Equal(t, "7", orig.String())
}

func TestChunkRecord_Canonical(t *testing.T) {
	r := NewRecord(Field{Key: "n", Value: Int(7)}, Field{Key: "x", Value: Null()})
	assert.Equal(t, `{"n":7,"x":null}`, r.Canonical())

	r = NewRecord(Field{Key: "tag", Value: String("<b>&")})
	assert.Equal(t, `{"tag":"\u003cb\u003e\u0026"}`, r.Canonical())
}

func TestValue_String(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want string
	}{
		{"null", Null(), ""},
		{"string", String("abc"), "abc"},
		{"integer", Int(12), "12"},
		{"fraction", Number(1.5), "1.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.v.String())
		})
	}
}

func TestValue_UnmarshalRejectsNested(t *testing.T) {
	var v Value
	assert.Error(t, json.Unmarshal([]byte(`{"a":1}`), &v))
	assert.Error(t, json.Unmarshal([]byte(`[1]`), &v))
}

func TestMetadataRecord_JSONLayout(t *testing.T) {
	m := MetadataRecord{
		ID:       4,
		FileName: "law.pdf",
		Fields:   NewTextChunk("본문").Prepend(Field{Key: KeyPageNo, Value: Int(2)}),
		Hash:     "abc",
	}

	out, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, `{"id":4,"file_name":"law.pdf","page_no":2,"text":"본문","hash":"abc"}`, string(out))

	var back MetadataRecord
	require.NoError(t, json.Unmarshal(out, &back))
	assert.Equal(t, 4, back.ID)
	assert.Equal(t, "law.pdf", back.FileName)
	assert.Equal(t, "abc", back.Hash)
	assert.Equal(t, "2", back.PageNo())
	assert.Equal(t, "본문", back.Fields.Text())
}

func TestMetadataRecord_PageNoDefaults(t *testing.T) {
	m := MetadataRecord{Fields: NewTextChunk("x")}
	assert.Equal(t, NoPage, m.PageNo())

	m.Fields.Set(KeyPageNo, Null())
	assert.Equal(t, NoPage, m.PageNo())
}

func TestSearchHit_MarshalAddsScore(t *testing.T) {
	hit := SearchHit{
		MetadataRecord: MetadataRecord{ID: 0, FileName: "f.csv", Fields: NewTextChunk("t"), Hash: "h"},
		Score:          0.5,
	}

	out, err := json.Marshal(hit)
	require.NoError(t, err)
	assert.Equal(t, `{"id":0,"file_name":"f.csv","text":"t","hash":"h","score":0.5}`, string(out))
}

func TestChunkRecord_DecodeEdgeCases(t *testing.T) {
	t.Run("duplicate keys overwrite in place", func(t *testing.T) {
		var r ChunkRecord
		require.NoError(t, json.Unmarshal([]byte(`{"a":1,"b":2,"a":"x"}`), &r))
		fields := r.Fields()
		require.Len(t, fields, 2)
		assert.Equal(t, "a", fields[0].Key)
		assert.Equal(t, "x", fields[0].Value.String())
	})

	t.Run("non-object input", func(t *testing.T) {
		var r ChunkRecord
		assert.Error(t, json.Unmarshal([]byte(`[1,2]`), &r))
	})

	t.Run("nested values", func(t *testing.T) {
		var r ChunkRecord
		assert.Error(t, json.Unmarshal([]byte(`{"a":{"b":1}}`), &r))
	})

	t.Run("escaped keys", func(t *testing.T) {
		var r ChunkRecord
		require.NoError(t, json.Unmarshal([]byte(`{"이름":"kim"}`), &r))
		v, ok := r.Get("이름")
		require.True(t, ok)
		assert.Equal(t, "kim", v.String())
	})
}

func TestMetadataRecord_ReservedFieldsDoNotShadow(t *testing.T) {
	m := MetadataRecord{
		ID:       1,
		FileName: "a.csv",
		Fields:   NewRecord(Field{Key: KeyHash, Value: String("forged")}, Field{Key: "name", Value: String("kim")}),
		Hash:     "real",
	}
	out, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, `{"id":1,"file_name":"a.csv","name":"kim","hash":"real"}`, string(out))
}
