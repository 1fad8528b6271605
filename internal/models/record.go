package models

import (
	"encoding/json"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Field is one named value of a chunk record.
type Field struct {
	Key   string
	Value Value
}

// ChunkRecord is an ordered, schema-free set of fields produced by a chunking
// strategy. Field order is significant: it drives embedding-text tie breaks and
// answer rendering, and it survives a JSON round trip.
type ChunkRecord struct {
	fields []Field
}

// NewTextChunk builds a record with a single text field.
func NewTextChunk(text string) ChunkRecord {
	return ChunkRecord{fields: []Field{{Key: KeyText, Value: String(text)}}}
}

// NewLawChunk builds a statute clause record.
func NewLawChunk(chapter, title, text string) ChunkRecord {
	return ChunkRecord{fields: []Field{
		{Key: KeyChapter, Value: String(chapter)},
		{Key: KeyTitle, Value: String(title)},
		{Key: KeyText, Value: String(text)},
	}}
}

// NewRecord builds a record from fields in the given order. Later duplicates
// overwrite earlier ones in place.
func NewRecord(fields ...Field) ChunkRecord {
	var r ChunkRecord
	for _, f := range fields {
		r.Set(f.Key, f.Value)
	}
	return r
}

func (r ChunkRecord) Len() int { return len(r.fields) }

// Fields returns a copy of the fields in order.
func (r ChunkRecord) Fields() []Field {
	out := make([]Field, len(r.fields))
	copy(out, r.fields)
	return out
}

func (r ChunkRecord) Get(key string) (Value, bool) {
	for _, f := range r.fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return Value{}, false
}

// Set replaces the value of an existing key or appends a new field.
// The receiver never shares its backing array with copies taken before the call.
func (r *ChunkRecord) Set(key string, v Value) {
	out := make([]Field, len(r.fields), len(r.fields)+1)
	copy(out, r.fields)
	for i := range out {
		if out[i].Key == key {
			out[i].Value = v
			r.fields = out
			return
		}
	}
	r.fields = append(out, Field{Key: key, Value: v})
}

// Text returns the text field when it holds a string.
func (r ChunkRecord) Text() string {
	v, ok := r.Get(KeyText)
	if !ok {
		return ""
	}
	s, _ := v.Str()
	return s
}

// Without returns a copy of r minus the given keys.
func (r ChunkRecord) Without(keys ...string) ChunkRecord {
	drop := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		drop[k] = struct{}{}
	}
	out := ChunkRecord{fields: make([]Field, 0, len(r.fields))}
	for _, f := range r.fields {
		if _, ok := drop[f.Key]; ok {
			continue
		}
		out.fields = append(out.fields, f)
	}
	return out
}

// Prepend returns a copy of r whose first field is f.Key. A value r already
// holds for that key is kept; f.Value only fills the gap.
func (r ChunkRecord) Prepend(f Field) ChunkRecord {
	if v, ok := r.Get(f.Key); ok {
		f.Value = v
	}
	rest := r.Without(f.Key)
	out := ChunkRecord{fields: make([]Field, 0, rest.Len()+1)}
	out.fields = append(out.fields, f)
	out.fields = append(out.fields, rest.fields...)
	return out
}

// MarshalJSON encodes the fields as one object in field order.
func (r ChunkRecord) MarshalJSON() ([]byte, error) {
	return fieldMap(r.fields, 0).MarshalJSON()
}

func (r *ChunkRecord) UnmarshalJSON(data []byte) error {
	om, err := decodeFieldMap(data)
	if err != nil {
		return err
	}
	var out ChunkRecord
	for pair := om.Oldest(); pair != nil; pair = pair.Next() {
		out.fields = append(out.fields, Field{Key: pair.Key, Value: pair.Value})
	}
	*r = out
	return nil
}

// Canonical serializes the record as compact JSON in field order.
func (r ChunkRecord) Canonical() string {
	b, err := r.MarshalJSON()
	if err != nil {
		// only non-finite numbers fail; fall back to a readable rendering
		parts := make([]string, 0, len(r.fields))
		for _, f := range r.fields {
			parts = append(parts, f.Key+": "+f.Value.String())
		}
		return strings.Join(parts, ", ")
	}
	return string(b)
}

// fieldMap copies fields into an ordered map for encoding. extra reserves
// room for members the caller adds afterwards.
func fieldMap(fields []Field, extra int) *orderedmap.OrderedMap[string, Value] {
	om := orderedmap.New[string, Value](orderedmap.WithCapacity[string, Value](len(fields) + extra))
	for _, f := range fields {
		om.Set(f.Key, f.Value)
	}
	return om
}

// decodeFieldMap decodes a JSON object keeping its members in document order.
// Later duplicate keys overwrite earlier ones in place.
func decodeFieldMap(data []byte) (*orderedmap.OrderedMap[string, Value], error) {
	om := orderedmap.New[string, Value]()
	if err := json.Unmarshal(data, om); err != nil {
		return nil, err
	}
	return om, nil
}
