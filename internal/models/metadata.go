package models

import (
	"fmt"
	"strconv"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Page is one unit of extracted document text. Number is the 1-based page
// number for paged documents and NoPage otherwise.
type Page struct {
	Number Value
	Text   string
}

// MetadataRecord is a stored chunk: the chunk fields plus bookkeeping.
// ID always equals the record's position in the metadata table and in the vector index.
type MetadataRecord struct {
	ID       int
	FileName string
	Fields   ChunkRecord
	Hash     string
}

// PageNo returns the page number for citations, or NoPage.
func (m MetadataRecord) PageNo() string {
	v, ok := m.Fields.Get(KeyPageNo)
	if !ok || v.IsNull() {
		return NoPage
	}
	return v.String()
}

func (m MetadataRecord) MarshalJSON() ([]byte, error) {
	return m.members(0).MarshalJSON()
}

// members lays out the flat object: id, file_name, the chunk fields, hash.
// Chunk fields that collide with bookkeeping keys are left out.
func (m MetadataRecord) members(extra int) *orderedmap.OrderedMap[string, Value] {
	om := orderedmap.New[string, Value](orderedmap.WithCapacity[string, Value](m.Fields.Len() + 3 + extra))
	om.Set(KeyID, Int(m.ID))
	om.Set(KeyFileName, String(m.FileName))
	for _, f := range m.Fields.fields {
		switch f.Key {
		case KeyID, KeyFileName, KeyHash, KeyScore:
			continue
		}
		om.Set(f.Key, f.Value)
	}
	om.Set(KeyHash, String(m.Hash))
	return om
}

func (m *MetadataRecord) UnmarshalJSON(data []byte) error {
	om, err := decodeFieldMap(data)
	if err != nil {
		return err
	}
	var out MetadataRecord
	for pair := om.Oldest(); pair != nil; pair = pair.Next() {
		switch pair.Key {
		case KeyID:
			n, ok := pair.Value.Num()
			if !ok {
				return fmt.Errorf("id: not a number")
			}
			out.ID = int(n)
		case KeyFileName:
			out.FileName = pair.Value.String()
		case KeyHash:
			out.Hash = pair.Value.String()
		case KeyScore:
			// search output, not part of the record
		default:
			out.Fields.fields = append(out.Fields.fields, Field{Key: pair.Key, Value: pair.Value})
		}
	}
	*m = out
	return nil
}

// SearchHit is a stored record with its L2 distance to the query.
// Lower scores are closer matches.
type SearchHit struct {
	MetadataRecord
	Score float32
}

func (h SearchHit) MarshalJSON() ([]byte, error) {
	om := h.MetadataRecord.members(1)
	score, err := strconv.ParseFloat(strconv.FormatFloat(float64(h.Score), 'g', -1, 32), 64)
	if err != nil {
		return nil, err
	}
	om.Set(KeyScore, Number(score))
	return om.MarshalJSON()
}
