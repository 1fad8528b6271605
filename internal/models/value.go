package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Kind tags the variant held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindNumber
)

// Value is a chunk field value: a string, a number or null.
type Value struct {
	kind Kind
	str  string
	num  float64
}

func Null() Value { return Value{kind: KindNull} }

func String(s string) Value { return Value{kind: KindString, str: s} }

func Number(n float64) Value { return Value{kind: KindNumber, num: n} }

func Int(n int) Value { return Number(float64(n)) }

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

// Str returns the string and true when v holds a string.
func (v Value) Str() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.str, true
}

// Num returns the number and true when v holds a number.
func (v Value) Num() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	return v.num, true
}

// String renders the value for display. Null renders as an empty string and
// integral numbers render without a fractional part.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return formatNumber(v.num)
	default:
		return ""
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return encodeString(v.str)
	case KindNumber:
		if math.IsNaN(v.num) || math.IsInf(v.num, 0) {
			return nil, fmt.Errorf("unsupported number %v", v.num)
		}
		return []byte(formatNumber(v.num)), nil
	default:
		return []byte("null"), nil
	}
}

func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty value")
	}
	switch data[0] {
	case 'n':
		*v = Null()
		return nil
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = String(s)
		return nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*v = String(strconv.FormatBool(b))
		return nil
	case '{', '[':
		return fmt.Errorf("unsupported nested value %s", data)
	}
	n, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("invalid number %s: %w", data, err)
	}
	*v = Number(n)
	return nil
}

func formatNumber(n float64) string {
	if n == math.Trunc(n) && math.Abs(n) < 1e15 {
		return strconv.FormatInt(int64(n), 10)
	}
	return strconv.FormatFloat(n, 'f', -1, 64)
}

// encodeString JSON-encodes s without HTML escaping.
func encodeString(s string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
