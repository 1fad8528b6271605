package chunking

import "strings"

// Strategy selects a chunking algorithm.
type Strategy int

const (
	Regular Strategy = iota
	Page
	Law
	ColumnRecord
)

var strategyNames = map[Strategy]string{
	Regular:      "regular",
	Page:         "page",
	Law:          "law",
	ColumnRecord: "column_record",
}

func (s Strategy) String() string {
	if name, ok := strategyNames[s]; ok {
		return name
	}
	return strategyNames[Regular]
}

// ParseStrategy maps a config name to a Strategy. Unknown names are Regular.
func ParseStrategy(name string) Strategy {
	name = strings.ToLower(strings.TrimSpace(name))
	for s, n := range strategyNames {
		if n == name {
			return s
		}
	}
	return Regular
}
