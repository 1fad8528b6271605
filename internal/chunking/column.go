package chunking

import (
	"strings"

	"document-qa/internal/models"
)

const columnSeparator = ","

// ChunkColumnRecords turns each non-blank line into a record whose fields are
// picked from columns by mapping. Missing columns become null.
func ChunkColumnRecords(text string, mapping ColumnMapping) []models.ChunkRecord {
	var records []models.ChunkRecord
	for _, line := range splitLines(text) {
		if strings.TrimSpace(line) == "" {
			continue
		}
		row := strings.Split(line, columnSeparator)

		var rec models.ChunkRecord
		for _, col := range mapping {
			if col.Index < 0 || col.Index >= len(row) {
				rec.Set(col.Name, models.Null())
				continue
			}
			rec.Set(col.Name, models.String(row[col.Index]))
		}
		records = append(records, rec)
	}
	return records
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.Split(text, "\n")
}
