package models

const (
	// ArticleRegex matches a statute article header such as "제3조(정의)".
	ArticleRegex = `(제\d+조)\s*\((.*?)\)`
	// ClauseRegex matches a numbered clause marker inside an article body.
	ClauseRegex     = `\s+(\d+\.\s*)`
	WhitespaceRegex = `\s+`
)

// Bookkeeping keys added to every chunk at ingestion time.
const (
	KeyID       = "id"
	KeyFileName = "file_name"
	KeyPageNo   = "page_no"
	KeyHash     = "hash"
	KeyText     = "text"
	KeyChapter  = "chapter"
	KeyTitle    = "title"
	KeyScore    = "score"
)

// NoPage is the page_no value for documents without pages.
const NoPage = "-"

// InternalKeys are never rendered in a human readable answer.
var InternalKeys = map[string]struct{}{
	KeyID:       {},
	KeyPageNo:   {},
	KeyFileName: {},
	KeyHash:     {},
}
