package chunking

import (
	"regexp"
	"strings"

	"document-qa/internal/models"
)

var (
	articleRe = regexp.MustCompile(models.ArticleRegex)
	clauseRe  = regexp.MustCompile(models.ClauseRegex)
)

type article struct {
	chapter, title, body string
}

type lawParserState struct {
	current article
	buffer  string
	result  []models.ChunkRecord
}

// ChunkLaw splits statute text into article and clause records. Text before
// the first article header is dropped; text without headers yields no records.
func ChunkLaw(text string) []models.ChunkRecord {
	var state lawParserState
	for _, a := range splitArticles(text) {
		state.current = a
		state.parseArticle()
	}
	return state.result
}

// splitArticles cuts text at every article header. Each body runs from its
// header to the next header (or end of text) and includes the header itself.
func splitArticles(text string) []article {
	matches := articleRe.FindAllStringSubmatchIndex(text, -1)
	articles := make([]article, 0, len(matches))
	for i, m := range matches {
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		articles = append(articles, article{
			chapter: text[m[2]:m[3]],
			title:   text[m[4]:m[5]],
			body:    strings.TrimSpace(text[m[0]:end]),
		})
	}
	return articles
}

// parseArticle emits one record per numbered clause, or one record for the
// whole body when it has no clause markers. The fragment ahead of the first
// marker is folded into the first clause.
func (s *lawParserState) parseArticle() {
	body := s.current.body
	markers := clauseRe.FindAllStringSubmatchIndex(body, -1)
	if len(markers) == 0 {
		s.emit(body)
		return
	}

	s.buffer = strings.TrimSpace(body[:markers[0][0]])
	for i, m := range markers {
		end := len(body)
		if i+1 < len(markers) {
			end = markers[i+1][0]
		}
		clause := body[m[2]:m[3]] + body[m[1]:end]
		if i == 0 && s.buffer != "" {
			s.buffer += " " + clause
			continue
		}
		s.flush()
		s.buffer = clause
	}
	s.flush()
}

func (s *lawParserState) flush() {
	if s.buffer != "" {
		s.emit(s.buffer)
	}
	s.buffer = ""
}

func (s *lawParserState) emit(text string) {
	s.result = append(s.result, models.NewLawChunk(s.current.chapter, s.current.title, strings.TrimSpace(text)))
}
