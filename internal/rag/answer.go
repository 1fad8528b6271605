// Package rag answers questions from stored chunks and feeds documents into
// the store.
package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"document-qa/internal/models"
)

const (
	DefaultTopK      = 3
	DefaultThreshold = float32(5.0)
)

// Searcher is the read side of the vector store.
type Searcher interface {
	Search(ctx context.Context, query string, topK int) ([]models.SearchHit, error)
}

// Answer is a rendered answer. Source is nil when nothing relevant was found.
type Answer struct {
	Answer string  `json:"answer"`
	Source *string `json:"source"`
}

type Answerer struct {
	store     Searcher
	topK      int
	threshold float32
}

type AnswererOption func(*Answerer)

func WithTopK(k int) AnswererOption {
	return func(a *Answerer) {
		if k > 0 {
			a.topK = k
		}
	}
}

// WithThreshold sets the largest L2 distance that still counts as relevant.
func WithThreshold(t float32) AnswererOption {
	return func(a *Answerer) {
		if t > 0 {
			a.threshold = t
		}
	}
}

func NewAnswerer(store Searcher, opts ...AnswererOption) *Answerer {
	a := &Answerer{store: store, topK: DefaultTopK, threshold: DefaultThreshold}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// NotFoundMessage is the answer given when no stored chunk is close enough.
func NotFoundMessage(query string) string {
	return fmt.Sprintf("No content related to '%s' was found in the documents.", query)
}

// Answer searches the store and renders the closest hit. Search failures,
// including an uninitialized store, are returned as errors.
func (a *Answerer) Answer(ctx context.Context, query string) (Answer, error) {
	hits, err := a.store.Search(ctx, query, a.topK)
	if err != nil {
		return Answer{}, err
	}

	best, ok := bestHit(hits, a.threshold)
	if !ok {
		log.Debug().Str("query", query).Int("hits", len(hits)).Msg("No hit within threshold")
		return Answer{Answer: NotFoundMessage(query)}, nil
	}

	source := Source(best.MetadataRecord)
	log.Debug().Str("query", query).Float32("score", best.Score).Str("source", source).Msg("Answer selected")
	return Answer{Answer: Render(best.MetadataRecord), Source: &source}, nil
}

// bestHit returns the first hit with the minimum score, unless every hit is
// farther than threshold.
func bestHit(hits []models.SearchHit, threshold float32) (models.SearchHit, bool) {
	if len(hits) == 0 {
		return models.SearchHit{}, false
	}
	relevant := false
	best := hits[0]
	for _, h := range hits {
		if h.Score <= threshold {
			relevant = true
		}
		if h.Score < best.Score {
			best = h
		}
	}
	return best, relevant
}

// Render returns the text field verbatim when it is non-empty. Otherwise every
// non-bookkeeping field is rendered as a "key: value" line.
func Render(r models.MetadataRecord) string {
	if v, ok := r.Fields.Get(models.KeyText); ok {
		if s := v.String(); s != "" {
			return s
		}
	}

	var lines []string
	for _, f := range r.Fields.Fields() {
		if _, internal := models.InternalKeys[f.Key]; internal {
			continue
		}
		lines = append(lines, f.Key+": "+f.Value.String())
	}
	return strings.Join(lines, "\n")
}

// Source formats the citation "<file_name> | <page_no>".
func Source(r models.MetadataRecord) string {
	return r.FileName + " | " + r.PageNo()
}
