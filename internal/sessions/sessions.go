// Package sessions persists chat session histories.
package sessions

import (
	"context"

	"document-qa/internal/models"
)

// Store keeps ordered chat histories keyed by session id.
type Store interface {
	// Create starts an empty session and returns its id.
	Create(ctx context.Context) (string, error)
	// Ensure creates an empty session under id unless it exists.
	Ensure(ctx context.Context, id string) error
	List(ctx context.Context) ([]string, error)
	// History returns the messages of a session; unknown sessions have none.
	History(ctx context.Context, id string) ([]models.ChatMessage, error)
	Append(ctx context.Context, id string, msg models.ChatMessage) error
	// Delete removes a session and reports whether it existed.
	Delete(ctx context.Context, id string) (bool, error)
}
