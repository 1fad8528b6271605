package rag

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"document-qa/internal/models"
	"document-qa/internal/sessions"
)

// ChatReply is an answer bound to the session it was recorded in.
type ChatReply struct {
	SessionID string  `json:"session_id"`
	Answer    string  `json:"answer"`
	Source    *string `json:"source"`
}

// ChatService answers questions and keeps per-session histories.
type ChatService struct {
	answerer *Answerer
	sessions sessions.Store
	now      func() time.Time
}

func NewChatService(answerer *Answerer, store sessions.Store) *ChatService {
	return &ChatService{answerer: answerer, sessions: store, now: time.Now}
}

// Ask answers question within sessionID, starting a new session when the id
// is empty or "undefined". Nothing is recorded when answering fails.
func (c *ChatService) Ask(ctx context.Context, sessionID, question string) (ChatReply, error) {
	if !models.IsValidSessionID(sessionID) {
		id, err := c.sessions.Create(ctx)
		if err != nil {
			return ChatReply{}, err
		}
		sessionID = id
	}

	ans, err := c.answerer.Answer(ctx, question)
	if err != nil {
		return ChatReply{}, err
	}

	msg := models.NewChatMessage(c.now())
	msg.Question = question
	msg.Answer = ans.Answer
	if ans.Source != nil {
		msg.Source = *ans.Source
	}
	if err := c.sessions.Append(ctx, sessionID, msg); err != nil {
		return ChatReply{}, fmt.Errorf("failed to record answer: %w", err)
	}

	return ChatReply{SessionID: sessionID, Answer: ans.Answer, Source: ans.Source}, nil
}

// SaveSystemMessage appends a system message to a session history.
func (c *ChatService) SaveSystemMessage(ctx context.Context, sessionID, message string) error {
	msg := models.NewChatMessage(c.now())
	msg.SystemMessage = message
	return c.sessions.Append(ctx, sessionID, msg)
}

func (c *ChatService) NewSession(ctx context.Context) (string, error) {
	return c.sessions.Create(ctx)
}

func (c *ChatService) ListSessions(ctx context.Context) ([]string, error) {
	return c.sessions.List(ctx)
}

func (c *ChatService) History(ctx context.Context, sessionID string) ([]models.ChatMessage, error) {
	return c.sessions.History(ctx, sessionID)
}

// DeleteSession removes a session. Placeholder ids are skipped and reported
// as not deleted.
func (c *ChatService) DeleteSession(ctx context.Context, sessionID string) (bool, error) {
	if !models.IsValidSessionID(sessionID) {
		log.Debug().Str("session_id", sessionID).Msg("Skipping delete of placeholder session")
		return false, nil
	}
	return c.sessions.Delete(ctx, sessionID)
}
