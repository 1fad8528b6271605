package models

import "time"

// TimestampLayout is the local ISO-8601 layout of chat history timestamps.
const TimestampLayout = "2006-01-02T15:04:05.000000"

// UndefinedSession is what browser clients send before a session exists.
const UndefinedSession = "undefined"

// ChatMessage is one entry of a session history. Empty fields are omitted.
type ChatMessage struct {
	Timestamp     string `json:"timestamp"`
	SystemMessage string `json:"system_message,omitempty"`
	Question      string `json:"question,omitempty"`
	Answer        string `json:"answer,omitempty"`
	Source        string `json:"source,omitempty"`
}

// NewChatMessage stamps a message with the current local time.
func NewChatMessage(now time.Time) ChatMessage {
	return ChatMessage{Timestamp: now.Format(TimestampLayout)}
}

// IsValidSessionID reports whether id names a real session.
func IsValidSessionID(id string) bool {
	return id != "" && id != UndefinedSession
}
