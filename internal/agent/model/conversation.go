package model

import (
	"context"

	"github.com/cloudwego/eino/schema"
)

// ConversationRepository stores the append-only transcript of a session.
// Messages are eino schema.Messages, i.e. the closed role-tagged union of
// user, system, assistant (optionally carrying tool calls) and tool results.
type ConversationRepository interface {
	// AddMessage appends a message to the transcript of the given session.
	AddMessage(ctx context.Context, sessionID string, message *schema.Message) error

	// LoadHistory retrieves the full transcript for a session, oldest first.
	// A session with no stored messages yields an empty transcript, not an error.
	LoadHistory(ctx context.Context, sessionID string) (*ConversationHistory, error)

	// ClearHistory removes the transcript for a session.
	ClearHistory(ctx context.Context, sessionID string) error

	// GetMessageCount returns the number of messages in the transcript.
	GetMessageCount(ctx context.Context, sessionID string) (int, error)
}

// ConversationHistory represents loaded transcript data with metadata.
type ConversationHistory struct {
	SessionID string
	Messages  []*schema.Message
}
