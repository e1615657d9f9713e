package conversations

import (
	"context"

	"github.com/cloudwego/eino/schema"

	"github.com/voyago/travel-agent/internal/agent/model"
)

// TranscriptManager mediates between graph nodes and the transcript store.
// It persists every message variant so a resumed session replays the full
// ordering, including assistant tool calls and their results.
type TranscriptManager struct {
	conversationRepo model.ConversationRepository
}

func NewTranscriptManager(conversationRepo model.ConversationRepository) *TranscriptManager {
	return &TranscriptManager{conversationRepo: conversationRepo}
}

// RecordQuery appends the user message to the session transcript and returns
// the whole transcript, new message included, oldest first.
func (tm *TranscriptManager) RecordQuery(ctx context.Context, sessionID string, query string) ([]*schema.Message, error) {
	userMsg := schema.UserMessage(query)
	if err := tm.conversationRepo.AddMessage(ctx, sessionID, userMsg); err != nil {
		return nil, err
	}

	history, err := tm.conversationRepo.LoadHistory(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return history.Messages, nil
}

// SaveMessage persists one message produced during the run (assistant output,
// with or without tool calls, or a tool result).
func (tm *TranscriptManager) SaveMessage(ctx context.Context, sessionID string, msg *schema.Message) error {
	return tm.conversationRepo.AddMessage(ctx, sessionID, msg)
}

// Transcript loads the stored transcript for a session.
func (tm *TranscriptManager) Transcript(ctx context.Context, sessionID string) ([]*schema.Message, error) {
	history, err := tm.conversationRepo.LoadHistory(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return history.Messages, nil
}
