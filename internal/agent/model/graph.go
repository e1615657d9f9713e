package model

import (
	"github.com/cloudwego/eino/schema"
)

// AppState stores per-invocation state for the Eino graph.
// Concurrency model:
//   - This struct is registered as Graph Local State via compose.WithGenLocalState.
//   - All reads/writes happen only inside Eino state handlers:
//     WithStatePreHandler, WithStatePostHandler, or compose.ProcessState.
//   - Eino serializes access to state within these handlers, so no additional
//     mutex/atomic is required as long as you never touch it outside handlers.
//   - For persistence, use the repositories (TranscriptManager), never AppState.
type AppState struct {
	SessionID     string
	History       []*schema.Message // full transcript resent to the model each turn
	ToolCallCount int               // tool executor rounds consumed by this query
	ToolCallIDSeq int               // local sequence to synthesize tool_call_id when provider omits

	// Accumulated total LLM cost (USD) across model invocations for this query
	TotalCostUSD float64
}

// QueryInput represents one user query bound to a session.
type QueryInput struct {
	SessionID string `json:"session_id"`
	Query     string `json:"query"`
}
