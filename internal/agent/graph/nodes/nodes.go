package nodes

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	logx "github.com/voyago/travel-agent/pkg/logger"

	"github.com/voyago/travel-agent/internal/agent/graph/conversations"
	"github.com/voyago/travel-agent/internal/agent/graph/prompts"
	"github.com/voyago/travel-agent/internal/agent/model"
)

// Graph node keys.
const (
	NodeTranscriptLoader = "TranscriptLoader"
	NodeAgentChatModel   = "AgentChatModel"
	NodeToolExecutor     = "ToolExecutor"
)

// NewTranscriptLoaderPreHandler resets per-query state before a run.
func NewTranscriptLoaderPreHandler() func(context.Context, model.QueryInput, *model.AppState) (model.QueryInput, error) {
	return func(ctx context.Context, in model.QueryInput, s *model.AppState) (model.QueryInput, error) {
		if s.SessionID == "" {
			s.SessionID = in.SessionID
		}
		s.ToolCallCount = 0
		s.ToolCallIDSeq = 0
		s.TotalCostUSD = 0
		return in, nil
	}
}

// NewTranscriptLoaderNode creates the node that records the user message and
// assembles the model context: the system prompt followed by the full stored
// transcript. The transcript is the only ordering signal the model gets, so
// it is resent whole on every iteration.
func NewTranscriptLoaderNode(
	tm *conversations.TranscriptManager,
	promptCfg *model.PromptConfig,
) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, input model.QueryInput) ([]*schema.Message, error) {
		history, err := tm.RecordQuery(ctx, input.SessionID, input.Query)
		if err != nil {
			return nil, fmt.Errorf("record query: %w", err)
		}

		systemPrompt, err := prompts.RenderTravelSystem(ctx, promptCfg)
		if err != nil {
			return nil, fmt.Errorf("render travel system prompt: %w", err)
		}

		messages := make([]*schema.Message, 0, len(history)+1)
		messages = append(messages, schema.SystemMessage(systemPrompt))
		messages = append(messages, history...)

		return messages, nil
	})
}

// NewAgentChatModelPreHandler accumulates incoming messages (the initial
// context on the first pass, tool results on loop-backs) into the state
// history and hands the model the full transcript.
func NewAgentChatModelPreHandler() func(context.Context, []*schema.Message, *model.AppState) ([]*schema.Message, error) {
	return func(ctx context.Context, in []*schema.Message, state *model.AppState) ([]*schema.Message, error) {
		state.History = append(state.History, in...)

		logx.Debug().
			Str("session_id", state.SessionID).
			Int("context_len", len(state.History)).
			Msg("AI thinking...")

		return state.History, nil
	}
}

// NewAgentChatModelPostHandler normalises tool-call ids, records usage cost,
// appends the model output to the state history and persists it to the
// transcript store.
func NewAgentChatModelPostHandler(
	tm *conversations.TranscriptManager,
	modelName string,
) func(context.Context, *schema.Message, *model.AppState) (*schema.Message, error) {
	return func(ctx context.Context, out *schema.Message, state *model.AppState) (*schema.Message, error) {
		if model.CostEnabled() && out != nil && out.ResponseMeta != nil && out.ResponseMeta.Usage != nil {
			pricing := model.ResolvePricing(modelName)
			inC, outC, totalC := model.ComputeCost(out.ResponseMeta.Usage, pricing)
			state.TotalCostUSD += totalC
			logx.Debug().
				Str("session_id", state.SessionID).
				Str("node", NodeAgentChatModel).
				Str("model", modelName).
				Int("prompt_tokens", out.ResponseMeta.Usage.PromptTokens).
				Int("completion_tokens", out.ResponseMeta.Usage.CompletionTokens).
				Int("total_tokens", out.ResponseMeta.Usage.TotalTokens).
				Float64("input_cost_usd", inC).
				Float64("output_cost_usd", outC).
				Float64("total_cost_usd", state.TotalCostUSD).
				Msg("LLM usage")
		}

		// Some providers (Gemini OpenAI-compat) omit tool_call ids; synthesize
		// them so every tool result can be matched 1:1 to its request.
		if out != nil && len(out.ToolCalls) > 0 {
			for i := range out.ToolCalls {
				if strings.TrimSpace(out.ToolCalls[i].ID) == "" {
					state.ToolCallIDSeq++
					out.ToolCalls[i].ID = fmt.Sprintf("call_%d", state.ToolCallIDSeq)
				}
			}
		}

		state.History = append(state.History, out)

		if len(out.ToolCalls) > 0 {
			logx.Debug().Int("tool_count", len(out.ToolCalls)).Msg("Calling tools")
		} else {
			logx.Debug().Msg("AI response ready")
		}

		// Persist assistant output as-is: final answers and tool-call messages
		// both belong to the transcript so a resumed session replays them.
		if out.Role == schema.Assistant {
			if err := tm.SaveMessage(ctx, state.SessionID, out); err != nil {
				logx.Error().
					Str("session_id", state.SessionID).
					Err(err).
					Msg("Error saving assistant message")
			}
		}

		return out, nil
	}
}

// NewToolRouterCondition routes the model output: tool calls loop back through
// the executor, anything else ends the run and pauses the session.
func NewToolRouterCondition() func(context.Context, *schema.Message) (string, error) {
	return func(ctx context.Context, input *schema.Message) (string, error) {
		if len(input.ToolCalls) > 0 {
			logx.Debug().Int("tool_count", len(input.ToolCalls)).Msg("Routing to ToolExecutor")
			return NodeToolExecutor, nil
		}

		logx.Debug().Msg("No tool calls - run converged")
		return compose.END, nil
	}
}

// NewToolExecutorPreHandler enforces the per-query tool budget. Exceeding it
// aborts the run with a loop error rather than letting a confused model spin
// forever.
func NewToolExecutorPreHandler(maxToolCalls int) func(context.Context, *schema.Message, *model.AppState) (*schema.Message, error) {
	return func(ctx context.Context, in *schema.Message, state *model.AppState) (*schema.Message, error) {
		exceeded := incrementToolCallAndCheck(state, maxToolCalls)

		logx.Debug().
			Int("tool_call_count", state.ToolCallCount).
			Str("session_id", state.SessionID).
			Msg("Tool execution attempt")

		if exceeded {
			err := loopExceededError(maxToolCalls)
			logx.Warn().
				Int("tool_call_count", state.ToolCallCount).
				Str("session_id", state.SessionID).
				Err(err).
				Msg("Tool call budget exhausted - aborting run")
			return nil, err
		}

		return in, nil
	}
}

// NewToolExecutorPostHandler persists every tool result so the transcript
// keeps the request/result pairing.
func NewToolExecutorPostHandler(
	tm *conversations.TranscriptManager,
) func(context.Context, []*schema.Message, *model.AppState) ([]*schema.Message, error) {
	return func(ctx context.Context, out []*schema.Message, state *model.AppState) ([]*schema.Message, error) {
		for _, msg := range out {
			if msg == nil {
				continue
			}
			if err := tm.SaveMessage(ctx, state.SessionID, msg); err != nil {
				logx.Error().
					Str("session_id", state.SessionID).
					Str("tool_call_id", msg.ToolCallID).
					Err(err).
					Msg("Error saving tool result")
			}
		}
		return out, nil
	}
}
