package graph_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/voyago/travel-agent/internal/agent/graph"
	"github.com/voyago/travel-agent/internal/agent/graph/conversations"
	"github.com/voyago/travel-agent/internal/agent/graph/tools"
	"github.com/voyago/travel-agent/internal/agent/model"
	"github.com/voyago/travel-agent/internal/agent/repo"
)

// scriptedChatModel replays a fixed sequence of assistant messages. When the
// script runs out, the last reply repeats, which lets tests simulate a model
// that keeps requesting tools forever.
type scriptedChatModel struct {
	replies []func() *schema.Message
	n       int
	prompts [][]*schema.Message
}

func (m *scriptedChatModel) Generate(ctx context.Context, in []*schema.Message, _ ...einomodel.Option) (*schema.Message, error) {
	m.prompts = append(m.prompts, in)
	i := m.n
	if i >= len(m.replies) {
		i = len(m.replies) - 1
	}
	m.n++
	return m.replies[i](), nil
}

func (m *scriptedChatModel) Stream(ctx context.Context, in []*schema.Message, _ ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("streaming is not scripted")
}

func (m *scriptedChatModel) WithTools(infos []*schema.ToolInfo) (einomodel.ToolCallingChatModel, error) {
	return m, nil
}

type countingSearchClient struct {
	response map[string]any
	calls    int
	engines  []string
	params   []map[string]string
}

func (c *countingSearchClient) Search(ctx context.Context, engine string, params map[string]string) (map[string]any, error) {
	c.calls++
	c.engines = append(c.engines, engine)
	c.params = append(c.params, params)
	return c.response, nil
}

func toolCallReply(name, arguments string) func() *schema.Message {
	return func() *schema.Message {
		return schema.AssistantMessage("", []schema.ToolCall{{
			Function: schema.FunctionCall{Name: name, Arguments: arguments},
		}})
	}
}

func finalReply(content string) func() *schema.Message {
	return func() *schema.Message { return schema.AssistantMessage(content, nil) }
}

func buildTestGraph(t *testing.T, chatModel einomodel.ToolCallingChatModel, search tools.SearchClient, maxCalls int) (func(ctx context.Context, in model.QueryInput) (*schema.Message, error), model.ConversationRepository) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	conversationRepo := repo.NewRedisConversationRepository(client, time.Hour)

	runnable, err := graph.BuildGraph(context.Background(), &graph.GraphConfig{
		ChatModel:    chatModel,
		ModelName:    "gemini-2.5-flash",
		Tools:        tools.GetTravelTools(search),
		Transcripts:  conversations.NewTranscriptManager(conversationRepo),
		Prompt:       &model.PromptConfig{AgencyName: "Voyago"},
		ToolMaxCalls: maxCalls,
	})
	require.NoError(t, err)

	return func(ctx context.Context, in model.QueryInput) (*schema.Message, error) {
		return runnable.Invoke(ctx, in)
	}, conversationRepo
}

func TestGraph_ToolLoopProducesFinalAnswer(t *testing.T) {
	search := &countingSearchClient{response: map[string]any{
		"best_flights": []any{map[string]any{"price": 523.0, "airline": "Delta"}},
	}}
	chatModel := &scriptedChatModel{replies: []func() *schema.Message{
		toolCallReply(tools.ToolFlightsFinder,
			`{"departure_airport":" jfk","arrival_airport":"lhr","outbound_date":"2025-06-10","return_date":"2025-06-15"}`),
		finalReply("The cheapest round trip is Delta at $523."),
	}}

	invoke, conversationRepo := buildTestGraph(t, chatModel, search, 10)

	out, err := invoke(context.Background(), model.QueryInput{
		SessionID: "sess-graph",
		Query:     "Flights from JFK to LHR in June",
	})
	require.NoError(t, err)
	require.Contains(t, out.Content, "$523")

	// Arguments are sanitized before reaching the provider.
	require.Equal(t, 1, search.calls)
	require.Equal(t, "google_flights", search.engines[0])
	require.Equal(t, "JFK", search.params[0]["departure_id"])
	require.Equal(t, "LHR", search.params[0]["arrival_id"])

	// First model context: system prompt, then the user query.
	first := chatModel.prompts[0]
	require.Equal(t, schema.System, first[0].Role)
	require.Contains(t, first[0].Content, "Voyago")
	require.Equal(t, schema.User, first[1].Role)

	// Second pass sees the tool result appended after its matching call.
	second := chatModel.prompts[1]
	last := second[len(second)-1]
	require.Equal(t, schema.Tool, last.Role)
	require.Contains(t, last.Content, "best_flights")

	// The transcript keeps the full exchange: user, tool request with a
	// synthesized id, matching tool result, final answer.
	history, err := conversationRepo.LoadHistory(context.Background(), "sess-graph")
	require.NoError(t, err)
	require.Len(t, history.Messages, 4)
	require.Equal(t, schema.User, history.Messages[0].Role)
	require.Equal(t, "call_1", history.Messages[1].ToolCalls[0].ID)
	require.Equal(t, "call_1", history.Messages[2].ToolCallID)
	require.Equal(t, "The cheapest round trip is Delta at $523.", history.Messages[3].Content)
}

func TestGraph_UnknownToolNameNeverReachesProvider(t *testing.T) {
	search := &countingSearchClient{}
	chatModel := &scriptedChatModel{replies: []func() *schema.Message{
		toolCallReply("restaurants_finder", `{"q":"New York"}`),
		finalReply("I can only look up flights and hotels."),
	}}

	invoke, conversationRepo := buildTestGraph(t, chatModel, search, 10)

	out, err := invoke(context.Background(), model.QueryInput{
		SessionID: "sess-unknown",
		Query:     "Find me a restaurant",
	})
	require.NoError(t, err)
	require.Contains(t, out.Content, "flights and hotels")
	require.Zero(t, search.calls)

	history, err := conversationRepo.LoadHistory(context.Background(), "sess-unknown")
	require.NoError(t, err)
	require.Len(t, history.Messages, 4)
	require.Equal(t, schema.Tool, history.Messages[2].Role)
	require.Equal(t, tools.BadToolNameResult, history.Messages[2].Content)
}

func TestGraph_ToolBudgetAbortsRun(t *testing.T) {
	search := &countingSearchClient{response: map[string]any{
		"best_flights": []any{map[string]any{"price": 1.0}},
	}}
	// The script never converges: every reply asks for another search.
	chatModel := &scriptedChatModel{replies: []func() *schema.Message{
		toolCallReply(tools.ToolFlightsFinder,
			`{"departure_airport":"JFK","arrival_airport":"LHR","outbound_date":"2025-06-10"}`),
	}}

	invoke, _ := buildTestGraph(t, chatModel, search, 2)

	_, err := invoke(context.Background(), model.QueryInput{
		SessionID: "sess-loop",
		Query:     "Flights from JFK to LHR",
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "tool call budget")
	require.Equal(t, 2, search.calls, "budget allows exactly two tool rounds")
}

func TestGraph_SecondQueryReplaysStoredTranscript(t *testing.T) {
	search := &countingSearchClient{}
	chatModel := &scriptedChatModel{replies: []func() *schema.Message{
		finalReply("Hello! Where would you like to go?"),
		finalReply("Got it, JFK to LHR."),
	}}

	invoke, _ := buildTestGraph(t, chatModel, search, 10)
	ctx := context.Background()

	_, err := invoke(ctx, model.QueryInput{SessionID: "sess-multi", Query: "Hi"})
	require.NoError(t, err)

	_, err = invoke(ctx, model.QueryInput{SessionID: "sess-multi", Query: "JFK to LHR please"})
	require.NoError(t, err)

	// The second run's context replays the first exchange after the system
	// prompt, before the new query.
	second := chatModel.prompts[1]
	require.Len(t, second, 4)
	require.Equal(t, schema.System, second[0].Role)
	require.Equal(t, "Hi", second[1].Content)
	require.Equal(t, "Hello! Where would you like to go?", second[2].Content)
	require.Equal(t, "JFK to LHR please", second[3].Content)
}
