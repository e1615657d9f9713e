package repo_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/cloudwego/eino/schema"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/voyago/travel-agent/internal/agent/repo"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestConversationRepository_AppendAndLoadPreservesOrder(t *testing.T) {
	_, client := newTestRedis(t)
	r := repo.NewRedisConversationRepository(client, time.Hour)
	ctx := context.Background()

	user := schema.UserMessage("Flights from JFK to LHR")
	assistant := schema.AssistantMessage("", []schema.ToolCall{{
		ID:       "call_1",
		Function: schema.FunctionCall{Name: "flights_finder", Arguments: `{"departure_airport":"JFK"}`},
	}})
	toolResult := schema.ToolMessage(`{"best_flights":[]}`, "call_1")
	final := schema.AssistantMessage("Here are your flights.", nil)

	for _, m := range []*schema.Message{user, assistant, toolResult, final} {
		require.NoError(t, r.AddMessage(ctx, "sess-1", m))
	}

	history, err := r.LoadHistory(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, history.Messages, 4)

	require.Equal(t, schema.User, history.Messages[0].Role)
	require.Equal(t, schema.Assistant, history.Messages[1].Role)
	require.Len(t, history.Messages[1].ToolCalls, 1)
	require.Equal(t, "call_1", history.Messages[1].ToolCalls[0].ID)
	require.Equal(t, schema.Tool, history.Messages[2].Role)
	require.Equal(t, "call_1", history.Messages[2].ToolCallID)
	require.Equal(t, "Here are your flights.", history.Messages[3].Content)
}

func TestConversationRepository_EmptySessionYieldsEmptyTranscript(t *testing.T) {
	_, client := newTestRedis(t)
	r := repo.NewRedisConversationRepository(client, time.Hour)

	history, err := r.LoadHistory(context.Background(), "never-seen")
	require.NoError(t, err)
	require.Empty(t, history.Messages)

	n, err := r.GetMessageCount(context.Background(), "never-seen")
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestConversationRepository_TTLSetOnAppend(t *testing.T) {
	mr, client := newTestRedis(t)
	r := repo.NewRedisConversationRepository(client, time.Minute)
	ctx := context.Background()

	require.NoError(t, r.AddMessage(ctx, "sess-ttl", schema.UserMessage("hello")))
	require.Greater(t, mr.TTL("session:sess-ttl:messages"), time.Duration(0))
}

func TestConversationRepository_ClearHistory(t *testing.T) {
	_, client := newTestRedis(t)
	r := repo.NewRedisConversationRepository(client, time.Hour)
	ctx := context.Background()

	require.NoError(t, r.AddMessage(ctx, "sess-2", schema.UserMessage("hello")))
	require.NoError(t, r.ClearHistory(ctx, "sess-2"))

	n, err := r.GetMessageCount(ctx, "sess-2")
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestConversationRepository_SessionsAreIndependent(t *testing.T) {
	_, client := newTestRedis(t)
	r := repo.NewRedisConversationRepository(client, time.Hour)
	ctx := context.Background()

	require.NoError(t, r.AddMessage(ctx, "sess-a", schema.UserMessage("a")))
	require.NoError(t, r.AddMessage(ctx, "sess-b", schema.UserMessage("b")))

	historyA, err := r.LoadHistory(ctx, "sess-a")
	require.NoError(t, err)
	require.Len(t, historyA.Messages, 1)
	require.Equal(t, "a", historyA.Messages[0].Content)
}
