package agent_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/cloudwego/eino/schema"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	errx "github.com/voyago/travel-agent/internal/core/error"

	"github.com/voyago/travel-agent/internal/agent"
	"github.com/voyago/travel-agent/internal/agent/model"
	"github.com/voyago/travel-agent/internal/agent/repo"
)

// stubRunner stands in for the compiled graph. It records invocations and can
// be told to fail, which is how loop-budget errors surface to the orchestrator.
type stubRunner struct {
	reply  string
	err    error
	inputs []model.QueryInput
}

func (r *stubRunner) Invoke(ctx context.Context, in model.QueryInput) (string, error) {
	r.inputs = append(r.inputs, in)
	if r.err != nil {
		return "", r.err
	}
	return r.reply, nil
}

func newTestOrchestrator(t *testing.T, runner *stubRunner) (*agent.Orchestrator, model.SessionRepository, model.ConversationRepository) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	sessions := repo.NewRedisSessionRepository(client, time.Hour)
	conversations := repo.NewRedisConversationRepository(client, time.Hour)
	return agent.NewOrchestrator(runner, sessions, conversations), sessions, conversations
}

func TestHandleQuery_NewSessionPausesForApproval(t *testing.T) {
	runner := &stubRunner{reply: "Here is your itinerary."}
	o, sessions, _ := newTestOrchestrator(t, runner)

	res, err := o.HandleQuery(context.Background(), "", "Flights from JFK to LHR")
	require.NoError(t, err)
	require.NotEmpty(t, res.SessionID)
	require.Equal(t, model.StateAwaitingApproval, res.State)
	require.Equal(t, "Here is your itinerary.", res.Reply)

	sess, err := sessions.Get(context.Background(), res.SessionID)
	require.NoError(t, err)
	require.Equal(t, model.StateAwaitingApproval, sess.State)

	require.Len(t, runner.inputs, 1)
	require.Equal(t, res.SessionID, runner.inputs[0].SessionID)
}

func TestHandleQuery_ResumesExistingSession(t *testing.T) {
	runner := &stubRunner{reply: "Updated itinerary."}
	o, _, _ := newTestOrchestrator(t, runner)
	ctx := context.Background()

	first, err := o.HandleQuery(ctx, "", "Flights from JFK to LHR")
	require.NoError(t, err)

	second, err := o.HandleQuery(ctx, first.SessionID, "Add a hotel near Times Square")
	require.NoError(t, err)
	require.Equal(t, first.SessionID, second.SessionID)
	require.Equal(t, model.StateAwaitingApproval, second.State)
}

func TestHandleQuery_EmptyQueryRejected(t *testing.T) {
	o, _, _ := newTestOrchestrator(t, &stubRunner{})

	_, err := o.HandleQuery(context.Background(), "", "")
	require.Error(t, err)
	require.Equal(t, 400, errx.StatusOf(err))
}

func TestHandleQuery_UnknownSession(t *testing.T) {
	o, _, _ := newTestOrchestrator(t, &stubRunner{})

	_, err := o.HandleQuery(context.Background(), "no-such-session", "hello")
	require.ErrorIs(t, err, errx.ErrSessionNotFound)
}

func TestHandleQuery_RunnerErrorKeepsSessionRunning(t *testing.T) {
	runner := &stubRunner{err: errx.LoopExceeded(10)}
	o, sessions, _ := newTestOrchestrator(t, runner)
	ctx := context.Background()

	sess, err := sessions.Create(ctx)
	require.NoError(t, err)

	_, err = o.HandleQuery(ctx, sess.ID, "Flights from JFK to LHR")
	require.ErrorIs(t, err, errx.ErrLoopExceeded)

	loaded, err := sessions.Get(ctx, sess.ID)
	require.NoError(t, err)
	require.Equal(t, model.StateRunning, loaded.State, "failed runs stay retryable")
}

func TestApprove_OneShot(t *testing.T) {
	o, _, _ := newTestOrchestrator(t, &stubRunner{reply: "done"})
	ctx := context.Background()

	res, err := o.HandleQuery(ctx, "", "Flights from JFK to LHR")
	require.NoError(t, err)

	ok, err := o.Approve(ctx, res.SessionID)
	require.NoError(t, err)
	require.True(t, ok)

	again, err := o.Approve(ctx, res.SessionID)
	require.NoError(t, err)
	require.False(t, again, "second approval must be a no-op")
}

func TestApprove_RunningSessionRejected(t *testing.T) {
	o, sessions, _ := newTestOrchestrator(t, &stubRunner{})
	ctx := context.Background()

	sess, err := sessions.Create(ctx)
	require.NoError(t, err)

	_, err = o.Approve(ctx, sess.ID)
	require.Error(t, err)
	require.Equal(t, 400, errx.StatusOf(err))
}

func TestApprove_AfterReleaseSucceedsAgain(t *testing.T) {
	o, _, _ := newTestOrchestrator(t, &stubRunner{reply: "done"})
	ctx := context.Background()

	res, err := o.HandleQuery(ctx, "", "Flights from JFK to LHR")
	require.NoError(t, err)

	ok, err := o.Approve(ctx, res.SessionID)
	require.NoError(t, err)
	require.True(t, ok)

	// Delivery failed; the approval goes back so the user can retry.
	require.NoError(t, o.ReleaseApproval(ctx, res.SessionID))

	retry, err := o.Approve(ctx, res.SessionID)
	require.NoError(t, err)
	require.True(t, retry)
}

func TestFinalize_TerminatesSession(t *testing.T) {
	o, sessions, _ := newTestOrchestrator(t, &stubRunner{reply: "done"})
	ctx := context.Background()

	res, err := o.HandleQuery(ctx, "", "Flights from JFK to LHR")
	require.NoError(t, err)

	require.NoError(t, o.Finalize(ctx, res.SessionID))

	sess, err := sessions.Get(ctx, res.SessionID)
	require.NoError(t, err)
	require.Equal(t, model.StateTerminated, sess.State)
}

func TestSession_ReturnsTranscript(t *testing.T) {
	o, sessions, conversations := newTestOrchestrator(t, &stubRunner{})
	ctx := context.Background()

	sess, err := sessions.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, conversations.AddMessage(ctx, sess.ID, schema.UserMessage("hello")))

	view, err := o.Session(ctx, sess.ID)
	require.NoError(t, err)
	require.Equal(t, sess.ID, view.Session.ID)
	require.Len(t, view.Transcript, 1)
	require.Equal(t, "hello", view.Transcript[0].Content)
}

func TestSession_UnknownID(t *testing.T) {
	o, _, _ := newTestOrchestrator(t, &stubRunner{})

	_, err := o.Session(context.Background(), "missing")
	require.True(t, errors.Is(err, errx.ErrSessionNotFound))
}
