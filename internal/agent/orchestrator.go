package agent

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/schema"

	errx "github.com/voyago/travel-agent/internal/core/error"
	logx "github.com/voyago/travel-agent/pkg/logger"

	"github.com/voyago/travel-agent/internal/agent/graph"
	"github.com/voyago/travel-agent/internal/agent/model"
)

// Orchestrator owns the session lifecycle around the agent graph: it creates
// or resumes a session, runs one query to convergence, pauses the session for
// human approval, and guards the one-shot approval transition. It performs no
// delivery itself; sending the approved email is the caller's concern.
type Orchestrator struct {
	runner        graph.Runner
	sessions      model.SessionRepository
	conversations model.ConversationRepository
}

func NewOrchestrator(
	runner graph.Runner,
	sessions model.SessionRepository,
	conversations model.ConversationRepository,
) *Orchestrator {
	return &Orchestrator{
		runner:        runner,
		sessions:      sessions,
		conversations: conversations,
	}
}

// QueryResult is the outcome of one query/loop cycle.
type QueryResult struct {
	SessionID string             `json:"session_id"`
	State     model.SessionState `json:"state"`
	Reply     string             `json:"reply"`
}

// SessionView is a session plus its stored transcript.
type SessionView struct {
	Session    *model.Session    `json:"session"`
	Transcript []*schema.Message `json:"transcript"`
}

// HandleQuery runs one query through the agent loop. An empty sessionID
// starts a new session; otherwise the prior transcript is resumed. On
// convergence the session is left in StateAwaitingApproval.
func (o *Orchestrator) HandleQuery(ctx context.Context, sessionID, query string) (*QueryResult, error) {
	if query == "" {
		return nil, errx.Validation(fmt.Errorf("query must not be empty"))
	}

	var sess *model.Session
	var err error
	if sessionID == "" {
		sess, err = o.sessions.Create(ctx)
		if err != nil {
			return nil, err
		}
	} else {
		sess, err = o.sessions.Get(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if err := o.sessions.SetState(ctx, sess.ID, model.StateRunning); err != nil {
			return nil, err
		}
	}

	logx.Debug().Str("session_id", sess.ID).Msg("running agent loop")

	reply, err := o.runner.Invoke(ctx, model.QueryInput{SessionID: sess.ID, Query: query})
	if err != nil {
		// The session stays in StateRunning; the caller may retry the query.
		return nil, err
	}

	if err := o.sessions.SetState(ctx, sess.ID, model.StateAwaitingApproval); err != nil {
		return nil, err
	}

	return &QueryResult{
		SessionID: sess.ID,
		State:     model.StateAwaitingApproval,
		Reply:     reply,
	}, nil
}

// Session returns the session and its transcript.
func (o *Orchestrator) Session(ctx context.Context, id string) (*SessionView, error) {
	sess, err := o.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	history, err := o.conversations.LoadHistory(ctx, id)
	if err != nil {
		return nil, err
	}
	return &SessionView{Session: sess, Transcript: history.Messages}, nil
}

// Approve consumes the session's one-shot approval. It returns true exactly
// once per session; a second approval (double-submitted form, retried
// request) returns false so the caller sends at most one email.
func (o *Orchestrator) Approve(ctx context.Context, id string) (bool, error) {
	sess, err := o.sessions.Get(ctx, id)
	if err != nil {
		return false, err
	}
	switch sess.State {
	case model.StateAwaitingApproval, model.StateTerminated:
		// Terminated sessions fall through to TryApprove, which reports the
		// already-consumed approval as false.
	default:
		return false, errx.Validation(fmt.Errorf("session %s is not awaiting approval (state %s)", id, sess.State))
	}

	return o.sessions.TryApprove(ctx, id)
}

// ReleaseApproval hands the approval back after a failed delivery so the user
// can retry.
func (o *Orchestrator) ReleaseApproval(ctx context.Context, id string) error {
	return o.sessions.ReleaseApproval(ctx, id)
}

// Finalize marks the session terminated after a successful delivery. The
// transition touches no transcript state.
func (o *Orchestrator) Finalize(ctx context.Context, id string) error {
	return o.sessions.SetState(ctx, id, model.StateTerminated)
}
