package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	errx "github.com/voyago/travel-agent/internal/core/error"
	logx "github.com/voyago/travel-agent/pkg/logger"

	"github.com/voyago/travel-agent/internal/agent"
	"github.com/voyago/travel-agent/internal/agent/model"
	"github.com/voyago/travel-agent/internal/metrics"
)

// Agent is the orchestrator surface the handlers need.
type Agent interface {
	HandleQuery(ctx context.Context, sessionID, query string) (*agent.QueryResult, error)
	Session(ctx context.Context, id string) (*agent.SessionView, error)
	Approve(ctx context.Context, id string) (bool, error)
	ReleaseApproval(ctx context.Context, id string) error
	Finalize(ctx context.Context, id string) error
}

// Mailer is the delivery surface the handlers need.
type Mailer interface {
	Validate(content, sender, receiver, subject string) error
	Send(content, sender, receiver, subject string) error
}

// Server glues the query box and the email box to the orchestrator and the
// delivery adapter. No control logic lives here.
type Server struct {
	agent   Agent
	mailer  Mailer
	timeout time.Duration
}

func New(a Agent, m Mailer, cfg model.ServerConfig) *Server {
	return &Server{
		agent:   a,
		mailer:  m,
		timeout: time.Duration(cfg.RequestTimeout) * time.Second,
	}
}

// Handler builds the HTTP routing table.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/query", s.handleQuery)
		r.Get("/sessions/{sessionID}", s.handleGetSession)
		r.Post("/sessions/{sessionID}/email", s.handleSendEmail)
	})

	return r
}

type queryRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Query     string `json:"query"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var body queryRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, errx.Validation(err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	result, err := s.agent.HandleQuery(ctx, body.SessionID, body.Query)
	if err != nil {
		metrics.QueriesTotal.WithLabelValues("error").Inc()
		writeError(w, err)
		return
	}

	metrics.QueriesTotal.WithLabelValues("ok").Inc()
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	view, err := s.agent.Session(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type emailRequest struct {
	Content  string `json:"content"`
	Sender   string `json:"sender"`
	Receiver string `json:"receiver"`
	Subject  string `json:"subject"`
}

type emailResponse struct {
	Status string `json:"status"`
}

// handleSendEmail is the human-approval step. Field validation runs before
// the approval is consumed so bad input costs nothing; the one-shot approval
// guarantees a double-submitted form sends exactly one email.
func (s *Server) handleSendEmail(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var body emailRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, errx.Validation(err))
		return
	}
	if body.Subject == "" {
		body.Subject = "Travel Information"
	}

	if err := s.mailer.Validate(body.Content, body.Sender, body.Receiver, body.Subject); err != nil {
		writeJSON(w, http.StatusBadRequest, emailResponse{Status: "Error: All fields are required."})
		return
	}

	first, err := s.agent.Approve(r.Context(), sessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	if !first {
		writeJSON(w, http.StatusOK, emailResponse{Status: "Email already sent for this session."})
		return
	}

	if err := s.mailer.Send(body.Content, body.Sender, body.Receiver, body.Subject); err != nil {
		metrics.EmailsTotal.WithLabelValues("error").Inc()
		// Hand the approval back so the user can retry after a relay failure.
		if relErr := s.agent.ReleaseApproval(r.Context(), sessionID); relErr != nil {
			logx.Error().Err(relErr).Str("session_id", sessionID).Msg("failed to release approval")
		}
		writeJSON(w, http.StatusBadGateway, emailResponse{Status: "Error sending email: " + err.Error()})
		return
	}

	metrics.EmailsTotal.WithLabelValues("ok").Inc()
	if err := s.agent.Finalize(r.Context(), sessionID); err != nil {
		logx.Error().Err(err).Str("session_id", sessionID).Msg("failed to finalize session")
	}

	writeJSON(w, http.StatusOK, emailResponse{Status: "Email sent successfully!"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logx.Error().Err(err).Msg("response encode failed")
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := errx.StatusOf(err)
	msg := err.Error()
	var appErr *errx.AppError
	if errors.As(err, &appErr) && status >= http.StatusInternalServerError {
		// Keep internals out of responses; the log has the full chain.
		msg = appErr.Message
	}
	logx.Error().Err(err).Int("status", status).Msg("request failed")
	writeJSON(w, status, map[string]string{"error": msg})
}
