package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/voyago/travel-agent/internal/agent"
	"github.com/voyago/travel-agent/internal/agent/graph"
	"github.com/voyago/travel-agent/internal/agent/graph/tools"
	"github.com/voyago/travel-agent/internal/agent/model"
	"github.com/voyago/travel-agent/internal/agent/repo"
	"github.com/voyago/travel-agent/internal/core"
	"github.com/voyago/travel-agent/internal/mail"
	"github.com/voyago/travel-agent/internal/server"
	logx "github.com/voyago/travel-agent/pkg/logger"
	pkgredis "github.com/voyago/travel-agent/pkg/redis"
)

// AppConfig defines all configurable parameters for the service, sourced from
// environment variables (loaded from .env for local runs).
type AppConfig struct {
	Environment string `envconfig:"ENVIRONMENT" default:"development"`

	// Infrastructure
	Redis pkgredis.Config

	// LLM provider
	APIKey  string `envconfig:"GEMINI_API_KEY" required:"true"`
	BaseURL string `envconfig:"GEMINI_BASE_URL"`

	// Agent configs
	Agent        model.AgentModelConfig
	Prompt       model.PromptConfig
	Conversation model.ConversationConfig
	Search       model.SearchConfig
	SMTP         model.SMTPConfig
	Server       model.ServerConfig
}

func main() {
	ctx := context.Background()

	if err := godotenv.Load(".env"); err != nil {
		logx.Warn().Err(err).Msg("could not load .env file")
	}

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		logx.Fatal().Err(err).Msg("failed to process environment config")
	}

	logx.Init(logx.LoggerOpts{Environment: core.ParseEnvironment(cfg.Environment)})

	rdb, err := cfg.Redis.New()
	if err != nil {
		logx.Fatal().Err(err).Msg("failed to initialise Redis client")
	}
	defer rdb.Close()

	ttl, err := time.ParseDuration(cfg.Conversation.TTL)
	if err != nil {
		logx.Fatal().Str("ttl", cfg.Conversation.TTL).Err(err).Msg("invalid CONVERSATION_TTL")
	}

	conversationRepo := repo.NewRedisConversationRepository(rdb, ttl)
	sessionRepo := repo.NewRedisSessionRepository(rdb, ttl)

	runner, err := graph.BuildTravelGraph(ctx, graph.Config{
		APIKey:           cfg.APIKey,
		BaseURL:          cfg.BaseURL,
		AgentModel:       cfg.Agent,
		Prompt:           cfg.Prompt,
		Conversation:     cfg.Conversation,
		Search:           tools.NewSerpClient(cfg.Search),
		ConversationRepo: conversationRepo,
	})
	if err != nil {
		logx.Fatal().Err(err).Msg("failed to build agent graph")
	}

	orchestrator := agent.NewOrchestrator(runner, sessionRepo, conversationRepo)
	mailer := mail.NewMailer(cfg.SMTP)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: server.New(orchestrator, mailer, cfg.Server).Handler(),
	}

	go func() {
		logx.Info().Str("addr", cfg.Server.Addr).Msg("travel agent listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logx.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logx.Error().Err(err).Msg("shutdown failed")
	}
	logx.Info().Msg("travel agent stopped")
}
