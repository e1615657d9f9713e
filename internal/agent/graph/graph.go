package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	logx "github.com/voyago/travel-agent/pkg/logger"

	"github.com/voyago/travel-agent/internal/agent/graph/conversations"
	"github.com/voyago/travel-agent/internal/agent/graph/nodes"
	"github.com/voyago/travel-agent/internal/agent/graph/observers"
	"github.com/voyago/travel-agent/internal/agent/graph/tools"
	"github.com/voyago/travel-agent/internal/agent/model"
)

// Runner executes one query against the compiled agent graph. Invoke returns
// only when the run has converged, i.e. the model emitted no further tool
// calls; the returned string is its final message.
type Runner interface {
	Invoke(ctx context.Context, in model.QueryInput) (string, error)
}

// Config holds everything needed to compose the full travel-agent graph
// end-to-end. It constructs the chat model and transcript manager from
// configuration; tests that want to inject fakes use GraphConfig directly.
type Config struct {
	APIKey           string
	BaseURL          string
	AgentModel       model.AgentModelConfig
	Prompt           model.PromptConfig
	Conversation     model.ConversationConfig
	Search           tools.SearchClient
	ConversationRepo model.ConversationRepository
}

// GraphConfig holds all dependencies needed to build the graph.
type GraphConfig struct {
	ChatModel    einomodel.ToolCallingChatModel
	ModelName    string
	Tools        []tool.BaseTool
	Transcripts  *conversations.TranscriptManager
	Prompt       *model.PromptConfig
	ToolMaxCalls int
}

// GraphBuilder handles the construction of the agent graph.
type GraphBuilder struct {
	config *GraphConfig
	graph  *compose.Graph[model.QueryInput, *schema.Message]
}

type graphRunner struct {
	runnable compose.Runnable[model.QueryInput, *schema.Message]
}

func (r *graphRunner) Invoke(ctx context.Context, in model.QueryInput) (string, error) {
	out, err := r.runnable.Invoke(ctx, in, compose.WithCallbacks(observers.NewAllCallbacks()))
	if err != nil {
		return "", err
	}
	if out == nil {
		return "", nil
	}
	return out.Content, nil
}

// BuildTravelGraph composes the chat model, transcript manager and tools,
// builds the graph, and returns a Runner.
func BuildTravelGraph(ctx context.Context, cfg Config) (Runner, error) {
	if cfg.ConversationRepo == nil {
		return nil, fmt.Errorf("conversation repo is nil")
	}
	if cfg.Search == nil {
		return nil, fmt.Errorf("search client is nil")
	}

	chatModel, err := nodes.NewAgentChatModel(ctx, nodes.ChatModelConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Agent:   &cfg.AgentModel,
	})
	if err != nil {
		return nil, err
	}

	runnable, err := BuildGraph(ctx, &GraphConfig{
		ChatModel:    chatModel,
		ModelName:    cfg.AgentModel.Model,
		Tools:        tools.GetTravelTools(cfg.Search),
		Transcripts:  conversations.NewTranscriptManager(cfg.ConversationRepo),
		Prompt:       &cfg.Prompt,
		ToolMaxCalls: cfg.Conversation.Tools.MaxCalls,
	})
	if err != nil {
		return nil, err
	}

	logx.Debug().Msg("Travel agent graph built successfully")
	return &graphRunner{runnable: runnable}, nil
}

// BuildGraph constructs and returns the compiled agent graph.
func BuildGraph(ctx context.Context, config *GraphConfig) (compose.Runnable[model.QueryInput, *schema.Message], error) {
	if config == nil {
		return nil, fmt.Errorf("graph config is nil")
	}
	if config.ChatModel == nil {
		return nil, fmt.Errorf("chat model is not initialized")
	}
	if config.Transcripts == nil {
		return nil, fmt.Errorf("transcript manager is nil")
	}
	if config.Prompt == nil {
		return nil, fmt.Errorf("prompt config is nil")
	}

	builder := &GraphBuilder{
		config: config,
		graph: compose.NewGraph[model.QueryInput, *schema.Message](
			compose.WithGenLocalState(func(ctx context.Context) *model.AppState {
				return &model.AppState{}
			}),
		),
	}

	boundModel, err := builder.setupTools(ctx)
	if err != nil {
		return nil, err
	}

	builder.addNodes(boundModel)
	builder.addEdges()

	if err := builder.addBranches(); err != nil {
		return nil, err
	}

	return builder.compile(ctx)
}

// setupTools binds the travel tools to the chat model and adds the executor
// node. Tools run sequentially in request order so the transcript ordering is
// deterministic.
func (b *GraphBuilder) setupTools(ctx context.Context) (einomodel.ToolCallingChatModel, error) {
	toolInfos, err := tools.GetToolInfos(ctx, b.config.Tools)
	if err != nil {
		logx.Error().Err(err).Msg("Failed to get tool infos")
		return nil, fmt.Errorf("failed to get tool infos: %w", err)
	}

	boundModel, err := b.config.ChatModel.WithTools(toolInfos)
	if err != nil {
		logx.Error().Err(err).Msg("Failed to bind tools to agent model")
		return nil, fmt.Errorf("failed to bind tools to agent model: %w", err)
	}

	toolsNode, err := compose.NewToolNode(ctx, &compose.ToolsNodeConfig{
		Tools:               b.config.Tools,
		ExecuteSequentially: true,
		UnknownToolsHandler: func(ctx context.Context, name, input string) (string, error) {
			// Hallucinated tool names never reach the provider; the fixed text
			// goes back as the tool result so the model can self-correct.
			logx.Warn().
				Str("tool_name", name).
				Str("arguments", input).
				Msg("Unknown tool requested; returning fixed result")
			return tools.BadToolNameResult, nil
		},
		ToolArgumentsHandler: sanitizeToolArguments,
	})
	if err != nil {
		logx.Error().Err(err).Msg("Failed to create tools node")
		return nil, fmt.Errorf("failed to create tools node: %w", err)
	}

	b.graph.AddToolsNode(nodes.NodeToolExecutor, toolsNode,
		compose.WithStatePreHandler(nodes.NewToolExecutorPreHandler(b.config.ToolMaxCalls)),
		compose.WithStatePostHandler(nodes.NewToolExecutorPostHandler(b.config.Transcripts)),
	)

	return boundModel, nil
}

// addNodes adds all processing nodes to the graph.
func (b *GraphBuilder) addNodes(boundModel einomodel.ToolCallingChatModel) {
	b.graph.AddLambdaNode(nodes.NodeTranscriptLoader,
		nodes.NewTranscriptLoaderNode(b.config.Transcripts, b.config.Prompt),
		compose.WithStatePreHandler(nodes.NewTranscriptLoaderPreHandler()),
	)

	b.graph.AddChatModelNode(nodes.NodeAgentChatModel,
		boundModel,
		compose.WithStatePreHandler(nodes.NewAgentChatModelPreHandler()),
		compose.WithStatePostHandler(nodes.NewAgentChatModelPostHandler(b.config.Transcripts, b.config.ModelName)),
	)
}

// addEdges creates the main flow connections between nodes.
func (b *GraphBuilder) addEdges() {
	edges := [][2]string{
		{compose.START, nodes.NodeTranscriptLoader},
		{nodes.NodeTranscriptLoader, nodes.NodeAgentChatModel},
		{nodes.NodeToolExecutor, nodes.NodeAgentChatModel},
	}

	for _, edge := range edges {
		b.graph.AddEdge(edge[0], edge[1])
	}
}

// addBranches wires the reasoning/tool loop: model output with tool calls
// loops through the executor, output without tool calls ends the run.
func (b *GraphBuilder) addBranches() error {
	decisionBranch := compose.NewGraphBranch(
		nodes.NewToolRouterCondition(),
		map[string]bool{
			nodes.NodeToolExecutor: true,
			compose.END:            true,
		},
	)
	if err := b.graph.AddBranch(nodes.NodeAgentChatModel, decisionBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding tool decision branch")
		return fmt.Errorf("error adding tool decision branch: %w", err)
	}

	return nil
}

// compile finalizes and compiles the graph.
func (b *GraphBuilder) compile(ctx context.Context) (compose.Runnable[model.QueryInput, *schema.Message], error) {
	// Backstop against branch bugs; the real loop bound is the tool budget
	// enforced in the executor pre-handler.
	maxSteps := 10 + b.config.ToolMaxCalls*2
	if maxSteps < 20 {
		maxSteps = 20
	}

	runnable, err := b.graph.Compile(ctx, compose.WithMaxRunSteps(maxSteps))
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling graph")
		return nil, fmt.Errorf("error compiling graph: %w", err)
	}

	logx.Debug().Msg("Graph compiled successfully")
	return runnable, nil
}

// sanitizeToolArguments best-effort cleans model-produced arguments before
// they reach a tool; it never fails hard.
func sanitizeToolArguments(ctx context.Context, name, arguments string) (string, error) {
	var m map[string]any
	if err := json.Unmarshal([]byte(arguments), &m); err != nil {
		// keep original if not JSON
		return arguments, nil
	}

	switch name {
	case tools.ToolFlightsFinder:
		for _, field := range []string{"departure_airport", "arrival_airport"} {
			if v, ok := m[field]; ok {
				m[field] = strings.ToUpper(strings.TrimSpace(fmt.Sprint(v)))
			}
		}
		for _, field := range []string{"outbound_date", "return_date"} {
			if v, ok := m[field].(string); ok {
				m[field] = strings.TrimSpace(v)
			}
		}
	case tools.ToolHotelsFinder:
		for _, field := range []string{"q", "check_in_date", "check_out_date", "hotel_class"} {
			if v, ok := m[field].(string); ok {
				m[field] = strings.TrimSpace(v)
			}
		}
	}

	b, err := json.Marshal(m)
	if err != nil {
		return arguments, nil
	}
	return string(b), nil
}
