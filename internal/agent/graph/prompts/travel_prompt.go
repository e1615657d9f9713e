package prompts

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/voyago/travel-agent/internal/agent/model"
)

//go:embed template/travel_prompt.txt
var travelSystemPrompt string

// RenderTravelSystem renders the travel-agency system prompt via the Eino
// prompt component. The current year is injected so the model can resolve
// dates like "June 10" without guessing the year.
func RenderTravelSystem(ctx context.Context, cfg *model.PromptConfig) (string, error) {
	if cfg == nil {
		return "", fmt.Errorf("prompt config is nil")
	}

	tpl := prompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(travelSystemPrompt),
	)
	msgs, err := tpl.Format(ctx, map[string]any{
		"AgencyName":  cfg.AgencyName,
		"CurrentYear": time.Now().Year(),
	})
	if err != nil {
		return "", fmt.Errorf("travel prompt render: %w", err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("travel prompt render: empty result")
	}
	return msgs[0].Content, nil
}
