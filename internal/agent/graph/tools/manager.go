package tools

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
)

const (
	ToolFlightsFinder = "flights_finder"
	ToolHotelsFinder  = "hotels_finder"
)

// BadToolNameResult is returned verbatim for tool calls whose name is not
// registered. The provider is never contacted for those.
const BadToolNameResult = "Bad tool name"

// GetTravelTools returns the tool set bound to the agent, all backed by the
// given search client.
func GetTravelTools(client SearchClient) []tool.BaseTool {
	return []tool.BaseTool{
		createFlightsFinderTool(client),
		createHotelsFinderTool(client),
	}
}

// GetToolInfos collects the ToolInfo of every tool for model binding.
func GetToolInfos(ctx context.Context, ts []tool.BaseTool) ([]*schema.ToolInfo, error) {
	infos := make([]*schema.ToolInfo, 0, len(ts))
	for _, t := range ts {
		info, err := t.Info(ctx)
		if err != nil {
			return nil, fmt.Errorf("tool info: %w", err)
		}
		infos = append(infos, info)
	}
	return infos, nil
}
