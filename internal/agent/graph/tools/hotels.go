package tools

import (
	"context"
	"strconv"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"
)

// ===================================
// Hotels Finder Tool
// ===================================

// maxHotelResults bounds how many properties are handed back to the model.
const maxHotelResults = 5

type HotelsInput struct {
	Location     string `json:"q"`
	CheckInDate  string `json:"check_in_date"`
	CheckOutDate string `json:"check_out_date"`
	SortBy       int    `json:"sort_by,omitempty"`
	Adults       int    `json:"adults,omitempty"`
	Children     int    `json:"children,omitempty"`
	Rooms        int    `json:"rooms,omitempty"`
	HotelClass   string `json:"hotel_class,omitempty"`
}

type HotelsOutput struct {
	Properties []any  `json:"properties,omitempty"`
	Error      string `json:"error,omitempty"`
}

type hotelsFinder struct {
	client SearchClient
}

func (h *hotelsFinder) find(ctx context.Context, in *HotelsInput) (*HotelsOutput, error) {
	if in.Adults <= 0 {
		in.Adults = 1
	}
	if in.Rooms <= 0 {
		in.Rooms = 1
	}
	if in.SortBy == 0 {
		in.SortBy = 8 // sort by rating
	}

	params := map[string]string{
		"q":              in.Location,
		"check_in_date":  in.CheckInDate,
		"check_out_date": in.CheckOutDate,
		"adults":         strconv.Itoa(in.Adults),
		"children":       strconv.Itoa(in.Children),
		"rooms":          strconv.Itoa(in.Rooms),
		"sort_by":        strconv.Itoa(in.SortBy),
		"hotel_class":    in.HotelClass,
	}

	data, err := h.client.Search(ctx, "google_hotels", params)
	if err != nil {
		return &HotelsOutput{Error: err.Error()}, nil
	}

	props, ok := data["properties"].([]any)
	if !ok || len(props) == 0 {
		return &HotelsOutput{Error: "no properties in provider response"}, nil
	}
	if len(props) > maxHotelResults {
		props = props[:maxHotelResults]
	}

	return &HotelsOutput{Properties: props}, nil
}

func createHotelsFinderTool(client SearchClient) tool.BaseTool {
	h := &hotelsFinder{client: client}
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolHotelsFinder,
			Desc: "Find hotels using the Google Hotels engine. Returns up to 5 properties with name, logo, nightly rate and total price in USD and website links, or an error message.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"q": {
					Type:     "string",
					Desc:     `Location for hotels (e.g. "New York")`,
					Required: true,
				},
				"check_in_date": {
					Type:     "string",
					Desc:     "Check-in date (YYYY-MM-DD)",
					Required: true,
				},
				"check_out_date": {
					Type:     "string",
					Desc:     "Check-out date (YYYY-MM-DD)",
					Required: true,
				},
				"sort_by": {
					Type: "number",
					Desc: "Sorting parameter (default 8 for rating)",
				},
				"adults": {
					Type: "number",
					Desc: "Number of adults (default 1)",
				},
				"children": {
					Type: "number",
					Desc: "Number of children (default 0)",
				},
				"rooms": {
					Type: "number",
					Desc: "Number of rooms (default 1)",
				},
				"hotel_class": {
					Type: "string",
					Desc: `Filter by hotel class (e.g. "3" or "4")`,
				},
			}),
		},
		h.find,
	)
}
