package tools

import (
	"context"
	"strconv"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"
)

// ===================================
// Flights Finder Tool
// ===================================

type FlightsInput struct {
	DepartureAirport string `json:"departure_airport"`
	ArrivalAirport   string `json:"arrival_airport"`
	OutboundDate     string `json:"outbound_date"`
	ReturnDate       string `json:"return_date,omitempty"`
	Adults           int    `json:"adults,omitempty"`
	Children         int    `json:"children,omitempty"`
	InfantsInSeat    int    `json:"infants_in_seat,omitempty"`
	InfantsOnLap     int    `json:"infants_on_lap,omitempty"`
}

// FlightsOutput carries either the provider's best-flights list or the
// provider failure as inert text. Failures are data, not errors: the model
// reads them from the transcript and decides whether to search again.
type FlightsOutput struct {
	BestFlights []any  `json:"best_flights,omitempty"`
	Error       string `json:"error,omitempty"`
}

type flightsFinder struct {
	client SearchClient
}

func (f *flightsFinder) find(ctx context.Context, in *FlightsInput) (*FlightsOutput, error) {
	if in.Adults <= 0 {
		in.Adults = 1
	}

	params := map[string]string{
		"departure_id":    in.DepartureAirport,
		"arrival_id":      in.ArrivalAirport,
		"outbound_date":   in.OutboundDate,
		"return_date":     in.ReturnDate,
		"adults":          strconv.Itoa(in.Adults),
		"children":        strconv.Itoa(in.Children),
		"infants_in_seat": strconv.Itoa(in.InfantsInSeat),
		"infants_on_lap":  strconv.Itoa(in.InfantsOnLap),
		"stops":           "1",
	}

	data, err := f.client.Search(ctx, "google_flights", params)
	if err != nil {
		return &FlightsOutput{Error: err.Error()}, nil
	}

	flights, ok := data["best_flights"].([]any)
	if !ok || len(flights) == 0 {
		return &FlightsOutput{Error: "no best_flights in provider response"}, nil
	}

	// passed through unmodified; ranking is the provider's job
	return &FlightsOutput{BestFlights: flights}, nil
}

func createFlightsFinderTool(client SearchClient) tool.BaseTool {
	f := &flightsFinder{client: client}
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolFlightsFinder,
			Desc: "Find round-trip or one-way flights using the Google Flights engine. Returns the best flights with airline, logo, price in USD and booking links, or an error message.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"departure_airport": {
					Type:     "string",
					Desc:     "Departure airport code (IATA), e.g. JFK",
					Required: true,
				},
				"arrival_airport": {
					Type:     "string",
					Desc:     "Arrival airport code (IATA), e.g. LHR",
					Required: true,
				},
				"outbound_date": {
					Type:     "string",
					Desc:     "Outbound date (YYYY-MM-DD)",
					Required: true,
				},
				"return_date": {
					Type: "string",
					Desc: "Return date (YYYY-MM-DD), omit for one-way",
				},
				"adults": {
					Type: "number",
					Desc: "Number of adults (default 1)",
				},
				"children": {
					Type: "number",
					Desc: "Number of children (default 0)",
				},
				"infants_in_seat": {
					Type: "number",
					Desc: "Number of infants in seat (default 0)",
				},
				"infants_on_lap": {
					Type: "number",
					Desc: "Number of infants on lap (default 0)",
				},
			}),
		},
		f.find,
	)
}
