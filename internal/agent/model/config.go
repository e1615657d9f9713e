package model

// ================ Config ================

// AgentModelConfig configures the single reasoning model driving the agent.
type AgentModelConfig struct {
	Model       string  `envconfig:"AGENT_MODEL" default:"gemini-2.5-flash"`
	MaxTokens   int     `envconfig:"AGENT_MAX_TOKENS" default:"2000"`
	Temperature float32 `envconfig:"AGENT_TEMPERATURE" default:"0.4"`
}

// ConversationConfig bounds per-session storage and the tool loop.
type ConversationConfig struct {
	TTL   string `envconfig:"CONVERSATION_TTL" default:"24h"`
	Tools struct {
		MaxCalls int `envconfig:"CONVERSATION_TOOL_MAX_CALLS" default:"10"`
	}
}

// PromptConfig parametrises the travel-agency system prompt.
type PromptConfig struct {
	AgencyName string `envconfig:"PROMPT_AGENCY_NAME" default:"Voyago"`
}

// SearchConfig configures the SerpAPI search provider.
type SearchConfig struct {
	APIKey  string `envconfig:"SERPAPI_API_KEY" required:"true"`
	BaseURL string `envconfig:"SERPAPI_BASE_URL" default:"https://serpapi.com/search.json"`
	Timeout int    `envconfig:"SERPAPI_TIMEOUT" default:"30"`
}

// SMTPConfig configures the outbound mail relay. When Username is empty the
// sender address supplied at send time is used for authentication, matching
// the Gmail app-password setup.
type SMTPConfig struct {
	Host     string `envconfig:"SMTP_HOST" default:"smtp.gmail.com"`
	Port     int    `envconfig:"SMTP_PORT" default:"587"`
	Username string `envconfig:"SMTP_USERNAME"`
	Password string `envconfig:"SMTP_PASSWORD" required:"true"`
}

// ServerConfig configures the HTTP front end.
type ServerConfig struct {
	Addr           string `envconfig:"SERVER_ADDR" default:":8080"`
	RequestTimeout int    `envconfig:"SERVER_REQUEST_TIMEOUT" default:"120"`
}
