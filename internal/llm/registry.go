package llm

import (
	"net/http"
	"time"
)

// Provider identifiers form the fixed set callers may request.
const (
	ProviderGPT4   = "gpt4"
	ProviderClaude = "claude"
	ProviderGemini = "gemini"
)

// roles assigns each provider its critique persona. The prompt instruction
// block is otherwise identical across providers.
var roles = map[string]string{
	ProviderGPT4:   "brutally honest business analyst and skeptical investor",
	ProviderClaude: "competitor analyst and market researcher",
	ProviderGemini: "skeptical market researcher and financial analyst",
}

// DefaultProviders returns the full provider set in canonical order, used
// when a request does not name specific models.
func DefaultProviders() []string {
	return []string{ProviderGPT4, ProviderClaude, ProviderGemini}
}

// KnownProvider reports whether name belongs to the enumerated provider set.
func KnownProvider(name string) bool {
	_, ok := roles[name]
	return ok
}

// RoleFor returns the critique persona for a provider.
func RoleFor(name string) string {
	return roles[name]
}

// Credentials holds the vendor API keys and model overrides, read once from
// configuration at process start and injected here rather than consulted as
// process globals by the clients.
type Credentials struct {
	OpenAIAPIKey    string
	OpenAIModel     string
	AnthropicAPIKey string
	AnthropicModel  string
	GoogleAIAPIKey  string
	GeminiModel     string
	HTTPTimeout     time.Duration
}

// Registry maps provider identifiers to constructed clients.
type Registry struct {
	clients map[string]Client
}

// NewRegistry constructs one client per provider in the enumerated set.
// Clients with a missing key are still registered; they fail with an auth
// ProviderError at call time, which the orchestrator absorbs like any other
// provider-local failure.
func NewRegistry(creds Credentials) *Registry {
	timeout := creds.HTTPTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	httpClient := &http.Client{Timeout: timeout}

	return &Registry{clients: map[string]Client{
		ProviderGPT4:   NewOpenAIClient(creds.OpenAIAPIKey, creds.OpenAIModel, httpClient),
		ProviderClaude: NewAnthropicClient(creds.AnthropicAPIKey, creds.AnthropicModel, httpClient),
		ProviderGemini: NewGeminiClient(creds.GoogleAIAPIKey, creds.GeminiModel, httpClient),
	}}
}

// NewRegistryWith builds a registry from explicit clients, keyed by Name().
// Used by tests to substitute fakes.
func NewRegistryWith(clients ...Client) *Registry {
	m := make(map[string]Client, len(clients))
	for _, c := range clients {
		m[c.Name()] = c
	}
	return &Registry{clients: m}
}

// Lookup returns the client registered for name.
func (r *Registry) Lookup(name string) (Client, bool) {
	if r == nil {
		return nil, false
	}
	c, ok := r.clients[name]
	return c, ok
}
