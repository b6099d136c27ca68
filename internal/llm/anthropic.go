package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	anthropicAPIURL  = "https://api.anthropic.com/v1/messages"
	anthropicVersion = "2023-06-01"
)

var (
	errMissingAPIKey   = errors.New("api key not configured")
	errEmptyCompletion = errors.New("empty completion")
)

func vendorError(message, kind string) error {
	if kind == "" {
		return errors.New(message)
	}
	return fmt.Errorf("%s (%s)", message, kind)
}

// AnthropicClient calls the Anthropic Messages endpoint.
type AnthropicClient struct {
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewAnthropicClient constructs the claude provider client.
func NewAnthropicClient(apiKey, model string, httpClient *http.Client) *AnthropicClient {
	if strings.TrimSpace(model) == "" {
		model = "claude-3-5-sonnet-20241022"
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &AnthropicClient{apiKey: apiKey, model: model, httpClient: httpClient}
}

func (c *AnthropicClient) Name() string { return ProviderClaude }

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Generate performs one messages call and returns the raw text.
func (c *AnthropicClient) Generate(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return "", &ProviderError{Provider: c.Name(), Kind: FailureAuth, Err: errMissingAPIKey}
	}

	payload, err := json.Marshal(anthropicRequest{
		Model:     c.model,
		MaxTokens: 2000,
		Messages:  []anthropicMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", &ProviderError{Provider: c.Name(), Kind: FailureBadResponse, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, anthropicAPIURL, bytes.NewReader(payload))
	if err != nil {
		return "", &ProviderError{Provider: c.Name(), Kind: FailureNetwork, Err: err}
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", ClassifyTransport(c.Name(), ctx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &ProviderError{Provider: c.Name(), Kind: FailureNetwork, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return "", ClassifyStatus(c.Name(), resp.StatusCode, string(body))
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", &ProviderError{Provider: c.Name(), Kind: FailureBadResponse, Err: err}
	}
	if parsed.Error != nil {
		return "", &ProviderError{Provider: c.Name(), Kind: FailureBadResponse, Err: vendorError(parsed.Error.Message, parsed.Error.Type)}
	}
	if len(parsed.Content) == 0 || strings.TrimSpace(parsed.Content[0].Text) == "" {
		return "", &ProviderError{Provider: c.Name(), Kind: FailureBadResponse, Err: errEmptyCompletion}
	}
	return strings.TrimSpace(parsed.Content[0].Text), nil
}

var _ Client = (*AnthropicClient)(nil)
