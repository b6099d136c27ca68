package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
)

const openaiAPIURL = "https://api.openai.com/v1/chat/completions"

// OpenAIClient calls the OpenAI Chat Completions endpoint.
type OpenAIClient struct {
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewOpenAIClient constructs the gpt4 provider client.
func NewOpenAIClient(apiKey, model string, httpClient *http.Client) *OpenAIClient {
	if strings.TrimSpace(model) == "" {
		model = "gpt-5-mini"
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &OpenAIClient{apiKey: apiKey, model: model, httpClient: httpClient}
}

func (c *OpenAIClient) Name() string { return ProviderGPT4 }

type openaiChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiChatRequest struct {
	Model       string              `json:"model"`
	Messages    []openaiChatMessage `json:"messages"`
	Temperature float32             `json:"temperature"`
	MaxTokens   int                 `json:"max_tokens"`
}

type openaiChatResponse struct {
	Choices []struct {
		Message openaiChatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Generate performs one completion call and returns the raw text.
func (c *OpenAIClient) Generate(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return "", &ProviderError{Provider: c.Name(), Kind: FailureAuth, Err: errMissingAPIKey}
	}

	payload, err := json.Marshal(openaiChatRequest{
		Model: c.model,
		Messages: []openaiChatMessage{
			{Role: "system", Content: "You are a brutally honest business analyst."},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.7,
		MaxTokens:   2000,
	})
	if err != nil {
		return "", &ProviderError{Provider: c.Name(), Kind: FailureBadResponse, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, openaiAPIURL, bytes.NewReader(payload))
	if err != nil {
		return "", &ProviderError{Provider: c.Name(), Kind: FailureNetwork, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
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

	var parsed openaiChatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", &ProviderError{Provider: c.Name(), Kind: FailureBadResponse, Err: err}
	}
	if parsed.Error != nil {
		return "", &ProviderError{Provider: c.Name(), Kind: FailureBadResponse, Err: vendorError(parsed.Error.Message, parsed.Error.Type)}
	}
	if len(parsed.Choices) == 0 || strings.TrimSpace(parsed.Choices[0].Message.Content) == "" {
		return "", &ProviderError{Provider: c.Name(), Kind: FailureBadResponse, Err: errEmptyCompletion}
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

var _ Client = (*OpenAIClient)(nil)
