package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const geminiAPIBase = "https://generativelanguage.googleapis.com/v1beta/models"

// GeminiClient calls the Google Generative Language endpoint.
type GeminiClient struct {
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewGeminiClient constructs the gemini provider client.
func NewGeminiClient(apiKey, model string, httpClient *http.Client) *GeminiClient {
	if strings.TrimSpace(model) == "" {
		model = "gemini-pro"
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &GeminiClient{apiKey: apiKey, model: model, httpClient: httpClient}
}

func (c *GeminiClient) Name() string { return ProviderGemini }

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	Temperature     float32 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

// Generate performs one generateContent call and returns the raw text.
func (c *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return "", &ProviderError{Provider: c.Name(), Kind: FailureAuth, Err: errMissingAPIKey}
	}

	payload, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     0.7,
			MaxOutputTokens: 2000,
		},
	})
	if err != nil {
		return "", &ProviderError{Provider: c.Name(), Kind: FailureBadResponse, Err: err}
	}

	endpoint := fmt.Sprintf("%s/%s:generateContent?key=%s", geminiAPIBase, c.model, url.QueryEscape(c.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", &ProviderError{Provider: c.Name(), Kind: FailureNetwork, Err: err}
	}
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

	var parsed geminiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", &ProviderError{Provider: c.Name(), Kind: FailureBadResponse, Err: err}
	}
	if parsed.Error != nil {
		return "", &ProviderError{Provider: c.Name(), Kind: FailureBadResponse, Err: vendorError(parsed.Error.Message, parsed.Error.Status)}
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 ||
		strings.TrimSpace(parsed.Candidates[0].Content.Parts[0].Text) == "" {
		return "", &ProviderError{Provider: c.Name(), Kind: FailureBadResponse, Err: errEmptyCompletion}
	}
	return strings.TrimSpace(parsed.Candidates[0].Content.Parts[0].Text), nil
}

var _ Client = (*GeminiClient)(nil)
