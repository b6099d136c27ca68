package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
)

// roundTripFunc lets tests intercept the single outbound call each client
// makes without standing up a server.
type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func clientWith(rt roundTripFunc) *http.Client {
	return &http.Client{Transport: rt}
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

func TestOpenAIGenerateExtractsText(t *testing.T) {
	var captured *http.Request
	httpClient := clientWith(func(req *http.Request) (*http.Response, error) {
		captured = req
		return jsonResponse(200, `{"choices":[{"message":{"role":"assistant","content":"  the critique  "}}]}`), nil
	})

	c := NewOpenAIClient("sk-test", "gpt-5-mini", httpClient)
	got, err := c.Generate(context.Background(), "prompt text")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "the critique" {
		t.Fatalf("text: %q", got)
	}

	if captured.Header.Get("Authorization") != "Bearer sk-test" {
		t.Fatalf("auth header: %q", captured.Header.Get("Authorization"))
	}
	var payload map[string]any
	body, _ := io.ReadAll(captured.Body)
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("request body: %v", err)
	}
	if payload["model"] != "gpt-5-mini" {
		t.Fatalf("model: %v", payload["model"])
	}
}

func TestAnthropicGenerateExtractsText(t *testing.T) {
	var captured *http.Request
	httpClient := clientWith(func(req *http.Request) (*http.Response, error) {
		captured = req
		return jsonResponse(200, `{"content":[{"type":"text","text":"claude says no"}]}`), nil
	})

	c := NewAnthropicClient("key", "", httpClient)
	got, err := c.Generate(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "claude says no" {
		t.Fatalf("text: %q", got)
	}
	if captured.Header.Get("x-api-key") != "key" {
		t.Fatalf("api key header missing")
	}
	if captured.Header.Get("anthropic-version") == "" {
		t.Fatalf("version header missing")
	}
}

func TestGeminiGenerateExtractsText(t *testing.T) {
	httpClient := clientWith(func(req *http.Request) (*http.Response, error) {
		if !strings.Contains(req.URL.String(), "generateContent") {
			t.Fatalf("unexpected url: %s", req.URL)
		}
		return jsonResponse(200, `{"candidates":[{"content":{"parts":[{"text":"gemini verdict"}]}}]}`), nil
	})

	c := NewGeminiClient("key", "", httpClient)
	got, err := c.Generate(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "gemini verdict" {
		t.Fatalf("text: %q", got)
	}
}

func TestGenerateMissingKeyIsAuthFailure(t *testing.T) {
	clients := []Client{
		NewOpenAIClient("", "", nil),
		NewAnthropicClient("  ", "", nil),
		NewGeminiClient("", "", nil),
	}
	for _, c := range clients {
		_, err := c.Generate(context.Background(), "prompt")
		pe, ok := AsProviderError(err)
		if !ok || pe.Kind != FailureAuth {
			t.Fatalf("%s: expected auth failure, got %v", c.Name(), err)
		}
	}
}

func TestGenerateClassifiesStatusCodes(t *testing.T) {
	cases := []struct {
		status int
		want   FailureKind
	}{
		{401, FailureAuth},
		{403, FailureAuth},
		{429, FailureBadResponse},
		{500, FailureBadResponse},
	}
	for _, tc := range cases {
		httpClient := clientWith(func(*http.Request) (*http.Response, error) {
			return jsonResponse(tc.status, `{"error":{"message":"nope"}}`), nil
		})
		c := NewOpenAIClient("sk", "", httpClient)
		_, err := c.Generate(context.Background(), "prompt")
		pe, ok := AsProviderError(err)
		if !ok || pe.Kind != tc.want {
			t.Fatalf("status %d: expected %s, got %v", tc.status, tc.want, err)
		}
		if pe.Provider != ProviderGPT4 {
			t.Fatalf("provider: %q", pe.Provider)
		}
	}
}

func TestGenerateTimeoutClassified(t *testing.T) {
	httpClient := clientWith(func(req *http.Request) (*http.Response, error) {
		<-req.Context().Done()
		return nil, req.Context().Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewAnthropicClient("key", "", httpClient)
	_, err := c.Generate(ctx, "prompt")
	pe, ok := AsProviderError(err)
	if !ok || pe.Kind != FailureTimeout {
		t.Fatalf("expected timeout failure, got %v", err)
	}
}

func TestGenerateNetworkErrorClassified(t *testing.T) {
	httpClient := clientWith(func(*http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})

	c := NewGeminiClient("key", "", httpClient)
	_, err := c.Generate(context.Background(), "prompt")
	pe, ok := AsProviderError(err)
	if !ok || pe.Kind != FailureNetwork {
		t.Fatalf("expected network failure, got %v", err)
	}
}

func TestGenerateMalformedEnvelope(t *testing.T) {
	cases := map[string]string{
		"not json":      "plain text",
		"empty choices": `{"choices":[]}`,
		"empty content": `{"choices":[{"message":{"content":"   "}}]}`,
		"vendor error":  `{"error":{"message":"model overloaded","type":"server_error"}}`,
	}
	for name, body := range cases {
		httpClient := clientWith(func(*http.Request) (*http.Response, error) {
			return jsonResponse(200, body), nil
		})
		c := NewOpenAIClient("sk", "", httpClient)
		_, err := c.Generate(context.Background(), "prompt")
		pe, ok := AsProviderError(err)
		if !ok || pe.Kind != FailureBadResponse {
			t.Fatalf("%s: expected malformed_response, got %v", name, err)
		}
	}
}

func TestRegistryCoversEnumeratedProviders(t *testing.T) {
	r := NewRegistry(Credentials{})
	for _, name := range DefaultProviders() {
		c, ok := r.Lookup(name)
		if !ok {
			t.Fatalf("missing client for %s", name)
		}
		if c.Name() != name {
			t.Fatalf("client name %q registered under %q", c.Name(), name)
		}
	}
	if _, ok := r.Lookup("grok"); ok {
		t.Fatalf("unexpected client for unknown provider")
	}
}
