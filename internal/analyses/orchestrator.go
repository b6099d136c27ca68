package analyses

import (
	"context"
	"fmt"
	"sync"
	"time"

	"kritic-backend/internal/llm"
	"kritic-backend/internal/shared/metrics"
	"kritic-backend/internal/shared/telemetry"
)

// ProviderOutcome captures one provider's raw result. Err non-nil means the
// response is empty; the two are never both meaningful.
type ProviderOutcome struct {
	Provider string
	Response string
	Err      error
}

// Orchestrator fans one request out to every requested provider
// concurrently, absorbs per-provider failures, and merges whatever parsed.
type Orchestrator struct {
	Registry *llm.Registry
	// Timeout bounds each provider call; it is the only cancellation
	// mechanism once the fan-out has started.
	Timeout time.Duration
}

const defaultProviderTimeout = 60 * time.Second

// Run executes the full fan-out/parse/merge pipeline. It returns an error
// only for conditions outside provider control; provider and parse failures
// degrade into a thinner (possibly fallback) verdict instead.
func (o *Orchestrator) Run(ctx context.Context, originalResponse, contextText string, providers []string) (Verdict, error) {
	if len(providers) == 0 {
		return Verdict{}, ErrNoProviders
	}

	timeout := o.Timeout
	if timeout <= 0 {
		timeout = defaultProviderTimeout
	}

	// Outcomes are collected positionally so the merge sees providers in
	// request order no matter which call settles first.
	outcomes := make([]ProviderOutcome, len(providers))
	var wg sync.WaitGroup
	for i, name := range providers {
		client, ok := o.Registry.Lookup(name)
		if !ok {
			outcomes[i] = ProviderOutcome{Provider: name, Err: ErrUnknownProvider{Provider: name}}
			continue
		}
		wg.Add(1)
		go func(i int, name string, client llm.Client) {
			defer wg.Done()
			defer func() {
				if rec := recover(); rec != nil {
					outcomes[i] = ProviderOutcome{Provider: name, Err: fmt.Errorf("panic: %v", rec)}
				}
			}()
			prompt := llm.BuildAnalysisPrompt(originalResponse, contextText, llm.RoleFor(name))
			callCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			response, err := client.Generate(callCtx, prompt)
			outcomes[i] = ProviderOutcome{Provider: name, Response: response, Err: err}
		}(i, name, client)
	}
	wg.Wait()

	parsed := make([]Verdict, 0, len(outcomes))
	for _, outcome := range outcomes {
		if outcome.Err != nil {
			fields := map[string]any{"provider": outcome.Provider, "error": outcome.Err.Error()}
			if pe, ok := llm.AsProviderError(outcome.Err); ok {
				fields["kind"] = string(pe.Kind)
			}
			telemetry.Error("analysis.provider.failed", fields)
			metrics.IncProviderFailed()
			continue
		}
		verdict, ok := ParseVerdict(outcome.Response)
		if !ok {
			telemetry.Error("analysis.provider.unparseable", map[string]any{
				"provider":     outcome.Provider,
				"response_len": len(outcome.Response),
			})
			metrics.IncProviderUnparseable()
			continue
		}
		parsed = append(parsed, verdict)
	}

	return MergeVerdicts(parsed), nil
}
