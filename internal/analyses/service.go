package analyses

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"kritic-backend/internal/llm"
	"kritic-backend/internal/queue"
	"kritic-backend/internal/shared/metrics"
	"kritic-backend/internal/shared/telemetry"
)

// CreditCostPerProvider is the charge per requested provider. A three-model
// analysis costs 30 credits.
const CreditCostPerProvider = 10

// Service contains business logic for analyses.
type Service struct {
	Repo         Repo
	Orchestrator *Orchestrator
	// JobQueue hands analyses to the worker process. When nil, processing
	// runs in an in-process goroutine instead.
	JobQueue queue.Client
}

// Create validates the request, charges the user, records the analysis as
// pending, and hands it off for asynchronous processing. The debit and the
// record are atomic: a failed debit leaves no analysis behind.
func (s *Service) Create(ctx context.Context, userID, originalResponse, contextText string, providers []string) (Analysis, error) {
	if userID == "" {
		return Analysis{}, errors.New("userID is required")
	}
	if strings.TrimSpace(originalResponse) == "" {
		return Analysis{}, ErrEmptyText
	}

	requested, err := normalizeProviders(providers)
	if err != nil {
		return Analysis{}, err
	}

	analysis := Analysis{
		ID:               uuid.NewString(),
		UserID:           userID,
		OriginalResponse: originalResponse,
		Context:          strings.TrimSpace(contextText),
		Providers:        requested,
		Status:           StatusPending,
		CreditsUsed:      CreditCostPerProvider * len(requested),
		CreatedAt:        time.Now().UTC(),
	}

	description := "Analysis using " + strings.Join(requested, ", ")
	if err := s.Repo.CreateWithDebit(ctx, analysis, description); err != nil {
		return Analysis{}, err
	}
	metrics.IncAnalysisStarted()
	telemetry.Info("analysis.created", map[string]any{
		"request_id":   RequestIDFromContext(ctx),
		"user_id":      userID,
		"analysis_id":  analysis.ID,
		"providers":    requested,
		"credits_used": analysis.CreditsUsed,
	})

	s.dispatch(ctx, analysis.ID)
	return analysis, nil
}

// normalizeProviders trims, dedupes preserving request order, and rejects
// unknown names before anything is charged.
func normalizeProviders(providers []string) ([]string, error) {
	seen := make(map[string]bool, len(providers))
	out := make([]string, 0, len(providers))
	for _, raw := range providers {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" || seen[name] {
			continue
		}
		if !llm.KnownProvider(name) {
			return nil, ErrUnknownProvider{Provider: raw}
		}
		seen[name] = true
		out = append(out, name)
	}
	if len(out) == 0 {
		return nil, ErrNoProviders
	}
	return out, nil
}

// dispatch enqueues the analysis for the worker, falling back to an
// in-process goroutine when no queue is configured or the send fails. The
// user has already been charged, so dropping the job is the one thing this
// must not do.
func (s *Service) dispatch(ctx context.Context, analysisID string) {
	if s.JobQueue != nil {
		msg := queue.Message{
			AnalysisID: analysisID,
			RequestID:  RequestIDFromContext(ctx),
			EnqueuedAt: time.Now().UTC().Format(time.RFC3339),
			Version:    1,
		}
		err := s.JobQueue.Send(ctx, msg)
		if err == nil {
			return
		}
		telemetry.Error("analysis.enqueue.failed", map[string]any{
			"analysis_id": analysisID,
			"error":       err.Error(),
		})
	}
	go func(ctx context.Context) {
		if err := s.ProcessAnalysis(ctx, analysisID); err != nil {
			telemetry.Error("analysis.process.failed", map[string]any{
				"analysis_id": analysisID,
				"error":       err.Error(),
			})
		}
	}(backgroundWithRequestID(ctx))
}

// Get returns an analysis owned by userID.
func (s *Service) Get(ctx context.Context, userID, analysisID string) (Analysis, error) {
	if analysisID == "" {
		return Analysis{}, errors.New("analysisID is required")
	}
	return s.Repo.GetForUser(ctx, userID, analysisID)
}

// List returns a user's analyses newest-first.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Analysis, error) {
	if userID == "" {
		return nil, errors.New("userID is required")
	}
	return s.Repo.ListByUser(ctx, userID, limit, offset)
}

// ProcessAnalysis runs the fan-out pipeline for one stored analysis and moves
// it to a terminal state. Safe to call again on a redelivered job: terminal
// records are left untouched.
func (s *Service) ProcessAnalysis(ctx context.Context, analysisID string) (err error) {
	startedAt := time.Now().UTC()
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
			s.failAnalysis(ctx, analysisID, err, startedAt)
		}
	}()

	analysis, err := s.Repo.GetByID(ctx, analysisID)
	if err != nil {
		return fmt.Errorf("analysis lookup: %w", err)
	}
	if Terminal(analysis.Status) {
		return nil
	}

	if err := s.Repo.MarkProcessing(ctx, analysisID); err != nil {
		if errors.Is(err, ErrNotProcessed) {
			// Lost the race with another delivery.
			return nil
		}
		s.failAnalysis(ctx, analysisID, fmt.Errorf("set processing: %w", err), startedAt)
		return err
	}
	telemetry.Info("analysis.status", map[string]any{
		"request_id":        RequestIDFromContext(ctx),
		"user_id":           analysis.UserID,
		"analysis_id":       analysis.ID,
		"status":            StatusProcessing,
		"status_transition": "pending->processing",
	})

	if s.Orchestrator == nil {
		err := errors.New("missing orchestrator")
		s.failAnalysis(ctx, analysisID, err, startedAt)
		return err
	}

	verdict, err := s.Orchestrator.Run(ctx, analysis.OriginalResponse, analysis.Context, analysis.Providers)
	if err != nil {
		s.failAnalysis(ctx, analysisID, fmt.Errorf("orchestrate: %w", err), startedAt)
		return err
	}

	if err := s.Repo.Complete(ctx, analysisID, &verdict); err != nil {
		if errors.Is(err, ErrNotProcessed) {
			return nil
		}
		s.failAnalysis(ctx, analysisID, fmt.Errorf("store verdict: %w", err), startedAt)
		return err
	}
	completedAt := time.Now().UTC()
	metrics.IncAnalysisCompleted()
	metrics.ObserveAnalysisDurationMs(durationMs(startedAt, completedAt))
	telemetry.Info("analysis.status", map[string]any{
		"request_id":        RequestIDFromContext(ctx),
		"user_id":           analysis.UserID,
		"analysis_id":       analysis.ID,
		"status":            StatusCompleted,
		"status_transition": "processing->completed",
		"duration_ms":       durationMs(startedAt, completedAt),
	})
	return nil
}

func (s *Service) failAnalysis(ctx context.Context, analysisID string, cause error, startedAt time.Time) {
	// Use a fresh context so a cancelled request cannot strand the record
	// in processing.
	if err := s.Repo.MarkFailed(context.Background(), analysisID); err != nil && !errors.Is(err, ErrNotProcessed) {
		telemetry.Error("analysis.fail_update.failed", map[string]any{
			"analysis_id": analysisID,
			"error":       err.Error(),
		})
	}
	completedAt := time.Now().UTC()
	metrics.IncAnalysisFailed()
	metrics.ObserveAnalysisDurationMs(durationMs(startedAt, completedAt))
	telemetry.Error("analysis.status", map[string]any{
		"request_id":        RequestIDFromContext(ctx),
		"analysis_id":       analysisID,
		"status":            StatusFailed,
		"status_transition": "processing->failed",
		"error":             sanitizeError(cause),
		"duration_ms":       durationMs(startedAt, completedAt),
	})
}

func durationMs(startedAt, completedAt time.Time) float64 {
	return float64(completedAt.Sub(startedAt).Microseconds()) / 1000.0
}

func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.TrimSpace(msg)
	const maxLen = 500
	if len(msg) > maxLen {
		msg = msg[:maxLen]
	}
	return msg
}
