package analyses

import (
	"context"
	"sync"
	"time"

	"kritic-backend/internal/credits"
)

// MemoryRepo implements Repo in process memory. The debit is delegated to the
// in-memory ledger, whose own lock makes the check-and-debit atomic; the
// record insert that follows cannot fail, so the pairing holds.
type MemoryRepo struct {
	mu     sync.RWMutex
	items  map[string]Analysis
	order  []string
	ledger credits.Store
}

// NewMemoryRepo constructs a MemoryRepo debiting against the given ledger.
func NewMemoryRepo(ledger credits.Store) *MemoryRepo {
	return &MemoryRepo{
		items:  make(map[string]Analysis),
		ledger: ledger,
	}
}

func (r *MemoryRepo) CreateWithDebit(ctx context.Context, analysis Analysis, description string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := r.ledger.Apply(ctx, analysis.UserID, credits.KindUsage, -analysis.CreditsUsed, description); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	analysis.UpdatedAt = analysis.CreatedAt
	r.items[analysis.ID] = analysis
	r.order = append(r.order, analysis.ID)
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, analysisID string) (Analysis, error) {
	if err := ctx.Err(); err != nil {
		return Analysis{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.items[analysisID]
	if !ok {
		return Analysis{}, ErrNotFound
	}
	return a, nil
}

func (r *MemoryRepo) GetForUser(ctx context.Context, userID, analysisID string) (Analysis, error) {
	a, err := r.GetByID(ctx, analysisID)
	if err != nil {
		return Analysis{}, err
	}
	if a.UserID != userID {
		return Analysis{}, ErrNotFound
	}
	return a, nil
}

func (r *MemoryRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Analysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	// Insertion order is creation order; serve newest-first.
	out := []Analysis{}
	skipped := 0
	for i := len(r.order) - 1; i >= 0 && len(out) < limit; i-- {
		a, ok := r.items[r.order[i]]
		if !ok || a.UserID != userID {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (r *MemoryRepo) MarkProcessing(ctx context.Context, analysisID string) error {
	return r.transition(ctx, analysisID, func(a *Analysis) error {
		if a.Status != StatusPending && a.Status != StatusProcessing {
			return ErrNotProcessed
		}
		a.Status = StatusProcessing
		return nil
	})
}

func (r *MemoryRepo) Complete(ctx context.Context, analysisID string, results *Verdict) error {
	return r.transition(ctx, analysisID, func(a *Analysis) error {
		if a.Status != StatusProcessing {
			return ErrNotProcessed
		}
		a.Status = StatusCompleted
		a.Results = results
		return nil
	})
}

func (r *MemoryRepo) MarkFailed(ctx context.Context, analysisID string) error {
	return r.transition(ctx, analysisID, func(a *Analysis) error {
		if Terminal(a.Status) {
			return ErrNotProcessed
		}
		a.Status = StatusFailed
		a.Results = nil
		return nil
	})
}

func (r *MemoryRepo) ClaimUser(ctx context.Context, fromUserID, toUserID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for id, a := range r.items {
		if a.UserID == fromUserID {
			a.UserID = toUserID
			a.UpdatedAt = time.Now().UTC()
			r.items[id] = a
			count++
		}
	}
	return count, nil
}

func (r *MemoryRepo) transition(ctx context.Context, analysisID string, apply func(*Analysis) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.items[analysisID]
	if !ok {
		return ErrNotFound
	}
	if err := apply(&a); err != nil {
		return err
	}
	a.UpdatedAt = time.Now().UTC()
	r.items[analysisID] = a
	return nil
}

var _ Repo = (*MemoryRepo)(nil)
