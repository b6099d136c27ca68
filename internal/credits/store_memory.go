package credits

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore implements Store in process memory, used when no database is
// configured (dev mode) and in tests.
type MemoryStore struct {
	mu           sync.Mutex
	balances     map[string]int
	transactions map[string][]Transaction
}

// NewMemoryStore constructs an empty in-memory ledger.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		balances:     make(map[string]int),
		transactions: make(map[string][]Transaction),
	}
}

func (s *MemoryStore) Balance(ctx context.Context, userID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balanceLocked(userID), nil
}

func (s *MemoryStore) Apply(ctx context.Context, userID, kind string, amount int, description string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyLocked(userID, kind, amount, description)
}

func (s *MemoryStore) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.transactions[userID]
	// Stored oldest-first; serve newest-first.
	out := []Transaction{}
	for i := len(all) - 1 - offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

func (s *MemoryStore) balanceLocked(userID string) int {
	balance, ok := s.balances[userID]
	if !ok {
		balance = InitialGrant
		s.balances[userID] = balance
	}
	return balance
}

func (s *MemoryStore) applyLocked(userID, kind string, amount int, description string) (int, error) {
	balance := s.balanceLocked(userID)
	next := balance + amount
	if next < 0 {
		return 0, ErrInsufficientCredits
	}
	s.balances[userID] = next
	s.transactions[userID] = append(s.transactions[userID], Transaction{
		ID:          uuid.NewString(),
		UserID:      userID,
		Kind:        kind,
		Amount:      amount,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	})
	return next, nil
}

var _ Store = (*MemoryStore)(nil)
