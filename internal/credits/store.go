package credits

import "context"

// Store is the ledger persistence contract. Apply is the single mutation
// entry point: it appends one transaction and adjusts the cached balance in
// the same atomic unit of work, rejecting any delta that would drive the
// balance negative before writing anything.
type Store interface {
	Balance(ctx context.Context, userID string) (int, error)
	Apply(ctx context.Context, userID, kind string, amount int, description string) (int, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Transaction, error)
}

// Service validates ledger operations before delegating to a Store.
type Service struct {
	store Store
}

// NewService constructs a Service over the given store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Balance returns the user's current balance, initializing the grant if the
// user has no ledger yet.
func (s *Service) Balance(ctx context.Context, userID string) (int, error) {
	return s.store.Balance(ctx, userID)
}

// Apply records a signed credit delta. Kind and sign must agree: usage is
// negative, purchase and refund are positive.
func (s *Service) Apply(ctx context.Context, userID, kind string, amount int, description string) (int, error) {
	if !ValidKind(kind) {
		return 0, ErrInvalidKind
	}
	if amount == 0 {
		return 0, ErrInvalidAmount
	}
	if kind == KindUsage && amount > 0 {
		return 0, ErrInvalidAmount
	}
	if kind != KindUsage && amount < 0 {
		return 0, ErrInvalidAmount
	}
	return s.store.Apply(ctx, userID, kind, amount, description)
}

// History returns the user's transactions, newest first.
func (s *Service) History(ctx context.Context, userID string, limit, offset int) ([]Transaction, error) {
	return s.store.ListByUser(ctx, userID, limit, offset)
}
