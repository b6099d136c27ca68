package analyses

import "context"

// Repo defines persistence operations for analyses. CreateWithDebit pairs the
// record insert with the credit debit in one atomic unit of work: the ledger
// entry, the balance update and the new analysis row all land or none do.
type Repo interface {
	CreateWithDebit(ctx context.Context, analysis Analysis, description string) error
	GetByID(ctx context.Context, analysisID string) (Analysis, error)
	GetForUser(ctx context.Context, userID, analysisID string) (Analysis, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Analysis, error)
	MarkProcessing(ctx context.Context, analysisID string) error
	Complete(ctx context.Context, analysisID string, results *Verdict) error
	MarkFailed(ctx context.Context, analysisID string) error
	ClaimUser(ctx context.Context, fromUserID, toUserID string) (int, error)
}
