package credits

import "time"

// Transaction kinds. Usage amounts are negative; purchases and refunds are
// positive.
const (
	KindPurchase = "purchase"
	KindUsage    = "usage"
	KindRefund   = "refund"
)

// InitialGrant is every user's starting balance. A user's current balance is
// always InitialGrant plus the sum of their transaction amounts; the balance
// column is a cached projection of that ledger.
const InitialGrant = 100

// Transaction is one immutable ledger entry.
type Transaction struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Kind        string    `json:"type"`
	Amount      int       `json:"amount"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ValidKind reports whether kind is one of the ledger kinds.
func ValidKind(kind string) bool {
	switch kind {
	case KindPurchase, KindUsage, KindRefund:
		return true
	}
	return false
}
