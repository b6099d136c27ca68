package credits

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// PGStore implements Store on Postgres. The balance row is locked FOR UPDATE
// so the check, the balance update and the ledger insert are serialized per
// user.
type PGStore struct {
	DB *sql.DB
}

// NewPGStore constructs a Postgres-backed ledger store.
func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{DB: db}
}

func (s *PGStore) Balance(ctx context.Context, userID string) (int, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	balance, err := EnsureAndLockBalance(ctx, tx, userID)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return balance, nil
}

func (s *PGStore) Apply(ctx context.Context, userID, kind string, amount int, description string) (int, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	balance, err := ApplyTx(ctx, tx, userID, kind, amount, description)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return balance, nil
}

func (s *PGStore) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Transaction, error) {
	const query = `
SELECT id, user_id, kind, amount, description, created_at
FROM transactions
WHERE user_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3`
	rows, err := s.DB.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Transaction{}
	for rows.Next() {
		var t Transaction
		var description sql.NullString
		if err := rows.Scan(&t.ID, &t.UserID, &t.Kind, &t.Amount, &description, &t.CreatedAt); err != nil {
			return nil, err
		}
		if description.Valid {
			t.Description = description.String
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// EnsureAndLockBalance guarantees the user's balance row exists with the
// initial grant and returns the current balance locked for the duration of
// the transaction.
func EnsureAndLockBalance(ctx context.Context, tx *sql.Tx, userID string) (int, error) {
	if _, err := tx.ExecContext(ctx, `
INSERT INTO users (id, credits_balance, created_at, updated_at)
VALUES ($1, $2, now(), now())
ON CONFLICT (id) DO NOTHING`, userID, InitialGrant); err != nil {
		return 0, err
	}

	var balance int
	err := tx.QueryRowContext(ctx, `
SELECT credits_balance FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&balance)
	if err != nil {
		return 0, err
	}
	return balance, nil
}

// ApplyTx performs the balance check, the balance update and the ledger
// insert inside the caller's transaction. Shared with the analyses repo so a
// debit can join the same unit of work as the analysis insert.
func ApplyTx(ctx context.Context, tx *sql.Tx, userID, kind string, amount int, description string) (int, error) {
	balance, err := EnsureAndLockBalance(ctx, tx, userID)
	if err != nil {
		return 0, err
	}

	next := balance + amount
	if next < 0 {
		return 0, ErrInsufficientCredits
	}

	if _, err := tx.ExecContext(ctx, `
UPDATE users SET credits_balance = $1, updated_at = now() WHERE id = $2`, next, userID); err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx, `
INSERT INTO transactions (id, user_id, kind, amount, description, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.NewString(), userID, kind, amount, nullableString(description), time.Now().UTC()); err != nil {
		return 0, err
	}
	return next, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

var _ Store = (*PGStore)(nil)
