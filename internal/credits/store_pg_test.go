package credits

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func newMockStore(t *testing.T) (*PGStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewPGStore(db), mock
}

func TestPGApplyCommitsBalanceAndLedgerEntry(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO users").
		WithArgs("user-1", InitialGrant).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT credits_balance FROM users").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"credits_balance"}).AddRow(100))
	mock.ExpectExec("UPDATE users SET credits_balance").
		WithArgs(150, "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO transactions").
		WithArgs(sqlmock.AnyArg(), "user-1", KindPurchase, 50, "Purchased 50 credits", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	balance, err := store.Apply(context.Background(), "user-1", KindPurchase, 50, "Purchased 50 credits")
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if balance != 150 {
		t.Fatalf("balance: %d", balance)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGApplyInsufficientRollsBack(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO users").
		WithArgs("user-1", InitialGrant).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT credits_balance FROM users").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"credits_balance"}).AddRow(5))
	mock.ExpectRollback()

	_, err := store.Apply(context.Background(), "user-1", KindUsage, -10, "analysis")
	if !errors.Is(err, ErrInsufficientCredits) {
		t.Fatalf("expected ErrInsufficientCredits, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGBalanceSeedsGrantRow(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO users").
		WithArgs("fresh", InitialGrant).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT credits_balance FROM users").
		WithArgs("fresh").
		WillReturnRows(sqlmock.NewRows([]string{"credits_balance"}).AddRow(InitialGrant))
	mock.ExpectCommit()

	balance, err := store.Balance(context.Background(), "fresh")
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if balance != InitialGrant {
		t.Fatalf("balance: %d", balance)
	}
}

func TestPGListByUserScansDescriptions(t *testing.T) {
	store, mock := newMockStore(t)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "user_id", "kind", "amount", "description", "created_at"}).
		AddRow("tx-2", "user-1", KindPurchase, 50, "top-up", now).
		AddRow("tx-1", "user-1", KindUsage, -10, nil, now.Add(-time.Minute))
	mock.ExpectQuery("SELECT (.+) FROM transactions").
		WithArgs("user-1", 10, 0).
		WillReturnRows(rows)

	txs, err := store.ListByUser(context.Background(), "user-1", 10, 0)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("rows: %d", len(txs))
	}
	if txs[0].Description != "top-up" || txs[1].Description != "" {
		t.Fatalf("descriptions: %+v", txs)
	}
}
