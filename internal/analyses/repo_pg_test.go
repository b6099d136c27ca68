package analyses

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"kritic-backend/internal/credits"
)

func newMockRepo(t *testing.T) (*PGRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return &PGRepo{DB: db}, mock
}

func TestCreateWithDebitCommitsChargeAndRecord(t *testing.T) {
	repo, mock := newMockRepo(t)

	now := time.Now().UTC()
	analysis := Analysis{
		ID:               "an-1",
		UserID:           "user-1",
		OriginalResponse: "pitch",
		Providers:        []string{"gpt4", "claude"},
		Status:           StatusPending,
		CreditsUsed:      20,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO users").
		WithArgs("user-1", credits.InitialGrant).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT credits_balance FROM users").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"credits_balance"}).AddRow(100))
	mock.ExpectExec("UPDATE users SET credits_balance").
		WithArgs(80, "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO transactions").
		WithArgs(sqlmock.AnyArg(), "user-1", credits.KindUsage, -20, "Analysis using gpt4, claude", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO analyses").
		WithArgs("an-1", "user-1", "pitch", nil, []byte(`["gpt4","claude"]`), StatusPending, 20, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := repo.CreateWithDebit(context.Background(), analysis, "Analysis using gpt4, claude"); err != nil {
		t.Fatalf("CreateWithDebit: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCreateWithDebitInsufficientBalanceRollsBack(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO users").
		WithArgs("user-1", credits.InitialGrant).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT credits_balance FROM users").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"credits_balance"}).AddRow(5))
	mock.ExpectRollback()

	analysis := Analysis{ID: "an-1", UserID: "user-1", OriginalResponse: "pitch",
		Providers: []string{"gpt4"}, Status: StatusPending, CreditsUsed: 10, CreatedAt: time.Now().UTC()}

	err := repo.CreateWithDebit(context.Background(), analysis, "Analysis using gpt4")
	if !errors.Is(err, credits.ErrInsufficientCredits) {
		t.Fatalf("expected ErrInsufficientCredits, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestMarkProcessingGuardsTerminalRows(t *testing.T) {
	repo, mock := newMockRepo(t)

	// Zero rows means the record was already completed or failed.
	mock.ExpectExec("UPDATE analyses SET status").
		WithArgs(StatusProcessing, sqlmock.AnyArg(), "an-1", StatusPending).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.MarkProcessing(context.Background(), "an-1"); !errors.Is(err, ErrNotProcessed) {
		t.Fatalf("expected ErrNotProcessed, got %v", err)
	}
}

func TestCompleteStoresVerdictOnlyFromProcessing(t *testing.T) {
	repo, mock := newMockRepo(t)

	verdict := FallbackVerdict()

	mock.ExpectExec("UPDATE analyses SET status").
		WithArgs(StatusCompleted, sqlmock.AnyArg(), sqlmock.AnyArg(), "an-1", StatusProcessing).
		WillReturnResult(sqlmock.NewResult(0, 1))
	if err := repo.Complete(context.Background(), "an-1", &verdict); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	mock.ExpectExec("UPDATE analyses SET status").
		WithArgs(StatusCompleted, sqlmock.AnyArg(), sqlmock.AnyArg(), "an-2", StatusProcessing).
		WillReturnResult(sqlmock.NewResult(0, 0))
	if err := repo.Complete(context.Background(), "an-2", &verdict); !errors.Is(err, ErrNotProcessed) {
		t.Fatalf("expected ErrNotProcessed, got %v", err)
	}
}

func TestMarkFailedSkipsTerminalRows(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("UPDATE analyses SET status").
		WithArgs(StatusFailed, sqlmock.AnyArg(), "an-1", StatusCompleted).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.MarkFailed(context.Background(), "an-1"); !errors.Is(err, ErrNotProcessed) {
		t.Fatalf("expected ErrNotProcessed, got %v", err)
	}
}

func TestGetForUserDecodesStoredVerdict(t *testing.T) {
	repo, mock := newMockRepo(t)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"id", "user_id", "original_response", "context", "models_used",
		"status", "results", "credits_used", "created_at", "updated_at",
	}).AddRow(
		"an-1", "user-1", "pitch", nil, []byte(`["gpt4"]`),
		StatusCompleted, `{"optimism_bias_score":70,"analysis":"meh"}`, 10, now, now,
	)
	mock.ExpectQuery("SELECT (.+) FROM analyses").
		WithArgs("an-1", "user-1").
		WillReturnRows(rows)

	got, err := repo.GetForUser(context.Background(), "user-1", "an-1")
	if err != nil {
		t.Fatalf("GetForUser: %v", err)
	}
	if got.Results == nil || *got.Results.OptimismBiasScore != 70 {
		t.Fatalf("results: %+v", got.Results)
	}
	if len(got.Providers) != 1 || got.Providers[0] != "gpt4" {
		t.Fatalf("providers: %v", got.Providers)
	}
}

func TestGetByIDNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM analyses").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	if _, err := repo.GetByID(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestClaimUserCountsMovedRows(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("UPDATE analyses SET user_id").
		WithArgs("user-new", sqlmock.AnyArg(), "guest-1").
		WillReturnResult(sqlmock.NewResult(0, 3))

	moved, err := repo.ClaimUser(context.Background(), "guest-1", "user-new")
	if err != nil {
		t.Fatalf("ClaimUser: %v", err)
	}
	if moved != 3 {
		t.Fatalf("moved: %d", moved)
	}
}
