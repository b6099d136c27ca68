package users

import (
	"context"
	"errors"
	"testing"

	"kritic-backend/internal/credits"
)

func TestUpsertFromAuthSeedsGrantOnce(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	user := User{ID: "user-1", Email: "a@example.com", FullName: "Ada"}
	if err := svc.UpsertFromAuth(ctx, user); err != nil {
		t.Fatalf("UpsertFromAuth: %v", err)
	}

	got, err := svc.GetByID(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.CreditsBalance != credits.InitialGrant {
		t.Fatalf("balance: %d", got.CreditsBalance)
	}
	created := got.CreatedAt

	// A re-login must not reset the grant or the creation time.
	user.FullName = "Ada Lovelace"
	if err := svc.UpsertFromAuth(ctx, user); err != nil {
		t.Fatalf("second UpsertFromAuth: %v", err)
	}
	got, _ = svc.GetByID(ctx, "user-1")
	if got.CreditsBalance != credits.InitialGrant {
		t.Fatalf("balance reset on re-login: %d", got.CreditsBalance)
	}
	if !got.CreatedAt.Equal(created) {
		t.Fatalf("created_at changed on re-login")
	}
	if got.FullName != "Ada Lovelace" {
		t.Fatalf("profile not refreshed: %q", got.FullName)
	}
}

func TestUpsertFromAuthValidation(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	ctx := context.Background()

	if err := svc.UpsertFromAuth(ctx, User{Email: "a@example.com"}); err == nil {
		t.Fatalf("expected error for missing id")
	}
	if err := svc.UpsertFromAuth(ctx, User{ID: "user-1"}); err == nil {
		t.Fatalf("expected error for missing email")
	}
}

func TestGetByIDNotFound(t *testing.T) {
	svc := NewService(NewMemoryRepo())

	if _, err := svc.GetByID(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateProfileKeepsUnsetFields(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	if err := svc.UpsertFromAuth(ctx, User{ID: "user-1", Email: "a@example.com", FullName: "Ada", PictureURL: "http://p/1"}); err != nil {
		t.Fatalf("UpsertFromAuth: %v", err)
	}

	got, err := svc.UpdateProfile(ctx, "user-1", "Grace", "")
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if got.FullName != "Grace" {
		t.Fatalf("full name: %q", got.FullName)
	}
	if got.PictureURL != "http://p/1" {
		t.Fatalf("empty picture must not clear the stored one: %q", got.PictureURL)
	}
}
