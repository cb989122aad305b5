package resident

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestRegisterAndLookup(t *testing.T) {
	svc := NewService(NewMemoryStore())
	ctx := context.Background()

	r, err := svc.Register(ctx, RegisterInput{Username: "alice", Email: "Alice@flat.example", Password: "hunter2hunter2"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if r.Email != "alice@flat.example" {
		t.Fatalf("email must be normalized, got %s", r.Email)
	}
	if err := bcrypt.CompareHashAndPassword(r.PasswordHash, []byte("hunter2hunter2")); err != nil {
		t.Fatalf("password hash mismatch: %v", err)
	}
	if len(r.Doors) != 0 {
		t.Fatal("a new resident starts with every door locked")
	}

	found, err := svc.GetByEmail(ctx, "alice@flat.example")
	if err != nil || found.ID != r.ID {
		t.Fatalf("lookup by email: %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := NewService(NewMemoryStore())
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterInput{Username: "alice", Email: "not-an-email", Password: "hunter2hunter2"}); err == nil {
		t.Fatal("expected email validation error")
	}
	if _, err := svc.Register(ctx, RegisterInput{Username: "alice", Email: "a@b.c", Password: "short"}); err == nil {
		t.Fatal("expected password validation error")
	}
	if _, err := svc.Register(ctx, RegisterInput{Username: "", Email: "a@b.c", Password: "hunter2hunter2"}); err == nil {
		t.Fatal("expected username validation error")
	}
}

func TestUpdateProfile(t *testing.T) {
	svc := NewService(NewMemoryStore())
	ctx := context.Background()

	r, err := svc.Register(ctx, RegisterInput{Username: "alice", Email: "alice@flat.example", Password: "hunter2hunter2"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	updated, err := svc.Update(ctx, r.ID, UpdateInput{Username: "alice-renamed"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Username != "alice-renamed" || updated.Email != "alice@flat.example" {
		t.Fatalf("unexpected profile after update: %+v", updated)
	}

	if _, err := svc.Update(ctx, "missing-id", UpdateInput{Username: "x"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
