package resident

import (
	"context"
	"errors"
)

var (
	// ErrNotFound indicates the referenced resident does not exist.
	ErrNotFound = errors.New("resident not found")

	// ErrEmailTaken indicates another resident already registered the email.
	ErrEmailTaken = errors.New("email already registered")

	// ErrVersionConflict indicates a Save raced with a concurrent write to the
	// same record. Callers re-read and retry.
	ErrVersionConflict = errors.New("resident version conflict")
)

// Store persists resident records. The whole record is the unit of optimistic
// concurrency: Save only commits when the stored version matches the version
// the caller read, and bumps it on success.
type Store interface {
	Create(ctx context.Context, r Resident) error
	FindByID(ctx context.Context, id string) (Resident, error)
	FindByEmail(ctx context.Context, email string) (Resident, error)
	Save(ctx context.Context, r Resident) (Resident, error)
	Delete(ctx context.Context, id string) error
}
