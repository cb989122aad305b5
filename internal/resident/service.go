package resident

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLen = 8

// ErrInvalidProfile indicates missing or malformed registration fields.
var ErrInvalidProfile = errors.New("invalid profile")

// Service manages resident records: registration, profile updates, lookups.
type Service struct {
	store Store
}

// NewService creates a resident service over the given store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// RegisterInput carries the fields needed to create a resident.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// Register creates a resident with a hashed password and all doors locked.
func (s *Service) Register(ctx context.Context, in RegisterInput) (Resident, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	if in.Username == "" {
		return Resident{}, fmt.Errorf("%w: username is required", ErrInvalidProfile)
	}
	if in.Email == "" || !strings.Contains(in.Email, "@") {
		return Resident{}, fmt.Errorf("%w: a valid email is required", ErrInvalidProfile)
	}
	if len(in.Password) < minPasswordLen {
		return Resident{}, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidProfile, minPasswordLen)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return Resident{}, err
	}

	r := Resident{
		ID:           uuid.NewString(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Version:      1,
		CreatedAt:    time.Now().UTC(),
	}
	r.EnsureMaps()

	if err := s.store.Create(ctx, r); err != nil {
		return Resident{}, err
	}
	return r, nil
}

// Get fetches a resident by id.
func (s *Service) Get(ctx context.Context, id string) (Resident, error) {
	return s.store.FindByID(ctx, id)
}

// GetByEmail fetches a resident by email.
func (s *Service) GetByEmail(ctx context.Context, email string) (Resident, error) {
	return s.store.FindByEmail(ctx, email)
}

// UpdateInput carries optional profile fields; empty values are left untouched.
type UpdateInput struct {
	Username string
	Email    string
	Password string
}

// Update patches the provided profile fields, re-hashing the password when one
// is supplied. Retries once on a concurrent write to the same record.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (Resident, error) {
	for attempt := 0; ; attempt++ {
		r, err := s.store.FindByID(ctx, id)
		if err != nil {
			return Resident{}, err
		}
		if v := strings.TrimSpace(in.Username); v != "" {
			r.Username = v
		}
		if v := strings.TrimSpace(strings.ToLower(in.Email)); v != "" {
			if !strings.Contains(v, "@") {
				return Resident{}, fmt.Errorf("%w: a valid email is required", ErrInvalidProfile)
			}
			r.Email = v
		}
		if in.Password != "" {
			if len(in.Password) < minPasswordLen {
				return Resident{}, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidProfile, minPasswordLen)
			}
			hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
			if err != nil {
				return Resident{}, err
			}
			r.PasswordHash = hash
		}
		saved, err := s.store.Save(ctx, r)
		if errors.Is(err, ErrVersionConflict) && attempt < 2 {
			continue
		}
		if err != nil {
			return Resident{}, err
		}
		return saved, nil
	}
}

// Remove deletes the resident record.
func (s *Service) Remove(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}

// DoorStatus returns the resident's current door-unlock flags.
func (s *Service) DoorStatus(ctx context.Context, id string) (map[int]bool, error) {
	r, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.EnsureMaps()
	return r.Doors, nil
}
