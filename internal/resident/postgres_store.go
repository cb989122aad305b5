package resident

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// PostgresStore persists residents in PostgreSQL. The embedded request ledger,
// pending mirror and door flags travel as JSONB columns on the resident row,
// guarded by a version column so the row is the unit of optimistic locking.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore builds a Postgres-backed resident store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Create inserts a new resident row at version 1.
func (s *PostgresStore) Create(ctx context.Context, r Resident) error {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return fmt.Errorf("parse resident id: %w", err)
	}
	r.EnsureMaps()
	requests, pending, doors, err := marshalCollections(r)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `INSERT INTO residents
        (id, username, email, password_hash, version, payment_requests, pending_payments, door_status, created_at)
        VALUES ($1, $2, lower($3), $4, 1, $5, $6, $7, $8)`,
		id, r.Username, r.Email, r.PasswordHash, requests, pending, doors, r.CreatedAt.UTC())
	if isUniqueViolation(err) {
		return ErrEmailTaken
	}
	return err
}

// FindByID fetches a resident row by identifier.
func (s *PostgresStore) FindByID(ctx context.Context, id string) (Resident, error) {
	residentID, err := uuid.Parse(id)
	if err != nil {
		return Resident{}, ErrNotFound
	}
	row := s.db.QueryRow(ctx, `SELECT id, username, email, password_hash, version,
        payment_requests, pending_payments, door_status, created_at
        FROM residents WHERE id = $1`, residentID)
	return scanResident(row)
}

// FindByEmail fetches a resident row by email.
func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (Resident, error) {
	row := s.db.QueryRow(ctx, `SELECT id, username, email, password_hash, version,
        payment_requests, pending_payments, door_status, created_at
        FROM residents WHERE email = lower($1)`, email)
	return scanResident(row)
}

// Save commits the record only if the stored version still matches the one the
// caller read, then bumps it. A stale version yields ErrVersionConflict.
func (s *PostgresStore) Save(ctx context.Context, r Resident) (Resident, error) {
	residentID, err := uuid.Parse(r.ID)
	if err != nil {
		return Resident{}, ErrNotFound
	}
	r.EnsureMaps()
	requests, pending, doors, err := marshalCollections(r)
	if err != nil {
		return Resident{}, err
	}
	cmd, err := s.db.Exec(ctx, `UPDATE residents
        SET username = $1, email = lower($2), password_hash = $3,
            payment_requests = $4, pending_payments = $5, door_status = $6,
            version = version + 1
        WHERE id = $7 AND version = $8`,
		r.Username, r.Email, r.PasswordHash, requests, pending, doors, residentID, r.Version)
	if isUniqueViolation(err) {
		return Resident{}, ErrEmailTaken
	}
	if err != nil {
		return Resident{}, err
	}
	if cmd.RowsAffected() == 0 {
		var exists bool
		if err := s.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM residents WHERE id = $1)`, residentID).Scan(&exists); err != nil {
			return Resident{}, err
		}
		if !exists {
			return Resident{}, ErrNotFound
		}
		return Resident{}, ErrVersionConflict
	}
	r.Version++
	return r, nil
}

// Delete removes a resident row.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	residentID, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	cmd, err := s.db.Exec(ctx, `DELETE FROM residents WHERE id = $1`, residentID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func marshalCollections(r Resident) (requests, pending, doors []byte, err error) {
	if requests, err = json.Marshal(r.Requests); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal payment requests: %w", err)
	}
	if pending, err = json.Marshal(r.Pending); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal pending payments: %w", err)
	}
	if doors, err = json.Marshal(r.Doors); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal door status: %w", err)
	}
	return requests, pending, doors, nil
}

func scanResident(row pgx.Row) (Resident, error) {
	var (
		r         Resident
		id        uuid.UUID
		createdAt time.Time
		requests  []byte
		pending   []byte
		doors     []byte
	)
	err := row.Scan(&id, &r.Username, &r.Email, &r.PasswordHash, &r.Version,
		&requests, &pending, &doors, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Resident{}, ErrNotFound
	}
	if err != nil {
		return Resident{}, err
	}
	r.ID = id.String()
	r.CreatedAt = createdAt.UTC()
	if err := json.Unmarshal(requests, &r.Requests); err != nil {
		return Resident{}, fmt.Errorf("decode payment requests: %w", err)
	}
	if err := json.Unmarshal(pending, &r.Pending); err != nil {
		return Resident{}, fmt.Errorf("decode pending payments: %w", err)
	}
	if err := json.Unmarshal(doors, &r.Doors); err != nil {
		return Resident{}, fmt.Errorf("decode door status: %w", err)
	}
	r.EnsureMaps()
	return r, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
