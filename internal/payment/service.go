// Package payment owns the payment-request lifecycle: creation of a request on
// the requester's ledger together with its mirror on the recipient, the
// pending -> waiting_for_approval -> paid transitions, and the cascading
// cleanup that keeps the two records consistent. Ledger and mirror live on two
// independently stored resident records; every operation writes the
// authoritative (requester) side first and then repairs the mirror side with
// bounded retries, so a failure between the two is reported rather than left
// silent.
package payment

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/doorpay/doorpay/internal/doors"
	"github.com/doorpay/doorpay/internal/notification"
	"github.com/doorpay/doorpay/internal/resident"
)

var (
	// ErrRequesterNotFound indicates the requester id does not resolve.
	ErrRequesterNotFound = errors.New("requester not found")
	// ErrRecipientNotFound indicates the recipient id does not resolve.
	ErrRecipientNotFound = errors.New("recipient not found")
	// ErrRequestNotFound indicates no request matches the operation's target.
	ErrRequestNotFound = errors.New("payment request not found")
	// ErrMirrorDrift indicates the recipient's mirror no longer matches the
	// requester's ledger. The drift is surfaced, never auto-repaired.
	ErrMirrorDrift = errors.New("pending mirror missing for request")
	// ErrDuplicateRequest indicates an active request already occupies the
	// (requester, recipient, door) slot.
	ErrDuplicateRequest = errors.New("active request already exists for this door")
	// ErrInvalidState indicates the request's status does not permit the
	// transition, e.g. finalizing a request that was never acknowledged.
	ErrInvalidState = errors.New("request is not awaiting approval")
	// ErrAmountInvalid indicates a non-positive amount.
	ErrAmountInvalid = errors.New("amount must be positive")
	// ErrDoorInvalid indicates a door index outside the configured range.
	ErrDoorInvalid = errors.New("door out of range")
)

// saveAttempts bounds optimistic-conflict retries per record write.
const saveAttempts = 3

// Service implements the payment-request lifecycle over the resident store.
type Service struct {
	store     resident.Store
	projector *doors.Projector
	notifier  notification.Notifier
}

// NewService constructs the lifecycle service.
func NewService(store resident.Store, projector *doors.Projector, notifier notification.Notifier) *Service {
	return &Service{store: store, projector: projector, notifier: notifier}
}

// CreateInput captures the fields of a new payment request.
type CreateInput struct {
	RequesterID string
	RecipientID string
	Amount      int64
	Door        int
}

// CreateRequest appends a pending request to the requester's ledger and
// mirrors it onto the recipient. The duplicate check and the append run inside
// one optimistic-write cycle on the requester record, so two concurrent
// creations for the same (recipient, door) slot cannot both commit.
func (s *Service) CreateRequest(ctx context.Context, in CreateInput) (string, error) {
	if in.Amount <= 0 {
		return "", ErrAmountInvalid
	}
	if !s.projector.ValidDoor(in.Door) {
		return "", fmt.Errorf("%w: %d", ErrDoorInvalid, in.Door)
	}

	// Both parties must resolve before anything is written.
	if _, err := s.store.FindByID(ctx, in.RecipientID); err != nil {
		if errors.Is(err, resident.ErrNotFound) {
			return "", ErrRecipientNotFound
		}
		return "", err
	}

	requestID := uuid.NewString()
	now := time.Now().UTC()

	err := s.updateResident(ctx, in.RequesterID, func(r *resident.Resident) error {
		if _, exists := r.ActiveRequestFor(in.RecipientID, in.Door); exists {
			return ErrDuplicateRequest
		}
		r.Requests[requestID] = resident.PaymentRequest{
			ID:          requestID,
			RecipientID: in.RecipientID,
			Amount:      in.Amount,
			Door:        in.Door,
			Status:      resident.StatusPending,
			CreatedAt:   now,
		}
		return nil
	})
	if errors.Is(err, resident.ErrNotFound) {
		return "", ErrRequesterNotFound
	}
	if err != nil {
		return "", err
	}

	// Mirror side. The write is idempotent so a retry after a version conflict
	// or a crash re-applies cleanly.
	key := resident.PendingKey{RequesterID: in.RequesterID, Door: in.Door}
	err = s.updateResident(ctx, in.RecipientID, func(r *resident.Resident) error {
		if _, exists := r.Pending[key]; exists {
			return nil
		}
		r.Pending[key] = resident.PendingPayment{
			RequesterID: in.RequesterID,
			Amount:      in.Amount,
			Door:        in.Door,
			CreatedAt:   now,
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ledger committed but mirror write failed: %w", err)
	}

	s.notify(ctx, notification.KindRequestCreated, in.RecipientID,
		fmt.Sprintf("resident %s requests %d for door %d", in.RequesterID, in.Amount, in.Door))
	return requestID, nil
}

// Acknowledge records the recipient's intent to pay: the oldest pending
// request from requester to recipient moves to waiting_for_approval. The
// mirror stays in place until the request is paid.
func (s *Service) Acknowledge(ctx context.Context, requesterID, recipientID string) error {
	requester, err := s.store.FindByID(ctx, requesterID)
	if err != nil {
		if errors.Is(err, resident.ErrNotFound) {
			return ErrRequesterNotFound
		}
		return err
	}
	req, ok := requester.OldestRequest(recipientID, resident.StatusPending)
	if !ok {
		return ErrRequestNotFound
	}

	recipient, err := s.store.FindByID(ctx, recipientID)
	if err != nil {
		if errors.Is(err, resident.ErrNotFound) {
			return ErrRecipientNotFound
		}
		return err
	}
	recipient.EnsureMaps()
	if _, ok := recipient.Pending[resident.PendingKey{RequesterID: requesterID, Door: req.Door}]; !ok {
		// The two records disagree: the ledger holds a pending request the
		// recipient never saw. Surfacing beats silently repairing.
		return fmt.Errorf("%w: requester %s door %d", ErrMirrorDrift, requesterID, req.Door)
	}

	err = s.updateResident(ctx, requesterID, func(r *resident.Resident) error {
		current, exists := r.Requests[req.ID]
		if !exists || current.Status != resident.StatusPending {
			return ErrRequestNotFound
		}
		current.Status = resident.StatusAwaitingApproval
		r.Requests[req.ID] = current
		return nil
	})
	if errors.Is(err, resident.ErrNotFound) {
		return ErrRequesterNotFound
	}
	if err != nil {
		return err
	}

	s.notify(ctx, notification.KindRequestAcknowledged, requesterID,
		fmt.Sprintf("resident %s will pay for door %d", recipientID, req.Door))
	return nil
}

// Finalize marks the oldest acknowledged request from requester to recipient
// as paid, recomputes the requester's door flags from the full paid ledger,
// and purges the recipient's mirror entry. A request still pending cannot be
// finalized; the acknowledgment step is mandatory.
func (s *Service) Finalize(ctx context.Context, requesterID, recipientID string) (map[int]bool, error) {
	var (
		door      int
		doorState map[int]bool
	)
	err := s.updateResident(ctx, requesterID, func(r *resident.Resident) error {
		req, ok := r.OldestRequest(recipientID, resident.StatusAwaitingApproval)
		if !ok {
			if _, pending := r.OldestRequest(recipientID, resident.StatusPending); pending {
				return ErrInvalidState
			}
			return ErrRequestNotFound
		}
		req.Status = resident.StatusPaid
		r.Requests[req.ID] = req
		door = req.Door
		// A full rebuild rather than a single-door pass: flags earned under a
		// lower threshold open at the next payment, whichever door it was for.
		s.projector.Rebuild(r)
		doorState = make(map[int]bool, len(r.Doors))
		for d, open := range r.Doors {
			doorState[d] = open
		}
		return nil
	})
	if errors.Is(err, resident.ErrNotFound) {
		return nil, ErrRequesterNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := s.purgeMirror(ctx, recipientID, resident.PendingKey{RequesterID: requesterID, Door: door}); err != nil {
		return nil, fmt.Errorf("request paid but mirror purge failed: %w", err)
	}

	s.notify(ctx, notification.KindRequestFinalized, recipientID,
		fmt.Sprintf("payment for door %d confirmed by %s", door, requesterID))
	return doorState, nil
}

// DeleteRequest removes a request from the requester's ledger regardless of
// status and purges the matching mirror entry so the two records cannot drift.
func (s *Service) DeleteRequest(ctx context.Context, requesterID, requestID string) error {
	var removed resident.PaymentRequest
	err := s.updateResident(ctx, requesterID, func(r *resident.Resident) error {
		req, ok := r.Requests[requestID]
		if !ok {
			return ErrRequestNotFound
		}
		removed = req
		delete(r.Requests, requestID)
		return nil
	})
	if errors.Is(err, resident.ErrNotFound) {
		return ErrRequesterNotFound
	}
	if err != nil {
		return err
	}

	// A paid request has no mirror left; the purge is a no-op then, and also
	// when the recipient account is already gone.
	key := resident.PendingKey{RequesterID: requesterID, Door: removed.Door}
	if err := s.purgeMirror(ctx, removed.RecipientID, key); err != nil {
		return fmt.Errorf("request deleted but mirror purge failed: %w", err)
	}
	return nil
}

// OutgoingRequest is a ledger entry with the recipient resolved for display.
type OutgoingRequest struct {
	resident.PaymentRequest
	Recipient *Party `json:"recipient,omitempty"`
}

// PendingEntry is a mirror entry with the requester resolved for display.
type PendingEntry struct {
	resident.PendingPayment
	Requester *Party `json:"requester,omitempty"`
}

// Party is the minimal identity attached to list responses.
type Party struct {
	ID       string       `json:"id"`
	Username string       `json:"username"`
	Email    string       `json:"email"`
	Doors    map[int]bool `json:"door_status"`
}

// ListOutgoing returns the requests the user initiated, oldest first, each
// with the recipient resolved. A recipient that no longer exists leaves the
// entry in place with no party attached.
func (s *Service) ListOutgoing(ctx context.Context, userID string) ([]OutgoingRequest, error) {
	r, err := s.store.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, resident.ErrNotFound) {
			return nil, ErrRequesterNotFound
		}
		return nil, err
	}
	r.EnsureMaps()

	out := make([]OutgoingRequest, 0, len(r.Requests))
	parties := make(map[string]*Party)
	for _, req := range r.Requests {
		out = append(out, OutgoingRequest{PaymentRequest: req, Recipient: s.resolveParty(ctx, parties, req.RecipientID)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// ListPending returns the mirror entries awaiting the user's action, oldest
// first, each with the requester resolved.
func (s *Service) ListPending(ctx context.Context, userID string) ([]PendingEntry, error) {
	r, err := s.store.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, resident.ErrNotFound) {
			return nil, ErrRecipientNotFound
		}
		return nil, err
	}
	r.EnsureMaps()

	out := make([]PendingEntry, 0, len(r.Pending))
	parties := make(map[string]*Party)
	for _, p := range r.Pending {
		out = append(out, PendingEntry{PendingPayment: p, Requester: s.resolveParty(ctx, parties, p.RequesterID)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].RequesterID < out[j].RequesterID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Service) resolveParty(ctx context.Context, cache map[string]*Party, id string) *Party {
	if p, ok := cache[id]; ok {
		return p
	}
	r, err := s.store.FindByID(ctx, id)
	if err != nil {
		cache[id] = nil
		return nil
	}
	r.EnsureMaps()
	p := &Party{ID: r.ID, Username: r.Username, Email: r.Email, Doors: r.Doors}
	cache[id] = p
	return p
}

// updateResident runs a read-modify-write cycle against one record, retrying
// a bounded number of times when a concurrent write bumps the version. The
// mutate callback re-runs on every attempt against fresh state, so its
// precondition checks stay valid.
func (s *Service) updateResident(ctx context.Context, id string, mutate func(*resident.Resident) error) error {
	var lastErr error
	for attempt := 0; attempt < saveAttempts; attempt++ {
		r, err := s.store.FindByID(ctx, id)
		if err != nil {
			return err
		}
		r.EnsureMaps()
		if err := mutate(&r); err != nil {
			return err
		}
		if _, err := s.store.Save(ctx, r); err != nil {
			if errors.Is(err, resident.ErrVersionConflict) {
				lastErr = err
				continue
			}
			return err
		}
		return nil
	}
	return fmt.Errorf("update resident %s: retries exhausted: %w", id, lastErr)
}

// purgeMirror removes a pending entry from the recipient's record. Absence of
// the entry, or of the whole recipient record, counts as success so retries
// and cascades stay idempotent.
func (s *Service) purgeMirror(ctx context.Context, recipientID string, key resident.PendingKey) error {
	err := s.updateResident(ctx, recipientID, func(r *resident.Resident) error {
		delete(r.Pending, key)
		return nil
	})
	if errors.Is(err, resident.ErrNotFound) {
		return nil
	}
	return err
}

func (s *Service) notify(ctx context.Context, kind, destination, body string) {
	if s.notifier == nil {
		return
	}
	_ = s.notifier.Send(ctx, notification.Message{Kind: kind, Destination: destination, Body: body})
}
