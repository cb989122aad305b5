package resident

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// RequestStatus tracks where a payment request sits in its lifecycle.
type RequestStatus string

const (
	// StatusPending means the recipient has not yet reacted to the request.
	StatusPending RequestStatus = "pending"
	// StatusAwaitingApproval means the recipient agreed to pay and the
	// requester still has to confirm the money arrived.
	StatusAwaitingApproval RequestStatus = "waiting_for_approval"
	// StatusPaid is terminal.
	StatusPaid RequestStatus = "paid"
)

// Active reports whether the status still occupies the (recipient, door) slot.
// Only one active request per slot is allowed.
func (s RequestStatus) Active() bool {
	return s == StatusPending || s == StatusAwaitingApproval
}

// PaymentRequest is the authoritative record of a single cost-share request.
// It lives on the requester's record; the recipient only sees the mirror.
type PaymentRequest struct {
	ID          string        `json:"id"`
	RecipientID string        `json:"recipient_id"`
	Amount      int64         `json:"amount"`
	Door        int           `json:"door"`
	Status      RequestStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
}

// PendingPayment is the recipient-side mirror of a request that still awaits
// the recipient's action. Its existence is its state: it is created together
// with the request and removed once the request is paid or deleted.
type PendingPayment struct {
	RequesterID string    `json:"requester_id"`
	Amount      int64     `json:"amount"`
	Door        int       `json:"door"`
	CreatedAt   time.Time `json:"created_at"`
}

// PendingKey addresses a mirror entry. One requester can hold at most one
// active request per door against a given recipient, so (requester, door) is
// unique within a recipient's mirror.
type PendingKey struct {
	RequesterID string
	Door        int
}

// MarshalText encodes the key as "<requester>:<door>" so the mirror map can be
// serialized as a JSON object.
func (k PendingKey) MarshalText() ([]byte, error) {
	return []byte(fmt.Sprintf("%s:%d", k.RequesterID, k.Door)), nil
}

// UnmarshalText parses the "<requester>:<door>" form.
func (k *PendingKey) UnmarshalText(text []byte) error {
	s := string(text)
	i := strings.LastIndexByte(s, ':')
	if i < 0 {
		return fmt.Errorf("invalid pending key %q", s)
	}
	door, err := strconv.Atoi(s[i+1:])
	if err != nil {
		return fmt.Errorf("invalid pending key %q: %w", s, err)
	}
	k.RequesterID = s[:i]
	k.Door = door
	return nil
}

// Resident is a registered member of the shared unit. The record carries the
// requests the resident initiated, the mirror of requests waiting on them, and
// the derived door-unlock flags. The record as a whole is the unit of
// optimistic concurrency: Save rejects stale versions.
type Resident struct {
	ID           string
	Username     string
	Email        string
	PasswordHash []byte
	Version      int64
	Requests     map[string]PaymentRequest
	Pending      map[PendingKey]PendingPayment
	Doors        map[int]bool
	CreatedAt    time.Time
}

// EnsureMaps lazily initializes the embedded collections so callers can mutate
// a freshly loaded or zero-value record.
func (r *Resident) EnsureMaps() {
	if r.Requests == nil {
		r.Requests = make(map[string]PaymentRequest)
	}
	if r.Pending == nil {
		r.Pending = make(map[PendingKey]PendingPayment)
	}
	if r.Doors == nil {
		r.Doors = make(map[int]bool)
	}
}

// ActiveRequestFor returns the request occupying the (recipient, door) slot,
// if any. Duplicate detection for CreateRequest is this lookup.
func (r *Resident) ActiveRequestFor(recipientID string, door int) (PaymentRequest, bool) {
	for _, req := range r.Requests {
		if req.RecipientID == recipientID && req.Door == door && req.Status.Active() {
			return req, true
		}
	}
	return PaymentRequest{}, false
}

// OldestRequest returns the oldest request toward the recipient in the given
// status. Creation time breaks first, request id second, so the choice is
// deterministic even for requests created in the same instant.
func (r *Resident) OldestRequest(recipientID string, status RequestStatus) (PaymentRequest, bool) {
	var (
		best  PaymentRequest
		found bool
	)
	for _, req := range r.Requests {
		if req.RecipientID != recipientID || req.Status != status {
			continue
		}
		if !found || req.CreatedAt.Before(best.CreatedAt) ||
			(req.CreatedAt.Equal(best.CreatedAt) && req.ID < best.ID) {
			best = req
			found = true
		}
	}
	return best, found
}

// PaidCount counts paid requests for one door. The paid history is never
// removed by the unlock projector, so this is always recomputable.
func (r *Resident) PaidCount(door int) int {
	n := 0
	for _, req := range r.Requests {
		if req.Door == door && req.Status == StatusPaid {
			n++
		}
	}
	return n
}

// Clone returns a deep copy so in-memory storage never aliases caller state.
func (r Resident) Clone() Resident {
	out := r
	out.PasswordHash = append([]byte(nil), r.PasswordHash...)
	if r.Requests != nil {
		out.Requests = make(map[string]PaymentRequest, len(r.Requests))
		for id, req := range r.Requests {
			out.Requests[id] = req
		}
	}
	if r.Pending != nil {
		out.Pending = make(map[PendingKey]PendingPayment, len(r.Pending))
		for k, p := range r.Pending {
			out.Pending[k] = p
		}
	}
	if r.Doors != nil {
		out.Doors = make(map[int]bool, len(r.Doors))
		for d, open := range r.Doors {
			out.Doors[d] = open
		}
	}
	return out
}
