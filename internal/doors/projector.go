// Package doors derives door-unlock flags from a resident's paid request
// history. Unlocking is monotonic: the projector only ever raises flags, and
// the paid ledger is never trimmed, so the flags are recomputable at any time.
package doors

import "github.com/doorpay/doorpay/internal/resident"

const (
	defaultThreshold = 8
	defaultDoorCount = 14
)

// Projector computes door-unlock state. A door opens once the resident has
// accumulated Threshold paid requests tagged with that door.
type Projector struct {
	threshold int
	doorCount int
}

// NewProjector builds a projector. Non-positive arguments fall back to the
// defaults (8 payments per door, doors 1..14).
func NewProjector(threshold, doorCount int) *Projector {
	if threshold <= 0 {
		threshold = defaultThreshold
	}
	if doorCount <= 0 {
		doorCount = defaultDoorCount
	}
	return &Projector{threshold: threshold, doorCount: doorCount}
}

// ValidDoor reports whether the door index is inside the configured range.
func (p *Projector) ValidDoor(door int) bool {
	return door >= 1 && door <= p.doorCount
}

// Apply recounts paid requests for a single door and raises its flag when the
// threshold is met. A flag already raised stays raised regardless of the
// count. Returns the door's state after the pass.
func (p *Projector) Apply(r *resident.Resident, door int) bool {
	r.EnsureMaps()
	if r.Doors[door] {
		return true
	}
	if r.PaidCount(door) >= p.threshold {
		r.Doors[door] = true
	}
	return r.Doors[door]
}

// Rebuild recomputes every door from the paid ledger. It never lowers a flag,
// so running it with a raised threshold leaves earlier unlocks in place.
func (p *Projector) Rebuild(r *resident.Resident) {
	for door := 1; door <= p.doorCount; door++ {
		p.Apply(r, door)
	}
}
