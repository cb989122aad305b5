package resident

import (
	"encoding/json"
	"testing"
	"time"
)

func TestPendingKeyRoundTrip(t *testing.T) {
	m := map[PendingKey]PendingPayment{
		{RequesterID: "user-1", Door: 12}: {RequesterID: "user-1", Door: 12, Amount: 40},
	}

	payload, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded map[PendingKey]PendingPayment
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	got, ok := decoded[PendingKey{RequesterID: "user-1", Door: 12}]
	if !ok || got.Amount != 40 {
		t.Fatalf("key did not survive the round trip: %+v", decoded)
	}
}

func TestOldestRequestIsDeterministic(t *testing.T) {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	r := Resident{}
	r.EnsureMaps()
	r.Requests["b"] = PaymentRequest{ID: "b", RecipientID: "x", Status: StatusPending, CreatedAt: base}
	r.Requests["a"] = PaymentRequest{ID: "a", RecipientID: "x", Status: StatusPending, CreatedAt: base}
	r.Requests["c"] = PaymentRequest{ID: "c", RecipientID: "x", Status: StatusPending, CreatedAt: base.Add(-time.Hour)}

	req, ok := r.OldestRequest("x", StatusPending)
	if !ok || req.ID != "c" {
		t.Fatalf("expected oldest request c, got %+v", req)
	}

	delete(r.Requests, "c")
	req, _ = r.OldestRequest("x", StatusPending)
	if req.ID != "a" {
		t.Fatalf("equal timestamps must tie-break on id, got %s", req.ID)
	}
}

func TestActiveRequestFor(t *testing.T) {
	r := Resident{}
	r.EnsureMaps()
	r.Requests["p"] = PaymentRequest{ID: "p", RecipientID: "x", Door: 2, Status: StatusPaid}
	if _, found := r.ActiveRequestFor("x", 2); found {
		t.Fatal("paid requests do not occupy the slot")
	}
	r.Requests["w"] = PaymentRequest{ID: "w", RecipientID: "x", Door: 2, Status: StatusAwaitingApproval}
	if _, found := r.ActiveRequestFor("x", 2); !found {
		t.Fatal("waiting_for_approval occupies the slot")
	}
}
