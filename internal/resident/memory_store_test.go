package resident

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

func seedResident(t *testing.T, store Store, name string) Resident {
	t.Helper()
	r := Resident{ID: uuid.NewString(), Username: name, Email: name + "@flat.example", Version: 1}
	r.EnsureMaps()
	if err := store.Create(context.Background(), r); err != nil {
		t.Fatalf("create %s: %v", name, err)
	}
	return r
}

func TestMemoryStoreRejectsStaleSave(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	seeded := seedResident(t, store, "alice")

	first, err := store.FindByID(ctx, seeded.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	second, _ := store.FindByID(ctx, seeded.ID)

	first.Username = "alice2"
	if _, err := store.Save(ctx, first); err != nil {
		t.Fatalf("save first copy: %v", err)
	}

	second.Username = "alice3"
	if _, err := store.Save(ctx, second); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("stale save must conflict, got %v", err)
	}
}

func TestMemoryStoreSaveBumpsVersion(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	seeded := seedResident(t, store, "alice")

	r, _ := store.FindByID(ctx, seeded.ID)
	saved, err := store.Save(ctx, r)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if saved.Version != r.Version+1 {
		t.Fatalf("expected version %d, got %d", r.Version+1, saved.Version)
	}
}

func TestMemoryStoreUniqueEmail(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	seedResident(t, store, "alice")

	dup := Resident{ID: uuid.NewString(), Username: "other", Email: "Alice@flat.example", Version: 1}
	if err := store.Create(ctx, dup); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected email conflict, got %v", err)
	}
}

func TestMemoryStoreIsolatesCallerState(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	seeded := seedResident(t, store, "alice")

	r, _ := store.FindByID(ctx, seeded.ID)
	r.Requests["rogue"] = PaymentRequest{ID: "rogue"}

	fresh, _ := store.FindByID(ctx, seeded.ID)
	if len(fresh.Requests) != 0 {
		t.Fatal("mutating a returned record must not leak into the store")
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	seeded := seedResident(t, store, "alice")

	if err := store.Delete(ctx, seeded.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.FindByID(ctx, seeded.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := store.FindByEmail(ctx, seeded.Email); !errors.Is(err, ErrNotFound) {
		t.Fatalf("email index must be cleaned up, got %v", err)
	}
}
