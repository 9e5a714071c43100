package store

import (
	"context"
	"errors"
	"testing"

	"github.com/erazemk/najdeno/internal/db"
	"github.com/erazemk/najdeno/internal/model"
)

func TestCreateAndGetItem(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	owner := newUser(t, database, "owner")

	item, err := CreateItem(ctx, database, "Wallet", "brown leather", "accessories", "main station", model.ItemStatusLost, owner.ID)
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	if item.Title != "Wallet" {
		t.Errorf("expected title 'Wallet', got %q", item.Title)
	}
	if item.Status != model.ItemStatusLost {
		t.Errorf("expected status 'lost', got %q", item.Status)
	}
	if item.CreatedBy != owner.ID {
		t.Errorf("expected created_by %d, got %d", owner.ID, item.CreatedBy)
	}

	missing, err := GetItem(ctx, database, 9999)
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for missing item")
	}
}

func TestCreateItemRejectsBadInitialStatus(t *testing.T) {
	database := db.NewTestDB(t)
	owner := newUser(t, database, "owner")

	for _, status := range []string{model.ItemStatusPending, model.ItemStatusClaimed, model.ItemStatusReturned, "bogus"} {
		_, err := CreateItem(context.Background(), database, "Keys", "", "keys", "park", status, owner.ID)
		if !errors.Is(err, model.ErrInvalidTransition) {
			t.Errorf("status %q: expected ErrInvalidTransition, got %v", status, err)
		}
	}
}

func TestListItemsFiltered(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	owner := newUser(t, database, "owner")
	CreateItem(ctx, database, "Wallet", "", "accessories", "station", model.ItemStatusLost, owner.ID)
	CreateItem(ctx, database, "Phone", "", "electronics", "park", model.ItemStatusFound, owner.ID)

	all, _ := ListItems(ctx, database, "", "")
	if len(all) != 2 {
		t.Errorf("expected 2 items, got %d", len(all))
	}

	lost, _ := ListItems(ctx, database, model.ItemStatusLost, "")
	if len(lost) != 1 || lost[0].Title != "Wallet" {
		t.Errorf("expected only the lost wallet, got %v", lost)
	}

	electronics, _ := ListItems(ctx, database, "", "electronics")
	if len(electronics) != 1 || electronics[0].Title != "Phone" {
		t.Errorf("expected only the phone, got %v", electronics)
	}
}

func TestAdvanceItemStatusChain(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	owner := newUser(t, database, "owner")
	item, _ := CreateItem(ctx, database, "Wallet", "", "accessories", "station", model.ItemStatusLost, owner.ID)

	for _, next := range []string{model.ItemStatusFound, model.ItemStatusClaimed, model.ItemStatusReturned} {
		updated, err := AdvanceItemStatus(ctx, database, item.ID, owner.ID, next)
		if err != nil {
			t.Fatalf("advance to %q: %v", next, err)
		}
		if updated.Status != next {
			t.Errorf("expected status %q, got %q", next, updated.Status)
		}
	}

	// The chain ends at returned.
	_, err := AdvanceItemStatus(ctx, database, item.ID, owner.ID, model.ItemStatusLost)
	if !errors.Is(err, model.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition past end of chain, got %v", err)
	}
}

func TestAdvanceItemStatusSkippingRejected(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	owner := newUser(t, database, "owner")
	item, _ := CreateItem(ctx, database, "Wallet", "", "accessories", "station", model.ItemStatusLost, owner.ID)

	// lost -> claimed skips a step.
	_, err := AdvanceItemStatus(ctx, database, item.ID, owner.ID, model.ItemStatusClaimed)
	if !errors.Is(err, model.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition for skipped step, got %v", err)
	}
}

func TestAdvanceItemStatusNonOwnerForbidden(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	owner := newUser(t, database, "owner")
	other := newUser(t, database, "other")
	item, _ := CreateItem(ctx, database, "Wallet", "", "accessories", "station", model.ItemStatusLost, owner.ID)

	_, err := AdvanceItemStatus(ctx, database, item.ID, other.ID, model.ItemStatusFound)
	if !errors.Is(err, model.ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
}

func TestAdvanceItemStatusBlockedWhilePending(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	owner := newUser(t, database, "owner")
	claimant := newUser(t, database, "claimant")
	item, _ := CreateItem(ctx, database, "Wallet", "", "accessories", "station", model.ItemStatusFound, owner.ID)

	if _, err := CreateClaim(ctx, database, item.ID, claimant.ID, ""); err != nil {
		t.Fatalf("CreateClaim: %v", err)
	}

	// A pending item belongs to its claim; the owner must review instead.
	_, err := AdvanceItemStatus(ctx, database, item.ID, owner.ID, model.ItemStatusClaimed)
	if !errors.Is(err, model.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition while pending, got %v", err)
	}
}

func TestItemImages(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	owner := newUser(t, database, "owner")
	item, _ := CreateItem(ctx, database, "Wallet", "", "accessories", "station", model.ItemStatusLost, owner.ID)

	p0, err := AddItemImage(ctx, database, item.ID, []byte("first"), "image/jpeg")
	if err != nil {
		t.Fatalf("AddItemImage: %v", err)
	}
	p1, _ := AddItemImage(ctx, database, item.ID, []byte("second"), "image/jpeg")
	if p0 != 0 || p1 != 1 {
		t.Errorf("expected positions 0 and 1, got %d and %d", p0, p1)
	}

	data, mime, err := GetItemImage(ctx, database, item.ID, 1)
	if err != nil {
		t.Fatalf("GetItemImage: %v", err)
	}
	if string(data) != "second" || mime != "image/jpeg" {
		t.Errorf("unexpected image data %q mime %q", data, mime)
	}

	data, _, _ = GetItemImage(ctx, database, item.ID, 5)
	if data != nil {
		t.Error("expected nil data for missing position")
	}

	got, _ := GetItem(ctx, database, item.ID)
	if len(got.Images) != 2 {
		t.Errorf("expected 2 image positions, got %v", got.Images)
	}
}
