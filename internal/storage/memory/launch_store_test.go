package memory

import (
	"context"
	"errors"
	"testing"

	"curve-sniper/internal/domain"
	"curve-sniper/internal/storage"
)

func TestLaunchStore_InsertAndGet(t *testing.T) {
	store := NewLaunchStore()
	ctx := context.Background()

	launch := &domain.Launch{
		Mint:        "mint1",
		Creator:     "creator1",
		Name:        "Test Token",
		Symbol:      "TEST",
		TxSignature: "sig1",
		Slot:        5000,
		ObservedAt:  1000,
	}

	if err := store.Insert(ctx, launch); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByMint(ctx, "mint1")
	if err != nil {
		t.Fatalf("GetByMint failed: %v", err)
	}
	if got.Symbol != "TEST" || got.Slot != 5000 {
		t.Errorf("record mismatch: %+v", got)
	}
}

func TestLaunchStore_DuplicateMint(t *testing.T) {
	store := NewLaunchStore()
	ctx := context.Background()

	launch := &domain.Launch{Mint: "mint1", Creator: "creator1"}
	if err := store.Insert(ctx, launch); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	err := store.Insert(ctx, launch)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestLaunchStore_NotFound(t *testing.T) {
	store := NewLaunchStore()

	_, err := store.GetByMint(context.Background(), "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestLaunchStore_InvalidInput(t *testing.T) {
	store := NewLaunchStore()

	if err := store.Insert(context.Background(), &domain.Launch{}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestLaunchStore_GetByCreatorOrdered(t *testing.T) {
	store := NewLaunchStore()
	ctx := context.Background()

	launches := []*domain.Launch{
		{Mint: "mint2", Creator: "creator1", ObservedAt: 2000},
		{Mint: "mint1", Creator: "creator1", ObservedAt: 1000},
		{Mint: "mint3", Creator: "other", ObservedAt: 1500},
	}
	for _, l := range launches {
		if err := store.Insert(ctx, l); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	got, err := store.GetByCreator(ctx, "creator1")
	if err != nil {
		t.Fatalf("GetByCreator failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 launches, got %d", len(got))
	}
	if got[0].Mint != "mint1" || got[1].Mint != "mint2" {
		t.Errorf("wrong order: %s, %s", got[0].Mint, got[1].Mint)
	}
}

func TestLaunchStore_ReturnsCopies(t *testing.T) {
	store := NewLaunchStore()
	ctx := context.Background()

	if err := store.Insert(ctx, &domain.Launch{Mint: "mint1", Symbol: "A"}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, _ := store.GetByMint(ctx, "mint1")
	got.Symbol = "MUTATED"

	again, _ := store.GetByMint(ctx, "mint1")
	if again.Symbol != "A" {
		t.Error("store returned a shared pointer")
	}
}
