package usecase

import (
	"context"
	"errors"
	"testing"

	"course-marketplace/internal/domain"
)

func TestCatalogCRUD(t *testing.T) {
	ctx := context.Background()
	tiers := newMemTierRepo()
	uc := NewCatalogUseCase(tiers, newTestLogger())

	tier, err := uc.Create(ctx, "Advanced", "deep dive", 10000, 52000, "advanced", "Sara")
	if err != nil {
		t.Fatal(err)
	}
	if tier.ID == "" || tier.PriceUSDCents != 10000 {
		t.Fatalf("unexpected tier: %+v", tier)
	}

	t.Run("create rejects negative price", func(t *testing.T) {
		if _, err := uc.Create(ctx, "Bad", "", -1, 0, "", ""); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("update changes only the given fields", func(t *testing.T) {
		newPrice := int64(12000)
		got, err := uc.Update(ctx, tier.ID, &newPrice, nil, nil)
		if err != nil {
			t.Fatal(err)
		}
		if got.PriceUSDCents != 12000 {
			t.Fatalf("price = %d", got.PriceUSDCents)
		}
		if got.PriceLYDDirhams != 52000 || got.Description != "deep dive" {
			t.Fatalf("untouched fields changed: %+v", got)
		}
	})

	t.Run("delete", func(t *testing.T) {
		if err := uc.Delete(ctx, tier.ID); err != nil {
			t.Fatal(err)
		}
		if _, err := uc.Get(ctx, tier.ID); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}
