package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"course-marketplace/internal/domain"
	"course-marketplace/internal/domain/model"
	"course-marketplace/internal/domain/ports/repository"
)

type checkoutFixture struct {
	tiers     *memTierRepo
	promos    *memPromoRepo
	purchases *memPurchaseRepo
	referrals *memReferralRepo
	uc        CheckoutUseCase
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()
	f := &checkoutFixture{
		tiers:     newMemTierRepo(),
		promos:    newMemPromoRepo(),
		purchases: newMemPurchaseRepo(),
		referrals: newMemReferralRepo(),
	}
	f.uc = NewCheckoutUseCase(
		f.tiers, f.promos, f.purchases, f.referrals,
		NewMockTxManager(), NewMockLocker(), testPayConfig(), newTestLogger(),
	)
	return f
}

func TestCreatePurchase_PendingUSDT(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	seedTier(f.tiers, "advanced", 10000, 0)

	before := time.Now()
	r, err := f.uc.CreatePurchase(ctx, "u1", "advanced", model.MethodUSDT, "", "en", "", "")
	if err != nil {
		t.Fatal(err)
	}
	p := r.Purchase
	if p.Status != model.PurchaseStatusPending {
		t.Fatalf("status = %s", p.Status)
	}
	if p.FinalPriceCents != 10000 || r.AmountCents != 10000 {
		t.Fatalf("amount = %d/%d", p.FinalPriceCents, r.AmountCents)
	}
	if r.Address != "TTestAddress123" {
		t.Fatalf("address = %q", r.Address)
	}
	if p.ExpiresAt == nil {
		t.Fatal("pending purchase needs a payment deadline")
	}
	want := before.Add(30 * time.Minute)
	if p.ExpiresAt.Before(want.Add(-time.Minute)) || p.ExpiresAt.After(want.Add(time.Minute)) {
		t.Fatalf("deadline %v not ~30m out", p.ExpiresAt)
	}

	stored, err := f.purchases.FindByID(ctx, nil, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != model.PurchaseStatusPending {
		t.Fatalf("stored status = %s", stored.Status)
	}
}

func TestCreatePurchase_LocalRail(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	seedTier(f.tiers, "advanced", 10000, 52000)

	r, err := f.uc.CreatePurchase(ctx, "u1", "advanced", model.MethodLibyana, "LY", "ar", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if r.Address != "0910000000" {
		t.Fatalf("address = %q", r.Address)
	}
	if r.LocalCurrency != "LYD" || r.LocalAmount != 52000 {
		t.Fatalf("local = %d %s", r.LocalAmount, r.LocalCurrency)
	}
	// The ledger amount stays in USD cents.
	if r.AmountCents != 10000 {
		t.Fatalf("amount = %d", r.AmountCents)
	}
}

func TestCreatePurchase_FreeTierConfirmedImmediately(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	seedTier(f.tiers, "starter", 0, 0)

	r, err := f.uc.CreatePurchase(ctx, "u1", "starter", model.MethodFree, "", "en", "", "friend-1")
	if err != nil {
		t.Fatal(err)
	}
	p := r.Purchase
	if p.Status != model.PurchaseStatusConfirmed {
		t.Fatalf("status = %s", p.Status)
	}
	if p.ConfirmedAt == nil || p.ExpiresAt != nil {
		t.Fatalf("free purchase timestamps wrong: %+v", p)
	}
	if r.Provider != model.MethodFree || r.Address != "" || r.AmountCents != 0 {
		t.Fatalf("unexpected receipt: %+v", r)
	}

	// Referral credit is written at confirmation, which for free is creation.
	credits, err := f.referrals.ListByCode(ctx, nil, "friend-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(credits) != 1 || credits[0].PurchaseID != p.ID {
		t.Fatalf("credits = %+v", credits)
	}
}

func TestCreatePurchase_FreeMethodOnPricedTier(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	seedTier(f.tiers, "advanced", 10000, 0)

	_, err := f.uc.CreatePurchase(ctx, "u1", "advanced", model.MethodFree, "", "en", "", "")
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestCreatePurchase_PromoConsumption(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	seedTier(f.tiers, "advanced", 10000, 0)

	pc, _ := model.NewPromoCode("p1", "SAVE20", model.DiscountPercent, 20)
	pc.MaxUses = intPtr(2)
	if err := f.promos.Save(ctx, nil, pc); err != nil {
		t.Fatal(err)
	}

	r, err := f.uc.CreatePurchase(ctx, "u1", "advanced", model.MethodUSDT, "", "en", "save20", "")
	if err != nil {
		t.Fatal(err)
	}
	if r.AmountCents != 8000 {
		t.Fatalf("amount = %d, want 8000", r.AmountCents)
	}
	if r.Purchase.PromoCode == nil || *r.Purchase.PromoCode != "SAVE20" {
		t.Fatalf("promo code not captured: %+v", r.Purchase)
	}
	if got := f.promos.usedCount("p1"); got != 1 {
		t.Fatalf("used count = %d, want 1", got)
	}
}

// A method-restricted code is checked against the effective method, so on a
// free tier checkout rejects it exactly like the quote does, and no use is
// consumed.
func TestCreatePurchase_PromoMethodRestrictionOnFreeTier(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	seedTier(f.tiers, "starter", 0, 0)

	usdt := model.MethodUSDT
	pc, _ := model.NewPromoCode("p1", "USDTONLY", model.DiscountPercent, 20)
	pc.Method = &usdt
	if err := f.promos.Save(ctx, nil, pc); err != nil {
		t.Fatal(err)
	}

	r, err := f.uc.CreatePurchase(ctx, "u1", "starter", model.MethodUSDT, "", "en", "USDTONLY", "")
	if err != nil {
		t.Fatal(err)
	}
	if r.Provider != model.MethodFree || r.Purchase.Status != model.PurchaseStatusConfirmed {
		t.Fatalf("free tier receipt: %+v", r)
	}
	if r.Purchase.PromoCode != nil {
		t.Fatalf("restricted promo captured: %q", *r.Purchase.PromoCode)
	}
	if got := f.promos.usedCount("p1"); got != 0 {
		t.Fatalf("restricted promo consumed: %d", got)
	}
}

// casMissPromoRepo always loses the ConsumeUse compare-and-set.
type casMissPromoRepo struct {
	*memPromoRepo
}

func (r *casMissPromoRepo) ConsumeUse(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	return false, nil
}

// A code that exhausts between validation and consumption downgrades to full
// price instead of failing the checkout.
func TestCreatePurchase_PromoCASMissDowngrades(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	seedTier(f.tiers, "advanced", 10000, 0)

	pc, _ := model.NewPromoCode("p1", "LAST1", model.DiscountPercent, 20)
	pc.MaxUses = intPtr(1)
	if err := f.promos.Save(ctx, nil, pc); err != nil {
		t.Fatal(err)
	}

	// Validation sees a use left, but a concurrent checkout takes it before
	// this one consumes.
	promos := &casMissPromoRepo{memPromoRepo: f.promos}
	uc := NewCheckoutUseCase(
		f.tiers, promos, f.purchases, f.referrals,
		NewMockTxManager(), NewMockLocker(), testPayConfig(), newTestLogger(),
	)

	r, err := uc.CreatePurchase(ctx, "u1", "advanced", model.MethodUSDT, "", "en", "LAST1", "")
	if err != nil {
		t.Fatal(err)
	}
	if r.AmountCents != 10000 {
		t.Fatalf("amount = %d, want full price", r.AmountCents)
	}
	if r.Purchase.PromoCode != nil {
		t.Fatalf("exhausted code must not be captured: %+v", r.Purchase)
	}
}

func TestCreatePurchase_DuplicateActiveRejected(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	seedTier(f.tiers, "advanced", 10000, 0)

	if _, err := f.uc.CreatePurchase(ctx, "u1", "advanced", model.MethodUSDT, "", "en", "", ""); err != nil {
		t.Fatal(err)
	}
	_, err := f.uc.CreatePurchase(ctx, "u1", "advanced", model.MethodLibyana, "LY", "en", "", "")
	if !errors.Is(err, domain.ErrAlreadyEnrolled) {
		t.Fatalf("expected ErrAlreadyEnrolled, got %v", err)
	}

	// A different user or a different tier is unaffected.
	seedTier(f.tiers, "mentorship", 50000, 0)
	if _, err := f.uc.CreatePurchase(ctx, "u2", "advanced", model.MethodUSDT, "", "en", "", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := f.uc.CreatePurchase(ctx, "u1", "mentorship", model.MethodUSDT, "", "en", "", ""); err != nil {
		t.Fatal(err)
	}
}

// Concurrent checkouts for the same (user, tier) must produce exactly one
// purchase. The transaction manager serializes callbacks the way the advisory
// lock does in production.
func TestCreatePurchase_ConcurrentSameTier(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	seedTier(f.tiers, "advanced", 10000, 0)

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.uc.CreatePurchase(ctx, "u1", "advanced", model.MethodUSDT, "", "en", "", "")
		}(i)
	}
	wg.Wait()

	okCount := 0
	for _, err := range errs {
		switch {
		case err == nil:
			okCount++
		case errors.Is(err, domain.ErrAlreadyEnrolled), errors.Is(err, domain.ErrCheckoutLocked):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if okCount != 1 {
		t.Fatalf("%d checkouts succeeded, want exactly 1", okCount)
	}
	all, _ := f.purchases.ListByUser(ctx, nil, "u1")
	if len(all) != 1 {
		t.Fatalf("%d purchases stored, want 1", len(all))
	}
}

func TestCreatePurchase_RetryAfterFailureSucceeds(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	seedTier(f.tiers, "advanced", 10000, 0)

	r, err := f.uc.CreatePurchase(ctx, "u1", "advanced", model.MethodUSDT, "", "en", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.purchases.UpdateStatusIfPending(ctx, nil, r.Purchase.ID, model.PurchaseStatusFailed, nil); err != nil {
		t.Fatal(err)
	}

	// FAILED is not active, so a fresh attempt goes through.
	if _, err := f.uc.CreatePurchase(ctx, "u1", "advanced", model.MethodUSDT, "", "en", "", ""); err != nil {
		t.Fatalf("retry after failure: %v", err)
	}
}

func TestCreatePurchase_Validation(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)

	if _, err := f.uc.CreatePurchase(ctx, "", "advanced", model.MethodUSDT, "", "en", "", ""); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("empty user: %v", err)
	}
	if _, err := f.uc.CreatePurchase(ctx, "u1", "", model.MethodUSDT, "", "en", "", ""); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("empty tier: %v", err)
	}
	if _, err := f.uc.CreatePurchase(ctx, "u1", "ghost", model.MethodUSDT, "", "en", "", ""); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unknown tier: %v", err)
	}
}
