package usecase

import (
	"context"
	"errors"
	"hash/fnv"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"course-marketplace/internal/config"
	"course-marketplace/internal/domain"
	"course-marketplace/internal/domain/model"
	"course-marketplace/internal/domain/ports/repository"
	"course-marketplace/internal/infra/metrics"
	red "course-marketplace/internal/infra/redis"
)

// PurchaseReceipt is what the client needs to complete payment out-of-band.
// Address is the receiving USDT address or mobile-money phone number; it is
// empty for free purchases, which are confirmed immediately.
type PurchaseReceipt struct {
	Purchase      *model.Purchase
	Provider      model.PaymentMethod
	Address       string
	AmountCents   int64
	LocalAmount   int64
	LocalCurrency string
}

// CheckoutUseCase routes a confirmed quote onto a payment rail and creates the
// purchase record. The duplicate check, promo consumption, and insert run as
// one transaction under a per-user advisory lock, so concurrent checkouts for
// the same (user, tier) or the same capped code cannot both succeed.
type CheckoutUseCase interface {
	CreatePurchase(ctx context.Context, userID, tierID string, method model.PaymentMethod, country, courseLanguage, promoCode, refCode string) (*PurchaseReceipt, error)
}

var _ CheckoutUseCase = (*checkoutUC)(nil)

type checkoutUC struct {
	tiers     repository.CourseTierRepository
	promos    repository.PromoCodeRepository
	purchases repository.PurchaseRepository
	referrals repository.ReferralCreditRepository
	tm        repository.TransactionManager
	locker    red.Locker
	pay       config.PaymentConfig
	log       *zerolog.Logger
}

func NewCheckoutUseCase(
	tiers repository.CourseTierRepository,
	promos repository.PromoCodeRepository,
	purchases repository.PurchaseRepository,
	referrals repository.ReferralCreditRepository,
	tm repository.TransactionManager,
	locker red.Locker,
	pay config.PaymentConfig,
	logger *zerolog.Logger,
) *checkoutUC {
	l := logger.With().Str("component", "CheckoutUC").Logger()
	return &checkoutUC{
		tiers: tiers, promos: promos, purchases: purchases, referrals: referrals,
		tm: tm, locker: locker, pay: pay, log: &l,
	}
}

func hashToInt64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64() & ((1 << 63) - 1))
}

func (u *checkoutUC) CreatePurchase(ctx context.Context, userID, tierID string, method model.PaymentMethod, country, courseLanguage, promoCode, refCode string) (*PurchaseReceipt, error) {
	if userID == "" || tierID == "" {
		return nil, domain.ErrInvalidArgument
	}

	// Cheap double-click guard in front of the transaction; correctness never
	// depends on it, the advisory xact lock below does.
	if u.locker != nil {
		token, err := u.locker.TryLock(ctx, "checkout:"+userID, 30*time.Second)
		if err != nil {
			return nil, domain.ErrCheckoutLocked
		}
		defer func() { _ = u.locker.Unlock(ctx, "checkout:"+userID, token) }()
	}

	var receipt *PurchaseReceipt
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if ptx, ok := tx.(pgx.Tx); ok {
			if _, err := ptx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", hashToInt64(userID)); err != nil {
				return err
			}
		}

		tier, err := u.tiers.FindByID(ctx, tx, tierID)
		if err != nil {
			return err
		}

		// Idempotent re-enrollment guard: one active purchase per (user, tier).
		if existing, err := u.purchases.FindActiveByUserAndTier(ctx, tx, userID, tierID); err == nil && existing != nil {
			return domain.ErrAlreadyEnrolled
		} else if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		now := time.Now()
		base := tier.PriceUSDCents
		if base < 0 {
			base = 0
		}
		due := base

		// Promo restrictions check against the same effective method the
		// quote used, so preview and checkout agree on free tiers.
		effMethod := method
		if tier.Free() {
			effMethod = model.MethodFree
		}

		var appliedPromo *string
		if promoCode != "" {
			v, err := validatePromo(ctx, tx, u.promos, u.purchases, promoCode, tier.ID, effMethod, userID, base, now)
			if err != nil {
				return err
			}
			if v.Applicable {
				// Consume one use with a compare-and-set; a concurrent
				// checkout may have exhausted the cap since validation.
				ok, err := u.promos.ConsumeUse(ctx, tx, v.Code.ID)
				if err != nil {
					return err
				}
				if ok {
					due = base - v.Discount
					code := v.Code.Code
					appliedPromo = &code
					metrics.IncPromoApplication("applied")
				} else {
					metrics.IncPromoApplication(model.PromoReasonExhausted)
				}
			} else {
				metrics.IncPromoApplication(v.Reason)
			}
		}
		if due < 0 {
			due = 0
		}

		provider := method
		if due == 0 {
			provider = model.MethodFree
		} else if method == model.MethodFree {
			// A priced tier cannot be taken for free.
			return domain.ErrInvalidArgument
		}

		var refPtr *string
		if refCode != "" {
			refPtr = &refCode
		}

		p := &model.Purchase{
			ID:              ulid.Make().String(),
			UserID:          userID,
			TierID:          tier.ID,
			Method:          provider,
			BasePriceCents:  base,
			FinalPriceCents: due,
			PromoCode:       appliedPromo,
			ReferralCode:    refPtr,
			CourseLanguage:  courseLanguage,
			CreatedAt:       now,
		}

		if provider == model.MethodFree {
			// Free purchases bypass PENDING entirely.
			p.Status = model.PurchaseStatusConfirmed
			p.ConfirmedAt = &now
		} else {
			p.Status = model.PurchaseStatusPending
			deadline := now.Add(u.pay.Window)
			p.ExpiresAt = &deadline
		}

		if err := u.purchases.Save(ctx, tx, p); err != nil {
			return err
		}
		if p.Status == model.PurchaseStatusConfirmed && refPtr != nil {
			if err := u.recordReferral(ctx, tx, p); err != nil {
				return err
			}
		}

		receipt = u.buildReceipt(p, tier, country)
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.IncPurchase(string(receipt.Provider), string(receipt.Purchase.Status))
	if receipt.Purchase.Status == model.PurchaseStatusConfirmed {
		metrics.AddPurchaseRevenue(string(receipt.Provider), receipt.Purchase.FinalPriceCents)
	}
	u.log.Info().
		Str("purchase_id", receipt.Purchase.ID).
		Str("user_id", userID).
		Str("tier_id", tierID).
		Str("provider", string(receipt.Provider)).
		Int64("due_cents", receipt.AmountCents).
		Msg("purchase created")
	return receipt, nil
}

func (u *checkoutUC) recordReferral(ctx context.Context, tx repository.Tx, p *model.Purchase) error {
	return u.referrals.Save(ctx, tx, &model.ReferralCredit{
		ID:         ulid.Make().String(),
		Code:       *p.ReferralCode,
		PurchaseID: p.ID,
		UserID:     p.UserID,
		TierID:     p.TierID,
		CreatedAt:  time.Now(),
	})
}

func (u *checkoutUC) buildReceipt(p *model.Purchase, tier *model.CourseTier, country string) *PurchaseReceipt {
	r := &PurchaseReceipt{
		Purchase:    p,
		Provider:    p.Method,
		AmountCents: p.FinalPriceCents,
	}
	switch p.Method {
	case model.MethodUSDT:
		r.Address = u.pay.USDTAddress
	case model.MethodLibyana:
		r.Address = u.pay.LibyanaPhone
	case model.MethodMadar:
		r.Address = u.pay.MadarPhone
	}
	if p.Method.ManualConfirmation() && country == u.pay.LocalCountry {
		r.LocalCurrency = "LYD"
		if tier.PriceLYDDirhams > 0 && tier.PriceUSDCents > 0 {
			r.LocalAmount = tier.PriceLYDDirhams * p.FinalPriceCents / tier.PriceUSDCents
		} else {
			r.LocalAmount = p.FinalPriceCents * u.pay.USDToLYDMilli / 1000
		}
	}
	return r
}
