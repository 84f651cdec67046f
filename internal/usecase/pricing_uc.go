package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"course-marketplace/internal/config"
	"course-marketplace/internal/domain"
	"course-marketplace/internal/domain/model"
	"course-marketplace/internal/domain/ports/repository"
	"course-marketplace/internal/infra/metrics"
)

// PricingUseCase computes the amount due for a (tier, method, country, promo)
// tuple. Quote is side-effect-free: promo usage is consumed only when a
// purchase is actually created, never at preview time.
type PricingUseCase interface {
	Quote(ctx context.Context, tierID string, method model.PaymentMethod, country, promoCode, userID string) (*model.Quote, error)
}

var _ PricingUseCase = (*pricingUC)(nil)

type pricingUC struct {
	tiers     repository.CourseTierRepository
	promos    repository.PromoCodeRepository
	purchases repository.PurchaseRepository
	pay       config.PaymentConfig
	log       *zerolog.Logger
}

func NewPricingUseCase(
	tiers repository.CourseTierRepository,
	promos repository.PromoCodeRepository,
	purchases repository.PurchaseRepository,
	pay config.PaymentConfig,
	logger *zerolog.Logger,
) *pricingUC {
	l := logger.With().Str("component", "PricingUC").Logger()
	return &pricingUC{tiers: tiers, promos: promos, purchases: purchases, pay: pay, log: &l}
}

func (u *pricingUC) Quote(ctx context.Context, tierID string, method model.PaymentMethod, country, promoCode, userID string) (*model.Quote, error) {
	tier, err := u.tiers.FindByID(ctx, repository.NoTX, tierID)
	if err != nil {
		return nil, err
	}

	effMethod := method
	if tier.Free() {
		effMethod = model.MethodFree
	}

	base := tier.PriceUSDCents
	if base < 0 {
		base = 0
	}
	q := &model.Quote{
		TierID:   tier.ID,
		Method:   effMethod,
		BaseUsed: base,
		Due:      base,
		Currency: "USDT",
	}

	if promoCode != "" {
		v, err := validatePromo(ctx, repository.NoTX, u.promos, u.purchases, promoCode, tier.ID, effMethod, userID, base, time.Now())
		if err != nil {
			return nil, err
		}
		if v.Applicable {
			q.Discount = v.Discount
			q.Due = base - v.Discount
			q.PricingApplied = true
			metrics.IncPromoApplication("applied")
		} else {
			q.PromoReason = v.Reason
			metrics.IncPromoApplication(v.Reason)
		}
	}

	// A quote discounted to nothing routes to free regardless of the
	// requested method.
	if q.Due <= 0 {
		q.Due = 0
		q.Method = model.MethodFree
	}

	if q.Method.ManualConfirmation() && country == u.pay.LocalCountry {
		q.LocalCurrency = "LYD"
		q.LocalDue = u.localAmount(tier, q.Due)
	}
	return q, nil
}

// localAmount converts a USD-cents amount to LYD dirhams for display. When the
// operator set an explicit local price it is scaled by the discount ratio;
// otherwise the configured conversion rate applies.
func (u *pricingUC) localAmount(tier *model.CourseTier, dueCents int64) int64 {
	if tier.PriceLYDDirhams > 0 && tier.PriceUSDCents > 0 {
		return tier.PriceLYDDirhams * dueCents / tier.PriceUSDCents
	}
	return dueCents * u.pay.USDToLYDMilli / 1000
}

// promoValidation is the outcome of the check chain for one supplied code.
// Rejections are values, not errors: only storage failures surface as error.
type promoValidation struct {
	Code       *model.PromoCode
	Discount   int64
	Applicable bool
	Reason     string
}

// validatePromo runs the check chain in order, short-circuiting on the first
// failure: existence, expiry, tier/method restriction, global cap, per-user
// cap. Shared by quote previews and the checkout transaction (same package).
func validatePromo(
	ctx context.Context,
	tx repository.Tx,
	promos repository.PromoCodeRepository,
	purchases repository.PurchaseRepository,
	code, tierID string,
	method model.PaymentMethod,
	userID string,
	baseCents int64,
	now time.Time,
) (*promoValidation, error) {
	normalized := model.NormalizePromoCode(code)
	pc, err := promos.FindByCode(ctx, tx, normalized)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return &promoValidation{Reason: model.PromoReasonNotFound}, nil
		}
		return nil, err
	}
	if pc.Expired(now) {
		return &promoValidation{Code: pc, Reason: model.PromoReasonExpired}, nil
	}
	if pc.Restricts(tierID, method) {
		return &promoValidation{Code: pc, Reason: model.PromoReasonRestricted}, nil
	}
	if pc.MaxUses != nil && pc.UsedCount >= *pc.MaxUses {
		return &promoValidation{Code: pc, Reason: model.PromoReasonExhausted}, nil
	}
	if pc.MaxUsesPerUser != nil {
		used, err := purchases.CountByUserAndPromo(ctx, tx, userID, pc.Code)
		if err != nil {
			return nil, err
		}
		if used >= *pc.MaxUsesPerUser {
			return &promoValidation{Code: pc, Reason: model.PromoReasonUserCap}, nil
		}
	}
	return &promoValidation{
		Code:       pc,
		Discount:   pc.DiscountFor(baseCents),
		Applicable: true,
	}, nil
}
