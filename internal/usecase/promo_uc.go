package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"course-marketplace/internal/domain/model"
	"course-marketplace/internal/domain/ports/repository"
)

// PromoUseCase is the operator-facing lifecycle of promo codes. Validation
// against a quote lives with the pricing path; this use case only manages the
// rules themselves. Codes are soft-deleted so purchases keep their audit
// reference.
type PromoUseCase interface {
	Create(ctx context.Context, code string, kind model.DiscountKind, value int64, maxUses, maxUsesPerUser *int, tierID *string, method *model.PaymentMethod, expiresAt *time.Time) (*model.PromoCode, error)
	List(ctx context.Context) ([]*model.PromoCode, error)
	Deactivate(ctx context.Context, code string) error
}

var _ PromoUseCase = (*promoUC)(nil)

type promoUC struct {
	promos repository.PromoCodeRepository
	log    *zerolog.Logger
}

func NewPromoUseCase(promos repository.PromoCodeRepository, logger *zerolog.Logger) *promoUC {
	l := logger.With().Str("component", "PromoUC").Logger()
	return &promoUC{promos: promos, log: &l}
}

func (u *promoUC) Create(ctx context.Context, code string, kind model.DiscountKind, value int64, maxUses, maxUsesPerUser *int, tierID *string, method *model.PaymentMethod, expiresAt *time.Time) (*model.PromoCode, error) {
	pc, err := model.NewPromoCode(uuid.NewString(), code, kind, value)
	if err != nil {
		return nil, err
	}
	pc.MaxUses = maxUses
	pc.MaxUsesPerUser = maxUsesPerUser
	pc.TierID = tierID
	pc.Method = method
	pc.ExpiresAt = expiresAt
	if err := u.promos.Save(ctx, repository.NoTX, pc); err != nil {
		return nil, err
	}
	u.log.Info().Str("code", pc.Code).Msg("promo code created")
	return pc, nil
}

func (u *promoUC) List(ctx context.Context) ([]*model.PromoCode, error) {
	return u.promos.ListAll(ctx, repository.NoTX)
}

// Deactivate soft-deletes; double-deactivation is idempotent success.
func (u *promoUC) Deactivate(ctx context.Context, code string) error {
	pc, err := u.promos.FindByCode(ctx, repository.NoTX, model.NormalizePromoCode(code))
	if err != nil {
		return err
	}
	return u.promos.SoftDelete(ctx, repository.NoTX, pc.ID)
}
