package usecase

import (
	"context"

	"course-marketplace/internal/domain/model"
	"course-marketplace/internal/domain/ports/repository"
)

// ReferralUseCase exposes the referral credit trail for attribution payouts.
// Credits are written by the checkout/confirmation path; referral codes never
// change a price on their own.
type ReferralUseCase interface {
	ListCredits(ctx context.Context, code string) ([]*model.ReferralCredit, error)
}

var _ ReferralUseCase = (*referralUC)(nil)

type referralUC struct {
	referrals repository.ReferralCreditRepository
}

func NewReferralUseCase(referrals repository.ReferralCreditRepository) *referralUC {
	return &referralUC{referrals: referrals}
}

func (u *referralUC) ListCredits(ctx context.Context, code string) ([]*model.ReferralCredit, error) {
	return u.referrals.ListByCode(ctx, repository.NoTX, code)
}
