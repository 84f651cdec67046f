package repository

import (
	"context"

	"course-marketplace/internal/domain/model"
)

type ReferralCreditRepository interface {
	Save(ctx context.Context, tx Tx, credit *model.ReferralCredit) error
	ListByCode(ctx context.Context, tx Tx, code string) ([]*model.ReferralCredit, error)
}
