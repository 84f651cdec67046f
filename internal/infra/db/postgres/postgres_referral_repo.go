package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"course-marketplace/internal/domain"
	"course-marketplace/internal/domain/model"
	"course-marketplace/internal/domain/ports/repository"
)

var _ repository.ReferralCreditRepository = (*referralRepo)(nil)

type referralRepo struct{ pool *pgxpool.Pool }

func NewReferralRepo(pool *pgxpool.Pool) *referralRepo {
	return &referralRepo{pool: pool}
}

func (r *referralRepo) Save(ctx context.Context, tx repository.Tx, c *model.ReferralCredit) error {
	const q = `
INSERT INTO referral_credits (id, code, purchase_id, user_id, tier_id, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (id) DO NOTHING;`

	_, err := execSQL(ctx, r.pool, tx, q, c.ID, c.Code, c.PurchaseID, c.UserID, c.TierID, c.CreatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *referralRepo) ListByCode(ctx context.Context, tx repository.Tx, code string) ([]*model.ReferralCredit, error) {
	const q = `SELECT id, code, purchase_id, user_id, tier_id, created_at FROM referral_credits WHERE code=$1 ORDER BY created_at DESC;`
	rows, err := queryRows(ctx, r.pool, tx, q, code)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.ReferralCredit
	for rows.Next() {
		c := new(model.ReferralCredit)
		if err := rows.Scan(&c.ID, &c.Code, &c.PurchaseID, &c.UserID, &c.TierID, &c.CreatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, c)
	}
	return out, nil
}
