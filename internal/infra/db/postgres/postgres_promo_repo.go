package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"course-marketplace/internal/domain"
	"course-marketplace/internal/domain/model"
	"course-marketplace/internal/domain/ports/repository"
)

var _ repository.PromoCodeRepository = (*promoRepo)(nil)

type promoRepo struct{ pool *pgxpool.Pool }

func NewPromoRepo(pool *pgxpool.Pool) *promoRepo {
	return &promoRepo{pool: pool}
}

const promoColumns = `id, code, kind, value, max_uses, max_uses_per_user, used_count, tier_id, method, expires_at, created_at, deleted_at`

func scanPromo(row pgx.Row) (*model.PromoCode, error) {
	p := &model.PromoCode{}
	var method *string
	err := row.Scan(&p.ID, &p.Code, &p.Kind, &p.Value, &p.MaxUses, &p.MaxUsesPerUser, &p.UsedCount, &p.TierID, &method, &p.ExpiresAt, &p.CreatedAt, &p.DeletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	if method != nil {
		m := model.PaymentMethod(*method)
		p.Method = &m
	}
	return p, nil
}

func (r *promoRepo) Save(ctx context.Context, tx repository.Tx, p *model.PromoCode) error {
	const q = `
INSERT INTO promo_codes (id, code, kind, value, max_uses, max_uses_per_user, used_count, tier_id, method, expires_at, created_at, deleted_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
ON CONFLICT (id) DO UPDATE SET
  kind=$3, value=$4, max_uses=$5, max_uses_per_user=$6, used_count=$7, tier_id=$8, method=$9, expires_at=$10, deleted_at=$12;`

	var method *string
	if p.Method != nil {
		m := string(*p.Method)
		method = &m
	}
	_, err := execSQL(ctx, r.pool, tx, q, p.ID, p.Code, p.Kind, p.Value, p.MaxUses, p.MaxUsesPerUser, p.UsedCount, p.TierID, method, p.ExpiresAt, p.CreatedAt, p.DeletedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *promoRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.PromoCode, error) {
	q := `SELECT ` + promoColumns + ` FROM promo_codes WHERE code=$1 AND deleted_at IS NULL`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, code)
	if err != nil {
		return nil, err
	}
	return scanPromo(row)
}

func (r *promoRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.PromoCode, error) {
	q := `SELECT ` + promoColumns + ` FROM promo_codes ORDER BY created_at;`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.PromoCode
	for rows.Next() {
		p, err := scanPromo(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// ConsumeUse increments used_count only while below the global cap, so two
// concurrent checkouts cannot both take the last use of a capped code.
func (r *promoRepo) ConsumeUse(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	const q = `
UPDATE promo_codes
   SET used_count = used_count + 1
 WHERE id = $1
   AND deleted_at IS NULL
   AND (max_uses IS NULL OR used_count < max_uses);`

	cmd, err := execSQL(ctx, r.pool, tx, q, id)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *promoRepo) ReleaseUse(ctx context.Context, tx repository.Tx, id string) error {
	const q = `UPDATE promo_codes SET used_count = GREATEST(used_count - 1, 0) WHERE id = $1;`
	if _, err := execSQL(ctx, r.pool, tx, q, id); err != nil {
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *promoRepo) SoftDelete(ctx context.Context, tx repository.Tx, id string) error {
	const q = `UPDATE promo_codes SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL;`
	if _, err := execSQL(ctx, r.pool, tx, q, id); err != nil {
		return domain.ErrOperationFailed
	}
	return nil
}
