package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"course-marketplace/internal/domain"
	"course-marketplace/internal/domain/model"
	"course-marketplace/internal/domain/ports/repository"
)

var _ repository.PurchaseRepository = (*purchaseRepo)(nil)

type purchaseRepo struct{ pool *pgxpool.Pool }

func NewPurchaseRepo(pool *pgxpool.Pool) *purchaseRepo {
	return &purchaseRepo{pool: pool}
}

const purchaseColumns = `id, user_id, tier_id, method, status, base_price_cents, final_price_cents, promo_code, referral_code, tx_hash, from_phone, course_language, created_at, expires_at, confirmed_at`

func scanPurchase(row pgx.Row) (*model.Purchase, error) {
	p := &model.Purchase{}
	err := row.Scan(&p.ID, &p.UserID, &p.TierID, &p.Method, &p.Status, &p.BasePriceCents, &p.FinalPriceCents, &p.PromoCode, &p.ReferralCode, &p.TxHash, &p.FromPhone, &p.CourseLanguage, &p.CreatedAt, &p.ExpiresAt, &p.ConfirmedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return p, nil
}

func (r *purchaseRepo) Save(ctx context.Context, tx repository.Tx, p *model.Purchase) error {
	const q = `
INSERT INTO purchases (
  id, user_id, tier_id, method, status, base_price_cents, final_price_cents,
  promo_code, referral_code, tx_hash, from_phone, course_language, created_at, expires_at, confirmed_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15
) ON CONFLICT (id) DO UPDATE SET
  status=$5, tx_hash=$10, from_phone=$11, expires_at=$14, confirmed_at=$15;`

	_, err := execSQL(ctx, r.pool, tx, q, p.ID, p.UserID, p.TierID, p.Method, p.Status, p.BasePriceCents, p.FinalPriceCents, p.PromoCode, p.ReferralCode, p.TxHash, p.FromPhone, p.CourseLanguage, p.CreatedAt, p.ExpiresAt, p.ConfirmedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *purchaseRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Purchase, error) {
	q := `SELECT ` + purchaseColumns + ` FROM purchases WHERE id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanPurchase(row)
}

func (r *purchaseRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.Purchase, error) {
	q := `SELECT ` + purchaseColumns + ` FROM purchases WHERE user_id=$1 ORDER BY created_at DESC;`
	rows, err := queryRows(ctx, r.pool, tx, q, userID)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.Purchase
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *purchaseRepo) FindActiveByUserAndTier(ctx context.Context, tx repository.Tx, userID, tierID string) (*model.Purchase, error) {
	q := `SELECT ` + purchaseColumns + ` FROM purchases WHERE user_id=$1 AND tier_id=$2 AND status IN ('PENDING','CONFIRMED') LIMIT 1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, userID, tierID)
	if err != nil {
		return nil, err
	}
	return scanPurchase(row)
}

func (r *purchaseRepo) ExistsConfirmed(ctx context.Context, tx repository.Tx, userID, tierID string) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM purchases WHERE user_id=$1 AND tier_id=$2 AND status='CONFIRMED');`
	row, err := pickRow(ctx, r.pool, tx, q, userID, tierID)
	if err != nil {
		return false, err
	}
	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, domain.ErrReadDatabaseRow
	}
	return exists, nil
}

func (r *purchaseRepo) CountByUserAndPromo(ctx context.Context, tx repository.Tx, userID, code string) (int, error) {
	const q = `SELECT COUNT(*) FROM purchases WHERE user_id=$1 AND promo_code=$2 AND status <> 'FAILED';`
	row, err := pickRow(ctx, r.pool, tx, q, userID, code)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return n, nil
}

// UpdateStatusIfPending atomically moves a PENDING purchase to a terminal
// status. The losing side of a confirm/fail race sees RowsAffected == 0.
func (r *purchaseRepo) UpdateStatusIfPending(ctx context.Context, tx repository.Tx, id string, status model.PurchaseStatus, confirmedAt *time.Time) (bool, error) {
	const q = `
UPDATE purchases
   SET status = $2,
       confirmed_at = COALESCE($3, confirmed_at)
 WHERE id = $1
   AND status = 'PENDING';`

	cmd, err := execSQL(ctx, r.pool, tx, q, id, string(status), confirmedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

// ExpireIfUnproven fails a PENDING purchase only while it still carries no
// proof, so a proof accepted after the sweep listed the row wins the race.
func (r *purchaseRepo) ExpireIfUnproven(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	const q = `
UPDATE purchases
   SET status = 'FAILED'
 WHERE id = $1
   AND status = 'PENDING'
   AND tx_hash IS NULL
   AND from_phone IS NULL;`

	cmd, err := execSQL(ctx, r.pool, tx, q, id)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

// SetProofIfAbsent records proof exactly once, and only while PENDING.
func (r *purchaseRepo) SetProofIfAbsent(ctx context.Context, tx repository.Tx, id string, txHash, fromPhone *string) (bool, error) {
	const q = `
UPDATE purchases
   SET tx_hash = COALESCE($2, tx_hash),
       from_phone = COALESCE($3, from_phone)
 WHERE id = $1
   AND status = 'PENDING'
   AND tx_hash IS NULL
   AND from_phone IS NULL;`

	cmd, err := execSQL(ctx, r.pool, tx, q, id, txHash, fromPhone)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *purchaseRepo) ListPendingExpired(ctx context.Context, tx repository.Tx, now time.Time, limit int) ([]*model.Purchase, error) {
	if limit <= 0 {
		limit = 100
	}
	q := `SELECT ` + purchaseColumns + ` FROM purchases WHERE status='PENDING' AND tx_hash IS NULL AND from_phone IS NULL AND expires_at IS NOT NULL AND expires_at < $1 ORDER BY expires_at ASC LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, now, limit)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.Purchase
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *purchaseRepo) SumConfirmedByPeriod(ctx context.Context, tx repository.Tx, period string) (int64, error) {
	const q = `SELECT COALESCE(SUM(final_price_cents),0) FROM purchases WHERE status='CONFIRMED' AND confirmed_at >= DATE_TRUNC($1, NOW());`
	row, err := pickRow(ctx, r.pool, tx, q, period)
	if err != nil {
		return 0, err
	}
	var sum int64
	if err := row.Scan(&sum); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return sum, nil
}

func (r *purchaseRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.PurchaseStatus]int, error) {
	const q = `SELECT status, COUNT(*) FROM purchases GROUP BY status;`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	out := make(map[model.PurchaseStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out[model.PurchaseStatus(status)] = n
	}
	return out, nil
}
