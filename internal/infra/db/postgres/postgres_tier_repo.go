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

var _ repository.CourseTierRepository = (*tierRepo)(nil)

type tierRepo struct{ pool *pgxpool.Pool }

func NewTierRepo(pool *pgxpool.Pool) *tierRepo {
	return &tierRepo{pool: pool}
}

const tierColumns = `id, name, description, price_usd_cents, price_lyd_dirhams, level, instructor, cover_url, created_at`

func (r *tierRepo) Save(ctx context.Context, tx repository.Tx, t *model.CourseTier) error {
	const q = `
INSERT INTO course_tiers (id, name, description, price_usd_cents, price_lyd_dirhams, level, instructor, cover_url, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (id) DO UPDATE SET
  name=$2, description=$3, price_usd_cents=$4, price_lyd_dirhams=$5, level=$6, instructor=$7, cover_url=$8;`

	_, err := execSQL(ctx, r.pool, tx, q, t.ID, t.Name, t.Description, t.PriceUSDCents, t.PriceLYDDirhams, t.Level, t.Instructor, t.CoverURL, t.CreatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *tierRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.CourseTier, error) {
	q := `SELECT ` + tierColumns + ` FROM course_tiers WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	t := &model.CourseTier{}
	if err := row.Scan(&t.ID, &t.Name, &t.Description, &t.PriceUSDCents, &t.PriceLYDDirhams, &t.Level, &t.Instructor, &t.CoverURL, &t.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return t, nil
}

func (r *tierRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.CourseTier, error) {
	q := `SELECT ` + tierColumns + ` FROM course_tiers ORDER BY created_at;`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.CourseTier
	for rows.Next() {
		t := new(model.CourseTier)
		if err := rows.Scan(&t.ID, &t.Name, &t.Description, &t.PriceUSDCents, &t.PriceLYDDirhams, &t.Level, &t.Instructor, &t.CoverURL, &t.CreatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, t)
	}
	return out, nil
}

func (r *tierRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	const q = `DELETE FROM course_tiers WHERE id=$1;`
	cmd, err := execSQL(ctx, r.pool, tx, q, id)
	if err != nil {
		return domain.ErrOperationFailed
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
