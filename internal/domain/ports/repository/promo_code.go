package repository

import (
	"context"

	"course-marketplace/internal/domain/model"
)

type PromoCodeRepository interface {
	Save(ctx context.Context, tx Tx, code *model.PromoCode) error
	// FindByCode matches the normalized code and excludes soft-deleted rows.
	FindByCode(ctx context.Context, tx Tx, code string) (*model.PromoCode, error)
	ListAll(ctx context.Context, tx Tx) ([]*model.PromoCode, error)
	// ConsumeUse increments used_count iff the global cap is not yet reached.
	// Returns false when the cap was already reached (no row mutated).
	ConsumeUse(ctx context.Context, tx Tx, id string) (bool, error)
	// ReleaseUse decrements used_count, flooring at zero. Called when a
	// purchase created with this code transitions to FAILED.
	ReleaseUse(ctx context.Context, tx Tx, id string) error
	// SoftDelete marks the code deleted while keeping it for purchase audit.
	SoftDelete(ctx context.Context, tx Tx, id string) error
}
