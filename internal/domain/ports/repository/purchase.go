package repository

import (
	"context"
	"time"

	"course-marketplace/internal/domain/model"
)

type PurchaseRepository interface {
	Save(ctx context.Context, tx Tx, p *model.Purchase) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Purchase, error)
	ListByUser(ctx context.Context, tx Tx, userID string) ([]*model.Purchase, error)
	// FindActiveByUserAndTier returns the PENDING or CONFIRMED purchase for
	// the pair, or ErrNotFound. Inside a transaction it locks the row.
	FindActiveByUserAndTier(ctx context.Context, tx Tx, userID, tierID string) (*model.Purchase, error)
	// ExistsConfirmed answers the access-grant check.
	ExistsConfirmed(ctx context.Context, tx Tx, userID, tierID string) (bool, error)
	// CountByUserAndPromo counts this user's non-FAILED purchases that applied
	// the given promo code (per-user cap accounting).
	CountByUserAndPromo(ctx context.Context, tx Tx, userID, code string) (int, error)
	// UpdateStatusIfPending atomically moves a PENDING purchase to the given
	// terminal status. Returns false when the purchase was already terminal.
	UpdateStatusIfPending(ctx context.Context, tx Tx, id string, status model.PurchaseStatus, confirmedAt *time.Time) (bool, error)
	// SetProofIfAbsent records proof fields iff status is PENDING and no proof
	// has been stored yet. Returns false when nothing was written.
	SetProofIfAbsent(ctx context.Context, tx Tx, id string, txHash, fromPhone *string) (bool, error)
	// ExpireIfUnproven moves a PENDING purchase to FAILED only while no proof
	// has been recorded. Returns false when proof arrived first or the
	// purchase was already terminal.
	ExpireIfUnproven(ctx context.Context, tx Tx, id string) (bool, error)
	// ListPendingExpired returns proof-less PENDING purchases whose payment
	// window closed before the given instant. Purchases with proof on file
	// stay out of the sweep and wait for manual review.
	ListPendingExpired(ctx context.Context, tx Tx, now time.Time, limit int) ([]*model.Purchase, error)
	// SumConfirmedByPeriod sums confirmed final prices since the start of the
	// current period ("week" | "month" | "year"), in USD cents.
	SumConfirmedByPeriod(ctx context.Context, tx Tx, period string) (int64, error)
	CountByStatus(ctx context.Context, tx Tx) (map[model.PurchaseStatus]int, error)
}
