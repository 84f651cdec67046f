package usecase

import (
	"context"

	"course-marketplace/internal/domain/model"
	"course-marketplace/internal/domain/ports/repository"
)

// StatsUseCase backs the admin console dashboard.
type StatsUseCase interface {
	// Revenue returns confirmed revenue in USD cents for the current week,
	// month, and year.
	Revenue(ctx context.Context) (week, month, year int64, err error)
	PurchaseCounts(ctx context.Context) (map[model.PurchaseStatus]int, error)
}

var _ StatsUseCase = (*statsUC)(nil)

type statsUC struct {
	purchases repository.PurchaseRepository
}

func NewStatsUseCase(purchases repository.PurchaseRepository) *statsUC {
	return &statsUC{purchases: purchases}
}

func (u *statsUC) Revenue(ctx context.Context) (int64, int64, int64, error) {
	week, err := u.purchases.SumConfirmedByPeriod(ctx, repository.NoTX, "week")
	if err != nil {
		return 0, 0, 0, err
	}
	month, err := u.purchases.SumConfirmedByPeriod(ctx, repository.NoTX, "month")
	if err != nil {
		return 0, 0, 0, err
	}
	year, err := u.purchases.SumConfirmedByPeriod(ctx, repository.NoTX, "year")
	if err != nil {
		return 0, 0, 0, err
	}
	return week, month, year, nil
}

func (u *statsUC) PurchaseCounts(ctx context.Context) (map[model.PurchaseStatus]int, error) {
	return u.purchases.CountByStatus(ctx, repository.NoTX)
}
