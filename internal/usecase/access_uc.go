package usecase

import (
	"context"

	"course-marketplace/internal/domain/model"
	"course-marketplace/internal/domain/ports/repository"
)

// AccessUseCase is the single source of truth the learning area consults to
// gate content. Access is derived from purchase state, never stored
// separately, so enrollment and payment state cannot drift apart.
type AccessUseCase interface {
	// HasAccess is true iff a CONFIRMED purchase exists for (user, tier).
	HasAccess(ctx context.Context, userID, tierID string) (bool, error)
	// AccessibleTiers lists the tier IDs the user may view.
	AccessibleTiers(ctx context.Context, userID string) ([]string, error)
}

var _ AccessUseCase = (*accessUC)(nil)

type accessUC struct {
	purchases repository.PurchaseRepository
}

func NewAccessUseCase(purchases repository.PurchaseRepository) *accessUC {
	return &accessUC{purchases: purchases}
}

func (u *accessUC) HasAccess(ctx context.Context, userID, tierID string) (bool, error) {
	return u.purchases.ExistsConfirmed(ctx, repository.NoTX, userID, tierID)
}

func (u *accessUC) AccessibleTiers(ctx context.Context, userID string) ([]string, error) {
	all, err := u.purchases.ListByUser(ctx, repository.NoTX, userID)
	if err != nil {
		return nil, err
	}
	var tiers []string
	seen := map[string]bool{}
	for _, p := range all {
		if p.Status == model.PurchaseStatusConfirmed && !seen[p.TierID] {
			seen[p.TierID] = true
			tiers = append(tiers, p.TierID)
		}
	}
	return tiers, nil
}
