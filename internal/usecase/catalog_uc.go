package usecase

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"course-marketplace/internal/domain"
	"course-marketplace/internal/domain/model"
	"course-marketplace/internal/domain/ports/repository"
)

// CatalogUseCase is the tier catalog: public reads plus operator CRUD.
type CatalogUseCase interface {
	Get(ctx context.Context, tierID string) (*model.CourseTier, error)
	List(ctx context.Context) ([]*model.CourseTier, error)
	Create(ctx context.Context, name, description string, priceUSDCents, priceLYDDirhams int64, level, instructor string) (*model.CourseTier, error)
	// Update mutates fields on an existing tier. Nil pointers mean "no
	// change". Past purchases keep their captured prices.
	Update(ctx context.Context, tierID string, priceUSDCents, priceLYDDirhams *int64, description *string) (*model.CourseTier, error)
	Delete(ctx context.Context, tierID string) error
}

var _ CatalogUseCase = (*catalogUC)(nil)

type catalogUC struct {
	tiers repository.CourseTierRepository
	log   *zerolog.Logger
}

func NewCatalogUseCase(tiers repository.CourseTierRepository, logger *zerolog.Logger) *catalogUC {
	l := logger.With().Str("component", "CatalogUC").Logger()
	return &catalogUC{tiers: tiers, log: &l}
}

func (u *catalogUC) Get(ctx context.Context, tierID string) (*model.CourseTier, error) {
	return u.tiers.FindByID(ctx, repository.NoTX, tierID)
}

func (u *catalogUC) List(ctx context.Context) ([]*model.CourseTier, error) {
	return u.tiers.ListAll(ctx, repository.NoTX)
}

func (u *catalogUC) Create(ctx context.Context, name, description string, priceUSDCents, priceLYDDirhams int64, level, instructor string) (*model.CourseTier, error) {
	tier, err := model.NewCourseTier(uuid.NewString(), name, priceUSDCents, priceLYDDirhams, level)
	if err != nil {
		return nil, err
	}
	tier.Description = description
	tier.Instructor = instructor
	if err := u.tiers.Save(ctx, repository.NoTX, tier); err != nil {
		return nil, err
	}
	u.log.Info().Str("tier_id", tier.ID).Str("name", name).Msg("tier created")
	return tier, nil
}

func (u *catalogUC) Update(ctx context.Context, tierID string, priceUSDCents, priceLYDDirhams *int64, description *string) (*model.CourseTier, error) {
	tier, err := u.tiers.FindByID(ctx, repository.NoTX, tierID)
	if err != nil {
		return nil, err
	}
	if priceUSDCents != nil {
		if *priceUSDCents < 0 {
			return nil, domain.ErrInvalidArgument
		}
		tier.PriceUSDCents = *priceUSDCents
	}
	if priceLYDDirhams != nil {
		if *priceLYDDirhams < 0 {
			return nil, domain.ErrInvalidArgument
		}
		tier.PriceLYDDirhams = *priceLYDDirhams
	}
	if description != nil {
		tier.Description = *description
	}
	if err := u.tiers.Save(ctx, repository.NoTX, tier); err != nil {
		return nil, err
	}
	return tier, nil
}

func (u *catalogUC) Delete(ctx context.Context, tierID string) error {
	return u.tiers.Delete(ctx, repository.NoTX, tierID)
}
