package repository

import (
	"context"

	"course-marketplace/internal/domain/model"
)

type CourseTierRepository interface {
	Save(ctx context.Context, tx Tx, tier *model.CourseTier) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.CourseTier, error)
	ListAll(ctx context.Context, tx Tx) ([]*model.CourseTier, error)
	Delete(ctx context.Context, tx Tx, id string) error
}
