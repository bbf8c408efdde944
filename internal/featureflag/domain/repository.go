package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	FindByName(ctx context.Context, db *gorm.DB, name string) (*FeatureFlag, error)
	FindByNames(ctx context.Context, db *gorm.DB, names []string) ([]FeatureFlag, error)
	List(ctx context.Context, db *gorm.DB) ([]FeatureFlag, error)
	Update(ctx context.Context, db *gorm.DB, flag *FeatureFlag) (int64, error)
}
