package repository

import (
	"context"
	"strings"

	"github.com/seftec/platform/internal/featureflag/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByName(ctx context.Context, db *gorm.DB, name string) (*domain.FeatureFlag, error) {
	var flag domain.FeatureFlag
	err := db.WithContext(ctx).Raw(
		`SELECT name, enabled, rollout_pct, description, updated_at
		 FROM feature_flags WHERE name = ?`,
		strings.TrimSpace(name),
	).Scan(&flag).Error
	if err != nil {
		return nil, err
	}
	if flag.Name == "" {
		return nil, nil
	}
	return &flag, nil
}

func (r *repo) FindByNames(ctx context.Context, db *gorm.DB, names []string) ([]domain.FeatureFlag, error) {
	if len(names) == 0 {
		return nil, nil
	}
	var flags []domain.FeatureFlag
	err := db.WithContext(ctx).
		Model(&domain.FeatureFlag{}).
		Where("name IN ?", names).
		Find(&flags).Error
	if err != nil {
		return nil, err
	}
	return flags, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB) ([]domain.FeatureFlag, error) {
	var flags []domain.FeatureFlag
	err := db.WithContext(ctx).
		Model(&domain.FeatureFlag{}).
		Order("name").
		Find(&flags).Error
	if err != nil {
		return nil, err
	}
	return flags, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, flag *domain.FeatureFlag) (int64, error) {
	result := db.WithContext(ctx).
		Model(&domain.FeatureFlag{}).
		Where("name = ?", flag.Name).
		Updates(map[string]any{
			"enabled":     flag.Enabled,
			"rollout_pct": flag.RolloutPercent,
			"updated_at":  flag.UpdatedAt,
		})
	return result.RowsAffected, result.Error
}
