package repository

import (
	"context"
	"strings"

	"github.com/seftec/platform/internal/creditlimit/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindActiveByUser(ctx context.Context, db *gorm.DB, userID string) (*domain.CreditLimit, error) {
	var limit domain.CreditLimit
	err := db.WithContext(ctx).Raw(
		`SELECT id, user_id, total_limit, used_limit, currency, is_active, created_at, updated_at
		 FROM credit_limits WHERE user_id = ? AND is_active = ?`,
		strings.TrimSpace(userID), true,
	).Scan(&limit).Error
	if err != nil {
		return nil, err
	}
	if limit.ID == 0 {
		return nil, nil
	}
	return &limit, nil
}
