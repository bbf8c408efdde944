package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	// FindActiveByUser returns the user's active credit limit record, or nil
	// when none exists.
	FindActiveByUser(ctx context.Context, db *gorm.DB, userID string) (*CreditLimit, error)
}
