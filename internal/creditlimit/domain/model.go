package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// CreditLimit mirrors the per-user exposure ceiling owned by the external
// ledger system. This service only reads it; increments to used_limit happen
// downstream.
type CreditLimit struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	UserID     string       `gorm:"type:text;not null;uniqueIndex:ux_credit_limits_user"`
	TotalLimit int64        `gorm:"not null"`
	UsedLimit  int64        `gorm:"not null;default:0"`
	Currency   string       `gorm:"type:char(3);not null;default:'NGN'"`
	IsActive   bool         `gorm:"not null;default:true"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (CreditLimit) TableName() string { return "credit_limits" }

// AvailableLimit is total minus used.
func (c CreditLimit) AvailableLimit() int64 {
	return c.TotalLimit - c.UsedLimit
}
