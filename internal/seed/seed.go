package seed

import (
	"errors"

	"github.com/seftec/platform/internal/featureflag/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// defaultFlags are the flag records every deployment starts with. Each flag
// gets an explicit row so evaluation never depends on naming conventions;
// admins flip them after deploy.
var defaultFlags = []domain.FeatureFlag{
	{Name: "trade_finance", Enabled: true, RolloutPercent: 100, Description: ptr("Trade finance application workflows")},
	{Name: "bulk_payments", Enabled: true, RolloutPercent: 100, Description: ptr("Wallet bulk payment flows")},
	{Name: "bizgenie_chat", Enabled: false, RolloutPercent: 0, Description: ptr("AI business advisory chat")},
	{Name: "marketplace_analytics", Enabled: true, RolloutPercent: 100, Description: ptr("Marketplace analytics dashboards")},
	{Name: "new_dashboard", Enabled: false, RolloutPercent: 0, Description: ptr("Redesigned merchant dashboard")},
}

// EnsureDefaultFlags inserts the default flag rows, leaving any existing rows
// untouched so admin changes survive restarts.
func EnsureDefaultFlags(conn *gorm.DB) error {
	if conn == nil {
		return errors.New("seed requires a database connection")
	}

	rows := make([]domain.FeatureFlag, len(defaultFlags))
	copy(rows, defaultFlags)

	return conn.Transaction(func(tx *gorm.DB) error {
		return tx.
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "name"}},
				DoNothing: true,
			}).
			Create(&rows).Error
	})
}

func ptr(s string) *string { return &s }
