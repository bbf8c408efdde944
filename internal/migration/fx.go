package migration

import (
	"github.com/seftec/platform/internal/config"
	creditdomain "github.com/seftec/platform/internal/creditlimit/domain"
	flagdomain "github.com/seftec/platform/internal/featureflag/domain"
	"github.com/seftec/platform/internal/seed"
	tfdomain "github.com/seftec/platform/internal/tradefinance/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			// Non-postgres deployments (local sqlite, mysql) rely on gorm's
			// schema sync; the SQL migrations are postgres-flavored.
			if err := conn.AutoMigrate(
				&flagdomain.FeatureFlag{},
				&creditdomain.CreditLimit{},
				&tfdomain.Application{},
				&tfdomain.Document{},
				&tfdomain.Transaction{},
			); err != nil {
				return err
			}
		}

		if cfg.SeedDefaultFlags {
			return seed.EnsureDefaultFlags(conn)
		}
		return nil
	}),
)
