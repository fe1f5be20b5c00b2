package storefx

import (
	"context"
	"log"

	"members/internal/config"
	"members/internal/database"
	"members/internal/repository"

	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Options(
	fx.Provide(
		provideDB,
		repository.NewTransactionManager,
		repository.NewRoleRepository,
		repository.NewUserRepository,
		repository.NewSessionRepository,
		repository.NewGroupRepository,
		repository.NewActivityRepository,
		repository.NewPageRepository,
		repository.NewPartnerRepository,
		repository.NewAuditRepository,
		repository.NewStatisticsRepository,
	),
)

func provideDB(lc fx.Lifecycle, cfg *config.Config) (*gorm.DB, error) {
	db, err := database.NewConnection(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}
	log.Println("Connected to PostgreSQL successfully.")

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})
	return db, nil
}
