package database

import (
	"fmt"
	"log"

	"members/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewConnection opens a pooled connection using GORM. Driver errors are
// translated so repositories can match gorm.ErrDuplicatedKey.
func NewConnection(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

// Models lists every table owned by the service, parents first.
func Models() []any {
	return []any{
		&model.Role{},
		&model.User{},
		&model.Session{},
		&model.Group{},
		&model.GroupMembership{},
		&model.Activity{},
		&model.Subscription{},
		&model.Page{},
		&model.Partner{},
		&model.AuditLog{},
	}
}

// Migrate brings the schema up to date.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		log.Println("WARNING: Failed to auto-migrate models:", err)
		return err
	}
	return nil
}
