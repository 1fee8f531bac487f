package models

import (
	"log"

	"gorm.io/gorm"
)

// AutoMigrate creates or updates all tables
func AutoMigrate(db *gorm.DB) error {
	log.Println("Running database migrations...")

	if err := db.AutoMigrate(
		&Admin{},
		&User{},
		&UserSetting{},
		&UserMikrotikAccount{},
		&VPNSession{},
		&RegistrationRequest{},
		&RouterConfig{},
		&Setting{},
		&AuditLog{},
	); err != nil {
		return err
	}

	log.Println("Database migrations completed successfully")
	return nil
}
