package database

import (
	"log"
	"os"

	"gorm.io/gorm"

	"github.com/pdcarlson/taunufiji-dot-app-sub001/models"
)

// Migrate runs AutoMigrate for all collections and seeds the initial admin
// account when ADMIN_USERNAME/ADMIN_PASSWORD are set and no admin exists yet.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Admin{},
		&models.Member{},
		&models.Schedule{},
		&models.Task{},
		&models.LedgerEntry{},
	); err != nil {
		return err
	}

	username := os.Getenv("ADMIN_USERNAME")
	password := os.Getenv("ADMIN_PASSWORD")
	if username == "" || password == "" {
		return nil
	}

	var count int64
	if err := db.Model(&models.Admin{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	admin := models.Admin{Username: username, IsActive: true}
	if err := admin.SetPassword(password); err != nil {
		return err
	}
	if err := db.Create(&admin).Error; err != nil {
		return err
	}
	log.Printf("[database] seeded initial admin %q", username)
	return nil
}
