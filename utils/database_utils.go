// database_utils should be the canonical place to put shared DB utils.
// It should not include:
// 1. Any util that doesn't manipulate DB
// 2. Any util that contains business logic
package utils

import (
	"fmt"
	"os"

	"github.com/leadsift/leadsift/model"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// GetDBConnection gets a connection to the database specified by env
func GetDBConnection() (*gorm.DB, error) {
	return GetCustomizedConnection(os.Getenv("DB_NAME"))
}

// GetCustomizedConnection connects to any db
func GetCustomizedConnection(dbName string) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		os.Getenv("DB_HOST"), os.Getenv("DB_USER"), os.Getenv("DB_PASS"), dbName, os.Getenv("DB_PORT"))
	return getDB(dsn)
}

func getDB(connectionString string) (db *gorm.DB, err error) {
	return gorm.Open(postgres.Open(connectionString), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
}

// DatabaseSetupAndMigration migrates all pipeline tables. Safe to call on
// every startup, AutoMigrate is additive only.
func DatabaseSetupAndMigration(db *gorm.DB) {
	if err := db.AutoMigrate(
		&model.Lead{},
		&model.Subscription{},
		&model.OwnerSetting{},
	); err != nil {
		panic("failed to migrate database: " + err.Error())
	}
}
