// Package testutil holds fixtures shared by package tests: in-memory
// databases, signed tokens and database containers.
package testutil

import (
	"fmt"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/pis-platform/pis/internal/database"
	"github.com/pis-platform/pis/internal/models"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenDB opens a migrated in-memory SQLite database private to the test.
func OpenDB(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "failed to open test database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.AutoMigrate(db), "failed to migrate test database")
	t.Cleanup(func() { _ = sqlDB.Close() })

	return db
}

// SeedProperty inserts a property with one record in each section and a
// contact on the suite.
func SeedProperty(t testing.TB, db *gorm.DB, yardi string) models.Property {
	t.Helper()

	p := models.Property{
		Yardi:       yardi,
		Address:     "100 Main St",
		City:        "Phoenix",
		State:       "AZ",
		Zip:         "85004",
		PropManager: "Dana Lee",
		Active:      true,
	}
	require.NoError(t, db.Create(&p).Error)

	suite := models.Suite{PropertyYardi: yardi, Suite: "101", Name: "Acme Dental"}
	require.NoError(t, db.Create(&suite).Error)
	service := models.Service{PropertyYardi: yardi, ServiceType: "Landscaping", Vendor: "Green Co"}
	require.NoError(t, db.Create(&service).Error)
	utility := models.Utility{PropertyYardi: yardi, Service: "Electric", Vendor: "APS", AccountNumber: "A-1"}
	require.NoError(t, db.Create(&utility).Error)
	code := models.Code{PropertyYardi: yardi, Description: "Front door", Code: "1234"}
	require.NoError(t, db.Create(&code).Error)

	contact := models.Contact{SuiteID: &suite.SuiteID, PropertyYardi: yardi, Name: "Pat Smith"}
	require.NoError(t, db.Create(&contact).Error)

	suite.Contacts = []models.Contact{contact}
	p.Suites = []models.Suite{suite}
	p.Services = []models.Service{service}
	p.Utilities = []models.Utility{utility}
	p.Codes = []models.Code{code}
	return p
}
