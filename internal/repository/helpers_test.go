package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/dinepoints/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func openRepositoryTestDB(t *testing.T, name string) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return db
}

func createRepositoryTestCustomer(t *testing.T, db *gorm.DB, tenantID uint, phone string, balance int64) *models.Customer {
	t.Helper()
	customer := &models.Customer{
		TenantID:      tenantID,
		Name:          "Guest " + phone,
		Phone:         phone,
		PointsBalance: balance,
		Tier:          "Bronze",
	}
	if err := db.Create(customer).Error; err != nil {
		t.Fatalf("create customer failed: %v", err)
	}
	return customer
}
