package repository

import (
	"testing"
	"time"

	"github.com/dinepoints/internal/models"
)

func TestPointsTransactionRepositoryFindAndMarkExpired(t *testing.T) {
	db := openRepositoryTestDB(t, "points_txn_repo")
	repo := NewPointsTransactionRepository(db)
	customer := createRepositoryTestCustomer(t, db, 1, "500", 0)

	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	old := now.AddDate(0, 0, -200)
	entries := []models.PointsTransaction{
		{TenantID: 1, CustomerID: customer.ID, Type: "earn", Points: 40, BalanceAfter: 40, CreatedAt: old},
		{TenantID: 1, CustomerID: customer.ID, Type: "bonus", Points: 60, BalanceAfter: 100, CreatedAt: old.Add(time.Hour)},
		{TenantID: 1, CustomerID: customer.ID, Type: "redeem", Points: -20, BalanceAfter: 80, CreatedAt: old.Add(2 * time.Hour)},
		{TenantID: 1, CustomerID: customer.ID, Type: "earn", Points: 30, BalanceAfter: 110, CreatedAt: now},
	}
	for i := range entries {
		if err := repo.Append(&entries[i]); err != nil {
			t.Fatalf("append failed: %v", err)
		}
	}

	cutoff := now.AddDate(0, 0, -180)
	aged, total, err := repo.Find(PointsTransactionFilter{
		CustomerID: customer.ID,
		Types:      []string{"earn", "bonus"},
		OnlyActive: true,
		CreatedLT:  &cutoff,
		OrderAsc:   true,
	})
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if total != 2 || len(aged) != 2 || aged[0].ID != entries[0].ID {
		t.Fatalf("unexpected aged result total=%d items=%+v", total, aged)
	}

	affected, err := repo.MarkExpired([]uint{aged[0].ID, aged[1].ID}, now)
	if err != nil {
		t.Fatalf("mark expired failed: %v", err)
	}
	if affected != 2 {
		t.Fatalf("affected want 2 got %d", affected)
	}
	again, err := repo.MarkExpired([]uint{aged[0].ID}, now)
	if err != nil {
		t.Fatalf("second mark expired failed: %v", err)
	}
	if again != 0 {
		t.Fatalf("already expired rows should not be updated again, got %d", again)
	}

	sum, err := repo.SumPoints(customer.ID)
	if err != nil {
		t.Fatalf("sum failed: %v", err)
	}
	if sum != 110 {
		t.Fatalf("sum want 110 got %d", sum)
	}
}

func TestPointsTransactionRepositoryReferenceIsUniquePerCustomer(t *testing.T) {
	db := openRepositoryTestDB(t, "points_txn_ref")
	repo := NewPointsTransactionRepository(db)
	first := createRepositoryTestCustomer(t, db, 1, "1", 0)
	second := createRepositoryTestCustomer(t, db, 1, "2", 0)

	ref := "birthday:2026"
	if err := repo.Append(&models.PointsTransaction{TenantID: 1, CustomerID: first.ID, Type: "bonus", Points: 100, BalanceAfter: 100, Reference: &ref, CreatedAt: time.Now()}); err != nil {
		t.Fatalf("append first failed: %v", err)
	}
	if err := repo.Append(&models.PointsTransaction{TenantID: 1, CustomerID: second.ID, Type: "bonus", Points: 100, BalanceAfter: 100, Reference: &ref, CreatedAt: time.Now()}); err != nil {
		t.Fatalf("same reference for another customer should be allowed: %v", err)
	}
	if err := repo.Append(&models.PointsTransaction{TenantID: 1, CustomerID: first.ID, Type: "bonus", Points: 100, BalanceAfter: 200, Reference: &ref, CreatedAt: time.Now()}); err == nil {
		t.Fatalf("duplicate reference for the same customer should fail")
	}

	got, err := repo.GetByReference(first.ID, ref)
	if err != nil {
		t.Fatalf("get by reference failed: %v", err)
	}
	if got == nil || got.Points != 100 {
		t.Fatalf("unexpected reference lookup: %+v", got)
	}
}
