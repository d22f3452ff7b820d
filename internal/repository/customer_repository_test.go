package repository

import (
	"testing"

	"github.com/dinepoints/internal/models"

	"gorm.io/gorm"
)

func TestCustomerRepositoryTenantIsolation(t *testing.T) {
	db := openRepositoryTestDB(t, "customer_repo_tenant")
	repo := NewCustomerRepository(db)

	first := createRepositoryTestCustomer(t, db, 1, "9800000001", 10)
	createRepositoryTestCustomer(t, db, 2, "9800000001", 20)

	got, err := repo.GetByPhone(1, " 9800000001 ")
	if err != nil {
		t.Fatalf("get by phone failed: %v", err)
	}
	if got == nil || got.ID != first.ID {
		t.Fatalf("expected tenant 1 customer, got %+v", got)
	}

	other, err := repo.GetByID(2, first.ID)
	if err != nil {
		t.Fatalf("get by id failed: %v", err)
	}
	if other != nil {
		t.Fatalf("customer should not be visible across tenants")
	}
}

func TestCustomerRepositoryListIDsWithPositiveBalance(t *testing.T) {
	db := openRepositoryTestDB(t, "customer_repo_positive")
	repo := NewCustomerRepository(db)

	a := createRepositoryTestCustomer(t, db, 1, "1", 0)
	b := createRepositoryTestCustomer(t, db, 1, "2", 15)
	createRepositoryTestCustomer(t, db, 2, "3", 50)

	ids, err := repo.ListIDsWithPositiveBalance(1)
	if err != nil {
		t.Fatalf("list ids failed: %v", err)
	}
	if len(ids) != 1 || ids[0] != b.ID {
		t.Fatalf("expected only customer %d, got %v", b.ID, ids)
	}

	all, err := repo.ListIDsByTenant(1)
	if err != nil {
		t.Fatalf("list tenant ids failed: %v", err)
	}
	if len(all) != 2 || all[0] != a.ID {
		t.Fatalf("unexpected tenant ids: %v", all)
	}
}

func TestCustomerRepositoryForUpdateInTransaction(t *testing.T) {
	db := openRepositoryTestDB(t, "customer_repo_lock")
	repo := NewCustomerRepository(db)
	customer := createRepositoryTestCustomer(t, db, 1, "77", 5)

	err := repo.Transaction(func(tx *gorm.DB) error {
		locked, err := repo.WithTx(tx).GetByIDForUpdate(1, customer.ID)
		if err != nil {
			return err
		}
		locked.PointsBalance += 10
		return repo.WithTx(tx).Update(locked)
	})
	if err != nil {
		t.Fatalf("transaction failed: %v", err)
	}

	var reloaded models.Customer
	if err := db.First(&reloaded, customer.ID).Error; err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if reloaded.PointsBalance != 15 {
		t.Fatalf("balance want 15 got %d", reloaded.PointsBalance)
	}
}

func TestCustomerRepositoryListKeyword(t *testing.T) {
	db := openRepositoryTestDB(t, "customer_repo_keyword")
	repo := NewCustomerRepository(db)
	createRepositoryTestCustomer(t, db, 1, "9811111111", 0)
	createRepositoryTestCustomer(t, db, 1, "9822222222", 0)

	items, total, err := repo.List(CustomerListFilter{TenantID: 1, Keyword: "98111", Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 1 || len(items) != 1 || items[0].Phone != "9811111111" {
		t.Fatalf("unexpected list result total=%d items=%+v", total, items)
	}
}
