package repository

import (
	"testing"
	"time"

	"github.com/dinepoints/internal/models"
)

func TestWalletRepositoryListTransactions(t *testing.T) {
	db := openRepositoryTestDB(t, "wallet_repo")
	repo := NewWalletRepository(db)
	now := time.Now().UTC().Truncate(time.Second)

	ref := "order:A1:wallet"
	txns := []models.WalletTransaction{
		{TenantID: 1, CustomerID: 5, Type: "credit", Amount: models.MustMoney("100"), BalanceBefore: models.MustMoney("0"), BalanceAfter: models.MustMoney("100"), CreatedAt: now.Add(-time.Hour)},
		{TenantID: 1, CustomerID: 5, Type: "order_pay", Amount: models.MustMoney("-40"), BalanceBefore: models.MustMoney("100"), BalanceAfter: models.MustMoney("60"), Reference: &ref, CreatedAt: now},
		{TenantID: 2, CustomerID: 9, Type: "credit", Amount: models.MustMoney("10"), BalanceBefore: models.MustMoney("0"), BalanceAfter: models.MustMoney("10"), CreatedAt: now},
	}
	for i := range txns {
		if err := repo.CreateTransaction(&txns[i]); err != nil {
			t.Fatalf("create txn failed: %v", err)
		}
	}

	items, total, err := repo.ListTransactions(WalletTransactionListFilter{TenantID: 1, CustomerID: 5, Page: 1, PageSize: 20})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 2 || len(items) != 2 {
		t.Fatalf("unexpected total=%d len=%d", total, len(items))
	}
	if items[0].Type != "order_pay" {
		t.Fatalf("expected newest first, got %s", items[0].Type)
	}

	found, err := repo.GetTransactionByReference(5, ref)
	if err != nil {
		t.Fatalf("get by reference failed: %v", err)
	}
	if found == nil || !found.BalanceAfter.Equal(models.MustMoney("60").Decimal) {
		t.Fatalf("unexpected reference txn: %+v", found)
	}
}
