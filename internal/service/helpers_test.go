package service

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dinepoints/internal/config"
	"github.com/dinepoints/internal/models"
	"github.com/dinepoints/internal/queue"
	"github.com/dinepoints/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/hibiken/asynq"
	"gorm.io/gorm"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.LoyaltyEventPayload
}

func (p *recordingPublisher) EnqueueLoyaltyEvent(payload queue.LoyaltyEventPayload, opts ...asynq.Option) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, payload)
	return nil
}

func (p *recordingPublisher) countType(eventType string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	count := 0
	for _, event := range p.events {
		if event.Type == eventType {
			count++
		}
	}
	return count
}

type loyaltyTestEnv struct {
	db        *gorm.DB
	publisher *recordingPublisher
	settings  *SettingService
	ledger    *LedgerService
	coupons   *CouponService
	points    *PointsService
	bonuses   *BonusService
	expiry    *ExpiryService
	wallet    *WalletService
	customers *CustomerService
	feedback  *FeedbackService
	jobs      *LoyaltyJobService
}

func setupLoyaltyTest(t *testing.T) *loyaltyTestEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:loyalty_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	customerRepo := repository.NewCustomerRepository(db)
	txnRepo := repository.NewPointsTransactionRepository(db)
	walletRepo := repository.NewWalletRepository(db)
	publisher := &recordingPublisher{}

	settings := NewSettingService(repository.NewLoyaltySettingRepository(db), "UTC")
	ledger := NewLedgerService(customerRepo, txnRepo, walletRepo, publisher)
	coupons := NewCouponService(repository.NewCouponRepository(db), repository.NewCouponUsageRepository(db), publisher)
	bonuses := NewBonusService(ledger, customerRepo)
	expiry := NewExpiryService(ledger, customerRepo, txnRepo)
	env := &loyaltyTestEnv{
		db:        db,
		publisher: publisher,
		settings:  settings,
		ledger:    ledger,
		coupons:   coupons,
		points:    NewPointsService(ledger, settings, coupons, repository.NewLoyaltyOrderRepository(db)),
		bonuses:   bonuses,
		expiry:    expiry,
		wallet:    NewWalletService(ledger, settings, walletRepo),
		customers: NewCustomerService(customerRepo, ledger, settings),
		feedback:  NewFeedbackService(repository.NewFeedbackRepository(db), ledger, settings),
		jobs: NewLoyaltyJobService(settings, bonuses, expiry, repository.NewCronJobLogRepository(db), config.LoyaltyConfig{
			Schedule:        "30 0 * * *",
			Timezone:        "UTC",
			LockTTLSeconds:  60,
			RunLogRetention: 3,
		}),
	}
	return env
}

// setNow 固定所有服务的当前时间
func (e *loyaltyTestEnv) setNow(now time.Time) {
	clock := func() time.Time { return now }
	e.coupons.now = clock
	e.points.now = clock
	e.bonuses.now = clock
	e.expiry.now = clock
	e.wallet.now = clock
	e.customers.now = clock
	e.feedback.now = clock
	e.jobs.now = clock
}

func (e *loyaltyTestEnv) saveSetting(t *testing.T, tenantID uint, patch map[string]interface{}) LoyaltySetting {
	t.Helper()
	if patch == nil {
		patch = map[string]interface{}{}
	}
	if _, ok := patch["timezone"]; !ok {
		patch["timezone"] = "UTC"
	}
	setting, err := e.settings.UpdateLoyaltySetting(tenantID, patch)
	if err != nil {
		t.Fatalf("save setting failed: %v", err)
	}
	return setting
}

func (e *loyaltyTestEnv) createCustomer(t *testing.T, tenantID uint, phone string, balance int64) *models.Customer {
	t.Helper()
	customer := &models.Customer{
		TenantID:      tenantID,
		Name:          "Guest " + phone,
		Phone:         phone,
		PointsBalance: balance,
		Tier:          "Bronze",
		WalletBalance: models.ZeroMoney(),
		TotalSpent:    models.ZeroMoney(),
		CreatedAt:     time.Now().UTC(),
		UpdatedAt:     time.Now().UTC(),
	}
	if err := e.db.Create(customer).Error; err != nil {
		t.Fatalf("create customer failed: %v", err)
	}
	return customer
}

func (e *loyaltyTestEnv) reloadCustomer(t *testing.T, id uint) *models.Customer {
	t.Helper()
	var customer models.Customer
	if err := e.db.First(&customer, id).Error; err != nil {
		t.Fatalf("reload customer failed: %v", err)
	}
	return &customer
}

// seedTransaction 直接写入历史流水（用于过期场景）
func (e *loyaltyTestEnv) seedTransaction(t *testing.T, customer *models.Customer, txnType string, points int64, createdAt time.Time) *models.PointsTransaction {
	t.Helper()
	txn := &models.PointsTransaction{
		TenantID:             customer.TenantID,
		CustomerID:           customer.ID,
		Type:                 txnType,
		Points:               points,
		BillAmount:           models.ZeroMoney(),
		Description:          "seed",
		BalanceAfter:         customer.PointsBalance,
		SourceTransactionIDs: models.IDList{},
		CreatedAt:            createdAt,
	}
	if err := e.db.Create(txn).Error; err != nil {
		t.Fatalf("seed transaction failed: %v", err)
	}
	return txn
}
