package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/dinepoints/internal/constants"
	"github.com/dinepoints/internal/metrics"
	"github.com/dinepoints/internal/models"
	"github.com/dinepoints/internal/queue"
	"github.com/dinepoints/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LedgerService 积分/钱包账本记账原语
// 同一客户的所有变更都经过 withCustomer：进程内分段锁 + 事务内 FOR UPDATE 读取，
// 每笔流水的 balance_after 取自锁内的最新余额
type LedgerService struct {
	customerRepo repository.CustomerRepository
	txnRepo      repository.PointsTransactionRepository
	walletRepo   repository.WalletRepository
	publisher    EventPublisher
	locks        *customerLocks
}

// BalanceReplay 余额回放核对结果
type BalanceReplay struct {
	CustomerID      uint  `json:"customer_id"`
	StoredBalance   int64 `json:"stored_balance"`
	ReplayedBalance int64 `json:"replayed_balance"`
	SummedBalance   int64 `json:"summed_balance"` // 数据库聚合的流水合计
	Entries         int   `json:"entries"`
	Consistent      bool  `json:"consistent"`
	FirstMismatchID uint  `json:"first_mismatch_id,omitempty"` // 第一笔 balance_after 与回放不一致的流水
}

// NewLedgerService 创建账本服务
func NewLedgerService(
	customerRepo repository.CustomerRepository,
	txnRepo repository.PointsTransactionRepository,
	walletRepo repository.WalletRepository,
	publisher EventPublisher,
) *LedgerService {
	return &LedgerService{
		customerRepo: customerRepo,
		txnRepo:      txnRepo,
		walletRepo:   walletRepo,
		publisher:    publisher,
		locks:        newCustomerLocks(),
	}
}

// ledgerScope 单个客户的记账作用域，仅在 withCustomer 回调内有效
type ledgerScope struct {
	tx         *gorm.DB
	customer   *models.Customer
	setting    LoyaltySetting
	now        time.Time
	txns       *repository.GormPointsTransactionRepository
	wallets    *repository.GormWalletRepository
	tierBefore string
	posted     []models.PointsTransaction
	events     []queue.LoyaltyEventPayload
	dirty      bool
}

// withCustomer 在客户锁与数据库事务内执行 fn，提交后投递事件
func (l *LedgerService) withCustomer(tenantID, customerID uint, setting LoyaltySetting, now time.Time, fn func(scope *ledgerScope) error) error {
	if customerID == 0 {
		return ErrCustomerNotFound
	}
	unlock := l.locks.lock(customerID)
	defer unlock()

	var scope *ledgerScope
	err := l.customerRepo.Transaction(func(tx *gorm.DB) error {
		customer, err := l.customerRepo.WithTx(tx).GetByIDForUpdate(tenantID, customerID)
		if err != nil {
			return err
		}
		if customer == nil {
			return ErrCustomerNotFound
		}
		scope, err = l.runScope(tx, customer, setting, now, fn)
		return err
	})
	if err != nil {
		return err
	}
	l.afterCommit(scope)
	return nil
}

// runScope 在已开启的事务中执行记账，并在结束时一次性保存客户快照
func (l *LedgerService) runScope(tx *gorm.DB, customer *models.Customer, setting LoyaltySetting, now time.Time, fn func(scope *ledgerScope) error) (*ledgerScope, error) {
	scope := &ledgerScope{
		tx:         tx,
		customer:   customer,
		setting:    setting,
		now:        now,
		txns:       l.txnRepo.WithTx(tx),
		wallets:    l.walletRepo.WithTx(tx),
		tierBefore: customer.Tier,
	}
	if err := fn(scope); err != nil {
		return nil, err
	}
	if !scope.dirty {
		return scope, nil
	}
	if err := l.customerRepo.WithTx(tx).Update(customer); err != nil {
		return nil, err
	}
	return scope, nil
}

func (l *LedgerService) afterCommit(scope *ledgerScope) {
	if scope == nil {
		return
	}
	for _, entry := range scope.posted {
		metrics.RecordPoints(entry.Type, entry.Points)
	}
	events := scope.events
	if scope.tierBefore != "" && scope.customer.Tier != scope.tierBefore {
		events = append(events, queue.LoyaltyEventPayload{
			Type:        constants.LoyaltyEventTierChanged,
			Balance:     scope.customer.PointsBalance,
			Description: "Tier changed from " + scope.tierBefore + " to " + scope.customer.Tier,
			OccurredAt:  scope.now,
			Meta: map[string]interface{}{
				"previous_tier": scope.tierBefore,
			},
		})
	}
	for i := range events {
		events[i].TenantID = scope.customer.TenantID
		events[i].CustomerID = scope.customer.ID
		events[i].Tier = scope.customer.Tier
		if events[i].OccurredAt.IsZero() {
			events[i].OccurredAt = scope.now
		}
	}
	publishEvents(l.publisher, events)
}

// post 追加一笔积分流水并更新余额，余额不允许为负
func (s *ledgerScope) post(entry *models.PointsTransaction) error {
	if entry == nil || entry.Points == 0 {
		return ErrInvalidPoints
	}
	next := s.customer.PointsBalance + entry.Points
	if next < 0 {
		return ErrInsufficientPoints
	}
	entry.TenantID = s.customer.TenantID
	entry.CustomerID = s.customer.ID
	entry.BalanceAfter = next
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now
	}
	if entry.SourceTransactionIDs == nil {
		entry.SourceTransactionIDs = models.IDList{}
	}
	if err := s.txns.Append(entry); err != nil {
		return err
	}
	s.customer.PointsBalance = next
	s.customer.Tier = CalculateTier(next, s.setting.TierThresholds())
	s.posted = append(s.posted, *entry)
	s.dirty = true
	return nil
}

// postWallet 追加一笔钱包流水，余额不足返回 ErrInsufficientWallet
func (s *ledgerScope) postWallet(delta decimal.Decimal, txnType, reference, description string) (*models.WalletTransaction, error) {
	delta = delta.Round(2)
	if delta.IsZero() {
		return nil, ErrInvalidAmount
	}
	before := s.customer.WalletBalance.Decimal
	after := before.Add(delta)
	if after.IsNegative() {
		return nil, ErrInsufficientWallet
	}
	txn := &models.WalletTransaction{
		TenantID:      s.customer.TenantID,
		CustomerID:    s.customer.ID,
		Type:          txnType,
		Amount:        models.NewMoneyFromDecimal(delta),
		BalanceBefore: models.NewMoneyFromDecimal(before),
		BalanceAfter:  models.NewMoneyFromDecimal(after),
		Reference:     optionalReference(reference),
		Description:   strings.TrimSpace(description),
		CreatedAt:     s.now,
	}
	if err := s.wallets.CreateTransaction(txn); err != nil {
		return nil, err
	}
	s.customer.WalletBalance = models.NewMoneyFromDecimal(after)
	s.dirty = true
	s.emit(queue.LoyaltyEventPayload{
		Type:        constants.LoyaltyEventWalletChanged,
		AmountDelta: delta.StringFixed(2),
		Balance:     s.customer.PointsBalance,
		Description: txn.Description,
		Meta: map[string]interface{}{
			"wallet_balance": s.customer.WalletBalance.String(),
			"wallet_type":    txnType,
		},
	})
	return txn, nil
}

// hasReference 判断幂等键是否已记账
func (s *ledgerScope) hasReference(reference string) (bool, error) {
	if strings.TrimSpace(reference) == "" {
		return false, nil
	}
	existing, err := s.txns.GetByReference(s.customer.ID, reference)
	if err != nil {
		return false, err
	}
	return existing != nil, nil
}

// touch 标记客户快照需要保存（仅修改非余额字段时使用）
func (s *ledgerScope) touch() {
	s.dirty = true
}

func (s *ledgerScope) emit(event queue.LoyaltyEventPayload) {
	s.events = append(s.events, event)
}

// emitPoints 基于已记账流水生成事件
func (s *ledgerScope) emitPoints(eventType string, entry *models.PointsTransaction, meta map[string]interface{}) {
	event := queue.LoyaltyEventPayload{
		Type:        eventType,
		PointsDelta: entry.Points,
		Balance:     entry.BalanceAfter,
		Description: entry.Description,
		OccurredAt:  entry.CreatedAt,
		Meta:        meta,
	}
	if entry.BillAmount.IsPositive() {
		event.AmountDelta = entry.BillAmount.String()
	}
	s.emit(event)
}

// ListTransactions 查询积分流水
func (l *LedgerService) ListTransactions(filter repository.PointsTransactionFilter) ([]models.PointsTransaction, int64, error) {
	return l.txnRepo.Find(filter)
}

// ReplayBalance 按流水顺序从零回放余额，与客户当前余额、流水合计及每笔 balance_after 核对。
// 不一致时同时返回核对结果和 ErrBalanceInconsistent
func (l *LedgerService) ReplayBalance(tenantID, customerID uint) (*BalanceReplay, error) {
	customer, err := l.customerRepo.GetByID(tenantID, customerID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, ErrCustomerNotFound
	}
	entries, _, err := l.txnRepo.Find(repository.PointsTransactionFilter{
		TenantID:   tenantID,
		CustomerID: customerID,
		OrderAsc:   true,
	})
	if err != nil {
		return nil, err
	}
	result := &BalanceReplay{
		CustomerID:    customerID,
		StoredBalance: customer.PointsBalance,
		Entries:       len(entries),
	}
	var running int64
	for _, entry := range entries {
		running += entry.Points
		if result.FirstMismatchID == 0 && entry.BalanceAfter != running {
			result.FirstMismatchID = entry.ID
		}
	}
	result.ReplayedBalance = running
	summed, err := l.txnRepo.SumPoints(customerID)
	if err != nil {
		return nil, err
	}
	result.SummedBalance = summed
	result.Consistent = running == customer.PointsBalance && summed == customer.PointsBalance && result.FirstMismatchID == 0
	if !result.Consistent {
		return result, fmt.Errorf("%w: stored=%d replayed=%d summed=%d", ErrBalanceInconsistent, customer.PointsBalance, running, summed)
	}
	return result, nil
}

func optionalReference(reference string) *string {
	trimmed := strings.TrimSpace(reference)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
