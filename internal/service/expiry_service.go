package service

import (
	"fmt"
	"time"

	"github.com/dinepoints/internal/constants"
	"github.com/dinepoints/internal/logger"
	"github.com/dinepoints/internal/models"
	"github.com/dinepoints/internal/queue"
	"github.com/dinepoints/internal/repository"
)

// ExpiryService 积分过期与过期提醒服务
type ExpiryService struct {
	ledger       *LedgerService
	customerRepo repository.CustomerRepository
	txnRepo      repository.PointsTransactionRepository
	now          func() time.Time
}

// ExpiryReminder 过期提醒记录
type ExpiryReminder struct {
	CustomerID     uint      `json:"customer_id"`
	ExpiringPoints int64     `json:"expiring_points"`
	EarliestExpiry time.Time `json:"earliest_expiry"`
}

// ReminderRunResult 提醒扫描结果
type ReminderRunResult struct {
	CustomersReminded int              `json:"customers_reminded"`
	PointsExpiring    int64            `json:"points_expiring"`
	Reminders         []ExpiryReminder `json:"reminders"`
	Errors            []string         `json:"errors,omitempty"`
}

// ExpiryRunResult 过期处理结果
type ExpiryRunResult struct {
	CustomersAffected int      `json:"customers_affected"`
	PointsExpired     int64    `json:"points_expired"`
	Errors            []string `json:"errors,omitempty"`
}

// CustomerExpirySummary 单个客户的过期概览
type CustomerExpirySummary struct {
	CustomerID       uint       `json:"customer_id"`
	Balance          int64      `json:"total_points"`
	ExpiringSoon     int64      `json:"expiring_soon"`
	AlreadyExpired   int64      `json:"already_expired"`
	EarliestExpiry   *time.Time `json:"earliest_expiry,omitempty"`
	ExpiryMonths     int        `json:"expiry_months"`
	ReminderLeadDays int        `json:"reminder_days"`
}

// NewExpiryService 创建过期服务
func NewExpiryService(ledger *LedgerService, customerRepo repository.CustomerRepository, txnRepo repository.PointsTransactionRepository) *ExpiryService {
	return &ExpiryService{
		ledger:       ledger,
		customerRepo: customerRepo,
		txnRepo:      txnRepo,
		now:          time.Now,
	}
}

// SendReminders 扫描即将过期的积分并生成提醒，不改动余额
func (s *ExpiryService) SendReminders(tenantID uint, setting LoyaltySetting) (*ReminderRunResult, error) {
	result := &ReminderRunResult{Reminders: []ExpiryReminder{}, Errors: []string{}}
	now := s.now()
	window := NewExpiryWindow(setting, now)
	if !window.Enabled {
		return result, nil
	}
	ids, err := s.customerRepo.ListIDsWithPositiveBalance(tenantID)
	if err != nil {
		return nil, err
	}
	loc := setting.Location()
	for _, id := range ids {
		var reminder *ExpiryReminder
		err := s.ledger.withCustomer(tenantID, id, setting, now, func(scope *ledgerScope) error {
			if remindedThisMonth(scope.customer.LastExpiryReminderAt, now, loc) {
				return nil
			}
			entries, _, err := scope.txns.Find(repository.PointsTransactionFilter{
				CustomerID:  scope.customer.ID,
				Types:       expirableTypes(),
				OnlyActive:  true,
				CreatedFrom: &window.Cutoff,
				CreatedTo:   &window.ReminderCutoff,
				OrderAsc:    true,
			})
			if err != nil {
				return err
			}
			expiring, oldest := sumExpirable(entries)
			if expiring <= 0 {
				return nil
			}
			reminder = &ExpiryReminder{
				CustomerID:     scope.customer.ID,
				ExpiringPoints: expiring,
				EarliestExpiry: window.ExpiresAt(oldest),
			}
			scope.customer.LastExpiryReminderAt = &now
			scope.touch()
			scope.emit(queue.LoyaltyEventPayload{
				Type:        constants.LoyaltyEventExpiryReminder,
				Balance:     scope.customer.PointsBalance,
				Description: fmt.Sprintf("%d points expire on %s", expiring, reminder.EarliestExpiry.In(loc).Format(anchorDateLayout)),
				Meta: map[string]interface{}{
					"expiring_points": expiring,
					"earliest_expiry": reminder.EarliestExpiry,
				},
			})
			return nil
		})
		if err != nil {
			logger.Warnw("expiry_reminder_failed", "tenant_id", tenantID, "customer_id", id, "error", err)
			result.Errors = append(result.Errors, fmt.Sprintf("customer %d: %v", id, err))
			continue
		}
		if reminder != nil {
			result.CustomersReminded++
			result.PointsExpiring += reminder.ExpiringPoints
			result.Reminders = append(result.Reminders, *reminder)
		}
	}
	return result, nil
}

// ExpirePoints 过期早于截止时间的积分，过期数量不超过当前余额
func (s *ExpiryService) ExpirePoints(tenantID uint, setting LoyaltySetting) (*ExpiryRunResult, error) {
	result := &ExpiryRunResult{Errors: []string{}}
	now := s.now()
	window := NewExpiryWindow(setting, now)
	if !window.Enabled {
		return result, nil
	}
	ids, err := s.customerRepo.ListIDsWithPositiveBalance(tenantID)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		var expired int64
		err := s.ledger.withCustomer(tenantID, id, setting, now, func(scope *ledgerScope) error {
			var err error
			expired, err = expireInScope(scope, window)
			return err
		})
		if err != nil {
			logger.Warnw("points_expiry_failed", "tenant_id", tenantID, "customer_id", id, "error", err)
			result.Errors = append(result.Errors, fmt.Sprintf("customer %d: %v", id, err))
			continue
		}
		if expired > 0 {
			result.CustomersAffected++
			result.PointsExpired += expired
		}
	}
	return result, nil
}

// expireInScope 锁内计算并记入过期流水
func expireInScope(scope *ledgerScope, window ExpiryWindow) (int64, error) {
	entries, _, err := scope.txns.Find(repository.PointsTransactionFilter{
		CustomerID: scope.customer.ID,
		Types:      expirableTypes(),
		OnlyActive: true,
		CreatedLT:  &window.Cutoff,
		OrderAsc:   true,
	})
	if err != nil {
		return 0, err
	}
	total, _ := sumExpirable(entries)
	amount := total
	if amount > scope.customer.PointsBalance {
		amount = scope.customer.PointsBalance
	}
	if amount <= 0 {
		return 0, nil
	}
	ids := make(models.IDList, 0, len(entries))
	for _, entry := range entries {
		ids = append(ids, entry.ID)
	}
	if _, err := scope.txns.MarkExpired(ids, scope.now); err != nil {
		return 0, err
	}
	entry := &models.PointsTransaction{
		Type:                 constants.PointsTxnTypeExpired,
		Points:               -amount,
		Description:          fmt.Sprintf("%d points expired after %d months", amount, window.Months),
		SourceTransactionIDs: ids,
	}
	if err := scope.post(entry); err != nil {
		return 0, err
	}
	now := scope.now
	scope.customer.LastPointsExpiryAt = &now
	scope.emitPoints(constants.LoyaltyEventPointsExpired, entry, map[string]interface{}{
		"source_points":       total,
		"source_transactions": len(ids),
	})
	return amount, nil
}

// CustomerExpirySummary 查询客户积分的过期情况
func (s *ExpiryService) CustomerExpirySummary(tenantID, customerID uint, setting LoyaltySetting) (*CustomerExpirySummary, error) {
	customer, err := s.customerRepo.GetByID(tenantID, customerID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, ErrCustomerNotFound
	}
	summary := &CustomerExpirySummary{
		CustomerID:       customer.ID,
		Balance:          customer.PointsBalance,
		ExpiryMonths:     setting.PointsExpiryMonths,
		ReminderLeadDays: setting.ExpiryReminderDays,
	}
	expiredEntries, _, err := s.txnRepo.Find(repository.PointsTransactionFilter{
		TenantID:   tenantID,
		CustomerID: customer.ID,
		Types:      []string{constants.PointsTxnTypeExpired},
	})
	if err != nil {
		return nil, err
	}
	for _, entry := range expiredEntries {
		summary.AlreadyExpired -= entry.Points
	}

	window := NewExpiryWindow(setting, s.now())
	if !window.Enabled {
		return summary, nil
	}
	active, _, err := s.txnRepo.Find(repository.PointsTransactionFilter{
		TenantID:    tenantID,
		CustomerID:  customer.ID,
		Types:       expirableTypes(),
		OnlyActive:  true,
		CreatedFrom: &window.Cutoff,
		OrderAsc:    true,
	})
	if err != nil {
		return nil, err
	}
	for _, entry := range active {
		if entry.Points <= 0 {
			continue
		}
		if summary.EarliestExpiry == nil {
			expiresAt := window.ExpiresAt(entry.CreatedAt)
			summary.EarliestExpiry = &expiresAt
		}
		if !entry.CreatedAt.After(window.ReminderCutoff) {
			summary.ExpiringSoon += entry.Points
		}
	}
	if summary.ExpiringSoon > summary.Balance {
		summary.ExpiringSoon = summary.Balance
	}
	return summary, nil
}

func expirableTypes() []string {
	return []string{constants.PointsTxnTypeEarn, constants.PointsTxnTypeBonus}
}

// sumExpirable 汇总正向积分，返回最早一笔的创建时间（entries 需按 id 升序）
func sumExpirable(entries []models.PointsTransaction) (int64, time.Time) {
	var total int64
	var oldest time.Time
	for _, entry := range entries {
		if entry.Points <= 0 {
			continue
		}
		total += entry.Points
		if oldest.IsZero() || entry.CreatedAt.Before(oldest) {
			oldest = entry.CreatedAt
		}
	}
	return total, oldest
}

// remindedThisMonth 本自然月（商户时区）是否已提醒过
func remindedThisMonth(last *time.Time, now time.Time, loc *time.Location) bool {
	if last == nil || last.IsZero() {
		return false
	}
	a := last.In(loc)
	b := now.In(loc)
	return a.Year() == b.Year() && a.Month() == b.Month()
}
