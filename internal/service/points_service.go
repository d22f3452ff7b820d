package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dinepoints/internal/constants"
	"github.com/dinepoints/internal/logger"
	"github.com/dinepoints/internal/metrics"
	"github.com/dinepoints/internal/models"
	"github.com/dinepoints/internal/repository"

	"github.com/shopspring/decimal"
)

// PointsService 积分获取/抵扣服务（POS 订单入口）
type PointsService struct {
	ledger     *LedgerService
	settingSvc *SettingService
	couponSvc  *CouponService
	orderRepo  repository.LoyaltyOrderRepository
	now        func() time.Time
}

// EarnInput 消费积分输入
type EarnInput struct {
	TenantID   uint
	CustomerID uint
	BillAmount decimal.Decimal
	OrderRef   string
}

// EarnResult 消费积分结果
type EarnResult struct {
	Points       int64                     `json:"points"`
	BasePoints   int64                     `json:"base_points"`
	OffPeakBonus int64                     `json:"off_peak_bonus"`
	EarnPercent  decimal.Decimal           `json:"percentage"`
	BelowMinimum bool                      `json:"below_minimum"`
	Duplicate    bool                      `json:"duplicate,omitempty"`
	Balance      int64                     `json:"new_balance"`
	Tier         string                    `json:"tier"`
	Transaction  *models.PointsTransaction `json:"transaction,omitempty"`
}

// RedeemInput 积分抵扣输入
type RedeemInput struct {
	TenantID   uint
	CustomerID uint
	Points     int64
	BillAmount decimal.Decimal
	OrderRef   string
}

// RedeemResult 积分抵扣结果
type RedeemResult struct {
	Quote       RedemptionQuote           `json:"-"`
	Points      int64                     `json:"points"`
	Value       decimal.Decimal           `json:"value"`
	Capped      bool                      `json:"capped"`
	Balance     int64                     `json:"new_balance"`
	Tier        string                    `json:"tier"`
	Transaction *models.PointsTransaction `json:"transaction,omitempty"`
}

// OrderInput POS 订单输入
type OrderInput struct {
	TenantID     uint
	OrderRef     string // POS 订单号，作为幂等键
	CustomerID   uint
	BillAmount   decimal.Decimal
	Channel      string
	CouponCode   string
	RedeemPoints int64
	WalletAmount decimal.Decimal
}

// OrderResult POS 订单处理结果
type OrderResult struct {
	Receipt       *models.LoyaltyOrder `json:"receipt"`
	Duplicate     bool                 `json:"duplicate"`
	WalletBalance models.Money         `json:"wallet_balance"`
}

// ManualTransactionInput 运营手工积分调整输入
type ManualTransactionInput struct {
	TenantID    uint
	CustomerID  uint
	Type        string // earn / redeem / bonus
	Points      int64
	BillAmount  decimal.Decimal
	Description string
	Reference   string
}

// NewPointsService 创建积分服务
func NewPointsService(
	ledger *LedgerService,
	settingSvc *SettingService,
	couponSvc *CouponService,
	orderRepo repository.LoyaltyOrderRepository,
) *PointsService {
	return &PointsService{
		ledger:     ledger,
		settingSvc: settingSvc,
		couponSvc:  couponSvc,
		orderRepo:  orderRepo,
		now:        time.Now,
	}
}

// Earn 按账单金额为客户累积积分；低于最低消费时不记流水、不报错
func (s *PointsService) Earn(input EarnInput) (*EarnResult, error) {
	if !input.BillAmount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	setting, err := s.settingSvc.GetLoyaltySetting(input.TenantID)
	if err != nil {
		return nil, err
	}
	var result EarnResult
	err = s.ledger.withCustomer(input.TenantID, input.CustomerID, setting, s.now(), func(scope *ledgerScope) error {
		reference := orderEntryReference(input.OrderRef, constants.PointsTxnTypeEarn)
		earned, err := applyEarn(scope, input.BillAmount, scope.customer.Tier, reference, input.OrderRef)
		if err != nil {
			return err
		}
		if !earned.Duplicate {
			recordVisit(scope, input.BillAmount)
		}
		result = earned
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Redeem 抵扣积分，需提供账单金额用于计算上限
func (s *PointsService) Redeem(input RedeemInput) (*RedeemResult, error) {
	if !input.BillAmount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	setting, err := s.settingSvc.GetLoyaltySetting(input.TenantID)
	if err != nil {
		return nil, err
	}
	var result RedeemResult
	err = s.ledger.withCustomer(input.TenantID, input.CustomerID, setting, s.now(), func(scope *ledgerScope) error {
		reference := orderEntryReference(input.OrderRef, constants.PointsTxnTypeRedeem)
		redeemed, err := applyRedeem(scope, input.Points, input.BillAmount, reference, input.OrderRef)
		if err != nil {
			return err
		}
		result = redeemed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// ProcessOrder 处理一笔 POS 订单：优惠券 -> 积分抵扣 -> 钱包支付 -> 消费积分
// 抵扣基于下单前余额，消费积分按原始账单与下单前等级计算；同一订单号重复提交直接返回首次结果
func (s *PointsService) ProcessOrder(input OrderInput) (*OrderResult, error) {
	started := time.Now()
	result, err := s.processOrder(input)
	status := "success"
	switch {
	case err != nil:
		status = "failure"
	case result.Duplicate:
		status = "duplicate"
	}
	metrics.RecordOrderProcessDuration(status, time.Since(started).Seconds())
	return result, err
}

func (s *PointsService) processOrder(input OrderInput) (*OrderResult, error) {
	orderRef := strings.TrimSpace(input.OrderRef)
	if orderRef == "" {
		return nil, ErrOrderRefRequired
	}
	if !input.BillAmount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if input.RedeemPoints < 0 || input.WalletAmount.IsNegative() {
		return nil, ErrInvalidAmount
	}

	existing, err := s.orderRepo.GetByOrderRef(input.TenantID, orderRef)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return s.duplicateResult(existing), nil
	}

	setting, err := s.settingSvc.GetLoyaltySetting(input.TenantID)
	if err != nil {
		return nil, err
	}

	bill := input.BillAmount.Round(2)
	channel := normalizeChannel(input.Channel)
	result := &OrderResult{}
	couponApplied := false
	err = s.ledger.withCustomer(input.TenantID, input.CustomerID, setting, s.now(), func(scope *ledgerScope) error {
		orderRepo := s.orderRepo.WithTx(scope.tx)
		prior, err := orderRepo.GetByOrderRef(input.TenantID, orderRef)
		if err != nil {
			return err
		}
		if prior != nil {
			result.Receipt = prior
			result.Duplicate = true
			return nil
		}

		tierAtStart := scope.customer.Tier
		receipt := &models.LoyaltyOrder{
			TenantID:       input.TenantID,
			OrderRef:       orderRef,
			CustomerID:     scope.customer.ID,
			Channel:        channel,
			BillAmount:     models.NewMoneyFromDecimal(bill),
			CouponDiscount: models.ZeroMoney(),
			RedeemValue:    models.ZeroMoney(),
			WalletUsed:     models.ZeroMoney(),
			CreatedAt:      scope.now,
		}
		payable := bill

		if code := normalizeCouponCode(input.CouponCode); code != "" {
			quote, usage, err := s.couponSvc.applyInTx(scope.tx, CouponCheckInput{
				TenantID:   input.TenantID,
				Code:       code,
				CustomerID: scope.customer.ID,
				OrderValue: bill,
				Channel:    channel,
				OrderRef:   orderRef,
			})
			if err != nil {
				return err
			}
			receipt.CouponCode = code
			receipt.CouponDiscount = models.NewMoneyFromDecimal(quote.Discount)
			payable = payable.Sub(quote.Discount)
			scope.emit(couponRedeemedEvent(quote, usage))
			couponApplied = true
		}

		if input.RedeemPoints > 0 {
			redeemed, err := applyRedeem(scope, input.RedeemPoints, payable, orderEntryReference(orderRef, constants.PointsTxnTypeRedeem), orderRef)
			if err != nil {
				return err
			}
			receipt.PointsRedeemed = redeemed.Points
			receipt.RedeemValue = models.NewMoneyFromDecimal(redeemed.Value)
			payable = payable.Sub(redeemed.Value)
		}

		if input.WalletAmount.IsPositive() && payable.IsPositive() {
			use := decimal.Min(input.WalletAmount, payable).Round(2)
			if _, err := scope.postWallet(use.Neg(), constants.WalletTxnTypeOrderPay, orderEntryReference(orderRef, "wallet"), "Paid order "+orderRef+" from wallet"); err != nil {
				return err
			}
			receipt.WalletUsed = models.NewMoneyFromDecimal(use)
			payable = payable.Sub(use)
		}

		earned, err := applyEarn(scope, bill, tierAtStart, orderEntryReference(orderRef, constants.PointsTxnTypeEarn), orderRef)
		if err != nil {
			return err
		}
		receipt.PointsEarned = earned.Points
		receipt.EarnPercent = models.NewMoneyFromDecimal(earned.EarnPercent)
		receipt.OffPeakBonus = earned.OffPeakBonus
		recordVisit(scope, bill)

		receipt.FinalAmount = models.NewMoneyFromDecimal(payable)
		receipt.BalanceAfter = scope.customer.PointsBalance
		receipt.TierAfter = scope.customer.Tier
		if err := orderRepo.Create(receipt); err != nil {
			return err
		}
		result.Receipt = receipt
		result.WalletBalance = scope.customer.WalletBalance
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrCouponInvalid) {
			metrics.RecordCouponApplication("rejected")
			logCouponRejected(input.TenantID, input.CouponCode, err)
		}
		return nil, err
	}
	if couponApplied && !result.Duplicate {
		metrics.RecordCouponApplication("applied")
	}
	logger.Infow("pos_order_processed",
		"tenant_id", input.TenantID,
		"customer_id", input.CustomerID,
		"order_ref", orderRef,
		"duplicate", result.Duplicate,
		"points_earned", result.Receipt.PointsEarned,
		"points_redeemed", result.Receipt.PointsRedeemed,
	)
	return result, nil
}

func (s *PointsService) duplicateResult(receipt *models.LoyaltyOrder) *OrderResult {
	return &OrderResult{Receipt: receipt, Duplicate: true}
}

// ManualTransaction 运营手工记账（earn/redeem/bonus，积分为正数）
func (s *PointsService) ManualTransaction(input ManualTransactionInput) (*models.PointsTransaction, error) {
	if input.Points <= 0 {
		return nil, ErrInvalidPoints
	}
	txnType := strings.ToLower(strings.TrimSpace(input.Type))
	delta := input.Points
	switch txnType {
	case constants.PointsTxnTypeEarn, constants.PointsTxnTypeBonus:
	case constants.PointsTxnTypeRedeem:
		delta = -input.Points
	default:
		return nil, ErrInvalidPoints
	}
	if input.BillAmount.IsNegative() {
		return nil, ErrInvalidAmount
	}
	setting, err := s.settingSvc.GetLoyaltySetting(input.TenantID)
	if err != nil {
		return nil, err
	}
	var posted *models.PointsTransaction
	err = s.ledger.withCustomer(input.TenantID, input.CustomerID, setting, s.now(), func(scope *ledgerScope) error {
		if dup, err := scope.hasReference(input.Reference); err != nil {
			return err
		} else if dup {
			existing, err := scope.txns.GetByReference(scope.customer.ID, input.Reference)
			if err != nil {
				return err
			}
			posted = existing
			return nil
		}
		description := strings.TrimSpace(input.Description)
		if description == "" {
			description = fmt.Sprintf("Manual %s of %d points", txnType, input.Points)
		}
		entry := &models.PointsTransaction{
			Type:        txnType,
			Points:      delta,
			BillAmount:  models.NewMoneyFromDecimal(input.BillAmount),
			Description: description,
			Reference:   optionalReference(input.Reference),
		}
		if err := scope.post(entry); err != nil {
			return err
		}
		if txnType == constants.PointsTxnTypeEarn && input.BillAmount.IsPositive() {
			recordVisit(scope, input.BillAmount)
		}
		eventType := constants.LoyaltyEventPointsEarned
		switch txnType {
		case constants.PointsTxnTypeRedeem:
			eventType = constants.LoyaltyEventPointsRedeemed
		case constants.PointsTxnTypeBonus:
			eventType = constants.LoyaltyEventBonusAwarded
		}
		scope.emitPoints(eventType, entry, map[string]interface{}{"manual": true})
		posted = entry
		return nil
	})
	if err != nil {
		return nil, err
	}
	return posted, nil
}

// ListTransactions 查询客户积分流水
func (s *PointsService) ListTransactions(filter repository.PointsTransactionFilter) ([]models.PointsTransaction, int64, error) {
	return s.ledger.ListTransactions(filter)
}

// ReplayBalance 余额回放核对
func (s *PointsService) ReplayBalance(tenantID, customerID uint) (*BalanceReplay, error) {
	return s.ledger.ReplayBalance(tenantID, customerID)
}

// applyEarn 在作用域内按指定等级计算并记入消费积分
func applyEarn(scope *ledgerScope, bill decimal.Decimal, tier, reference, orderRef string) (EarnResult, error) {
	setting := scope.setting
	result := EarnResult{
		EarnPercent: EarnPercentForTier(setting, tier),
		Balance:     scope.customer.PointsBalance,
		Tier:        scope.customer.Tier,
	}
	if bill.LessThan(setting.MinOrderValue) {
		result.BelowMinimum = true
		result.EarnPercent = decimal.Zero
		return result, nil
	}
	if dup, err := scope.hasReference(reference); err != nil {
		return result, err
	} else if dup {
		result.Duplicate = true
		return result, nil
	}

	base := bill.Mul(result.EarnPercent).Div(decimal.NewFromInt(100)).Floor().IntPart()
	bonus := OffPeakBonus(setting, base, scope.now)
	total := base + bonus
	result.BasePoints = base
	result.OffPeakBonus = bonus
	if total <= 0 {
		return result, nil
	}

	description := fmt.Sprintf("Earned %s%% on bill of %s", result.EarnPercent.String(), bill.StringFixed(2))
	if bonus > 0 {
		description += fmt.Sprintf(" + %d off-peak bonus", bonus)
	}
	entry := &models.PointsTransaction{
		Type:        constants.PointsTxnTypeEarn,
		Points:      total,
		BillAmount:  models.NewMoneyFromDecimal(bill),
		Description: description,
		Reference:   optionalReference(reference),
		OrderRef:    strings.TrimSpace(orderRef),
	}
	if err := scope.post(entry); err != nil {
		return result, err
	}
	scope.emitPoints(constants.LoyaltyEventPointsEarned, entry, map[string]interface{}{
		"earn_percent":   result.EarnPercent.String(),
		"base_points":    base,
		"off_peak_bonus": bonus,
	})
	result.Points = total
	result.Balance = scope.customer.PointsBalance
	result.Tier = scope.customer.Tier
	result.Transaction = entry
	return result, nil
}

// applyRedeem 在作用域内按上限规则抵扣积分
func applyRedeem(scope *ledgerScope, requested int64, bill decimal.Decimal, reference, orderRef string) (RedeemResult, error) {
	quote, err := QuoteRedemption(scope.setting, scope.customer.PointsBalance, requested, bill)
	if err != nil {
		return RedeemResult{Quote: quote}, err
	}
	if dup, err := scope.hasReference(reference); err != nil {
		return RedeemResult{Quote: quote}, err
	} else if dup {
		return RedeemResult{Quote: quote}, fmt.Errorf("%w: reference %s already used", ErrInvalidPoints, reference)
	}
	entry := &models.PointsTransaction{
		Type:        constants.PointsTxnTypeRedeem,
		Points:      -quote.Points,
		BillAmount:  models.NewMoneyFromDecimal(bill),
		Description: fmt.Sprintf("Redeemed %d points worth %s", quote.Points, quote.Value.StringFixed(2)),
		Reference:   optionalReference(reference),
		OrderRef:    strings.TrimSpace(orderRef),
	}
	if err := scope.post(entry); err != nil {
		return RedeemResult{Quote: quote}, err
	}
	scope.emitPoints(constants.LoyaltyEventPointsRedeemed, entry, map[string]interface{}{
		"redeem_value": quote.Value.StringFixed(2),
		"capped":       quote.Capped,
	})
	return RedeemResult{
		Quote:       quote,
		Points:      quote.Points,
		Value:       quote.Value,
		Capped:      quote.Capped,
		Balance:     scope.customer.PointsBalance,
		Tier:        scope.customer.Tier,
		Transaction: entry,
	}, nil
}

// recordVisit 记录一次到店消费
func recordVisit(scope *ledgerScope, bill decimal.Decimal) {
	now := scope.now
	scope.customer.TotalVisits++
	scope.customer.TotalSpent = models.NewMoneyFromDecimal(scope.customer.TotalSpent.Decimal.Add(bill))
	scope.customer.LastVisitAt = &now
	scope.touch()
}

func orderEntryReference(orderRef, kind string) string {
	orderRef = strings.TrimSpace(orderRef)
	if orderRef == "" {
		return ""
	}
	return "order:" + orderRef + ":" + kind
}
