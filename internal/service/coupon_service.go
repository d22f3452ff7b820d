package service

import (
	"errors"
	"strings"
	"time"

	"github.com/dinepoints/internal/constants"
	"github.com/dinepoints/internal/logger"
	"github.com/dinepoints/internal/metrics"
	"github.com/dinepoints/internal/models"
	"github.com/dinepoints/internal/queue"
	"github.com/dinepoints/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CouponService 优惠券服务
type CouponService struct {
	couponRepo repository.CouponRepository
	usageRepo  repository.CouponUsageRepository
	publisher  EventPublisher
	now        func() time.Time
}

// CouponCheckInput 优惠券校验/使用输入
type CouponCheckInput struct {
	TenantID   uint
	Code       string
	CustomerID uint
	OrderValue decimal.Decimal
	Channel    string
	OrderRef   string
}

// CouponQuote 优惠券试算结果
type CouponQuote struct {
	Coupon      *models.Coupon  `json:"coupon"`
	Discount    decimal.Decimal `json:"discount"`
	FinalAmount decimal.Decimal `json:"final_amount"`
}

// CouponInput 管理端创建/更新优惠券输入
type CouponInput struct {
	Code                string
	Description         string
	Type                string
	Value               decimal.Decimal
	MinOrderValue       decimal.Decimal
	MaxDiscount         decimal.Decimal
	UsageLimit          int
	PerUserLimit        *int // 为空时默认每人 1 次，0 表示不限
	ApplicableChannels  []string
	SpecificCustomerIDs []uint
	StartsAt            *time.Time
	EndsAt              *time.Time
	IsActive            *bool
}

// CouponUsageReport 优惠券使用记录汇总
type CouponUsageReport struct {
	Coupon        *models.Coupon       `json:"coupon"`
	Usages        []models.CouponUsage `json:"usage"`
	Total         int64                `json:"total"`
	TotalDiscount models.Money         `json:"total_discount_given"`
}

// NewCouponService 创建优惠券服务
func NewCouponService(couponRepo repository.CouponRepository, usageRepo repository.CouponUsageRepository, publisher EventPublisher) *CouponService {
	return &CouponService{
		couponRepo: couponRepo,
		usageRepo:  usageRepo,
		publisher:  publisher,
		now:        time.Now,
	}
}

// Validate 只读校验优惠券并返回折扣，不记录使用
func (s *CouponService) Validate(input CouponCheckInput) (*CouponQuote, error) {
	code := normalizeCouponCode(input.Code)
	if code == "" {
		return nil, ErrCouponNotFound
	}
	coupon, err := s.couponRepo.GetByCode(input.TenantID, code)
	if err != nil {
		return nil, err
	}
	return s.quote(coupon, s.usageRepo, input)
}

// Apply 独立使用优惠券（不经过 POS 订单），记录使用并累加次数
func (s *CouponService) Apply(input CouponCheckInput) (*CouponQuote, *models.CouponUsage, error) {
	if input.CustomerID == 0 {
		return nil, nil, ErrCustomerNotFound
	}
	var (
		quote *CouponQuote
		usage *models.CouponUsage
	)
	err := s.couponRepo.Transaction(func(tx *gorm.DB) error {
		var applyErr error
		quote, usage, applyErr = s.applyInTx(tx, input)
		return applyErr
	})
	if err != nil {
		if errors.Is(err, ErrCouponInvalid) {
			metrics.RecordCouponApplication("rejected")
			logCouponRejected(input.TenantID, input.Code, err)
		}
		return nil, nil, err
	}
	metrics.RecordCouponApplication("applied")
	publishEvents(s.publisher, []queue.LoyaltyEventPayload{couponRedeemedEvent(quote, usage)})
	return quote, usage, nil
}

// applyInTx 在事务内锁定优惠券、复核并记录使用；每次成功使用恰好累加一次
func (s *CouponService) applyInTx(tx *gorm.DB, input CouponCheckInput) (*CouponQuote, *models.CouponUsage, error) {
	code := normalizeCouponCode(input.Code)
	if code == "" {
		return nil, nil, ErrCouponNotFound
	}
	couponRepo := s.couponRepo.WithTx(tx)
	usageRepo := s.usageRepo.WithTx(tx)

	coupon, err := couponRepo.GetByCodeForUpdate(input.TenantID, code)
	if err != nil {
		return nil, nil, err
	}
	quote, err := s.quote(coupon, usageRepo, input)
	if err != nil {
		return nil, nil, err
	}

	ok, err := couponRepo.IncrementUsedCount(coupon.ID)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, ErrCouponUsageLimit
	}
	coupon.UsedCount++

	usage := &models.CouponUsage{
		TenantID:       input.TenantID,
		CouponID:       coupon.ID,
		CustomerID:     input.CustomerID,
		OrderRef:       strings.TrimSpace(input.OrderRef),
		Channel:        normalizeChannel(input.Channel),
		OrderValue:     models.NewMoneyFromDecimal(input.OrderValue),
		DiscountAmount: models.NewMoneyFromDecimal(quote.Discount),
		CreatedAt:      s.now(),
	}
	if err := usageRepo.Create(usage); err != nil {
		return nil, nil, err
	}
	return quote, usage, nil
}

func (s *CouponService) quote(coupon *models.Coupon, usageRepo repository.CouponUsageRepository, input CouponCheckInput) (*CouponQuote, error) {
	if coupon == nil {
		return nil, ErrCouponNotFound
	}
	var usage int64
	if coupon.PerUserLimit > 0 && input.CustomerID != 0 {
		count, err := usageRepo.CountByCustomer(coupon.ID, input.CustomerID)
		if err != nil {
			return nil, err
		}
		usage = count
	}
	if err := CheckCoupon(coupon, CouponCheckContext{
		OrderValue:    input.OrderValue,
		Channel:       input.Channel,
		CustomerID:    input.CustomerID,
		CustomerUsage: usage,
		Now:           s.now(),
	}); err != nil {
		return nil, err
	}
	discount := CouponDiscount(coupon, input.OrderValue)
	return &CouponQuote{
		Coupon:      coupon,
		Discount:    discount,
		FinalAmount: input.OrderValue.Sub(discount).Round(2),
	}, nil
}

// Create 创建优惠券
func (s *CouponService) Create(tenantID uint, input CouponInput) (*models.Coupon, error) {
	coupon := &models.Coupon{TenantID: tenantID, IsActive: true}
	if input.PerUserLimit == nil {
		one := 1
		input.PerUserLimit = &one
	}
	if err := s.fillCoupon(coupon, input); err != nil {
		return nil, err
	}
	existing, err := s.couponRepo.GetByCode(tenantID, coupon.Code)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrCouponCodeExists
	}
	if err := s.couponRepo.Create(coupon); err != nil {
		return nil, err
	}
	return coupon, nil
}

// Update 更新优惠券
func (s *CouponService) Update(tenantID, id uint, input CouponInput) (*models.Coupon, error) {
	coupon, err := s.couponRepo.GetByID(tenantID, id)
	if err != nil {
		return nil, err
	}
	if coupon == nil {
		return nil, ErrCouponNotFound
	}
	if input.PerUserLimit == nil {
		current := coupon.PerUserLimit
		input.PerUserLimit = &current
	}
	if err := s.fillCoupon(coupon, input); err != nil {
		return nil, err
	}
	existing, err := s.couponRepo.GetByCode(tenantID, coupon.Code)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.ID != coupon.ID {
		return nil, ErrCouponCodeExists
	}
	if err := s.couponRepo.Update(coupon); err != nil {
		return nil, err
	}
	return coupon, nil
}

// Toggle 切换启用状态
func (s *CouponService) Toggle(tenantID, id uint) (*models.Coupon, error) {
	coupon, err := s.couponRepo.GetByID(tenantID, id)
	if err != nil {
		return nil, err
	}
	if coupon == nil {
		return nil, ErrCouponNotFound
	}
	coupon.IsActive = !coupon.IsActive
	if err := s.couponRepo.Update(coupon); err != nil {
		return nil, err
	}
	return coupon, nil
}

// Delete 删除优惠券（软删除，使用记录保留）
func (s *CouponService) Delete(tenantID, id uint) error {
	coupon, err := s.couponRepo.GetByID(tenantID, id)
	if err != nil {
		return err
	}
	if coupon == nil {
		return ErrCouponNotFound
	}
	return s.couponRepo.Delete(tenantID, id)
}

// Get 获取优惠券
func (s *CouponService) Get(tenantID, id uint) (*models.Coupon, error) {
	coupon, err := s.couponRepo.GetByID(tenantID, id)
	if err != nil {
		return nil, err
	}
	if coupon == nil {
		return nil, ErrCouponNotFound
	}
	return coupon, nil
}

// List 优惠券列表
func (s *CouponService) List(filter repository.CouponListFilter) ([]models.Coupon, int64, error) {
	return s.couponRepo.List(filter)
}

// Usage 优惠券使用记录
func (s *CouponService) Usage(tenantID, id uint, page, pageSize int) (*CouponUsageReport, error) {
	coupon, err := s.Get(tenantID, id)
	if err != nil {
		return nil, err
	}
	usages, total, err := s.usageRepo.List(repository.CouponUsageListFilter{
		TenantID: tenantID,
		CouponID: id,
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		return nil, err
	}
	sum := decimal.Zero
	for _, usage := range usages {
		sum = sum.Add(usage.DiscountAmount.Decimal)
	}
	return &CouponUsageReport{
		Coupon:        coupon,
		Usages:        usages,
		Total:         total,
		TotalDiscount: models.NewMoneyFromDecimal(sum),
	}, nil
}

func (s *CouponService) fillCoupon(coupon *models.Coupon, input CouponInput) error {
	code := normalizeCouponCode(input.Code)
	if code == "" {
		return ErrCouponConfigInvalid
	}
	couponType := strings.ToLower(strings.TrimSpace(input.Type))
	switch couponType {
	case constants.CouponTypePercentage:
		if !input.Value.IsPositive() || input.Value.GreaterThan(decimal.NewFromInt(100)) {
			return ErrCouponConfigInvalid
		}
	case constants.CouponTypeFixed:
		if !input.Value.IsPositive() {
			return ErrCouponConfigInvalid
		}
	default:
		return ErrCouponConfigInvalid
	}
	if input.MinOrderValue.IsNegative() || input.MaxDiscount.IsNegative() || input.UsageLimit < 0 {
		return ErrCouponConfigInvalid
	}
	if input.PerUserLimit != nil && *input.PerUserLimit < 0 {
		return ErrCouponConfigInvalid
	}
	if input.StartsAt != nil && input.EndsAt != nil && input.EndsAt.Before(*input.StartsAt) {
		return ErrCouponConfigInvalid
	}

	channels := models.StringArray{}
	for _, raw := range input.ApplicableChannels {
		channel := strings.ToLower(strings.TrimSpace(raw))
		if channel == "" {
			continue
		}
		if !isSupportedChannel(channel) {
			return ErrCouponConfigInvalid
		}
		if !channels.Contains(channel) {
			channels = append(channels, channel)
		}
	}
	if len(channels) == 0 {
		channels = allChannels()
	}

	coupon.Code = code
	coupon.Description = strings.TrimSpace(input.Description)
	coupon.Type = couponType
	coupon.Value = models.NewMoneyFromDecimal(input.Value)
	coupon.MinOrderValue = models.NewMoneyFromDecimal(input.MinOrderValue)
	coupon.MaxDiscount = models.NewMoneyFromDecimal(input.MaxDiscount)
	coupon.UsageLimit = input.UsageLimit
	if input.PerUserLimit != nil {
		coupon.PerUserLimit = *input.PerUserLimit
	}
	coupon.ApplicableChannels = channels
	coupon.SpecificCustomerIDs = models.IDList(input.SpecificCustomerIDs)
	if coupon.SpecificCustomerIDs == nil {
		coupon.SpecificCustomerIDs = models.IDList{}
	}
	coupon.StartsAt = input.StartsAt
	coupon.EndsAt = input.EndsAt
	if input.IsActive != nil {
		coupon.IsActive = *input.IsActive
	}
	return nil
}

func couponRedeemedEvent(quote *CouponQuote, usage *models.CouponUsage) queue.LoyaltyEventPayload {
	event := queue.LoyaltyEventPayload{
		Type: constants.LoyaltyEventCouponRedeemed,
	}
	if usage != nil {
		event.TenantID = usage.TenantID
		event.CustomerID = usage.CustomerID
		event.AmountDelta = usage.DiscountAmount.Neg().StringFixed(2)
		event.OccurredAt = usage.CreatedAt
	}
	if quote != nil && quote.Coupon != nil {
		event.Description = "Coupon " + quote.Coupon.Code + " applied"
		event.Meta = map[string]interface{}{
			"coupon_code":  quote.Coupon.Code,
			"final_amount": quote.FinalAmount.StringFixed(2),
		}
	}
	return event
}

func normalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func logCouponRejected(tenantID uint, code string, err error) {
	logger.Infow("coupon_rejected", "tenant_id", tenantID, "code", normalizeCouponCode(code), "reason", err)
}
