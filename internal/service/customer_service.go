package service

import (
	"errors"
	"strings"
	"time"

	"github.com/dinepoints/internal/constants"
	"github.com/dinepoints/internal/logger"
	"github.com/dinepoints/internal/models"
	"github.com/dinepoints/internal/queue"
	"github.com/dinepoints/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CustomerService 会员客户服务
type CustomerService struct {
	customerRepo repository.CustomerRepository
	ledger       *LedgerService
	settingSvc   *SettingService
	now          func() time.Time
}

// CustomerInput 客户资料输入
type CustomerInput struct {
	Name        string
	Phone       string
	Email       string
	DateOfBirth string
	Anniversary string
}

// CustomerView 客户视图（附带积分可抵扣金额）
type CustomerView struct {
	*models.Customer
	PointsValue decimal.Decimal `json:"points_value"`
}

// NewCustomerService 创建客户服务
func NewCustomerService(customerRepo repository.CustomerRepository, ledger *LedgerService, settingSvc *SettingService) *CustomerService {
	return &CustomerService{
		customerRepo: customerRepo,
		ledger:       ledger,
		settingSvc:   settingSvc,
		now:          time.Now,
	}
}

// Register 创建客户，启用时在同一事务内发放首次到店奖励
func (s *CustomerService) Register(tenantID uint, input CustomerInput) (*models.Customer, error) {
	phone := normalizePhone(input.Phone)
	if phone == "" {
		return nil, ErrCustomerPhoneRequired
	}
	if err := validateAnchorInput(input); err != nil {
		return nil, err
	}
	setting, err := s.settingSvc.GetLoyaltySetting(tenantID)
	if err != nil {
		return nil, err
	}
	existing, err := s.customerRepo.GetByPhone(tenantID, phone)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrCustomerExists
	}

	now := s.now()
	customer := &models.Customer{
		TenantID:      tenantID,
		Name:          strings.TrimSpace(input.Name),
		Phone:         phone,
		Email:         strings.TrimSpace(input.Email),
		DateOfBirth:   strings.TrimSpace(input.DateOfBirth),
		Anniversary:   strings.TrimSpace(input.Anniversary),
		Tier:          CalculateTier(0, setting.TierThresholds()),
		WalletBalance: models.ZeroMoney(),
		TotalSpent:    models.ZeroMoney(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	var scope *ledgerScope
	err = s.customerRepo.Transaction(func(tx *gorm.DB) error {
		if err := s.customerRepo.WithTx(tx).Create(customer); err != nil {
			return err
		}
		var err error
		scope, err = s.ledger.runScope(tx, customer, setting, now, func(scope *ledgerScope) error {
			scope.emit(queue.LoyaltyEventPayload{
				Type:        constants.LoyaltyEventCustomerCreated,
				Description: "Customer registered",
			})
			_, err := awardFirstVisitInScope(scope)
			return err
		})
		return err
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrCustomerExists
		}
		return nil, err
	}
	s.ledger.afterCommit(scope)
	logger.Infow("customer_registered",
		"tenant_id", tenantID,
		"customer_id", customer.ID,
		"first_visit_bonus", customer.FirstVisitBonusAwarded,
	)
	return customer, nil
}

// FindOrCreateByPhone POS 入口按手机号查找客户，不存在时自动注册
func (s *CustomerService) FindOrCreateByPhone(tenantID uint, phone, name string) (*models.Customer, bool, error) {
	phone = normalizePhone(phone)
	if phone == "" {
		return nil, false, ErrCustomerPhoneRequired
	}
	existing, err := s.customerRepo.GetByPhone(tenantID, phone)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}
	created, err := s.Register(tenantID, CustomerInput{Name: name, Phone: phone})
	if errors.Is(err, ErrCustomerExists) {
		// 并发创建时回读
		existing, err = s.customerRepo.GetByPhone(tenantID, phone)
		if err != nil {
			return nil, false, err
		}
		if existing == nil {
			return nil, false, ErrCustomerNotFound
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return created, true, nil
}

// Get 获取客户
func (s *CustomerService) Get(tenantID, id uint) (*models.Customer, error) {
	customer, err := s.customerRepo.GetByID(tenantID, id)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, ErrCustomerNotFound
	}
	return customer, nil
}

// Lookup 按手机号查询客户及积分价值（POS 查询）
func (s *CustomerService) Lookup(tenantID uint, phone string) (*CustomerView, error) {
	phone = normalizePhone(phone)
	if phone == "" {
		return nil, ErrCustomerPhoneRequired
	}
	customer, err := s.customerRepo.GetByPhone(tenantID, phone)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, ErrCustomerNotFound
	}
	setting, err := s.settingSvc.GetLoyaltySetting(tenantID)
	if err != nil {
		return nil, err
	}
	return &CustomerView{
		Customer:    customer,
		PointsValue: decimal.NewFromInt(customer.PointsBalance).Mul(setting.RedemptionValue).Round(2),
	}, nil
}

// List 分页查询客户
func (s *CustomerService) List(filter repository.CustomerListFilter) ([]models.Customer, int64, error) {
	return s.customerRepo.List(filter)
}

// UpdateProfile 更新客户资料（不涉及积分字段）
func (s *CustomerService) UpdateProfile(tenantID, id uint, input CustomerInput) (*models.Customer, error) {
	if err := validateAnchorInput(input); err != nil {
		return nil, err
	}
	setting, err := s.settingSvc.GetLoyaltySetting(tenantID)
	if err != nil {
		return nil, err
	}
	var updated *models.Customer
	err = s.ledger.withCustomer(tenantID, id, setting, s.now(), func(scope *ledgerScope) error {
		customer := scope.customer
		if phone := normalizePhone(input.Phone); phone != "" && phone != customer.Phone {
			other, err := s.customerRepo.WithTx(scope.tx).GetByPhone(tenantID, phone)
			if err != nil {
				return err
			}
			if other != nil {
				return ErrCustomerExists
			}
			customer.Phone = phone
		}
		if name := strings.TrimSpace(input.Name); name != "" {
			customer.Name = name
		}
		if email := strings.TrimSpace(input.Email); email != "" {
			customer.Email = email
		}
		if dob := strings.TrimSpace(input.DateOfBirth); dob != "" {
			customer.DateOfBirth = dob
		}
		if anniversary := strings.TrimSpace(input.Anniversary); anniversary != "" {
			customer.Anniversary = anniversary
		}
		customer.UpdatedAt = scope.now
		scope.touch()
		updated = customer
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func validateAnchorInput(input CustomerInput) error {
	for _, raw := range []string{input.DateOfBirth, input.Anniversary} {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		if _, _, err := parseAnchorDate(raw); err != nil {
			return err
		}
	}
	return nil
}

func normalizePhone(phone string) string {
	return strings.ReplaceAll(strings.TrimSpace(phone), " ", "")
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}
