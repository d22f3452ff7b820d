package repository

import (
	"errors"
	"strings"

	"github.com/dinepoints/internal/models"

	"gorm.io/gorm"
)

// LoyaltyOrderRepository 订单积分回执数据访问接口
type LoyaltyOrderRepository interface {
	GetByOrderRef(tenantID uint, orderRef string) (*models.LoyaltyOrder, error)
	Create(order *models.LoyaltyOrder) error
	WithTx(tx *gorm.DB) *GormLoyaltyOrderRepository
}

// GormLoyaltyOrderRepository GORM 实现
type GormLoyaltyOrderRepository struct {
	db *gorm.DB
}

// NewLoyaltyOrderRepository 创建订单回执仓库
func NewLoyaltyOrderRepository(db *gorm.DB) *GormLoyaltyOrderRepository {
	return &GormLoyaltyOrderRepository{db: db}
}

// WithTx 绑定事务
func (r *GormLoyaltyOrderRepository) WithTx(tx *gorm.DB) *GormLoyaltyOrderRepository {
	if tx == nil {
		return r
	}
	return &GormLoyaltyOrderRepository{db: tx}
}

// GetByOrderRef 按订单号获取回执
func (r *GormLoyaltyOrderRepository) GetByOrderRef(tenantID uint, orderRef string) (*models.LoyaltyOrder, error) {
	orderRef = strings.TrimSpace(orderRef)
	if orderRef == "" {
		return nil, nil
	}
	var order models.LoyaltyOrder
	if err := r.db.Where("tenant_id = ? AND order_ref = ?", tenantID, orderRef).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// Create 创建回执
func (r *GormLoyaltyOrderRepository) Create(order *models.LoyaltyOrder) error {
	return r.db.Create(order).Error
}
