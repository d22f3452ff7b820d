package repository

import (
	"errors"
	"time"

	"github.com/dinepoints/internal/models"

	"gorm.io/gorm"
)

// LoyaltySettingRepository 商户积分规则数据访问接口
type LoyaltySettingRepository interface {
	GetByTenant(tenantID uint) (*models.LoyaltySetting, error)
	Upsert(tenantID uint, value models.JSON) (*models.LoyaltySetting, error)
	ListTenantIDs() ([]uint, error)
}

// GormLoyaltySettingRepository GORM 实现
type GormLoyaltySettingRepository struct {
	db *gorm.DB
}

// NewLoyaltySettingRepository 创建积分规则仓库
func NewLoyaltySettingRepository(db *gorm.DB) *GormLoyaltySettingRepository {
	return &GormLoyaltySettingRepository{db: db}
}

// GetByTenant 获取商户积分规则
func (r *GormLoyaltySettingRepository) GetByTenant(tenantID uint) (*models.LoyaltySetting, error) {
	if tenantID == 0 {
		return nil, nil
	}
	var setting models.LoyaltySetting
	if err := r.db.Where("tenant_id = ?", tenantID).First(&setting).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &setting, nil
}

// Upsert 更新或创建商户积分规则
func (r *GormLoyaltySettingRepository) Upsert(tenantID uint, value models.JSON) (*models.LoyaltySetting, error) {
	setting, err := r.GetByTenant(tenantID)
	if err != nil {
		return nil, err
	}
	if setting == nil {
		setting = &models.LoyaltySetting{
			TenantID:  tenantID,
			ValueJSON: value,
			UpdatedAt: time.Now(),
		}
		if err := r.db.Create(setting).Error; err != nil {
			return nil, err
		}
		return setting, nil
	}

	setting.ValueJSON = value
	setting.UpdatedAt = time.Now()
	if err := r.db.Save(setting).Error; err != nil {
		return nil, err
	}
	return setting, nil
}

// ListTenantIDs 获取已配置积分规则的商户ID
func (r *GormLoyaltySettingRepository) ListTenantIDs() ([]uint, error) {
	var ids []uint
	if err := r.db.Model(&models.LoyaltySetting{}).
		Order("tenant_id asc").
		Pluck("tenant_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
