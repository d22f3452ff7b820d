package repository

import (
	"errors"
	"strings"

	"github.com/dinepoints/internal/models"

	"gorm.io/gorm"
)

// TenantRepository 商户数据访问接口
type TenantRepository interface {
	GetByID(id uint) (*models.Tenant, error)
	GetByAPIKey(apiKey string) (*models.Tenant, error)
	Create(tenant *models.Tenant) error
}

// GormTenantRepository GORM 实现
type GormTenantRepository struct {
	db *gorm.DB
}

// NewTenantRepository 创建商户仓库
func NewTenantRepository(db *gorm.DB) *GormTenantRepository {
	return &GormTenantRepository{db: db}
}

// GetByID 根据ID获取商户
func (r *GormTenantRepository) GetByID(id uint) (*models.Tenant, error) {
	if id == 0 {
		return nil, nil
	}
	var tenant models.Tenant
	if err := r.db.First(&tenant, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tenant, nil
}

// GetByAPIKey 根据接入密钥获取商户
func (r *GormTenantRepository) GetByAPIKey(apiKey string) (*models.Tenant, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, nil
	}
	var tenant models.Tenant
	if err := r.db.Where("api_key = ?", apiKey).First(&tenant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tenant, nil
}

// Create 创建商户
func (r *GormTenantRepository) Create(tenant *models.Tenant) error {
	return r.db.Create(tenant).Error
}
