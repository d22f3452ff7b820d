package service

import (
	"context"
	"strings"

	"github.com/dinepoints/internal/cache"
	"github.com/dinepoints/internal/logger"
	"github.com/dinepoints/internal/models"
	"github.com/dinepoints/internal/repository"
)

const minTenantAPIKeyLength = 16

// TenantService 商户鉴权服务
type TenantService struct {
	repo repository.TenantRepository
}

// NewTenantService 创建商户服务
func NewTenantService(repo repository.TenantRepository) *TenantService {
	return &TenantService{repo: repo}
}

// Authenticate 通过 POS 接入密钥解析商户，优先读缓存
func (s *TenantService) Authenticate(ctx context.Context, apiKey string) (*cache.TenantAuthState, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, ErrTenantNotFound
	}
	state, hit, err := cache.GetTenantAuthState(ctx, apiKey)
	if err != nil {
		logger.Warnw("tenant_auth_cache_get_failed", "error", err)
	}
	if !hit || state == nil {
		tenant, err := s.repo.GetByAPIKey(apiKey)
		if err != nil {
			return nil, err
		}
		if tenant == nil {
			return nil, ErrTenantNotFound
		}
		state = cache.BuildTenantAuthState(tenant)
		if err := cache.SetTenantAuthState(ctx, apiKey, state); err != nil {
			logger.Warnw("tenant_auth_cache_set_failed", "tenant_id", tenant.ID, "error", err)
		}
	}
	if !state.IsActive {
		return nil, ErrTenantInactive
	}
	return state, nil
}

// Register 登记商户，接入密钥由运营方签发后传入
func (s *TenantService) Register(name, apiKey string) (*models.Tenant, error) {
	name = strings.TrimSpace(name)
	apiKey = strings.TrimSpace(apiKey)
	if name == "" || len(apiKey) < minTenantAPIKeyLength {
		return nil, ErrTenantInvalid
	}
	existing, err := s.repo.GetByAPIKey(apiKey)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrTenantExists
	}
	tenant := &models.Tenant{Name: name, APIKey: apiKey, IsActive: true}
	if err := s.repo.Create(tenant); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrTenantExists
		}
		return nil, err
	}
	logger.Infow("tenant_registered", "tenant_id", tenant.ID, "name", tenant.Name)
	return tenant, nil
}

// Get 获取商户
func (s *TenantService) Get(id uint) (*models.Tenant, error) {
	tenant, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if tenant == nil {
		return nil, ErrTenantNotFound
	}
	return tenant, nil
}
