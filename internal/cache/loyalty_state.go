package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/dinepoints/internal/models"

	"github.com/google/uuid"
)

const (
	tenantAuthStateCacheTTL = 10 * time.Minute
	loyaltySettingCacheTTL  = 10 * time.Minute
)

// TenantAuthState 商户鉴权快照，按 API Key 摘要缓存
type TenantAuthState struct {
	TenantID  uint   `json:"tenant_id"`
	Name      string `json:"name"`
	IsActive  bool   `json:"is_active"`
	UpdatedAt int64  `json:"updated_at"`
}

// BuildTenantAuthState 从商户模型构建鉴权快照
func BuildTenantAuthState(tenant *models.Tenant) *TenantAuthState {
	if tenant == nil {
		return nil
	}
	return &TenantAuthState{
		TenantID:  tenant.ID,
		Name:      tenant.Name,
		IsActive:  tenant.IsActive,
		UpdatedAt: time.Now().Unix(),
	}
}

func tenantAuthStateKey(apiKey string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(apiKey)))
	return "auth:tenant:" + hex.EncodeToString(sum[:])
}

// GetTenantAuthState 获取商户鉴权快照
func GetTenantAuthState(ctx context.Context, apiKey string) (*TenantAuthState, bool, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, false, nil
	}
	var state TenantAuthState
	hit, err := GetJSON(ctx, tenantAuthStateKey(apiKey), &state)
	if err != nil || !hit {
		return nil, hit, err
	}
	return &state, true, nil
}

// SetTenantAuthState 写入商户鉴权快照
func SetTenantAuthState(ctx context.Context, apiKey string, state *TenantAuthState) error {
	if state == nil || strings.TrimSpace(apiKey) == "" {
		return nil
	}
	return SetJSON(ctx, tenantAuthStateKey(apiKey), state, tenantAuthStateCacheTTL)
}

// LoyaltySettingKey 商户积分规则缓存键
func LoyaltySettingKey(tenantID uint) string {
	return fmt.Sprintf("loyalty:setting:%d", tenantID)
}

// LoyaltySettingTTL 商户积分规则缓存时长
func LoyaltySettingTTL() time.Duration {
	return loyaltySettingCacheTTL
}

// LoyaltyLastRunKey 最近一次定时任务结果缓存键
func LoyaltyLastRunKey(jobName string) string {
	return fmt.Sprintf("loyalty:last_run:%s", strings.TrimSpace(jobName))
}

// JobLock 分布式任务锁
type JobLock struct {
	key   string
	token string
}

func jobLockKey(jobName, scope, day string) string {
	return fmt.Sprintf("lock:job:%s:%s:%s", strings.TrimSpace(jobName), strings.TrimSpace(scope), strings.TrimSpace(day))
}

// AcquireJobLock 获取任务锁，未启用 Redis 时总是成功
func AcquireJobLock(ctx context.Context, jobName, scope, day string, ttl time.Duration) (*JobLock, bool, error) {
	lock := &JobLock{
		key:   jobLockKey(jobName, scope, day),
		token: uuid.NewString(),
	}
	ok, err := SetNX(ctx, lock.key, lock.token, ttl)
	if err != nil || !ok {
		return nil, false, err
	}
	return lock, true, nil
}

// Release 释放任务锁
func (l *JobLock) Release(ctx context.Context) error {
	if l == nil {
		return nil
	}
	return ReleaseIfValue(ctx, l.key, l.token)
}
