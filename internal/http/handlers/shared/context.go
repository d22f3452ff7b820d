package shared

import (
	"github.com/dinepoints/internal/http/response"

	"github.com/gin-gonic/gin"
)

// TenantIDContextKey 鉴权中间件写入的商户 ID
const TenantIDContextKey = "tenant_id"

// GetContextUintWithKeys 从上下文读取 uint 值并统一处理错误响应。
func GetContextUintWithKeys(c *gin.Context, key, invalidKey, typeInvalidKey string) (uint, bool) {
	value, exists := c.Get(key)
	if !exists {
		RespondError(c, response.CodeUnauthorized, "error.unauthorized", nil)
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		return v, true
	case int:
		if v < 0 {
			RespondError(c, response.CodeBadRequest, invalidKey, nil)
			return 0, false
		}
		return uint(v), true
	case float64:
		if v < 0 {
			RespondError(c, response.CodeBadRequest, invalidKey, nil)
			return 0, false
		}
		return uint(v), true
	default:
		RespondError(c, response.CodeInternal, typeInvalidKey, nil)
		return 0, false
	}
}

// GetTenantID 读取当前请求的商户 ID
func GetTenantID(c *gin.Context) (uint, bool) {
	return GetContextUintWithKeys(c, TenantIDContextKey, "error.tenant_id_invalid", "error.tenant_id_type_invalid")
}
