package router

import (
	"crypto/subtle"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/dinepoints/internal/config"
	"github.com/dinepoints/internal/http/handlers/shared"
	"github.com/dinepoints/internal/http/response"
	"github.com/dinepoints/internal/logger"
	"github.com/dinepoints/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const requestIDKey = "request_id"
const requestIDHeader = "X-Request-ID"
const apiKeyHeader = "X-API-Key"
const adminKeyHeader = "X-Admin-Key"
const tenantNameContextKey = "tenant_name"

// CORSMiddleware 跨域中间件
func CORSMiddleware(cfg config.CORSConfig) gin.HandlerFunc {
	allowedOrigins := cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	allowedMethods := cfg.AllowedMethods
	if len(allowedMethods) == 0 {
		allowedMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	}
	allowedHeaders := cfg.AllowedHeaders
	if len(allowedHeaders) == 0 {
		allowedHeaders = []string{
			"Content-Type",
			"Content-Length",
			"Accept-Encoding",
			"Authorization",
			"Cache-Control",
			"X-Requested-With",
			apiKeyHeader,
			adminKeyHeader,
			requestIDHeader,
		}
	}
	methodsHeader := strings.Join(allowedMethods, ", ")
	headersHeader := strings.Join(allowedHeaders, ", ")

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		allowedOrigin := resolveAllowedOrigin(origin, allowedOrigins, cfg.AllowCredentials)
		if allowedOrigin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
			if allowedOrigin != "*" {
				c.Writer.Header().Add("Vary", "Origin")
			}
		}
		if cfg.AllowCredentials {
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		}
		c.Writer.Header().Set("Access-Control-Allow-Headers", headersHeader)
		c.Writer.Header().Set("Access-Control-Allow-Methods", methodsHeader)
		if cfg.MaxAge > 0 {
			c.Writer.Header().Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
		}

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

func resolveAllowedOrigin(origin string, allowedOrigins []string, allowCredentials bool) string {
	if len(allowedOrigins) == 0 {
		return ""
	}
	for _, allowed := range allowedOrigins {
		if allowed == "*" {
			if allowCredentials && origin != "" {
				return origin
			}
			return "*"
		}
	}
	if origin == "" {
		return ""
	}
	for _, allowed := range allowedOrigins {
		if strings.EqualFold(allowed, origin) {
			return origin
		}
	}
	return ""
}

// RequestIDMiddleware 请求 ID 中间件
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(requestIDKey, requestID)
		c.Writer.Header().Set(requestIDHeader, requestID)
		c.Next()
	}
}

// LoggerMiddleware 结构化请求日志中间件
func LoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.L()
	}
	sugar := logger.Sugar()
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log := sugar.With(
			"request_id", getRequestID(c),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		)
		if tenantID, ok := c.Get(shared.TenantIDContextKey); ok {
			log = log.With("tenant_id", tenantID)
		}
		if len(c.Errors) > 0 {
			log.Errorw("request", "errors", c.Errors.String())
			return
		}
		log.Infow("request")
	}
}

func getRequestID(c *gin.Context) string {
	value, ok := c.Get(requestIDKey)
	if !ok {
		return ""
	}
	if requestID, ok := value.(string); ok {
		return requestID
	}
	return ""
}

// TenantAuthMiddleware POS 接入鉴权：X-API-Key 解析商户
func TenantAuthMiddleware(tenantService *service.TenantService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tenantService == nil {
			logger.Errorw("tenant_auth_service_unavailable")
			shared.RespondError(c, response.CodeUnauthorized, "error.unauthorized", nil)
			c.Abort()
			return
		}
		apiKey := strings.TrimSpace(c.GetHeader(apiKeyHeader))
		if apiKey == "" {
			shared.RespondError(c, response.CodeUnauthorized, "error.api_key_missing", nil)
			c.Abort()
			return
		}
		state, err := tenantService.Authenticate(c.Request.Context(), apiKey)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrTenantNotFound):
				shared.RespondError(c, response.CodeUnauthorized, "error.api_key_invalid", nil)
			case errors.Is(err, service.ErrTenantInactive):
				shared.RespondError(c, response.CodeForbidden, "error.tenant_inactive", nil)
			default:
				shared.RespondError(c, response.CodeInternal, "error.internal", err)
			}
			c.Abort()
			return
		}
		c.Set(shared.TenantIDContextKey, state.TenantID)
		c.Set(tenantNameContextKey, state.Name)
		c.Next()
	}
}

// AdminKeyMiddleware 管理端鉴权：X-Admin-Key 或 Bearer 令牌与配置的密钥比对
func AdminKeyMiddleware(adminKey string) gin.HandlerFunc {
	expected := []byte(strings.TrimSpace(adminKey))
	return func(c *gin.Context) {
		if len(expected) == 0 {
			shared.RespondError(c, response.CodeUnauthorized, "error.admin_key_missing", nil)
			c.Abort()
			return
		}
		provided := strings.TrimSpace(c.GetHeader(adminKeyHeader))
		if provided == "" {
			parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
			if len(parts) == 2 && parts[0] == "Bearer" {
				provided = strings.TrimSpace(parts[1])
			}
		}
		if provided == "" || subtle.ConstantTimeCompare([]byte(provided), expected) != 1 {
			logger.Warnw("admin_key_rejected", "client_ip", c.ClientIP(), "path", c.Request.URL.Path)
			shared.RespondError(c, response.CodeUnauthorized, "error.admin_key_invalid", nil)
			c.Abort()
			return
		}
		c.Next()
	}
}

// AdminTenantMiddleware 解析路径参数 tenant_id 并确认商户存在
func AdminTenantMiddleware(tenantService *service.TenantService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("tenant_id"), 10, 64)
		if err != nil || id == 0 {
			shared.RespondError(c, response.CodeBadRequest, "error.tenant_id_invalid", nil)
			c.Abort()
			return
		}
		tenant, err := tenantService.Get(uint(id))
		if err != nil {
			if errors.Is(err, service.ErrTenantNotFound) {
				shared.RespondError(c, response.CodeNotFound, "error.tenant_not_found", nil)
			} else {
				shared.RespondError(c, response.CodeInternal, "error.internal", err)
			}
			c.Abort()
			return
		}
		c.Set(shared.TenantIDContextKey, tenant.ID)
		c.Set(tenantNameContextKey, tenant.Name)
		c.Next()
	}
}
