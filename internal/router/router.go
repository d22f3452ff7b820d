package router

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dinepoints/internal/cache"
	"github.com/dinepoints/internal/config"
	adminhandlers "github.com/dinepoints/internal/http/handlers/admin"
	poshandlers "github.com/dinepoints/internal/http/handlers/pos"
	"github.com/dinepoints/internal/http/response"
	"github.com/dinepoints/internal/logger"
	"github.com/dinepoints/internal/provider"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	// 初始化 Handler（按收银端/后台分组）
	posHandler := poshandlers.New(c)
	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "dp"
	}
	posRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:pos", redisPrefix),
		WindowSeconds: cfg.Security.POSRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.POSRateLimit.MaxRequests,
		BlockSeconds:  cfg.Security.POSRateLimit.BlockSeconds,
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	if cfg.Metrics.Enabled {
		path := strings.TrimSpace(cfg.Metrics.Path)
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(promhttp.Handler()))
	}

	apiV1 := r.Group("/api/v1")
	{
		// 收银系统接口（X-API-Key）
		posGroup := apiV1.Group("/pos")
		posGroup.Use(TenantAuthMiddleware(c.TenantService), RateLimitMiddleware(cache.Client(), posRule, KeyByTenant))
		{
			posGroup.POST("/orders", posHandler.ProcessOrder)
			posGroup.GET("/customers/lookup", posHandler.LookupCustomer)
			posGroup.POST("/customers", posHandler.RegisterCustomer)
			posGroup.POST("/coupons/validate", posHandler.ValidateCoupon)
			posGroup.POST("/feedback", posHandler.SubmitFeedback)
		}

		// 管理员接口
		adminGroup := apiV1.Group("/admin")
		adminGroup.Use(AdminKeyMiddleware(cfg.Security.AdminAPIKey))
		{
			adminGroup.POST("/tenants", adminHandler.RegisterTenant)
			adminGroup.GET("/routes", func(ctx *gin.Context) {
				response.Success(ctx, buildAdminRouteCatalog(r))
			})

			// 每日任务
			adminGroup.GET("/cron/status", adminHandler.GetCronStatus)
			adminGroup.POST("/cron/trigger", adminHandler.TriggerTenantJob)
			adminGroup.POST("/cron/trigger-all-tenants", adminHandler.TriggerAllTenantsJob)
			adminGroup.GET("/cron/stages", adminHandler.ListJobStages)
			adminGroup.POST("/cron/stages/:stage", adminHandler.TriggerJobStage)

			tenant := adminGroup.Group("/tenants/:tenant_id")
			tenant.Use(AdminTenantMiddleware(c.TenantService))
			{
				tenant.GET("", adminHandler.GetTenant)

				// 积分规则
				tenant.GET("/settings", adminHandler.GetLoyaltySetting)
				tenant.PUT("/settings", adminHandler.UpdateLoyaltySetting)

				// 客户与积分
				tenant.GET("/customers", adminHandler.ListCustomers)
				tenant.POST("/customers", adminHandler.CreateCustomer)
				tenant.GET("/customers/:id", adminHandler.GetCustomer)
				tenant.PUT("/customers/:id", adminHandler.UpdateCustomer)
				tenant.GET("/customers/:id/transactions", adminHandler.ListCustomerTransactions)
				tenant.GET("/customers/:id/expiry", adminHandler.GetCustomerExpiry)
				tenant.GET("/customers/:id/replay", adminHandler.ReplayCustomerBalance)
				tenant.POST("/customers/:id/earn", adminHandler.EarnPoints)
				tenant.POST("/customers/:id/redeem", adminHandler.RedeemPoints)
				tenant.POST("/customers/:id/manual", adminHandler.ManualTransaction)
				tenant.POST("/customers/:id/orders", adminHandler.ProcessOrder)

				// 钱包
				tenant.GET("/customers/:id/wallet/transactions", adminHandler.ListWalletTransactions)
				tenant.POST("/customers/:id/wallet/credit", adminHandler.CreditWallet)
				tenant.POST("/customers/:id/wallet/debit", adminHandler.DebitWallet)

				// 优惠券
				tenant.GET("/coupons", adminHandler.ListCoupons)
				tenant.POST("/coupons", adminHandler.CreateCoupon)
				tenant.POST("/coupons/validate", adminHandler.ValidateCoupon)
				tenant.POST("/coupons/apply", adminHandler.ApplyCoupon)
				tenant.GET("/coupons/:id", adminHandler.GetCoupon)
				tenant.PUT("/coupons/:id", adminHandler.UpdateCoupon)
				tenant.PATCH("/coupons/:id/toggle", adminHandler.ToggleCoupon)
				tenant.DELETE("/coupons/:id", adminHandler.DeleteCoupon)
				tenant.GET("/coupons/:id/usage", adminHandler.GetCouponUsage)

				// 反馈
				tenant.GET("/feedback", adminHandler.ListFeedback)
				tenant.PATCH("/feedback/:id/resolve", adminHandler.ResolveFeedback)
			}
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}

type adminRouteCatalogItem struct {
	Module string `json:"module"`
	Method string `json:"method"`
	Path   string `json:"path"`
}

// buildAdminRouteCatalog 列出已注册的管理端接口，按模块排序
func buildAdminRouteCatalog(engine *gin.Engine) []adminRouteCatalogItem {
	if engine == nil {
		return []adminRouteCatalogItem{}
	}

	routes := engine.Routes()
	seen := make(map[string]struct{}, len(routes))
	items := make([]adminRouteCatalogItem, 0, len(routes))

	for _, item := range routes {
		method := strings.ToUpper(strings.TrimSpace(item.Method))
		if method == "" || method == "OPTIONS" || method == "HEAD" {
			continue
		}
		if !strings.HasPrefix(item.Path, "/api/v1/admin/") {
			continue
		}
		path := strings.TrimPrefix(item.Path, "/api/v1")
		key := method + ":" + path
		if _, exists := seen[key]; exists {
			continue
		}
		seen[key] = struct{}{}
		items = append(items, adminRouteCatalogItem{
			Module: deriveAdminRouteModule(path),
			Method: method,
			Path:   path,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Module == items[j].Module {
			if items[i].Path == items[j].Path {
				return items[i].Method < items[j].Method
			}
			return items[i].Path < items[j].Path
		}
		return items[i].Module < items[j].Module
	})

	return items
}

// deriveAdminRouteModule /admin/tenants/:tenant_id/coupons/:id -> coupons
func deriveAdminRouteModule(path string) string {
	normalized := strings.TrimPrefix(strings.TrimSpace(path), "/")
	if normalized == "" {
		return "system"
	}
	segments := strings.Split(normalized, "/")
	if len(segments) <= 1 {
		return segments[0]
	}
	if segments[0] != "admin" {
		return segments[0]
	}
	if segments[1] == "tenants" {
		if len(segments) >= 4 {
			return segments[3]
		}
		return "tenants"
	}
	return segments[1]
}
