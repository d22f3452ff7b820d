package main

import (
	"errors"
	"flag"

	"github.com/dinepoints/internal/config"
	"github.com/dinepoints/internal/constants"
	"github.com/dinepoints/internal/logger"
	"github.com/dinepoints/internal/models"
	"github.com/dinepoints/internal/provider"
	"github.com/dinepoints/internal/service"

	"github.com/shopspring/decimal"
)

func main() {
	var (
		tenantName string
		apiKey     string
	)
	flag.StringVar(&tenantName, "tenant", "Demo Bistro", "演示商户名称")
	flag.StringVar(&apiKey, "api-key", "demo-pos-key-change-me-0001", "演示商户 POS 接入密钥")
	flag.Parse()

	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	c := provider.NewContainer(cfg)

	// 演示商户
	tenant, err := c.TenantService.Register(tenantName, apiKey)
	if errors.Is(err, service.ErrTenantExists) {
		stdLog.Printf("Tenant with this api key already exists, skip seeding")
		return
	}
	if err != nil {
		stdLog.Fatalf("Failed to register tenant: %v", err)
	}

	// 积分规则：开启生日、首访、非高峰与反馈奖励
	if _, err := c.SettingService.UpdateLoyaltySetting(tenant.ID, map[string]interface{}{
		"birthday_bonus_enabled":    true,
		"first_visit_bonus_enabled": true,
		"off_peak_bonus_enabled":    true,
		"feedback_bonus_enabled":    true,
	}); err != nil {
		stdLog.Fatalf("Failed to save loyalty settings: %v", err)
	}

	// 优惠券
	perUser := 1
	coupons := []service.CouponInput{
		{
			Code:         "WELCOME10",
			Description:  "10% off first order",
			Type:         constants.CouponTypePercentage,
			Value:        decimal.NewFromInt(10),
			MaxDiscount:  decimal.NewFromInt(200),
			PerUserLimit: &perUser,
		},
		{
			Code:               "DELIVERY50",
			Description:        "50 off delivery orders above 500",
			Type:               constants.CouponTypeFixed,
			Value:              decimal.NewFromInt(50),
			MinOrderValue:      decimal.NewFromInt(500),
			ApplicableChannels: []string{constants.ChannelDelivery},
		},
	}
	for _, input := range coupons {
		if _, err := c.CouponService.Create(tenant.ID, input); err != nil {
			stdLog.Printf("Failed to create coupon %s: %v", input.Code, err)
		}
	}

	// 演示客户
	customers := []service.CustomerInput{
		{Name: "Asha Menon", Phone: "9800000001", DateOfBirth: "1992-03-14"},
		{Name: "Ravi Kumar", Phone: "9800000002", Anniversary: "2016-11-02"},
	}
	for _, input := range customers {
		if _, err := c.CustomerService.Register(tenant.ID, input); err != nil {
			stdLog.Printf("Failed to create customer %s: %v", input.Phone, err)
		}
	}

	stdLog.Printf("Seed data created: tenant_id=%d", tenant.ID)
}
