package provider

import (
	"github.com/dinepoints/internal/cache"
	"github.com/dinepoints/internal/config"
	"github.com/dinepoints/internal/logger"
	"github.com/dinepoints/internal/models"
	"github.com/dinepoints/internal/queue"
	"github.com/dinepoints/internal/repository"
	"github.com/dinepoints/internal/service"

	"gorm.io/gorm"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	TenantRepo         repository.TenantRepository
	CustomerRepo       repository.CustomerRepository
	PointsTxnRepo      repository.PointsTransactionRepository
	WalletRepo         repository.WalletRepository
	CouponRepo         repository.CouponRepository
	CouponUsageRepo    repository.CouponUsageRepository
	LoyaltyOrderRepo   repository.LoyaltyOrderRepository
	LoyaltySettingRepo repository.LoyaltySettingRepository
	FeedbackRepo       repository.FeedbackRepository
	CronJobLogRepo     repository.CronJobLogRepository

	// Services
	TenantService     *service.TenantService
	SettingService    *service.SettingService
	LedgerService     *service.LedgerService
	CouponService     *service.CouponService
	PointsService     *service.PointsService
	BonusService      *service.BonusService
	ExpiryService     *service.ExpiryService
	WalletService     *service.WalletService
	CustomerService   *service.CustomerService
	FeedbackService   *service.FeedbackService
	LoyaltyJobService *service.LoyaltyJobService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	return NewContainerWithDB(cfg, models.DB)
}

// NewContainerWithDB 使用指定数据库连接初始化容器
func NewContainerWithDB(cfg *config.Config, db *gorm.DB) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端，未启用时返回空实现
	queueClient, err := queue.NewClient(&cfg.Queue)
	if err != nil {
		logger.Errorw("provider_init_queue_client_failed", "error", err)
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	// 1. 初始化 Repositories
	c.initRepositories(db)

	// 2. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories(db *gorm.DB) {
	c.TenantRepo = repository.NewTenantRepository(db)
	c.CustomerRepo = repository.NewCustomerRepository(db)
	c.PointsTxnRepo = repository.NewPointsTransactionRepository(db)
	c.WalletRepo = repository.NewWalletRepository(db)
	c.CouponRepo = repository.NewCouponRepository(db)
	c.CouponUsageRepo = repository.NewCouponUsageRepository(db)
	c.LoyaltyOrderRepo = repository.NewLoyaltyOrderRepository(db)
	c.LoyaltySettingRepo = repository.NewLoyaltySettingRepository(db)
	c.FeedbackRepo = repository.NewFeedbackRepository(db)
	c.CronJobLogRepo = repository.NewCronJobLogRepository(db)
}

func (c *Container) initServices() {
	var publisher service.EventPublisher
	if c.QueueClient != nil {
		publisher = c.QueueClient
	}

	c.TenantService = service.NewTenantService(c.TenantRepo)
	c.SettingService = service.NewSettingService(c.LoyaltySettingRepo, c.Config.Loyalty.DefaultTenantTimezone)
	c.LedgerService = service.NewLedgerService(c.CustomerRepo, c.PointsTxnRepo, c.WalletRepo, publisher)
	c.CouponService = service.NewCouponService(c.CouponRepo, c.CouponUsageRepo, publisher)
	c.PointsService = service.NewPointsService(c.LedgerService, c.SettingService, c.CouponService, c.LoyaltyOrderRepo)
	c.BonusService = service.NewBonusService(c.LedgerService, c.CustomerRepo)
	c.ExpiryService = service.NewExpiryService(c.LedgerService, c.CustomerRepo, c.PointsTxnRepo)
	c.WalletService = service.NewWalletService(c.LedgerService, c.SettingService, c.WalletRepo)
	c.CustomerService = service.NewCustomerService(c.CustomerRepo, c.LedgerService, c.SettingService)
	c.FeedbackService = service.NewFeedbackService(c.FeedbackRepo, c.LedgerService, c.SettingService)
	c.LoyaltyJobService = service.NewLoyaltyJobService(
		c.SettingService,
		c.BonusService,
		c.ExpiryService,
		c.CronJobLogRepo,
		c.Config.Loyalty,
	)
}
