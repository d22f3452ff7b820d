package repository

import (
	"errors"

	"github.com/dinepoints/internal/models"

	"gorm.io/gorm"
)

// FeedbackRepository 反馈数据访问接口
type FeedbackRepository interface {
	GetByID(tenantID, id uint) (*models.Feedback, error)
	Create(feedback *models.Feedback) error
	Update(feedback *models.Feedback) error
	List(filter FeedbackListFilter) ([]models.Feedback, int64, error)
	WithTx(tx *gorm.DB) *GormFeedbackRepository
}

// GormFeedbackRepository GORM 实现
type GormFeedbackRepository struct {
	db *gorm.DB
}

// NewFeedbackRepository 创建反馈仓库
func NewFeedbackRepository(db *gorm.DB) *GormFeedbackRepository {
	return &GormFeedbackRepository{db: db}
}

// WithTx 绑定事务
func (r *GormFeedbackRepository) WithTx(tx *gorm.DB) *GormFeedbackRepository {
	if tx == nil {
		return r
	}
	return &GormFeedbackRepository{db: tx}
}

// GetByID 获取反馈
func (r *GormFeedbackRepository) GetByID(tenantID, id uint) (*models.Feedback, error) {
	var feedback models.Feedback
	if err := r.db.Where("tenant_id = ? AND id = ?", tenantID, id).First(&feedback).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &feedback, nil
}

// Create 创建反馈
func (r *GormFeedbackRepository) Create(feedback *models.Feedback) error {
	return r.db.Create(feedback).Error
}

// Update 更新反馈
func (r *GormFeedbackRepository) Update(feedback *models.Feedback) error {
	return r.db.Save(feedback).Error
}

// List 分页查询反馈
func (r *GormFeedbackRepository) List(filter FeedbackListFilter) ([]models.Feedback, int64, error) {
	query := r.db.Model(&models.Feedback{}).Where("tenant_id = ?", filter.TenantID)
	if filter.CustomerID != 0 {
		query = query.Where("customer_id = ?", filter.CustomerID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var items []models.Feedback
	if err := query.Order("id desc").Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}
