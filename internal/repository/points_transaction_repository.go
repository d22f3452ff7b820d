package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/dinepoints/internal/models"

	"gorm.io/gorm"
)

// PointsTransactionRepository 积分流水数据访问接口
type PointsTransactionRepository interface {
	Append(txn *models.PointsTransaction) error
	GetByReference(customerID uint, reference string) (*models.PointsTransaction, error)
	Find(filter PointsTransactionFilter) ([]models.PointsTransaction, int64, error)
	MarkExpired(ids []uint, expiredAt time.Time) (int64, error)
	SumPoints(customerID uint) (int64, error)
	WithTx(tx *gorm.DB) *GormPointsTransactionRepository
}

// GormPointsTransactionRepository GORM 实现
type GormPointsTransactionRepository struct {
	db *gorm.DB
}

// NewPointsTransactionRepository 创建积分流水仓库
func NewPointsTransactionRepository(db *gorm.DB) *GormPointsTransactionRepository {
	return &GormPointsTransactionRepository{db: db}
}

// WithTx 绑定事务
func (r *GormPointsTransactionRepository) WithTx(tx *gorm.DB) *GormPointsTransactionRepository {
	if tx == nil {
		return r
	}
	return &GormPointsTransactionRepository{db: tx}
}

// Append 追加流水
func (r *GormPointsTransactionRepository) Append(txn *models.PointsTransaction) error {
	return r.db.Create(txn).Error
}

// GetByReference 按幂等键获取流水
func (r *GormPointsTransactionRepository) GetByReference(customerID uint, reference string) (*models.PointsTransaction, error) {
	reference = strings.TrimSpace(reference)
	if customerID == 0 || reference == "" {
		return nil, nil
	}
	var txn models.PointsTransaction
	if err := r.db.Where("customer_id = ? AND reference = ?", customerID, reference).First(&txn).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &txn, nil
}

// Find 按条件查询流水
func (r *GormPointsTransactionRepository) Find(filter PointsTransactionFilter) ([]models.PointsTransaction, int64, error) {
	query := r.db.Model(&models.PointsTransaction{})
	if filter.TenantID != 0 {
		query = query.Where("tenant_id = ?", filter.TenantID)
	}
	if filter.CustomerID != 0 {
		query = query.Where("customer_id = ?", filter.CustomerID)
	}
	if len(filter.Types) > 0 {
		query = query.Where("type IN ?", filter.Types)
	}
	if filter.OnlyActive {
		query = query.Where("points_expired = ?", false)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}
	if filter.CreatedLT != nil {
		query = query.Where("created_at < ?", *filter.CreatedLT)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	order := "id desc"
	if filter.OrderAsc {
		order = "id asc"
	}
	var txns []models.PointsTransaction
	if err := query.Order(order).Find(&txns).Error; err != nil {
		return nil, 0, err
	}
	return txns, total, nil
}

// MarkExpired 将来源流水标记为已过期，仅更新尚未过期的记录
func (r *GormPointsTransactionRepository) MarkExpired(ids []uint, expiredAt time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.Model(&models.PointsTransaction{}).
		Where("id IN ? AND points_expired = ?", ids, false).
		Updates(map[string]interface{}{
			"points_expired": true,
			"expired_at":     expiredAt,
		})
	return result.RowsAffected, result.Error
}

// SumPoints 汇总客户全部流水积分（用于余额核对）
func (r *GormPointsTransactionRepository) SumPoints(customerID uint) (int64, error) {
	var sum int64
	if err := r.db.Model(&models.PointsTransaction{}).
		Where("customer_id = ?", customerID).
		Select("COALESCE(SUM(points), 0)").
		Scan(&sum).Error; err != nil {
		return 0, err
	}
	return sum, nil
}
