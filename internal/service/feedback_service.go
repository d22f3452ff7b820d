package service

import (
	"strings"
	"time"

	"github.com/dinepoints/internal/constants"
	"github.com/dinepoints/internal/models"
	"github.com/dinepoints/internal/repository"
)

// FeedbackService 顾客反馈服务
type FeedbackService struct {
	feedbackRepo repository.FeedbackRepository
	ledger       *LedgerService
	settingSvc   *SettingService
	now          func() time.Time
}

// FeedbackInput 提交反馈输入
type FeedbackInput struct {
	TenantID   uint
	CustomerID uint // 可选
	Rating     int
	Message    string
}

// NewFeedbackService 创建反馈服务
func NewFeedbackService(feedbackRepo repository.FeedbackRepository, ledger *LedgerService, settingSvc *SettingService) *FeedbackService {
	return &FeedbackService{
		feedbackRepo: feedbackRepo,
		ledger:       ledger,
		settingSvc:   settingSvc,
		now:          time.Now,
	}
}

// Submit 保存反馈；关联客户且启用反馈奖励时，与反馈记录同事务发放奖励
func (s *FeedbackService) Submit(input FeedbackInput) (*models.Feedback, error) {
	if input.Rating < 1 || input.Rating > 5 {
		return nil, ErrFeedbackInvalid
	}
	now := s.now()
	feedback := &models.Feedback{
		TenantID:  input.TenantID,
		Rating:    input.Rating,
		Message:   strings.TrimSpace(input.Message),
		Status:    constants.FeedbackStatusPending,
		CreatedAt: now,
	}
	if input.CustomerID == 0 {
		if err := s.feedbackRepo.Create(feedback); err != nil {
			return nil, err
		}
		return feedback, nil
	}

	setting, err := s.settingSvc.GetLoyaltySetting(input.TenantID)
	if err != nil {
		return nil, err
	}
	customerID := input.CustomerID
	feedback.CustomerID = &customerID
	err = s.ledger.withCustomer(input.TenantID, customerID, setting, now, func(scope *ledgerScope) error {
		repo := s.feedbackRepo.WithTx(scope.tx)
		if err := repo.Create(feedback); err != nil {
			return err
		}
		awarded, err := awardFeedbackInScope(scope, feedback.ID)
		if err != nil {
			return err
		}
		if awarded == 0 {
			return nil
		}
		feedback.BonusPoints = awarded
		return repo.Update(feedback)
	})
	if err != nil {
		return nil, err
	}
	return feedback, nil
}

// Resolve 标记反馈已处理
func (s *FeedbackService) Resolve(tenantID, id uint) (*models.Feedback, error) {
	feedback, err := s.feedbackRepo.GetByID(tenantID, id)
	if err != nil {
		return nil, err
	}
	if feedback == nil {
		return nil, ErrFeedbackNotFound
	}
	if feedback.Status == constants.FeedbackStatusResolved {
		return feedback, nil
	}
	feedback.Status = constants.FeedbackStatusResolved
	if err := s.feedbackRepo.Update(feedback); err != nil {
		return nil, err
	}
	return feedback, nil
}

// List 分页查询反馈
func (s *FeedbackService) List(filter repository.FeedbackListFilter) ([]models.Feedback, int64, error) {
	return s.feedbackRepo.List(filter)
}
