package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dinepoints/internal/constants"
	"github.com/dinepoints/internal/logger"
	"github.com/dinepoints/internal/models"
	"github.com/dinepoints/internal/repository"
)

// BonusService 年度奖励（生日/纪念日）批量发放服务
type BonusService struct {
	ledger       *LedgerService
	customerRepo repository.CustomerRepository
	now          func() time.Time
}

// BonusRunResult 单个商户单类奖励的发放结果
type BonusRunResult struct {
	Kind             string   `json:"kind"`
	CustomersAwarded int      `json:"customers_awarded"`
	PointsAwarded    int64    `json:"points_awarded"`
	Skipped          int      `json:"skipped"`
	Errors           []string `json:"errors,omitempty"`
}

// bonusOutcome 单个客户的判定结果
type bonusOutcome int

const (
	bonusNotEligible bonusOutcome = iota
	bonusAlreadyAwarded
	bonusAwarded
)

// NewBonusService 创建奖励服务
func NewBonusService(ledger *LedgerService, customerRepo repository.CustomerRepository) *BonusService {
	return &BonusService{
		ledger:       ledger,
		customerRepo: customerRepo,
		now:          time.Now,
	}
}

// AwardBirthdayBonuses 发放生日奖励
func (s *BonusService) AwardBirthdayBonuses(tenantID uint, setting LoyaltySetting) (*BonusRunResult, error) {
	return s.awardYearly(tenantID, setting, constants.BonusKindBirthday)
}

// AwardAnniversaryBonuses 发放纪念日奖励
func (s *BonusService) AwardAnniversaryBonuses(tenantID uint, setting LoyaltySetting) (*BonusRunResult, error) {
	return s.awardYearly(tenantID, setting, constants.BonusKindAnniversary)
}

// awardYearly 遍历商户客户，对落在窗口内且今年未发放的客户发放奖励
// 单个客户失败只记录到结果中，不中断整个商户
func (s *BonusService) awardYearly(tenantID uint, setting LoyaltySetting, kind string) (*BonusRunResult, error) {
	result := &BonusRunResult{Kind: kind, Errors: []string{}}
	rule := setting.Bonus(kind)
	if !rule.Enabled || rule.Points <= 0 {
		return result, nil
	}
	ids, err := s.customerRepo.ListIDsByTenant(tenantID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	today := now.In(setting.Location())
	log := logger.ForTenant(tenantID, "kind", kind)
	for _, id := range ids {
		customer, err := s.customerRepo.GetByID(tenantID, id)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("customer %d: %v", id, err))
			continue
		}
		if customer == nil {
			continue
		}
		// 锁外预筛选，避免对每个客户都开事务
		if yearlyMarker(customer, kind) == today.Year() || strings.TrimSpace(anchorValue(customer, kind)) == "" {
			continue
		}
		window, err := resolveBonusWindow(anchorValue(customer, kind), rule, today)
		if err != nil {
			result.Skipped++
			log.Warnw("bonus_"+kind+"_date_invalid", "customer_id", id, "error", err)
			continue
		}
		if !window.Contains(today) {
			continue
		}

		var outcome bonusOutcome
		err = s.ledger.withCustomer(tenantID, id, setting, now, func(scope *ledgerScope) error {
			var err error
			outcome, err = awardYearlyInScope(scope, kind, rule, today)
			return err
		})
		if err != nil {
			if errors.Is(err, ErrMalformedDate) {
				result.Skipped++
				continue
			}
			log.Warnw("bonus_award_failed", "customer_id", id, "error", err)
			result.Errors = append(result.Errors, fmt.Sprintf("customer %d: %v", id, err))
			continue
		}
		if outcome == bonusAwarded {
			result.CustomersAwarded++
			result.PointsAwarded += rule.Points
		}
	}
	return result, nil
}

// awardYearlyInScope 锁内复核年度标记与窗口后发放奖励
func awardYearlyInScope(scope *ledgerScope, kind string, rule BonusRule, today time.Time) (bonusOutcome, error) {
	year := today.Year()
	if yearlyMarker(scope.customer, kind) == year {
		return bonusAlreadyAwarded, nil
	}
	raw := anchorValue(scope.customer, kind)
	if strings.TrimSpace(raw) == "" {
		return bonusNotEligible, nil
	}
	window, err := resolveBonusWindow(raw, rule, today)
	if err != nil {
		return bonusNotEligible, err
	}
	if !window.Contains(today) {
		return bonusNotEligible, nil
	}
	reference := fmt.Sprintf("%s:%d", kind, year)
	if dup, err := scope.hasReference(reference); err != nil {
		return bonusNotEligible, err
	} else if dup {
		setYearlyMarker(scope.customer, kind, year)
		scope.touch()
		return bonusAlreadyAwarded, nil
	}

	entry := &models.PointsTransaction{
		Type:        constants.PointsTxnTypeBonus,
		BonusKind:   kind,
		Points:      rule.Points,
		Description: fmt.Sprintf("%s bonus (%d)", bonusLabel(kind), year),
		Reference:   optionalReference(reference),
	}
	if err := scope.post(entry); err != nil {
		return bonusNotEligible, err
	}
	setYearlyMarker(scope.customer, kind, year)
	scope.emitPoints(constants.LoyaltyEventBonusAwarded, entry, map[string]interface{}{
		"bonus_kind": kind,
		"year":       year,
		"anchor":     window.Anchor.Format(anchorDateLayout),
	})
	return bonusAwarded, nil
}

// awardFirstVisitInScope 首次到店奖励，仅在客户尚无到店记录时发放一次
func awardFirstVisitInScope(scope *ledgerScope) (int64, error) {
	rule := scope.setting.Bonus(constants.BonusKindFirstVisit)
	if !rule.Enabled || rule.Points <= 0 {
		return 0, nil
	}
	if scope.customer.FirstVisitBonusAwarded || scope.customer.TotalVisits > 0 {
		return 0, nil
	}
	reference := constants.BonusKindFirstVisit
	if dup, err := scope.hasReference(reference); err != nil || dup {
		return 0, err
	}
	entry := &models.PointsTransaction{
		Type:        constants.PointsTxnTypeBonus,
		BonusKind:   constants.BonusKindFirstVisit,
		Points:      rule.Points,
		Description: "First visit bonus",
		Reference:   optionalReference(reference),
	}
	if err := scope.post(entry); err != nil {
		return 0, err
	}
	scope.customer.FirstVisitBonusAwarded = true
	scope.emitPoints(constants.LoyaltyEventBonusAwarded, entry, map[string]interface{}{
		"bonus_kind": constants.BonusKindFirstVisit,
	})
	return rule.Points, nil
}

// awardFeedbackInScope 反馈奖励，每条反馈发放一次
func awardFeedbackInScope(scope *ledgerScope, feedbackID uint) (int64, error) {
	rule := scope.setting.Bonus(constants.BonusKindFeedback)
	if !rule.Enabled || rule.Points <= 0 || feedbackID == 0 {
		return 0, nil
	}
	reference := fmt.Sprintf("%s:%d", constants.BonusKindFeedback, feedbackID)
	if dup, err := scope.hasReference(reference); err != nil || dup {
		return 0, err
	}
	entry := &models.PointsTransaction{
		Type:        constants.PointsTxnTypeBonus,
		BonusKind:   constants.BonusKindFeedback,
		Points:      rule.Points,
		Description: "Feedback bonus",
		Reference:   optionalReference(reference),
	}
	if err := scope.post(entry); err != nil {
		return 0, err
	}
	scope.emitPoints(constants.LoyaltyEventBonusAwarded, entry, map[string]interface{}{
		"bonus_kind":  constants.BonusKindFeedback,
		"feedback_id": feedbackID,
	})
	return rule.Points, nil
}

func anchorValue(customer *models.Customer, kind string) string {
	switch kind {
	case constants.BonusKindBirthday:
		return customer.DateOfBirth
	case constants.BonusKindAnniversary:
		return customer.Anniversary
	}
	return ""
}

func yearlyMarker(customer *models.Customer, kind string) int {
	switch kind {
	case constants.BonusKindBirthday:
		return customer.LastBirthdayBonusYear
	case constants.BonusKindAnniversary:
		return customer.LastAnniversaryBonusYear
	}
	return 0
}

func setYearlyMarker(customer *models.Customer, kind string, year int) {
	switch kind {
	case constants.BonusKindBirthday:
		customer.LastBirthdayBonusYear = year
	case constants.BonusKindAnniversary:
		customer.LastAnniversaryBonusYear = year
	}
}

func bonusLabel(kind string) string {
	switch kind {
	case constants.BonusKindBirthday:
		return "Birthday"
	case constants.BonusKindAnniversary:
		return "Anniversary"
	case constants.BonusKindFirstVisit:
		return "First visit"
	case constants.BonusKindFeedback:
		return "Feedback"
	}
	return kind
}
