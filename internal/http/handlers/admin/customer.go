package admin

import (
	"errors"
	"strings"

	"github.com/dinepoints/internal/constants"
	"github.com/dinepoints/internal/http/handlers/shared"
	"github.com/dinepoints/internal/http/response"
	"github.com/dinepoints/internal/repository"
	"github.com/dinepoints/internal/service"

	"github.com/gin-gonic/gin"
)

// CustomerRequest 创建/更新客户请求
type CustomerRequest struct {
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	DateOfBirth string `json:"date_of_birth"`
	Anniversary string `json:"anniversary"`
}

func (r CustomerRequest) toInput() service.CustomerInput {
	return service.CustomerInput{
		Name:        r.Name,
		Phone:       r.Phone,
		Email:       r.Email,
		DateOfBirth: r.DateOfBirth,
		Anniversary: r.Anniversary,
	}
}

// ListCustomers 客户列表
func (h *Handler) ListCustomers(c *gin.Context) {
	tenantID, ok := getTenantID(c)
	if !ok {
		return
	}
	page, pageSize := shared.ParsePagination(c)
	tier := strings.TrimSpace(c.Query("tier"))
	if tier != "" && !isKnownTier(tier) {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	customers, total, err := h.CustomerService.List(repository.CustomerListFilter{
		Page:     page,
		PageSize: pageSize,
		TenantID: tenantID,
		Tier:     tier,
		Keyword:  strings.TrimSpace(c.Query("keyword")),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.customer_fetch_failed", err)
		return
	}
	response.SuccessWithPage(c, customers, shared.BuildPagination(page, pageSize, total))
}

// CreateCustomer 创建客户
func (h *Handler) CreateCustomer(c *gin.Context) {
	tenantID, ok := getTenantID(c)
	if !ok {
		return
	}
	var req CustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	customer, err := h.CustomerService.Register(tenantID, req.toInput())
	if err != nil {
		respondWithMappedError(c, err, shared.CustomerErrorRules, response.CodeInternal, "error.customer_save_failed")
		return
	}
	response.Success(c, customer)
}

// GetCustomer 客户详情
func (h *Handler) GetCustomer(c *gin.Context) {
	tenantID, ok := getTenantID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	customer, err := h.CustomerService.Get(tenantID, id)
	if err != nil {
		respondWithMappedError(c, err, shared.CustomerErrorRules, response.CodeInternal, "error.customer_fetch_failed")
		return
	}
	response.Success(c, customer)
}

// UpdateCustomer 更新客户资料
func (h *Handler) UpdateCustomer(c *gin.Context) {
	tenantID, ok := getTenantID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req CustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	customer, err := h.CustomerService.UpdateProfile(tenantID, id, req.toInput())
	if err != nil {
		respondWithMappedError(c, err, shared.CustomerErrorRules, response.CodeInternal, "error.customer_save_failed")
		return
	}
	response.Success(c, customer)
}

// ListCustomerTransactions 客户积分流水
func (h *Handler) ListCustomerTransactions(c *gin.Context) {
	tenantID, ok := getTenantID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	page, pageSize := shared.ParsePagination(c)
	filter := repository.PointsTransactionFilter{
		Page:       page,
		PageSize:   pageSize,
		TenantID:   tenantID,
		CustomerID: id,
	}
	if raw := strings.TrimSpace(c.Query("type")); raw != "" {
		filter.Types = strings.Split(raw, ",")
	}
	txns, total, err := h.PointsService.ListTransactions(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "error.transaction_fetch_failed", err)
		return
	}
	response.SuccessWithPage(c, txns, shared.BuildPagination(page, pageSize, total))
}

// GetCustomerExpiry 客户积分过期概览
func (h *Handler) GetCustomerExpiry(c *gin.Context) {
	tenantID, ok := getTenantID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	setting, err := h.SettingService.GetLoyaltySetting(tenantID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.settings_fetch_failed", err)
		return
	}
	summary, err := h.ExpiryService.CustomerExpirySummary(tenantID, id, setting)
	if err != nil {
		respondWithMappedError(c, err, shared.CustomerErrorRules, response.CodeInternal, "error.expiry_fetch_failed")
		return
	}
	response.Success(c, summary)
}

// ReplayCustomerBalance 按流水重算余额并与账户余额比对
func (h *Handler) ReplayCustomerBalance(c *gin.Context) {
	tenantID, ok := getTenantID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	replay, err := h.PointsService.ReplayBalance(tenantID, id)
	if errors.Is(err, service.ErrBalanceInconsistent) {
		// 核对结果本身就是排查依据，照常返回
		requestLog(c).Warnw("admin_balance_inconsistent", "customer_id", id, "error", err)
		response.Success(c, replay)
		return
	}
	if err != nil {
		respondWithMappedError(c, err, shared.CustomerErrorRules, response.CodeInternal, "error.balance_replay_failed")
		return
	}
	response.Success(c, replay)
}

func isKnownTier(tier string) bool {
	switch tier {
	case constants.TierBronze, constants.TierSilver, constants.TierGold, constants.TierPlatinum:
		return true
	}
	return false
}
