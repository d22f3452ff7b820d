package admin

import (
	"strconv"
	"strings"

	"github.com/dinepoints/internal/http/handlers/shared"
	"github.com/dinepoints/internal/http/response"
	"github.com/dinepoints/internal/repository"
	"github.com/dinepoints/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// CouponRequest 创建/更新优惠券请求
type CouponRequest struct {
	Code                string          `json:"code" binding:"required"`
	Description         string          `json:"description"`
	Type                string          `json:"type" binding:"required"`
	Value               decimal.Decimal `json:"value"`
	MinOrderValue       decimal.Decimal `json:"min_order_value"`
	MaxDiscount         decimal.Decimal `json:"max_discount"`
	UsageLimit          int             `json:"usage_limit"`
	PerUserLimit        *int            `json:"per_user_limit"`
	ApplicableChannels  []string        `json:"applicable_channels"`
	SpecificCustomerIDs []uint          `json:"specific_customer_ids"`
	StartsAt            string          `json:"starts_at"`
	EndsAt              string          `json:"ends_at"`
	IsActive            *bool           `json:"is_active"`
}

// CouponCheckRequest 优惠券校验/核销请求
type CouponCheckRequest struct {
	Code       string          `json:"code" binding:"required"`
	CustomerID uint            `json:"customer_id"`
	OrderValue decimal.Decimal `json:"order_value"`
	Channel    string          `json:"channel"`
	OrderRef   string          `json:"order_ref"`
}

var couponAdminErrorRules = shared.ConcatMappedHandlerErrors(
	[]shared.MappedHandlerError{
		{Target: service.ErrCouponCodeExists, Code: response.CodeConflict, Key: "error.coupon_code_exists"},
		{Target: service.ErrCouponConfigInvalid, Code: response.CodeBadRequest, Key: "error.coupon_config_invalid"},
		{Target: service.ErrCouponNotFound, Code: response.CodeNotFound, Key: "error.coupon_not_found"},
	},
	shared.CouponErrorRules,
)

func (r CouponRequest) toInput() (service.CouponInput, error) {
	startsAt, err := parseTimeNullable(r.StartsAt)
	if err != nil {
		return service.CouponInput{}, err
	}
	endsAt, err := parseTimeNullable(r.EndsAt)
	if err != nil {
		return service.CouponInput{}, err
	}
	return service.CouponInput{
		Code:                r.Code,
		Description:         r.Description,
		Type:                r.Type,
		Value:               r.Value,
		MinOrderValue:       r.MinOrderValue,
		MaxDiscount:         r.MaxDiscount,
		UsageLimit:          r.UsageLimit,
		PerUserLimit:        r.PerUserLimit,
		ApplicableChannels:  r.ApplicableChannels,
		SpecificCustomerIDs: r.SpecificCustomerIDs,
		StartsAt:            startsAt,
		EndsAt:              endsAt,
		IsActive:            r.IsActive,
	}, nil
}

// CreateCoupon 创建优惠券
func (h *Handler) CreateCoupon(c *gin.Context) {
	tenantID, ok := getTenantID(c)
	if !ok {
		return
	}
	var req CouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	input, err := req.toInput()
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	coupon, err := h.CouponService.Create(tenantID, input)
	if err != nil {
		respondWithMappedError(c, err, couponAdminErrorRules, response.CodeInternal, "error.coupon_save_failed")
		return
	}
	response.Success(c, coupon)
}

// UpdateCoupon 更新优惠券
func (h *Handler) UpdateCoupon(c *gin.Context) {
	tenantID, ok := getTenantID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req CouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	input, err := req.toInput()
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	coupon, err := h.CouponService.Update(tenantID, id, input)
	if err != nil {
		respondWithMappedError(c, err, couponAdminErrorRules, response.CodeInternal, "error.coupon_save_failed")
		return
	}
	response.Success(c, coupon)
}

// ToggleCoupon 启用/停用优惠券
func (h *Handler) ToggleCoupon(c *gin.Context) {
	tenantID, ok := getTenantID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	coupon, err := h.CouponService.Toggle(tenantID, id)
	if err != nil {
		respondWithMappedError(c, err, couponAdminErrorRules, response.CodeInternal, "error.coupon_save_failed")
		return
	}
	response.Success(c, coupon)
}

// DeleteCoupon 删除优惠券
func (h *Handler) DeleteCoupon(c *gin.Context) {
	tenantID, ok := getTenantID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.CouponService.Delete(tenantID, id); err != nil {
		respondWithMappedError(c, err, couponAdminErrorRules, response.CodeInternal, "error.coupon_save_failed")
		return
	}
	response.Success(c, gin.H{
		"deleted": true,
	})
}

// GetCoupon 优惠券详情
func (h *Handler) GetCoupon(c *gin.Context) {
	tenantID, ok := getTenantID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	coupon, err := h.CouponService.Get(tenantID, id)
	if err != nil {
		respondWithMappedError(c, err, couponAdminErrorRules, response.CodeInternal, "error.coupon_fetch_failed")
		return
	}
	response.Success(c, coupon)
}

// ListCoupons 优惠券列表
func (h *Handler) ListCoupons(c *gin.Context) {
	tenantID, ok := getTenantID(c)
	if !ok {
		return
	}
	page, pageSize := shared.ParsePagination(c)
	var isActive *bool
	if raw := strings.TrimSpace(c.Query("is_active")); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			respondError(c, response.CodeBadRequest, "error.bad_request", err)
			return
		}
		isActive = &parsed
	}
	coupons, total, err := h.CouponService.List(repository.CouponListFilter{
		TenantID: tenantID,
		Code:     strings.TrimSpace(c.Query("code")),
		IsActive: isActive,
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.coupon_fetch_failed", err)
		return
	}
	response.SuccessWithPage(c, coupons, shared.BuildPagination(page, pageSize, total))
}

// GetCouponUsage 优惠券使用报表
func (h *Handler) GetCouponUsage(c *gin.Context) {
	tenantID, ok := getTenantID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	page, pageSize := shared.ParsePagination(c)
	report, err := h.CouponService.Usage(tenantID, id, page, pageSize)
	if err != nil {
		respondWithMappedError(c, err, couponAdminErrorRules, response.CodeInternal, "error.coupon_fetch_failed")
		return
	}
	response.Success(c, report)
}

// ValidateCoupon 校验优惠券（不占用次数）
func (h *Handler) ValidateCoupon(c *gin.Context) {
	tenantID, ok := getTenantID(c)
	if !ok {
		return
	}
	var req CouponCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	quote, err := h.CouponService.Validate(req.toInput(tenantID))
	if err != nil {
		respondWithMappedError(c, err, shared.CouponErrorRules, response.CodeInternal, "error.coupon_fetch_failed")
		return
	}
	response.Success(c, quote)
}

// ApplyCoupon 核销优惠券并记录使用
func (h *Handler) ApplyCoupon(c *gin.Context) {
	tenantID, ok := getTenantID(c)
	if !ok {
		return
	}
	var req CouponCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	quote, usage, err := h.CouponService.Apply(req.toInput(tenantID))
	if err != nil {
		respondWithMappedError(c, err, shared.CouponErrorRules, response.CodeInternal, "error.coupon_save_failed")
		return
	}
	response.Success(c, gin.H{
		"quote": quote,
		"usage": usage,
	})
}

func (r CouponCheckRequest) toInput(tenantID uint) service.CouponCheckInput {
	return service.CouponCheckInput{
		TenantID:   tenantID,
		Code:       r.Code,
		CustomerID: r.CustomerID,
		OrderValue: r.OrderValue,
		Channel:    r.Channel,
		OrderRef:   r.OrderRef,
	}
}
