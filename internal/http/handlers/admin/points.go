package admin

import (
	"github.com/dinepoints/internal/http/handlers/shared"
	"github.com/dinepoints/internal/http/response"
	"github.com/dinepoints/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// EarnRequest 消费积分请求
type EarnRequest struct {
	BillAmount decimal.Decimal `json:"bill_amount"`
	OrderRef   string          `json:"order_ref"`
}

// RedeemRequest 积分抵扣请求
type RedeemRequest struct {
	Points     int64           `json:"points" binding:"required"`
	BillAmount decimal.Decimal `json:"bill_amount"`
	OrderRef   string          `json:"order_ref"`
}

// ManualTransactionRequest 手工积分调整请求
type ManualTransactionRequest struct {
	Type        string          `json:"type" binding:"required"`
	Points      int64           `json:"points" binding:"required"`
	BillAmount  decimal.Decimal `json:"bill_amount"`
	Description string          `json:"description"`
	Reference   string          `json:"reference"`
}

// ProcessOrderRequest 后台补录订单请求
type ProcessOrderRequest struct {
	OrderRef     string          `json:"order_ref" binding:"required"`
	BillAmount   decimal.Decimal `json:"bill_amount"`
	Channel      string          `json:"channel"`
	CouponCode   string          `json:"coupon_code"`
	RedeemPoints int64           `json:"redeem_points"`
	WalletAmount decimal.Decimal `json:"wallet_amount"`
}

var pointsErrorRules = shared.ConcatMappedHandlerErrors(
	shared.LedgerErrorRules,
	shared.CustomerErrorRules,
	[]shared.MappedHandlerError{
		{Target: service.ErrLoyaltyConfigInvalid, Code: response.CodeBadRequest, Key: "error.settings_invalid"},
	},
)

var orderErrorRules = shared.ConcatMappedHandlerErrors(shared.CouponErrorRules, pointsErrorRules)

// EarnPoints 按账单金额累积积分
func (h *Handler) EarnPoints(c *gin.Context) {
	tenantID, ok := getTenantID(c)
	if !ok {
		return
	}
	customerID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req EarnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	result, err := h.PointsService.Earn(service.EarnInput{
		TenantID:   tenantID,
		CustomerID: customerID,
		BillAmount: req.BillAmount,
		OrderRef:   req.OrderRef,
	})
	if err != nil {
		respondWithMappedError(c, err, pointsErrorRules, response.CodeInternal, "error.points_process_failed")
		return
	}
	response.Success(c, result)
}

// RedeemPoints 抵扣积分
func (h *Handler) RedeemPoints(c *gin.Context) {
	tenantID, ok := getTenantID(c)
	if !ok {
		return
	}
	customerID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req RedeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	result, err := h.PointsService.Redeem(service.RedeemInput{
		TenantID:   tenantID,
		CustomerID: customerID,
		Points:     req.Points,
		BillAmount: req.BillAmount,
		OrderRef:   req.OrderRef,
	})
	if err != nil {
		respondWithMappedError(c, err, pointsErrorRules, response.CodeInternal, "error.points_process_failed")
		return
	}
	response.Success(c, result)
}

// ManualTransaction 运营手工调整积分
func (h *Handler) ManualTransaction(c *gin.Context) {
	tenantID, ok := getTenantID(c)
	if !ok {
		return
	}
	customerID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req ManualTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	txn, err := h.PointsService.ManualTransaction(service.ManualTransactionInput{
		TenantID:    tenantID,
		CustomerID:  customerID,
		Type:        req.Type,
		Points:      req.Points,
		BillAmount:  req.BillAmount,
		Description: req.Description,
		Reference:   req.Reference,
	})
	if err != nil {
		respondWithMappedError(c, err, pointsErrorRules, response.CodeInternal, "error.points_process_failed")
		return
	}
	requestLog(c).Infow("admin_points_manual_transaction",
		"tenant_id", tenantID,
		"customer_id", customerID,
		"type", req.Type,
		"points", req.Points,
	)
	response.Success(c, txn)
}

// ProcessOrder 后台补录一笔订单结算
func (h *Handler) ProcessOrder(c *gin.Context) {
	tenantID, ok := getTenantID(c)
	if !ok {
		return
	}
	customerID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req ProcessOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	result, err := h.PointsService.ProcessOrder(service.OrderInput{
		TenantID:     tenantID,
		OrderRef:     req.OrderRef,
		CustomerID:   customerID,
		BillAmount:   req.BillAmount,
		Channel:      req.Channel,
		CouponCode:   req.CouponCode,
		RedeemPoints: req.RedeemPoints,
		WalletAmount: req.WalletAmount,
	})
	if err != nil {
		respondWithMappedError(c, err, orderErrorRules, response.CodeInternal, "error.points_process_failed")
		return
	}
	response.Success(c, result)
}
