package pos

import (
	"github.com/dinepoints/internal/http/handlers/shared"
	"github.com/dinepoints/internal/http/response"
	"github.com/dinepoints/internal/models"
	"github.com/dinepoints/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// OrderWebhookRequest 收银系统付款完成回调
type OrderWebhookRequest struct {
	OrderRef      string          `json:"order_ref" binding:"required"`
	CustomerID    uint            `json:"customer_id"`
	CustomerPhone string          `json:"customer_phone"`
	CustomerName  string          `json:"customer_name"`
	BillAmount    decimal.Decimal `json:"bill_amount"`
	Channel       string          `json:"channel"`
	CouponCode    string          `json:"coupon_code"`
	RedeemPoints  int64           `json:"redeem_points"`
	WalletAmount  decimal.Decimal `json:"wallet_amount"`
}

// OrderWebhookResponse 回调处理结果
type OrderWebhookResponse struct {
	CustomerID      uint                 `json:"customer_id"`
	CustomerCreated bool                 `json:"customer_created"`
	Duplicate       bool                 `json:"duplicate"`
	Receipt         *models.LoyaltyOrder `json:"receipt"`
	WalletBalance   models.Money         `json:"wallet_balance"`
}

var orderErrorRules = shared.ConcatMappedHandlerErrors(
	shared.CouponErrorRules,
	shared.LedgerErrorRules,
	shared.CustomerErrorRules,
)

// ProcessOrder 付款完成后结算积分（优惠券、积分抵扣、钱包、消费积分）
func (h *Handler) ProcessOrder(c *gin.Context) {
	tenantID, ok := getTenantID(c)
	if !ok {
		return
	}
	var req OrderWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	customerID := req.CustomerID
	created := false
	if customerID == 0 {
		customer, isNew, err := h.CustomerService.FindOrCreateByPhone(tenantID, req.CustomerPhone, req.CustomerName)
		if err != nil {
			respondWithMappedError(c, err, shared.CustomerErrorRules, response.CodeInternal, "error.customer_save_failed")
			return
		}
		customerID = customer.ID
		created = isNew
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
	if result.Duplicate {
		requestLog(c).Infow("pos_order_duplicate", "tenant_id", tenantID, "order_ref", req.OrderRef)
	}

	response.Success(c, OrderWebhookResponse{
		CustomerID:      customerID,
		CustomerCreated: created,
		Duplicate:       result.Duplicate,
		Receipt:         result.Receipt,
		WalletBalance:   result.WalletBalance,
	})
}
