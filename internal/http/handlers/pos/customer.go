package pos

import (
	"strings"

	"github.com/dinepoints/internal/http/handlers/shared"
	"github.com/dinepoints/internal/http/response"
	"github.com/dinepoints/internal/service"

	"github.com/gin-gonic/gin"
)

// RegisterCustomerRequest POS 新客登记
type RegisterCustomerRequest struct {
	Name        string `json:"name"`
	Phone       string `json:"phone" binding:"required"`
	Email       string `json:"email"`
	DateOfBirth string `json:"date_of_birth"`
	Anniversary string `json:"anniversary"`
}

// LookupCustomer 按手机号查询客户积分
func (h *Handler) LookupCustomer(c *gin.Context) {
	tenantID, ok := getTenantID(c)
	if !ok {
		return
	}
	phone := strings.TrimSpace(c.Query("phone"))
	view, err := h.CustomerService.Lookup(tenantID, phone)
	if err != nil {
		respondWithMappedError(c, err, shared.CustomerErrorRules, response.CodeInternal, "error.customer_fetch_failed")
		return
	}
	response.Success(c, view)
}

// RegisterCustomer 登记新客户，启用时发放首访奖励
func (h *Handler) RegisterCustomer(c *gin.Context) {
	tenantID, ok := getTenantID(c)
	if !ok {
		return
	}
	var req RegisterCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	customer, err := h.CustomerService.Register(tenantID, service.CustomerInput{
		Name:        req.Name,
		Phone:       req.Phone,
		Email:       req.Email,
		DateOfBirth: req.DateOfBirth,
		Anniversary: req.Anniversary,
	})
	if err != nil {
		respondWithMappedError(c, err, shared.CustomerErrorRules, response.CodeInternal, "error.customer_save_failed")
		return
	}
	response.Success(c, customer)
}
