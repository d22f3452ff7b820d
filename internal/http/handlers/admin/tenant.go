package admin

import (
	"github.com/dinepoints/internal/http/handlers/shared"
	"github.com/dinepoints/internal/http/response"
	"github.com/dinepoints/internal/service"

	"github.com/gin-gonic/gin"
)

// RegisterTenantRequest 登记商户请求
type RegisterTenantRequest struct {
	Name   string `json:"name" binding:"required"`
	APIKey string `json:"api_key" binding:"required"`
}

var tenantErrorRules = []shared.MappedHandlerError{
	{Target: service.ErrTenantInvalid, Code: response.CodeBadRequest, Key: "error.tenant_invalid"},
	{Target: service.ErrTenantExists, Code: response.CodeConflict, Key: "error.tenant_exists"},
	{Target: service.ErrTenantNotFound, Code: response.CodeNotFound, Key: "error.tenant_not_found"},
}

// RegisterTenant 登记商户
func (h *Handler) RegisterTenant(c *gin.Context) {
	var req RegisterTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	tenant, err := h.TenantService.Register(req.Name, req.APIKey)
	if err != nil {
		respondWithMappedError(c, err, tenantErrorRules, response.CodeInternal, "error.tenant_create_failed")
		return
	}
	response.Success(c, tenant)
}

// GetTenant 获取商户
func (h *Handler) GetTenant(c *gin.Context) {
	tenantID, ok := getTenantID(c)
	if !ok {
		return
	}
	tenant, err := h.TenantService.Get(tenantID)
	if err != nil {
		respondWithMappedError(c, err, tenantErrorRules, response.CodeInternal, "error.internal")
		return
	}
	response.Success(c, tenant)
}
