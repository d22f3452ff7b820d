package admin

import (
	"errors"

	"github.com/dinepoints/internal/http/response"
	"github.com/dinepoints/internal/service"

	"github.com/gin-gonic/gin"
)

// GetLoyaltySetting 获取商户积分规则，未保存时返回默认值
func (h *Handler) GetLoyaltySetting(c *gin.Context) {
	tenantID, ok := getTenantID(c)
	if !ok {
		return
	}
	setting, err := h.SettingService.GetLoyaltySetting(tenantID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.settings_fetch_failed", err)
		return
	}
	response.Success(c, setting)
}

// UpdateLoyaltySetting 按字段合并更新积分规则
func (h *Handler) UpdateLoyaltySetting(c *gin.Context) {
	tenantID, ok := getTenantID(c)
	if !ok {
		return
	}
	var patch map[string]interface{}
	if err := c.ShouldBindJSON(&patch); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	setting, err := h.SettingService.UpdateLoyaltySetting(tenantID, patch)
	if err != nil {
		if errors.Is(err, service.ErrLoyaltyConfigInvalid) {
			response.Error(c, response.CodeBadRequest, err.Error())
			return
		}
		respondError(c, response.CodeInternal, "error.settings_save_failed", err)
		return
	}
	requestLog(c).Infow("admin_loyalty_setting_updated", "tenant_id", tenantID)
	response.Success(c, setting)
}
