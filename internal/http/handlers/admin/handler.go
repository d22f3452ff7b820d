package admin

import "github.com/dinepoints/internal/provider"

// Handler 后台管理接口处理器入口
// 说明：该处理器仅用于运营管理端 API，商户由路径参数 tenant_id 指定。
type Handler struct {
	*provider.Container
}

// New 创建后台处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
