package pos

import "github.com/dinepoints/internal/provider"

// Handler POS 接入接口处理器入口
// 说明：该处理器仅用于收银系统侧 API，商户身份由 X-API-Key 解析。
type Handler struct {
	*provider.Container
}

// New 创建 POS 处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
