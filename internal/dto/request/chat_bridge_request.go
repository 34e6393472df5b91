package request

// 桥接服务 HTTP 请求体
// 使用位置: internal/handler/chat_handler.go, internal/handler/auth_handler.go

// SendChatRequest 发送消息
type SendChatRequest struct {
	Message string `json:"message" binding:"required"`
}

// SelectCounterpartRequest 管理员选择对话的顾客
type SelectCounterpartRequest struct {
	CounterpartId string `json:"counterpart_id" binding:"required,participant"`
}

// RefreshTokenRequest 用 Refresh Token 换取新的 Access Token
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}
