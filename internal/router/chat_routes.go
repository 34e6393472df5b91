package router

import (
	"dine_chat/internal/infrastructure/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterChatRoutes 注册聊天会话路由
func (rt *Router) RegisterChatRoutes(r *gin.Engine) {
	chatGroup := r.Group("/chat")
	chatGroup.Use(middleware.JWTAuth())
	{
		chatGroup.POST("/connect", rt.handlers.Chat.Connect)
		chatGroup.POST("/disconnect", rt.handlers.Chat.Disconnect)
		chatGroup.POST("/send", rt.handlers.Chat.Send)
		chatGroup.POST("/select", rt.handlers.Chat.Select)
		chatGroup.POST("/refresh", rt.handlers.Chat.Refresh)
		chatGroup.GET("/state", rt.handlers.Chat.State)
		chatGroup.GET("/roster/export", rt.handlers.Chat.ExportRoster)
		// 浏览器 WebSocket 无法带 Header，Token 放在 ?token= 中
		// 请求示例: ws://host:port/chat/events?token=xxx
		chatGroup.GET("/events", rt.handlers.Chat.Events)
	}
}
