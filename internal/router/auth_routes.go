package router

import (
	"dine_chat/internal/infrastructure/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterAuthRoutes 注册认证相关路由（除 logout 外无需 Token）
func (rt *Router) RegisterAuthRoutes(r *gin.Engine) {
	authGroup := r.Group("/auth")
	{
		// POST /auth/session - 用宿主站点的登录 cookie 换取 Token
		authGroup.POST("/session", rt.handlers.Auth.Session)
		// POST /auth/refresh - 使用 Refresh Token 换取新的 Access Token
		authGroup.POST("/refresh", rt.handlers.Auth.Refresh)
		// POST /auth/logout - 拆除聊天会话并作废 Refresh Token
		authGroup.POST("/logout", middleware.JWTAuth(), rt.handlers.Auth.Logout)
	}
}
