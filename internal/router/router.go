// Package router 提供 HTTP 路由注册
// 本文件是路由注册的入口，聚合所有子模块的路由
package router

import (
	"dine_chat/internal/handler"

	"github.com/gin-gonic/gin"
)

// Router 持有 Handler 聚合，按模块注册路由
type Router struct {
	handlers *handler.Handlers
}

// NewRouter 创建路由管理器
func NewRouter(handlers *handler.Handlers) *Router {
	return &Router{handlers: handlers}
}

// RegisterRoutes 注册所有路由，在 https_server.Init() 中调用
func (rt *Router) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", rt.handlers.Health.Check)
	rt.RegisterAuthRoutes(r) // 认证路由（换取 / 刷新 / 作废 Token）
	rt.RegisterChatRoutes(r) // 聊天会话路由（需要认证）
}
