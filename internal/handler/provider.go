// Package handler 提供聊天桥接服务的 HTTP 处理器
// 本文件定义 Handler 聚合结构和构造函数
package handler

import (
	"time"

	myredis "dine_chat/internal/dao/redis"
	"dine_chat/internal/service/chat"

	"github.com/redis/go-redis/v9"
)

// Handlers 聚合所有 Handler 实例，Router 通过它访问各个 Handler
type Handlers struct {
	Auth   *AuthHandler
	Chat   *ChatHandler
	Health *HealthHandler
}

// Deps 构造 Handlers 所需的依赖
// Tokens、Redis 可为 nil（不启用单点互踢、健康检查不 ping）；Location 为 nil 时使用本地时区
type Deps struct {
	Manager  *chat.Manager
	Resolver IdentityResolver
	Tokens   myredis.CacheService
	Redis    *redis.Client
	Location *time.Location
}

// NewHandlers 创建并注入所有 Handler 实例
func NewHandlers(deps Deps) *Handlers {
	return &Handlers{
		Auth:   NewAuthHandler(deps.Resolver, deps.Tokens, deps.Manager),
		Chat:   NewChatHandler(deps.Manager, deps.Location),
		Health: NewHealthHandler(deps.Redis),
	}
}
