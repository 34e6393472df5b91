package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const healthPingTimeout = 2 * time.Second

// HealthHandler 健康检查
// redis 为 nil 时只报告进程存活
type HealthHandler struct {
	redis *redis.Client
}

// NewHealthHandler 创建健康检查处理器
func NewHealthHandler(client *redis.Client) *HealthHandler {
	return &HealthHandler{redis: client}
}

// Check GET /health
// 配置了 Redis 时 ping 不通返回 503
func (h *HealthHandler) Check(c *gin.Context) {
	if h.redis == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthPingTimeout)
	defer cancel()
	if err := h.redis.Ping(ctx).Err(); err != nil {
		zap.L().Warn("health check: redis unreachable", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "redis": "down"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "redis": "up"})
}
