// Package https_server 创建桥接服务的 Gin 引擎并配置中间件和路由
package https_server

import (
	"dine_chat/internal/config"
	"dine_chat/internal/handler"
	"dine_chat/internal/infrastructure/logger"
	"dine_chat/internal/infrastructure/middleware"
	"dine_chat/internal/router"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Init 创建 Gin 引擎
// 中间件顺序：zap 日志 -> panic 恢复 -> CORS -> 可选的 HTTPS 重定向 -> 业务路由
func Init(conf config.MainConfig, handlers *handler.Handlers) *gin.Engine {
	// 不使用 gin.Default()，日志和恢复都走 zap
	engine := gin.New()
	engine.Use(logger.GinLogger())
	engine.Use(logger.GinRecovery(true))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"*"} // 生产环境应指定宿主站点域名
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	engine.Use(cors.New(corsConfig))

	// 由 Nginx 终止 TLS 时保持关闭
	if conf.TLSRedirect {
		engine.Use(middleware.TlsHandler(conf.Host, conf.Port, conf.Mode == "dev"))
	}

	rt := router.NewRouter(handlers)
	rt.RegisterRoutes(engine)

	return engine
}
