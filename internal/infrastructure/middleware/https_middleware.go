package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/unrolled/secure"
	"go.uber.org/zap"
)

// TlsHandler 把 HTTP 请求重定向到 HTTPS，并补上常用安全响应头
// 由 Nginx 终止 TLS 时不要启用（mainConfig.tlsRedirect = false）
func TlsHandler(host string, port int, dev bool) gin.HandlerFunc {
	secureMiddleware := secure.New(secure.Options{
		SSLRedirect:          true,
		SSLHost:              host + ":" + strconv.Itoa(port),
		SSLProxyHeaders:      map[string]string{"X-Forwarded-Proto": "https"},
		FrameDeny:            true,
		ContentTypeNosniff:   true,
		STSSeconds:           31536000,
		STSIncludeSubdomains: true,
		IsDevelopment:        dev,
	})

	return func(c *gin.Context) {
		// 重定向或 host 校验失败时 Process 已写好响应并返回 err，只需终止
		if err := secureMiddleware.Process(c.Writer, c.Request); err != nil {
			zap.L().Debug("request stopped by secure middleware", zap.String("path", c.Request.URL.Path), zap.Error(err))
			c.Abort()
			return
		}
		c.Next()
	}
}
