package middleware

import (
	"net/http"
	"strings"

	"dine_chat/internal/model"
	"dine_chat/pkg/errorx"
	"dine_chat/pkg/util/jwt"

	"github.com/gin-gonic/gin"
)

// 上下文键
const (
	CtxUserID   = "user_id"
	CtxIdentity = "identity"
)

// JWTAuth 验证 Access Token，并把调用方身份存入上下文
// 浏览器的 WebSocket 无法自定义 Header，因此也接受 ?token= 查询参数
func JWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, msg := bearerToken(c)
		if tokenString == "" {
			abort(c, msg)
			return
		}

		claims, err := jwt.ParseToken(tokenString)
		if err != nil {
			abort(c, "Token 已过期或无效，请重新登录")
			return
		}
		if claims.Subject != "access_token" {
			abort(c, "请使用 Access Token 访问此接口")
			return
		}

		identity := model.Identity{ID: claims.UserID, Role: model.Role(claims.Role)}
		if identity.ID == "" || !identity.Role.Valid() {
			abort(c, "Token 中缺少聊天身份")
			return
		}

		c.Set(CtxUserID, identity.ID)
		c.Set(CtxIdentity, identity)
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, string) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		if token := c.Query("token"); token != "" {
			return token, ""
		}
		return "", "请先登录"
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", "Token 格式错误，请使用 Bearer Token"
	}
	return parts[1], ""
}

func abort(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"code": errorx.CodeUnauthorized,
		"msg":  msg,
	})
}

// IdentityFrom 取出 JWTAuth 存入的身份
func IdentityFrom(c *gin.Context) (model.Identity, bool) {
	v, ok := c.Get(CtxIdentity)
	if !ok {
		return model.Identity{}, false
	}
	identity, ok := v.(model.Identity)
	return identity, ok
}
