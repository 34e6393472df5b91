package handler

import (
	"context"
	"net/http"
	"time"

	myredis "dine_chat/internal/dao/redis"
	"dine_chat/internal/dto/request"
	"dine_chat/internal/dto/respond"
	"dine_chat/internal/infrastructure/middleware"
	"dine_chat/internal/model"
	"dine_chat/internal/service/chat"
	"dine_chat/pkg/constants"
	"dine_chat/pkg/errorx"
	"dine_chat/pkg/util/jwt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// IdentityResolver 根据调用方的 cookie 解析当前用户
// 实现：identity.Client（GET /api/me）
type IdentityResolver interface {
	Resolve(ctx context.Context, cookies []*http.Cookie) (model.Identity, error)
}

// AuthHandler 认证处理器
// tokens 为 nil 时不做单点互踢校验
type AuthHandler struct {
	resolver IdentityResolver
	tokens   myredis.CacheService
	manager  *chat.Manager
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(resolver IdentityResolver, tokens myredis.CacheService, manager *chat.Manager) *AuthHandler {
	return &AuthHandler{resolver: resolver, tokens: tokens, manager: manager}
}

func tokenKey(userID string) string {
	return "user_token:" + userID
}

// Session 用宿主站点的登录 cookie 换取桥接服务的 Token
// POST /auth/session
// 响应: respond.AuthSessionRespond
func (h *AuthHandler) Session(c *gin.Context) {
	identity, err := h.resolver.Resolve(c.Request.Context(), c.Request.Cookies())
	if err != nil {
		HandleError(c, err)
		return
	}

	accessToken, err := jwt.GenerateAccessToken(identity.ID, string(identity.Role))
	if err != nil {
		HandleError(c, err)
		return
	}
	refreshToken, tokenID, err := jwt.GenerateRefreshToken(identity.ID, string(identity.Role))
	if err != nil {
		HandleError(c, err)
		return
	}

	// 新登录覆盖旧的 Token ID，旧设备刷新时会被拒绝
	if h.tokens != nil {
		ttl := constants.REFRESH_TOKEN_EXPIRY_HOURS * time.Hour
		if err := h.tokens.Set(c.Request.Context(), tokenKey(identity.ID), tokenID, ttl); err != nil {
			HandleError(c, err)
			return
		}
	}

	zap.L().Info("chat bridge session issued",
		zap.String("user", identity.ID),
		zap.String("role", string(identity.Role)))

	HandleSuccess(c, respond.AuthSessionRespond{
		UserId:       identity.ID,
		Role:         identity.Role,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	})
}

// Refresh 刷新 Access Token
// POST /auth/refresh
// 请求体: request.RefreshTokenRequest
// 响应: { access_token: string }
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req request.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}

	claims, err := jwt.ParseToken(req.RefreshToken)
	if err != nil {
		HandleError(c, errorx.New(errorx.CodeUnauthorized, "Refresh Token 已过期或无效，请重新登录"))
		return
	}
	if claims.Subject != "refresh_token" {
		HandleError(c, errorx.New(errorx.CodeUnauthorized, "请使用 Refresh Token"))
		return
	}

	if h.tokens != nil {
		validTokenID, err := h.tokens.GetOrError(c.Request.Context(), tokenKey(claims.UserID))
		if err != nil {
			if !errorx.IsNotFound(err) {
				zap.L().Warn("load refresh token id failed", zap.String("user", claims.UserID), zap.Error(err))
			}
			HandleError(c, errorx.New(errorx.CodeUnauthorized, "登录状态已失效，请重新登录"))
			return
		}
		if claims.TokenID != validTokenID {
			HandleError(c, errorx.New(errorx.CodeUnauthorized, "您的账号已在其他设备登录，请重新登录"))
			return
		}
	}

	accessToken, err := jwt.GenerateAccessToken(claims.UserID, claims.Role)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, gin.H{"access_token": accessToken})
}

// Logout 退出登录：拆除聊天会话并作废 Refresh Token
// POST /auth/logout（需要 Access Token）
func (h *AuthHandler) Logout(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		HandleError(c, errorx.ErrNoIdentity)
		return
	}
	if err := h.manager.Logout(c.Request.Context(), identity); err != nil {
		// 会话已拆除，会话列表残留不影响退出
		zap.L().Warn("forget roster on logout failed", zap.String("user", identity.ID), zap.Error(err))
	}
	if h.tokens != nil {
		if err := h.tokens.Delete(c.Request.Context(), tokenKey(identity.ID)); err != nil {
			HandleError(c, err)
			return
		}
	}
	zap.L().Info("chat bridge logout", zap.String("user", identity.ID))
	HandleSuccess(c, nil)
}
