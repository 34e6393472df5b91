// Package identity 通过 REST 接口 GET /api/me 查询当前登录用户
// 聊天会话不读取任何全局登录状态，身份由这里解析后显式传入 Connect
package identity

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"dine_chat/internal/model"
	"dine_chat/pkg/errorx"

	"go.uber.org/zap"
)

// UserInfo /api/me 返回的 userInfo
type UserInfo struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	IsAdmin  bool   `json:"isAdmin"`
}

type meResponse struct {
	UserInfo *UserInfo `json:"userInfo"`
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Client /api/me 客户端
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient baseURL 如 http://localhost:3000
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Me 携带调用方的 cookie 查询当前用户
func (c *Client) Me(ctx context.Context, cookies []*http.Cookie) (*UserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/me", nil)
	if err != nil {
		return nil, errorx.Wrap(err, errorx.CodeUpstream, "build /api/me request")
	}
	req.Header.Set("Accept", "application/json")
	for _, ck := range cookies {
		req.AddCookie(ck)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errorx.Wrap(err, errorx.CodeUpstream, "request /api/me")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, errorx.Wrap(err, errorx.CodeUpstream, "read /api/me response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, upstreamError(resp.StatusCode, body)
	}

	var me meResponse
	if err := json.Unmarshal(body, &me); err != nil {
		return nil, errorx.Wrap(err, errorx.CodeUpstream, "decode /api/me response")
	}
	if me.UserInfo == nil {
		return nil, errorx.ErrUnauthorized
	}
	return me.UserInfo, nil
}

// Resolve 查询当前用户并转换为聊天身份
func (c *Client) Resolve(ctx context.Context, cookies []*http.Cookie) (model.Identity, error) {
	info, err := c.Me(ctx, cookies)
	if err != nil {
		return model.Identity{}, err
	}
	return ToIdentity(info)
}

// ToIdentity 优先使用邮箱作为聊天 id，没有邮箱时退回用户名
func ToIdentity(info *UserInfo) (model.Identity, error) {
	id := strings.TrimSpace(info.Email)
	if id == "" {
		id = strings.TrimSpace(info.Username)
	}
	if id == "" {
		return model.Identity{}, errorx.ErrNoIdentity
	}
	role := model.RoleCustomer
	if info.IsAdmin {
		role = model.RoleAdmin
	}
	return model.Identity{ID: id, Role: role}, nil
}

// upstreamError 非 2xx 响应体为 {error} 或 {message}
func upstreamError(status int, body []byte) error {
	var eb errorBody
	msg := ""
	if err := json.Unmarshal(body, &eb); err == nil {
		msg = eb.Error
		if msg == "" {
			msg = eb.Message
		}
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	zap.L().Debug("/api/me rejected", zap.Int("status", status), zap.String("msg", msg))
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return errorx.New(errorx.CodeUnauthorized, msg)
	}
	return errorx.Newf(errorx.CodeUpstream, "/api/me %d: %s", status, msg)
}
