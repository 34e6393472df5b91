package chat

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"dine_chat/internal/model"
	"dine_chat/pkg/constants"

	"github.com/gorilla/websocket"
)

// Conn 会话使用的最小 WebSocket 能力
// *websocket.Conn 天然满足该接口，测试中可以用内存实现替换
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Dialer 建立到聊天端点的连接
type Dialer interface {
	Dial(ctx context.Context, urlStr string) (Conn, error)
}

// WSDialer 基于 gorilla/websocket 的 Dialer
type WSDialer struct {
	HandshakeTimeout time.Duration
	Header           http.Header
}

// Dial 实现 Dialer
func (d WSDialer) Dial(ctx context.Context, urlStr string) (Conn, error) {
	timeout := d.HandshakeTimeout
	if timeout <= 0 {
		timeout = constants.WS_HANDSHAKE_TIMEOUT
	}
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: timeout,
		ReadBufferSize:   2048,
		WriteBufferSize:  2048,
	}
	conn, _, err := dialer.DialContext(ctx, urlStr, d.Header)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// buildURL 把 userId / role 编码进查询串
// 例如: wss://host/production?role=customer&userId=alice%40x.com
func buildURL(endpoint string, identity model.Identity) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("userId", identity.ID)
	q.Set("role", string(identity.Role))
	u.RawQuery = q.Encode()
	return u.String(), nil
}
