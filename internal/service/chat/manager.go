package chat

import (
	"context"
	"sync"

	"dine_chat/internal/model"

	"go.uber.org/zap"
)

// Manager 桥接服务持有的会话表，每个本地身份一个 Session
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	streams  map[string]int // 每个身份打开着的事件流数量
	opts     Options
	hub      *EventHub
}

// NewManager opts 作为每个新会话的模板；hub 供事件流订阅，通常也包含在 opts.Notifier 中
func NewManager(opts Options, hub *EventHub) *Manager {
	if hub == nil {
		hub = NewEventHub(0)
	}
	if opts.Notifier == nil {
		opts.Notifier = hub
	}
	return &Manager{
		sessions: make(map[string]*Session),
		streams:  make(map[string]int),
		opts:     opts,
		hub:      hub,
	}
}

// Session 返回 identity 对应的会话，不存在时创建
// 同一 id 换了角色视为身份变化，旧会话断开后替换
func (m *Manager) Session(identity model.Identity) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[identity.ID]; ok {
		prev := s.Identity()
		if prev.ID == "" || prev.Role == identity.Role {
			return s
		}
		zap.L().Info("identity changed, replacing chat session",
			zap.String("user", identity.ID),
			zap.String("from", string(prev.Role)),
			zap.String("to", string(identity.Role)))
		s.Disconnect()
	}
	s := NewSession(m.opts)
	m.sessions[identity.ID] = s
	return s
}

// Get 查找已有会话
func (m *Manager) Get(userID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	return s, ok
}

// Remove 断开并移除会话
func (m *Manager) Remove(userID string) {
	m.mu.Lock()
	s, ok := m.sessions[userID]
	delete(m.sessions, userID)
	m.mu.Unlock()
	if ok {
		s.Disconnect()
	}
}

// Len 会话数量
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Attach 为 userID 打开一个事件流，通道里是所有会话的事件，调用方按 LocalId 过滤
// 返回的 detach 关闭该流；某身份最后一个事件流关闭即视为聊天界面关闭，会话被拆除
func (m *Manager) Attach(userID string) (<-chan Event, func()) {
	events, cancel := m.hub.Subscribe()
	m.mu.Lock()
	m.streams[userID]++
	m.mu.Unlock()

	var once sync.Once
	detach := func() {
		once.Do(func() {
			cancel()
			m.mu.Lock()
			m.streams[userID]--
			last := m.streams[userID] <= 0
			if last {
				delete(m.streams, userID)
			}
			m.mu.Unlock()
			if last {
				zap.L().Info("last event stream closed, tearing down chat session", zap.String("user", userID))
				m.Remove(userID)
			}
		})
	}
	return events, detach
}

// Streams userID 当前打开的事件流数量
func (m *Manager) Streams(userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.streams[userID]
}

// Logout 退出登录：拆除会话，管理员的持久化会话列表一并清除
func (m *Manager) Logout(ctx context.Context, identity model.Identity) error {
	m.Remove(identity.ID)
	if identity.Role != model.RoleAdmin || m.opts.RosterStore == nil {
		return nil
	}
	return m.opts.RosterStore.Delete(ctx, identity.ID)
}

// Close 断开全部会话并关闭事件订阅
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()
	for _, s := range sessions {
		s.Disconnect()
	}
	m.hub.Close()
}
