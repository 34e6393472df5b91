package chat

import (
	"context"
	"sync"

	"dine_chat/internal/model"
)

// RosterStore 管理员会话列表的持久化
// 实现：MemoryRosterStore、dao/redis.RosterCache、dao/mysql.RosterRepository
type RosterStore interface {
	Load(ctx context.Context, adminID string) ([]model.RosterEntry, error)
	Save(ctx context.Context, adminID string, entries []model.RosterEntry) error
	// Delete 管理员退出登录时清除其会话列表
	Delete(ctx context.Context, adminID string) error
}

// MemoryRosterStore 进程内实现，进程重启即丢失
type MemoryRosterStore struct {
	mu   sync.RWMutex
	data map[string][]model.RosterEntry
}

// NewMemoryRosterStore 创建内存存储
func NewMemoryRosterStore() *MemoryRosterStore {
	return &MemoryRosterStore{data: make(map[string][]model.RosterEntry)}
}

// Load 实现 RosterStore
func (m *MemoryRosterStore) Load(_ context.Context, adminID string) ([]model.RosterEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	src := m.data[adminID]
	out := make([]model.RosterEntry, len(src))
	copy(out, src)
	return out, nil
}

// Save 实现 RosterStore
func (m *MemoryRosterStore) Save(_ context.Context, adminID string, entries []model.RosterEntry) error {
	cp := make([]model.RosterEntry, len(entries))
	copy(cp, entries)
	m.mu.Lock()
	m.data[adminID] = cp
	m.mu.Unlock()
	return nil
}

// Delete 实现 RosterStore
func (m *MemoryRosterStore) Delete(_ context.Context, adminID string) error {
	m.mu.Lock()
	delete(m.data, adminID)
	m.mu.Unlock()
	return nil
}
