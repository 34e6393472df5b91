package repository

import (
	"context"

	"dine_chat/internal/model"
)

// RosterRepository 管理员会话列表的数据访问接口
// 满足 chat.RosterStore，可直接注入聊天会话
type RosterRepository interface {
	// Load 按 position 升序返回某管理员的会话列表
	Load(ctx context.Context, adminID string) ([]model.RosterEntry, error)
	// Save 整体替换某管理员的会话列表
	Save(ctx context.Context, adminID string, entries []model.RosterEntry) error
	// Delete 删除某管理员的全部条目
	Delete(ctx context.Context, adminID string) error
}
