package redis

import (
	"context"
	"encoding/json"
	"time"

	"dine_chat/internal/model"
	"dine_chat/pkg/constants"
	"dine_chat/pkg/errorx"

	"go.uber.org/zap"
)

const (
	rosterKeyPrefix = "chat_roster_"
	rosterIndexKey  = "chat_roster_admins" // 有会话列表的管理员集合
)

// RosterCache 把管理员会话列表以 JSON 存在 Redis
// key: chat_roster_<adminId>，TTL 默认 30 天
type RosterCache struct {
	cache CacheService
	ttl   time.Duration
}

// NewRosterCache ttl <= 0 时使用 ROSTER_TTL_HOURS
func NewRosterCache(cache CacheService, ttl time.Duration) *RosterCache {
	if ttl <= 0 {
		ttl = constants.ROSTER_TTL_HOURS * time.Hour
	}
	return &RosterCache{cache: cache, ttl: ttl}
}

func rosterKey(adminID string) string {
	return rosterKeyPrefix + adminID
}

// Load 读取会话列表，不存在时返回空列表
func (r *RosterCache) Load(ctx context.Context, adminID string) ([]model.RosterEntry, error) {
	raw, err := r.cache.Get(ctx, rosterKey(adminID))
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, nil
	}
	var entries []model.RosterEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		// 脏数据直接删掉，下次由服务端会话列表重建
		zap.L().Warn("corrupt roster cache, dropping", zap.String("admin", adminID), zap.Error(err))
		_ = r.cache.Delete(ctx, rosterKey(adminID))
		return nil, nil
	}
	// Position 不进 JSON，按存储顺序还原
	for i := range entries {
		entries[i].Position = i
	}
	return entries, nil
}

// Save 覆盖写入会话列表
func (r *RosterCache) Save(ctx context.Context, adminID string, entries []model.RosterEntry) error {
	stored := make([]model.RosterEntry, len(entries))
	for i, e := range entries {
		e.Online = false
		stored[i] = e
	}
	data, err := json.Marshal(stored)
	if err != nil {
		return errorx.Wrap(err, errorx.CodeCacheError, "encode roster")
	}
	if err := r.cache.Set(ctx, rosterKey(adminID), string(data), r.ttl); err != nil {
		return err
	}
	return r.cache.AddToSet(ctx, rosterIndexKey, adminID)
}

// Delete 删除某个管理员的会话列表
func (r *RosterCache) Delete(ctx context.Context, adminID string) error {
	if err := r.cache.Delete(ctx, rosterKey(adminID)); err != nil {
		return err
	}
	return r.cache.RemoveFromSet(ctx, rosterIndexKey, adminID)
}

// Admins 返回保存过会话列表的管理员
func (r *RosterCache) Admins(ctx context.Context) ([]string, error) {
	return r.cache.GetSetMembers(ctx, rosterIndexKey)
}

// Purge 清空所有会话列表及管理员索引
func (r *RosterCache) Purge(ctx context.Context) error {
	return r.cache.DeleteByPatterns(ctx, []string{rosterKeyPrefix + "*", rosterIndexKey})
}
