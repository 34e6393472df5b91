package chat

import (
	"dine_chat/internal/dto/respond"
	"dine_chat/internal/model"
)

// Roster 管理员侧的会话列表
// 同一个 UserId 只会出现一次；顺序即展示顺序，最近有消息的在最上面
type Roster struct {
	entries []model.RosterEntry
}

// NewRoster 创建空列表
func NewRoster() *Roster {
	return &Roster{}
}

// Len 条目数量
func (r *Roster) Len() int { return len(r.entries) }

// Snapshot 返回副本
func (r *Roster) Snapshot() []model.RosterEntry {
	out := make([]model.RosterEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Get 按 id 查找
func (r *Roster) Get(userID string) (model.RosterEntry, bool) {
	if i := r.index(userID); i >= 0 {
		return r.entries[i], true
	}
	return model.RosterEntry{}, false
}

func (r *Roster) index(userID string) int {
	for i := range r.entries {
		if r.entries[i].UserId == userID {
			return i
		}
	}
	return -1
}

// Load 用持久化的列表替换当前内容，全部视为离线，等待在线快照
func (r *Roster) Load(entries []model.RosterEntry) {
	r.entries = r.entries[:0]
	for _, e := range entries {
		if e.UserId == "" || r.index(e.UserId) >= 0 {
			continue
		}
		e.Online = false
		r.entries = append(r.entries, e)
	}
}

// MergeConversations 合并服务端的会话列表
// 服务端列表中的条目按其顺序排在前面（保留已知的在线状态），本地独有的条目排在后面
func (r *Roster) MergeConversations(convs []respond.ConversationSummary) {
	merged := make([]model.RosterEntry, 0, len(convs)+len(r.entries))
	taken := make(map[string]bool, len(convs))
	for _, c := range convs {
		if c.UserId == "" || taken[c.UserId] {
			continue
		}
		taken[c.UserId] = true
		entry := model.RosterEntry{
			UserId:        c.UserId,
			LastMessage:   c.LastMessage,
			LastTimestamp: c.LastTimestamp,
			Unread:        c.Unread,
		}
		if old, ok := r.Get(c.UserId); ok {
			entry.Online = old.Online
			if entry.Unread == 0 {
				entry.Unread = old.Unread
			}
			if entry.LastTimestamp < old.LastTimestamp {
				entry.LastMessage = old.LastMessage
				entry.LastTimestamp = old.LastTimestamp
			}
		}
		merged = append(merged, entry)
	}
	for _, e := range r.entries {
		if !taken[e.UserId] {
			merged = append(merged, e)
		}
	}
	r.entries = merged
}

// MergePresence 根据在线快照标记在线/离线，新出现的在线用户追加到末尾
// 返回本次从在线变为离线的 id
func (r *Roster) MergePresence(onlineIDs []string) (wentOffline []string) {
	online := make(map[string]bool, len(onlineIDs))
	for _, id := range onlineIDs {
		online[id] = true
	}
	for i := range r.entries {
		was := r.entries[i].Online
		r.entries[i].Online = online[r.entries[i].UserId]
		if was && !r.entries[i].Online {
			wentOffline = append(wentOffline, r.entries[i].UserId)
		}
	}
	for _, id := range onlineIDs {
		if id != "" && r.index(id) < 0 {
			r.entries = append(r.entries, model.RosterEntry{UserId: id, Online: true})
		}
	}
	return wentOffline
}

// Touch 有新消息时把对端移到最上面并更新预览
// countUnread 为 true 时未读数加一；未知的对端会被插入
func (r *Roster) Touch(peer string, msg model.ChatMessage, countUnread bool) {
	if peer == "" {
		return
	}
	entry := model.RosterEntry{UserId: peer, Online: !msg.IsLocal}
	if i := r.index(peer); i >= 0 {
		entry = r.entries[i]
		r.entries = append(r.entries[:i], r.entries[i+1:]...)
	}
	entry.LastMessage = msg.Message
	entry.LastTimestamp = msg.Timestamp
	if countUnread {
		entry.Unread++
	}
	r.entries = append([]model.RosterEntry{entry}, r.entries...)
}

// MarkRead 清零未读数
func (r *Roster) MarkRead(userID string) bool {
	i := r.index(userID)
	if i < 0 || r.entries[i].Unread == 0 {
		return false
	}
	r.entries[i].Unread = 0
	return true
}
