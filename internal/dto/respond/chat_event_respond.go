package respond

import "dine_chat/internal/model"

// 聊天协议入站事件（服务端 -> 客户端），按 type 区分
// 使用位置:
//   - internal/service/chat/session.go: handleFrame

// EventEnvelope 只解析 type，用于分发
type EventEnvelope struct {
	Type string `json:"type"`
}

// PresenceUser 在线快照中的一个参与者
type PresenceUser struct {
	UserId string `json:"userId"`
	Role   string `json:"role"`
	Status string `json:"status,omitempty"`
}

// UserListEvent 在线快照
// RoleFilter 为本次 getUsers 请求的角色，旧后端可能不回传
type UserListEvent struct {
	Type       string         `json:"type"`
	Users      []PresenceUser `json:"users"`
	RoleFilter string         `json:"roleFilter,omitempty"`
}

// ConversationSummary 会话列表中的一项，附带最后一条消息预览
type ConversationSummary struct {
	UserId        string `json:"userId"`
	LastMessage   string `json:"lastMessage"`
	LastTimestamp string `json:"lastTimestamp"`
	Unread        int    `json:"unread"`
}

// ConversationListEvent 管理员会话列表
type ConversationListEvent struct {
	Type          string                `json:"type"`
	Conversations []ConversationSummary `json:"conversations"`
}

// MessageHistoryEvent 两人之间的完整历史，按时间升序
type MessageHistoryEvent struct {
	Type     string              `json:"type"`
	Messages []model.ChatMessage `json:"messages"`
}

// NewMessageEvent 实时推送的新消息，字段平铺在顶层
type NewMessageEvent struct {
	Type string `json:"type"`
	model.ChatMessage
}
