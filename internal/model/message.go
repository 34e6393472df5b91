// Package model 定义聊天客户端共享的实体模型
// 本文件定义聊天消息
package model

// ChatMessage 聊天消息
// 与后端 CHAT_MESSAGES 表的字段一一对应，MessageId 由后端分配，是去重的唯一依据
type ChatMessage struct {
	MessageId   string `json:"messageId"`
	SenderId    string `json:"senderId"`
	RecipientId string `json:"recipientId,omitempty"` // 推送时可能缺省
	Message     string `json:"message"`
	Timestamp   string `json:"timestamp"` // UTC，可能不带时区后缀

	// IsLocal 是否由本地参与者发送，仅用于渲染，不来自服务端
	IsLocal bool `json:"isLocal"`
}

// Peer 返回相对于 localId 的另一方
// 推送消息缺少 RecipientId 且由本地发送时返回空串
func (m ChatMessage) Peer(localId string) string {
	if m.SenderId == localId {
		return m.RecipientId
	}
	return m.SenderId
}
