package request

// 聊天协议出站命令（客户端 -> 服务端），JSON 文本帧，按 action 路由
// 使用位置:
//   - internal/service/chat/session.go

// GetUsersRequest 查询某角色当前在线的参与者
type GetUsersRequest struct {
	Action string `json:"action"`
	Role   string `json:"role"`
}

// GetConversationsRequest 管理员查询持久化的会话列表
type GetConversationsRequest struct {
	Action     string `json:"action"`
	AdminEmail string `json:"adminEmail"`
}

// GetMessagesRequest 查询两人之间的完整历史
type GetMessagesRequest struct {
	Action string `json:"action"`
	User1  string `json:"user1"`
	User2  string `json:"user2"`
}

// SendMessageRequest 发送一条消息
type SendMessageRequest struct {
	Action      string `json:"action"`
	SenderId    string `json:"senderId"`
	RecipientId string `json:"recipientId"`
	Message     string `json:"message"`
}
