package respond

import "dine_chat/internal/model"

// ChatMessageRespond 返回给宿主界面的消息，附带本地显示时间
type ChatMessageRespond struct {
	MessageId   string `json:"message_id"`
	SenderId    string `json:"sender_id"`
	RecipientId string `json:"recipient_id,omitempty"`
	Message     string `json:"message"`
	Timestamp   string `json:"timestamp"`    // 已补全时区后缀
	DisplayTime string `json:"display_time"` // 如 "10:00 AM"
	IsLocal     bool   `json:"is_local"`
}

// ChatStateRespond GET /chat/state 响应
type ChatStateRespond struct {
	SessionId     string               `json:"session_id"`
	LocalId       string               `json:"local_id"`
	Role          model.Role           `json:"role"`
	State         string               `json:"state"`
	CounterpartId string               `json:"counterpart_id,omitempty"`
	Messages      []ChatMessageRespond `json:"messages"`
	Roster        []model.RosterEntry  `json:"roster,omitempty"`
}

// AuthSessionRespond POST /auth/session 响应
type AuthSessionRespond struct {
	UserId       string     `json:"user_id"`
	Role         model.Role `json:"role"`
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
}
