// Package model 定义聊天客户端共享的实体模型
// 本文件定义管理员会话列表条目，redis / mysql 两种持久化都使用它
package model

import "time"

// RosterEntry 管理员会话列表中的一个对端（顾客）
// 对应数据库 chat_roster 表；Online 由在线快照推导，不落库
type RosterEntry struct {
	ID uint `gorm:"primaryKey" json:"-"`

	// AdminId 会话列表所属管理员，与 UserId 组成唯一索引
	AdminId string `gorm:"column:admin_id;uniqueIndex:idx_admin_user;type:varchar(255);not null;comment:管理员id" json:"-"`

	UserId        string `gorm:"column:user_id;uniqueIndex:idx_admin_user;type:varchar(255);not null;comment:顾客id" json:"userId"`
	LastMessage   string `gorm:"column:last_message;type:TEXT;comment:最后一条消息预览" json:"lastMessage"`
	LastTimestamp string `gorm:"column:last_timestamp;type:varchar(64);comment:最后一条消息时间" json:"lastTimestamp"`
	Unread        int    `gorm:"column:unread;not null;default:0;comment:未读数" json:"unread"`

	// Position 列表顺序，0 在最上面
	Position int `gorm:"column:position;not null;default:0" json:"-"`

	Online bool `gorm:"-" json:"online"`

	UpdatedAt time.Time `json:"-"`
}

// TableName 指定表名
func (RosterEntry) TableName() string {
	return "chat_roster"
}
