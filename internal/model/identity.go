// Package model 定义聊天客户端共享的实体模型
// 本文件定义参与者身份：聊天会话必须显式拿到身份后才能连接
package model

// Role 参与者角色
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// Valid 是否为已知角色
func (r Role) Valid() bool {
	return r == RoleCustomer || r == RoleAdmin
}

// Opposite 返回对端角色：顾客找管理员，管理员找顾客
func (r Role) Opposite() Role {
	if r == RoleAdmin {
		return RoleCustomer
	}
	return RoleAdmin
}

// Identity 本地参与者身份
// ID 为邮箱或用户名，与后端连接表中的 userId 一致
type Identity struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

// Participant 参与者及其在线状态（来自最近一次在线快照）
type Participant struct {
	ID     string `json:"id"`
	Role   Role   `json:"role"`
	Online bool   `json:"online"`
}
