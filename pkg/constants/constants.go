package constants

import "time"

const (
	CHANNEL_SIZE               = 100              // 通道大小
	DISCOVERY_RETRY_INTERVAL   = 2 * time.Second  // 未找到对端时重新发起 getUsers 的间隔
	WS_HANDSHAKE_TIMEOUT       = 10 * time.Second // WebSocket 握手超时
	WS_WRITE_TIMEOUT           = 5 * time.Second  // 单帧写超时
	ROSTER_TTL_HOURS           = 720              // 管理员会话列表在 Redis 中的保留时间（小时），30 天
	REFRESH_TOKEN_EXPIRY_HOURS = 168              // Refresh Token 有效期（小时），168小时 = 7天
)

// 角色
const (
	ROLE_CUSTOMER = "customer"
	ROLE_ADMIN    = "admin"
	GUEST_USER_ID = "guest" // 后端对未带 userId 的连接使用的占位 id
)

// 聊天协议 action（客户端 -> 服务端）
const (
	ACTION_GET_USERS         = "getUsers"
	ACTION_GET_CONVERSATIONS = "getConversations"
	ACTION_GET_MESSAGES      = "getMessages"
	ACTION_SEND_MESSAGE      = "sendMessage"
)

// 聊天协议 type（服务端 -> 客户端）
const (
	EVENT_USER_LIST         = "userList"
	EVENT_CONVERSATION_LIST = "conversationList"
	EVENT_MESSAGE_HISTORY   = "messageHistory"
	EVENT_NEW_MESSAGE       = "newMessage"
)

// 通知投递模式
const (
	NOTIFY_MODE_CHANNEL = "channel"
	NOTIFY_MODE_KAFKA   = "kafka"
)

// 会话列表存储方式
const (
	ROSTER_STORE_MEMORY = "memory"
	ROSTER_STORE_REDIS  = "redis"
	ROSTER_STORE_MYSQL  = "mysql"
)
