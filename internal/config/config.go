// Package config 提供应用程序的配置加载和管理功能
// 使用 TOML 格式的配置文件，支持多路径查找；敏感项可由 .env / 环境变量覆盖
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml" // TOML 配置文件解析库
	"github.com/joho/godotenv"
)

// MainConfig 主配置，包含应用基本信息
type MainConfig struct {
	AppName     string `toml:"appName"`     // 应用名称，用于日志标识等
	Host        string `toml:"host"`        // 桥接服务监听地址，如 "0.0.0.0"
	Port        int    `toml:"port"`        // 桥接服务监听端口，如 8000
	Mode        string `toml:"mode"`        // 运行模式："dev" 或 "release"
	TLSRedirect bool   `toml:"tlsRedirect"` // 是否把 HTTP 请求重定向到 HTTPS（由 Nginx 终止 TLS 时保持 false）
}

// ChatConfig 聊天 WebSocket 端点配置
type ChatConfig struct {
	Endpoint         string `toml:"endpoint"`         // 托管 WebSocket API 地址，如 wss://xxx.execute-api.us-east-1.amazonaws.com/production
	RetryIntervalMs  int    `toml:"retryIntervalMs"`  // 找不到对端时重试 getUsers 的间隔（毫秒），默认 2000
	HandshakeTimeout int    `toml:"handshakeTimeout"` // 握手超时（秒）
	WriteTimeout     int    `toml:"writeTimeout"`     // 单帧写超时（秒）
	EventBuffer      int    `toml:"eventBuffer"`      // 每个会话事件通道的缓冲大小
	DisplayZone      string `toml:"displayZone"`      // 消息显示时间的时区，如 "Asia/Shanghai"，留空用服务器本地时区
}

// IdentityConfig 身份查询接口（GET /api/me）配置
type IdentityConfig struct {
	BaseURL string `toml:"baseURL"` // Express 代理地址，如 http://localhost:3000
	Timeout int    `toml:"timeout"` // 请求超时（秒）
}

// RosterConfig 管理员会话列表持久化配置
type RosterConfig struct {
	Store        string `toml:"store"`        // "memory" / "redis" / "mysql"
	TTLHours     int    `toml:"ttlHours"`     // redis 存储时的过期时间（小时）
	PurgeOnStart bool   `toml:"purgeOnStart"` // redis 存储时启动前清空已缓存的会话列表
}

// MysqlConfig MySQL 数据库连接配置
type MysqlConfig struct {
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	User         string `toml:"user"`
	Password     string `toml:"password"`
	DatabaseName string `toml:"databaseName"`
}

// RedisConfig Redis 连接配置
type RedisConfig struct {
	Host     string `toml:"host"`     // Redis 服务器地址
	Port     int    `toml:"port"`     // Redis 端口，默认 6379
	Password string `toml:"password"` // Redis 密码，无密码留空
	Db       int    `toml:"db"`       // Redis 数据库编号，默认 0
}

// LogConfig 日志配置，使用 lumberjack 进行日志轮转
type LogConfig struct {
	LogPath    string `toml:"logPath"`    // 日志文件存储目录
	FileName   string `toml:"fileName"`   // 日志文件名
	MaxSize    int    `toml:"maxSize"`    // 单个日志文件最大大小（MB）
	MaxBackups int    `toml:"maxBackups"` // 保留旧日志文件的最大个数
	MaxAge     int    `toml:"maxAge"`     // 保留旧日志文件的最大天数
	Level      string `toml:"level"`      // 日志级别：debug, info, warn, error
}

// KafkaConfig 通知投递配置
type KafkaConfig struct {
	NotifyMode  string        `toml:"notifyMode"`  // 通知模式："channel" 或 "kafka"
	HostPort    string        `toml:"hostPort"`    // Kafka 服务器地址，如 "localhost:9092"
	NotifyTopic string        `toml:"notifyTopic"` // 聊天通知主题
	Partition   int           `toml:"partition"`   // 主题分区数，创建主题时使用
	Timeout     time.Duration `toml:"timeout"`     // 写超时（秒）
}

// JWTConfig JWT 认证配置
type JWTConfig struct {
	Secret             string `toml:"secret"`             // JWT 签名密钥，建议 32 字符以上
	AccessTokenExpiry  int    `toml:"accessTokenExpiry"`  // Access Token 有效期（分钟）
	RefreshTokenExpiry int    `toml:"refreshTokenExpiry"` // Refresh Token 有效期（小时）
}

// SnowflakeConfig 雪花算法配置
type SnowflakeConfig struct {
	MachineID int64 `toml:"machineId"` // 节点 ID，范围 0-1023
}

// Config 应用程序总配置，聚合所有子配置
type Config struct {
	MainConfig      `toml:"mainConfig"`
	ChatConfig      `toml:"chatConfig"`
	IdentityConfig  `toml:"identityConfig"`
	RosterConfig    `toml:"rosterConfig"`
	MysqlConfig     `toml:"mysqlConfig"`
	RedisConfig     `toml:"redisConfig"`
	LogConfig       `toml:"logConfig"`
	KafkaConfig     `toml:"kafkaConfig"`
	JWTConfig       `toml:"jwtConfig"`
	SnowflakeConfig `toml:"snowflakeConfig"`
}

// config 全局配置单例，延迟加载
var config *Config

// defaultPaths 候选配置文件路径（优先加载本地配置）
var defaultPaths = []string{
	"configs/config_local.toml",
	"configs/config.toml",
	"../../configs/config_local.toml", // 从子目录运行时的路径
	"../../configs/config.toml",
}

// LoadConfig 从候选路径加载配置文件到 cfg
// 按顺序尝试加载，找到第一个可用的配置文件即停止
func LoadConfig(cfg *Config, paths ...string) error {
	if len(paths) == 0 {
		paths = defaultPaths
	}
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return fmt.Errorf("decode config %s: %w", path, err)
		}
		return nil
	}
	return fmt.Errorf("could not find configuration file in any of the search paths")
}

// GetConfig 获取全局配置实例（单例模式）
// 首次调用时会自动加载 .env 与配置文件，找不到时使用默认值
func GetConfig() *Config {
	if config == nil {
		_ = godotenv.Load() // .env 不存在时忽略
		config = new(Config)
		_ = LoadConfig(config)
		config.ApplyEnv()
		config.ApplyDefaults()
	}
	return config
}

// ApplyEnv 用 DINE_CHAT_* 环境变量覆盖端点与密钥
func (c *Config) ApplyEnv() {
	if v := os.Getenv("DINE_CHAT_ENDPOINT"); v != "" {
		c.ChatConfig.Endpoint = v
	}
	if v := os.Getenv("DINE_CHAT_IDENTITY_URL"); v != "" {
		c.IdentityConfig.BaseURL = v
	}
	if v := os.Getenv("DINE_CHAT_JWT_SECRET"); v != "" {
		c.JWTConfig.Secret = v
	}
	if v := os.Getenv("DINE_CHAT_REDIS_PASSWORD"); v != "" {
		c.RedisConfig.Password = v
	}
	if v := os.Getenv("DINE_CHAT_MYSQL_PASSWORD"); v != "" {
		c.MysqlConfig.Password = v
	}
	if v := os.Getenv("DINE_CHAT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.MainConfig.Port = port
		}
	}
}

// ApplyDefaults 填充未配置项的默认值
func (c *Config) ApplyDefaults() {
	if c.MainConfig.AppName == "" {
		c.MainConfig.AppName = "dine_chat"
	}
	if c.MainConfig.Host == "" {
		c.MainConfig.Host = "0.0.0.0"
	}
	if c.MainConfig.Port == 0 {
		c.MainConfig.Port = 8000
	}
	if c.MainConfig.Mode == "" {
		c.MainConfig.Mode = "dev"
	}
	if c.ChatConfig.RetryIntervalMs <= 0 {
		c.ChatConfig.RetryIntervalMs = 2000
	}
	if c.ChatConfig.HandshakeTimeout <= 0 {
		c.ChatConfig.HandshakeTimeout = 10
	}
	if c.ChatConfig.WriteTimeout <= 0 {
		c.ChatConfig.WriteTimeout = 5
	}
	if c.ChatConfig.EventBuffer <= 0 {
		c.ChatConfig.EventBuffer = 100
	}
	if c.IdentityConfig.Timeout <= 0 {
		c.IdentityConfig.Timeout = 10
	}
	if c.RosterConfig.Store == "" {
		c.RosterConfig.Store = "memory"
	}
	if c.RosterConfig.TTLHours <= 0 {
		c.RosterConfig.TTLHours = 720
	}
	if c.KafkaConfig.NotifyMode == "" {
		c.KafkaConfig.NotifyMode = "channel"
	}
	if c.KafkaConfig.NotifyTopic == "" {
		c.KafkaConfig.NotifyTopic = "dine_chat_notify"
	}
	if c.KafkaConfig.Partition <= 0 {
		c.KafkaConfig.Partition = 1
	}
	if c.KafkaConfig.Timeout <= 0 {
		c.KafkaConfig.Timeout = 1
	}
	if c.JWTConfig.AccessTokenExpiry <= 0 {
		c.JWTConfig.AccessTokenExpiry = 60
	}
	if c.JWTConfig.RefreshTokenExpiry <= 0 {
		c.JWTConfig.RefreshTokenExpiry = 168
	}
}

// RetryInterval 返回重试间隔
func (c ChatConfig) RetryInterval() time.Duration {
	return time.Duration(c.RetryIntervalMs) * time.Millisecond
}
