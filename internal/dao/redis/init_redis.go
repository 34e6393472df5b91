// Package redis 提供 Redis 缓存操作的封装
// 本文件仅包含 Redis 连接初始化逻辑
// 使用 github.com/redis/go-redis/v9 作为底层客户端
package redis

import (
	"context"
	"strconv"
	"time"

	"dine_chat/internal/config"
	"dine_chat/pkg/errorx"

	"github.com/redis/go-redis/v9"
)

// Init 初始化 Redis 连接并启动缓存 Worker Pool
func Init(conf config.RedisConfig) (*RedisCache, error) {
	host := conf.Host
	if host == "" {
		host = "127.0.0.1"
	}
	port := conf.Port
	if port == 0 {
		port = 6379
	}

	// 拼接地址：host:port
	addr := host + ":" + strconv.Itoa(port)

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: conf.Password,
		DB:       conf.Db,
		// 连接池配置
		PoolSize:     20,
		MinIdleConns: 4, // 与 Worker 数量匹配
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errorx.Wrapf(err, errorx.CodeCacheError, "redis ping %s", addr)
	}

	// 4 个 Worker，缓冲区 1000，足够承载会话列表的保存
	return NewRedisCache(client, 4, 1000), nil
}
