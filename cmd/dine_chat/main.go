package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dine_chat/internal/config"
	dao "dine_chat/internal/dao/mysql"
	myredis "dine_chat/internal/dao/redis"
	"dine_chat/internal/handler"
	"dine_chat/internal/https_server"
	"dine_chat/internal/infrastructure/logger"
	"dine_chat/internal/infrastructure/mq"
	"dine_chat/internal/service/chat"
	"dine_chat/internal/service/identity"
	"dine_chat/pkg/constants"
	"dine_chat/pkg/util/jwt"
	"dine_chat/pkg/util/snowflake"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// 1. 加载配置
	conf := config.GetConfig()

	// 2. 初始化日志
	if err := logger.Init(&conf.LogConfig, conf.MainConfig.Mode); err != nil {
		log.Fatalf("init logger failed: %v", err)
	}
	defer zap.L().Sync() //nolint:errcheck
	if conf.MainConfig.Mode != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	if conf.ChatConfig.Endpoint == "" {
		zap.L().Fatal("chatConfig.endpoint is empty, set it in config.toml or DINE_CHAT_ENDPOINT")
	}

	// 3. ID 生成器与 JWT
	snowflake.Init(conf.SnowflakeConfig.MachineID)
	jwt.Init(conf.JWTConfig.Secret, conf.JWTConfig.AccessTokenExpiry, conf.JWTConfig.RefreshTokenExpiry)
	if err := handler.InitTrans("zh"); err != nil {
		zap.L().Fatal("init validator translator failed", zap.Error(err))
	}

	// 4. Redis（Token 单点互踢 + 可选的会话列表缓存）
	var cache *myredis.RedisCache
	if conf.RedisConfig.Host != "" {
		c, err := myredis.Init(conf.RedisConfig)
		if err != nil {
			if conf.RosterConfig.Store == constants.ROSTER_STORE_REDIS {
				zap.L().Fatal("Redis 初始化失败", zap.Error(err))
			}
			zap.L().Warn("Redis 不可用，Token 刷新不做单点校验", zap.Error(err))
		} else {
			cache = c
			defer cache.Close() //nolint:errcheck
			zap.L().Info("Redis 初始化成功")
		}
	}

	// 5. 会话列表存储
	opts := chat.Options{
		Endpoint:      conf.ChatConfig.Endpoint,
		RetryInterval: conf.ChatConfig.RetryInterval(),
		WriteTimeout:  time.Duration(conf.ChatConfig.WriteTimeout) * time.Second,
		Dialer:        chat.WSDialer{HandshakeTimeout: time.Duration(conf.ChatConfig.HandshakeTimeout) * time.Second},
	}
	switch conf.RosterConfig.Store {
	case constants.ROSTER_STORE_REDIS:
		if cache == nil {
			zap.L().Fatal("rosterConfig.store = redis 但未配置 redisConfig.host")
		}
		rosterCache := myredis.NewRosterCache(cache, time.Duration(conf.RosterConfig.TTLHours)*time.Hour)
		if conf.RosterConfig.PurgeOnStart {
			purgeRosters(rosterCache)
		}
		opts.RosterStore = rosterCache
		opts.Submit = cache.SubmitTask
	case constants.ROSTER_STORE_MYSQL:
		repos, err := dao.Init(conf.MysqlConfig)
		if err != nil {
			zap.L().Fatal("数据库初始化失败", zap.Error(err))
		}
		defer repos.Close() //nolint:errcheck
		opts.RosterStore = repos.Roster
		zap.L().Info("数据库初始化成功")
	default:
		opts.RosterStore = chat.NewMemoryRosterStore()
	}
	zap.L().Info("会话列表存储", zap.String("store", conf.RosterConfig.Store))

	// 6. 事件投递：进程内订阅，kafka 模式下同时写入通知主题
	hub := chat.NewEventHub(conf.ChatConfig.EventBuffer)
	opts.Notifier = hub
	if conf.KafkaConfig.NotifyMode == constants.NOTIFY_MODE_KAFKA {
		if err := mq.EnsureTopic(conf.KafkaConfig); err != nil {
			zap.L().Warn("create kafka notify topic failed", zap.Error(err))
		}
		kafkaNotifier := mq.NewKafkaNotifier(conf.KafkaConfig)
		defer kafkaNotifier.Close()
		opts.Notifier = chat.MultiNotifier{hub, kafkaNotifier}
		zap.L().Info("Kafka 通知已启用", zap.String("topic", conf.KafkaConfig.NotifyTopic))
	}
	manager := chat.NewManager(opts, hub)

	// 7. HTTP 服务
	loc := time.Local
	if conf.ChatConfig.DisplayZone != "" {
		l, err := time.LoadLocation(conf.ChatConfig.DisplayZone)
		if err != nil {
			zap.L().Warn("unknown displayZone, using local time", zap.String("zone", conf.ChatConfig.DisplayZone), zap.Error(err))
		} else {
			loc = l
		}
	}
	deps := handler.Deps{
		Manager:  manager,
		Resolver: identity.NewClient(conf.IdentityConfig.BaseURL, time.Duration(conf.IdentityConfig.Timeout)*time.Second),
		Location: loc,
	}
	if cache != nil {
		deps.Tokens = cache
		deps.Redis = cache.Client()
	}
	engine := https_server.Init(conf.MainConfig, handler.NewHandlers(deps))

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", conf.MainConfig.Host, conf.MainConfig.Port),
		Handler: engine,
	}
	go func() {
		zap.L().Info("chat bridge listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Fatal("server running fault", zap.Error(err))
		}
	}()

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zap.L().Info("关闭服务器...")

	// 先断开所有聊天会话，事件流随 hub 关闭而结束
	manager.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zap.L().Error("server shutdown", zap.Error(err))
	}
	zap.L().Info("服务器已关闭")
}

// purgeRosters 清空 Redis 中缓存的会话列表，下次连接由服务端会话列表重建
func purgeRosters(rc *myredis.RosterCache) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	admins, err := rc.Admins(ctx)
	if err != nil {
		zap.L().Warn("list cached rosters failed", zap.Error(err))
	}
	if err := rc.Purge(ctx); err != nil {
		zap.L().Warn("purge cached rosters failed", zap.Error(err))
		return
	}
	zap.L().Info("cached rosters purged", zap.Int("admins", len(admins)))
}
