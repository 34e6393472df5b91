// Package mysql 提供数据访问层的初始化
// 负责建立 MySQL 连接、自动迁移表结构、初始化 Repository 层
package mysql

import (
	"fmt"

	"dine_chat/internal/config"
	"dine_chat/internal/model"
	"dine_chat/pkg/errorx"

	mysqldriver "gorm.io/driver/mysql" // GORM MySQL 驱动
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DSN 构建 MySQL 连接字符串
// 格式：user:password@tcp(host:port)/database?params
func DSN(conf config.MysqlConfig) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		conf.User,
		conf.Password,
		conf.Host,
		conf.Port,
		conf.DatabaseName,
	)
}

// Init 连接数据库、迁移 chat_roster 表并返回 Repository 实例
func Init(conf config.MysqlConfig) (*Repositories, error) {
	db, err := gorm.Open(mysqldriver.Open(DSN(conf)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, errorx.Wrapf(err, errorx.CodeDBError, "connect mysql %s:%d", conf.Host, conf.Port)
	}

	// 表不存在则创建；不会删除已有字段或数据
	if err := db.AutoMigrate(&model.RosterEntry{}); err != nil {
		return nil, errorx.Wrap(err, errorx.CodeDBError, "migrate chat_roster")
	}
	return NewRepositories(db), nil
}
