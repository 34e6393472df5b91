// Package mysql 提供 Repository 层聚合与构造
package mysql

import (
	"dine_chat/internal/dao/mysql/repository"

	"gorm.io/gorm"
)

// Repositories 聚合所有 Repository 实例
type Repositories struct {
	db     *gorm.DB
	Roster repository.RosterRepository // 管理员会话列表
}

// NewRepositories 接收 GORM 数据库实例，初始化并返回 Repositories 聚合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		db:     db,
		Roster: repository.NewRosterRepository(db),
	}
}

// Close 关闭底层连接池
func (r *Repositories) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
