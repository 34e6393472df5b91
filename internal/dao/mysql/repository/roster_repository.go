package repository

import (
	"context"

	"dine_chat/internal/model"

	"gorm.io/gorm"
)

// rosterRepository RosterRepository 接口的实现
type rosterRepository struct {
	db *gorm.DB
}

// NewRosterRepository 创建 RosterRepository 实例
func NewRosterRepository(db *gorm.DB) RosterRepository {
	return &rosterRepository{db: db}
}

// Load 按 position 升序读取
func (r *rosterRepository) Load(ctx context.Context, adminID string) ([]model.RosterEntry, error) {
	var entries []model.RosterEntry
	if err := r.db.WithContext(ctx).
		Where("admin_id = ?", adminID).
		Order("position ASC").
		Find(&entries).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询会话列表 admin_id=%s", adminID)
	}
	return entries, nil
}

// Save 在一个事务里先删后插
func (r *rosterRepository) Save(ctx context.Context, adminID string, entries []model.RosterEntry) error {
	rows := ToRosterRows(adminID, entries)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("admin_id = ?", adminID).Delete(&model.RosterEntry{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(rows, 100).Error
	})
	return wrapDBErrorf(err, "保存会话列表 admin_id=%s", adminID)
}

// Delete 删除某管理员的全部条目
func (r *rosterRepository) Delete(ctx context.Context, adminID string) error {
	if err := r.db.WithContext(ctx).Where("admin_id = ?", adminID).Delete(&model.RosterEntry{}).Error; err != nil {
		return wrapDBErrorf(err, "删除会话列表 admin_id=%s", adminID)
	}
	return nil
}

// ToRosterRows 把内存中的列表转换为待插入的行
// 主键清零、按顺序写 position，同一 UserId 只保留第一条
func ToRosterRows(adminID string, entries []model.RosterEntry) []model.RosterEntry {
	rows := make([]model.RosterEntry, 0, len(entries))
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		if e.UserId == "" || seen[e.UserId] {
			continue
		}
		seen[e.UserId] = true
		e.ID = 0
		e.AdminId = adminID
		e.Position = len(rows)
		e.Online = false
		rows = append(rows, e)
	}
	return rows
}
