package repository

import (
	"errors"
	"testing"

	"dine_chat/internal/model"
	"dine_chat/pkg/errorx"

	"gorm.io/gorm"
)

func TestToRosterRows(t *testing.T) {
	rows := ToRosterRows("admin@x.com", []model.RosterEntry{
		{ID: 7, UserId: "c2", Unread: 1, Online: true},
		{UserId: ""},
		{UserId: "c1", LastMessage: "hi"},
		{UserId: "c2", LastMessage: "dup"},
	})
	if len(rows) != 2 {
		t.Fatalf("rows=%+v", rows)
	}
	for i, r := range rows {
		if r.AdminId != "admin@x.com" || r.Position != i || r.ID != 0 || r.Online {
			t.Fatalf("row[%d]=%+v", i, r)
		}
	}
	if rows[0].UserId != "c2" || rows[0].Unread != 1 || rows[1].LastMessage != "hi" {
		t.Fatalf("rows=%+v", rows)
	}
}

func TestWrapDBError(t *testing.T) {
	if wrapDBError(nil, "x") != nil {
		t.Fatalf("nil not preserved")
	}
	err := wrapDBErrorf(gorm.ErrRecordNotFound, "find %s", "c1")
	if errorx.GetCode(err) != errorx.CodeNotFound || !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("err=%v code=%d", err, errorx.GetCode(err))
	}
	if code := errorx.GetCode(wrapDBError(errors.New("deadlock"), "save")); code != errorx.CodeDBError {
		t.Fatalf("code=%d", code)
	}
}
