package chat

import (
	"fmt"
	"strings"
	"time"
)

// displayLayout 对应界面上的 hh:mm AM/PM
const displayLayout = "03:04 PM"

// NormalizeTimestamp 给没有时区信息的时间戳补上 "Z"
// 后端写入的都是 UTC，但历史数据可能缺少后缀，不补的话会被当成本地时间
func NormalizeTimestamp(ts string) string {
	ts = strings.TrimSpace(ts)
	if strings.HasSuffix(ts, "z") {
		// time.Parse 只认大写 Z
		return ts[:len(ts)-1] + "Z"
	}
	if ts == "" || hasZone(ts) {
		return ts
	}
	return ts + "Z"
}

func hasZone(ts string) bool {
	if strings.HasSuffix(ts, "Z") {
		return true
	}
	// 只在时间部分里找 +hh:mm / -hh:mm，日期里的 '-' 不算
	sep := strings.IndexAny(ts, "Tt ")
	if sep < 0 {
		return false
	}
	return strings.ContainsAny(ts[sep+1:], "+-")
}

// ParseTimestamp 解析后端时间戳（先补全时区）
func ParseTimestamp(ts string) (time.Time, error) {
	normalized := NormalizeTimestamp(ts)
	if normalized == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	normalized = strings.Replace(normalized, " ", "T", 1)
	t, err := time.Parse(time.RFC3339Nano, normalized)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", ts, err)
	}
	return t, nil
}

// DisplayTime 把时间戳渲染为 loc 时区下的 "hh:mm AM/PM"，无法解析时返回空串
func DisplayTime(ts string, loc *time.Location) string {
	t, err := ParseTimestamp(ts)
	if err != nil {
		return ""
	}
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(displayLayout)
}
