package redis

import (
	"context"
	"testing"
	"time"

	"dine_chat/pkg/errorx"
)

func TestGetOrErrorReportsMissingKey(t *testing.T) {
	rc, _ := newTestCache(t)
	ctx := context.Background()

	if _, err := rc.GetOrError(ctx, "user_token:nobody"); !errorx.IsNotFound(err) {
		t.Fatalf("missing key err=%v, want not found", err)
	}
	if err := rc.Set(ctx, "user_token:bob", "tid-1", time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := rc.GetOrError(ctx, "user_token:bob")
	if err != nil || got != "tid-1" {
		t.Fatalf("got=%q err=%v", got, err)
	}

	if err := rc.Delete(ctx, "user_token:bob"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := rc.Delete(ctx, "user_token:bob"); err != nil {
		t.Fatalf("delete missing key: %v", err)
	}
	if _, err := rc.GetOrError(ctx, "user_token:bob"); !errorx.IsNotFound(err) {
		t.Fatalf("deleted key err=%v, want not found", err)
	}
}

func TestDeleteByPatternsKeepsOtherKeys(t *testing.T) {
	rc, mr := newTestCache(t)
	ctx := context.Background()
	for _, k := range []string{"chat_roster_a", "chat_roster_b", "chat_roster_admins", "user_token:a"} {
		if err := mr.Set(k, "x"); err != nil {
			t.Fatalf("seed %s: %v", k, err)
		}
	}
	if err := rc.DeleteByPatterns(ctx, []string{"chat_roster_a*", "chat_roster_b"}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	keys := mr.Keys()
	if len(keys) != 1 || keys[0] != "user_token:a" {
		t.Fatalf("keys left: %v", keys)
	}
}
