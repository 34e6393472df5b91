package chat

import (
	"context"
	"testing"

	"dine_chat/internal/dto/respond"
	"dine_chat/internal/model"
)

func rosterIDs(r *Roster) []string {
	var ids []string
	for _, e := range r.Snapshot() {
		ids = append(ids, e.UserId)
	}
	return ids
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestRosterMergeConversationsKeepsOneEntryPerUser(t *testing.T) {
	r := NewRoster()
	r.MergePresence([]string{"c1"})
	r.MergeConversations([]respond.ConversationSummary{
		{UserId: "c2", LastMessage: "b", LastTimestamp: "2024-01-02T00:00:00"},
		{UserId: "c1", LastMessage: "a", LastTimestamp: "2024-01-01T00:00:00"},
		{UserId: "c1", LastMessage: "dup"},
		{UserId: ""},
	})
	if got := rosterIDs(r); !equalIDs(got, []string{"c2", "c1"}) {
		t.Fatalf("ids=%v", got)
	}
	e, _ := r.Get("c1")
	if !e.Online || e.LastMessage != "a" {
		t.Fatalf("c1=%+v", e)
	}
}

func TestRosterMergeConversationsKeepsNewerLocalPreview(t *testing.T) {
	r := NewRoster()
	r.Touch("c1", model.ChatMessage{Message: "fresh", Timestamp: "2024-01-03T00:00:00"}, true)
	r.MergeConversations([]respond.ConversationSummary{{UserId: "c1", LastMessage: "stale", LastTimestamp: "2024-01-01T00:00:00"}})
	e, _ := r.Get("c1")
	if e.LastMessage != "fresh" || e.Unread != 1 {
		t.Fatalf("c1=%+v", e)
	}
}

func TestRosterMergePresenceReportsWentOffline(t *testing.T) {
	r := NewRoster()
	if off := r.MergePresence([]string{"c1", "c2"}); len(off) != 0 {
		t.Fatalf("offline=%v", off)
	}
	off := r.MergePresence([]string{"c2", "c3"})
	if !equalIDs(off, []string{"c1"}) {
		t.Fatalf("offline=%v", off)
	}
	if got := rosterIDs(r); !equalIDs(got, []string{"c1", "c2", "c3"}) {
		t.Fatalf("ids=%v", got)
	}
	if e, _ := r.Get("c1"); e.Online {
		t.Fatalf("c1 still online")
	}
	// 一直离线的不算"变为离线"
	if off := r.MergePresence([]string{"c2", "c3"}); len(off) != 0 {
		t.Fatalf("offline=%v", off)
	}
}

func TestRosterTouchMovesToTop(t *testing.T) {
	r := NewRoster()
	r.MergePresence([]string{"c1", "c2", "c3"})
	r.Touch("c3", model.ChatMessage{Message: "hi", Timestamp: "t1"}, true)
	r.Touch("c3", model.ChatMessage{Message: "again", Timestamp: "t2"}, true)
	r.Touch("c4", model.ChatMessage{Message: "new"}, false)

	if got := rosterIDs(r); !equalIDs(got, []string{"c4", "c3", "c1", "c2"}) {
		t.Fatalf("ids=%v", got)
	}
	e, _ := r.Get("c3")
	if e.Unread != 2 || e.LastMessage != "again" || e.LastTimestamp != "t2" {
		t.Fatalf("c3=%+v", e)
	}
	if !r.MarkRead("c3") || r.MarkRead("c3") || r.MarkRead("missing") {
		t.Fatalf("MarkRead result mismatch")
	}
}

func TestRosterLoadMarksOffline(t *testing.T) {
	r := NewRoster()
	r.Load([]model.RosterEntry{{UserId: "c1", Online: true}, {UserId: "c1"}, {UserId: ""}, {UserId: "c2", Unread: 3}})
	snap := r.Snapshot()
	if len(snap) != 2 || snap[0].Online || snap[1].Unread != 3 {
		t.Fatalf("snapshot=%+v", snap)
	}
}

func TestMemoryRosterStoreCopies(t *testing.T) {
	store := NewMemoryRosterStore()
	entries := []model.RosterEntry{{UserId: "c1"}}
	if err := store.Save(context.Background(), "admin", entries); err != nil {
		t.Fatalf("save: %v", err)
	}
	entries[0].UserId = "mutated"
	got, err := store.Load(context.Background(), "admin")
	if err != nil || len(got) != 1 || got[0].UserId != "c1" {
		t.Fatalf("got=%+v err=%v", got, err)
	}
	if got, _ := store.Load(context.Background(), "nobody"); len(got) != 0 {
		t.Fatalf("unknown admin returned %+v", got)
	}
}
