package chat

import (
	"context"
	"testing"

	"dine_chat/internal/model"

	"go.uber.org/zap"
)

func TestManagerReusesAndReplacesSessions(t *testing.T) {
	d := &fakeDialer{}
	m := NewManager(Options{Endpoint: "ws://chat.local/ws", Dialer: d, Logger: zap.NewNop()}, nil)
	defer m.Close()

	customer := model.Identity{ID: "u@x.com", Role: model.RoleCustomer}
	s1 := m.Session(customer)
	if s2 := m.Session(customer); s2 != s1 {
		t.Fatalf("session not reused")
	}

	h := &harness{s: s1, dialer: d, events: &eventRecorder{}}
	h.connect(t, customer.ID, customer.Role, 0)

	// 同一 id 以另一角色出现，旧会话断开并被替换
	s3 := m.Session(model.Identity{ID: "u@x.com", Role: model.RoleAdmin})
	if s3 == s1 {
		t.Fatalf("session not replaced on role change")
	}
	if s1.State() != StateDisconnected {
		t.Fatalf("old session state=%s", s1.State())
	}
	if got, ok := m.Get("u@x.com"); !ok || got != s3 {
		t.Fatalf("Get returned %v %v", got, ok)
	}

	m.Remove("u@x.com")
	if m.Len() != 0 {
		t.Fatalf("len=%d", m.Len())
	}
}

func TestManagerEventsReachSubscribers(t *testing.T) {
	d := &fakeDialer{}
	m := NewManager(Options{Endpoint: "ws://chat.local/ws", Dialer: d, Logger: zap.NewNop()}, NewEventHub(16))
	defer m.Close()

	events, detach := m.Attach("u@x.com")
	defer detach()

	s := m.Session(model.Identity{ID: "u@x.com", Role: model.RoleCustomer})
	h := &harness{s: s, dialer: d, events: &eventRecorder{}}
	h.connect(t, "u@x.com", model.RoleCustomer, 0)

	ev := <-events
	if ev.Type != EventStateChanged || ev.LocalId != "u@x.com" || ev.SessionId != s.ID() || ev.ID == "" {
		t.Fatalf("event=%+v", ev)
	}
}

func TestManagerLastStreamTearsDownSession(t *testing.T) {
	d := &fakeDialer{}
	m := NewManager(Options{Endpoint: "ws://chat.local/ws", Dialer: d, Logger: zap.NewNop()}, nil)
	defer m.Close()

	_, first := m.Attach("u@x.com")
	_, second := m.Attach("u@x.com")
	_, other := m.Attach("v@x.com")
	defer other()

	s := m.Session(model.Identity{ID: "u@x.com", Role: model.RoleCustomer})
	h := &harness{s: s, dialer: d, events: &eventRecorder{}}
	c := h.connect(t, "u@x.com", model.RoleCustomer, 0)

	first()
	first()
	if _, ok := m.Get("u@x.com"); !ok || m.Streams("u@x.com") != 1 {
		t.Fatalf("session removed while a stream is still open, streams=%d", m.Streams("u@x.com"))
	}

	second()
	if _, ok := m.Get("u@x.com"); ok {
		t.Fatalf("session kept after last stream closed")
	}
	if s.State() != StateDisconnected || !c.isClosed() {
		t.Fatalf("state=%s closed=%v", s.State(), c.isClosed())
	}
	if m.Streams("v@x.com") != 1 {
		t.Fatalf("other user's stream affected")
	}
}

func TestManagerLogoutForgetsAdminRoster(t *testing.T) {
	d := &fakeDialer{}
	store := NewMemoryRosterStore()
	m := NewManager(Options{Endpoint: "ws://chat.local/ws", Dialer: d, RosterStore: store, Logger: zap.NewNop()}, nil)
	defer m.Close()
	ctx := context.Background()

	_ = store.Save(ctx, "admin@x.com", []model.RosterEntry{{UserId: "c1"}})
	_ = store.Save(ctx, "u@x.com", []model.RosterEntry{{UserId: "c2"}})

	admin := model.Identity{ID: "admin@x.com", Role: model.RoleAdmin}
	m.Session(admin)
	if err := m.Logout(ctx, admin); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, ok := m.Get(admin.ID); ok {
		t.Fatalf("admin session kept after logout")
	}
	if got, _ := store.Load(ctx, admin.ID); len(got) != 0 {
		t.Fatalf("admin roster kept: %+v", got)
	}

	// 顾客没有会话列表，退出不触碰存储
	if err := m.Logout(ctx, model.Identity{ID: "u@x.com", Role: model.RoleCustomer}); err != nil {
		t.Fatalf("customer logout: %v", err)
	}
	if got, _ := store.Load(ctx, "u@x.com"); len(got) != 1 {
		t.Fatalf("customer logout touched roster store: %+v", got)
	}
}
