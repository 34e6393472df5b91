package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"dine_chat/internal/dto/request"
	"dine_chat/internal/dto/respond"
	"dine_chat/internal/model"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// fakeChatBackend 最小的聊天端点：一个在线管理员，发送即回显
func fakeChatBackend(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.URL.Query().Get("userId")
		if userID == "" || r.URL.Query().Get("role") == "" {
			http.Error(w, "missing identity", http.StatusBadRequest)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		seq := 0
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var cmd map[string]any
			if err := json.Unmarshal(data, &cmd); err != nil {
				continue
			}
			var reply any
			switch cmd["action"] {
			case "getUsers":
				reply = respond.UserListEvent{
					Type:       "userList",
					Users:      []respond.PresenceUser{{UserId: "bob@x.com", Role: "admin"}},
					RoleFilter: "admin",
				}
			case "getMessages":
				reply = respond.MessageHistoryEvent{Type: "messageHistory", Messages: []model.ChatMessage{
					{MessageId: "h1", SenderId: "bob@x.com", RecipientId: userID, Message: "welcome", Timestamp: "2024-01-01T10:00:00"},
				}}
			case "sendMessage":
				var req request.SendMessageRequest
				_ = json.Unmarshal(data, &req)
				seq++
				reply = respond.NewMessageEvent{Type: "newMessage", ChatMessage: model.ChatMessage{
					MessageId:   "srv-" + strconv.Itoa(seq),
					SenderId:    req.SenderId,
					RecipientId: req.RecipientId,
					Message:     req.Message,
					Timestamp:   time.Now().UTC().Format("2006-01-02T15:04:05"),
				}}
			default:
				continue
			}
			if err := conn.WriteJSON(reply); err != nil {
				return
			}
		}
	}))
}

func TestSessionOverWebSocket(t *testing.T) {
	srv := fakeChatBackend(t)
	defer srv.Close()

	s := NewSession(Options{
		Endpoint: "ws" + strings.TrimPrefix(srv.URL, "http") + "/production",
		Dialer:   WSDialer{HandshakeTimeout: 2 * time.Second},
		Logger:   zap.NewNop(),
	})
	defer s.Disconnect()

	if err := s.Connect(context.Background(), model.Identity{ID: "alice@x.com", Role: model.RoleCustomer}); err != nil {
		t.Fatalf("connect: %v", err)
	}
	waitFor(t, "history", func() bool { return s.State() == StateReady && len(s.Messages()) == 1 })
	if s.CounterpartID() != "bob@x.com" {
		t.Fatalf("counterpart=%q", s.CounterpartID())
	}

	if err := s.Send("hi"); err != nil {
		t.Fatalf("send: %v", err)
	}
	waitFor(t, "echo", func() bool { return len(s.Messages()) == 2 })
	msgs := s.Messages()
	if !msgs[1].IsLocal || msgs[1].Message != "hi" || msgs[1].MessageId != "srv-1" {
		t.Fatalf("echo=%+v", msgs[1])
	}

	s.Disconnect()
	if s.State() != StateDisconnected {
		t.Fatalf("state=%s", s.State())
	}
}

func TestSessionServerCloseDisconnects(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		_, _, _ = conn.ReadMessage()
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "bye"))
		_ = conn.Close()
	}))
	defer srv.Close()

	rec := &eventRecorder{}
	s := NewSession(Options{Endpoint: "ws" + strings.TrimPrefix(srv.URL, "http"), Notifier: rec, Logger: zap.NewNop()})
	if err := s.Connect(context.Background(), model.Identity{ID: "alice@x.com", Role: model.RoleCustomer}); err != nil {
		t.Fatalf("connect: %v", err)
	}
	waitFor(t, "disconnected after open", func() bool {
		evs := rec.ofType(EventStateChanged)
		opened := false
		for _, ev := range evs {
			if ev.State == StateAwaitingCounterpart.String() {
				opened = true
			}
		}
		return opened && s.State() == StateDisconnected
	})
}

func TestBuildURLKeepsExistingQuery(t *testing.T) {
	got, err := buildURL("wss://api.example.com/production?stage=1", model.Identity{ID: "a b@x.com", Role: model.RoleAdmin})
	if err != nil {
		t.Fatalf("buildURL: %v", err)
	}
	if !strings.Contains(got, "stage=1") || !strings.Contains(got, "userId=a+b%40x.com") || !strings.Contains(got, "role=admin") {
		t.Fatalf("url=%s", got)
	}
}
