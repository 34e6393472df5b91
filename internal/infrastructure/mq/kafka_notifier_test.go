package mq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"dine_chat/internal/model"
	"dine_chat/internal/service/chat"
	"dine_chat/pkg/errorx"

	"github.com/segmentio/kafka-go"
)

type recordingWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaNotifierWritesKeyedEvent(t *testing.T) {
	w := &recordingWriter{}
	n := NewKafkaNotifierWithWriter(w, time.Second)

	ev := chat.Event{
		ID:        "42",
		Type:      chat.EventMessage,
		SessionId: "s1",
		LocalId:   "admin@x.com",
		Message:   &model.ChatMessage{MessageId: "m1", SenderId: "c1", Message: "hi"},
		Open:      true,
		At:        time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
	}
	if err := n.Notify(context.Background(), ev); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("msgs=%d", len(w.msgs))
	}
	msg := w.msgs[0]
	if string(msg.Key) != "admin@x.com" {
		t.Fatalf("key=%s", msg.Key)
	}
	if len(msg.Headers) != 2 || string(msg.Headers[0].Value) != "message" {
		t.Fatalf("headers=%v", msg.Headers)
	}
	var decoded chat.Event
	if err := json.Unmarshal(msg.Value, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Message == nil || decoded.Message.MessageId != "m1" || !decoded.Open {
		t.Fatalf("decoded=%+v", decoded)
	}

	n.Close()
	if !w.closed {
		t.Fatalf("writer not closed")
	}
}

func TestKafkaNotifierWrapsWriteError(t *testing.T) {
	boom := errors.New("leader not available")
	n := NewKafkaNotifierWithWriter(&recordingWriter{err: boom}, 0)
	err := n.Notify(context.Background(), chat.Event{Type: chat.EventNotice})
	if errorx.GetCode(err) != errorx.CodeNotifyFailed || !errors.Is(err, boom) {
		t.Fatalf("err=%v", err)
	}
}
