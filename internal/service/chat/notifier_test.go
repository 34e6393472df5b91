package chat

import (
	"context"
	"errors"
	"testing"
)

func TestEventHubFanOut(t *testing.T) {
	hub := NewEventHub(4)
	a, cancelA := hub.Subscribe()
	b, cancelB := hub.Subscribe()
	defer cancelB()

	if err := hub.Notify(context.Background(), Event{Type: EventNotice, Text: "x"}); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if ev := <-a; ev.Text != "x" {
		t.Fatalf("a got %+v", ev)
	}
	if ev := <-b; ev.Text != "x" {
		t.Fatalf("b got %+v", ev)
	}

	cancelA()
	cancelA()
	if _, ok := <-a; ok {
		t.Fatalf("a not closed after cancel")
	}
	_ = hub.Notify(context.Background(), Event{Type: EventNotice, Text: "y"})
	if ev := <-b; ev.Text != "y" {
		t.Fatalf("b got %+v", ev)
	}
}

func TestEventHubDropsWhenSubscriberFull(t *testing.T) {
	hub := NewEventHub(1)
	ch, cancel := hub.Subscribe()
	defer cancel()
	_ = hub.Notify(context.Background(), Event{Text: "1"})
	_ = hub.Notify(context.Background(), Event{Text: "2"})
	if ev := <-ch; ev.Text != "1" {
		t.Fatalf("got %+v", ev)
	}
	select {
	case ev := <-ch:
		t.Fatalf("unexpected %+v", ev)
	default:
	}

	hub.Close()
	if _, ok := <-ch; ok {
		t.Fatalf("channel open after Close")
	}
}

func TestMultiNotifierJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	var delivered int
	m := MultiNotifier{
		NotifierFunc(func(context.Context, Event) error { delivered++; return nil }),
		nil,
		NotifierFunc(func(context.Context, Event) error { return boom }),
		NotifierFunc(func(context.Context, Event) error { delivered++; return nil }),
	}
	err := m.Notify(context.Background(), Event{})
	if !errors.Is(err, boom) {
		t.Fatalf("err=%v", err)
	}
	if delivered != 2 {
		t.Fatalf("delivered=%d", delivered)
	}
}
