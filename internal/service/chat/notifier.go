package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"dine_chat/internal/model"
	"dine_chat/pkg/constants"

	"go.uber.org/zap"
)

// EventType 会话对宿主界面发出的事件类型
type EventType string

const (
	EventStateChanged EventType = "stateChanged" // 连接状态或对端变化
	EventMessage      EventType = "message"      // 收到对方的新消息，宿主应提示
	EventHistory      EventType = "history"      // 历史记录已替换
	EventRoster       EventType = "roster"       // 管理员会话列表变化
	EventNotice       EventType = "notice"       // 需要展示给用户的说明文字
)

// Event 会话事件
type Event struct {
	ID            string             `json:"id"`
	Type          EventType          `json:"type"`
	SessionId     string             `json:"session_id"`
	LocalId       string             `json:"local_id"`
	State         string             `json:"state,omitempty"`
	CounterpartId string             `json:"counterpart_id,omitempty"`
	Message       *model.ChatMessage `json:"message,omitempty"`
	Open          bool               `json:"open,omitempty"` // 消息是否属于当前打开的对话
	Text          string             `json:"text,omitempty"`
	At            time.Time          `json:"at"`
}

// Notifier 事件投递接口
// 实现：EventHub（进程内订阅）、mq.KafkaNotifier（投递到 Kafka）
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// NotifierFunc 函数适配器
type NotifierFunc func(ctx context.Context, ev Event) error

// Notify 实现 Notifier
func (f NotifierFunc) Notify(ctx context.Context, ev Event) error { return f(ctx, ev) }

// MultiNotifier 依次投递给多个 Notifier，单个失败不影响其他
type MultiNotifier []Notifier

// Notify 实现 Notifier
func (m MultiNotifier) Notify(ctx context.Context, ev Event) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// EventHub 进程内事件分发，桥接服务的 /chat/events 从这里订阅
type EventHub struct {
	mu     sync.Mutex
	subs   map[uint64]chan Event
	next   uint64
	buffer int
}

// NewEventHub 创建 EventHub，buffer 为每个订阅者通道的缓冲大小
func NewEventHub(buffer int) *EventHub {
	if buffer <= 0 {
		buffer = constants.CHANNEL_SIZE
	}
	return &EventHub{subs: make(map[uint64]chan Event), buffer: buffer}
}

// Subscribe 订阅事件，返回只读通道和取消函数
func (h *EventHub) Subscribe() (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.next
	h.next++
	ch := make(chan Event, h.buffer)
	h.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if c, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(c)
			}
		})
	}
	return ch, cancel
}

// Notify 实现 Notifier；订阅者通道满时丢弃该事件，不阻塞会话
func (h *EventHub) Notify(_ context.Context, ev Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, ch := range h.subs {
		select {
		case ch <- ev:
		default:
			zap.L().Warn("event subscriber full, dropping event",
				zap.Uint64("subscriber", id),
				zap.String("type", string(ev.Type)),
				zap.String("session", ev.SessionId))
		}
	}
	return nil
}

// Close 关闭所有订阅
func (h *EventHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}
