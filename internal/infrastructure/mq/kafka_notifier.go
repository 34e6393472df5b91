// Package mq 提供 Kafka 通知投递
// notifyMode = "kafka" 时，会话事件除进程内 EventHub 外再写入 Kafka，
// 供店内其他服务（如订单提醒、客服看板）消费
package mq

import (
	"context"
	"encoding/json"
	"net"
	"strconv"
	"time"

	"dine_chat/internal/config"
	"dine_chat/internal/service/chat"
	"dine_chat/pkg/errorx"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageWriter Kafka 写入能力，*kafka.Writer 满足该接口
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier 把会话事件写入 Kafka，实现 chat.Notifier
type KafkaNotifier struct {
	writer  MessageWriter
	timeout time.Duration
}

// NewKafkaNotifier 按配置创建 Writer
// 以本地参与者 id 作为 key，同一参与者的事件落在同一分区，保持顺序
func NewKafkaNotifier(conf config.KafkaConfig) *KafkaNotifier {
	timeout := conf.Timeout * time.Second
	w := &kafka.Writer{
		Addr:                   kafka.TCP(conf.HostPort),
		Topic:                  conf.NotifyTopic,
		Balancer:               &kafka.Hash{},
		WriteTimeout:           timeout,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: false,
	}
	return NewKafkaNotifierWithWriter(w, timeout)
}

// NewKafkaNotifierWithWriter 使用给定的 Writer
func NewKafkaNotifierWithWriter(w MessageWriter, timeout time.Duration) *KafkaNotifier {
	if timeout <= 0 {
		timeout = time.Second
	}
	return &KafkaNotifier{writer: w, timeout: timeout}
}

// Notify 实现 chat.Notifier
func (k *KafkaNotifier) Notify(ctx context.Context, ev chat.Event) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return errorx.Wrap(err, errorx.CodeNotifyFailed, "encode chat event")
	}
	ctx, cancel := context.WithTimeout(ctx, k.timeout)
	defer cancel()
	err = k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.LocalId),
		Value: value,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(ev.Type)},
			{Key: "session", Value: []byte(ev.SessionId)},
		},
		Time: ev.At,
	})
	if err != nil {
		return errorx.Wrapf(err, errorx.CodeNotifyFailed, "kafka write %s event", ev.Type)
	}
	return nil
}

// Close 关闭 Writer
func (k *KafkaNotifier) Close() {
	if err := k.writer.Close(); err != nil {
		zap.L().Error(err.Error())
	}
}

// EnsureTopic 通知主题不存在时创建
// 需要连到 controller 节点才能建主题
func EnsureTopic(conf config.KafkaConfig) error {
	conn, err := kafka.Dial("tcp", conf.HostPort)
	if err != nil {
		return errorx.Wrapf(err, errorx.CodeNotifyFailed, "dial kafka %s", conf.HostPort)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return errorx.Wrap(err, errorx.CodeNotifyFailed, "kafka controller")
	}
	ctrlConn, err := kafka.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return errorx.Wrap(err, errorx.CodeNotifyFailed, "dial kafka controller")
	}
	defer ctrlConn.Close()

	err = ctrlConn.CreateTopics(kafka.TopicConfig{
		Topic:             conf.NotifyTopic,
		NumPartitions:     conf.Partition,
		ReplicationFactor: 1,
	})
	if err != nil {
		return errorx.Wrapf(err, errorx.CodeNotifyFailed, "create topic %s", conf.NotifyTopic)
	}
	return nil
}
