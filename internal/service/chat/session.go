// Package chat 实现聊天客户端的核心服务层
// session.go
// 核心职责：一个 Session 持有一条到聊天端点的 WebSocket 连接
// 1. 连接 / 断开，连接后发起在线发现（getUsers），找不到对端时按固定间隔重试
// 2. 处理入站帧：在线快照、会话列表、历史记录、实时推送（按 messageId 去重）
// 3. 发送消息只发命令不本地追加，等服务端回显
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"dine_chat/internal/dto/request"
	"dine_chat/internal/dto/respond"
	"dine_chat/internal/model"
	"dine_chat/pkg/constants"
	"dine_chat/pkg/errorx"
	"dine_chat/pkg/util/snowflake"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// State 连接状态
type State int

const (
	StateDisconnected        State = iota // 未连接
	StateConnecting                       // 正在建立连接
	StateAwaitingCounterpart              // 已连接，尚未确定对端
	StateReady                            // 已连接，对端已确定
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAwaitingCounterpart:
		return "awaiting_counterpart"
	case StateReady:
		return "ready"
	default:
		return "disconnected"
	}
}

// Connected 是否处于已连接的两个状态之一
func (s State) Connected() bool {
	return s == StateAwaitingCounterpart || s == StateReady
}

// Options 会话依赖
type Options struct {
	Endpoint      string        // 聊天端点，如 wss://xxx/production
	RetryInterval time.Duration // 在线发现重试间隔，默认 2s
	WriteTimeout  time.Duration // 单帧写超时
	Dialer        Dialer
	Notifier      Notifier
	RosterStore   RosterStore // 仅管理员使用，可为 nil
	// Submit 异步执行会话列表保存，生产环境为 Redis 缓存服务的工作池
	Submit func(task func())
	Logger *zap.Logger
}

// Session 客户端聊天会话
// 所有状态变更都在 mu 下进行，读协程和定时器回调与调用方互斥，效果等同于单线程事件循环
type Session struct {
	id   string
	opts Options
	log  *zap.Logger

	mu          sync.Mutex
	identity    model.Identity
	state       State
	conn        Conn
	gen         uint64 // 每次建立或拆除连接加一，旧连接的回调据此失效
	cancelDial  context.CancelFunc
	counterpart string
	messages    []model.ChatMessage
	index       map[string]struct{} // 与 messages 一一对应的 messageId 集合
	pushed      map[string]struct{} // 本次连接收到过的推送 id，含未打开会话的推送
	pending     map[string]int      // 未返回的历史请求数，按对端计
	roster      *Roster
	retry       *time.Timer
	retrySeq    uint64 // 每次排期加一，已触发但排队等锁的旧回调据此失效
	outbox      []Event

	rosterDirty   bool
	rosterVersion uint64

	saveMu       sync.Mutex
	savedVersion uint64
}

// NewSession 创建会话，未连接
func NewSession(opts Options) *Session {
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = constants.DISCOVERY_RETRY_INTERVAL
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = constants.WS_WRITE_TIMEOUT
	}
	if opts.Dialer == nil {
		opts.Dialer = WSDialer{}
	}
	if opts.Notifier == nil {
		opts.Notifier = NotifierFunc(func(context.Context, Event) error { return nil })
	}
	if opts.Submit == nil {
		opts.Submit = func(task func()) { go task() }
	}
	lg := opts.Logger
	if lg == nil {
		lg = zap.L()
	}
	id := uuid.NewString()
	return &Session{
		id:      id,
		opts:    opts,
		log:     lg.With(zap.String("session", id)),
		index:   make(map[string]struct{}),
		pushed:  make(map[string]struct{}),
		pending: make(map[string]int),
		roster:  NewRoster(),
	}
}

// ID 会话 id
func (s *Session) ID() string { return s.id }

// Connect 以 identity 身份连接聊天端点，立即返回，不等待握手
// 已有连接会先被关闭；消息列表和对端在这里清空
func (s *Session) Connect(ctx context.Context, identity model.Identity) error {
	identity.ID = strings.TrimSpace(identity.ID)
	if identity.ID == "" {
		return errorx.ErrNoIdentity
	}
	if !identity.Role.Valid() {
		return errorx.Newf(errorx.CodeInvalidParam, "unknown role %q", identity.Role)
	}
	target, err := buildURL(s.opts.Endpoint, identity)
	if err != nil {
		return errorx.Wrap(err, errorx.CodeDialFailed, "invalid chat endpoint")
	}

	s.mu.Lock()
	s.teardownLocked()
	s.identity = identity
	s.state = StateConnecting
	s.messages = nil
	s.index = make(map[string]struct{})
	s.pushed = make(map[string]struct{})
	s.roster = NewRoster()
	gen := s.gen
	dialCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancelDial = cancel
	s.emitLocked(Event{Type: EventStateChanged})
	s.unlockAndFlush()

	s.log.Info("chat connecting", zap.String("user", identity.ID), zap.String("role", string(identity.Role)))
	go s.dial(dialCtx, gen, target)
	return nil
}

func (s *Session) dial(ctx context.Context, gen uint64, target string) {
	conn, err := s.opts.Dialer.Dial(ctx, target)

	var persisted []model.RosterEntry
	if err == nil && s.isAdmin(gen) && s.opts.RosterStore != nil {
		adminID := s.Identity().ID
		entries, loadErr := s.opts.RosterStore.Load(ctx, adminID)
		if loadErr != nil {
			s.log.Warn("load persisted roster failed", zap.String("admin", adminID), zap.Error(loadErr))
		}
		persisted = entries
	}

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		return
	}
	s.cancelDial = nil
	if err != nil {
		s.log.Warn("chat dial failed", zap.Error(err))
		s.state = StateDisconnected
		s.emitLocked(Event{Type: EventStateChanged})
		s.emitLocked(Event{Type: EventNotice, Text: "could not connect to chat, please try again"})
		s.unlockAndFlush()
		return
	}

	s.conn = conn
	s.state = StateAwaitingCounterpart
	s.emitLocked(Event{Type: EventStateChanged})
	if s.identity.Role == model.RoleAdmin && len(persisted) > 0 {
		s.roster.Load(persisted)
		s.emitLocked(Event{Type: EventRoster})
	}
	s.discoverLocked()
	s.unlockAndFlush()

	go s.readLoop(conn, gen)
}

func (s *Session) isAdmin(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return gen == s.gen && s.identity.Role == model.RoleAdmin
}

// readLoop 每条连接一个读协程，连接出错即结束
func (s *Session) readLoop(conn Conn, gen uint64) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.onTransportClosed(gen, err)
			return
		}
		s.handleFrame(gen, data)
	}
}

func (s *Session) onTransportClosed(gen uint64, err error) {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		s.log.Info("chat connection closed", zap.Error(err))
	} else {
		s.log.Warn("chat connection lost", zap.Error(err))
	}
	s.teardownLocked()
	s.emitLocked(Event{Type: EventStateChanged})
	s.unlockAndFlush()
}

// handleFrame 按 type 分发入站帧；无法解析的帧直接丢弃
func (s *Session) handleFrame(gen uint64, data []byte) {
	var env respond.EventEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		s.log.Warn("drop malformed chat frame", zap.Error(err), zap.ByteString("frame", truncate(data)))
		return
	}

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	var err error
	switch env.Type {
	case constants.EVENT_USER_LIST:
		var ev respond.UserListEvent
		if err = json.Unmarshal(data, &ev); err == nil {
			s.onPresenceLocked(ev)
		}
	case constants.EVENT_CONVERSATION_LIST:
		var ev respond.ConversationListEvent
		if err = json.Unmarshal(data, &ev); err == nil {
			s.onConversationsLocked(ev)
		}
	case constants.EVENT_MESSAGE_HISTORY:
		var ev respond.MessageHistoryEvent
		if err = json.Unmarshal(data, &ev); err == nil {
			s.onHistoryLocked(ev.Messages)
		}
	case constants.EVENT_NEW_MESSAGE:
		var ev respond.NewMessageEvent
		if err = json.Unmarshal(data, &ev); err == nil {
			s.onLivePushLocked(ev.ChatMessage)
		}
	default:
		s.log.Debug("ignore unknown chat frame", zap.String("type", env.Type))
	}
	if err != nil {
		s.log.Warn("drop malformed chat frame", zap.String("type", env.Type), zap.Error(err))
	}
	s.unlockAndFlush()
}

// onPresenceLocked 处理在线快照
// 顾客：取去重后的第一个管理员；管理员：合并进会话列表，不自动选择
func (s *Session) onPresenceLocked(ev respond.UserListEvent) {
	want := s.identity.Role.Opposite()
	if ev.RoleFilter != "" && ev.RoleFilter != string(want) {
		s.log.Debug("ignore presence for other role", zap.String("roleFilter", ev.RoleFilter))
		return
	}

	candidates := make([]string, 0, len(ev.Users))
	seen := make(map[string]bool, len(ev.Users))
	for _, u := range ev.Users {
		id := strings.TrimSpace(u.UserId)
		if id == "" || id == constants.GUEST_USER_ID || id == s.identity.ID || seen[id] {
			continue
		}
		if u.Role != "" && u.Role != string(want) {
			continue
		}
		seen[id] = true
		candidates = append(candidates, id)
	}

	if s.identity.Role == model.RoleAdmin {
		wentOffline := s.roster.MergePresence(candidates)
		s.rosterChangedLocked()
		for _, id := range wentOffline {
			if id == s.counterpart {
				s.log.Info("selected counterpart went offline", zap.String("counterpart", id))
				s.counterpart = ""
				s.state = StateAwaitingCounterpart
				s.emitLocked(Event{Type: EventStateChanged})
				break
			}
		}
		if s.roster.Len() == 0 {
			s.scheduleRetryLocked()
		} else {
			s.cancelRetryLocked()
		}
		return
	}

	if s.counterpart != "" {
		return
	}
	if len(candidates) == 0 {
		s.scheduleRetryLocked()
		return
	}
	s.cancelRetryLocked()
	s.counterpart = candidates[0]
	s.state = StateReady
	s.emitLocked(Event{Type: EventStateChanged})
	s.requestHistoryLocked(s.counterpart)
}

// onConversationsLocked 合并管理员的持久化会话列表
func (s *Session) onConversationsLocked(ev respond.ConversationListEvent) {
	if s.identity.Role != model.RoleAdmin {
		return
	}
	s.roster.MergeConversations(ev.Conversations)
	if s.counterpart != "" {
		s.roster.MarkRead(s.counterpart)
	}
	s.rosterChangedLocked()
	if s.roster.Len() > 0 {
		s.cancelRetryLocked()
	}
}

// onHistoryLocked 用历史记录整体替换消息列表
// 只接受当前对端的响应；对端由消息的收发双方推断，推断不出时按未返回的请求归属
func (s *Session) onHistoryLocked(msgs []model.ChatMessage) {
	peer, ok := historyPeer(msgs, s.identity.ID)
	if !ok {
		s.log.Debug("drop history with foreign participants")
		return
	}
	if peer == "" {
		peer = s.attributeEmptyHistoryLocked()
	} else {
		s.settlePendingLocked(peer)
	}
	if peer == "" || peer != s.counterpart {
		s.log.Debug("drop stale history", zap.String("peer", peer), zap.String("counterpart", s.counterpart))
		return
	}

	s.messages = make([]model.ChatMessage, 0, len(msgs))
	s.index = make(map[string]struct{}, len(msgs))
	for _, m := range msgs {
		if m.MessageId != "" {
			if _, dup := s.index[m.MessageId]; dup {
				continue
			}
			s.index[m.MessageId] = struct{}{}
		}
		m.IsLocal = m.SenderId == s.identity.ID
		s.messages = append(s.messages, m)
	}
	s.emitLocked(Event{Type: EventHistory})
}

// historyPeer 返回历史记录中的另一方；出现第三方或多个对端时 ok 为 false
func historyPeer(msgs []model.ChatMessage, localID string) (peer string, ok bool) {
	for _, m := range msgs {
		if m.SenderId != localID && m.RecipientId != localID {
			return "", false
		}
		other := m.Peer(localID)
		if other == "" || other == localID {
			continue
		}
		if peer == "" {
			peer = other
		} else if other != peer {
			return "", false
		}
	}
	return peer, true
}

func (s *Session) settlePendingLocked(peer string) {
	if n := s.pending[peer]; n > 1 {
		s.pending[peer] = n - 1
	} else {
		delete(s.pending, peer)
	}
}

// attributeEmptyHistoryLocked 空历史无法判断属于谁
// 只有当前对端有未返回请求时才归给它，否则优先归给其他对端（视为过期）
func (s *Session) attributeEmptyHistoryLocked() string {
	for peer := range s.pending {
		if peer != s.counterpart {
			s.settlePendingLocked(peer)
			return peer
		}
	}
	if s.pending[s.counterpart] > 0 {
		s.settlePendingLocked(s.counterpart)
		return s.counterpart
	}
	return ""
}

// onLivePushLocked 处理实时推送
func (s *Session) onLivePushLocked(msg model.ChatMessage) {
	if msg.MessageId == "" || msg.SenderId == "" {
		s.log.Warn("drop live push without messageId or senderId")
		return
	}
	if _, ok := s.index[msg.MessageId]; ok {
		return
	}
	if _, ok := s.pushed[msg.MessageId]; ok {
		return
	}
	s.pushed[msg.MessageId] = struct{}{}

	msg.IsLocal = msg.SenderId == s.identity.ID
	peer := msg.Peer(s.identity.ID)
	if peer == "" {
		// 本地发出的回显可能不带 recipientId，只能是当前对话
		peer = s.counterpart
	}
	open := s.counterpart != "" && peer == s.counterpart

	if s.identity.Role == model.RoleAdmin {
		if open {
			s.appendLocked(msg)
		}
		s.roster.Touch(peer, msg, !open && !msg.IsLocal)
		s.rosterChangedLocked()
		s.cancelRetryLocked()
	} else {
		s.appendLocked(msg)
	}

	if !msg.IsLocal {
		m := msg
		s.emitLocked(Event{Type: EventMessage, Message: &m, Open: open})
	}
}

func (s *Session) appendLocked(msg model.ChatMessage) {
	s.index[msg.MessageId] = struct{}{}
	s.messages = append(s.messages, msg)
}

// Send 发送一条消息给当前对端
// 不做本地追加，消息在服务端回显（newMessage）后才进入列表
func (s *Session) Send(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return errorx.ErrEmptyMessage
	}

	s.mu.Lock()
	defer s.unlockAndFlush()
	if s.conn == nil || !s.state.Connected() {
		return errorx.ErrNotConnected
	}
	if s.counterpart == "" {
		s.emitLocked(Event{Type: EventNotice, Text: errorx.ErrNoCounterpart.Msg})
		if err := s.discoverLocked(); err != nil {
			return err
		}
		return errorx.ErrNoCounterpart
	}
	return s.sendLocked(request.SendMessageRequest{
		Action:      constants.ACTION_SEND_MESSAGE,
		SenderId:    s.identity.ID,
		RecipientId: s.counterpart,
		Message:     text,
	})
}

// SelectCounterpart 管理员选择要对话的顾客，清空消息列表并拉取历史
func (s *Session) SelectCounterpart(id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return errorx.ErrInvalidParam
	}

	s.mu.Lock()
	defer s.unlockAndFlush()
	if s.identity.Role != model.RoleAdmin {
		return errorx.ErrForbidden
	}
	if s.conn == nil || !s.state.Connected() {
		return errorx.ErrNotConnected
	}
	s.counterpart = id
	s.state = StateReady
	s.messages = nil
	s.index = make(map[string]struct{})
	if s.roster.MarkRead(id) {
		s.rosterChangedLocked()
	}
	s.emitLocked(Event{Type: EventStateChanged})
	return s.requestHistoryLocked(id)
}

// RefreshPresence 手动重新发起在线发现
func (s *Session) RefreshPresence() error {
	s.mu.Lock()
	defer s.unlockAndFlush()
	if s.conn == nil || !s.state.Connected() {
		return errorx.ErrNotConnected
	}
	return s.discoverLocked()
}

// Disconnect 取消重试、关闭连接；消息列表保留到下次 Connect
func (s *Session) Disconnect() {
	s.mu.Lock()
	if s.state == StateDisconnected && s.conn == nil && s.cancelDial == nil {
		s.cancelRetryLocked()
		s.mu.Unlock()
		return
	}
	s.teardownLocked()
	s.emitLocked(Event{Type: EventStateChanged})
	s.unlockAndFlush()
	s.log.Info("chat disconnected")
}

// teardownLocked 让当前连接的所有回调失效并释放资源
func (s *Session) teardownLocked() {
	s.gen++
	s.cancelRetryLocked()
	if s.cancelDial != nil {
		s.cancelDial()
		s.cancelDial = nil
	}
	if s.conn != nil {
		if err := s.conn.Close(); err != nil {
			s.log.Debug("close chat connection", zap.Error(err))
		}
		s.conn = nil
	}
	s.state = StateDisconnected
	s.counterpart = ""
	s.pending = make(map[string]int)
}

// discoverLocked 请求对端角色的在线列表，管理员同时请求会话列表
func (s *Session) discoverLocked() error {
	if err := s.sendLocked(request.GetUsersRequest{
		Action: constants.ACTION_GET_USERS,
		Role:   string(s.identity.Role.Opposite()),
	}); err != nil {
		return err
	}
	if s.identity.Role == model.RoleAdmin {
		return s.sendLocked(request.GetConversationsRequest{
			Action:     constants.ACTION_GET_CONVERSATIONS,
			AdminEmail: s.identity.ID,
		})
	}
	return nil
}

func (s *Session) requestHistoryLocked(peer string) error {
	s.pending[peer]++
	return s.sendLocked(request.GetMessagesRequest{
		Action: constants.ACTION_GET_MESSAGES,
		User1:  s.identity.ID,
		User2:  peer,
	})
}

// sendLocked 写一帧 JSON；写失败按连接断开处理
func (s *Session) sendLocked(v any) error {
	if s.conn == nil {
		return errorx.ErrNotConnected
	}
	data, err := json.Marshal(v)
	if err != nil {
		return errorx.Wrap(err, errorx.CodeInvalidParam, "encode chat command")
	}
	_ = s.conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		s.log.Warn("chat write failed", zap.Error(err))
		s.teardownLocked()
		s.emitLocked(Event{Type: EventStateChanged})
		return errorx.Wrap(err, errorx.CodeNotConnected, "chat connection lost")
	}
	return nil
}

// scheduleRetryLocked 在 RetryInterval 后重发在线发现，已排期时不重复排期
func (s *Session) scheduleRetryLocked() {
	if s.retry != nil {
		return
	}
	gen := s.gen
	s.retrySeq++
	seq := s.retrySeq
	s.retry = time.AfterFunc(s.opts.RetryInterval, func() { s.fireRetry(gen, seq) })
}

func (s *Session) cancelRetryLocked() {
	if s.retry != nil {
		s.retry.Stop()
		s.retry = nil
	}
}

func (s *Session) fireRetry(gen, seq uint64) {
	s.mu.Lock()
	defer s.unlockAndFlush()
	if gen != s.gen || seq != s.retrySeq || s.retry == nil || s.conn == nil {
		return
	}
	s.retry = nil
	unresolved := s.counterpart == ""
	if s.identity.Role == model.RoleAdmin {
		unresolved = s.roster.Len() == 0
	}
	if !unresolved {
		return
	}
	s.log.Debug("retry presence discovery")
	if err := s.sendLocked(request.GetUsersRequest{
		Action: constants.ACTION_GET_USERS,
		Role:   string(s.identity.Role.Opposite()),
	}); err != nil && !errors.Is(err, errorx.ErrNotConnected) {
		s.log.Warn("retry presence discovery failed", zap.Error(err))
	}
}

func (s *Session) rosterChangedLocked() {
	s.rosterDirty = true
	s.emitLocked(Event{Type: EventRoster})
}

// emitLocked 事件先入队，解锁后再投递，Notifier 里可以安全地回调会话
func (s *Session) emitLocked(ev Event) {
	ev.ID = snowflake.GenerateIDString()
	ev.SessionId = s.id
	ev.LocalId = s.identity.ID
	ev.State = s.state.String()
	ev.CounterpartId = s.counterpart
	ev.At = time.Now().UTC()
	s.outbox = append(s.outbox, ev)
}

// unlockAndFlush 释放锁后投递事件并提交会话列表保存
func (s *Session) unlockAndFlush() {
	events := s.outbox
	s.outbox = nil

	var save func()
	if s.rosterDirty && s.opts.RosterStore != nil && s.identity.Role == model.RoleAdmin {
		s.rosterVersion++
		version, adminID, entries := s.rosterVersion, s.identity.ID, s.roster.Snapshot()
		save = func() { s.saveRoster(adminID, version, entries) }
	}
	s.rosterDirty = false
	s.mu.Unlock()

	for _, ev := range events {
		if err := s.opts.Notifier.Notify(context.Background(), ev); err != nil {
			s.log.Warn("notify chat event failed", zap.String("type", string(ev.Type)), zap.Error(err))
		}
	}
	if save != nil {
		s.opts.Submit(save)
	}
}

// saveRoster 保存会话列表快照，较旧的快照不会覆盖较新的
func (s *Session) saveRoster(adminID string, version uint64, entries []model.RosterEntry) {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	if version <= s.savedVersion {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.opts.RosterStore.Save(ctx, adminID, entries); err != nil {
		s.log.Warn("save roster failed", zap.String("admin", adminID), zap.Error(err))
		return
	}
	s.savedVersion = version
}

// State 当前连接状态
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// CounterpartID 当前对端，未确定时为空串
func (s *Session) CounterpartID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counterpart
}

// Identity 最近一次 Connect 使用的身份
func (s *Session) Identity() model.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

// Messages 消息列表副本
func (s *Session) Messages() []model.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

// Roster 管理员会话列表副本
func (s *Session) Roster() []model.RosterEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roster.Snapshot()
}

func truncate(b []byte) []byte {
	if len(b) > 256 {
		return b[:256]
	}
	return b
}
