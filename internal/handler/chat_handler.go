package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"dine_chat/internal/dto/request"
	"dine_chat/internal/dto/respond"
	"dine_chat/internal/infrastructure/middleware"
	"dine_chat/internal/model"
	"dine_chat/internal/service/chat"
	"dine_chat/pkg/errorx"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const (
	eventsWriteWait  = 10 * time.Second
	eventsPingPeriod = 30 * time.Second
	rosterSheet      = "Conversations"
)

// ChatHandler 聊天桥接处理器
// 宿主界面通过它驱动自己的 chat.Session，事件从 /chat/events 推回
type ChatHandler struct {
	manager  *chat.Manager
	loc      *time.Location // 消息显示时间使用的时区
	upgrader websocket.Upgrader
}

// NewChatHandler loc 为 nil 时使用服务器本地时区
func NewChatHandler(manager *chat.Manager, loc *time.Location) *ChatHandler {
	if loc == nil {
		loc = time.Local
	}
	return &ChatHandler{
		manager: manager,
		loc:     loc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 2048,
			// 跨域由 cors 中间件和 Token 控制
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Connect 以 Token 中的身份连接聊天端点
// POST /chat/connect
// 响应: respond.ChatStateRespond（此时通常为 connecting）
func (h *ChatHandler) Connect(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		HandleError(c, errorx.ErrNoIdentity)
		return
	}
	session := h.manager.Session(identity)
	if err := session.Connect(c.Request.Context(), identity); err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, h.stateOf(session))
}

// Disconnect 断开连接，会话保留以便再次 Connect
// POST /chat/disconnect
func (h *ChatHandler) Disconnect(c *gin.Context) {
	identity, _ := middleware.IdentityFrom(c)
	if session, ok := h.manager.Get(identity.ID); ok {
		session.Disconnect()
	}
	HandleSuccess(c, nil)
}

// Send 发送一条消息，界面等服务端回显后再显示
// POST /chat/send
// 请求体: request.SendChatRequest
func (h *ChatHandler) Send(c *gin.Context) {
	var req request.SendChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	session, err := h.session(c)
	if err != nil {
		HandleError(c, err)
		return
	}
	if err := session.Send(req.Message); err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, nil)
}

// Select 管理员打开与某位顾客的对话
// POST /chat/select
// 请求体: request.SelectCounterpartRequest
func (h *ChatHandler) Select(c *gin.Context) {
	var req request.SelectCounterpartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	session, err := h.session(c)
	if err != nil {
		HandleError(c, err)
		return
	}
	if err := session.SelectCounterpart(req.CounterpartId); err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, h.stateOf(session))
}

// Refresh 立即重新拉取在线列表
// POST /chat/refresh
func (h *ChatHandler) Refresh(c *gin.Context) {
	session, err := h.session(c)
	if err != nil {
		HandleError(c, err)
		return
	}
	if err := session.RefreshPresence(); err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, nil)
}

// State 当前会话快照
// GET /chat/state
// 响应: respond.ChatStateRespond；从未连接过时 state 为 disconnected
func (h *ChatHandler) State(c *gin.Context) {
	identity, _ := middleware.IdentityFrom(c)
	session, ok := h.manager.Get(identity.ID)
	if !ok {
		HandleSuccess(c, respond.ChatStateRespond{
			LocalId:  identity.ID,
			Role:     identity.Role,
			State:    chat.StateDisconnected.String(),
			Messages: []respond.ChatMessageRespond{},
		})
		return
	}
	HandleSuccess(c, h.stateOf(session))
}

// ExportRoster 导出管理员会话列表为 xlsx
// GET /chat/roster/export
func (h *ChatHandler) ExportRoster(c *gin.Context) {
	identity, _ := middleware.IdentityFrom(c)
	if identity.Role != model.RoleAdmin {
		HandleError(c, errorx.ErrForbidden)
		return
	}
	var entries []model.RosterEntry
	if session, ok := h.manager.Get(identity.ID); ok {
		entries = session.Roster()
	}

	f, err := buildRosterWorkbook(entries, h.loc)
	if err != nil {
		HandleError(c, err)
		return
	}
	defer f.Close()

	filename := fmt.Sprintf("conversations_%s.xlsx", time.Now().In(h.loc).Format("20060102_1504"))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Status(http.StatusOK)
	if err := f.Write(c.Writer); err != nil {
		zap.L().Error("write roster workbook", zap.String("admin", identity.ID), zap.Error(err))
	}
}

func buildRosterWorkbook(entries []model.RosterEntry, loc *time.Location) (*excelize.File, error) {
	f := excelize.NewFile()
	// NewFile 自带 Sheet1，直接改名
	if err := f.SetSheetName(f.GetSheetName(0), rosterSheet); err != nil {
		f.Close()
		return nil, err
	}

	headers := []string{"Customer", "Online", "Unread", "Last message", "Last time"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(rosterSheet, cell, header)
	}
	for i, e := range entries {
		row := i + 2
		online := "no"
		if e.Online {
			online = "yes"
		}
		f.SetCellValue(rosterSheet, fmt.Sprintf("A%d", row), e.UserId)
		f.SetCellValue(rosterSheet, fmt.Sprintf("B%d", row), online)
		f.SetCellValue(rosterSheet, fmt.Sprintf("C%d", row), e.Unread)
		f.SetCellValue(rosterSheet, fmt.Sprintf("D%d", row), e.LastMessage)
		f.SetCellValue(rosterSheet, fmt.Sprintf("E%d", row), lastSeen(e.LastTimestamp, loc))
	}
	_ = f.SetColWidth(rosterSheet, "A", "A", 32)
	_ = f.SetColWidth(rosterSheet, "D", "D", 48)
	_ = f.SetColWidth(rosterSheet, "E", "E", 20)
	return f, nil
}

func lastSeen(ts string, loc *time.Location) string {
	t, err := chat.ParseTimestamp(ts)
	if err != nil {
		return ts
	}
	return t.In(loc).Format("2006-01-02 15:04")
}

// Events 会话事件流（WebSocket），只推送属于调用方的事件
// 调用方最后一个事件流断开即视为聊天界面关闭，会话随之拆除
// GET /chat/events?token=...
func (h *ChatHandler) Events(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		abortUnauthorized(c, "请先登录")
		return
	}

	// 先订阅再升级，避免漏掉升级期间的事件
	events, detach := h.manager.Attach(identity.ID)
	defer detach()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		zap.L().Warn("event stream upgrade failed", zap.String("user", identity.ID), zap.Error(err))
		return
	}
	defer conn.Close()

	// 读协程只用来发现客户端断开
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(eventsPingPeriod)
	defer ticker.Stop()

	zap.L().Info("event stream opened", zap.String("user", identity.ID))
	defer zap.L().Info("event stream closed", zap.String("user", identity.ID))

	for {
		select {
		case <-closed:
			return
		case ev, ok := <-events:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
					time.Now().Add(eventsWriteWait))
				return
			}
			if ev.LocalId != identity.ID {
				continue
			}
			data, err := json.Marshal(ev)
			if err != nil {
				zap.L().Error("marshal chat event", zap.Error(err))
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(eventsWriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				zap.L().Debug("event stream write failed", zap.String("user", identity.ID), zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(eventsWriteWait)); err != nil {
				return
			}
		}
	}
}

// session 取调用方已有的会话，没有则视为未连接
func (h *ChatHandler) session(c *gin.Context) (*chat.Session, error) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		return nil, errorx.ErrNoIdentity
	}
	session, ok := h.manager.Get(identity.ID)
	if !ok {
		return nil, errorx.ErrNotConnected
	}
	return session, nil
}

func (h *ChatHandler) stateOf(session *chat.Session) respond.ChatStateRespond {
	identity := session.Identity()
	msgs := session.Messages()
	out := make([]respond.ChatMessageRespond, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, respond.ChatMessageRespond{
			MessageId:   m.MessageId,
			SenderId:    m.SenderId,
			RecipientId: m.RecipientId,
			Message:     m.Message,
			Timestamp:   chat.NormalizeTimestamp(m.Timestamp),
			DisplayTime: chat.DisplayTime(m.Timestamp, h.loc),
			IsLocal:     m.IsLocal,
		})
	}
	state := respond.ChatStateRespond{
		SessionId:     session.ID(),
		LocalId:       identity.ID,
		Role:          identity.Role,
		State:         session.State().String(),
		CounterpartId: session.CounterpartID(),
		Messages:      out,
	}
	if identity.Role == model.RoleAdmin {
		state.Roster = session.Roster()
	}
	return state
}
