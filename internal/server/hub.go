package server

import (
	"sync"

	"cnb.cool/zhiqiangwang/pkg/logx"
	"github.com/gorilla/websocket"
)

// Hub 长连接会话中心
// 维护在线会话并向管理员会话推送带外通知
type Hub struct {
	mu       sync.RWMutex
	sessions map[*websocket.Conn]*session
}

// session 单个长连接会话
type session struct {
	userID  string
	isAdmin bool
	mu      sync.Mutex // websocket 写并发保护
}

// NewHub 创建会话中心
func NewHub() *Hub {
	return &Hub{
		sessions: make(map[*websocket.Conn]*session),
	}
}

// Register 注册会话
func (h *Hub) Register(conn *websocket.Conn, userID string, isAdmin bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.sessions[conn] = &session{userID: userID, isAdmin: isAdmin}
	logx.Info("Websocket session connected: user=%s, admin=%v", userID, isAdmin)
}

// Unregister 注销会话
func (h *Hub) Unregister(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if sess, ok := h.sessions[conn]; ok {
		delete(h.sessions, conn)
		logx.Info("Websocket session disconnected: user=%s", sess.userID)
	}
}

// Send 向单个会话写入 JSON 消息
func (h *Hub) Send(conn *websocket.Conn, payload any) error {
	h.mu.RLock()
	sess, ok := h.sessions[conn]
	h.mu.RUnlock()

	if !ok {
		return nil
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return conn.WriteJSON(payload)
}

// NotifyAdmins 向全部管理员会话推送通知，单个会话失败不影响其他会话
func (h *Hub) NotifyAdmins(payload any) {
	h.mu.RLock()
	admins := make([]*websocket.Conn, 0)
	for conn, sess := range h.sessions {
		if sess.isAdmin {
			admins = append(admins, conn)
		}
	}
	h.mu.RUnlock()

	for _, conn := range admins {
		if err := h.Send(conn, payload); err != nil {
			logx.Warn("Failed to notify admin session: %v", err)
		}
	}
}
