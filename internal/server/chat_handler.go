package server

import (
	"encoding/json"
	"net/http"

	"cnb.cool/zhiqiangwang/pkg/logx"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/eryajf/qabot/internal/qa"
)

// ChatHandler 问答入口 Handler
type ChatHandler struct {
	pipeline *qa.Pipeline
	hub      *Hub
	upgrader websocket.Upgrader
}

// NewChatHandler 创建问答 Handler
func NewChatHandler(pipeline *qa.Pipeline, hub *Hub) *ChatHandler {
	return &ChatHandler{
		pipeline: pipeline,
		hub:      hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// QuestionRequest 提问请求
type QuestionRequest struct {
	Question string `json:"question" binding:"required"`
	UserID   string `json:"user_id"`
}

// AskQuestion REST 提问入口
func (h *ChatHandler) AskQuestion(c *gin.Context) {
	var req QuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	result, err := h.pipeline.Resolve(c.Request.Context(), req.Question, req.UserID)
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}

	// 新生成的答案推送给管理员审核
	h.notifyIfGenerated(req.Question, result)

	success(c, result)
}

// wsMessage 长连接入站消息
type wsMessage struct {
	Type     string `json:"type"`
	Question string `json:"question"`
}

// WebSocket 长连接提问入口
// 管理员会话以 ?role=admin 接入，可接收 new_qa 带外通知
func (h *ChatHandler) WebSocket(c *gin.Context) {
	userID := c.Param("user_id")
	isAdmin := c.Query("role") == "admin"

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logx.Warn("Websocket upgrade failed: %v", err)
		return
	}

	h.hub.Register(conn, userID, isAdmin)
	defer func() {
		h.hub.Unregister(conn)
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			logx.Warn("Invalid websocket message from %s: %v", userID, err)
			continue
		}

		if msg.Type != "question" || msg.Question == "" {
			continue
		}

		result, err := h.pipeline.Resolve(c.Request.Context(), msg.Question, userID)
		if err != nil {
			logx.Error("Resolve failed for %s: %v", userID, err)
			continue
		}

		if err := h.hub.Send(conn, gin.H{
			"type": "answer",
			"data": result,
		}); err != nil {
			logx.Warn("Failed to send answer to %s: %v", userID, err)
			return
		}

		h.notifyIfGenerated(msg.Question, result)
	}
}

// notifyIfGenerated 新生成的问答推送给管理员会话
func (h *ChatHandler) notifyIfGenerated(question string, result *qa.AnswerResult) {
	if result.Source != qa.SourceGenerated || result.QAID == "" {
		return
	}

	h.hub.NotifyAdmins(gin.H{
		"type":     "new_qa",
		"qa_id":    result.QAID,
		"question": question,
		"answer":   result.Answer,
	})
}
