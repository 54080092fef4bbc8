package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"cnb.cool/zhiqiangwang/pkg/logx"
	"github.com/gin-gonic/gin"

	"github.com/eryajf/qabot/internal/config"
)

// HTTPServer 基于 Gin 的 HTTP 服务器
type HTTPServer struct {
	config *config.Config
	engine *gin.Engine
	server *http.Server
	chat   *ChatHandler
	admin  *AdminHandler
}

// NewHTTPServer 创建 HTTP 服务器
func NewHTTPServer(cfg *config.Config, chat *ChatHandler, admin *AdminHandler) *HTTPServer {
	// 设置 Gin 模式
	if cfg.Server.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &HTTPServer{
		config: cfg,
		engine: gin.New(),
		chat:   chat,
		admin:  admin,
	}

	// 注册中间件
	s.registerMiddlewares()

	// 注册路由
	s.registerRoutes()

	return s
}

// registerMiddlewares 注册中间件
func (s *HTTPServer) registerMiddlewares() {
	// 恢复中间件 - 从 panic 恢复
	s.engine.Use(gin.Recovery())

	// 自定义日志中间件
	s.engine.Use(s.loggingMiddleware())

	// CORS 中间件
	s.engine.Use(s.corsMiddleware())
}

// loggingMiddleware 自定义日志中间件
func (s *HTTPServer) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()

		logx.Info("HTTP request, method %s, path %s, status %d, duration %s",
			method, path, status, duration)
	}
}

// corsMiddleware CORS 中间件
func (s *HTTPServer) corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// authMiddleware 管理接口 Token 鉴权中间件
func (s *HTTPServer) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.config.Auth.Enabled {
			c.Next()
			return
		}

		token := c.GetHeader("Authorization")
		if len(token) > 7 && token[:7] == "Bearer " {
			token = token[7:]
		}

		for _, t := range s.config.Auth.Tokens {
			if t != "" && token == t {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
			Code:    401,
			Message: "Unauthorized",
		})
	}
}

// registerRoutes 注册路由
func (s *HTTPServer) registerRoutes() {
	v1 := s.engine.Group("/api/v1")
	{
		// 健康检查
		v1.GET("/health", s.handleHealth)

		// 问答路由
		chat := v1.Group("/chat")
		{
			chat.POST("/question", s.chat.AskQuestion)
			chat.GET("/ws/:user_id", s.chat.WebSocket)
		}

		// 管理路由
		admin := v1.Group("/admin", s.authMiddleware())
		{
			admin.GET("/qa/list", s.admin.ListQA)
			admin.GET("/qa/:id", s.admin.GetQA)
			admin.PUT("/qa/:id/answer", s.admin.ReviseAnswer)
			admin.DELETE("/qa/:id", s.admin.DeleteQA)
			admin.POST("/qa/:id/approve", s.admin.ApproveQA)
			admin.GET("/stats", s.admin.GetStats)
			admin.POST("/cache/clear", s.admin.ClearCache)
		}
	}
}

// Start 启动 HTTP 服务器
func (s *HTTPServer) Start() error {
	addr := fmt.Sprintf("0.0.0.0:%d", s.config.Server.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.engine,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	logx.Info("🛜 Starting HTTP Server (Gin), Addr %s", addr)
	return s.server.ListenAndServe()
}

// Stop 停止 HTTP 服务器
func (s *HTTPServer) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// Engine 暴露底层 Engine（测试用）
func (s *HTTPServer) Engine() *gin.Engine {
	return s.engine
}

// Response 统一响应结构
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// success 返回成功响应
func success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{
		Code:    200,
		Message: "Success",
		Data:    data,
	})
}

// fail 返回错误响应
func fail(c *gin.Context, code int, message string) {
	c.JSON(code, Response{
		Code:    code,
		Message: message,
	})
}

// handleHealth 健康检查
func (s *HTTPServer) handleHealth(c *gin.Context) {
	success(c, gin.H{
		"status": "healthy",
	})
}
