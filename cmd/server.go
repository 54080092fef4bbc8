package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cnb.cool/zhiqiangwang/pkg/logx"
	"github.com/spf13/cobra"

	"github.com/eryajf/qabot/internal/cache"
	"github.com/eryajf/qabot/internal/database"
	"github.com/eryajf/qabot/internal/llm"
	"github.com/eryajf/qabot/internal/qa"
	"github.com/eryajf/qabot/internal/server"
	"github.com/eryajf/qabot/internal/vector"
)

// serverCmd 启动 HTTP 服务
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "启动问答服务",
	Long:  `启动 HTTP 问答服务，提供问答入口、WebSocket 长连接与知识库管理接口。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}

func runServer() error {
	// 1. 初始化数据库
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close(db)

	// 2. 初始化答案缓存
	ttl := time.Duration(cfg.Cache.TTL) * time.Second

	var answerCache cache.AnswerCache
	var redisCache *cache.RedisCache

	switch cfg.Cache.Type {
	case "redis":
		addr := fmt.Sprintf("%s:%d", cfg.Cache.Redis.Host, cfg.Cache.Redis.Port)
		redisCache, err = cache.NewRedisCache(addr, cfg.Cache.Redis.Password, cfg.Cache.Redis.DB, ttl)
		if err != nil {
			return fmt.Errorf("failed to connect redis: %w", err)
		}
		answerCache = redisCache
	default:
		answerCache = cache.NewMemoryCache(cfg.Cache.Size, ttl)
	}
	defer answerCache.Close()

	// 3. 初始化 Embedding 服务，Redis 模式下复用连接缓存向量结果
	var embCache vector.EmbeddingCache
	if redisCache != nil {
		embCache = redisCache
	}

	embedder, err := vector.NewEmbeddingService(&vector.EmbeddingConfig{
		APIKey:  cfg.Embedding.APIKey,
		BaseURL: cfg.Embedding.BaseURL,
		Model:   cfg.Embedding.Model,
	}, embCache)
	if err != nil {
		return fmt.Errorf("failed to create embedding service: %w", err)
	}

	index := vector.NewStoreIndex(db, embedder)

	// 4. 初始化生成模型
	generator, err := llm.NewOpenAIGenerator(&llm.Config{
		Model:     cfg.LLM.Model,
		APIKey:    cfg.LLM.APIKey,
		BaseURL:   cfg.LLM.BaseURL,
		Timeout:   time.Duration(cfg.LLM.Timeout) * time.Second,
		MaxTokens: cfg.LLM.MaxTokens,
	})
	if err != nil {
		return fmt.Errorf("failed to create generator: %w", err)
	}

	// 5. 组装核心问答管线与版本管理器
	store := qa.NewStore(db)
	pipeline := qa.NewPipeline(store, answerCache, index, generator, qa.PipelineConfig{
		SimilarityThreshold: cfg.Vector.SimilarityThreshold,
		TopK:                cfg.Vector.TopK,
	})
	manager := qa.NewManager(store, index, answerCache, cfg.QA.MaxVersions)

	// 6. 组装 HTTP 服务
	hub := server.NewHub()
	chatHandler := server.NewChatHandler(pipeline, hub)
	adminHandler := server.NewAdminHandler(store, manager, answerCache)
	httpServer := server.NewHTTPServer(cfg, chatHandler, adminHandler)

	// 7. 启动并等待退出信号
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server exited: %w", err)
	case sig := <-quit:
		logx.Info("Received signal %s, shutting down", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Stop(ctx); err != nil {
		return fmt.Errorf("failed to stop http server: %w", err)
	}

	logx.Info("✅ Server stopped gracefully")
	return nil
}
