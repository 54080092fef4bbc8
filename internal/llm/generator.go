package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// ErrGeneration 上游生成失败，调用方以固定兜底回答恢复
var ErrGeneration = errors.New("generation failed")

// 固定的 system 指令，生成内容不做领域裁剪
const systemPrompt = "你是一个乐于助人的个人助理，请提供准确且友好的回答。"

// Generator 生成式回答提供方
type Generator interface {
	Generate(ctx context.Context, question string) (string, error)
}

// Config 生成模型配置
type Config struct {
	Model     string
	APIKey    string
	BaseURL   string
	Timeout   time.Duration // 单次调用超时
	MaxTokens int           // 输出长度上限
}

// OpenAIGenerator 基于 Eino ChatModel 的生成实现（OpenAI 兼容）
type OpenAIGenerator struct {
	chatModel model.ChatModel
	timeout   time.Duration
}

// NewOpenAIGenerator 创建生成客户端
func NewOpenAIGenerator(cfg *Config) (*OpenAIGenerator, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 500
	}

	temperature := float32(0.7)
	chatModel, err := openai.NewChatModel(context.Background(), &openai.ChatModelConfig{
		Model:       cfg.Model,
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		MaxTokens:   &cfg.MaxTokens,
		Temperature: &temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	return &OpenAIGenerator{
		chatModel: chatModel,
		timeout:   cfg.Timeout,
	}, nil
}

// Generate 生成回答，任何上游故障（含超时）均包装为 ErrGeneration
func (g *OpenAIGenerator) Generate(ctx context.Context, question string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	messages := []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(question),
	}

	resp, err := g.chatModel.Generate(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	if resp == nil || resp.Content == "" {
		return "", fmt.Errorf("%w: empty response", ErrGeneration)
	}

	return resp.Content, nil
}
