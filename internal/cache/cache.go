package cache

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"
)

// KeyPrefix 答案缓存的键命名空间，清理操作只扫描该前缀
const KeyPrefix = "qa:"

// AnswerCache 答案缓存
// Get/Put/Invalidate 均以原始问题文本为入参，内部按指纹寻址
type AnswerCache interface {
	Get(ctx context.Context, question string) (string, bool, error)
	Put(ctx context.Context, question, answer string) error
	Invalidate(ctx context.Context, question string) error
	ClearAll(ctx context.Context) error
	Close() error
}

// Fingerprint 计算问题的归一化指纹
// 小写化并去除首尾空白后取 sha256 前 8 字节
func Fingerprint(question string) string {
	normalized := strings.ToLower(strings.TrimSpace(question))
	hash := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("%x", hash[:8])
}

// cacheKey 指纹对应的缓存键
func cacheKey(question string) string {
	return KeyPrefix + Fingerprint(question)
}

// entry 缓存值，保留原始问题便于排查
type entry struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}
