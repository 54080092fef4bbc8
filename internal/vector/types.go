package vector

import "context"

// Match 相似度检索命中项
type Match struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// Index 相似度索引
// Search 返回按分数降序排列的候选项；Upsert/Delete 以 QARecord 的 vector_id 寻址
type Index interface {
	Search(ctx context.Context, query string, topK int) ([]Match, error)
	Upsert(ctx context.Context, id, question, answer string) error
	Delete(ctx context.Context, id string) error
}

// Embedder 向量嵌入简化接口（避免循环依赖，便于测试替换）
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	GetModel() string
}
