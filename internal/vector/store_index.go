package vector

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"cnb.cool/zhiqiangwang/pkg/logx"
	"gorm.io/gorm"

	"github.com/eryajf/qabot/internal/model"
)

// 索引元数据中答案摘要的长度上限，全文只存 qa_records
const maxAnswerMetadata = 1000

// StoreIndex 基于数据库的相似度索引
// 向量以 JSON 存储，检索时全量扫描计算余弦相似度
type StoreIndex struct {
	db       *gorm.DB
	embedder Embedder
}

// NewStoreIndex 创建相似度索引
func NewStoreIndex(db *gorm.DB, embedder Embedder) *StoreIndex {
	return &StoreIndex{
		db:       db,
		embedder: embedder,
	}
}

// Search 检索与 query 最相似的条目，按分数降序返回 topK 个
func (s *StoreIndex) Search(ctx context.Context, query string, topK int) ([]Match, error) {
	if topK <= 0 {
		topK = 3
	}

	// 1. 生成查询向量
	queryVector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to generate query embedding: %w", err)
	}

	// 2. 加载所有有 embedding 的条目
	var entries []model.QAEmbedding
	if err := s.db.Where("embedding != ''").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to load index entries: %w", err)
	}

	if len(entries) == 0 {
		return []Match{}, nil
	}

	// 3. 计算相似度
	var matches []Match
	for i := range entries {
		var vec []float64
		if err := json.Unmarshal([]byte(entries[i].Embedding), &vec); err != nil {
			logx.Warn("Failed to parse embedding for entry %s: %v", entries[i].VectorID, err)
			continue
		}

		// 模型升级后维度可能不一致，跳过
		if len(vec) != len(queryVector) {
			continue
		}

		matches = append(matches, Match{
			ID:    entries[i].VectorID,
			Score: cosineSimilarity(queryVector, vec),
		})
	}

	// 4. 按相似度降序排序，取前 topK 个
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if len(matches) > topK {
		matches = matches[:topK]
	}

	return matches, nil
}

// Upsert 写入或更新索引条目
func (s *StoreIndex) Upsert(ctx context.Context, id, question, answer string) error {
	// 问题文本承载语义，以问题生成向量
	vec, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return fmt.Errorf("failed to generate embedding: %w", err)
	}

	embBytes, err := json.Marshal(vec)
	if err != nil {
		return fmt.Errorf("failed to marshal embedding: %w", err)
	}

	// 按字符截断，避免切断多字节字符
	if runes := []rune(answer); len(runes) > maxAnswerMetadata {
		answer = string(runes[:maxAnswerMetadata])
	}

	e := &model.QAEmbedding{
		VectorID:       id,
		Question:       question,
		Answer:         answer,
		Embedding:      string(embBytes),
		EmbeddingModel: s.embedder.GetModel(),
	}

	// Upsert
	if err := s.db.Where("vector_id = ?", id).
		Assign(model.QAEmbedding{
			Question:       question,
			Answer:         answer,
			Embedding:      string(embBytes),
			EmbeddingModel: s.embedder.GetModel(),
		}).
		FirstOrCreate(e).Error; err != nil {
		return fmt.Errorf("failed to upsert index entry: %w", err)
	}

	logx.Debug("Index entry upserted: id=%s, dim=%d", id, len(vec))
	return nil
}

// Delete 删除索引条目，不存在时为空操作
func (s *StoreIndex) Delete(ctx context.Context, id string) error {
	if err := s.db.Where("vector_id = ?", id).
		Delete(&model.QAEmbedding{}).Error; err != nil {
		return fmt.Errorf("failed to delete index entry: %w", err)
	}
	return nil
}

// cosineSimilarity 计算两个向量的余弦相似度
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
