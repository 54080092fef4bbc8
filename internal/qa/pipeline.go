package qa

import (
	"context"
	"time"

	"cnb.cool/zhiqiangwang/pkg/logx"

	"github.com/eryajf/qabot/internal/cache"
	"github.com/eryajf/qabot/internal/llm"
	"github.com/eryajf/qabot/internal/model"
	"github.com/eryajf/qabot/internal/vector"
)

// 回答来源
const (
	SourceCache     = "cache"
	SourceDatabase  = "database"
	SourceGenerated = "generated"
)

// 生成来源答案的默认置信度
const generatedConfidence = 0.8

// FallbackAnswer 生成失败时的固定兜底回答
const FallbackAnswer = "抱歉，生成回答时出现了问题，请稍后再试。"

// 指纹锁获取超时，超时后放弃去重继续执行（可用性优先）
const lockTimeout = 2 * time.Second

// AnswerResult 问答解析结果
type AnswerResult struct {
	Answer     string  `json:"answer"`
	Source     string  `json:"source"` // cache / database / generated
	Confidence float64 `json:"confidence"`
	QAID       string  `json:"qa_id,omitempty"`
}

// PipelineConfig 解析管线配置
type PipelineConfig struct {
	SimilarityThreshold float64
	TopK                int
}

// Pipeline 问答解析管线
// 按 缓存 → 相似度检索 → 生成兜底 的顺序逐级解析
type Pipeline struct {
	store     *Store
	cache     cache.AnswerCache
	index     vector.Index
	generator llm.Generator
	cfg       PipelineConfig
	locks     *keyedLocks
}

// NewPipeline 创建解析管线
func NewPipeline(store *Store, answerCache cache.AnswerCache, index vector.Index, generator llm.Generator, cfg PipelineConfig) *Pipeline {
	if cfg.SimilarityThreshold <= 0 {
		cfg.SimilarityThreshold = 0.8
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 3
	}

	return &Pipeline{
		store:     store,
		cache:     answerCache,
		index:     index,
		generator: generator,
		cfg:       cfg,
		locks:     newKeyedLocks(),
	}
}

// Resolve 解析一次提问
// 正常提问不向调用方暴露硬失败，最坏情况返回固定兜底回答
func (p *Pipeline) Resolve(ctx context.Context, question, requester string) (*AnswerResult, error) {
	// 1. 精确缓存，命中时不产生任何存储副作用
	if answer, hit := p.lookupCache(ctx, question); hit {
		return &AnswerResult{
			Answer:     answer,
			Source:     SourceCache,
			Confidence: 1.0,
		}, nil
	}

	// 同一新问题的并发生成会各自建档，按指纹加咨询锁收敛
	// 获取超时则不阻塞请求，接受重复建档
	fp := cache.Fingerprint(question)
	if p.locks.TryLock(fp, lockTimeout) {
		defer p.locks.Unlock(fp)

		// 等锁期间可能已有同问题完成解析，重查一次缓存
		if answer, hit := p.lookupCache(ctx, question); hit {
			return &AnswerResult{
				Answer:     answer,
				Source:     SourceCache,
				Confidence: 1.0,
			}, nil
		}
	}

	// 2. 相似度检索
	if result := p.resolveBySimilarity(ctx, question); result != nil {
		return result, nil
	}

	// 3. 生成兜底
	return p.resolveByGeneration(ctx, question), nil
}

// lookupCache 查询答案缓存，故障按未命中处理
func (p *Pipeline) lookupCache(ctx context.Context, question string) (string, bool) {
	answer, hit, err := p.cache.Get(ctx, question)
	if err != nil {
		logx.Warn("Answer cache lookup failed: %v", err)
		return "", false
	}
	return answer, hit
}

// resolveBySimilarity 相似度检索解析，无法给出库内答案时返回 nil
func (p *Pipeline) resolveBySimilarity(ctx context.Context, question string) *AnswerResult {
	matches, err := p.index.Search(ctx, question, p.cfg.TopK)
	if err != nil {
		logx.Warn("Similarity search failed, falling through to generation: %v", err)
		return nil
	}

	// 空候选等同于无达标候选
	if len(matches) == 0 || matches[0].Score < p.cfg.SimilarityThreshold {
		return nil
	}

	best := matches[0]
	record, err := p.store.GetByID(best.ID)
	if err != nil {
		// 索引与存储不一致，降级到生成而不是失败
		logx.Warn("Index entry %s has no backing record, falling through: %v", best.ID, err)
		return nil
	}

	// 更新使用统计
	if err := p.store.Touch(record.ID); err != nil {
		logx.Warn("Failed to update usage stats for %s: %v", record.ID, err)
	}

	// 回填缓存，后续同问题直接命中
	if err := p.cache.Put(ctx, question, record.CurrentAnswer); err != nil {
		logx.Warn("Failed to cache answer: %v", err)
	}

	logx.Info("✅ Similarity hit: score=%.3f, qa_id=%s", best.Score, record.ID)
	return &AnswerResult{
		Answer:     record.CurrentAnswer,
		Source:     SourceDatabase,
		Confidence: best.Score,
		QAID:       record.ID,
	}
}

// resolveByGeneration 生成新答案并落库
func (p *Pipeline) resolveByGeneration(ctx context.Context, question string) *AnswerResult {
	answer, err := p.generator.Generate(ctx, question)
	if err != nil {
		// 生成失败返回固定兜底回答，不落库也不缓存错误内容
		logx.Error("Generation failed: %v", err)
		return &AnswerResult{
			Answer:     FallbackAnswer,
			Source:     SourceGenerated,
			Confidence: 0,
		}
	}

	version := model.AnswerVersion{
		Answer:     answer,
		Source:     model.SourceGenerated,
		Confidence: generatedConfidence,
		CreatedAt:  time.Now(),
	}

	record, err := p.store.Create(question, answer, version)
	if err != nil {
		// 落库失败不影响本次回答，只是无法沉淀
		logx.Error("Failed to persist generated answer: %v", err)
		return &AnswerResult{
			Answer:     answer,
			Source:     SourceGenerated,
			Confidence: generatedConfidence,
		}
	}

	// 同步写入相似度索引，保证返回前可检索
	if err := p.index.Upsert(ctx, record.VectorID, question, answer); err != nil {
		logx.Warn("Failed to upsert index entry for %s: %v", record.ID, err)
	}

	if err := p.cache.Put(ctx, question, answer); err != nil {
		logx.Warn("Failed to cache generated answer: %v", err)
	}

	logx.Info("✅ New QA record created from generation: qa_id=%s", record.ID)
	return &AnswerResult{
		Answer:     answer,
		Source:     SourceGenerated,
		Confidence: generatedConfidence,
		QAID:       record.ID,
	}
}
