package qa

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/eryajf/qabot/internal/cache"
	"github.com/eryajf/qabot/internal/model"
	"github.com/eryajf/qabot/internal/vector"
)

// fakeIndex 预置检索结果的相似度索引
type fakeIndex struct {
	mu        sync.Mutex
	matches   []vector.Match
	searchErr error
	upsertErr error
	upserts   []string
	deletes   []string
}

func (f *fakeIndex) Search(_ context.Context, _ string, topK int) ([]vector.Match, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if len(f.matches) > topK {
		return f.matches[:topK], nil
	}
	return f.matches, nil
}

func (f *fakeIndex) Upsert(_ context.Context, id, _, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserts = append(f.upserts, id)
	return nil
}

func (f *fakeIndex) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, id)
	return nil
}

// fakeGenerator 固定返回值的生成器
type fakeGenerator struct {
	mu     sync.Mutex
	answer string
	err    error
	calls  int
}

func (f *fakeGenerator) Generate(_ context.Context, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

func newTestStore(t *testing.T) *Store {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}

	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&model.QARecord{}, &model.QAEmbedding{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return NewStore(db)
}

func newTestPipeline(t *testing.T, index vector.Index, gen *fakeGenerator) (*Pipeline, *Store, cache.AnswerCache) {
	t.Helper()

	store := newTestStore(t)
	answerCache := cache.NewMemoryCache(64, time.Minute)
	t.Cleanup(func() { answerCache.Close() })

	p := NewPipeline(store, answerCache, index, gen, PipelineConfig{
		SimilarityThreshold: 0.8,
		TopK:                3,
	})
	return p, store, answerCache
}

func TestResolveGenerationThenCacheHit(t *testing.T) {
	gen := &fakeGenerator{answer: "生成的答案"}
	p, store, _ := newTestPipeline(t, &fakeIndex{}, gen)
	ctx := context.Background()

	// 第一次：空库走生成，建档并回填缓存
	result, err := p.Resolve(ctx, "什么是容器?", "user1")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if result.Source != SourceGenerated {
		t.Errorf("expected source generated, got %s", result.Source)
	}
	if result.Answer != "生成的答案" {
		t.Errorf("unexpected answer: %q", result.Answer)
	}
	if result.Confidence != 0.8 {
		t.Errorf("expected confidence 0.8, got %.2f", result.Confidence)
	}
	if result.QAID == "" {
		t.Fatal("expected qa_id on persisted generation")
	}

	record, err := store.GetByID(result.QAID)
	if err != nil {
		t.Fatalf("expected persisted record: %v", err)
	}
	versions, _ := model.DecodeVersions(record.Versions)
	if len(versions) != 1 || versions[0].Source != model.SourceGenerated {
		t.Errorf("expected single generated version, got %+v", versions)
	}

	// 第二次：同一问题（归一化等价）直接命中缓存，不再生成
	result2, err := p.Resolve(ctx, "  什么是容器?  ", "user2")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if result2.Source != SourceCache {
		t.Errorf("expected source cache on repeat, got %s", result2.Source)
	}
	if result2.Confidence != 1.0 {
		t.Errorf("expected confidence 1.0 on cache hit, got %.2f", result2.Confidence)
	}
	if gen.calls != 1 {
		t.Errorf("expected single generation call, got %d", gen.calls)
	}
}

func TestResolveSimilarityHit(t *testing.T) {
	gen := &fakeGenerator{answer: "不应被调用"}
	index := &fakeIndex{}
	p, store, _ := newTestPipeline(t, index, gen)
	ctx := context.Background()

	record, err := store.Create("如何重启服务", "执行 systemctl restart", model.AnswerVersion{
		Answer: "执行 systemctl restart", Source: model.SourceAdmin, Confidence: 1.0, CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	index.matches = []vector.Match{{ID: record.VectorID, Score: 0.92}}

	result, err := p.Resolve(ctx, "怎么重启服务", "user1")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if result.Source != SourceDatabase {
		t.Errorf("expected source database, got %s", result.Source)
	}
	if result.Answer != "执行 systemctl restart" {
		t.Errorf("unexpected answer: %q", result.Answer)
	}
	if result.Confidence != 0.92 {
		t.Errorf("expected confidence 0.92, got %.2f", result.Confidence)
	}
	if gen.calls != 0 {
		t.Errorf("expected no generation on similarity hit, got %d calls", gen.calls)
	}

	// 使用统计更新
	updated, _ := store.GetByID(record.ID)
	if updated.UsageCount != 1 {
		t.Errorf("expected usage_count 1, got %d", updated.UsageCount)
	}

	// 命中后回填缓存，重复提问走缓存层
	result2, _ := p.Resolve(ctx, "怎么重启服务", "user1")
	if result2.Source != SourceCache {
		t.Errorf("expected cache hit on repeat, got %s", result2.Source)
	}
	updated, _ = store.GetByID(record.ID)
	if updated.UsageCount != 1 {
		t.Errorf("expected no usage update on cache hit, got %d", updated.UsageCount)
	}
}

func TestResolveBelowThresholdFallsToGeneration(t *testing.T) {
	gen := &fakeGenerator{answer: "新生成"}
	index := &fakeIndex{matches: []vector.Match{{ID: "some-id", Score: 0.75}}}
	p, _, _ := newTestPipeline(t, index, gen)

	result, err := p.Resolve(context.Background(), "一个新问题", "user1")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if result.Source != SourceGenerated {
		t.Errorf("expected generation below threshold, got %s", result.Source)
	}
	if gen.calls != 1 {
		t.Errorf("expected one generation call, got %d", gen.calls)
	}
}

func TestResolveThresholdIsInclusive(t *testing.T) {
	gen := &fakeGenerator{answer: "不应被调用"}
	index := &fakeIndex{}
	p, store, _ := newTestPipeline(t, index, gen)

	record, err := store.Create("边界问题", "边界答案", model.AnswerVersion{
		Answer: "边界答案", Source: model.SourceAdmin, Confidence: 1.0, CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	index.matches = []vector.Match{{ID: record.VectorID, Score: 0.8}}

	result, err := p.Resolve(context.Background(), "恰好达标的问题", "user1")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if result.Source != SourceDatabase {
		t.Errorf("expected score == threshold to qualify, got %s", result.Source)
	}
}

func TestResolveIndexInconsistencyFallsThrough(t *testing.T) {
	// 索引命中但存储无记录，降级到生成而不是报错
	gen := &fakeGenerator{answer: "降级生成"}
	index := &fakeIndex{matches: []vector.Match{{ID: "orphan-id", Score: 0.95}}}
	p, _, _ := newTestPipeline(t, index, gen)

	result, err := p.Resolve(context.Background(), "孤儿索引问题", "user1")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if result.Source != SourceGenerated || result.Answer != "降级生成" {
		t.Errorf("expected generated fallback, got source=%s answer=%q", result.Source, result.Answer)
	}
}

func TestResolveSearchErrorFallsThrough(t *testing.T) {
	gen := &fakeGenerator{answer: "检索故障后的生成"}
	index := &fakeIndex{searchErr: errors.New("embedding service down")}
	p, _, _ := newTestPipeline(t, index, gen)

	result, err := p.Resolve(context.Background(), "检索故障问题", "user1")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if result.Source != SourceGenerated {
		t.Errorf("expected generation after search failure, got %s", result.Source)
	}
}

func TestResolveGenerationFailureReturnsFallback(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("llm unavailable")}
	p, store, answerCache := newTestPipeline(t, &fakeIndex{}, gen)
	ctx := context.Background()

	result, err := p.Resolve(ctx, "生成会失败的问题", "user1")
	if err != nil {
		t.Fatalf("Resolve should not surface generation errors: %v", err)
	}
	if result.Answer != FallbackAnswer {
		t.Errorf("expected fallback answer, got %q", result.Answer)
	}
	if result.Confidence != 0 {
		t.Errorf("expected confidence 0 for fallback, got %.2f", result.Confidence)
	}
	if result.QAID != "" {
		t.Error("fallback answer must not be persisted")
	}

	// 兜底回答既不落库也不缓存
	_, total, _ := store.List(1, 10, "", "")
	if total != 0 {
		t.Errorf("expected empty store, got %d records", total)
	}
	if _, hit, _ := answerCache.Get(ctx, "生成会失败的问题"); hit {
		t.Error("fallback answer must not be cached")
	}
}

func TestResolveConcurrentSameQuestion(t *testing.T) {
	// 并发同一新问题：锁收敛后最多一次生成，其余命中缓存
	gen := &fakeGenerator{answer: "并发生成"}
	p, _, _ := newTestPipeline(t, &fakeIndex{}, gen)

	var wg sync.WaitGroup
	results := make([]*AnswerResult, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := p.Resolve(context.Background(), "并发问题", "user")
			if err != nil {
				t.Errorf("Resolve failed: %v", err)
				return
			}
			results[i] = r
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		if r == nil || r.Answer != "并发生成" {
			t.Fatalf("expected all resolutions to return the generated answer, got %+v", r)
		}
	}
	if gen.calls != 1 {
		t.Errorf("expected lock to converge to 1 generation, got %d", gen.calls)
	}
}
