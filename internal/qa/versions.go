package qa

import (
	"context"
	"fmt"
	"time"

	"cnb.cool/zhiqiangwang/pkg/logx"

	"github.com/eryajf/qabot/internal/cache"
	"github.com/eryajf/qabot/internal/model"
	"github.com/eryajf/qabot/internal/vector"
)

// DefaultMaxVersions 版本历史默认上限
const DefaultMaxVersions = 10

// Manager 版本管理器
// 负责答案修订、审批与删除，并维护索引与缓存的联动失效
type Manager struct {
	store       *Store
	index       vector.Index
	cache       cache.AnswerCache
	maxVersions int
}

// NewManager 创建版本管理器
func NewManager(store *Store, index vector.Index, answerCache cache.AnswerCache, maxVersions int) *Manager {
	if maxVersions <= 0 {
		maxVersions = DefaultMaxVersions
	}

	return &Manager{
		store:       store,
		index:       index,
		cache:       answerCache,
		maxVersions: maxVersions,
	}
}

// ReviseAnswer 修订答案
// 新版本插入到历史头部，超限时从尾部淘汰最旧版本
func (m *Manager) ReviseAnswer(ctx context.Context, qaID, newAnswer, source string) error {
	record, err := m.store.GetByID(qaID)
	if err != nil {
		return err
	}

	confidence := 0.9
	if source == model.SourceAdmin {
		confidence = 1.0
	}

	versions, err := model.DecodeVersions(record.Versions)
	if err != nil {
		return fmt.Errorf("failed to decode versions for %s: %w", qaID, err)
	}

	versions = append([]model.AnswerVersion{{
		Answer:     newAnswer,
		Source:     source,
		Confidence: confidence,
		CreatedAt:  time.Now(),
	}}, versions...)

	if len(versions) > m.maxVersions {
		versions = versions[:m.maxVersions]
	}

	versionsJSON, err := model.EncodeVersions(versions)
	if err != nil {
		return fmt.Errorf("failed to encode versions: %w", err)
	}

	// 单文档原子更新
	if err := m.store.UpdateAnswer(qaID, newAnswer, versionsJSON); err != nil {
		return err
	}

	// 落库成功后无条件失效缓存，避免继续提供旧答案
	// 失效失败只降级为旧答案最多再存活一个 TTL
	if err := m.cache.Invalidate(ctx, record.Question); err != nil {
		logx.Warn("Failed to invalidate cache for %s: %v", qaID, err)
	}

	// 同步更新相似度索引，问题文本不变，答案元数据刷新
	if err := m.index.Upsert(ctx, record.VectorID, record.Question, newAnswer); err != nil {
		return fmt.Errorf("failed to update index for %s: %w", qaID, err)
	}

	logx.Info("✅ Answer revised: qa_id=%s, source=%s, versions=%d", qaID, source, len(versions))
	return nil
}

// ApproveQA 将最新的生成版本标记为管理员已审批
// 幂等：已审批的记录再次审批不产生新版本
func (m *Manager) ApproveQA(ctx context.Context, qaID string) error {
	record, err := m.store.GetByID(qaID)
	if err != nil {
		return err
	}

	versions, err := model.DecodeVersions(record.Versions)
	if err != nil {
		return fmt.Errorf("failed to decode versions for %s: %w", qaID, err)
	}

	if len(versions) > 0 &&
		versions[0].Source == model.SourceAdmin &&
		versions[0].Answer == record.CurrentAnswer {
		logx.Debug("QA %s already approved, skipping", qaID)
		return nil
	}

	return m.ReviseAnswer(ctx, qaID, record.CurrentAnswer, model.SourceAdmin)
}

// DeleteQA 删除问答记录及其索引与缓存条目
// 存储删除失败直接返回；索引/缓存清理失败记录日志后继续，接受孤儿条目
func (m *Manager) DeleteQA(ctx context.Context, qaID string) error {
	record, err := m.store.GetByID(qaID)
	if err != nil {
		return err
	}

	if err := m.store.Delete(qaID); err != nil {
		return err
	}

	if err := m.index.Delete(ctx, record.VectorID); err != nil {
		logx.Warn("Failed to delete index entry for %s: %v", qaID, err)
	}

	if err := m.cache.Invalidate(ctx, record.Question); err != nil {
		logx.Warn("Failed to invalidate cache for %s: %v", qaID, err)
	}

	logx.Info("✅ QA record deleted: qa_id=%s", qaID)
	return nil
}
