package qa

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/eryajf/qabot/internal/cache"
	"github.com/eryajf/qabot/internal/model"
)

// Store 问答知识库存储
type Store struct {
	db *gorm.DB
}

// NewStore 创建知识库存储
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Create 创建问答记录
// ID 与 VectorID 在创建事务中分配，创建完成后 VectorID 不为空
func (s *Store) Create(question, answer string, version model.AnswerVersion) (*model.QARecord, error) {
	versionsJSON, err := model.EncodeVersions([]model.AnswerVersion{version})
	if err != nil {
		return nil, fmt.Errorf("failed to encode versions: %w", err)
	}

	id := uuid.NewString()
	now := time.Now()
	record := &model.QARecord{
		ID:            id,
		Question:      question,
		QuestionHash:  cache.Fingerprint(question),
		CurrentAnswer: answer,
		Versions:      versionsJSON,
		VectorID:      id,
		UsageCount:    0,
		LastUsed:      now,
	}

	if err := s.db.Create(record).Error; err != nil {
		return nil, fmt.Errorf("failed to create qa record: %w", err)
	}

	return record, nil
}

// GetByID 根据 ID 获取问答记录
func (s *Store) GetByID(id string) (*model.QARecord, error) {
	var record model.QARecord
	if err := s.db.First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get qa record: %w", err)
	}
	return &record, nil
}

// Touch 命中时更新使用统计，单行原子更新
func (s *Store) Touch(id string) error {
	return s.db.Model(&model.QARecord{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"usage_count": gorm.Expr("usage_count + 1"),
			"last_used":   time.Now(),
		}).Error
}

// UpdateAnswer 以单文档更新写入新的当前答案与版本历史
func (s *Store) UpdateAnswer(id, currentAnswer, versionsJSON string) error {
	result := s.db.Model(&model.QARecord{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"current_answer": currentAnswer,
			"versions":       versionsJSON,
			"updated_at":     time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update qa record: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete 删除问答记录
func (s *Store) Delete(id string) error {
	result := s.db.Delete(&model.QARecord{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete qa record: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// List 分页查询问答记录，支持分类过滤与关键词检索
func (s *Store) List(pageNum, pageSize int, category, search string) ([]*model.QARecord, int64, error) {
	if pageNum <= 0 {
		pageNum = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	query := s.db.Model(&model.QARecord{})
	if category != "" {
		query = query.Where("category = ?", category)
	}
	if search != "" {
		pattern := "%" + search + "%"
		query = query.Where("question LIKE ? OR current_answer LIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count qa records: %w", err)
	}

	var records []*model.QARecord
	if err := query.Order("updated_at DESC").
		Offset((pageNum - 1) * pageSize).
		Limit(pageSize).
		Find(&records).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list qa records: %w", err)
	}

	return records, total, nil
}

// Stats 获取知识库统计信息
func (s *Store) Stats() (map[string]any, error) {
	var totalCount int64
	if err := s.db.Model(&model.QARecord{}).Count(&totalCount).Error; err != nil {
		return nil, err
	}

	var totalUsage int64
	if err := s.db.Model(&model.QARecord{}).
		Select("COALESCE(SUM(usage_count), 0)").
		Scan(&totalUsage).Error; err != nil {
		return nil, err
	}

	// 待审核数：最新版本仍为生成来源的记录
	var pendingCount int64
	records, err := s.allRecordsLite()
	if err != nil {
		return nil, err
	}
	for _, r := range records {
		versions, err := model.DecodeVersions(r.Versions)
		if err != nil || len(versions) == 0 {
			continue
		}
		if versions[0].Source == model.SourceGenerated {
			pendingCount++
		}
	}

	// 使用量 Top 5
	var topUsed []*model.QARecord
	if err := s.db.Model(&model.QARecord{}).
		Order("usage_count DESC").
		Limit(5).
		Find(&topUsed).Error; err != nil {
		return nil, err
	}

	type topItem struct {
		ID         string `json:"id"`
		Question   string `json:"question"`
		UsageCount int    `json:"usage_count"`
	}
	top := make([]topItem, 0, len(topUsed))
	for _, r := range topUsed {
		top = append(top, topItem{ID: r.ID, Question: r.Question, UsageCount: r.UsageCount})
	}

	return map[string]any{
		"total_count":    totalCount,
		"total_usage":    totalUsage,
		"pending_review": pendingCount,
		"top_used":       top,
	}, nil
}

// allRecordsLite 加载统计所需的最小字段集
func (s *Store) allRecordsLite() ([]*model.QARecord, error) {
	var records []*model.QARecord
	if err := s.db.Model(&model.QARecord{}).
		Select("id", "versions").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to load qa records: %w", err)
	}
	return records, nil
}
