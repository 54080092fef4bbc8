package model

import (
	"encoding/json"
	"time"
)

// 答案来源标识
const (
	SourceAdmin     = "admin"     // 管理员编辑
	SourceGenerated = "generated" // LLM 生成
)

// QARecord 问答记录模型
type QARecord struct {
	ID            string    `gorm:"primaryKey;size:36" json:"id"` // UUID
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	Question      string    `json:"question" gorm:"type:text;not null"`
	QuestionHash  string    `json:"question_hash" gorm:"size:64;index"` // 问题的归一化哈希
	CurrentAnswer string    `json:"current_answer" gorm:"type:text"`
	Versions      string    `json:"versions" gorm:"type:text"` // JSON 数组，最新版本在前
	Category      string    `json:"category" gorm:"size:100;index"`
	Tags          string    `json:"tags" gorm:"type:text"` // JSON 数组 ["tag1", "tag2"]
	VectorID      string    `json:"vector_id" gorm:"size:36;index"` // 向量索引中的条目 ID
	UsageCount    int       `json:"usage_count" gorm:"default:0;index"`
	LastUsed      time.Time `json:"last_used"`
}

// TableName 指定表名
func (QARecord) TableName() string {
	return "qa_records"
}

// AnswerVersion 答案的历史版本
type AnswerVersion struct {
	Answer     string    `json:"answer"`
	Source     string    `json:"source"`     // admin / generated
	Confidence float64   `json:"confidence"` // [0,1]
	CreatedAt  time.Time `json:"created_at"`
}

// DecodeVersions 解析版本历史 JSON
func DecodeVersions(raw string) ([]AnswerVersion, error) {
	if raw == "" {
		return nil, nil
	}
	var versions []AnswerVersion
	if err := json.Unmarshal([]byte(raw), &versions); err != nil {
		return nil, err
	}
	return versions, nil
}

// EncodeVersions 序列化版本历史
func EncodeVersions(versions []AnswerVersion) (string, error) {
	data, err := json.Marshal(versions)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// QAEmbedding 向量索引条目模型
type QAEmbedding struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	VectorID       string    `json:"vector_id" gorm:"size:36;uniqueIndex;not null"` // 对应 QARecord.VectorID
	Question       string    `json:"question" gorm:"type:text;not null"`
	Answer         string    `json:"answer" gorm:"size:1000"` // 元数据摘要，全文存 qa_records
	Embedding      string    `json:"embedding" gorm:"type:text"` // JSON 格式的向量
	EmbeddingModel string    `json:"embedding_model" gorm:"size:64"`
}

// TableName 指定表名
func (QAEmbedding) TableName() string {
	return "qa_embeddings"
}
