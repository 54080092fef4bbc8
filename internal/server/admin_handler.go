package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/eryajf/qabot/internal/cache"
	"github.com/eryajf/qabot/internal/model"
	"github.com/eryajf/qabot/internal/qa"
)

// AdminHandler 管理接口 Handler
// 均为对核心操作的薄透传
type AdminHandler struct {
	store   *qa.Store
	manager *qa.Manager
	cache   cache.AnswerCache
}

// NewAdminHandler 创建管理 Handler
func NewAdminHandler(store *qa.Store, manager *qa.Manager, answerCache cache.AnswerCache) *AdminHandler {
	return &AdminHandler{
		store:   store,
		manager: manager,
		cache:   answerCache,
	}
}

// qaListItem 列表项视图，不携带完整版本历史
type qaListItem struct {
	ID            string `json:"id"`
	Question      string `json:"question"`
	CurrentAnswer string `json:"current_answer"`
	Category      string `json:"category"`
	UsageCount    int    `json:"usage_count"`
	LastUsed      string `json:"last_used"`
	UpdatedAt     string `json:"updated_at"`
}

// qaDetail 详情视图，携带解析后的版本历史
type qaDetail struct {
	*model.QARecord
	VersionList []model.AnswerVersion `json:"version_list"`
}

// ListQA 分页查询问答记录
func (h *AdminHandler) ListQA(c *gin.Context) {
	pageNum, _ := strconv.Atoi(c.DefaultQuery("page_num", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	category := c.Query("category")
	search := c.Query("search")

	// 与存储层保持同一套分页约束，避免 totalPage 计算除零
	if pageNum <= 0 {
		pageNum = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	records, total, err := h.store.List(pageNum, pageSize, category, search)
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}

	items := make([]qaListItem, 0, len(records))
	for _, r := range records {
		items = append(items, qaListItem{
			ID:            r.ID,
			Question:      r.Question,
			CurrentAnswer: r.CurrentAnswer,
			Category:      r.Category,
			UsageCount:    r.UsageCount,
			LastUsed:      r.LastUsed.Format("2006-01-02 15:04:05"),
			UpdatedAt:     r.UpdatedAt.Format("2006-01-02 15:04:05"),
		})
	}

	totalPage := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPage++
	}

	success(c, model.ListResponse{
		Items: items,
		PageInfo: &model.PageInfo{
			PageNum:   pageNum,
			PageSize:  pageSize,
			Total:     total,
			TotalPage: totalPage,
		},
	})
}

// GetQA 获取单条记录及完整版本历史
func (h *AdminHandler) GetQA(c *gin.Context) {
	record, err := h.store.GetByID(c.Param("id"))
	if err != nil {
		if errors.Is(err, qa.ErrNotFound) {
			fail(c, http.StatusNotFound, "QA not found")
			return
		}
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}

	versions, err := model.DecodeVersions(record.Versions)
	if err != nil {
		fail(c, http.StatusInternalServerError, "failed to decode versions: "+err.Error())
		return
	}

	success(c, qaDetail{
		QARecord:    record,
		VersionList: versions,
	})
}

// ReviseRequest 答案修订请求
type ReviseRequest struct {
	NewAnswer string `json:"new_answer" binding:"required"`
}

// ReviseAnswer 修订答案（管理员）
func (h *AdminHandler) ReviseAnswer(c *gin.Context) {
	var req ReviseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	err := h.manager.ReviseAnswer(c.Request.Context(), c.Param("id"), req.NewAnswer, model.SourceAdmin)
	if err != nil {
		if errors.Is(err, qa.ErrNotFound) {
			fail(c, http.StatusNotFound, "QA not found")
			return
		}
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}

	success(c, gin.H{"message": "Answer updated"})
}

// DeleteQA 删除问答记录
func (h *AdminHandler) DeleteQA(c *gin.Context) {
	err := h.manager.DeleteQA(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, qa.ErrNotFound) {
			fail(c, http.StatusNotFound, "QA not found")
			return
		}
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}

	success(c, gin.H{"message": "QA deleted"})
}

// ApproveQA 审批生成的答案
func (h *AdminHandler) ApproveQA(c *gin.Context) {
	err := h.manager.ApproveQA(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, qa.ErrNotFound) {
			fail(c, http.StatusNotFound, "QA not found")
			return
		}
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}

	success(c, gin.H{"message": "QA approved"})
}

// GetStats 获取统计信息
func (h *AdminHandler) GetStats(c *gin.Context) {
	stats, err := h.store.Stats()
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}

	success(c, stats)
}

// ClearCache 清空答案缓存
func (h *AdminHandler) ClearCache(c *gin.Context) {
	if err := h.cache.ClearAll(c.Request.Context()); err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}

	success(c, gin.H{"message": "Cache cleared"})
}
