package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"mtl-refine-api/internal/application/glossary"
	"mtl-refine-api/internal/domain/repository"
	"mtl-refine-api/internal/interfaces/http/dto"
)

// GlossaryHandler 词汇表处理器
type GlossaryHandler struct {
	service *glossary.Service
}

// NewGlossaryHandler 创建词汇表处理器
func NewGlossaryHandler(service *glossary.Service) *GlossaryHandler {
	return &GlossaryHandler{service: service}
}

// CreateTerm 创建词条
func (h *GlossaryHandler) CreateTerm(c *gin.Context) {
	var req dto.CreateTermRequest
	if !bindJSON(c, &req) {
		return
	}

	term, err := h.service.Create(c.Request.Context(), req.NovelID, glossary.TermInput{
		OriginalTerm:  req.OriginalTerm,
		PreferredTerm: req.PreferredTerm,
		TermType:      req.TermType,
		Context:       req.Context,
	})
	if err != nil {
		dto.Failure(c, err)
		return
	}
	dto.Created(c, term)
}

// ListTerms 按条件列出词条
func (h *GlossaryHandler) ListTerms(c *gin.Context) {
	novelID, err := strconv.ParseInt(c.Query("novel_id"), 10, 64)
	if err != nil || novelID <= 0 {
		dto.BadRequest(c, "invalid novel_id")
		return
	}

	activeOnly := c.DefaultQuery("active_only", "true") != "false"
	filter := repository.GlossaryFilter{
		TermType:   c.Query("term_type"),
		ActiveOnly: activeOnly,
	}

	terms, err := h.service.List(c.Request.Context(), novelID, filter)
	if err != nil {
		dto.Failure(c, err)
		return
	}
	dto.Success(c, terms)
}

// GetTerm 获取词条详情
func (h *GlossaryHandler) GetTerm(c *gin.Context) {
	id, ok := requireID(c)
	if !ok {
		return
	}

	term, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		dto.Failure(c, err)
		return
	}
	dto.Success(c, term)
}

// UpdateTerm 更新词条
func (h *GlossaryHandler) UpdateTerm(c *gin.Context) {
	id, ok := requireID(c)
	if !ok {
		return
	}

	var req dto.UpdateTermRequest
	if !bindJSON(c, &req) {
		return
	}

	term, err := h.service.Update(c.Request.Context(), id, glossary.UpdateInput{
		PreferredTerm: req.PreferredTerm,
		TermType:      req.TermType,
		Context:       req.Context,
		Frequency:     req.Frequency,
		IsActive:      req.IsActive,
	})
	if err != nil {
		dto.Failure(c, err)
		return
	}
	dto.Success(c, term)
}

// ActivateTerm 激活词条
func (h *GlossaryHandler) ActivateTerm(c *gin.Context) {
	id, ok := requireID(c)
	if !ok {
		return
	}

	term, err := h.service.Activate(c.Request.Context(), id)
	if err != nil {
		dto.Failure(c, err)
		return
	}
	dto.Success(c, term)
}

// DeactivateTerm 停用词条，保留历史
func (h *GlossaryHandler) DeactivateTerm(c *gin.Context) {
	id, ok := requireID(c)
	if !ok {
		return
	}

	term, err := h.service.Deactivate(c.Request.Context(), id)
	if err != nil {
		dto.Failure(c, err)
		return
	}
	dto.Success(c, term)
}

// BulkImport 批量导入词条
func (h *GlossaryHandler) BulkImport(c *gin.Context) {
	var req dto.BulkImportRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.service.BulkImport(c.Request.Context(), req.NovelID, req.ToInputs())
	if err != nil {
		dto.Failure(c, err)
		return
	}

	dto.Success(c, dto.BulkImportResponse{
		Message:        "bulk import completed",
		CreatedCount:   result.CreatedCount,
		UpdatedCount:   result.UpdatedCount,
		TotalProcessed: result.TotalProcessed,
		Errors:         result.Errors,
	})
}

// Export 导出小说词汇表
func (h *GlossaryHandler) Export(c *gin.Context) {
	novelID, ok := requireNovelID(c)
	if !ok {
		return
	}

	result, err := h.service.Export(c.Request.Context(), novelID)
	if err != nil {
		dto.Failure(c, err)
		return
	}

	dto.Success(c, dto.GlossaryExportResponse{
		NovelTitle: result.NovelTitle,
		NovelID:    result.NovelID,
		ExportDate: result.ExportDate,
		TotalTerms: result.TotalTerms,
		Terms:      result.Terms,
	})
}

// TermTypes 统计各类型活跃词条数量
func (h *GlossaryHandler) TermTypes(c *gin.Context) {
	novelID, ok := requireNovelID(c)
	if !ok {
		return
	}

	counts, err := h.service.TermTypes(c.Request.Context(), novelID)
	if err != nil {
		dto.Failure(c, err)
		return
	}

	dto.Success(c, dto.TermTypesResponse{
		NovelID:   novelID,
		TermTypes: counts,
	})
}
