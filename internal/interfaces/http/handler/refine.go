package handler

import (
	"github.com/gin-gonic/gin"

	"mtl-refine-api/internal/application/analysis"
	"mtl-refine-api/internal/application/refine"
	"mtl-refine-api/internal/domain/entity"
	"mtl-refine-api/internal/interfaces/http/dto"
)

// RefineHandler 润色与一致性分析处理器
type RefineHandler struct {
	service      *refine.Service
	orchestrator *refine.Orchestrator
	analyzer     *analysis.Analyzer
}

// NewRefineHandler 创建润色处理器
func NewRefineHandler(
	service *refine.Service,
	orchestrator *refine.Orchestrator,
	analyzer *analysis.Analyzer,
) *RefineHandler {
	return &RefineHandler{
		service:      service,
		orchestrator: orchestrator,
		analyzer:     analyzer,
	}
}

// RefineText 润色一段文本
func (h *RefineHandler) RefineText(c *gin.Context) {
	var req dto.RefineTextRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.service.RefineText(c.Request.Context(), req.Text, req.UseGlossary, req.NovelID)
	if err != nil {
		dto.Failure(c, err)
		return
	}
	dto.Success(c, result)
}

// RefineChapter 润色单个章节并持久化
func (h *RefineHandler) RefineChapter(c *gin.Context) {
	var req dto.RefineChapterRequest
	if !bindJSON(c, &req) {
		return
	}

	outcome, err := h.service.RefineChapter(c.Request.Context(),
		req.ChapterID, req.UseGlossary, entity.ProcessingTypeRefinement)
	if err != nil {
		dto.Failure(c, err)
		return
	}
	dto.Success(c, outcome)
}

// BatchRefine 受理批量润色请求，异步执行
func (h *RefineHandler) BatchRefine(c *gin.Context) {
	var req dto.BatchRefineRequest
	if !bindJSON(c, &req) {
		return
	}

	job, err := h.orchestrator.Enqueue(c.Request.Context(),
		req.NovelID, req.ChapterIDs, req.UseGlossary)
	if err != nil {
		dto.Failure(c, err)
		return
	}

	dto.Accepted(c, dto.BatchAckResponse{
		JobID:         job.ID,
		NovelID:       job.NovelID,
		Status:        string(job.Status),
		TotalChapters: job.TotalChapters,
		Message:       "batch refinement accepted",
	})
}

// Status 查询小说处理进度
func (h *RefineHandler) Status(c *gin.Context) {
	novelID, ok := requireNovelID(c)
	if !ok {
		return
	}

	status, err := h.orchestrator.Status(c.Request.Context(), novelID)
	if err != nil {
		dto.Failure(c, err)
		return
	}
	dto.Success(c, status)
}

// Context 跨章节一致性分析
func (h *RefineHandler) Context(c *gin.Context) {
	novelID, ok := requireNovelID(c)
	if !ok {
		return
	}

	result, err := h.analyzer.Analyze(c.Request.Context(), novelID)
	if err != nil {
		dto.Failure(c, err)
		return
	}
	dto.Success(c, result)
}

// GetJob 查询批量任务
func (h *RefineHandler) GetJob(c *gin.Context) {
	jobID, ok := requireJobID(c)
	if !ok {
		return
	}

	job, err := h.orchestrator.GetJob(c.Request.Context(), jobID)
	if err != nil {
		dto.Failure(c, err)
		return
	}
	dto.Success(c, job)
}

// CancelJob 请求取消批量任务
func (h *RefineHandler) CancelJob(c *gin.Context) {
	jobID, ok := requireJobID(c)
	if !ok {
		return
	}

	job, err := h.orchestrator.Cancel(c.Request.Context(), jobID)
	if err != nil {
		dto.Failure(c, err)
		return
	}
	dto.Success(c, job)
}
