package handler

import (
	"github.com/gin-gonic/gin"

	"mtl-refine-api/internal/domain/entity"
	"mtl-refine-api/internal/domain/repository"
	"mtl-refine-api/internal/interfaces/http/dto"
	"mtl-refine-api/pkg/errors"
	"mtl-refine-api/pkg/logger"
)

// NovelHandler 小说与章节管理处理器
type NovelHandler struct {
	novelRepo   repository.NovelRepository
	chapterRepo repository.ChapterRepository
	logRepo     repository.ProcessingLogRepository
}

// NewNovelHandler 创建小说处理器
func NewNovelHandler(
	novelRepo repository.NovelRepository,
	chapterRepo repository.ChapterRepository,
	logRepo repository.ProcessingLogRepository,
) *NovelHandler {
	return &NovelHandler{
		novelRepo:   novelRepo,
		chapterRepo: chapterRepo,
		logRepo:     logRepo,
	}
}

// Create 创建小说
func (h *NovelHandler) Create(c *gin.Context) {
	var req dto.CreateNovelRequest
	if !bindJSON(c, &req) {
		return
	}

	novel := entity.NewNovel(req.Title, req.SourceURL)
	novel.Description = req.Description
	novel.Author = req.Author

	if err := h.novelRepo.Create(c.Request.Context(), novel); err != nil {
		dto.Failure(c, err)
		return
	}

	logger.Info(c.Request.Context(), "novel created", "novel_id", novel.ID, "title", novel.Title)
	dto.Created(c, novel)
}

// List 分页列出小说
func (h *NovelHandler) List(c *gin.Context) {
	page := dto.BindPage(c)

	result, err := h.novelRepo.List(c.Request.Context(),
		repository.NewPagination(page.Page, page.PageSize))
	if err != nil {
		dto.Failure(c, err)
		return
	}

	dto.SuccessWithPage(c, result.Items,
		dto.NewPageMeta(page.Page, page.PageSize, int(result.Total)))
}

// Get 获取小说详情
func (h *NovelHandler) Get(c *gin.Context) {
	id, ok := requireID(c)
	if !ok {
		return
	}

	novel, err := h.novelRepo.GetByID(c.Request.Context(), id)
	if err != nil {
		dto.Failure(c, err)
		return
	}
	if novel == nil {
		dto.Failure(c, errors.ErrNovelNotFound)
		return
	}
	dto.Success(c, novel)
}

// Update 更新小说
func (h *NovelHandler) Update(c *gin.Context) {
	id, ok := requireID(c)
	if !ok {
		return
	}

	var req dto.UpdateNovelRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	novel, err := h.novelRepo.GetByID(ctx, id)
	if err != nil {
		dto.Failure(c, err)
		return
	}
	if novel == nil {
		dto.Failure(c, errors.ErrNovelNotFound)
		return
	}

	if req.Title != nil {
		novel.Title = *req.Title
	}
	if req.Description != nil {
		novel.Description = *req.Description
	}
	if req.Author != nil {
		novel.Author = *req.Author
	}
	if req.Status != nil {
		novel.Status = entity.NovelStatus(*req.Status)
	}

	if err := h.novelRepo.Update(ctx, novel); err != nil {
		dto.Failure(c, err)
		return
	}
	dto.Success(c, novel)
}

// Delete 删除小说
func (h *NovelHandler) Delete(c *gin.Context) {
	id, ok := requireID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	novel, err := h.novelRepo.GetByID(ctx, id)
	if err != nil {
		dto.Failure(c, err)
		return
	}
	if novel == nil {
		dto.Failure(c, errors.ErrNovelNotFound)
		return
	}

	if err := h.novelRepo.Delete(ctx, id); err != nil {
		dto.Failure(c, err)
		return
	}

	logger.Info(ctx, "novel deleted", "novel_id", id)
	dto.NoContent(c)
}

// CreateChapter 创建章节
func (h *NovelHandler) CreateChapter(c *gin.Context) {
	novelID, ok := requireID(c)
	if !ok {
		return
	}

	var req dto.CreateChapterRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	novel, err := h.novelRepo.GetByID(ctx, novelID)
	if err != nil {
		dto.Failure(c, err)
		return
	}
	if novel == nil {
		dto.Failure(c, errors.ErrNovelNotFound)
		return
	}

	chapter := entity.NewChapter(novelID, req.ChapterNumber, req.Title, req.Content)
	if err := h.chapterRepo.Create(ctx, chapter); err != nil {
		dto.Failure(c, err)
		return
	}

	logger.Info(ctx, "chapter created",
		"novel_id", novelID,
		"chapter_id", chapter.ID,
		"chapter_number", chapter.ChapterNumber,
	)
	dto.Created(c, chapter)
}

// ListChapters 列出小说全部章节
func (h *NovelHandler) ListChapters(c *gin.Context) {
	novelID, ok := requireID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	novel, err := h.novelRepo.GetByID(ctx, novelID)
	if err != nil {
		dto.Failure(c, err)
		return
	}
	if novel == nil {
		dto.Failure(c, errors.ErrNovelNotFound)
		return
	}

	chapters, err := h.chapterRepo.ListByNovel(ctx, novelID)
	if err != nil {
		dto.Failure(c, err)
		return
	}
	dto.Success(c, chapters)
}

// GetChapter 获取章节详情
func (h *NovelHandler) GetChapter(c *gin.Context) {
	id, ok := requireID(c)
	if !ok {
		return
	}

	chapter, err := h.chapterRepo.GetByID(c.Request.Context(), id)
	if err != nil {
		dto.Failure(c, err)
		return
	}
	if chapter == nil {
		dto.Failure(c, errors.ErrChapterNotFound)
		return
	}
	dto.Success(c, chapter)
}

// UpdateChapter 更新章节，人工修订润色稿会记录处理日志
func (h *NovelHandler) UpdateChapter(c *gin.Context) {
	id, ok := requireID(c)
	if !ok {
		return
	}

	var req dto.UpdateChapterRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	chapter, err := h.chapterRepo.GetByID(ctx, id)
	if err != nil {
		dto.Failure(c, err)
		return
	}
	if chapter == nil {
		dto.Failure(c, errors.ErrChapterNotFound)
		return
	}

	manualEdit := false
	if req.Title != nil {
		chapter.Title = *req.Title
	}
	if req.OriginalContent != nil {
		chapter.SetOriginalContent(*req.OriginalContent)
	}
	if req.RefinedContent != nil {
		chapter.MarkRefined(*req.RefinedContent)
		manualEdit = true
	}

	if err := h.chapterRepo.Update(ctx, chapter); err != nil {
		dto.Failure(c, err)
		return
	}

	if manualEdit {
		log := entity.NewSuccessLog(chapter.ID, chapter.NovelID, entity.ProcessingTypeManualEdit, "", 0)
		if err := h.logRepo.Append(ctx, log); err != nil {
			logger.Warn(ctx, "failed to append manual edit log", "chapter_id", chapter.ID, "error", err)
		}
	}
	dto.Success(c, chapter)
}
