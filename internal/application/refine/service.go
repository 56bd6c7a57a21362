package refine

import (
	"context"
	"encoding/json"
	"sync"

	"go.opentelemetry.io/otel/attribute"

	"mtl-refine-api/internal/application/glossary"
	"mtl-refine-api/internal/domain/entity"
	"mtl-refine-api/internal/domain/repository"
	"mtl-refine-api/pkg/errors"
	"mtl-refine-api/pkg/logger"
	"mtl-refine-api/pkg/metrics"
)

// ChapterOutcome 单章润色结果
type ChapterOutcome struct {
	ChapterID     int64             `json:"chapter_id"`
	ChapterNumber int               `json:"chapter_number"`
	Title         string            `json:"title"`
	Success       bool              `json:"success"`
	Result        *RefinementResult `json:"refinement_result,omitempty"`
	ErrorMessage  string            `json:"error_message,omitempty"`
}

// Service 润色服务
type Service struct {
	chapterRepo  repository.ChapterRepository
	glossaryRepo repository.GlossaryRepository
	logRepo      repository.ProcessingLogRepository
	glossarySvc  *glossary.Service
	engine       *Engine

	// novelLocks 按小说串行化词条频率更新
	novelLocks sync.Map
}

// NewService 创建润色服务
func NewService(
	chapterRepo repository.ChapterRepository,
	glossaryRepo repository.GlossaryRepository,
	logRepo repository.ProcessingLogRepository,
	glossarySvc *glossary.Service,
	engine *Engine,
) *Service {
	return &Service{
		chapterRepo:  chapterRepo,
		glossaryRepo: glossaryRepo,
		logRepo:      logRepo,
		glossarySvc:  glossarySvc,
		engine:       engine,
	}
}

// RefineText 润色一段独立文本，不产生任何章节副作用
func (s *Service) RefineText(ctx context.Context, text string, useGlossary bool, novelID int64) (*RefinementResult, error) {
	ctx, span := tracer.Start(ctx, "refine.Service.RefineText")
	span.SetAttributes(
		attribute.Bool("use_glossary", useGlossary),
		attribute.Int64("novel_id", novelID),
	)
	defer span.End()

	var terms []*entity.GlossaryTerm
	if useGlossary {
		if novelID <= 0 {
			return nil, errors.ErrValidationFailed.WithDetail("novel_id is required when use_glossary is set")
		}
		var err error
		terms, err = s.glossarySvc.ListActive(ctx, novelID)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
	}

	result, termUsage, err := s.engine.Refine(ctx, novelID, text, terms)
	if err != nil {
		metrics.RefinementTotal.WithLabelValues("text", "failure").Inc()
		return nil, err
	}

	s.countTermUsage(ctx, novelID, termUsage)

	metrics.RefinementTotal.WithLabelValues("text", "success").Inc()
	metrics.RefinementDuration.WithLabelValues("text").Observe(result.ProcessingTime)
	return result, nil
}

// RefineChapter 润色指定章节并持久化结果
// 失败时不覆盖既有润色稿，只追加失败日志
func (s *Service) RefineChapter(ctx context.Context, chapterID int64, useGlossary bool, pt entity.ProcessingType) (*ChapterOutcome, error) {
	ctx, span := tracer.Start(ctx, "refine.Service.RefineChapter")
	span.SetAttributes(
		attribute.Int64("chapter_id", chapterID),
		attribute.Bool("use_glossary", useGlossary),
	)
	defer span.End()

	chapter, err := s.chapterRepo.GetByID(ctx, chapterID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if chapter == nil {
		return nil, errors.ErrChapterNotFound
	}

	ctx = logger.WithContext(ctx, logger.ChapterIDKey, chapter.ID)
	ctx = logger.WithContext(ctx, logger.NovelIDKey, chapter.NovelID)

	var terms []*entity.GlossaryTerm
	if useGlossary {
		terms, err = s.glossarySvc.ListActive(ctx, chapter.NovelID)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
	}

	outcome := &ChapterOutcome{
		ChapterID:     chapter.ID,
		ChapterNumber: chapter.ChapterNumber,
		Title:         chapter.Title,
	}

	result, termUsage, err := s.engine.Refine(ctx, chapter.NovelID, chapter.OriginalContent, terms)
	if err != nil {
		span.RecordError(err)
		outcome.ErrorMessage = err.Error()
		s.appendLog(ctx, entity.NewFailureLog(chapter.ID, chapter.NovelID, pt, err.Error()))
		metrics.RefinementTotal.WithLabelValues("chapter", "failure").Inc()

		logger.FromContext(ctx).Warn("chapter refinement failed", "error", err)
		return outcome, nil
	}

	if err := s.chapterRepo.UpdateRefined(ctx, chapter.ID, result.RefinedText); err != nil {
		span.RecordError(err)
		outcome.ErrorMessage = err.Error()
		s.appendLog(ctx, entity.NewFailureLog(chapter.ID, chapter.NovelID, pt, err.Error()))
		metrics.RefinementTotal.WithLabelValues("chapter", "failure").Inc()
		return outcome, nil
	}

	s.countTermUsage(ctx, chapter.NovelID, termUsage)

	changesJSON, _ := json.Marshal(result.Changes)
	s.appendLog(ctx, entity.NewSuccessLog(chapter.ID, chapter.NovelID, pt, string(changesJSON), result.ProcessingTime))

	outcome.Success = true
	outcome.Result = result

	metrics.RefinementTotal.WithLabelValues("chapter", "success").Inc()
	metrics.RefinementDuration.WithLabelValues("chapter").Observe(result.ProcessingTime)

	logger.FromContext(ctx).Info("chapter refined",
		"changes", len(result.Changes),
		"confidence", result.ConfidenceScore,
	)
	return outcome, nil
}

// countTermUsage 累加词条使用频率，同一小说内串行执行
func (s *Service) countTermUsage(ctx context.Context, novelID int64, usage map[int64]int) {
	if len(usage) == 0 {
		return
	}

	lock := s.novelLock(novelID)
	lock.Lock()
	defer lock.Unlock()

	for termID, delta := range usage {
		if err := s.glossaryRepo.IncrementFrequency(ctx, termID, delta); err != nil {
			logger.FromContext(ctx).Warn("failed to increment term frequency",
				"term_id", termID, "error", err)
		}
	}
}

// novelLock 获取小说级互斥锁
func (s *Service) novelLock(novelID int64) *sync.Mutex {
	v, _ := s.novelLocks.LoadOrStore(novelID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// appendLog 追加处理日志，失败只记录不上抛
func (s *Service) appendLog(ctx context.Context, log *entity.ProcessingLog) {
	if err := s.logRepo.Append(ctx, log); err != nil {
		logger.FromContext(ctx).Error("failed to append processing log", "error", err)
	}
}
