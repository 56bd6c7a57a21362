package refine

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"mtl-refine-api/internal/domain/entity"
	"mtl-refine-api/internal/domain/repository"
	"mtl-refine-api/internal/infrastructure/messaging"
	"mtl-refine-api/pkg/errors"
	"mtl-refine-api/pkg/logger"
	"mtl-refine-api/pkg/metrics"
)

// ProcessingStatus 小说处理进度，按需计算不落库
type ProcessingStatus struct {
	NovelID              int64                   `json:"novel_id"`
	NovelTitle           string                  `json:"novel_title"`
	TotalChapters        int64                   `json:"total_chapters"`
	ProcessedChapters    int64                   `json:"processed_chapters"`
	CompletionPercentage float64                 `json:"completion_percentage"`
	RecentLogs           []*entity.ProcessingLog `json:"recent_logs"`
	ActiveJob            *entity.RefineJob       `json:"active_job,omitempty"`
}

// runRegistry 进程内活跃批量任务登记，按小说单飞
type runRegistry struct {
	mu     sync.Mutex
	active map[int64]bool
}

func newRunRegistry() *runRegistry {
	return &runRegistry{active: make(map[int64]bool)}
}

func (r *runRegistry) acquire(novelID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active[novelID] {
		return false
	}
	r.active[novelID] = true
	return true
}

func (r *runRegistry) release(novelID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.active, novelID)
}

// Orchestrator 批量润色编排器
type Orchestrator struct {
	novelRepo   repository.NovelRepository
	chapterRepo repository.ChapterRepository
	jobRepo     repository.JobRepository
	logRepo     repository.ProcessingLogRepository
	service     *Service
	producer    *messaging.Producer
	registry    *runRegistry
	concurrency int
	recentLogs  int
}

// NewOrchestrator 创建批量编排器
func NewOrchestrator(
	novelRepo repository.NovelRepository,
	chapterRepo repository.ChapterRepository,
	jobRepo repository.JobRepository,
	logRepo repository.ProcessingLogRepository,
	service *Service,
	producer *messaging.Producer,
	concurrency int,
	recentLogs int,
) *Orchestrator {
	if concurrency <= 0 {
		concurrency = 2
	}
	if recentLogs <= 0 {
		recentLogs = 10
	}
	return &Orchestrator{
		novelRepo:   novelRepo,
		chapterRepo: chapterRepo,
		jobRepo:     jobRepo,
		logRepo:     logRepo,
		service:     service,
		producer:    producer,
		registry:    newRunRegistry(),
		concurrency: concurrency,
		recentLogs:  recentLogs,
	}
}

// Enqueue 受理批量润色请求并投递到队列，立即返回任务
// 同一小说已有进行中的任务时返回冲突错误
func (o *Orchestrator) Enqueue(ctx context.Context, novelID int64, chapterIDs []int64, useGlossary bool) (*entity.RefineJob, error) {
	ctx, span := tracer.Start(ctx, "refine.Orchestrator.Enqueue")
	span.SetAttributes(
		attribute.Int64("novel_id", novelID),
		attribute.Int("chapter_count", len(chapterIDs)),
	)
	defer span.End()

	novel, err := o.novelRepo.GetByID(ctx, novelID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if novel == nil {
		return nil, errors.ErrNovelNotFound
	}

	var chapters []*entity.Chapter
	if len(chapterIDs) > 0 {
		chapters, err = o.chapterRepo.ListByIDs(ctx, novelID, chapterIDs)
	} else {
		// 默认处理全部未润色章节
		chapters, err = o.chapterRepo.ListUnprocessed(ctx, novelID)
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if len(chapters) == 0 {
		return nil, errors.ErrValidationFailed.WithDetail("no chapters to process")
	}

	resolved := make([]int64, 0, len(chapters))
	for _, ch := range chapters {
		resolved = append(resolved, ch.ID)
	}

	job := entity.NewRefineJob(novelID, resolved, useGlossary)
	if err := o.jobRepo.CreateIfNoActive(ctx, job); err != nil {
		return nil, err
	}

	if _, err := o.producer.PublishBatchRefine(ctx, &messaging.BatchRefinePayload{
		JobID:       job.ID,
		NovelID:     novelID,
		UseGlossary: useGlossary,
	}); err != nil {
		span.RecordError(err)
		// 投递失败的任务立即置为失败，避免占用单飞名额
		job.Fail("failed to enqueue batch job: " + err.Error())
		if updErr := o.jobRepo.Update(ctx, job); updErr != nil {
			logger.FromContext(ctx).Error("failed to mark job as failed", "job_id", job.ID, "error", updErr)
		}
		return nil, errors.Wrap(err, errors.CodeQueueError, "failed to enqueue batch job")
	}

	logger.FromContext(ctx).Info("batch refine job enqueued",
		"job_id", job.ID,
		"novel_id", novelID,
		"chapters", len(resolved),
	)
	return job, nil
}

// Run 执行批量润色任务，由队列消费方调用
// 章节间检查取消标记，单章失败不中断其余章节
func (o *Orchestrator) Run(ctx context.Context, jobID int64) error {
	ctx, span := tracer.Start(ctx, "refine.Orchestrator.Run")
	span.SetAttributes(attribute.Int64("job_id", jobID))
	defer span.End()

	job, err := o.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if job == nil {
		return errors.ErrJobNotFound
	}
	if job.Status.IsTerminal() {
		return nil
	}

	ctx = logger.WithContext(ctx, logger.JobIDKey, job.ID)
	ctx = logger.WithContext(ctx, logger.NovelIDKey, job.NovelID)
	log := logger.FromContext(ctx)

	if !o.registry.acquire(job.NovelID) {
		return errors.ErrBatchConflict
	}
	defer o.registry.release(job.NovelID)

	// 投递后、执行前收到的取消请求
	if job.CancelRequested {
		job.Cancel()
		metrics.BatchRunsTotal.WithLabelValues(string(entity.JobStatusCancelled)).Inc()
		return o.jobRepo.Update(ctx, job)
	}

	job.Start()
	if err := o.jobRepo.Update(ctx, job); err != nil {
		span.RecordError(err)
		return err
	}

	log.Info("batch refine run started", "chapters", job.TotalChapters)

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(o.concurrency)

	cancelled := false
	for _, chapterID := range job.ChapterIDs {
		if o.cancelRequested(ctx, job.ID) {
			cancelled = true
			break
		}

		id := chapterID
		g.Go(func() error {
			outcome, err := o.service.RefineChapter(ctx, id, job.UseGlossary, entity.ProcessingTypeBatchRefinement)
			success := err == nil && outcome != nil && outcome.Success
			if err != nil {
				log.Error("chapter processing errored", "chapter_id", id, "error", err)
			}

			status := "failure"
			if success {
				status = "success"
			}
			metrics.BatchChaptersProcessed.WithLabelValues(status).Inc()

			mu.Lock()
			defer mu.Unlock()
			job.RecordOutcome(success)
			if updErr := o.jobRepo.Update(ctx, job); updErr != nil {
				log.Error("failed to persist job progress", "error", updErr)
			}
			return nil
		})
	}
	g.Wait()

	if cancelled {
		job.Cancel()
		log.Info("batch refine run cancelled",
			"succeeded", job.SucceededCount,
			"failed", job.FailedCount,
		)
	} else {
		job.Complete()
		log.Info("batch refine run completed",
			"succeeded", job.SucceededCount,
			"failed", job.FailedCount,
		)
	}

	metrics.BatchRunsTotal.WithLabelValues(string(job.Status)).Inc()

	if err := o.jobRepo.Update(ctx, job); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// cancelRequested 重新读取任务的取消标记
func (o *Orchestrator) cancelRequested(ctx context.Context, jobID int64) bool {
	job, err := o.jobRepo.GetByID(ctx, jobID)
	if err != nil || job == nil {
		return false
	}
	return job.CancelRequested
}

// Status 查询小说处理进度，只读不阻塞
func (o *Orchestrator) Status(ctx context.Context, novelID int64) (*ProcessingStatus, error) {
	ctx, span := tracer.Start(ctx, "refine.Orchestrator.Status")
	span.SetAttributes(attribute.Int64("novel_id", novelID))
	defer span.End()

	novel, err := o.novelRepo.GetByID(ctx, novelID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if novel == nil {
		return nil, errors.ErrNovelNotFound
	}

	total, err := o.chapterRepo.CountByNovel(ctx, novelID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	processed, err := o.chapterRepo.CountProcessedByNovel(ctx, novelID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	percentage := 0.0
	if total > 0 {
		percentage = float64(processed) * 100 / float64(total)
	}
	if percentage > 100 {
		percentage = 100
	}

	logs, err := o.logRepo.ListRecentByNovel(ctx, novelID, o.recentLogs)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	activeJob, err := o.jobRepo.GetActiveByNovel(ctx, novelID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	return &ProcessingStatus{
		NovelID:              novelID,
		NovelTitle:           novel.Title,
		TotalChapters:        total,
		ProcessedChapters:    processed,
		CompletionPercentage: percentage,
		RecentLogs:           logs,
		ActiveJob:            activeJob,
	}, nil
}

// GetJob 查询批量任务
func (o *Orchestrator) GetJob(ctx context.Context, jobID int64) (*entity.RefineJob, error) {
	ctx, span := tracer.Start(ctx, "refine.Orchestrator.GetJob")
	span.SetAttributes(attribute.Int64("job_id", jobID))
	defer span.End()

	job, err := o.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if job == nil {
		return nil, errors.ErrJobNotFound
	}
	return job, nil
}

// Cancel 请求取消批量任务，正在处理的章节会正常结束
func (o *Orchestrator) Cancel(ctx context.Context, jobID int64) (*entity.RefineJob, error) {
	ctx, span := tracer.Start(ctx, "refine.Orchestrator.Cancel")
	span.SetAttributes(attribute.Int64("job_id", jobID))
	defer span.End()

	job, err := o.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if job == nil {
		return nil, errors.ErrJobNotFound
	}
	if job.Status.IsTerminal() {
		return job, nil
	}

	if err := o.jobRepo.RequestCancel(ctx, jobID); err != nil {
		span.RecordError(err)
		return nil, err
	}

	job.CancelRequested = true
	logger.FromContext(ctx).Info("batch refine job cancel requested", "job_id", jobID)
	return job, nil
}
