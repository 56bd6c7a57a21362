package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"mtl-refine-api/internal/domain/entity"
	apperrors "mtl-refine-api/pkg/errors"
)

// RefineJobRepository 批量润色任务仓储实现
type RefineJobRepository struct {
	client *Client
}

// NewRefineJobRepository 创建批量润色任务仓储
func NewRefineJobRepository(client *Client) *RefineJobRepository {
	return &RefineJobRepository{client: client}
}

// CreateIfNoActive 在事务内检查同一小说是否已有未结束任务，有则返回冲突错误
func (r *RefineJobRepository) CreateIfNoActive(ctx context.Context, job *entity.RefineJob) error {
	ctx, span := tracer.Start(ctx, "postgres.RefineJobRepository.CreateIfNoActive")
	defer span.End()

	err := r.client.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&entity.RefineJob{}).
			Where("novel_id = ? AND status IN ?", job.NovelID,
				[]entity.JobStatus{entity.JobStatusPending, entity.JobStatusRunning}).
			Count(&count).Error; err != nil {
			return fmt.Errorf("failed to count active jobs: %w", err)
		}
		if count > 0 {
			return apperrors.ErrBatchConflict
		}
		if err := tx.Create(job).Error; err != nil {
			return fmt.Errorf("failed to create refine job: %w", err)
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, apperrors.ErrBatchConflict) {
			span.RecordError(err)
		}
		return err
	}
	return nil
}

// GetByID 按 ID 获取任务，不存在时返回 nil
func (r *RefineJobRepository) GetByID(ctx context.Context, id int64) (*entity.RefineJob, error) {
	ctx, span := tracer.Start(ctx, "postgres.RefineJobRepository.GetByID")
	defer span.End()

	var job entity.RefineJob
	if err := r.client.db.WithContext(ctx).Where("id = ?", id).First(&job).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get refine job: %w", err)
	}
	return &job, nil
}

// GetActiveByNovel 获取小说当前未结束的任务，没有时返回 nil
func (r *RefineJobRepository) GetActiveByNovel(ctx context.Context, novelID int64) (*entity.RefineJob, error) {
	ctx, span := tracer.Start(ctx, "postgres.RefineJobRepository.GetActiveByNovel")
	defer span.End()

	var job entity.RefineJob
	if err := r.client.db.WithContext(ctx).
		Where("novel_id = ? AND status IN ?", novelID,
			[]entity.JobStatus{entity.JobStatusPending, entity.JobStatusRunning}).
		Order("created_at DESC").
		First(&job).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get active refine job: %w", err)
	}
	return &job, nil
}

// Update 更新任务
func (r *RefineJobRepository) Update(ctx context.Context, job *entity.RefineJob) error {
	ctx, span := tracer.Start(ctx, "postgres.RefineJobRepository.Update")
	defer span.End()

	if err := r.client.db.WithContext(ctx).Save(job).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update refine job: %w", err)
	}
	return nil
}

// RequestCancel 为未结束的任务打上取消标记，终态任务不受影响
func (r *RefineJobRepository) RequestCancel(ctx context.Context, id int64) error {
	ctx, span := tracer.Start(ctx, "postgres.RefineJobRepository.RequestCancel")
	defer span.End()

	result := r.client.db.WithContext(ctx).
		Model(&entity.RefineJob{}).
		Where("id = ? AND status IN ?", id,
			[]entity.JobStatus{entity.JobStatusPending, entity.JobStatusRunning}).
		Updates(map[string]interface{}{"cancel_requested": true})
	if result.Error != nil {
		span.RecordError(result.Error)
		return fmt.Errorf("failed to request cancel: %w", result.Error)
	}
	return nil
}
