// Package repository 定义数据访问接口
package repository

import (
	"context"

	"mtl-refine-api/internal/domain/entity"
)

// JobRepository 批量任务仓储接口
type JobRepository interface {
	// CreateIfNoActive 在事务内检查同一小说无非终态任务后创建，
	// 已存在时返回 errors.ErrBatchConflict
	CreateIfNoActive(ctx context.Context, job *entity.RefineJob) error
	GetByID(ctx context.Context, id int64) (*entity.RefineJob, error)
	GetActiveByNovel(ctx context.Context, novelID int64) (*entity.RefineJob, error)
	Update(ctx context.Context, job *entity.RefineJob) error
	// RequestCancel 置取消标记，任务已处于终态时无效果
	RequestCancel(ctx context.Context, id int64) error
}
