// Package repository 定义数据访问接口
package repository

import (
	"context"

	"mtl-refine-api/internal/domain/entity"
)

// ChapterRepository 章节仓储接口
type ChapterRepository interface {
	Create(ctx context.Context, chapter *entity.Chapter) error
	GetByID(ctx context.Context, id int64) (*entity.Chapter, error)
	ListByNovel(ctx context.Context, novelID int64) ([]*entity.Chapter, error)
	ListByIDs(ctx context.Context, novelID int64, ids []int64) ([]*entity.Chapter, error)
	ListUnprocessed(ctx context.Context, novelID int64) ([]*entity.Chapter, error)
	Update(ctx context.Context, chapter *entity.Chapter) error
	// UpdateRefined 写入润色稿并置 is_processed，仅在成功后调用
	UpdateRefined(ctx context.Context, id int64, refined string) error
	CountByNovel(ctx context.Context, novelID int64) (int64, error)
	CountProcessedByNovel(ctx context.Context, novelID int64) (int64, error)
}
