// Package repository 定义数据访问接口
package repository

import (
	"context"

	"mtl-refine-api/internal/domain/entity"
)

// NovelRepository 小说仓储接口
type NovelRepository interface {
	Create(ctx context.Context, novel *entity.Novel) error
	GetByID(ctx context.Context, id int64) (*entity.Novel, error)
	List(ctx context.Context, pagination Pagination) (*PagedResult[*entity.Novel], error)
	Update(ctx context.Context, novel *entity.Novel) error
	Delete(ctx context.Context, id int64) error
}
