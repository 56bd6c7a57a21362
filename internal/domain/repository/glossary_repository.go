// Package repository 定义数据访问接口
package repository

import (
	"context"

	"mtl-refine-api/internal/domain/entity"
)

// GlossaryFilter 词汇表查询过滤条件
type GlossaryFilter struct {
	TermType   string
	ActiveOnly bool
}

// GlossaryRepository 词汇表仓储接口
type GlossaryRepository interface {
	Create(ctx context.Context, term *entity.GlossaryTerm) error
	GetByID(ctx context.Context, id int64) (*entity.GlossaryTerm, error)
	// GetActiveByOriginalTerm 大小写不敏感地查找活跃词条
	GetActiveByOriginalTerm(ctx context.Context, novelID int64, originalTerm string) (*entity.GlossaryTerm, error)
	// ListByNovel 按频率降序、ID 升序返回词条
	ListByNovel(ctx context.Context, novelID int64, filter GlossaryFilter) ([]*entity.GlossaryTerm, error)
	Update(ctx context.Context, term *entity.GlossaryTerm) error
	// IncrementFrequency 原子增加词条使用频率
	IncrementFrequency(ctx context.Context, id int64, delta int) error
	// CountActiveByType 统计各类型活跃词条数
	CountActiveByType(ctx context.Context, novelID int64) (map[string]int64, error)
}
