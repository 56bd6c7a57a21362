// Package repository 定义数据访问接口
package repository

import (
	"context"

	"mtl-refine-api/internal/domain/entity"
)

// ProcessingLogRepository 处理日志仓储接口，仅追加
type ProcessingLogRepository interface {
	Append(ctx context.Context, log *entity.ProcessingLog) error
	// ListRecentByNovel 按创建时间倒序返回最近的日志
	ListRecentByNovel(ctx context.Context, novelID int64, limit int) ([]*entity.ProcessingLog, error)
}
