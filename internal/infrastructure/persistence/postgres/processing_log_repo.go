// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"fmt"

	"mtl-refine-api/internal/domain/entity"
)

// ProcessingLogRepository 处理日志仓储实现
type ProcessingLogRepository struct {
	client *Client
}

// NewProcessingLogRepository 创建处理日志仓储
func NewProcessingLogRepository(client *Client) *ProcessingLogRepository {
	return &ProcessingLogRepository{client: client}
}

// Append 追加一条处理日志
func (r *ProcessingLogRepository) Append(ctx context.Context, log *entity.ProcessingLog) error {
	ctx, span := tracer.Start(ctx, "postgres.ProcessingLogRepository.Append")
	defer span.End()

	if err := r.client.db.WithContext(ctx).Create(log).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to append processing log: %w", err)
	}
	return nil
}

// ListRecentByNovel 按创建时间倒序返回最近的日志
func (r *ProcessingLogRepository) ListRecentByNovel(ctx context.Context, novelID int64, limit int) ([]*entity.ProcessingLog, error) {
	ctx, span := tracer.Start(ctx, "postgres.ProcessingLogRepository.ListRecentByNovel")
	defer span.End()

	if limit <= 0 {
		limit = 10
	}

	var logs []*entity.ProcessingLog
	if err := r.client.db.WithContext(ctx).
		Where("novel_id = ?", novelID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&logs).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list processing logs: %w", err)
	}
	return logs, nil
}
