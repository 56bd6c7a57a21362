// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"mtl-refine-api/internal/domain/entity"
)

// ChapterRepository 章节仓储实现
type ChapterRepository struct {
	client *Client
}

// NewChapterRepository 创建章节仓储
func NewChapterRepository(client *Client) *ChapterRepository {
	return &ChapterRepository{client: client}
}

// Create 创建章节
func (r *ChapterRepository) Create(ctx context.Context, chapter *entity.Chapter) error {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.Create")
	defer span.End()

	if err := r.client.db.WithContext(ctx).Create(chapter).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create chapter: %w", err)
	}
	return nil
}

// GetByID 根据 ID 获取章节
func (r *ChapterRepository) GetByID(ctx context.Context, id int64) (*entity.Chapter, error) {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.GetByID")
	defer span.End()

	var chapter entity.Chapter
	if err := r.client.db.WithContext(ctx).First(&chapter, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get chapter: %w", err)
	}
	return &chapter, nil
}

// ListByNovel 获取小说的全部章节，按章节号升序
func (r *ChapterRepository) ListByNovel(ctx context.Context, novelID int64) ([]*entity.Chapter, error) {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.ListByNovel")
	defer span.End()

	var chapters []*entity.Chapter
	if err := r.client.db.WithContext(ctx).
		Where("novel_id = ?", novelID).
		Order("chapter_number ASC").
		Find(&chapters).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list chapters: %w", err)
	}
	return chapters, nil
}

// ListByIDs 获取小说内指定 ID 的章节，按章节号升序
func (r *ChapterRepository) ListByIDs(ctx context.Context, novelID int64, ids []int64) ([]*entity.Chapter, error) {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.ListByIDs")
	defer span.End()

	if len(ids) == 0 {
		return nil, nil
	}

	var chapters []*entity.Chapter
	if err := r.client.db.WithContext(ctx).
		Where("novel_id = ? AND id IN ?", novelID, ids).
		Order("chapter_number ASC").
		Find(&chapters).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list chapters by ids: %w", err)
	}
	return chapters, nil
}

// ListUnprocessed 获取小说的未处理章节，按章节号升序
func (r *ChapterRepository) ListUnprocessed(ctx context.Context, novelID int64) ([]*entity.Chapter, error) {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.ListUnprocessed")
	defer span.End()

	var chapters []*entity.Chapter
	if err := r.client.db.WithContext(ctx).
		Where("novel_id = ? AND is_processed = ?", novelID, false).
		Order("chapter_number ASC").
		Find(&chapters).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list unprocessed chapters: %w", err)
	}
	return chapters, nil
}

// Update 更新章节
func (r *ChapterRepository) Update(ctx context.Context, chapter *entity.Chapter) error {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.Update")
	defer span.End()

	if err := r.client.db.WithContext(ctx).Save(chapter).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update chapter: %w", err)
	}
	return nil
}

// UpdateRefined 写入润色稿并标记为已处理
func (r *ChapterRepository) UpdateRefined(ctx context.Context, id int64, refined string) error {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.UpdateRefined")
	defer span.End()

	if err := r.client.db.WithContext(ctx).Model(&entity.Chapter{}).Where("id = ?", id).Updates(map[string]interface{}{
		"refined_content": refined,
		"is_processed":    true,
	}).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update refined content: %w", err)
	}
	return nil
}

// CountByNovel 统计小说章节总数
func (r *ChapterRepository) CountByNovel(ctx context.Context, novelID int64) (int64, error) {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.CountByNovel")
	defer span.End()

	var count int64
	if err := r.client.db.WithContext(ctx).Model(&entity.Chapter{}).
		Where("novel_id = ?", novelID).
		Count(&count).Error; err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to count chapters: %w", err)
	}
	return count, nil
}

// CountProcessedByNovel 统计小说已处理章节数
func (r *ChapterRepository) CountProcessedByNovel(ctx context.Context, novelID int64) (int64, error) {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.CountProcessedByNovel")
	defer span.End()

	var count int64
	if err := r.client.db.WithContext(ctx).Model(&entity.Chapter{}).
		Where("novel_id = ? AND is_processed = ?", novelID, true).
		Count(&count).Error; err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to count processed chapters: %w", err)
	}
	return count, nil
}
