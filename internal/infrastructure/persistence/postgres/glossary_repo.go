// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"mtl-refine-api/internal/domain/entity"
	"mtl-refine-api/internal/domain/repository"
)

// GlossaryRepository 词汇表仓储实现
type GlossaryRepository struct {
	client *Client
}

// NewGlossaryRepository 创建词汇表仓储
func NewGlossaryRepository(client *Client) *GlossaryRepository {
	return &GlossaryRepository{client: client}
}

// Create 创建词条
func (r *GlossaryRepository) Create(ctx context.Context, term *entity.GlossaryTerm) error {
	ctx, span := tracer.Start(ctx, "postgres.GlossaryRepository.Create")
	defer span.End()

	if err := r.client.db.WithContext(ctx).Create(term).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create glossary term: %w", err)
	}
	return nil
}

// GetByID 根据 ID 获取词条
func (r *GlossaryRepository) GetByID(ctx context.Context, id int64) (*entity.GlossaryTerm, error) {
	ctx, span := tracer.Start(ctx, "postgres.GlossaryRepository.GetByID")
	defer span.End()

	var term entity.GlossaryTerm
	if err := r.client.db.WithContext(ctx).First(&term, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get glossary term: %w", err)
	}
	return &term, nil
}

// GetActiveByOriginalTerm 大小写不敏感地查找活跃词条
func (r *GlossaryRepository) GetActiveByOriginalTerm(ctx context.Context, novelID int64, originalTerm string) (*entity.GlossaryTerm, error) {
	ctx, span := tracer.Start(ctx, "postgres.GlossaryRepository.GetActiveByOriginalTerm")
	defer span.End()

	var term entity.GlossaryTerm
	if err := r.client.db.WithContext(ctx).
		Where("novel_id = ? AND LOWER(original_term) = LOWER(?) AND is_active = ?", novelID, originalTerm, true).
		First(&term).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get glossary term by original: %w", err)
	}
	return &term, nil
}

// ListByNovel 按频率降序、ID 升序返回词条
func (r *GlossaryRepository) ListByNovel(ctx context.Context, novelID int64, filter repository.GlossaryFilter) ([]*entity.GlossaryTerm, error) {
	ctx, span := tracer.Start(ctx, "postgres.GlossaryRepository.ListByNovel")
	defer span.End()

	query := r.client.db.WithContext(ctx).Where("novel_id = ?", novelID)

	if filter.TermType != "" {
		query = query.Where("term_type = ?", filter.TermType)
	}
	if filter.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}

	var terms []*entity.GlossaryTerm
	if err := query.Order("frequency DESC, id ASC").Find(&terms).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list glossary terms: %w", err)
	}
	return terms, nil
}

// Update 更新词条
func (r *GlossaryRepository) Update(ctx context.Context, term *entity.GlossaryTerm) error {
	ctx, span := tracer.Start(ctx, "postgres.GlossaryRepository.Update")
	defer span.End()

	if err := r.client.db.WithContext(ctx).Save(term).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update glossary term: %w", err)
	}
	return nil
}

// IncrementFrequency 原子增加词条使用频率
func (r *GlossaryRepository) IncrementFrequency(ctx context.Context, id int64, delta int) error {
	ctx, span := tracer.Start(ctx, "postgres.GlossaryRepository.IncrementFrequency")
	defer span.End()

	if delta <= 0 {
		return nil
	}

	if err := r.client.db.WithContext(ctx).Model(&entity.GlossaryTerm{}).
		Where("id = ?", id).
		Update("frequency", gorm.Expr("frequency + ?", delta)).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to increment term frequency: %w", err)
	}
	return nil
}

// CountActiveByType 统计各类型活跃词条数
func (r *GlossaryRepository) CountActiveByType(ctx context.Context, novelID int64) (map[string]int64, error) {
	ctx, span := tracer.Start(ctx, "postgres.GlossaryRepository.CountActiveByType")
	defer span.End()

	type row struct {
		TermType string
		Count    int64
	}
	var rows []row
	if err := r.client.db.WithContext(ctx).Model(&entity.GlossaryTerm{}).
		Select("term_type, COUNT(*) AS count").
		Where("novel_id = ? AND is_active = ?", novelID, true).
		Group("term_type").
		Scan(&rows).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count terms by type: %w", err)
	}

	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.TermType] = r.Count
	}
	return counts, nil
}
