// Package glossary 提供词汇表管理服务
package glossary

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"mtl-refine-api/internal/domain/entity"
	"mtl-refine-api/internal/domain/repository"
	"mtl-refine-api/internal/infrastructure/persistence/redis"
	"mtl-refine-api/pkg/errors"
	"mtl-refine-api/pkg/logger"
)

var tracer = otel.Tracer("glossary")

// TermInput 词条导入/创建输入
type TermInput struct {
	OriginalTerm  string `json:"original_term"`
	PreferredTerm string `json:"preferred_term"`
	TermType      string `json:"term_type"`
	Context       string `json:"context,omitempty"`
}

// UpdateInput 词条更新输入，nil 字段保持不变
type UpdateInput struct {
	PreferredTerm *string `json:"preferred_term,omitempty"`
	TermType      *string `json:"term_type,omitempty"`
	Context       *string `json:"context,omitempty"`
	Frequency     *int    `json:"frequency,omitempty"`
	IsActive      *bool   `json:"is_active,omitempty"`
}

// BulkImportResult 批量导入结果
type BulkImportResult struct {
	CreatedCount   int      `json:"created_count"`
	UpdatedCount   int      `json:"updated_count"`
	TotalProcessed int      `json:"total_processed"`
	Errors         []string `json:"errors"`
}

// ExportResult 词汇表导出结果
type ExportResult struct {
	NovelTitle string                 `json:"novel_title"`
	NovelID    int64                  `json:"novel_id"`
	ExportDate time.Time              `json:"export_date"`
	TotalTerms int                    `json:"total_terms"`
	Terms      []*entity.GlossaryTerm `json:"terms"`
}

// Service 词汇表服务
type Service struct {
	novelRepo    repository.NovelRepository
	glossaryRepo repository.GlossaryRepository
	cache        *redis.Cache
	glossaryTTL  time.Duration
}

// NewService 创建词汇表服务，cache 可为 nil 表示不启用缓存
func NewService(
	novelRepo repository.NovelRepository,
	glossaryRepo repository.GlossaryRepository,
	cache *redis.Cache,
	glossaryTTL time.Duration,
) *Service {
	if glossaryTTL <= 0 {
		glossaryTTL = 5 * time.Minute
	}
	return &Service{
		novelRepo:    novelRepo,
		glossaryRepo: glossaryRepo,
		cache:        cache,
		glossaryTTL:  glossaryTTL,
	}
}

// validateTermInput 校验词条字段，在任何写入前执行
func validateTermInput(in TermInput) error {
	if strings.TrimSpace(in.OriginalTerm) == "" {
		return errors.ErrValidationFailed.WithDetail("original_term is required")
	}
	if strings.TrimSpace(in.PreferredTerm) == "" {
		return errors.ErrValidationFailed.WithDetail("preferred_term is required")
	}
	if strings.TrimSpace(in.TermType) == "" {
		return errors.ErrValidationFailed.WithDetail("term_type is required")
	}
	if utf8.RuneCountInString(in.OriginalTerm) > entity.MaxTermLength {
		return errors.ErrValidationFailed.WithDetail(
			fmt.Sprintf("original_term exceeds %d characters", entity.MaxTermLength))
	}
	if utf8.RuneCountInString(in.PreferredTerm) > entity.MaxTermLength {
		return errors.ErrValidationFailed.WithDetail(
			fmt.Sprintf("preferred_term exceeds %d characters", entity.MaxTermLength))
	}
	return nil
}

// Create 创建词条，同名活跃词条（大小写不敏感）已存在时返回重复错误
func (s *Service) Create(ctx context.Context, novelID int64, in TermInput) (*entity.GlossaryTerm, error) {
	ctx, span := tracer.Start(ctx, "glossary.Service.Create")
	span.SetAttributes(attribute.Int64("novel_id", novelID))
	defer span.End()

	if err := validateTermInput(in); err != nil {
		return nil, err
	}

	novel, err := s.novelRepo.GetByID(ctx, novelID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if novel == nil {
		return nil, errors.ErrNovelNotFound
	}

	existing, err := s.glossaryRepo.GetActiveByOriginalTerm(ctx, novelID, in.OriginalTerm)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if existing != nil {
		return nil, errors.ErrDuplicateTerm.WithDetail(in.OriginalTerm)
	}

	term := entity.NewGlossaryTerm(novelID, in.OriginalTerm, in.PreferredTerm, in.TermType, in.Context)
	if err := s.glossaryRepo.Create(ctx, term); err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.invalidate(ctx, novelID)
	return term, nil
}

// Get 按 ID 获取词条
func (s *Service) Get(ctx context.Context, id int64) (*entity.GlossaryTerm, error) {
	ctx, span := tracer.Start(ctx, "glossary.Service.Get")
	defer span.End()

	term, err := s.glossaryRepo.GetByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if term == nil {
		return nil, errors.ErrTermNotFound
	}
	return term, nil
}

// List 按过滤条件返回词条，频率降序
func (s *Service) List(ctx context.Context, novelID int64, filter repository.GlossaryFilter) ([]*entity.GlossaryTerm, error) {
	ctx, span := tracer.Start(ctx, "glossary.Service.List")
	span.SetAttributes(attribute.Int64("novel_id", novelID))
	defer span.End()

	terms, err := s.glossaryRepo.ListByNovel(ctx, novelID, filter)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return terms, nil
}

// ListActive 返回活跃词条，优先走缓存
func (s *Service) ListActive(ctx context.Context, novelID int64) ([]*entity.GlossaryTerm, error) {
	ctx, span := tracer.Start(ctx, "glossary.Service.ListActive")
	span.SetAttributes(attribute.Int64("novel_id", novelID))
	defer span.End()

	filter := repository.GlossaryFilter{ActiveOnly: true}
	if s.cache == nil {
		return s.glossaryRepo.ListByNovel(ctx, novelID, filter)
	}

	data, err := s.cache.GetOrLoadSafe(ctx, redis.GlossaryKey(novelID), s.glossaryTTL, func() (interface{}, error) {
		return s.glossaryRepo.ListByNovel(ctx, novelID, filter)
	})
	if err != nil {
		// 缓存故障时降级为直接读库
		logger.FromContext(ctx).Warn("glossary cache unavailable, falling back to database", "error", err)
		return s.glossaryRepo.ListByNovel(ctx, novelID, filter)
	}

	var terms []*entity.GlossaryTerm
	if err := json.Unmarshal(data, &terms); err != nil {
		span.RecordError(err)
		return s.glossaryRepo.ListByNovel(ctx, novelID, filter)
	}
	return terms, nil
}

// Update 更新词条字段，不存在时返回 NotFound
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (*entity.GlossaryTerm, error) {
	ctx, span := tracer.Start(ctx, "glossary.Service.Update")
	span.SetAttributes(attribute.Int64("term_id", id))
	defer span.End()

	term, err := s.glossaryRepo.GetByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if term == nil {
		return nil, errors.ErrTermNotFound
	}

	if in.PreferredTerm != nil {
		if strings.TrimSpace(*in.PreferredTerm) == "" {
			return nil, errors.ErrValidationFailed.WithDetail("preferred_term is required")
		}
		if utf8.RuneCountInString(*in.PreferredTerm) > entity.MaxTermLength {
			return nil, errors.ErrValidationFailed.WithDetail(
				fmt.Sprintf("preferred_term exceeds %d characters", entity.MaxTermLength))
		}
		term.PreferredTerm = *in.PreferredTerm
	}
	if in.TermType != nil {
		if strings.TrimSpace(*in.TermType) == "" {
			return nil, errors.ErrValidationFailed.WithDetail("term_type is required")
		}
		term.TermType = *in.TermType
	}
	if in.Context != nil {
		term.Context = *in.Context
	}
	if in.Frequency != nil {
		if *in.Frequency < 0 {
			return nil, errors.ErrValidationFailed.WithDetail("frequency must be non-negative")
		}
		term.Frequency = *in.Frequency
	}
	if in.IsActive != nil {
		term.IsActive = *in.IsActive
	}

	if err := s.glossaryRepo.Update(ctx, term); err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.invalidate(ctx, term.NovelID)
	return term, nil
}

// Activate 激活词条
func (s *Service) Activate(ctx context.Context, id int64) (*entity.GlossaryTerm, error) {
	active := true
	return s.Update(ctx, id, UpdateInput{IsActive: &active})
}

// Deactivate 停用词条，保留历史不删除
func (s *Service) Deactivate(ctx context.Context, id int64) (*entity.GlossaryTerm, error) {
	active := false
	return s.Update(ctx, id, UpdateInput{IsActive: &active})
}

// BulkImport 批量导入词条：同名活跃词条更新，否则创建
// 单条校验失败不会中断整批，错误收集在结果中返回
func (s *Service) BulkImport(ctx context.Context, novelID int64, inputs []TermInput) (*BulkImportResult, error) {
	ctx, span := tracer.Start(ctx, "glossary.Service.BulkImport")
	span.SetAttributes(
		attribute.Int64("novel_id", novelID),
		attribute.Int("term_count", len(inputs)),
	)
	defer span.End()

	novel, err := s.novelRepo.GetByID(ctx, novelID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if novel == nil {
		return nil, errors.ErrNovelNotFound
	}

	result := &BulkImportResult{Errors: []string{}}
	for i, in := range inputs {
		result.TotalProcessed++

		if err := validateTermInput(in); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("term %d (%s): %s",
				i+1, in.OriginalTerm, errors.AsAppError(err).Detail))
			continue
		}

		existing, err := s.glossaryRepo.GetActiveByOriginalTerm(ctx, novelID, in.OriginalTerm)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("term %d (%s): %v", i+1, in.OriginalTerm, err))
			continue
		}

		if existing != nil {
			existing.PreferredTerm = in.PreferredTerm
			existing.TermType = in.TermType
			if in.Context != "" {
				existing.Context = in.Context
			}
			existing.Frequency++
			if err := s.glossaryRepo.Update(ctx, existing); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("term %d (%s): %v", i+1, in.OriginalTerm, err))
				continue
			}
			result.UpdatedCount++
			continue
		}

		term := entity.NewGlossaryTerm(novelID, in.OriginalTerm, in.PreferredTerm, in.TermType, in.Context)
		if err := s.glossaryRepo.Create(ctx, term); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("term %d (%s): %v", i+1, in.OriginalTerm, err))
			continue
		}
		result.CreatedCount++
	}

	s.invalidate(ctx, novelID)

	logger.FromContext(ctx).Info("glossary bulk import completed",
		"novel_id", novelID,
		"created", result.CreatedCount,
		"updated", result.UpdatedCount,
		"errors", len(result.Errors),
	)
	return result, nil
}

// Export 导出小说全部词条，按类型和原词排序
func (s *Service) Export(ctx context.Context, novelID int64) (*ExportResult, error) {
	ctx, span := tracer.Start(ctx, "glossary.Service.Export")
	span.SetAttributes(attribute.Int64("novel_id", novelID))
	defer span.End()

	novel, err := s.novelRepo.GetByID(ctx, novelID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if novel == nil {
		return nil, errors.ErrNovelNotFound
	}

	terms, err := s.glossaryRepo.ListByNovel(ctx, novelID, repository.GlossaryFilter{})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	sort.Slice(terms, func(i, j int) bool {
		if terms[i].TermType != terms[j].TermType {
			return terms[i].TermType < terms[j].TermType
		}
		return strings.ToLower(terms[i].OriginalTerm) < strings.ToLower(terms[j].OriginalTerm)
	})

	return &ExportResult{
		NovelTitle: novel.Title,
		NovelID:    novelID,
		ExportDate: time.Now(),
		TotalTerms: len(terms),
		Terms:      terms,
	}, nil
}

// TermTypes 统计小说各类型活跃词条数量
func (s *Service) TermTypes(ctx context.Context, novelID int64) (map[string]int64, error) {
	ctx, span := tracer.Start(ctx, "glossary.Service.TermTypes")
	span.SetAttributes(attribute.Int64("novel_id", novelID))
	defer span.End()

	novel, err := s.novelRepo.GetByID(ctx, novelID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if novel == nil {
		return nil, errors.ErrNovelNotFound
	}

	counts, err := s.glossaryRepo.CountActiveByType(ctx, novelID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return counts, nil
}

// invalidate 使词汇表缓存失效，失败只记录日志
func (s *Service) invalidate(ctx context.Context, novelID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateGlossary(ctx, novelID); err != nil {
		logger.FromContext(ctx).Warn("failed to invalidate glossary cache",
			"novel_id", novelID, "error", err)
	}
}
