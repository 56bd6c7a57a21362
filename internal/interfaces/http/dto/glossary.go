package dto

import (
	"time"

	"mtl-refine-api/internal/application/glossary"
	"mtl-refine-api/internal/domain/entity"
)

// CreateTermRequest 创建词条请求
type CreateTermRequest struct {
	NovelID       int64  `json:"novel_id" binding:"required,min=1"`
	OriginalTerm  string `json:"original_term" binding:"required"`
	PreferredTerm string `json:"preferred_term" binding:"required"`
	TermType      string `json:"term_type" binding:"required"`
	Context       string `json:"context,omitempty"`
}

// UpdateTermRequest 更新词条请求，nil 字段保持不变
type UpdateTermRequest struct {
	PreferredTerm *string `json:"preferred_term,omitempty"`
	TermType      *string `json:"term_type,omitempty"`
	Context       *string `json:"context,omitempty"`
	Frequency     *int    `json:"frequency,omitempty"`
	IsActive      *bool   `json:"is_active,omitempty"`
}

// BulkImportRequest 批量导入词条请求
type BulkImportRequest struct {
	NovelID int64                `json:"novel_id" binding:"required,min=1"`
	Terms   []BulkImportTermSpec `json:"terms" binding:"required,min=1"`
}

// BulkImportTermSpec 批量导入单条词条
type BulkImportTermSpec struct {
	OriginalTerm  string `json:"original_term"`
	PreferredTerm string `json:"preferred_term"`
	TermType      string `json:"term_type"`
	Context       string `json:"context,omitempty"`
}

// ToInputs 转换为应用层输入
func (r *BulkImportRequest) ToInputs() []glossary.TermInput {
	inputs := make([]glossary.TermInput, 0, len(r.Terms))
	for _, t := range r.Terms {
		inputs = append(inputs, glossary.TermInput{
			OriginalTerm:  t.OriginalTerm,
			PreferredTerm: t.PreferredTerm,
			TermType:      t.TermType,
			Context:       t.Context,
		})
	}
	return inputs
}

// BulkImportResponse 批量导入响应
type BulkImportResponse struct {
	Message        string   `json:"message"`
	CreatedCount   int      `json:"created_count"`
	UpdatedCount   int      `json:"updated_count"`
	TotalProcessed int      `json:"total_processed"`
	Errors         []string `json:"errors"`
}

// GlossaryExportResponse 词汇表导出响应
type GlossaryExportResponse struct {
	NovelTitle string                 `json:"novel_title"`
	NovelID    int64                  `json:"novel_id"`
	ExportDate time.Time              `json:"export_date"`
	TotalTerms int                    `json:"total_terms"`
	Terms      []*entity.GlossaryTerm `json:"terms"`
}

// TermTypesResponse 词条类型统计响应
type TermTypesResponse struct {
	NovelID   int64            `json:"novel_id"`
	TermTypes map[string]int64 `json:"term_types"`
}
