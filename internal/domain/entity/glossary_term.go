// Package entity 定义领域实体
package entity

import (
	"time"
)

// TermType 词条类型
type TermType string

const (
	TermTypeCharacter    TermType = "character"
	TermTypePlace        TermType = "place"
	TermTypeOrganization TermType = "organization"
	TermTypeSkill        TermType = "skill"
	TermTypeItem         TermType = "item"
	TermTypeGeneral      TermType = "general"
)

// MaxTermLength 词条字段最大长度
const MaxTermLength = 200

// GlossaryTerm 词汇表词条
// original_term 在同一小说的活跃词条中大小写不敏感唯一
type GlossaryTerm struct {
	ID            int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	NovelID       int64     `json:"novel_id" gorm:"index;not null"`
	OriginalTerm  string    `json:"original_term" gorm:"type:varchar(200);not null"`
	PreferredTerm string    `json:"preferred_term" gorm:"type:varchar(200);not null"`
	TermType      string    `json:"term_type" gorm:"type:varchar(50);not null"`
	Context       string    `json:"context,omitempty" gorm:"type:text"`
	Frequency     int       `json:"frequency" gorm:"default:1"`
	IsActive      bool      `json:"is_active" gorm:"default:true"`
	CreatedAt     time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt     time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (GlossaryTerm) TableName() string {
	return "glossary_terms"
}

// NewGlossaryTerm 创建新词条
func NewGlossaryTerm(novelID int64, originalTerm, preferredTerm, termType, context string) *GlossaryTerm {
	now := time.Now()
	return &GlossaryTerm{
		NovelID:       novelID,
		OriginalTerm:  originalTerm,
		PreferredTerm: preferredTerm,
		TermType:      termType,
		Context:       context,
		Frequency:     1,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// IsProperNoun 判断词条是否为专有名词类型
// 专有名词替换时启用词边界匹配
func (t *GlossaryTerm) IsProperNoun() bool {
	switch TermType(t.TermType) {
	case TermTypeCharacter, TermTypePlace, TermTypeOrganization:
		return true
	}
	return false
}
