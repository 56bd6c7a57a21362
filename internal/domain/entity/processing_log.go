// Package entity 定义领域实体
package entity

import (
	"time"
)

// ProcessingType 处理类型
type ProcessingType string

const (
	ProcessingTypeRefinement      ProcessingType = "refinement"
	ProcessingTypeBatchRefinement ProcessingType = "batch_refinement"
	ProcessingTypeManualEdit      ProcessingType = "manual_edit"
)

// ProcessingLog 章节处理日志，仅追加
type ProcessingLog struct {
	ID             int64          `json:"id" gorm:"primaryKey;autoIncrement"`
	ChapterID      int64          `json:"chapter_id" gorm:"index;not null"`
	NovelID        int64          `json:"novel_id" gorm:"index;not null"`
	ProcessingType ProcessingType `json:"processing_type" gorm:"type:varchar(50);not null"`
	ChangesMade    string         `json:"changes_made,omitempty" gorm:"type:text"`
	ProcessingTime float64        `json:"processing_time,omitempty"`
	Success        bool           `json:"success" gorm:"default:true"`
	ErrorMessage   string         `json:"error_message,omitempty" gorm:"type:text"`
	CreatedAt      time.Time      `json:"created_at" gorm:"autoCreateTime"`
}

// TableName 指定表名
func (ProcessingLog) TableName() string {
	return "processing_logs"
}

// NewSuccessLog 创建成功日志
func NewSuccessLog(chapterID, novelID int64, pt ProcessingType, changes string, seconds float64) *ProcessingLog {
	return &ProcessingLog{
		ChapterID:      chapterID,
		NovelID:        novelID,
		ProcessingType: pt,
		ChangesMade:    changes,
		ProcessingTime: seconds,
		Success:        true,
		CreatedAt:      time.Now(),
	}
}

// NewFailureLog 创建失败日志
func NewFailureLog(chapterID, novelID int64, pt ProcessingType, errMsg string) *ProcessingLog {
	return &ProcessingLog{
		ChapterID:      chapterID,
		NovelID:        novelID,
		ProcessingType: pt,
		Success:        false,
		ErrorMessage:   errMsg,
		CreatedAt:      time.Now(),
	}
}
