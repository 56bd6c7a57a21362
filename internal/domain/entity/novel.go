// Package entity 定义领域实体
package entity

import (
	"time"
)

// NovelStatus 小说状态
type NovelStatus string

const (
	NovelStatusOngoing   NovelStatus = "ongoing"
	NovelStatusCompleted NovelStatus = "completed"
	NovelStatusPaused    NovelStatus = "paused"
)

// Novel 小说实体
type Novel struct {
	ID          int64       `json:"id" gorm:"primaryKey;autoIncrement"`
	Title       string      `json:"title" gorm:"type:varchar(500);not null"`
	SourceURL   string      `json:"source_url,omitempty" gorm:"type:varchar(1000);uniqueIndex"`
	Description string      `json:"description,omitempty" gorm:"type:text"`
	Author      string      `json:"author,omitempty" gorm:"type:varchar(200)"`
	Status      NovelStatus `json:"status" gorm:"type:varchar(50);default:'ongoing'"`
	CreatedAt   time.Time   `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time   `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Novel) TableName() string {
	return "novels"
}

// NewNovel 创建新小说
func NewNovel(title, sourceURL string) *Novel {
	now := time.Now()
	return &Novel{
		Title:     title,
		SourceURL: sourceURL,
		Status:    NovelStatusOngoing,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
