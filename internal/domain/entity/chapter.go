// Package entity 定义领域实体
package entity

import (
	"strconv"
	"strings"
	"time"
)

// Chapter 章节实体
type Chapter struct {
	ID              int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	NovelID         int64     `json:"novel_id" gorm:"index;not null"`
	ChapterNumber   int       `json:"chapter_number" gorm:"not null"`
	Title           string    `json:"title,omitempty" gorm:"type:varchar(500)"`
	OriginalContent string    `json:"original_content" gorm:"type:text;not null"`
	RefinedContent  string    `json:"refined_content,omitempty" gorm:"type:text"`
	IsProcessed     bool      `json:"is_processed" gorm:"default:false"`
	WordCount       int       `json:"word_count" gorm:"default:0"`
	CreatedAt       time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt       time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Chapter) TableName() string {
	return "chapters"
}

// NewChapter 创建新章节
func NewChapter(novelID int64, chapterNumber int, title, content string) *Chapter {
	now := time.Now()
	c := &Chapter{
		NovelID:       novelID,
		ChapterNumber: chapterNumber,
		Title:         title,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	c.SetOriginalContent(content)
	return c
}

// SetOriginalContent 设置原始内容并更新字数
func (c *Chapter) SetOriginalContent(content string) {
	c.OriginalContent = content
	c.WordCount = countWords(content)
	c.UpdatedAt = time.Now()
}

// MarkRefined 写入润色结果并标记为已处理
func (c *Chapter) MarkRefined(refined string) {
	c.RefinedContent = refined
	c.IsProcessed = true
	c.UpdatedAt = time.Now()
}

// DisplayTitle 返回展示用标题
func (c *Chapter) DisplayTitle() string {
	if c.Title != "" {
		return c.Title
	}
	return "Chapter " + strconv.Itoa(c.ChapterNumber)
}

// BestContent 返回用于分析的文本：优先润色稿，其次原文
func (c *Chapter) BestContent() string {
	if c.IsProcessed && c.RefinedContent != "" {
		return c.RefinedContent
	}
	return c.OriginalContent
}

func countWords(s string) int {
	return len(strings.Fields(s))
}
