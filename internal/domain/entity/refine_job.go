// Package entity 定义领域实体
package entity

import (
	"time"
)

// JobStatus 批量任务状态
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusCancelled JobStatus = "cancelled"
	JobStatusFailed    JobStatus = "failed"
)

// IsTerminal 判断状态是否为终态
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusCancelled, JobStatusFailed:
		return true
	}
	return false
}

// RefineJob 批量润色任务
// 同一小说同一时间最多一个非终态任务
type RefineJob struct {
	ID              int64      `json:"id" gorm:"primaryKey;autoIncrement"`
	NovelID         int64      `json:"novel_id" gorm:"index;not null"`
	ChapterIDs      []int64    `json:"chapter_ids" gorm:"type:jsonb;serializer:json"`
	UseGlossary     bool       `json:"use_glossary" gorm:"default:true"`
	Status          JobStatus  `json:"status" gorm:"type:varchar(20);default:'pending';index"`
	TotalChapters   int        `json:"total_chapters" gorm:"default:0"`
	SucceededCount  int        `json:"succeeded_count" gorm:"default:0"`
	FailedCount     int        `json:"failed_count" gorm:"default:0"`
	Progress        int        `json:"progress" gorm:"default:0"` // 0-100
	CancelRequested bool       `json:"cancel_requested" gorm:"default:false"`
	ErrorMessage    string     `json:"error_message,omitempty" gorm:"type:text"`
	CreatedAt       time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt       time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

// TableName 指定表名
func (RefineJob) TableName() string {
	return "refine_jobs"
}

// NewRefineJob 创建新批量任务
func NewRefineJob(novelID int64, chapterIDs []int64, useGlossary bool) *RefineJob {
	return &RefineJob{
		NovelID:       novelID,
		ChapterIDs:    chapterIDs,
		UseGlossary:   useGlossary,
		Status:        JobStatusPending,
		TotalChapters: len(chapterIDs),
		CreatedAt:     time.Now(),
	}
}

// Start 标记任务开始执行
func (j *RefineJob) Start() {
	now := time.Now()
	j.Status = JobStatusRunning
	j.StartedAt = &now
	j.UpdatedAt = now
}

// RecordOutcome 记录单章处理结果并推进进度
func (j *RefineJob) RecordOutcome(success bool) {
	if success {
		j.SucceededCount++
	} else {
		j.FailedCount++
	}
	if j.TotalChapters > 0 {
		p := (j.SucceededCount + j.FailedCount) * 100 / j.TotalChapters
		if p > j.Progress {
			j.Progress = p
		}
	}
	j.UpdatedAt = time.Now()
}

// Complete 标记任务完成
func (j *RefineJob) Complete() {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.Progress = 100
	j.CompletedAt = &now
	j.UpdatedAt = now
}

// Cancel 标记任务已取消
func (j *RefineJob) Cancel() {
	now := time.Now()
	j.Status = JobStatusCancelled
	j.CompletedAt = &now
	j.UpdatedAt = now
}

// Fail 标记任务失败
func (j *RefineJob) Fail(errMsg string) {
	now := time.Now()
	j.Status = JobStatusFailed
	j.ErrorMessage = errMsg
	j.CompletedAt = &now
	j.UpdatedAt = now
}
