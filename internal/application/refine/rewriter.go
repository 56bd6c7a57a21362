// Package refine 提供章节润色引擎与批量编排
package refine

import (
	"context"
)

// Edit 改写服务返回的单项修改
type Edit struct {
	Category    string `json:"category"`
	Description string `json:"description"`
}

// RewriteResult 改写服务返回结果
type RewriteResult struct {
	Text  string `json:"text"`
	Edits []Edit `json:"edits"`
	// Confidence 服务自报的置信度，可能缺失
	Confidence *float64 `json:"confidence,omitempty"`
}

// Rewriter 外部自然语言改写能力接口
// novelID 用于按小说限流，纯文本请求可传 0
type Rewriter interface {
	Rewrite(ctx context.Context, novelID int64, text string) (*RewriteResult, error)
}
