package dto

// RefineTextRequest 文本润色请求
type RefineTextRequest struct {
	Text        string `json:"text" binding:"required"`
	UseGlossary bool   `json:"use_glossary"`
	NovelID     int64  `json:"novel_id,omitempty"`
}

// RefineChapterRequest 章节润色请求
type RefineChapterRequest struct {
	ChapterID   int64 `json:"chapter_id" binding:"required,min=1"`
	UseGlossary bool  `json:"use_glossary"`
}

// BatchRefineRequest 批量润色请求
type BatchRefineRequest struct {
	NovelID     int64   `json:"novel_id" binding:"required,min=1"`
	ChapterIDs  []int64 `json:"chapter_ids,omitempty"`
	UseGlossary bool    `json:"use_glossary"`
}

// BatchAckResponse 批量润色受理响应
type BatchAckResponse struct {
	JobID         int64  `json:"job_id"`
	NovelID       int64  `json:"novel_id"`
	Status        string `json:"status"`
	TotalChapters int    `json:"total_chapters"`
	Message       string `json:"message"`
}
