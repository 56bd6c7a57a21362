package dto

// CreateNovelRequest 创建小说请求
type CreateNovelRequest struct {
	Title       string `json:"title" binding:"required,max=500"`
	SourceURL   string `json:"source_url,omitempty" binding:"max=1000"`
	Description string `json:"description,omitempty"`
	Author      string `json:"author,omitempty" binding:"max=200"`
}

// UpdateNovelRequest 更新小说请求，空字段保持不变
type UpdateNovelRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Author      *string `json:"author,omitempty"`
	Status      *string `json:"status,omitempty"`
}

// CreateChapterRequest 创建章节请求
type CreateChapterRequest struct {
	ChapterNumber int    `json:"chapter_number" binding:"required,min=1"`
	Title         string `json:"title,omitempty" binding:"max=500"`
	Content       string `json:"content" binding:"required"`
}

// UpdateChapterRequest 更新章节请求
// RefinedContent 非空表示人工修订润色稿
type UpdateChapterRequest struct {
	Title           *string `json:"title,omitempty"`
	OriginalContent *string `json:"original_content,omitempty"`
	RefinedContent  *string `json:"refined_content,omitempty"`
}
