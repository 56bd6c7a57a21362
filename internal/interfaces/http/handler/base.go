// Package handler 提供 HTTP 请求处理器
package handler

import (
	"github.com/gin-gonic/gin"

	"mtl-refine-api/internal/interfaces/http/dto"
)

// bindJSON 绑定 JSON 请求体，失败时写出 400 响应
func bindJSON(c *gin.Context, target interface{}) bool {
	if err := c.ShouldBindJSON(target); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// requireID 绑定 URI 中的资源 ID，非法时写出 400 响应
func requireID(c *gin.Context) (int64, bool) {
	id, ok := dto.BindID(c)
	if !ok {
		dto.BadRequest(c, "invalid id")
	}
	return id, ok
}

// requireNovelID 绑定 URI 中的小说 ID，非法时写出 400 响应
func requireNovelID(c *gin.Context) (int64, bool) {
	id, ok := dto.BindNovelID(c)
	if !ok {
		dto.BadRequest(c, "invalid novel id")
	}
	return id, ok
}

// requireJobID 绑定 URI 中的任务 ID，非法时写出 400 响应
func requireJobID(c *gin.Context) (int64, bool) {
	id, ok := dto.BindJobID(c)
	if !ok {
		dto.BadRequest(c, "invalid job id")
	}
	return id, ok
}
