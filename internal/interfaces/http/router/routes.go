package router

import (
	"mtl-refine-api/internal/interfaces/http/handler"

	"github.com/gin-gonic/gin"
)

// RegisterV1Routes 注册 v1 版本 API 路由
func RegisterV1Routes(
	v1 *gin.RouterGroup,
	novelHandler *handler.NovelHandler,
	glossaryHandler *handler.GlossaryHandler,
	refineHandler *handler.RefineHandler,
) {
	// 小说与章节管理
	novels := v1.Group("/novels")
	{
		novels.POST("", novelHandler.Create)
		novels.GET("", novelHandler.List)
		novels.GET("/:id", novelHandler.Get)
		novels.PUT("/:id", novelHandler.Update)
		novels.DELETE("/:id", novelHandler.Delete)

		novels.POST("/:id/chapters", novelHandler.CreateChapter)
		novels.GET("/:id/chapters", novelHandler.ListChapters)
	}

	chapters := v1.Group("/chapters")
	{
		chapters.GET("/:id", novelHandler.GetChapter)
		chapters.PUT("/:id", novelHandler.UpdateChapter)
	}

	// 词汇表管理
	glossary := v1.Group("/glossary")
	{
		glossary.POST("/terms", glossaryHandler.CreateTerm)
		glossary.GET("/terms", glossaryHandler.ListTerms)
		glossary.GET("/terms/:id", glossaryHandler.GetTerm)
		glossary.PUT("/terms/:id", glossaryHandler.UpdateTerm)
		glossary.PUT("/terms/:id/activate", glossaryHandler.ActivateTerm)
		glossary.PUT("/terms/:id/deactivate", glossaryHandler.DeactivateTerm)
		glossary.POST("/bulk-import", glossaryHandler.BulkImport)
		glossary.GET("/export/:nid", glossaryHandler.Export)
		glossary.GET("/term-types/:nid", glossaryHandler.TermTypes)
	}

	// 润色与批量处理
	refine := v1.Group("/refine")
	{
		refine.POST("/text", refineHandler.RefineText)
		refine.POST("/chapter", refineHandler.RefineChapter)
		refine.POST("/batch", refineHandler.BatchRefine)
		refine.GET("/status/:nid", refineHandler.Status)
		refine.GET("/context/:nid", refineHandler.Context)
		refine.GET("/jobs/:jid", refineHandler.GetJob)
		refine.DELETE("/jobs/:jid", refineHandler.CancelJob)
	}
}
