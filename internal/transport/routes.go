package transport

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wb-go/wbf/ginext"
)

// RegisterRoutes mounts the job API on engine. metricsHandler may be nil.
func RegisterRoutes(engine *ginext.Engine, h *JobHandler, metricsHandler http.Handler, mw ...gin.HandlerFunc) {
	engine.Use(mw...)

	engine.GET("/ping", h.SimplePinger)
	engine.POST("/jobs", h.Create)                 // создание задачи
	engine.GET("/jobs", h.GetAllJobs)              // список задач с пагинацией и сортировкой
	engine.GET("/jobs/:id", h.GetJob)              // метаданные задачи
	engine.GET("/jobs/:id/result", h.LoadResult)   // результат или оригинал
	engine.GET("/jobs/:id/preview", h.LoadPreview) // предпросмотр в окне
	engine.DELETE("/jobs/:id", h.Delete)           // удаление
	engine.GET("/fonts", h.Fonts)
	engine.GET("/anchors", h.Anchors)

	if metricsHandler != nil {
		engine.GET("/metrics", gin.WrapH(metricsHandler))
	}
}
