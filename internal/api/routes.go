package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// allowedHeaders mirrors what the browser client sends across origins.
const allowedHeaders = "authorization, x-client-info, apikey, content-type"

// cors applies permissive cross-origin headers to every response and
// answers preflight requests with an empty 200. The calling origin always
// differs from the handlers' origin.
func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Headers", allowedHeaders)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	}
}

func RegisterRoutes(r *gin.Engine, s *Server) {
	r.Use(cors())

	api := r.Group("/api")
	{
		api.GET("/health", health)
		api.GET("/images", s.listImagesHandler)
		api.POST("/images", s.listImagesHandler)
		api.GET("/proxy", s.proxyHandler)
		api.POST("/compose", s.composeHandler)

		api.POST("/preview", s.previewCreateHandler)
		api.GET("/preview/:id", s.previewImageHandler)
		api.PUT("/preview/:id", s.previewUpdateHandler)
		api.POST("/preview/:id/resize", s.previewResizeHandler)
		api.DELETE("/preview/:id", s.previewDeleteHandler)

		api.POST("/preview/:id/save", s.exportSaveHandler)
		api.POST("/preview/:id/share", s.exportShareHandler)
		api.GET("/share/:id", s.shareGetHandler)
		api.GET("/share/:id/qr", s.shareQRHandler)

		api.GET("/draft", s.draftGetHandler)
		api.PUT("/draft", s.draftPutHandler)
	}
}
