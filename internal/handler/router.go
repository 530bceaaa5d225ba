package handler

import (
	"net/http"
	"runtime/debug"

	"ngramlm/internal/controller"
	"ngramlm/pkg/mcp"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func SetupRouter(ngramController *controller.NGramController, mcpServer *mcp.NGramMCPServer, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(CustomRecoveryMiddleware(logger))
	router.Use(LoggerMiddleware(logger))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", func(c *gin.Context) {
			c.JSON(200, gin.H{
				"status": "healthy",
			})
		})

		models := v1.Group("/models")
		models.GET("", ngramController.ListModels)
		models.POST("", ngramController.TrainModel)
		models.GET("/:name", ngramController.GetModel)
		models.DELETE("/:name", ngramController.DeleteModel)
		models.POST("/:name/save", ngramController.SaveModel)
		models.POST("/:name/load", ngramController.LoadModel)
		models.POST("/:name/score", ngramController.ScoreSentence)
		models.POST("/:name/generate", ngramController.GenerateSentences)
		models.POST("/:name/evaluate", ngramController.EvaluateModel)
		models.GET("/:name/distribution", ngramController.GetDistribution)
	}

	if mcpServer != nil {
		mcpServer.SetupHTTPRoutes(router)
	}

	return router
}

func LoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		logger.Info("HTTP Request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

func CustomRecoveryMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("Panic recovered",
					zap.Any("error", err),
					zap.String("stack", string(debug.Stack())),
					zap.String("path", c.Request.URL.Path),
					zap.String("method", c.Request.Method),
				)
				c.JSON(http.StatusInternalServerError, gin.H{
					"error": "Internal server error",
				})
				c.Abort()
			}
		}()
		c.Next()
	}
}
