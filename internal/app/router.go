package app

import (
	"limit_backend/docs"
	"limit_backend/internal/config"
	"limit_backend/internal/middleware"
	"limit_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	api := router.Group("/api")
	{
		api.GET("/health", c.health.HealthCheck)
		api.POST("/auth/login", c.auth.Login)

		// 答题端，无需登录
		api.GET("/home", c.session.Home)
		api.GET("/theme", c.settings.GetTheme)
		api.POST("/modules/:id/session", c.session.Start)
		api.GET("/modules/:id/scores", c.session.ViewScores)
		api.GET("/sessions/:sid/next", c.session.Next)
		api.POST("/sessions/:sid/answer", c.session.Answer)
		api.POST("/sessions/:sid/exit", c.session.Exit)
	}

	// 运营端
	admin := router.Group("/api/admin")
	admin.Use(middleware.AuthMiddleware(cfg))
	{
		admin.POST("/questions", c.question.Create)
		admin.GET("/questions", c.question.List)
		admin.GET("/questions/:id", c.question.Get)
		admin.PUT("/questions/:id", c.question.Update)
		admin.DELETE("/questions/:id", c.question.Delete)

		admin.POST("/modules", c.module.Create)
		admin.GET("/modules", c.module.List)
		admin.GET("/modules/:id", c.module.Get)
		admin.PUT("/modules/:id", c.module.Update)
		admin.DELETE("/modules/:id", c.module.Delete)
		admin.POST("/modules/:id/lock", c.module.ToggleLock)
		admin.POST("/modules/:id/restart", c.module.Restart)
		admin.GET("/modules/:id/questions", c.module.Questions)

		admin.GET("/export", c.transfer.ExportAll)
		admin.GET("/export/modules/:id", c.transfer.ExportModule)
		admin.GET("/export/questions/:id", c.transfer.ExportQuestion)
		admin.POST("/import", c.transfer.ImportAll)
		admin.POST("/backup", c.transfer.Backup)

		admin.PUT("/theme", c.settings.SetTheme)
	}
}
