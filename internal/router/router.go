package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/gradebook/internal/config"
	"github.com/stemsi/gradebook/internal/handler"
	"github.com/stemsi/gradebook/internal/middleware"
	"github.com/stemsi/gradebook/internal/response"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Semester   *handler.SemesterHandler
	Subject    *handler.SubjectHandler
	Assessment *handler.AssessmentHandler
	Setting    *handler.SettingHandler
	System     *handler.SystemHandler
}

// SetupRouter configures the Gin engine and all routes.
func SetupRouter(handlers *Handlers, cfg *config.Config, log zerolog.Logger) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// Subject titles may contain "/", sent percent-encoded.
	router.UseRawPath = true

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", response.HeaderRequestID}
	corsConfig.ExposeHeaders = []string{response.HeaderRequestID, "Content-Disposition"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(response.RequestIDMiddleware())
	router.Use(middleware.RequestLogger(log.With().Str("component", "http").Logger()))
	router.Use(middleware.Brotli())

	router.GET("/health", handlers.System.Health)

	api := router.Group("/api/v1")
	api.Use(middleware.NoStore())

	// ─── Semesters ─────────────────────────────────────────────────────
	semesters := api.Group("/semesters")
	{
		semesters.GET("", handlers.Semester.List)
		semesters.POST("", handlers.Semester.Create)
		semesters.POST("/open", handlers.Semester.Open)
		semesters.PUT("/active", handlers.Semester.Rename)
		semesters.DELETE("/active", handlers.Semester.Delete)
		semesters.GET("/active/export", handlers.Semester.Export)
		semesters.PUT("/active/import", handlers.Semester.Import)
	}

	// ─── Settings ──────────────────────────────────────────────────────
	settings := api.Group("/settings")
	{
		settings.GET("/pass-mark", handlers.Setting.GetPassMark)
		settings.PUT("/pass-mark", handlers.Setting.UpdatePassMark)
	}

	// ─── Subjects & assessments ────────────────────────────────────────
	subjects := api.Group("/subjects")
	{
		subjects.GET("", handlers.Subject.GetAll)
		subjects.POST("", handlers.Subject.Create)
		subjects.GET("/:title", handlers.Subject.Get)
		subjects.PUT("/:title", handlers.Subject.Rename)
		subjects.DELETE("/:title", handlers.Subject.Delete)
		subjects.GET("/:title/stats", handlers.Subject.Stats)

		subjects.POST("/:title/assessments", handlers.Assessment.Create)
		subjects.PUT("/:title/assessments/:index", handlers.Assessment.Update)
		subjects.DELETE("/:title/assessments/:index", handlers.Assessment.Delete)
	}

	return router
}
