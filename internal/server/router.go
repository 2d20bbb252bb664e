package server

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/yungbote/courselive-backend/internal/handlers"
	"github.com/yungbote/courselive-backend/internal/middleware"
)

type RouterConfig struct {
	ServiceName       string
	AllowedOrigins    string
	AuthHandler       *handlers.AuthHandler
	AuthMiddleware    *middleware.AuthMiddleware
	SessionHandler    *handlers.SessionHandler
	SubmissionHandler *handlers.SubmissionHandler
	ProgressHandler   *handlers.ProgressHandler
	RealtimeHandler   *handlers.RealtimeHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()
	router.Use(otelgin.Middleware(cfg.ServiceName))

	origins := []string{"http://localhost:3000", "http://localhost:5173"}
	if cfg.AllowedOrigins != "" {
		origins = strings.Split(cfg.AllowedOrigins, ",")
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", handlers.HealthCheck)
	router.POST("/register", cfg.AuthHandler.Register)
	router.POST("/login", cfg.AuthHandler.Login)

	// ===============
	// || Protected ||
	// ===============
	protected := router.Group("/api")
	protected.Use(cfg.AuthMiddleware.RequireAuth())
	// Sessions
	protected.POST("/sessions", cfg.SessionHandler.Create)
	protected.GET("/sessions", cfg.SessionHandler.List)
	protected.POST("/sessions/test", cfg.SessionHandler.StartTestRun)
	protected.GET("/sessions/:id", cfg.SessionHandler.GetSnapshot)
	protected.POST("/sessions/:id/commands", cfg.SessionHandler.Command)
	protected.POST("/sessions/:id/join", cfg.SessionHandler.Join)
	protected.GET("/sessions/:id/stream", cfg.RealtimeHandler.Stream)
	protected.GET("/sessions/:id/analytics", cfg.ProgressHandler.GetSessionAnalytics)
	// Submissions
	protected.POST("/submissions", cfg.SubmissionHandler.Submit)
	// Lesson progress
	protected.GET("/lessons/:id/progress", cfg.ProgressHandler.GetLessonProgress)
	protected.POST("/lessons/:id/reset", cfg.ProgressHandler.ResetLessonProgress)

	return router
}
