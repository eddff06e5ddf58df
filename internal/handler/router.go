package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-reading-log/internal/middleware"
	"github.com/noah-isme/sma-reading-log/internal/service"
	"github.com/noah-isme/sma-reading-log/internal/session"
	"github.com/noah-isme/sma-reading-log/internal/sheetapi"
	"github.com/noah-isme/sma-reading-log/internal/view"
	"github.com/noah-isme/sma-reading-log/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-reading-log/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-reading-log/pkg/middleware/requestid"
)

// RouterDeps collects everything the HTTP surface needs.
type RouterDeps struct {
	Logger         *zap.Logger
	Metrics        *service.MetricsService
	Renderer       *view.Renderer
	API            sheetapi.API
	Registry       *session.Registry
	DeviceCodec    *session.DeviceCodec
	SessionOptions middleware.SessionOptions
	Exporter       historyExporter
	LoginLimiter   loginLimiter
	// Script is nil unless the self-hosted script endpoint is enabled.
	Script          *ScriptHandler
	ReadinessChecks map[string]ReadinessCheck
	AllowedOrigins  []string
	DefaultPassword string
	EnableDocs      bool
}

// NewRouter builds the gin engine serving the views, the optional script
// endpoint and the operational endpoints.
func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(deps.Logger, "/health", "/ready", "/metrics"))
	r.Use(middleware.Metrics(deps.Metrics))
	r.HTMLRender = deps.Renderer

	ops := NewMetricsHandler(deps.Metrics, deps.ReadinessChecks)
	r.GET("/health", ops.Health)
	r.GET("/ready", ops.Ready)
	r.GET("/metrics", ops.Prometheus)
	if deps.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	if deps.Script != nil {
		exec := r.Group("/exec", corsmiddleware.New(deps.AllowedOrigins))
		exec.GET("", deps.Script.Get)
		exec.POST("", deps.Script.Post)
		exec.OPTIONS("", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	}

	login := NewLoginHandler(deps.API, deps.LoginLimiter, deps.DefaultPassword, deps.Logger)
	dashboard := NewDashboardHandler()
	bookForm := NewBookFormHandler(deps.API)
	history := NewHistoryHandler(deps.Exporter)
	ranking := NewRankingHandler(deps.API)

	pages := r.Group("", middleware.Session(deps.Registry, deps.DeviceCodec, deps.SessionOptions, deps.Logger))
	pages.GET("/login", middleware.RedirectIfAuthenticated(), login.Show)
	pages.POST("/login", middleware.RedirectIfAuthenticated(), login.Submit)
	pages.POST("/logout", login.Logout)

	gated := pages.Group("", middleware.RequireStudent())
	gated.GET("/", dashboard.Show)
	gated.GET("/add", bookForm.Show)
	gated.POST("/add", bookForm.Submit)
	gated.GET("/history", history.Show)
	gated.GET("/history/export", history.Export)
	gated.GET("/ranking", ranking.Show)

	r.NoRoute(func(c *gin.Context) {
		c.Redirect(http.StatusSeeOther, "/")
	})

	return r
}
