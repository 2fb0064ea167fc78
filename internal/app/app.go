package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/modeyang/M-TraeSoloProduct/cmd/server/docs" // swagger docs
	generationhttp "github.com/modeyang/M-TraeSoloProduct/internal/adapter/inbound/http/generation"
	"github.com/modeyang/M-TraeSoloProduct/internal/domain/generation"
	"github.com/modeyang/M-TraeSoloProduct/internal/infra/config"
	"github.com/modeyang/M-TraeSoloProduct/internal/infra/events"
	"github.com/modeyang/M-TraeSoloProduct/internal/infra/session"
	"github.com/modeyang/M-TraeSoloProduct/internal/port/outbound"
	"github.com/modeyang/M-TraeSoloProduct/internal/shared/metrics"
	"github.com/modeyang/M-TraeSoloProduct/internal/shared/middleware"
)

// Dependencies holds all injected dependencies.
type Dependencies struct {
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *metrics.Metrics

	EventBus        *events.Bus
	Redis           goredis.UniversalClient
	StatusPublisher outbound.StatusPublisherPort
	UploadStore     outbound.UploadStorePort

	Describer      generation.Describer
	Generator      generation.Generator
	SessionManager *session.Manager

	GenerationHandler *generationhttp.Handler
}

// App represents the application.
type App struct {
	deps    *Dependencies
	router  *gin.Engine
	cleanup func()
}

// New creates a new application instance.
func New(cfg *config.Config) (*App, error) {
	deps, cleanup, err := InitializeDependencies(cfg)
	if err != nil {
		return nil, fmt.Errorf("init dependencies: %w", err)
	}

	app := &App{deps: deps, cleanup: cleanup}
	app.registerEventHandlers()
	app.router = app.setupRouter()

	if err := deps.SessionManager.Start(context.Background()); err != nil {
		cleanup()
		return nil, fmt.Errorf("start session manager: %w", err)
	}

	deps.Logger.Info("application initialized",
		zap.Bool("redis", deps.StatusPublisher != nil),
		zap.Bool("storage", deps.UploadStore != nil),
		zap.Bool("gemini", cfg.Gemini.Enabled()),
		zap.Float64("failure_rate", cfg.Generation.FailureRate),
	)
	return app, nil
}

// registerEventHandlers registers all session event handlers.
func (a *App) registerEventHandlers() {
	a.deps.EventBus.Register(NewExecutionRecorder(a.deps.Metrics))
	if a.deps.StatusPublisher != nil {
		a.deps.EventBus.Register(NewStatusBroadcaster(a.deps.StatusPublisher, a.deps.Logger))
	}
}

// setupRouter creates and configures the Gin router.
func (a *App) setupRouter() *gin.Engine {
	cfg := a.deps.Config
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}

	r := gin.New()

	// Apply global middleware
	r.Use(middleware.Recovery(a.deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logging(a.deps.Logger))
	r.Use(middleware.Metrics(a.deps.Metrics))

	corsConfig := middleware.DefaultCORSConfig()
	if len(cfg.CORS.AllowOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.CORS.AllowOrigins
	}
	r.Use(middleware.CORS(corsConfig))

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, gin.WrapH(a.deps.Metrics.Handler()))
	}

	// Swagger documentation endpoint
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))

	v1 := r.Group("/api/v1")
	a.deps.GenerationHandler.RegisterRoutes(v1)

	return r
}

// Router returns the HTTP router.
func (a *App) Router() *gin.Engine {
	return a.router
}

// Logger returns the application logger.
func (a *App) Logger() *zap.Logger {
	return a.deps.Logger
}

// Stop closes every session and releases external clients.
func (a *App) Stop() {
	a.deps.Logger.Info("stopping application")
	a.cleanup()
}
