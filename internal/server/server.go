package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"poll-service/config"
	"poll-service/internal/handler"
	"poll-service/internal/middleware"
	"poll-service/internal/transport/httpdto"
	"poll-service/internal/websocket"
	"poll-service/pkg/logger"

	"github.com/gin-gonic/gin"
)

type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	config     *config.Config
	logger     *logger.Logger
}

var (
	ReleaseMode = "release"
	DebugMode   = "debug"
	TestMode    = "test"
)

type Handlers struct {
	Poll      *handler.PollHandler
	WebSocket *websocket.Handler
}

// HealthCheck reports whether a backing dependency is reachable.
type HealthCheck func(ctx context.Context) error

func New(cfg *config.Config, l *logger.Logger) *Server {
	if l == nil {
		l = logger.NewNop()
	}
	if cfg.AppMode == ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	} else if cfg.AppMode == TestMode {
		gin.SetMode(gin.TestMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%s", cfg.AppPort),
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
		engine: engine,
		config: cfg,
		logger: l,
	}
}

// Handler exposes the engine, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// SetupRoutes registers every route. limiter and health may be nil.
func (s *Server) SetupRoutes(handlers *Handlers, limiter middleware.VoteLimiter, health HealthCheck) {
	s.engine.Use(middleware.RequestIDMiddleware())
	s.engine.Use(middleware.CORSMiddleware())
	s.engine.Use(middleware.LoggingMiddleware(s.logger))
	s.engine.Use(middleware.ErrorHandler(s.logger))

	s.engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"message": "pong"}))
	})

	s.engine.GET("/health", func(c *gin.Context) {
		if health != nil {
			if err := health(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, httpdto.NewErrorResponse(err.Error(), "UNHEALTHY"))
				return
			}
		}
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"status": "healthy"}))
	})

	api := s.engine.Group("/api")
	{
		api.POST("/add", handlers.Poll.Add)
		api.GET("/get", handlers.Poll.Get)
		api.GET("/list", handlers.Poll.List)
		api.POST("/vote", middleware.VoteRateLimitMiddleware(limiter, s.logger), handlers.Poll.Vote)
		api.POST("/delete", handlers.Poll.Delete)
		if handlers.WebSocket != nil {
			api.GET("/ws", handlers.WebSocket.Connect)
		}
	}

	// test hooks are only reachable when the service runs in test mode
	if s.config.AppMode == TestMode {
		test := api.Group("/test")
		{
			test.POST("/reset", handlers.Poll.Reset)
			test.POST("/advance", handlers.Poll.Advance)
		}
	}
}

// Start serves until ctx is cancelled or the process receives SIGINT or
// SIGTERM, then drains in-flight requests for up to five seconds.
func (s *Server) Start(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		s.logger.Infof("Server is listening on :%s", s.config.AppPort)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err, ok := <-errc:
		if ok {
			return fmt.Errorf("listen on :%s: %w", s.config.AppPort, err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Infof("Shutdown requested, draining connections")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	s.logger.Infof("Server stopped gracefully")
	return nil
}
