// Package http provides the local browser bridge.
// It exposes one intake + chat session as JSON routes and an SSE event stream.
package http

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/0xcro3dile/medicai-go/internal/domain/entities"
	"github.com/0xcro3dile/medicai-go/internal/domain/ports"
	"github.com/0xcro3dile/medicai-go/internal/domain/usecases"
)

// Server is the HTTP bridge for one session.
type Server struct {
	intake *usecases.IntakeController
	chat   *usecases.ChatSession
	loader ports.FileLoader
	events *eventBus
	logger *zap.Logger
	addr   string
	engine *gin.Engine

	stageDir string
	stageMu  sync.Mutex
	staged   string
}

// NewServer creates the bridge and subscribes it to the session.
func NewServer(
	intake *usecases.IntakeController,
	chat *usecases.ChatSession,
	loader ports.FileLoader,
	addr string,
	logger *zap.Logger,
) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("bridge")

	stageDir, err := os.MkdirTemp("", "medicai-stage-")
	if err != nil {
		return nil, err
	}

	s := &Server{
		intake:   intake,
		chat:     chat,
		loader:   loader,
		events:   newEventBus(logger),
		logger:   logger,
		addr:     addr,
		stageDir: stageDir,
	}
	intake.Subscribe(s.events)
	intake.Subscribe(usecases.IntakeListenerFuncs{
		OnReady: func(entities.Document) { s.replaceStaged("") },
	})
	chat.Subscribe(s.events.messageAppended)

	s.engine = s.routes()
	return s, nil
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), loggingMiddleware(s.logger), corsMiddleware())

	api := r.Group("/api")
	api.GET("/health", s.handleHealth)
	api.GET("/state", s.handleState)
	api.GET("/events", s.handleEvents)

	api.POST("/intake/file", s.handleSelectFile)
	api.POST("/intake/submit", s.handleSubmit)
	api.DELETE("/intake", s.handleClear)

	api.GET("/chat/messages", s.handleMessages)
	api.POST("/chat/messages", s.handleSend)
	return r
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start runs the HTTP server until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:        s.addr,
		Handler:     s.engine,
		ReadTimeout: 30 * time.Second,
		// no WriteTimeout: uploads and event streams are long-lived
	}

	s.logger.Info("bridge listening", zap.String("addr", s.addr))

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("bridge shutdown", zap.Error(err))
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close stops the event bus and removes staged uploads.
func (s *Server) Close() error {
	err := s.events.close()
	if rmErr := os.RemoveAll(s.stageDir); rmErr != nil && err == nil {
		err = rmErr
	}
	return err
}

func loggingMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)),
		)
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	}
}
