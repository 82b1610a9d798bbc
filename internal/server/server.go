// Package server отдает извлечение статей по HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"browsir/internal/agent"
	"browsir/internal/config"
	"browsir/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const msgNoContent = "No article content found on the page"

// Extractor извлекает статью по URL. Реализуется *agent.Agent.
type Extractor interface {
	Extract(ctx context.Context, url string) (*agent.Article, error)
}

type Server struct {
	cfg       *config.Cfg
	log       *logger.Zap
	extractor Extractor
	router    *gin.Engine
}

type extractRequest struct {
	URL string `json:"url" binding:"required"`
}

type extractResponse struct {
	Success bool           `json:"success"`
	Data    *agent.Article `json:"data,omitempty"`
	Error   string         `json:"error,omitempty"`
}

func New(cfg *config.Cfg, log *logger.Zap, extractor Extractor) *Server {
	if cfg.Logger.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		cfg:       cfg,
		log:       log,
		extractor: extractor,
	}
	s.router = s.routes()
	return s
}

// Handler возвращает роутер; удобно для httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.cors())
	r.Use(s.requestLog())

	r.GET("/health", s.handleHealth)
	r.POST("/extract", s.handleExtract)

	return r
}

// Run слушает адрес из конфигурации до отмены ctx, затем мягко гасит сервер.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%s", s.cfg.App.Host, s.cfg.App.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.Info("Сервер запущен", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http сервер: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		s.log.Info("Остановка сервера")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func (s *Server) cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Info("HTTP",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)))
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleExtract(c *gin.Context) {
	var req extractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, extractResponse{Error: "url is required"})
		return
	}

	ctx := c.Request.Context()
	if s.cfg.App.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.App.RequestTimeout)
		defer cancel()
	}

	article, err := s.extractor.Extract(ctx, req.URL)
	if err != nil {
		status, msg := statusFor(err)
		if status >= http.StatusInternalServerError {
			s.log.Error("Ошибка извлечения", zap.String("url", req.URL), zap.Int("status", status), zap.Error(err))
		}
		c.JSON(status, extractResponse{Error: msg})
		return
	}

	c.JSON(http.StatusOK, extractResponse{Success: true, Data: article})
}

// statusFor переводит ошибку агента в HTTP-статус и текст для клиента.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, agent.ErrInvalidURL):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, agent.ErrExtractionEmpty):
		return http.StatusNotFound, msgNoContent
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "Extraction timed out"
	case errors.Is(err, agent.ErrDriverInit):
		return http.StatusServiceUnavailable, "Browser is not available: " + err.Error()
	default:
		return http.StatusInternalServerError, "Failed to extract content: " + err.Error()
	}
}
