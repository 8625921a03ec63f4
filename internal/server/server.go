// Package server exposes chat sessions and the dataset chart over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/KaramelBytes/candlechat/internal/conversation"
	"github.com/KaramelBytes/candlechat/internal/dataset"
	"github.com/KaramelBytes/candlechat/internal/metrics"
)

const DefaultAddr = "127.0.0.1:8080"

// Config describes the server's dependencies.
type Config struct {
	Addr     string
	Sessions *conversation.Manager
	Dataset  *dataset.Dataset
	// ChartLimit is the default candle limit for chart routes.
	ChartLimit int
	Demo       bool
	Metrics    *metrics.Recorder
	Logger     *zap.Logger
	// ShutdownTimeout bounds graceful shutdown; default 5s.
	ShutdownTimeout time.Duration
}

// Server serves the HTTP API.
type Server struct {
	cfg    Config
	router *gin.Engine
	log    *zap.Logger
}

// New builds the router. Sessions and Dataset are required.
func New(cfg Config) (*Server, error) {
	if cfg.Sessions == nil || cfg.Dataset == nil {
		return nil, errors.New("server requires sessions and a dataset")
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	s := &Server{cfg: cfg, router: router, log: log}
	router.Use(gin.Recovery(), s.requestLogger())

	router.GET("/healthz", s.handleHealth)
	if cfg.Metrics != nil {
		router.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}
	router.GET("/chart", s.handleChartHTML)

	api := router.Group("/api")
	api.GET("/chart", s.handleChartJSON)
	api.POST("/sessions", s.handleCreateSession)
	api.GET("/sessions/:id", s.handleGetSession)
	api.DELETE("/sessions/:id", s.handleDeleteSession)
	api.POST("/sessions/:id/messages", s.handleSubmit)
	api.DELETE("/sessions/:id/messages", s.handleReset)
	return s, nil
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) Addr() string { return s.cfg.Addr }

// requestLogger logs each request and feeds the HTTP metrics.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		dur := time.Since(start)
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		if s.cfg.Metrics != nil {
			s.cfg.Metrics.ObserveHTTP(route, c.Request.Method, status, dur)
		}
		s.log.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("duration", dur),
		)
	}
}

// Run listens on the configured address until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{Handler: s.router, ReadHeaderTimeout: 10 * time.Second}
	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		s.log.Info("http server listening", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-gctx.Done()
		shCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		s.log.Info("http server stopped")
		return nil
	})
	return group.Wait()
}
