package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"stratgen/internal/logger"
	"stratgen/internal/monitor"
	"stratgen/internal/report"
)

// StrategyService produces a report for one request.
type StrategyService interface {
	Generate(ctx context.Context, req report.ContextRequest) (report.Report, error)
}

// MetricsSource exposes the performance metrics.
type MetricsSource interface {
	Snapshot() monitor.Snapshot
	Reset()
}

type ServerConfig struct {
	Addr    string
	Service StrategyService
	Metrics MetricsSource
	// Debug 为 true 时 gin 使用 debug 模式。
	Debug bool
}

// Server 对外 HTTP 接口：生成策略、查询/重置监控指标、健康检查。
type Server struct {
	addr    string
	engine  *gin.Engine
	service StrategyService
	metrics MetricsSource
	started time.Time
}

func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Service == nil {
		return nil, fmt.Errorf("strategy service is required")
	}
	if cfg.Metrics == nil {
		return nil, fmt.Errorf("metrics source is required")
	}
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		addr = ":8080"
	}
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	s := &Server{
		addr:    addr,
		service: cfg.Service,
		metrics: cfg.Metrics,
		started: time.Now(),
	}
	s.engine = gin.New()
	s.engine.Use(gin.Recovery(), requestLogger())
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.engine.GET("/healthz", s.health)
	api := s.engine.Group("/api")
	api.POST("/strategies", s.generate)
	api.GET("/metrics", s.getMetrics)
	api.POST("/metrics/reset", s.resetMetrics)
}

func (s *Server) Addr() string { return s.addr }

// Handler is used by tests and by Start.
func (s *Server) Handler() http.Handler { return s.engine }

// Start blocks until ctx is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Infof("✓ HTTP 接口监听 %s", s.addr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) generate(c *gin.Context) {
	var req report.ContextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body: " + err.Error()})
		return
	}
	rep, err := s.service.Generate(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, report.ErrInvalidRequest) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		logger.Errorf("策略生成失败 %s: %v", req.Symbol.Code, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	// 先编码再写状态码，编码失败时不会留下空的 200
	body, err := json.Marshal(rep)
	if err != nil {
		logger.Errorf("策略结果编码失败 %s: %v", req.Symbol.Code, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

func (s *Server) getMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, s.metrics.Snapshot())
}

func (s *Server) resetMetrics(c *gin.Context) {
	s.metrics.Reset()
	logger.Infof("监控指标已重置")
	c.JSON(http.StatusOK, gin.H{"status": "reset"})
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debugf("HTTP %s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start).Round(time.Millisecond))
	}
}
