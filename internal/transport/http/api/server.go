package apihttp

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"muhurta/internal/logger"
	"muhurta/internal/market"
	"muhurta/internal/rules"
	"muhurta/internal/service"
)

// Server 提供会话预测查询与仪表盘的 HTTP 服务。
type Server struct {
	addr   string
	router *gin.Engine
}

// ServerConfig 描述 HTTP 服务依赖。
type ServerConfig struct {
	Addr            string
	Forecasts       *service.ForecastService
	Markets         *market.Registry
	Rules           *rules.Registry
	PageTitle       string
	SnapshotEnabled bool
}

// NewServer 构建 HTTP server。
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Forecasts == nil || cfg.Markets == nil {
		return nil, errors.New("http server requires forecast service and market registry")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8077"
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	apiRouter := NewRouter(cfg.Forecasts, cfg.Markets, cfg.Rules, cfg.PageTitle, cfg.SnapshotEnabled)
	apiRouter.Register(router.Group("/api"))
	apiRouter.RegisterDashboard(router)

	return &Server{addr: cfg.Addr, router: router}, nil
}

// requestLogger 记录接口调用，便于追踪查询来源。
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery
		client := c.ClientIP()
		c.Next()
		dur := time.Since(start)
		status := c.Writer.Status()
		fullPath := path
		if query != "" {
			fullPath = path + "?" + query
		}
		logger.Debugf("HTTP %s %s status=%d ip=%s dur=%s", method, fullPath, status, client, dur)
	}
}

// Addr 返回监听地址。
func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	return s.addr
}

// Handler 返回底层 handler，测试与嵌入场景使用。
func (s *Server) Handler() http.Handler {
	if s == nil {
		return nil
	}
	return s.router
}

// Start 启动 HTTP 服务，直到 ctx 取消或出现错误。
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	srv := &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	logger.Infof("HTTP server listening on %s", s.addr)
	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
