package app

import (
	"context"
	"fmt"

	mhcfg "muhurta/internal/config"
	"muhurta/internal/logger"
	"muhurta/internal/scheduler"
	apihttp "muhurta/internal/transport/http/api"

	"golang.org/x/sync/errgroup"
)

// App 负责应用级编排：加载配置→初始化依赖→启动 HTTP 与场次调度。
type App struct {
	cfg       *mhcfg.Config
	http      *apihttp.Server
	scheduler *scheduler.SessionScheduler
	Summary   *StartupSummary
}

// NewApp 根据配置构建应用对象（不启动）
func NewApp(cfg *mhcfg.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return buildAppWithWire(context.Background(), cfg)
}

// Run 启动 HTTP 服务与场次调度，阻塞直至 ctx 取消或服务报错。
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.Summary != nil {
		a.Summary.Print()
	}
	if a.http == nil {
		return fmt.Errorf("http server not initialized")
	}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := a.http.Start(ctx); err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})
	if a.scheduler != nil {
		group.Go(func() error {
			a.scheduler.Start(ctx)
			<-ctx.Done()
			a.scheduler.Stop()
			return nil
		})
	}
	return group.Wait()
}

// HTTPAddr 返回 HTTP 服务监听地址，便于日志与测试。
func (a *App) HTTPAddr() string {
	if a == nil || a.http == nil {
		return ""
	}
	return a.http.Addr()
}
