package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"stratgen/internal/config"
	"stratgen/internal/logger"
	"stratgen/internal/monitor"
	"stratgen/internal/report"
	"stratgen/internal/store"
	"stratgen/internal/transport/http/api"
)

// App 负责应用级编排：加载配置→初始化依赖→启动 HTTP 与定时汇总。
type App struct {
	cfg       *config.Config
	store     store.ReportStore
	metrics   *monitor.Service
	service   *report.Service
	http      *api.Server
	scheduler *Scheduler
	cleanup   func()
}

// NewApp 根据配置构建应用对象（不启动）
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.Configure(cfg.App.Env, cfg.App.LogLevel)
	a, cleanup, err := buildAppWithWire(cfg)
	if err != nil {
		return nil, err
	}
	a.cleanup = cleanup
	return a, nil
}

func newApp(cfg *config.Config, st store.ReportStore, metrics *monitor.Service, svc *report.Service, srv *api.Server, sched *Scheduler) *App {
	return &App{cfg: cfg, store: st, metrics: metrics, service: svc, http: srv, scheduler: sched}
}

// Service is the generation entry point shared by HTTP and CLI.
func (a *App) Service() *report.Service { return a.service }

func (a *App) Store() store.ReportStore { return a.store }

func (a *App) Metrics() *monitor.Service { return a.metrics }

// Run 启动 HTTP 服务与定时汇总，直到 ctx 结束或任一组件失败。
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.http == nil {
		return fmt.Errorf("http server not initialized")
	}
	group, ctx := errgroup.WithContext(ctx)

	if a.scheduler != nil {
		group.Go(func() error {
			return a.scheduler.Run(ctx)
		})
	}
	group.Go(func() error {
		return a.http.Start(ctx)
	})

	err := group.Wait()
	if snap := a.metrics.Snapshot(); snap.TotalAttempts > 0 {
		monitor.LogReporter(snap)
	}
	return err
}

// Close releases the report store. Safe to call more than once.
func (a *App) Close() {
	if a == nil || a.cleanup == nil {
		return
	}
	a.cleanup()
	a.cleanup = nil
}
