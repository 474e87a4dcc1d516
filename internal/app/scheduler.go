package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"

	"stratgen/internal/logger"
	"stratgen/internal/monitor"
)

// Scheduler 周期性输出监控汇总（monitor.summary_cron）。
type Scheduler struct {
	cron     *cron.Cron
	metrics  *monitor.Service
	reporter monitor.Reporter
}

// NewScheduler returns nil when expr is empty (summary disabled).
func NewScheduler(expr string, metrics *monitor.Service, reporter monitor.Reporter) (*Scheduler, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" || metrics == nil {
		return nil, nil
	}
	if reporter == nil {
		reporter = monitor.LogReporter
	}
	s := &Scheduler{cron: cron.New(), metrics: metrics, reporter: reporter}
	if _, err := s.cron.AddFunc(expr, s.summarize); err != nil {
		return nil, fmt.Errorf("register summary task %q: %w", expr, err)
	}
	return s, nil
}

// Run starts the cron loop and stops it when ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	if s == nil {
		return nil
	}
	s.cron.Start()
	logger.Infof("✓ 监控汇总定时任务已启动")
	<-ctx.Done()
	<-s.cron.Stop().Done()
	logger.Infof("监控汇总定时任务已停止")
	return nil
}

func (s *Scheduler) summarize() {
	snap := s.metrics.Snapshot()
	if snap.TotalAttempts == 0 {
		logger.Debugf("监控汇总: 暂无生成记录")
		return
	}
	s.reporter(snap)
}
