package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"stratgen/internal/config"
	"stratgen/internal/decision"
	"stratgen/internal/gateway/provider"
	"stratgen/internal/history"
	"stratgen/internal/logger"
	"stratgen/internal/monitor"
	"stratgen/internal/report"
	"stratgen/internal/scoring"
	"stratgen/internal/store"
	"stratgen/internal/strategy"
	"stratgen/internal/transport/http/api"
)

// provideStore 配置了 db_path 时使用 sqlite，否则退回内存实现。
func provideStore(cfg *config.Config) (store.ReportStore, func(), error) {
	path := strings.TrimSpace(cfg.App.DBPath)
	if path == "" {
		logger.Infof("未配置 db_path，报告历史使用内存存储")
		s := store.NewMemoryReportStore()
		return s, func() { _ = s.Close() }, nil
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("创建数据目录失败: %w", err)
		}
	}
	s, err := store.OpenSQLite(path)
	if err != nil {
		return nil, nil, fmt.Errorf("初始化报告历史存储失败: %w", err)
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	logger.Infof("✓ 报告历史写入 %s", path)
	return s, func() {
		if err := s.Close(); err != nil {
			logger.Warnf("关闭报告历史存储失败: %v", err)
		}
	}, nil
}

func provideMonitor(cfg *config.Config) *monitor.Service {
	return monitor.NewService(cfg.Monitor, monitor.LogReporter)
}

func provideModelProvider(cfg *config.Config) provider.ModelProvider {
	p := provider.NewOpenAIModelProvider(cfg.AI)
	if p.Enabled() {
		logger.Infof("✓ 已启用 AI 模型: %s (%s)", p.ID(), cfg.AI.Model)
	} else {
		logger.Warnf("未配置 AI 凭证，跳过 AI 层，直接使用规则层")
	}
	return p
}

func provideGenerator(cfg *config.Config, p provider.ModelProvider, metrics *monitor.Service) *decision.Generator {
	v := strategy.NewValidator()
	tiers := []decision.Tier{
		decision.NewAITier(p, decision.NewPromptBuilder(), v, cfg.AI.MaxTokens),
		decision.NewRuleTier(v),
		decision.NewFallbackTier(),
	}
	return decision.NewGenerator(tiers, metrics, scoring.NewConfidenceScorer(cfg.Confidence), cfg.Report)
}

func provideContextBuilder(cfg *config.Config, st store.ReportStore) *report.ContextBuilder {
	return report.NewContextBuilder(
		scoring.NewTargetPriceCalculator(cfg.Targets),
		history.NewAnalyzer(st, cfg.History),
	)
}

func provideReportService(b *report.ContextBuilder, g *decision.Generator) *report.Service {
	return report.NewService(b, g)
}

func provideHTTPServer(cfg *config.Config, svc *report.Service, metrics *monitor.Service) (*api.Server, error) {
	srv, err := api.NewServer(api.ServerConfig{
		Addr:    cfg.App.HTTPAddr,
		Service: svc,
		Metrics: metrics,
		Debug:   strings.EqualFold(cfg.App.Env, "dev") && logger.CurrentLevel() == logger.LevelDebug,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化 HTTP 接口失败: %w", err)
	}
	return srv, nil
}

func provideScheduler(cfg *config.Config, metrics *monitor.Service) (*Scheduler, error) {
	return NewScheduler(cfg.Monitor.SummaryCron, metrics, monitor.LogReporter)
}
