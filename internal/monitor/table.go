package monitor

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"

	"stratgen/internal/logger"
)

// RenderSummary 渲染指标汇总表，便于日志展示
func RenderSummary(s Snapshot) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.SetTitle(fmt.Sprintf("strategy generation · %d attempts · %d tokens", s.TotalAttempts, s.TotalTokens))
	t.AppendHeader(table.Row{"source", "attempts", "success", "failure", "rate %", "avg ms"})
	for _, name := range s.SourceNames() {
		st := s.Sources[name]
		t.AppendRow(table.Row{name, st.Attempts, st.Successes, st.Failures, fmt.Sprintf("%.2f", st.SuccessRate), fmt.Sprintf("%.1f", st.AvgTimeMs)})
	}
	t.AppendFooter(table.Row{"validation", fmt.Sprintf("passed %d", s.Validation.Passed), fmt.Sprintf("failed %d", s.Validation.Failed), fmt.Sprintf("fixed %d", s.Validation.AutoFixed), "", ""})
	return t.Render()
}

// LogReporter is the default Reporter.
func LogReporter(s Snapshot) {
	logger.Infof("策略生成指标汇总\n%s", RenderSummary(s))
}
