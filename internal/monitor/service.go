package monitor

import (
	"math"
	"sort"
	"sync"
	"time"

	"stratgen/internal/config"
	"stratgen/internal/logger"
)

// 中文说明：
// 进程级性能指标：每个 tier 的尝试/成功/失败、滚动平均耗时、token 累计、校验结果计数。
// 显式构造并注入，所有写操作在同一把锁内完成；Reset 供测试与运维清零。

// ValidationOutcome is how validation ended for one tier outcome.
type ValidationOutcome int

const (
	ValidationNone ValidationOutcome = iota
	ValidationPassed
	ValidationFailed
	ValidationFixed
)

// Event is one tier outcome.
type Event struct {
	Source     string
	Success    bool
	Duration   time.Duration
	TokensUsed int
	Validation ValidationOutcome
}

type SourceStats struct {
	Attempts    int     `json:"attempts"`
	Successes   int     `json:"successes"`
	Failures    int     `json:"failures"`
	SuccessRate float64 `json:"successRate"`
	AvgTimeMs   float64 `json:"avgTimeMs"`
	Samples     int     `json:"samples"`
}

type ValidationStats struct {
	Passed    int `json:"passed"`
	Failed    int `json:"failed"`
	AutoFixed int `json:"autoFixed"`
}

// Snapshot is a copy of PerformanceMetrics at one instant.
type Snapshot struct {
	Sources       map[string]SourceStats `json:"sources"`
	TotalAttempts int                    `json:"totalAttempts"`
	TotalTokens   int                    `json:"totalTokens"`
	Validation    ValidationStats        `json:"validation"`
	Since         time.Time              `json:"since"`
}

// SourceNames returns the tracked sources sorted for stable output.
func (s Snapshot) SourceNames() []string {
	out := make([]string, 0, len(s.Sources))
	for k := range s.Sources {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Reporter receives a snapshot every summary_every combined attempts.
type Reporter func(Snapshot)

type sourceState struct {
	attempts  int
	successes int
	failures  int
	times     []float64 // ring buffer, ms
	next      int
}

type Service struct {
	mu         sync.Mutex
	window     int
	every      int
	reporter   Reporter
	sources    map[string]*sourceState
	attempts   int
	tokens     int
	validation ValidationStats
	since      time.Time
}

func NewService(cfg config.MonitorConfig, reporter Reporter) *Service {
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = 100
	}
	if reporter == nil {
		reporter = LogReporter
	}
	return &Service{
		window:   cfg.WindowSize,
		every:    cfg.SummaryEvery,
		reporter: reporter,
		sources:  make(map[string]*sourceState),
		since:    time.Now(),
	}
}

// Track records one tier outcome. The reporter runs outside the lock.
func (s *Service) Track(e Event) {
	s.mu.Lock()
	st := s.sources[e.Source]
	if st == nil {
		st = &sourceState{}
		s.sources[e.Source] = st
	}
	st.attempts++
	if e.Success {
		st.successes++
	} else {
		st.failures++
	}
	ms := float64(e.Duration) / float64(time.Millisecond)
	if len(st.times) < s.window {
		st.times = append(st.times, ms)
	} else {
		st.times[st.next] = ms
		st.next = (st.next + 1) % s.window
	}
	if e.TokensUsed > 0 {
		s.tokens += e.TokensUsed
	}
	switch e.Validation {
	case ValidationPassed:
		s.validation.Passed++
	case ValidationFailed:
		s.validation.Failed++
	case ValidationFixed:
		s.validation.AutoFixed++
	}
	s.attempts++
	fire := s.every > 0 && s.attempts%s.every == 0
	var snap Snapshot
	if fire {
		snap = s.snapshotLocked()
	}
	s.mu.Unlock()

	if fire {
		s.reporter(snap)
	}
}

// Snapshot returns the current metrics.
func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Reset clears all counters.
func (s *Service) Reset() {
	s.mu.Lock()
	s.sources = make(map[string]*sourceState)
	s.attempts = 0
	s.tokens = 0
	s.validation = ValidationStats{}
	s.since = time.Now()
	s.mu.Unlock()
	logger.Infof("✓ 性能指标已重置")
}

func (s *Service) snapshotLocked() Snapshot {
	out := Snapshot{
		Sources:       make(map[string]SourceStats, len(s.sources)),
		TotalAttempts: s.attempts,
		TotalTokens:   s.tokens,
		Validation:    s.validation,
		Since:         s.since,
	}
	for name, st := range s.sources {
		stats := SourceStats{
			Attempts:  st.attempts,
			Successes: st.successes,
			Failures:  st.failures,
			Samples:   len(st.times),
		}
		if st.attempts > 0 {
			stats.SuccessRate = round2(float64(st.successes) / float64(st.attempts) * 100)
		}
		if n := len(st.times); n > 0 {
			sum := 0.0
			for _, v := range st.times {
				sum += v
			}
			stats.AvgTimeMs = round2(sum / float64(n))
		}
		out.Sources[name] = stats
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
