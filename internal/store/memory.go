package store

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"stratgen/internal/history"
)

// MemoryReportStore 内存实现，未配置 db_path 时使用；进程退出即丢失。
type MemoryReportStore struct {
	mu     sync.RWMutex
	nextID int64
	data   map[string][]history.Outcome
}

func NewMemoryReportStore() *MemoryReportStore {
	return &MemoryReportStore{data: make(map[string][]history.Outcome)}
}

func key(symbol string) string { return strings.ToUpper(strings.TrimSpace(symbol)) }

// RecordOutcome 追加
func (s *MemoryReportStore) RecordOutcome(ctx context.Context, o history.Outcome) (int64, error) {
	k := key(o.Symbol)
	if k == "" {
		return 0, errors.New("symbol 不能为空")
	}
	if o.GeneratedAt.IsZero() {
		o.GeneratedAt = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	o.ID = s.nextID
	o.Symbol = k
	s.data[k] = append(s.data[k], o)
	return o.ID, nil
}

// FindSimilar 返回拷贝，按生成时间倒序
func (s *MemoryReportStore) FindSimilar(ctx context.Context, q history.Query) ([]history.Outcome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cur := s.data[key(q.Symbol)]
	var out []history.Outcome
	for _, o := range cur {
		if q.Matches(o) {
			out = append(out, o)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].GeneratedAt.After(out[j].GeneratedAt) })
	return out, nil
}

func (s *MemoryReportStore) Count(ctx context.Context, symbol string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if k := key(symbol); k != "" {
		return len(s.data[k]), nil
	}
	n := 0
	for _, list := range s.data {
		n += len(list)
	}
	return n, nil
}

func (s *MemoryReportStore) Close() error { return nil }
