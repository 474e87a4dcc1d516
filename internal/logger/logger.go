package logger

import (
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// 中文说明：
// 轻量日志封装：对外保持 Debugf/Infof/Warnf/Errorf，底层使用 zap。
// 级别通过 AtomicLevel 控制，可随时 SetLevel。

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var (
	mu      sync.RWMutex
	level   = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	sugared = newSugared(false)
)

func newSugared(pretty bool) *zap.SugaredLogger {
	var cfg zap.Config
	if pretty {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "timestamp"
		cfg.Sampling = nil
	}
	cfg.Level = level
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return zap.NewNop().Sugar()
	}
	return l.Sugar()
}

// Configure 按运行环境切换输出格式：dev 使用彩色控制台，其余输出 JSON。
func Configure(env, lvl string) {
	SetLevel(lvl)
	pretty := strings.EqualFold(strings.TrimSpace(env), "dev")
	mu.Lock()
	sugared = newSugared(pretty)
	mu.Unlock()
}

// Discard 丢弃全部输出，测试使用。
func Discard() {
	mu.Lock()
	sugared = zap.NewNop().Sugar()
	mu.Unlock()
}

func SetLevel(s string) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		level.SetLevel(zapcore.DebugLevel)
	case "info":
		level.SetLevel(zapcore.InfoLevel)
	case "warn", "warning":
		level.SetLevel(zapcore.WarnLevel)
	case "error":
		level.SetLevel(zapcore.ErrorLevel)
	default:
		level.SetLevel(zapcore.InfoLevel)
	}
}

// CurrentLevel 返回当前级别（映射回本包的 Level）。
func CurrentLevel() Level {
	switch level.Level() {
	case zapcore.DebugLevel:
		return LevelDebug
	case zapcore.WarnLevel:
		return LevelWarn
	case zapcore.ErrorLevel, zapcore.DPanicLevel, zapcore.PanicLevel, zapcore.FatalLevel:
		return LevelError
	default:
		return LevelInfo
	}
}

func current() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return sugared
}

func Debugf(format string, v ...any) { current().Debugf(format, v...) }
func Infof(format string, v ...any)  { current().Infof(format, v...) }
func Warnf(format string, v ...any)  { current().Warnf(format, v...) }
func Errorf(format string, v ...any) { current().Errorf(format, v...) }

// Infow 结构化输出，keysAndValues 成对出现。
func Infow(msg string, keysAndValues ...any) { current().Infow(msg, keysAndValues...) }

// LogLLMPayload 记录发送给模型的请求体（仅 debug 级别）。
func LogLLMPayload(model, body string) {
	if level.Level() > zapcore.DebugLevel {
		return
	}
	current().Debugw("llm payload", "model", model, "bytes", len(body), "body", body)
}

// Sync flushes buffered entries; call before exit.
func Sync() error {
	return current().Sync()
}
