// Package logger 提供统一的日志框架
package logger

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	once   sync.Once
	logger zerolog.Logger
)

// Level 日志级别
type Level = zerolog.Level

const (
	DebugLevel = zerolog.DebugLevel
	InfoLevel  = zerolog.InfoLevel
	WarnLevel  = zerolog.WarnLevel
	ErrorLevel = zerolog.ErrorLevel
)

type ctxKey string

// RequestIDKey 请求ID在上下文中的键
const RequestIDKey ctxKey = "request_id"

// Config 日志配置
type Config struct {
	Level      string `json:"level"`
	Format     string `json:"format"` // json/console
	Output     string `json:"output"` // stdout/stderr/file
	FilePath   string `json:"file_path,omitempty"`
	TimeFormat string `json:"time_format,omitempty"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Format:     "console",
		Output:     "stderr",
		TimeFormat: time.RFC3339,
	}
}

// Init 初始化日志器，只生效一次
func Init(cfg Config) {
	once.Do(func() {
		zerolog.SetGlobalLevel(ParseLevel(cfg.Level))

		var output io.Writer
		switch cfg.Output {
		case "stdout":
			output = os.Stdout
		case "file":
			output = os.Stderr
			if cfg.FilePath != "" {
				if f, err := os.OpenFile(cfg.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644); err == nil {
					output = f
				}
			}
		default:
			output = os.Stderr
		}

		if cfg.Format == "console" {
			timeFormat := cfg.TimeFormat
			if timeFormat == "" {
				timeFormat = time.RFC3339
			}
			output = zerolog.ConsoleWriter{Out: output, TimeFormat: timeFormat}
		}

		logger = zerolog.New(output).With().Timestamp().Logger()
	})
}

// ParseLevel 解析日志级别，未知值按 info 处理
func ParseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// Get 获取日志器
func Get() *zerolog.Logger {
	Init(DefaultConfig())
	return &logger
}

// WithContext 从上下文创建日志器
func WithContext(ctx context.Context) *zerolog.Logger {
	l := Get().With().Logger()
	if reqID, ok := ctx.Value(RequestIDKey).(string); ok {
		l = l.With().Str("request_id", reqID).Logger()
	}
	return &l
}

// Debug 记录调试日志
func Debug() *zerolog.Event {
	return Get().Debug()
}

// Info 记录信息日志
func Info() *zerolog.Event {
	return Get().Info()
}

// Warn 记录警告日志
func Warn() *zerolog.Event {
	return Get().Warn()
}

// Error 记录错误日志
func Error() *zerolog.Event {
	return Get().Error()
}

// WithField 添加字段
func WithField(key string, value interface{}) *zerolog.Logger {
	l := Get().With().Interface(key, value).Logger()
	return &l
}

// SchedulerLogger 排班引擎专用日志器
type SchedulerLogger struct {
	base *zerolog.Logger
}

// NewSchedulerLogger 创建排班引擎日志器
func NewSchedulerLogger(component string) *SchedulerLogger {
	l := Get().With().Str("component", component).Logger()
	return &SchedulerLogger{base: &l}
}

// StartBuild 记录初始排班开始
func (l *SchedulerLogger) StartBuild(workers, roles, days int) {
	l.base.Info().
		Int("workers", workers).
		Int("roles", roles).
		Int("days", days).
		Msg("开始生成初始排班")
}

// Shortfall 记录无法满足的时段
func (l *SchedulerLogger) Shortfall(pass, day, slot, role string, required, assigned int) {
	l.base.Debug().
		Str("pass", pass).
		Str("day", day).
		Str("slot", slot).
		Str("role", role).
		Int("required", required).
		Int("assigned", assigned).
		Msg("人手不足")
}

// BuildComplete 记录初始排班完成
func (l *SchedulerLogger) BuildComplete(assignments, shortfalls int, duration time.Duration) {
	l.base.Info().
		Int("assignments", assignments).
		Int("shortfalls", shortfalls).
		Dur("duration", duration).
		Msg("初始排班生成完成")
}

// StartOptimize 记录退火开始
func (l *SchedulerLogger) StartOptimize(seed int64, iterations int, initialTemp, initialCost float64) {
	l.base.Info().
		Int64("seed", seed).
		Int("max_iterations", iterations).
		Float64("initial_temp", initialTemp).
		Float64("initial_cost", initialCost).
		Msg("开始模拟退火优化")
}

// Improvement 记录发现更优解
func (l *SchedulerLogger) Improvement(iteration int, cost float64) {
	l.base.Debug().
		Int("iteration", iteration).
		Float64("cost", cost).
		Msg("发现更优解")
}

// OptimizeComplete 记录退火完成
func (l *SchedulerLogger) OptimizeComplete(initialCost, bestCost float64, iterations int, duration time.Duration) {
	l.base.Info().
		Float64("initial_cost", initialCost).
		Float64("best_cost", bestCost).
		Int("iterations", iterations).
		Dur("duration", duration).
		Msg("模拟退火优化完成")
}

// Adjustment 记录人工调整结果
func (l *SchedulerLogger) Adjustment(action, day, slot, role string, workerID int, outcome string) {
	l.base.Info().
		Str("action", action).
		Str("day", day).
		Str("slot", slot).
		Str("role", role).
		Int("worker_id", workerID).
		Str("outcome", outcome).
		Msg("排班调整")
}

// Warn 记录警告
func (l *SchedulerLogger) Warn(msg string, err error) {
	l.base.Warn().Err(err).Msg(msg)
}
