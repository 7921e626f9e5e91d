// Package logger 提供统一的日志框架
package logger

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
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
	FatalLevel = zerolog.FatalLevel
)

type ctxKey string

// RequestIDKey 上下文中的请求ID键
const RequestIDKey ctxKey = "request_id"

// PlanIDKey 上下文中的计划ID键
const PlanIDKey ctxKey = "plan_id"

// Config 日志配置
type Config struct {
	Level      string `yaml:"level" json:"level"`
	Format     string `yaml:"format" json:"format"` // json/console/auto
	Output     string `yaml:"output" json:"output"` // stdout/stderr/file
	FilePath   string `yaml:"file_path,omitempty" json:"file_path,omitempty"`
	TimeFormat string `yaml:"time_format,omitempty" json:"time_format,omitempty"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Format:     "auto",
		Output:     "stderr",
		TimeFormat: time.RFC3339,
	}
}

// Init 初始化日志器
func Init(cfg Config) {
	once.Do(func() {
		logger = New(cfg)
	})
}

// New 按配置构造日志器，不影响全局日志器
func New(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	var output io.Writer
	var file *os.File
	switch cfg.Output {
	case "stdout":
		file = os.Stdout
	case "file":
		if cfg.FilePath != "" {
			f, err := os.OpenFile(cfg.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
			if err == nil {
				output = f
			} else {
				file = os.Stderr
			}
		} else {
			file = os.Stderr
		}
	default:
		file = os.Stderr
	}
	if output == nil {
		output = file
	}

	if useConsole(cfg.Format, file) {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: cfg.TimeFormat,
			NoColor:    file == nil,
		}
	}

	return zerolog.New(output).With().Timestamp().Logger()
}

// useConsole 判断是否使用人类可读输出；auto 模式下仅终端使用
func useConsole(format string, f *os.File) bool {
	switch format {
	case "console":
		return true
	case "json":
		return false
	}
	if f == nil {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// parseLevel 解析日志级别
func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "disabled":
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
	if planID, ok := ctx.Value(PlanIDKey).(string); ok {
		l = l.With().Str("plan_id", planID).Logger()
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

// Fatal 记录致命错误日志
func Fatal() *zerolog.Event {
	return Get().Fatal()
}

// WithError 添加错误信息
func WithError(err error) *zerolog.Event {
	return Get().Error().Err(err)
}

// WithField 添加字段
func WithField(key string, value interface{}) *zerolog.Logger {
	l := Get().With().Interface(key, value).Logger()
	return &l
}

// PlannerLogger 排产引擎专用日志器
type PlannerLogger struct {
	base *zerolog.Logger
}

// NewPlannerLogger 创建排产引擎日志器
func NewPlannerLogger(component string) *PlannerLogger {
	l := Get().With().Str("component", component).Logger()
	return &PlannerLogger{base: &l}
}

// NewPlannerLoggerFrom 基于给定日志器创建
func NewPlannerLoggerFrom(base zerolog.Logger, component string) *PlannerLogger {
	l := base.With().Str("component", component).Logger()
	return &PlannerLogger{base: &l}
}

// Base 返回底层日志器
func (l *PlannerLogger) Base() *zerolog.Logger {
	return l.base
}

// StartSolve 记录求解开始
func (l *PlannerLogger) StartSolve(stage string, variables, rows int) {
	l.base.Info().
		Str("stage", stage).
		Int("variables", variables).
		Int("rows", rows).
		Msg("开始求解")
}

// SolveComplete 记录求解完成
func (l *PlannerLogger) SolveComplete(stage, status string, duration time.Duration, objective float64, nodes int) {
	l.base.Info().
		Str("stage", stage).
		Str("status", status).
		Dur("duration", duration).
		Float64("objective", objective).
		Int("nodes", nodes).
		Msg("求解完成")
}

// ConstraintViolation 记录约束违反
func (l *PlannerLogger) ConstraintViolation(constraint, target string, amount float64) {
	l.base.Warn().
		Str("constraint", constraint).
		Str("target", target).
		Float64("amount", amount).
		Msg("约束违反")
}

// EditDecision 记录编辑校验结果
func (l *PlannerLogger) EditDecision(kind string, accepted bool, reason string) {
	ev := l.base.Info()
	if !accepted {
		ev = l.base.Warn()
	}
	ev.Str("edit", kind).
		Bool("accepted", accepted).
		Str("reason", reason).
		Msg("编辑校验")
}

// DirectiveRejected 记录指令被拒绝
func (l *PlannerLogger) DirectiveRejected(pattern, field string) {
	l.base.Warn().
		Str("pattern", pattern).
		Str("field", field).
		Msg("预分配指令被拒绝")
}
