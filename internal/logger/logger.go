package logger

import (
	"io"
	"os"

	charmlog "github.com/charmbracelet/log"
)

var defaultLogger = New(DefaultConfig())

// Config 日志配置
type Config struct {
	Level      charmlog.Level
	Output     io.Writer
	JSON       bool
	Timestamp  bool
	TimeFormat string
	Prefix     string
}

// DefaultConfig 返回命令行默认配置：输出到 stderr，不带时间戳
func DefaultConfig() *Config {
	return &Config{
		Level:      charmlog.InfoLevel,
		Output:     os.Stderr,
		TimeFormat: "15:04:05",
		Prefix:     "errcatch",
	}
}

// New 按配置创建 logger
func New(cfg *Config) *charmlog.Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	logger := charmlog.NewWithOptions(out, charmlog.Options{
		ReportTimestamp: cfg.Timestamp,
		TimeFormat:      cfg.TimeFormat,
		Level:           cfg.Level,
		Prefix:          cfg.Prefix,
	})
	if cfg.JSON {
		logger.SetFormatter(charmlog.JSONFormatter)
	} else {
		logger.SetFormatter(charmlog.TextFormatter)
	}
	return logger
}

// Init 替换默认 logger
func Init(cfg *Config) {
	defaultLogger = New(cfg)
}

// Default 返回默认 logger
func Default() *charmlog.Logger {
	return defaultLogger
}

// Verbose 按 -v 开关返回对应级别的配置
func Verbose(v bool) *Config {
	cfg := DefaultConfig()
	if v {
		cfg.Level = charmlog.DebugLevel
	}
	return cfg
}

// Discard 返回丢弃所有输出的 logger，测试中使用
func Discard() *charmlog.Logger {
	return charmlog.NewWithOptions(io.Discard, charmlog.Options{Level: charmlog.FatalLevel})
}

// OrDefault nil 时返回默认 logger
func OrDefault(l *charmlog.Logger) *charmlog.Logger {
	if l == nil {
		return defaultLogger
	}
	return l
}
