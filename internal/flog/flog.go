// Package flog builds the process logger: zap with a console layout of
// "[time] [LEVEL] [module] message", colored levels on terminals, and an
// optional size-rotated log file.
package flog

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const timeLayout = "2006-01-02 15:04:05"

// Config 日志配置
type Config struct {
	Level       string // DEBUG/INFO/WARN/ERROR/FATAL
	EnableColor bool
	FilePath    string // 为空则只输出到控制台
	MaxFileSize int64  // 单位字节，<=0不轮转
}

// DefaultConfig 默认配置
var DefaultConfig = Config{
	Level:       "INFO",
	EnableColor: true,
	MaxFileSize: 10 * 1024 * 1024, // 10MB
}

// ParseLevel 解析日志级别，兼容 WARNING 写法
func ParseLevel(s string) (zapcore.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return zapcore.DebugLevel, nil
	case "", "INFO":
		return zapcore.InfoLevel, nil
	case "WARN", "WARNING":
		return zapcore.WarnLevel, nil
	case "ERROR":
		return zapcore.ErrorLevel, nil
	case "FATAL":
		return zapcore.FatalLevel, nil
	}
	return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", s)
}

// SupportsColor 检测当前环境是否支持颜色
func SupportsColor() bool {
	if os.Getenv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb" {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

// EncoderConfig returns the console layout shared by all sinks.
func EncoderConfig(color bool) zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:          "time",
		LevelKey:         "level",
		NameKey:          "module",
		MessageKey:       "msg",
		StacktraceKey:    "stack",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeTime:       bracketTime,
		EncodeLevel:      levelEncoder(color),
		EncodeName:       bracketName,
		EncodeDuration:   zapcore.StringDurationEncoder,
		ConsoleSeparator: " ",
	}
}

// New 创建日志器；文件输出不带颜色
func New(cfg Config) (*zap.Logger, func() error, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}
	color := cfg.EnableColor && SupportsColor()

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(EncoderConfig(color)), zapcore.Lock(os.Stdout), level),
	}
	closer := func() error { return nil }
	if cfg.FilePath != "" {
		file, err := NewRotatingFile(cfg.FilePath, cfg.MaxFileSize)
		if err != nil {
			return nil, nil, err
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(EncoderConfig(false)), file, level))
		closer = file.Close
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.AddStacktrace(zapcore.ErrorLevel))
	return logger, closer, nil
}

const (
	colorReset   = "\033[0m"
	colorRed     = "\033[31m"
	colorGreen   = "\033[32m"
	colorYellow  = "\033[33m"
	colorCyan    = "\033[36m"
	colorBoldRed = "\033[1;31m"
)

var levelColors = map[zapcore.Level]string{
	zapcore.DebugLevel:  colorCyan,
	zapcore.InfoLevel:   colorGreen,
	zapcore.WarnLevel:   colorYellow,
	zapcore.ErrorLevel:  colorRed,
	zapcore.DPanicLevel: colorRed,
	zapcore.PanicLevel:  colorBoldRed,
	zapcore.FatalLevel:  colorBoldRed,
}

func levelEncoder(color bool) zapcore.LevelEncoder {
	return func(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
		text := l.CapitalString()
		if color {
			text = levelColors[l] + text + colorReset
		}
		enc.AppendString("[" + text + "]")
	}
}

func bracketTime(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString("[" + t.Format(timeLayout) + "]")
}

func bracketName(name string, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString("[" + name + "]")
}
