package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

var (
	// Logger 调试与警告日志
	Logger *logrus.Logger
	// InfoLogger 信息日志
	InfoLogger *logrus.Logger
	// ErrorLogger 错误日志
	ErrorLogger *logrus.Logger
)

// LogConfig 日志配置
type LogConfig struct {
	ErrorLogPath string
	InfoLogPath  string
	LogLevel     string
}

// CustomFormatter 输出 [时间] [级别] (调用者) 消息 [字段]
type CustomFormatter struct {
	TimestampFormat string
}

// Format 实现 logrus.Formatter 接口
func (f *CustomFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	layout := f.TimestampFormat
	if layout == "" {
		layout = defaultTimestampFormat
	}
	level := strings.ToUpper(entry.Level.String())
	if len(level) > 4 {
		level = level[:4]
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] [%s] (%s) %s", entry.Time.Format(layout), level, getCaller(), entry.Message)
	for _, k := range sortedKeys(entry.Data) {
		fmt.Fprintf(&sb, " %s=%v", k, entry.Data[k])
	}
	sb.WriteByte('\n')
	return []byte(sb.String()), nil
}

const defaultTimestampFormat = "15:04:05 MST 2006/01/02"

func sortedKeys(data logrus.Fields) []string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// getCaller 跳过日志框架的调用栈，找到实际的调用者
func getCaller() string {
	for i := 2; i < 20; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}
		if strings.Contains(file, "sirupsen") || strings.HasSuffix(file, "/logger/logger.go") {
			continue
		}
		return fmt.Sprintf("%s:%s:%d", filepath.Base(file), runtime.FuncForPC(pc).Name(), line)
	}
	return "unknown:unknown:0"
}

// ParseLogLevel 解析日志级别字符串，未知级别按info处理
func ParseLogLevel(level string) logrus.Level {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

// InitLogger 初始化日志，文件打不开时回退到标准输出
func InitLogger(config LogConfig) error {
	formatter := &CustomFormatter{TimestampFormat: defaultTimestampFormat}
	level := ParseLogLevel(config.LogLevel)

	InfoLogger = newLogger(formatter, level)
	ErrorLogger = newLogger(formatter, level)
	Logger = newLogger(formatter, level)

	InfoLogger.SetOutput(openOutput(config.InfoLogPath, os.Stdout))
	ErrorLogger.SetOutput(openOutput(config.ErrorLogPath, os.Stderr))
	Logger.SetOutput(InfoLogger.Out)
	return nil
}

// SetOutput 把全部日志重定向到w，测试中使用
func SetOutput(w io.Writer, level string) {
	formatter := &CustomFormatter{TimestampFormat: defaultTimestampFormat}
	lvl := ParseLogLevel(level)
	Logger = newLogger(formatter, lvl)
	InfoLogger = newLogger(formatter, lvl)
	ErrorLogger = newLogger(formatter, lvl)
	Logger.SetOutput(w)
	InfoLogger.SetOutput(w)
	ErrorLogger.SetOutput(w)
}

func newLogger(formatter logrus.Formatter, level logrus.Level) *logrus.Logger {
	l := logrus.New()
	l.SetFormatter(formatter)
	l.SetLevel(level)
	return l
}

func openOutput(path string, fallback io.Writer) io.Writer {
	if path == "" {
		return fallback
	}
	f, err := openLogFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open log file %s, fallback: %v\n", path, err)
		return fallback
	}
	return io.MultiWriter(fallback, f)
}

func openLogFile(logPath string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return nil, err
	}
	return os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
}

// WithFields 带字段的信息日志条目，未初始化时返回丢弃输出的条目
func WithFields(fields logrus.Fields) *logrus.Entry {
	if InfoLogger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		return l.WithFields(fields)
	}
	return InfoLogger.WithFields(fields)
}

// Info 信息日志
func Info(args ...interface{}) { emit(InfoLogger, logrus.InfoLevel, args...) }

// Infof 格式化信息日志
func Infof(format string, args ...interface{}) { emitf(InfoLogger, logrus.InfoLevel, format, args...) }

// Debugf 格式化调试日志
func Debugf(format string, args ...interface{}) { emitf(Logger, logrus.DebugLevel, format, args...) }

// Warnf 格式化警告日志
func Warnf(format string, args ...interface{}) { emitf(Logger, logrus.WarnLevel, format, args...) }

// Error 错误日志
func Error(args ...interface{}) { emit(ErrorLogger, logrus.ErrorLevel, args...) }

// Errorf 格式化错误日志
func Errorf(format string, args ...interface{}) { emitf(ErrorLogger, logrus.ErrorLevel, format, args...) }

// 未初始化的logger直接丢弃
func emit(l *logrus.Logger, level logrus.Level, args ...interface{}) {
	if l != nil {
		l.Log(level, args...)
	}
}

func emitf(l *logrus.Logger, level logrus.Level, format string, args ...interface{}) {
	if l != nil {
		l.Logf(level, format, args...)
	}
}
