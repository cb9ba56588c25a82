package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var (
	defaultLogger *zerolog.Logger
)

// GetLogLevelFromString 将字符串转换为日志级别
func GetLogLevelFromString(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

/**
 * Initialize the logging system
 * @param {string} path - Log file path, empty or "console" logs to the console only
 * @param {string} level - Log level (debug/info/warn/error)
 * @param {bool} isServerMode - Server mode also writes JSON lines to the console
 * @description
 * - CLI mode writes human readable lines to stderr, plus JSON lines to the file when configured
 * - Server mode writes JSON lines to stdout and the file
 * - Falls back to console output when the log file cannot be opened
 */
func InitLogger(path, level string, isServerMode bool) {
	var writers []io.Writer

	if isServerMode {
		writers = append(writers, os.Stdout)
	} else {
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
	}
	if path != "" && path != "console" {
		if file := setupLogFileOutput(path); file != nil {
			writers = append(writers, file)
		}
	}

	l := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(GetLogLevelFromString(level)).
		With().Timestamp().Logger()
	defaultLogger = &l
}

// SetOutput replaces the logger output, tests use it to capture log lines.
func SetOutput(w io.Writer, level string) {
	l := zerolog.New(w).Level(GetLogLevelFromString(level)).With().Timestamp().Logger()
	defaultLogger = &l
}

// setupLogFileOutput 设置日志文件输出
func setupLogFileOutput(logPath string) io.Writer {
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		fmt.Fprintf(os.Stderr, "create log directory failed: %v\n", err)
		return nil
	}
	file, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open log file failed: %v\n", err)
		return nil
	}
	return file
}

// Service returns a child logger tagged with the service name.
func Service(name string) zerolog.Logger {
	if defaultLogger == nil {
		return zerolog.Nop()
	}
	return defaultLogger.With().Str("service", name).Logger()
}

// Debug 输出调试日志
func Debug(v ...interface{}) {
	if defaultLogger != nil {
		defaultLogger.Debug().Msg(fmt.Sprint(v...))
	}
}

// Debugf 输出格式化调试日志
func Debugf(format string, v ...interface{}) {
	if defaultLogger != nil {
		defaultLogger.Debug().Msgf(format, v...)
	}
}

// Info 输出信息日志
func Info(v ...interface{}) {
	if defaultLogger != nil {
		defaultLogger.Info().Msg(fmt.Sprint(v...))
	}
}

// Infof 输出格式化信息日志
func Infof(format string, v ...interface{}) {
	if defaultLogger != nil {
		defaultLogger.Info().Msgf(format, v...)
	}
}

// Warn 输出警告日志
func Warn(v ...interface{}) {
	if defaultLogger != nil {
		defaultLogger.Warn().Msg(fmt.Sprint(v...))
	}
}

// Warnf 输出格式化警告日志
func Warnf(format string, v ...interface{}) {
	if defaultLogger != nil {
		defaultLogger.Warn().Msgf(format, v...)
	}
}

// Error 输出错误日志
func Error(v ...interface{}) {
	if defaultLogger != nil {
		defaultLogger.Error().Msg(fmt.Sprint(v...))
	}
}

// Errorf 输出格式化错误日志
func Errorf(format string, v ...interface{}) {
	if defaultLogger != nil {
		defaultLogger.Error().Msgf(format, v...)
	}
}

// Fatal 输出致命错误日志并退出程序
func Fatal(v ...interface{}) {
	if defaultLogger != nil {
		defaultLogger.Fatal().Msg(fmt.Sprint(v...))
	}
	// 在日志系统未初始化时，使用标准错误输出
	fmt.Fprintf(os.Stderr, "FATAL: %v\n", fmt.Sprint(v...))
	os.Exit(1)
}

// Fatalf 输出格式化致命错误日志并退出程序
func Fatalf(format string, v ...interface{}) {
	if defaultLogger != nil {
		defaultLogger.Fatal().Msgf(format, v...)
	}
	fmt.Fprintf(os.Stderr, "FATAL: "+format+"\n", v...)
	os.Exit(1)
}
