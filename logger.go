package ssbspoof

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

func ParseLogLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// SimpleLogger implements Logger with basic structured logging
type SimpleLogger struct {
	level LogLevel
	file  *os.File
	mu    sync.Mutex
}

func NewSimpleLogger(level LogLevel) *SimpleLogger {
	return &SimpleLogger{level: level}
}

// NewFileLogger mirrors console output into filename as well.
func NewFileLogger(level LogLevel, filename string) (*SimpleLogger, error) {
	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, err
	}
	return &SimpleLogger{level: level, file: file}, nil
}

func (l *SimpleLogger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

func (l *SimpleLogger) Debug(msg string, fields map[string]any) {
	l.log(LevelDebug, "DEBUG", msg, fields)
}

func (l *SimpleLogger) Info(msg string, fields map[string]any) {
	l.log(LevelInfo, "INFO", msg, fields)
}

func (l *SimpleLogger) Warn(msg string, fields map[string]any) {
	l.log(LevelWarn, "WARN", msg, fields)
}

func (l *SimpleLogger) Error(msg string, fields map[string]any) {
	l.log(LevelError, "ERROR", msg, fields)
}

func (l *SimpleLogger) log(level LogLevel, tag, msg string, fields map[string]any) {
	if level < l.level {
		return
	}
	logMsg := fmt.Sprintf("[%s] %s", tag, msg)
	if len(fields) > 0 {
		logMsg += " | "
		first := true
		for k, v := range fields {
			if !first {
				logMsg += ", "
			}
			logMsg += fmt.Sprintf("%s=%v", k, v)
			first = false
		}
	}
	logMsg += "\n"

	fmt.Print(logMsg)

	if l.file != nil {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.file.WriteString(logMsg)
	}
}
