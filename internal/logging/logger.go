package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/fadedpez/ledger/internal/types"
)

// Level represents a logging level
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

var levelNames = map[Level]string{
	DEBUG: "DEBUG",
	INFO:  "INFO",
	WARN:  "WARN",
	ERROR: "ERROR",
}

// Logger represents our custom logger
type Logger struct {
	*log.Logger
	level Level
}

// NewLogger creates a new logger instance writing to stdout
func NewLogger(level Level) *Logger {
	return NewLoggerTo(os.Stdout, level)
}

// NewLoggerTo creates a logger writing to w
func NewLoggerTo(w io.Writer, level Level) *Logger {
	return &Logger{
		Logger: log.New(w, "", 0),
		level:  level,
	}
}

// ParseLevel maps a level name (debug, info, warn, error) to a Level, defaulting to INFO
func ParseLevel(name string) Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return DEBUG
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	default:
		return INFO
	}
}

// formatMessage formats a log message with timestamp, level, and caller info
func (l *Logger) formatMessage(level Level, msg string) string {
	// Get caller information
	_, file, line, ok := runtime.Caller(3)
	caller := "unknown"
	if ok {
		caller = fmt.Sprintf("%s:%d", filepath.Base(file), line)
	}

	timestamp := time.Now().UTC().Format("2006-01-02 15:04:05.000")

	return fmt.Sprintf("[%s] %-5s %s: %s",
		timestamp,
		levelNames[level],
		caller,
		msg,
	)
}

func (l *Logger) logf(level Level, format string, v ...interface{}) {
	if l.level <= level {
		l.Output(3, l.formatMessage(level, fmt.Sprintf(format, v...)))
	}
}

// Debug logs a debug message
func (l *Logger) Debug(format string, v ...interface{}) {
	l.logf(DEBUG, format, v...)
}

// Info logs an info message
func (l *Logger) Info(format string, v ...interface{}) {
	l.logf(INFO, format, v...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, v ...interface{}) {
	l.logf(WARN, format, v...)
}

// Error logs an error message
func (l *Logger) Error(format string, v ...interface{}) {
	l.logf(ERROR, format, v...)
}

// LogError logs a LedgerError with its code and cause
func (l *Logger) LogError(err error) {
	var ledgerErr *types.LedgerError
	if types.As(err, &ledgerErr) {
		context := []string{
			fmt.Sprintf("Code: %s", ledgerErr.Code),
			fmt.Sprintf("Message: %s", ledgerErr.Message),
		}
		if ledgerErr.Err != nil {
			context = append(context, fmt.Sprintf("Cause: %v", ledgerErr.Err))
		}

		l.logf(ERROR, "Ledger error occurred:\n\t%s", strings.Join(context, "\n\t"))
	} else {
		l.logf(ERROR, "Unexpected error: %v", err)
	}
}

// Default logger instance
var Default = NewLogger(INFO)
