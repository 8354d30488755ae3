// Package logger provides leveled, per-component logging for the server
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fatih/color"
)

// LogLevel represents the severity of a log entry
type LogLevel int32

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

var levelNames = map[LogLevel]string{
	DEBUG: "DEBUG",
	INFO:  "INFO",
	WARN:  "WARN",
	ERROR: "ERROR",
	FATAL: "FATAL",
}

var levelColors = map[LogLevel]*color.Color{
	DEBUG: color.New(color.FgHiBlack),
	INFO:  color.New(color.FgCyan),
	WARN:  color.New(color.FgYellow),
	ERROR: color.New(color.FgRed),
	FATAL: color.New(color.FgRed, color.Bold),
}

func (l LogLevel) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("LEVEL(%d)", int32(l))
}

// ParseLevel converts a level name (case-insensitive) to a LogLevel
func ParseLevel(s string) (LogLevel, bool) {
	for level, name := range levelNames {
		if strings.EqualFold(name, strings.TrimSpace(s)) {
			return level, true
		}
	}
	return INFO, false
}

var globalLevel atomic.Int32

func init() {
	globalLevel.Store(int32(INFO))
}

// SetGlobalLogLevel sets the minimum level written by every logger
func SetGlobalLogLevel(level LogLevel) {
	globalLevel.Store(int32(level))
}

// GlobalLogLevel returns the current minimum level
func GlobalLogLevel() LogLevel {
	return LogLevel(globalLevel.Load())
}

// Logger writes colored entries to the console and plain entries to an optional file
type Logger struct {
	component string
	mu        sync.Mutex
	console   io.Writer
	file      *os.File
	exit      func(int)
}

// Component loggers used across the server
var (
	Server  = New("SERVER")
	Game    = New("GAME")
	Network = New("NETWORK")
)

// New creates a logger for a component writing to stderr
func New(component string) *Logger {
	return &Logger{
		component: component,
		console:   color.Error,
		exit:      os.Exit,
	}
}

// SetOutput replaces the console writer
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.console = w
}

// SetFile additionally writes entries to the file at path, appending
func (l *Logger) SetFile(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		l.file.Close()
	}
	l.file = f
	return nil
}

// Close releases the log file, if any
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// InitializeFileLogging opens one log file per component logger under dir
func InitializeFileLogging(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	for _, l := range []*Logger{Server, Game, Network} {
		name := strings.ToLower(l.component) + ".log"
		if err := l.SetFile(filepath.Join(dir, name)); err != nil {
			return err
		}
	}
	return nil
}

func (l *Logger) log(level LogLevel, format string, args ...interface{}) {
	if level < GlobalLogLevel() {
		return
	}

	msg := fmt.Sprintf(format, args...)
	line := fmt.Sprintf("%s [%s] [%s] %s\n",
		time.Now().Format("2006/01/02 15:04:05"), level, l.component, msg)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.console != nil {
		levelColors[level].Fprint(l.console, line)
	}
	if l.file != nil {
		l.file.WriteString(line)
	}
}

// Debug logs at DEBUG level
func (l *Logger) Debug(format string, args ...interface{}) {
	l.log(DEBUG, format, args...)
}

// Info logs at INFO level
func (l *Logger) Info(format string, args ...interface{}) {
	l.log(INFO, format, args...)
}

// Warn logs at WARN level
func (l *Logger) Warn(format string, args ...interface{}) {
	l.log(WARN, format, args...)
}

// Error logs at ERROR level
func (l *Logger) Error(format string, args ...interface{}) {
	l.log(ERROR, format, args...)
}

// Fatal logs at FATAL level and exits the process
func (l *Logger) Fatal(format string, args ...interface{}) {
	l.log(FATAL, format, args...)
	l.Close()
	l.exit(1)
}
