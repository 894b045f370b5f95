package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Level represents log severity
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a string to a Level. Unknown values map to INFO.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return DEBUG
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	default:
		return INFO
	}
}

// Field is a key-value pair attached to an entry
type Field struct {
	Key   string
	Value interface{}
}

// F is a shorthand for creating a Field
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// Config holds logger configuration
type Config struct {
	Level      Level
	FilePath   string
	MaxSizeMB  int // rotate after this many megabytes
	MaxAge     int // days
	MaxBackups int
	Console    bool
	Output     io.Writer // extra sink, mostly for tests
}

// DefaultConfig returns default logger configuration
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	logPath := ""
	if home != "" {
		logPath = filepath.Join(home, ".taskprox", "logs", "taskprox.log")
	}

	return Config{
		Level:      INFO,
		FilePath:   logPath,
		MaxSizeMB:  10,
		MaxAge:     7,
		MaxBackups: 5,
		Console:    false, // the TUI owns the terminal
	}
}

// Logger writes leveled entries with structured fields
type Logger struct {
	config  Config
	mu      *sync.Mutex
	fields  []Field
	out     io.Writer
	rotator *lumberjack.Logger
}

var (
	globalMu     sync.RWMutex
	globalLogger *Logger
)

// Init installs the global logger, replacing any previous one
func Init(config Config) error {
	l, err := New(config)
	if err != nil {
		return err
	}

	globalMu.Lock()
	prev := globalLogger
	globalLogger = l
	globalMu.Unlock()

	if prev != nil {
		prev.Close()
	}
	return nil
}

// New creates a logger. File output goes through a size-rotated writer.
func New(config Config) (*Logger, error) {
	l := &Logger{
		config: config,
		mu:     &sync.Mutex{},
	}

	var writers []io.Writer
	if config.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(config.FilePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		l.rotator = &lumberjack.Logger{
			Filename:   config.FilePath,
			MaxSize:    config.MaxSizeMB,
			MaxAge:     config.MaxAge,
			MaxBackups: config.MaxBackups,
		}
		writers = append(writers, l.rotator)
	}
	if config.Console {
		writers = append(writers, os.Stderr)
	}
	if config.Output != nil {
		writers = append(writers, config.Output)
	}

	switch len(writers) {
	case 0:
		l.out = io.Discard
	case 1:
		l.out = writers[0]
	default:
		l.out = io.MultiWriter(writers...)
	}
	return l, nil
}

func (l *Logger) log(level Level, msg string, fields []Field) {
	if level < l.config.Level {
		return
	}

	_, file, line, ok := runtime.Caller(3)
	caller := "???"
	if ok {
		caller = fmt.Sprintf("%s:%d", filepath.Base(file), line)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s %s: %s", time.Now().Format("2006-01-02 15:04:05.000"), level, caller, msg)

	if len(l.fields)+len(fields) > 0 {
		b.WriteString(" |")
		for _, f := range l.fields {
			fmt.Fprintf(&b, " %s=%v", f.Key, f.Value)
		}
		for _, f := range fields {
			fmt.Fprintf(&b, " %s=%v", f.Key, f.Value)
		}
	}
	b.WriteByte('\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	io.WriteString(l.out, b.String())
}

// WithFields returns a child logger sharing the same outputs
func (l *Logger) WithFields(fields ...Field) *Logger {
	merged := make([]Field, 0, len(l.fields)+len(fields))
	merged = append(merged, l.fields...)
	merged = append(merged, fields...)
	return &Logger{
		config:  l.config,
		mu:      l.mu,
		fields:  merged,
		out:     l.out,
		rotator: l.rotator,
	}
}

func (l *Logger) Debug(msg string, fields ...Field) { l.entry(DEBUG, msg, fields) }
func (l *Logger) Info(msg string, fields ...Field)  { l.entry(INFO, msg, fields) }
func (l *Logger) Warn(msg string, fields ...Field)  { l.entry(WARN, msg, fields) }
func (l *Logger) Error(msg string, fields ...Field) { l.entry(ERROR, msg, fields) }

// entry keeps the caller depth the same for methods and package functions
func (l *Logger) entry(level Level, msg string, fields []Field) {
	l.log(level, msg, fields)
}

// Close flushes and closes the log file
func (l *Logger) Close() error {
	if l.rotator == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rotator.Close()
}

func current() *Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger
}

// Debug logs through the global logger
func Debug(msg string, fields ...Field) {
	if l := current(); l != nil {
		l.entry(DEBUG, msg, fields)
	}
}

// Info logs through the global logger
func Info(msg string, fields ...Field) {
	if l := current(); l != nil {
		l.entry(INFO, msg, fields)
	}
}

// Warn logs through the global logger
func Warn(msg string, fields ...Field) {
	if l := current(); l != nil {
		l.entry(WARN, msg, fields)
	}
}

// Error logs through the global logger
func Error(msg string, fields ...Field) {
	if l := current(); l != nil {
		l.entry(ERROR, msg, fields)
	}
}

// WithFields derives from the global logger. Without Init the result discards everything.
func WithFields(fields ...Field) *Logger {
	if l := current(); l != nil {
		return l.WithFields(fields...)
	}
	return &Logger{config: Config{Level: ERROR + 1}, mu: &sync.Mutex{}, out: io.Discard, fields: fields}
}

// Close closes the global logger
func Close() error {
	globalMu.Lock()
	l := globalLogger
	globalLogger = nil
	globalMu.Unlock()

	if l != nil {
		return l.Close()
	}
	return nil
}

// GetConfig returns the active configuration
func GetConfig() Config {
	if l := current(); l != nil {
		return l.config
	}
	return DefaultConfig()
}
