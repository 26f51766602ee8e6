package logs

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Level string

const (
	INFO  Level = "INFO"
	WARN  Level = "WARN"
	ERROR Level = "ERROR"
	DEBUG Level = "DEBUG"
)

// levelPriority defines the priority of each log level
// higher value= more severe
var levelPriority = map[Level]int{
	DEBUG: 1,
	INFO:  2,
	WARN:  3,
	ERROR: 4,
}

// ParseLevel accepts debug, info, warn or error in any case.
func ParseLevel(s string) (Level, error) {
	lvl := Level(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := levelPriority[lvl]; !ok {
		return "", fmt.Errorf("unknown log level %q", s)
	}
	return lvl, nil
}

func (l Level) zapLevel() zapcore.Level {
	switch l {
	case DEBUG:
		return zapcore.DebugLevel
	case WARN:
		return zapcore.WarnLevel
	case ERROR:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

type Entry struct {
	TimeStamp time.Time              `json:"timestamp"`
	Level     Level                  `json:"level"`
	Component string                 `json:"component,omitempty"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// ring is the bounded entry store shared by a logger and its children.
type ring struct {
	mu      sync.Mutex
	entries []Entry
	maxSize int
}

// Logger records entries in memory and forwards them to zap.
type Logger struct {
	ring      *ring
	level     Level
	component string
	zl        *zap.Logger
}

// Option configures a Logger.
type Option func(*Logger)

// WithZap forwards every recorded entry to zl.
func WithZap(zl *zap.Logger) Option {
	return func(l *Logger) {
		if zl != nil {
			l.zl = zl
		}
	}
}

// level: minimum log level to record(e.g., INFO, WARN, ERROR,DEBUG)
//
// maxsize:maximum number of log entries kept in memory
func NewLogger(maxSize int, level Level, opts ...Option) *Logger {
	if maxSize < 1 {
		maxSize = 1
	}
	l := &Logger{
		ring: &ring{
			entries: make([]Entry, 0, maxSize),
			maxSize: maxSize,
		},
		level: level,
		zl:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// NewZap builds a JSON zap logger writing to stdout at the given level.
func NewZap(level Level) *zap.Logger {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.Lock(os.Stdout),
		level.zapLevel(),
	)
	return zap.New(core)
}

// With returns a child logger tagged with component.
// The child shares the parent's ring and zap sink.
func (l *Logger) With(component string) *Logger {
	return &Logger{
		ring:      l.ring,
		level:     l.level,
		component: component,
		zl:        l.zl.With(zap.String("component", component)),
	}
}

// log is the internal logging function
// it applies level filtering and ring buffer behavior
func (l *Logger) log(level Level, msg string, fields []zap.Field) {
	//filter logs below the current level
	if levelPriority[level] < levelPriority[l.level] {
		return
	}

	entry := Entry{
		TimeStamp: time.Now(),
		Level:     level,
		Component: l.component,
		Message:   msg,
	}
	if len(fields) > 0 {
		enc := zapcore.NewMapObjectEncoder()
		for _, f := range fields {
			f.AddTo(enc)
		}
		entry.Fields = enc.Fields
	}

	l.ring.mu.Lock()
	if len(l.ring.entries) >= l.ring.maxSize {
		//remove oldest entry(ring behavior)
		l.ring.entries = l.ring.entries[1:]
	}
	l.ring.entries = append(l.ring.entries, entry)
	l.ring.mu.Unlock()

	switch level {
	case DEBUG:
		l.zl.Debug(msg, fields...)
	case INFO:
		l.zl.Info(msg, fields...)
	case WARN:
		l.zl.Warn(msg, fields...)
	case ERROR:
		l.zl.Error(msg, fields...)
	}
}

func (l *Logger) Debug(msg string, fields ...zap.Field) {
	l.log(DEBUG, msg, fields)
}

func (l *Logger) Info(msg string, fields ...zap.Field) {
	l.log(INFO, msg, fields)
}

func (l *Logger) Warn(msg string, fields ...zap.Field) {
	l.log(WARN, msg, fields)
}

func (l *Logger) Error(msg string, fields ...zap.Field) {
	l.log(ERROR, msg, fields)
}

// Sync flushes the zap sink.
func (l *Logger) Sync() error {
	return l.zl.Sync()
}

func (l *Logger) GetLast(n int) []Entry {
	l.ring.mu.Lock()
	defer l.ring.mu.Unlock()

	if n < 0 {
		n = 0
	}
	if n > len(l.ring.entries) {
		n = len(l.ring.entries)
	}

	start := len(l.ring.entries) - n
	out := make([]Entry, n)
	copy(out, l.ring.entries[start:])
	return out
}
