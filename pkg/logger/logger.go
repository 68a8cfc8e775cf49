package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger is a leveled structured logger backed by zerolog.
type Logger struct {
	zl zerolog.Logger
}

type Config struct {
	Level   string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
	Format  string `yaml:"format" default:"json" validate:"oneof=json console"`
	Output  string `yaml:"output" default:"stdout"` // stdout, stderr, or file path
	Service string `yaml:"service" default:"signalforge"`
	// Caller adds file:line to every event.
	Caller bool `yaml:"caller" default:"true"`
}

func New(cfg *Config) (*Logger, error) {
	var out io.Writer
	switch cfg.Output {
	case "", "stdout":
		out = os.Stdout
	case "stderr":
		out = os.Stderr
	default:
		f, err := os.OpenFile(cfg.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		out = f
	}
	return NewWithWriter(cfg, out)
}

// NewWithWriter builds a logger writing to w; console format wraps w in a
// human-readable writer.
func NewWithWriter(cfg *Config, w io.Writer) (*Logger, error) {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		l, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		level = l
	}
	if cfg.Format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	}

	zctx := zerolog.New(w).Level(level).With().Timestamp()
	if cfg.Service != "" {
		zctx = zctx.Str("service", cfg.Service)
	}
	if cfg.Caller {
		zctx = zctx.CallerWithSkipFrameCount(3)
	}
	return &Logger{zl: zctx.Logger()}, nil
}

// Nop discards everything.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// With returns a child logger carrying fields on every event.
func (l *Logger) With(fields ...Field) *Logger {
	zctx := l.zl.With()
	for _, f := range fields {
		zctx = zctx.Interface(f.Key, f.value)
	}
	return &Logger{zl: zctx.Logger()}
}

func (l *Logger) Debug(msg string, fields ...Field) { emit(l.zl.Debug(), msg, fields) }
func (l *Logger) Info(msg string, fields ...Field)  { emit(l.zl.Info(), msg, fields) }
func (l *Logger) Warn(msg string, fields ...Field)  { emit(l.zl.Warn(), msg, fields) }
func (l *Logger) Error(msg string, fields ...Field) { emit(l.zl.Error(), msg, fields) }

func emit(e *zerolog.Event, msg string, fields []Field) {
	if e == nil {
		return
	}
	for _, f := range fields {
		f.add(e)
	}
	e.Msg(msg)
}

// Field is one key/value pair of a log event.
type Field struct {
	Key   string
	value interface{}
	add   func(*zerolog.Event)
}

func String(key, v string) Field {
	return Field{Key: key, value: v, add: func(e *zerolog.Event) { e.Str(key, v) }}
}

func Int(key string, v int) Field {
	return Field{Key: key, value: v, add: func(e *zerolog.Event) { e.Int(key, v) }}
}

func Int64(key string, v int64) Field {
	return Field{Key: key, value: v, add: func(e *zerolog.Event) { e.Int64(key, v) }}
}

func Float64(key string, v float64) Field {
	return Field{Key: key, value: v, add: func(e *zerolog.Event) { e.Float64(key, v) }}
}

func Bool(key string, v bool) Field {
	return Field{Key: key, value: v, add: func(e *zerolog.Event) { e.Bool(key, v) }}
}

func Any(key string, v interface{}) Field {
	return Field{Key: key, value: v, add: func(e *zerolog.Event) { e.Interface(key, v) }}
}

func Error(err error) Field {
	var msg string
	if err != nil {
		msg = err.Error()
	}
	return Field{Key: zerolog.ErrorFieldName, value: msg, add: func(e *zerolog.Event) { e.Err(err) }}
}

// Duration logs milliseconds.
func Duration(key string, d time.Duration) Field {
	return Int64(key, d.Milliseconds())
}

func Time(key string, t time.Time) Field {
	return String(key, t.UTC().Format(time.RFC3339))
}

func Strings(key string, v []string) Field {
	return Field{Key: key, value: v, add: func(e *zerolog.Event) { e.Strs(key, v) }}
}

// Symbol tags an event with the ticker it concerns.
func Symbol(s string) Field {
	return String("symbol", s)
}
