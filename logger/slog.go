package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/phsym/console-slog"
)

// SlogLogger implements Logger on top of log/slog.
type SlogLogger struct {
	logger *slog.Logger
	level  *slog.LevelVar
}

var _ Logger = (*SlogLogger)(nil)

// NewSlog creates a slog-backed logger writing to stderr.
//
// Stdout is left to the device output printed by the CLI.
func NewSlog(level Level, addSource bool) Logger {
	return NewSlogWithWriter(os.Stderr, level, addSource)
}

// NewSlogWithWriter creates a slog-backed logger writing to w.
//
// When the ENV environment variable is "development" it uses the colored
// console handler, otherwise it emits JSON with the time key renamed to "ts".
func NewSlogWithWriter(w io.Writer, level Level, addSource bool) Logger {
	inst := &SlogLogger{level: &slog.LevelVar{}}
	inst.level.Set(toSlogLevel(level))

	var handler slog.Handler
	if os.Getenv("ENV") == "development" {
		handler = console.NewHandler(w, &console.HandlerOptions{
			AddSource: true,
			Level:     inst.level,
		})
	} else {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
			AddSource: addSource,
			Level:     inst.level,
			ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
				if a.Key == slog.TimeKey {
					a.Key = "ts"
				}
				return a
			},
		})
	}
	inst.logger = slog.New(handler)

	return inst
}

func (l *SlogLogger) Debug(msg string, keysAndValues ...any) {
	l.log(context.Background(), slog.LevelDebug, msg, keysAndValues...)
}

func (l *SlogLogger) Info(msg string, keysAndValues ...any) {
	l.log(context.Background(), slog.LevelInfo, msg, keysAndValues...)
}

func (l *SlogLogger) Warn(msg string, keysAndValues ...any) {
	l.log(context.Background(), slog.LevelWarn, msg, keysAndValues...)
}

func (l *SlogLogger) Error(msg string, keysAndValues ...any) {
	l.log(context.Background(), slog.LevelError, msg, keysAndValues...)
}

func (l *SlogLogger) Fatal(msg string, keysAndValues ...any) {
	l.log(context.Background(), slog.LevelError, msg, keysAndValues...)
	os.Exit(1)
}

// With returns a child logger sharing the parent's level.
func (l *SlogLogger) With(keyValues ...any) Logger {
	return &SlogLogger{
		logger: l.logger.With(keyValues...),
		level:  l.level,
	}
}

func (l *SlogLogger) Level() Level {
	switch lv := l.level.Level(); {
	case lv <= slog.LevelDebug:
		return DebugLevel
	case lv <= slog.LevelInfo:
		return InfoLevel
	case lv <= slog.LevelWarn:
		return WarnLevel
	default:
		return ErrorLevel
	}
}

// SetLevel changes the level of this logger and every child created by With.
func (l *SlogLogger) SetLevel(level Level) {
	l.level.Set(toSlogLevel(level))
}

// log is the low-level logging method for methods that take ...any.
// It must always be called directly by an exported logging method
// or function, because it uses a fixed call depth to obtain the pc.
func (l *SlogLogger) log(ctx context.Context, level slog.Level, msg string, args ...any) {
	if !l.logger.Enabled(ctx, level) {
		return
	}
	var pcs [1]uintptr
	// skip [runtime.Callers, this function, this function's caller]
	runtime.Callers(3, pcs[:])
	r := slog.NewRecord(time.Now(), level, msg, pcs[0])
	r.Add(args...)
	_ = l.logger.Handler().Handle(ctx, r)
}

func toSlogLevel(level Level) slog.Level {
	switch level {
	case DebugLevel:
		return slog.LevelDebug
	case InfoLevel:
		return slog.LevelInfo
	case WarnLevel:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}
