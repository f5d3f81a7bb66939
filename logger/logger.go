package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// Output formats. Anything other than json renders through zerolog's
// ConsoleWriter.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
	FormatPretty  = "pretty"
)

// Logger is a zerolog logger with map-based field helpers. Derived loggers
// share the parent's writer and level.
type Logger struct {
	zl zerolog.Logger
}

// NewWithWriter builds a logger for cfg writing to w. An unknown level falls
// back to info.
func NewWithWriter(cfg *Config, service string, w io.Writer) *Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	var zl zerolog.Logger
	if isConsole(cfg.Format) {
		zl = zerolog.New(consoleWriter(cfg, service, w))
	} else {
		zl = zerolog.New(w)
		if service != "" {
			zl = zl.With().Str(FieldService, service).Logger()
		}
	}

	zc := zl.Level(level).With()
	if cfg.Timestamp || isConsole(cfg.Format) {
		zc = zc.Timestamp()
	}
	if cfg.Caller {
		zc = zc.Caller()
	}
	return &Logger{zl: zc.Logger()}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

func (l *Logger) with(fn func(zerolog.Context) zerolog.Context) *Logger {
	return &Logger{zl: fn(l.zl.With()).Logger()}
}

// WithComponent tags every line with component=name.
func (l *Logger) WithComponent(name string) *Logger {
	return l.with(func(c zerolog.Context) zerolog.Context { return c.Str(FieldComponent, name) })
}

// WithFields attaches fields to every line.
func (l *Logger) WithFields(fields map[string]any) *Logger {
	return l.with(func(c zerolog.Context) zerolog.Context { return c.Fields(fields) })
}

// WithError attaches err as the error field.
func (l *Logger) WithError(err error) *Logger {
	return l.with(func(c zerolog.Context) zerolog.Context { return c.Err(err) })
}

// WithContext attaches the request and provider ids stored by
// ContextWithRequestID and ContextWithProvider, and the trace id of an
// active span.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	return l.with(func(c zerolog.Context) zerolog.Context {
		for _, key := range []string{FieldRequestID, FieldProvider} {
			if v, ok := ctx.Value(ctxKey(key)).(string); ok && v != "" {
				c = c.Str(key, v)
			}
		}
		if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
			c = c.Str(FieldTraceID, sc.TraceID().String())
		}
		return c
	})
}

func (l *Logger) Debug(msg string, fields ...map[string]any) { emit(l.zl.Debug(), msg, fields) }
func (l *Logger) Info(msg string, fields ...map[string]any)  { emit(l.zl.Info(), msg, fields) }
func (l *Logger) Warn(msg string, fields ...map[string]any)  { emit(l.zl.Warn(), msg, fields) }
func (l *Logger) Error(msg string, fields ...map[string]any) { emit(l.zl.Error(), msg, fields) }

// emit tolerates a nil event, which zerolog returns for disabled levels.
func emit(ev *zerolog.Event, msg string, fields []map[string]any) {
	if ev == nil {
		return
	}
	for _, f := range fields {
		ev = ev.Fields(f)
	}
	ev.Msg(msg)
}

type ctxKey string

// ContextWithRequestID stores a generation request id for WithContext.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey(FieldRequestID), id)
}

// ContextWithProvider stores a provider id for WithContext.
func ContextWithProvider(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey(FieldProvider), id)
}

var global atomic.Pointer[Logger]

// Init replaces the process logger with one built from cfg.
func Init(cfg Config) {
	cfg.ApplyDefaults()
	global.Store(NewWithWriter(&cfg, cfg.ServiceName, outputWriter(cfg.Output)))
}

// GetGlobalLogger returns the logger installed by Init, or a console logger
// at info level on stderr before Init runs.
func GetGlobalLogger() *Logger {
	if l := global.Load(); l != nil {
		return l
	}
	cfg := Config{}
	cfg.ApplyDefaults()
	l := NewWithWriter(&cfg, "", os.Stderr)
	global.CompareAndSwap(nil, l)
	return global.Load()
}

func isConsole(format string) bool {
	switch strings.ToLower(format) {
	case FormatConsole, FormatPretty:
		return true
	}
	return false
}

func outputWriter(output string) io.Writer {
	if strings.EqualFold(output, "stdout") {
		return os.Stdout
	}
	return os.Stderr
}

var levelTags = map[zerolog.Level]struct{ tag, color string }{
	zerolog.TraceLevel: {"TRC", "90"},
	zerolog.DebugLevel: {"DBG", "36"},
	zerolog.InfoLevel:  {"INF", "32"},
	zerolog.WarnLevel:  {"WRN", "33"},
	zerolog.ErrorLevel: {"ERR", "31"},
	zerolog.FatalLevel: {"FTL", "35"},
}

// consoleWriter renders "15:04:05 [QUI][INF] message key:value", where QUI is
// the first three letters of the service name.
func consoleWriter(cfg *Config, service string, w io.Writer) zerolog.ConsoleWriter {
	prefix := ""
	if len(service) >= 3 {
		prefix = paint(cfg.NoColor, "34", "["+strings.ToUpper(service[:3])+"]")
	}
	return zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: "15:04:05",
		NoColor:    cfg.NoColor,
		FormatLevel: func(i any) string {
			lvl, _ := zerolog.ParseLevel(fmt.Sprint(i))
			t, ok := levelTags[lvl]
			if !ok {
				return prefix + "[" + strings.ToUpper(fmt.Sprint(i)) + "]"
			}
			return prefix + paint(cfg.NoColor, t.color, "["+t.tag+"]")
		},
		FormatFieldName: func(i any) string { return fmt.Sprint(i) + ":" },
	}
}

func paint(off bool, color, s string) string {
	if off {
		return s
	}
	return "\033[" + color + "m" + s + "\033[0m"
}
