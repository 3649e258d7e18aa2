// Package log provides the contextual, logrus-backed logger used
// throughout this module. Callers attach fields with WithLogField and
// retrieve the contextual logger with L(ctx).
package log

import (
	"context"
	"io"
	"os"
	"sync/atomic"

	prefixed "github.com/x-cray/logrus-prefixed-formatter"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	"github.com/sirupsen/logrus"

	"github.com/NicolasMassart/tessera/pkg/confutil"
	"github.com/NicolasMassart/tessera/pkg/tmconf"
)

type ctxKey struct{}

var root = logrus.StandardLogger()
var initialized atomic.Bool

const maxFieldLen = 61

// InitConfig configures the root logger from the supplied config, and is
// safe to call more than once (e.g. on config reload).
func InitConfig(conf *tmconf.LogConfig) {
	level, err := logrus.ParseLevel(confutil.StringNotEmpty(conf.Level, "info"))
	if err != nil {
		level = logrus.InfoLevel
	}
	root.SetLevel(level)
	setFormatting(confutil.StringNotEmpty(conf.Format, "prefixed"))

	var out io.Writer = os.Stderr
	if filename := confutil.StringOrEmpty(conf.Filename); filename != "" {
		out = &lumberjack.Logger{
			Filename:   filename,
			MaxSize:    confutil.IntMin(conf.MaxSizeMB, 1, 100),
			MaxBackups: confutil.IntMin(conf.MaxBackups, 0, 3),
			MaxAge:     confutil.IntMin(conf.MaxAgeDays, 0, 28),
			Compress:   confutil.Bool(conf.Compress, true),
		}
	}
	root.SetOutput(out)
	initialized.Store(true)
}

func setFormatting(format string) {
	switch format {
	case "json":
		root.SetFormatter(&logrus.JSONFormatter{TimestampFormat: utcFormat})
	case "simple":
		root.SetFormatter(&logrus.TextFormatter{DisableColors: true, TimestampFormat: utcFormat})
	default:
		root.SetFormatter(&prefixed.TextFormatter{ForceColors: false, TimestampFormat: utcFormat, FullTimestamp: true})
	}
}

const utcFormat = "2006-01-02T15:04:05.000Z07:00"

func ensureInit() {
	if initialized.CompareAndSwap(false, true) {
		setFormatting("prefixed")
	}
}

// IsDebugEnabled returns whether the root logger will emit debug logs.
func IsDebugEnabled() bool {
	ensureInit()
	return root.IsLevelEnabled(logrus.DebugLevel)
}

// IsTraceEnabled returns whether the root logger will emit trace logs.
func IsTraceEnabled() bool {
	ensureInit()
	return root.IsLevelEnabled(logrus.TraceLevel)
}

// SetLevel sets the root logger's level.
func SetLevel(level string) {
	ensureInit()
	if l, err := logrus.ParseLevel(level); err == nil {
		root.SetLevel(l)
	}
}

// WithLogger returns a context carrying the supplied entry as the
// contextual logger.
func WithLogger(ctx context.Context, l *logrus.Entry) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// WithLogField returns a context whose contextual logger has the given
// field attached. Values are truncated to keep log lines readable.
func WithLogField(ctx context.Context, key, value string) context.Context {
	if len(value) > maxFieldLen {
		value = value[:maxFieldLen]
	}
	return WithLogger(ctx, L(ctx).WithField(key, value))
}

// L returns the contextual logger for ctx, falling back to the root
// logger if none has been attached.
func L(ctx context.Context) *logrus.Entry {
	ensureInit()
	if ctx != nil {
		if l, ok := ctx.Value(ctxKey{}).(*logrus.Entry); ok {
			return l
		}
	}
	return logrus.NewEntry(root)
}
