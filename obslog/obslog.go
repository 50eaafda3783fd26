// Package obslog is a thin zerolog wrapper shared by every component.
// It is diagnostic only: nothing in this repo branches on a log call,
// and a nil *Logger (the zero value) is safe to use and discards
// everything, so callers in hot paths never need a nil check before
// logging. Grounded in apecloud-myduckserver's use of a structured
// logger in the same PG-wire-over-embedded-engine architectural role.
package obslog

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Logger wraps a zerolog.Logger scoped to one component.
type Logger struct {
	z zerolog.Logger
}

// New returns a component-scoped logger writing to w (os.Stderr if
// nil) at the given level.
func New(component string, w io.Writer, level zerolog.Level) *Logger {
	if w == nil {
		w = os.Stderr
	}
	z := zerolog.New(w).Level(level).With().Timestamp().Str("component", component).Logger()
	return &Logger{z: z}
}

// Disabled returns a logger that discards everything; used as the
// default when a caller doesn't configure one.
func Disabled() *Logger {
	return &Logger{z: zerolog.Nop()}
}

func (l *Logger) base() zerolog.Logger {
	if l == nil {
		return zerolog.Nop()
	}
	return l.z
}

func (l *Logger) Debug(msg string, kv ...any) { l.event(l.base().Debug(), msg, kv) }
func (l *Logger) Info(msg string, kv ...any)   { l.event(l.base().Info(), msg, kv) }
func (l *Logger) Warn(msg string, kv ...any)   { l.event(l.base().Warn(), msg, kv) }
func (l *Logger) Error(err error, msg string, kv ...any) {
	l.event(l.base().Err(err), msg, kv)
}

func (l *Logger) event(ev *zerolog.Event, msg string, kv []any) {
	for i := 0; i+1 < len(kv); i += 2 {
		key, _ := kv[i].(string)
		ev = ev.Interface(key, kv[i+1])
	}
	ev.Msg(msg)
}
