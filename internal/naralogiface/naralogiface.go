// Package naralogiface adapts github.com/joeycumines/logiface (backed by
// github.com/joeycumines/izerolog and github.com/rs/zerolog) to nara's
// Logger interface, the runtime's structured logging facade (§10.1).
package naralogiface

import (
	izerolog "github.com/joeycumines/izerolog"
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/nara"
	"github.com/rs/zerolog"
)

// Logger wraps a logiface.Logger[*izerolog.Event] and implements
// nara.Logger.
type Logger struct {
	inner *logiface.Logger[*izerolog.Event]
}

// New builds a Logger writing to zl via izerolog, at minLevel and above.
// minLevel uses logiface's own Level scale (logiface.LevelInformational,
// logiface.LevelDebug, ...), not nara.LogLevel, since the minimum level is
// a property of the logiface sink, independent of what nara itself emits.
func New(zl zerolog.Logger, minLevel logiface.Level) *Logger {
	return &Logger{
		inner: logiface.New[*izerolog.Event](
			logiface.WithLevel[*izerolog.Event](minLevel),
			izerolog.WithZerolog(zl),
		),
	}
}

// naraLevelToLogiface maps the four levels nara's core ever emits at onto
// logiface's syslog-derived scale.
func naraLevelToLogiface(level nara.LogLevel) logiface.Level {
	switch level {
	case nara.LevelDebug:
		return logiface.LevelDebug
	case nara.LevelInfo:
		return logiface.LevelInformational
	case nara.LevelWarn:
		return logiface.LevelWarning
	case nara.LevelError:
		return logiface.LevelError
	default:
		return logiface.LevelDebug
	}
}

// Log implements nara.Logger. fields is interpreted as alternating
// key/value pairs; a trailing unpaired key is dropped. A value carrying an
// error is attached via Err rather than Any, so izerolog/zerolog render it
// the way their own call sites do.
func (l *Logger) Log(level nara.LogLevel, msg string, fields ...any) {
	b := l.inner.Build(naraLevelToLogiface(level))
	if b == nil || !b.Enabled() {
		return
	}
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		if err, ok := fields[i+1].(error); ok {
			b = b.Err(err)
			continue
		}
		b = b.Any(key, fields[i+1])
	}
	b.Log(msg)
}
