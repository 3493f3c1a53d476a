// Package obslog is the structured logger threaded through every
// subsystem, matching the call shape the teacher repo's own logger package
// exposed (Info/Infof/Warn/Warnf/Error/Errorf) but built directly on
// zerolog rather than reconstructing an unseen wrapper from scratch.
package obslog

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Logger wraps a zerolog.Logger with the call shape used throughout this
// repository's subsystems.
type Logger struct {
	z zerolog.Logger
}

// New builds a console-pretty logger writing to w at the given level, the
// same development-friendly format the teacher's CLI tooling favors.
func New(w io.Writer, level zerolog.Level) *Logger {
	if w == nil {
		w = os.Stderr
	}
	cw := zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	z := zerolog.New(cw).Level(level).With().Timestamp().Logger()
	return &Logger{z: z}
}

// With returns a child logger scoped to the given key/value pairs, used to
// tag every log line with (symbol, bot kind) without repeating it per call.
func (l *Logger) With(kv ...string) *Logger {
	ctx := l.z.With()
	for i := 0; i+1 < len(kv); i += 2 {
		ctx = ctx.Str(kv[i], kv[i+1])
	}
	return &Logger{z: ctx.Logger()}
}

func (l *Logger) Info(msg string)                       { l.z.Info().Msg(msg) }
func (l *Logger) Infof(format string, args ...any)       { l.z.Info().Msgf(format, args...) }
func (l *Logger) Warn(msg string)                        { l.z.Warn().Msg(msg) }
func (l *Logger) Warnf(format string, args ...any)       { l.z.Warn().Msgf(format, args...) }
func (l *Logger) Error(err error, msg string)            { l.z.Error().Err(err).Msg(msg) }
func (l *Logger) Errorf(err error, format string, a ...any) { l.z.Error().Err(err).Msgf(format, a...) }
func (l *Logger) Debugf(format string, args ...any)      { l.z.Debug().Msgf(format, args...) }

// Nop returns a logger that discards everything, used in tests.
func Nop() *Logger {
	return &Logger{z: zerolog.Nop()}
}
