// Package atrionlog is the structured-logging seam spec.md §9 calls out as
// an injected trait rather than a global: every ambient component that logs
// takes a Logger, never reaches for a package-level singleton. Grounded on
// jhkimqd-chaos-utils/pkg/reporting/logger.go's zerolog wrapper shape
// (Level/Format config, With-style child loggers, Debug/Info/Warn/Error/
// Fatal methods).
package atrionlog

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Level names one of the four severities the engine logs at.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Format selects the wire shape of emitted log lines.
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// Logger is the interface every atrion component logs through. It also
// satisfies internal/numeric.Logger (Warnf), so the physics guard's
// skew/floor warnings land in the same structured stream as everything
// else.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)

	With(fields map[string]any) Logger
}

// Config configures NewZerologLogger.
type Config struct {
	Level  Level
	Format Format
	Output io.Writer // defaults to os.Stdout
}

// ZerologLogger is the production Logger, backed by zerolog.
type ZerologLogger struct {
	logger zerolog.Logger
}

var _ Logger = (*ZerologLogger)(nil)

// NewZerologLogger builds a ZerologLogger from cfg.
func NewZerologLogger(cfg Config) *ZerologLogger {
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	var output io.Writer = cfg.Output
	if cfg.Format == FormatText {
		output = zerolog.ConsoleWriter{Out: cfg.Output, TimeFormat: time.RFC3339}
	}
	zlog := zerolog.New(output).With().Timestamp().Logger()
	switch cfg.Level {
	case LevelDebug:
		zlog = zlog.Level(zerolog.DebugLevel)
	case LevelWarn:
		zlog = zlog.Level(zerolog.WarnLevel)
	case LevelError:
		zlog = zlog.Level(zerolog.ErrorLevel)
	default:
		zlog = zlog.Level(zerolog.InfoLevel)
	}
	return &ZerologLogger{logger: zlog}
}

func (l *ZerologLogger) Debugf(format string, args ...any) { l.logger.Debug().Msgf(format, args...) }
func (l *ZerologLogger) Infof(format string, args ...any)  { l.logger.Info().Msgf(format, args...) }
func (l *ZerologLogger) Warnf(format string, args ...any)  { l.logger.Warn().Msgf(format, args...) }
func (l *ZerologLogger) Errorf(format string, args ...any) { l.logger.Error().Msgf(format, args...) }

// With returns a child logger carrying fields on every subsequent line,
// mirroring the teacher's WithFields.
func (l *ZerologLogger) With(fields map[string]any) Logger {
	ctx := l.logger.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return &ZerologLogger{logger: ctx.Logger()}
}

// noopLogger discards everything. Used as the default when no Logger is
// supplied, so components never need a nil check before logging.
type noopLogger struct{}

func (noopLogger) Debugf(string, ...any)      {}
func (noopLogger) Infof(string, ...any)       {}
func (noopLogger) Warnf(string, ...any)       {}
func (noopLogger) Errorf(string, ...any)      {}
func (n noopLogger) With(map[string]any) Logger { return n }

// NoopLogger is the shared no-op Logger instance.
var NoopLogger Logger = noopLogger{}
