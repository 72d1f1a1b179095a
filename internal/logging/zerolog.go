package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// ZerologOptions configures NewZerolog.
type ZerologOptions struct {
	Level   string
	Console io.Writer // colored console output, nil to skip
	File    io.Writer // plain console format, nil to skip
	Graylog io.Writer // JSON lines, nil to skip
	Hook    zerolog.HookFunc
}

// ParseZerologLevel maps a config level name to a zerolog level. Unknown names
// map to info.
func ParseZerologLevel(level string) zerolog.Level {
	switch normalizeLevel(level) {
	case "TRACE":
		return zerolog.TraceLevel
	case "DEBUG":
		return zerolog.DebugLevel
	case "WARN":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewZerolog builds a timestamped logger writing to every configured output.
// With no output configured it writes to stderr.
func NewZerolog(opts ZerologOptions) zerolog.Logger {
	var writers []io.Writer
	if opts.Console != nil {
		writers = append(writers, zerolog.ConsoleWriter{Out: opts.Console, TimeFormat: time.RFC3339})
	}
	if opts.File != nil {
		writers = append(writers, zerolog.ConsoleWriter{Out: opts.File, TimeFormat: time.RFC3339, NoColor: true})
	}
	if opts.Graylog != nil {
		writers = append(writers, opts.Graylog)
	}
	if len(writers) == 0 {
		writers = append(writers, os.Stderr)
	}

	l := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(ParseZerologLevel(opts.Level)).
		With().Timestamp().Logger()
	if opts.Hook != nil {
		l = l.Hook(opts.Hook)
	}
	return l
}

// Sampled wraps l for per-tick messages: five entries per ten seconds, then
// one in a hundred.
func Sampled(l zerolog.Logger) zerolog.Logger {
	return l.With().Bool("sampled", true).Logger().Sample(&zerolog.BurstSampler{
		Burst:       5,
		Period:      10 * time.Second,
		NextSampler: &zerolog.BasicSampler{N: 100},
	})
}
