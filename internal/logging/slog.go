package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

const defaultService = "combatsync"

// Options configures SlogManager.Setup. Every sink but the console is optional.
type Options struct {
	Service  string
	Level    string
	File     io.Writer              // text records, the console when nil
	Console  io.Writer              // stdout when nil
	Graylog  io.Writer              // GELF writer, nil when disabled
	Provider *sdklog.LoggerProvider // nil disables the OTel bridge
	Context  ContextProvider        // attributes added to every record
}

// SlogManager owns the process slog.Logger. Loggers handed out before a
// later Setup keep writing to the sinks they were built with, but follow
// level changes.
type SlogManager struct {
	level    slog.LevelVar
	logger   *slog.Logger
	provider *sdklog.LoggerProvider
}

func NewSlogManager() *SlogManager {
	return &SlogManager{}
}

func parseLevel(level string) slog.Level {
	switch normalizeLevel(level) {
	case "TRACE", "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// utcTime renders record times as RFC 3339 in UTC.
func utcTime(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.TimeKey {
		return a
	}
	if t, ok := a.Value.Any().(time.Time); ok {
		a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
	}
	return a
}

// Setup builds a new logger over the configured sinks and makes it current.
func (m *SlogManager) Setup(opts Options) {
	m.level.Set(parseLevel(opts.Level))
	m.provider = opts.Provider
	if opts.Service == "" {
		opts.Service = defaultService
	}

	var h slog.Handler = NewMultiHandler(m.sinks(opts)...)
	if opts.Context != nil {
		h = NewContextHandler(h, opts.Context)
	}
	m.logger = slog.New(h)
	m.logger.Info("Logging initialized", "level", m.level.Level().String())
}

func (m *SlogManager) sinks(opts Options) []slog.Handler {
	ho := &slog.HandlerOptions{Level: &m.level, ReplaceAttr: utcTime}

	text := opts.File
	if text == nil {
		text = opts.Console
	}
	if text == nil {
		text = os.Stdout
	}
	sinks := []slog.Handler{slog.NewTextHandler(text, ho)}
	if opts.Graylog != nil {
		sinks = append(sinks, slog.NewJSONHandler(opts.Graylog, ho).
			WithAttrs([]slog.Attr{slog.String("service", opts.Service)}))
	}
	if opts.Provider != nil {
		sinks = append(sinks, otelslog.NewHandler(opts.Service, otelslog.WithLoggerProvider(opts.Provider)))
	}
	return sinks
}

// SetLevel changes the level of every logger this manager has built.
func (m *SlogManager) SetLevel(level string) {
	m.level.Set(parseLevel(level))
}

// Logger returns the configured slog.Logger, or slog.Default before Setup.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		return slog.Default()
	}
	return m.logger
}

// Flush forces a flush of OTel logs if available.
func (m *SlogManager) Flush(ctx context.Context) error {
	if m.provider == nil {
		return nil
	}
	return m.provider.ForceFlush(ctx)
}
