package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// osStdout is swapped by tests.
var osStdout io.Writer = os.Stdout

// SlogManager manages slog-based logging with optional OTel integration.
type SlogManager struct {
	logger      *slog.Logger
	serviceName string
	sinks       *MultiHandler

	// OTel provider for flushing
	logProvider *sdklog.LoggerProvider
}

// NewSlogManager creates a new slog-based logging manager.
func NewSlogManager(serviceName string) *SlogManager {
	return &SlogManager{serviceName: serviceName}
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Setup initializes the logging system. Records go to file when one is given,
// to stdout otherwise, and to OTel when provider is non-nil. A non-nil
// contextProvider attaches live simulation state to every file/console record.
func (m *SlogManager) Setup(file io.Writer, level string, provider *sdklog.LoggerProvider, contextProvider ContextProvider) {
	lvl := parseLevel(level)
	m.logProvider = provider

	handlerOpts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
				}
			}
			return a
		},
	}

	var handlers []slog.Handler

	// The terminal driver owns stdout once a file is configured.
	if file != nil {
		handlers = append(handlers, slog.NewTextHandler(file, handlerOpts))
	} else {
		handlers = append(handlers, slog.NewTextHandler(osStdout, handlerOpts))
	}

	if provider != nil {
		handlers = append(handlers, otelslog.NewHandler(m.serviceName, otelslog.WithLoggerProvider(provider)))
	}

	m.sinks = NewMultiHandler(handlers...)
	var handler slog.Handler = m.sinks
	if contextProvider != nil {
		handler = NewContextHandler(handler, contextProvider)
	}

	m.logger = slog.New(handler)
	m.logger.Info("Logging initialized", "level", level, "service", m.serviceName)
}

// Logger returns the configured slog.Logger.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		return slog.Default()
	}
	return m.logger
}

// Component returns a child logger tagged with the component name.
func (m *SlogManager) Component(name string) *slog.Logger {
	return m.Logger().With("component", name)
}

// RejectedRecords returns how many records a sink failed to write since Setup.
func (m *SlogManager) RejectedRecords() int64 {
	if m.sinks == nil {
		return 0
	}
	return m.sinks.Failures()
}

// Flush forces a flush of OTel logs if available.
func (m *SlogManager) Flush(ctx context.Context) error {
	if m.logProvider != nil {
		return m.logProvider.ForceFlush(ctx)
	}
	return nil
}
