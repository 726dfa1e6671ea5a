package logging

import (
	"time"

	"github.com/rs/zerolog"
)

// badKey names a trailing value that has no key, matching slog.
const badKey = "!BADKEY"

// DispatcherLogger adapts zerolog.Logger to the dispatcher.Logger interface.
// The event bus logs at high frequency, so it gets zerolog's allocation-free path.
type DispatcherLogger struct {
	logger zerolog.Logger
}

// NewDispatcherLogger creates a new DispatcherLogger wrapping a zerolog.Logger.
func NewDispatcherLogger(logger zerolog.Logger) *DispatcherLogger {
	return &DispatcherLogger{logger: logger}
}

// Debug logs per-event handling detail.
func (l *DispatcherLogger) Debug(msg string, keysAndValues ...any) {
	write(l.logger.Debug(), msg, keysAndValues)
}

// Info logs bus lifecycle messages.
func (l *DispatcherLogger) Info(msg string, keysAndValues ...any) {
	write(l.logger.Info(), msg, keysAndValues)
}

// Error logs handler failures and dropped events.
func (l *DispatcherLogger) Error(msg string, keysAndValues ...any) {
	write(l.logger.Error(), msg, keysAndValues)
}

// write appends key-value pairs to e as typed zerolog fields and sends it.
// Pairs with a non-string key are skipped. e is nil when the level is disabled.
func write(e *zerolog.Event, msg string, keysAndValues []any) {
	if e == nil {
		return
	}
	for i := 0; i < len(keysAndValues); i += 2 {
		if i+1 == len(keysAndValues) {
			e = e.Interface(badKey, keysAndValues[i])
			break
		}
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		switch v := keysAndValues[i+1].(type) {
		case error:
			e = e.AnErr(key, v)
		case string:
			e = e.Str(key, v)
		case time.Duration:
			e = e.Dur(key, v)
		default:
			e = e.Interface(key, v)
		}
	}
	e.Msg(msg)
}
