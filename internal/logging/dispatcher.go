package logging

import "github.com/rs/zerolog"

// DispatcherLogger adapts zerolog.Logger to the dispatcher.Logger interface.
// The dispatcher logs every request it routes at debug, once per tick per
// player, so debug records go through the sampler.
type DispatcherLogger struct {
	logger  zerolog.Logger
	sampled zerolog.Logger
}

// NewDispatcherLogger wraps logger.
func NewDispatcherLogger(logger zerolog.Logger) *DispatcherLogger {
	return &DispatcherLogger{logger: logger, sampled: Sampled(logger)}
}

func (l *DispatcherLogger) Debug(msg string, keysAndValues ...any) {
	write(l.sampled.Debug(), msg, keysAndValues)
}

func (l *DispatcherLogger) Info(msg string, keysAndValues ...any) {
	write(l.logger.Info(), msg, keysAndValues)
}

func (l *DispatcherLogger) Error(msg string, keysAndValues ...any) {
	write(l.logger.Error(), msg, keysAndValues)
}

func write(e *zerolog.Event, msg string, keysAndValues []any) {
	if e == nil {
		return
	}
	fields := toFields(keysAndValues)
	for k, v := range fields {
		if err, ok := v.(error); ok {
			e = e.AnErr(k, err)
			delete(fields, k)
		}
	}
	e.Fields(fields).Msg(msg)
}

// toFields converts key-value pairs to a map for zerolog. Non-string keys
// and a trailing odd value are skipped.
func toFields(keysAndValues []any) map[string]any {
	fields := make(map[string]any, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		if key, ok := keysAndValues[i].(string); ok {
			fields[key] = keysAndValues[i+1]
		}
	}
	return fields
}
