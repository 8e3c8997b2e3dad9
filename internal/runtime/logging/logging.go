// Package logging adapts application loggers to the contract used by chanflow
// networks and mailboxes. Channel wiring itself never logs; only the runtime
// around it does.
package logging

// LogFields are the structured key/value pairs of one log entry.
type LogFields map[string]any

// Field keys shared by every chanflow log entry.
const (
	FieldComponent   = "component"
	FieldNetwork     = "network"
	FieldChannel     = "channel"
	FieldConsumer    = "consumer"
	FieldMessageType = "message_type"
	FieldTopic       = "topic"
)

// ServiceLogger is the logging contract of a chanflow network. It mirrors
// Watermill's LoggerAdapter so the mailbox router can share it.
type ServiceLogger interface {
	With(fields LogFields) ServiceLogger
	Debug(msg string, fields LogFields)
	Info(msg string, fields LogFields)
	Error(msg string, err error, fields LogFields)
	Trace(msg string, fields LogFields)
}

// EntryLoggerAdapter is satisfied by entry-style loggers (logrus.Entry and
// similar) whose builder methods return their own type.
type EntryLoggerAdapter[T any] interface {
	Error(args ...any)
	Info(args ...any)
	Debug(args ...any)
	Trace(args ...any)
	WithError(err error) T
	WithField(key string, value any) T
}

// Component returns a child logger tagged with the emitting component, e.g.
// "mailbox" or "network". A nil log yields a no-op logger.
func Component(log ServiceLogger, name string) ServiceLogger {
	if log == nil {
		return NewNopServiceLogger()
	}
	return log.With(LogFields{FieldComponent: name})
}

// Merge returns a new LogFields holding base overlaid with extra. Either may
// be nil.
func Merge(base, extra LogFields) LogFields {
	if len(base) == 0 && len(extra) == 0 {
		return nil
	}
	out := make(LogFields, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}
