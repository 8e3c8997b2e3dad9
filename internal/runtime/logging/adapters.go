package logging

import (
	"log/slog"
	"maps"
	"reflect"
	"slices"

	"github.com/ThreeDotsLabs/watermill"
)

// NewSlogServiceLogger logs through log. Watermill's slog adapter maps its
// trace level to slog debug.
func NewSlogServiceLogger(log *slog.Logger) ServiceLogger {
	if log == nil {
		panic("chanflow: slog logger cannot be nil")
	}
	levels := map[slog.Level]slog.Level{
		slog.LevelDebug: slog.LevelDebug,
		slog.LevelInfo:  slog.LevelInfo,
		slog.LevelWarn:  slog.LevelWarn,
		slog.LevelError: slog.LevelError,
	}
	return NewWatermillServiceLogger(watermill.NewSlogLoggerWithLevelMapping(log, levels))
}

// NewWatermillServiceLogger logs through an existing Watermill LoggerAdapter.
func NewWatermillServiceLogger(logger watermill.LoggerAdapter) ServiceLogger {
	if logger == nil {
		panic("chanflow: watermill logger cannot be nil")
	}
	return wmLogger{logger}
}

// NewNopServiceLogger returns a ServiceLogger that drops every entry.
func NewNopServiceLogger() ServiceLogger {
	return wmLogger{watermill.NopLogger{}}
}

// NewEntryServiceLogger logs through an entry-style logger. Fields are
// applied in key order so output is stable.
func NewEntryServiceLogger[T EntryLoggerAdapter[T]](entry T) ServiceLogger {
	if v := reflect.ValueOf(any(entry)); !v.IsValid() || (v.Kind() == reflect.Pointer && v.IsNil()) {
		panic("chanflow: entry logger cannot be nil")
	}
	return entryLogger[T]{entry}
}

// NewWatermillAdapter exposes log as a Watermill LoggerAdapter for the
// mailbox router and pub/sub.
func NewWatermillAdapter(log ServiceLogger) watermill.LoggerAdapter {
	if log == nil {
		panic("chanflow: ServiceLogger cannot be nil")
	}
	if wm, ok := log.(wmLogger); ok {
		return wm.inner
	}
	return routerLogger{log}
}

type wmLogger struct {
	inner watermill.LoggerAdapter
}

func (w wmLogger) With(fields LogFields) ServiceLogger {
	if len(fields) == 0 {
		return w
	}
	return wmLogger{w.inner.With(watermill.LogFields(fields))}
}

func (w wmLogger) Debug(msg string, fields LogFields) { w.inner.Debug(msg, wmFields(fields)) }
func (w wmLogger) Info(msg string, fields LogFields)  { w.inner.Info(msg, wmFields(fields)) }
func (w wmLogger) Trace(msg string, fields LogFields) { w.inner.Trace(msg, wmFields(fields)) }
func (w wmLogger) Error(msg string, err error, fields LogFields) {
	w.inner.Error(msg, err, wmFields(fields))
}

type entryLogger[T EntryLoggerAdapter[T]] struct {
	entry T
}

func (e entryLogger[T]) With(fields LogFields) ServiceLogger {
	if len(fields) == 0 {
		return e
	}
	return entryLogger[T]{withFields(e.entry, fields)}
}

func (e entryLogger[T]) Debug(msg string, fields LogFields) { withFields(e.entry, fields).Debug(msg) }
func (e entryLogger[T]) Info(msg string, fields LogFields)  { withFields(e.entry, fields).Info(msg) }
func (e entryLogger[T]) Trace(msg string, fields LogFields) { withFields(e.entry, fields).Trace(msg) }
func (e entryLogger[T]) Error(msg string, err error, fields LogFields) {
	entry := withFields(e.entry, fields)
	if err != nil {
		entry = entry.WithError(err)
	}
	entry.Error(msg)
}

func withFields[T EntryLoggerAdapter[T]](entry T, fields LogFields) T {
	for _, key := range slices.Sorted(maps.Keys(fields)) {
		entry = entry.WithField(key, fields[key])
	}
	return entry
}

type routerLogger struct {
	base ServiceLogger
}

func (r routerLogger) Error(msg string, err error, fields watermill.LogFields) {
	r.base.Error(msg, err, LogFields(fields))
}
func (r routerLogger) Info(msg string, fields watermill.LogFields) {
	r.base.Info(msg, LogFields(fields))
}
func (r routerLogger) Debug(msg string, fields watermill.LogFields) {
	r.base.Debug(msg, LogFields(fields))
}
func (r routerLogger) Trace(msg string, fields watermill.LogFields) {
	r.base.Trace(msg, LogFields(fields))
}
func (r routerLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return routerLogger{r.base.With(LogFields(fields))}
}

func wmFields(fields LogFields) watermill.LogFields {
	if len(fields) == 0 {
		return nil
	}
	return watermill.LogFields(fields)
}
