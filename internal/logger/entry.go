package logger

import (
	"context"
	"time"
)

// Entry carries metric fields for a single log line.
// Example: logger.With(logger.Fields{"attempt": 2}).Warn(ctx, "retrying")
type Entry struct {
	fields Fields
}

// With starts an Entry with the given fields.
func With(fields Fields) *Entry {
	return &Entry{fields: fields}
}

// With returns a copy of e with more fields merged in.
func (e *Entry) With(fields Fields) *Entry {
	merged := make(Fields, len(e.fields)+len(fields))
	for k, v := range e.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &Entry{fields: merged}
}

func (e *Entry) WithField(key string, value interface{}) *Entry {
	return e.With(Fields{key: value})
}

// WithSince records the milliseconds elapsed since start.
func (e *Entry) WithSince(start time.Time) *Entry {
	return e.WithField(FieldDurationMs, time.Since(start).Milliseconds())
}

func (e *Entry) WithAttempt(n int) *Entry {
	return e.WithField(FieldAttempt, n)
}

func (e *Entry) WithCount(n int) *Entry {
	return e.WithField(FieldCount, n)
}

func (e *Entry) Debug(ctx context.Context, format string, args ...interface{}) {
	FromContext(ctx).WithFields(e.fields).Debugf(format, args...)
}

func (e *Entry) Info(ctx context.Context, format string, args ...interface{}) {
	FromContext(ctx).WithFields(e.fields).Infof(format, args...)
}

func (e *Entry) Warn(ctx context.Context, format string, args ...interface{}) {
	FromContext(ctx).WithFields(e.fields).Warnf(format, args...)
}

func (e *Entry) Error(ctx context.Context, format string, args ...interface{}) {
	FromContext(ctx).WithFields(e.fields).Errorf(format, args...)
}
