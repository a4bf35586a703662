// Package logger wraps logrus with request-scoped context fields, the
// calling convention used throughout the example corpus
// (logger.GetLogger(ctx).Infof(...), logger.Errorf(ctx, ...)).
package logger

import (
	"context"

	"github.com/sirupsen/logrus"
)

type ctxKey struct{}

var base = logrus.New()

func init() {
	base.SetFormatter(&logrus.JSONFormatter{})
}

// WithFields returns a context carrying additional structured fields that
// GetLogger will attach to every subsequent log line.
func WithFields(ctx context.Context, fields logrus.Fields) context.Context {
	entry := entryFromContext(ctx).WithFields(fields)
	return context.WithValue(ctx, ctxKey{}, entry)
}

// GetLogger returns the request-scoped logrus entry for ctx, or the base
// logger if none has been attached.
func GetLogger(ctx context.Context) *logrus.Entry {
	return entryFromContext(ctx)
}

func entryFromContext(ctx context.Context) *logrus.Entry {
	if ctx != nil {
		if entry, ok := ctx.Value(ctxKey{}).(*logrus.Entry); ok {
			return entry
		}
	}
	return logrus.NewEntry(base)
}

// Infof logs an info-level message with context fields attached.
func Infof(ctx context.Context, format string, args ...interface{}) {
	GetLogger(ctx).Infof(format, args...)
}

// Warnf logs a warning-level message with context fields attached.
func Warnf(ctx context.Context, format string, args ...interface{}) {
	GetLogger(ctx).Warnf(format, args...)
}

// Errorf logs an error-level message with context fields attached.
func Errorf(ctx context.Context, format string, args ...interface{}) {
	GetLogger(ctx).Errorf(format, args...)
}

// SetLevel adjusts the base logger's verbosity. cmd/server does not call
// it; the base logger keeps its default level.
func SetLevel(level logrus.Level) {
	base.SetLevel(level)
}
