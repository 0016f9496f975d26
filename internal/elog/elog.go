// Package elog gives the ssh package a structured logging sink backed by
// logrus by default, without requiring ssh to import logrus directly.
package elog

import "github.com/sirupsen/logrus"

// Fields is type-compatible with logrus.Fields.
type Fields map[string]interface{}

// Trace is the interface returned by a Logger's With* methods.
type Trace interface {
	Debug(args ...interface{})
	Info(args ...interface{})
	Warn(args ...interface{})
	Error(args ...interface{})
}

// Logger is the logging sink the ssh package writes to. Embedders may
// supply their own implementation; Default uses the package-level
// logrus.StandardLogger().
type Logger interface {
	WithFields(fields Fields) Trace
}

// logrusLogger is a Logger backed by a *logrus.Logger.
type logrusLogger struct {
	entry *logrus.Logger
}

// NewLogrus wraps an existing *logrus.Logger as a Logger.
func NewLogrus(l *logrus.Logger) Logger {
	return &logrusLogger{entry: l}
}

func (l *logrusLogger) WithFields(fields Fields) Trace {
	return l.entry.WithFields(logrus.Fields(fields))
}

// Default is the package-wide logger used when a Config does not supply
// its own. With logrus's default settings (Info level, stderr output),
// Debug entries are dropped and Info, Warn and Error entries are written.
var Default Logger = NewLogrus(logrus.StandardLogger())

// noop discards everything; used when a caller explicitly wants silence.
type noopTrace struct{}

func (noopTrace) Debug(args ...interface{}) {}
func (noopTrace) Info(args ...interface{})  {}
func (noopTrace) Warn(args ...interface{})  {}
func (noopTrace) Error(args ...interface{}) {}

type noopLogger struct{}

func (noopLogger) WithFields(Fields) Trace { return noopTrace{} }

// Noop is a Logger that discards everything.
var Noop Logger = noopLogger{}
