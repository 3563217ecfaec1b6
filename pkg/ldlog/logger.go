// Package ldlog is a small level-gated logging sink wrapping logrus, kept
// narrow so the rest of the module depends on this interface instead of
// importing logrus directly. Mirrors the teacher's core/pkg/logger package.
package ldlog

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Loggers is the level-gated sink every component accepts at construction.
type Loggers interface {
	Debug(args ...interface{})
	Debugf(format string, args ...interface{})
	Info(args ...interface{})
	Infof(format string, args ...interface{})
	Warn(args ...interface{})
	Warnf(format string, args ...interface{})
	Error(args ...interface{})
	Errorf(format string, args ...interface{})
	With(fields Fields) Loggers
}

// Fields is a set of structured key/value pairs attached to a log line.
type Fields map[string]interface{}

type logrusLoggers struct {
	entry *logrus.Entry
}

// NewDefaultLoggers builds a Loggers backed by a logrus.Logger writing to
// stderr at Info level, matching the teacher's default logrus setup.
func NewDefaultLoggers() Loggers {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.InfoLevel)
	return &logrusLoggers{entry: logrus.NewEntry(l)}
}

// NewLoggers wraps an existing *logrus.Logger, for callers that want to
// control formatter/level/output themselves (e.g. the cobra CLI).
func NewLoggers(l *logrus.Logger) Loggers {
	return &logrusLoggers{entry: logrus.NewEntry(l)}
}

func (l *logrusLoggers) Debug(args ...interface{})                 { l.entry.Debug(args...) }
func (l *logrusLoggers) Debugf(format string, args ...interface{}) { l.entry.Debugf(format, args...) }
func (l *logrusLoggers) Info(args ...interface{})                  { l.entry.Info(args...) }
func (l *logrusLoggers) Infof(format string, args ...interface{})  { l.entry.Infof(format, args...) }
func (l *logrusLoggers) Warn(args ...interface{})                  { l.entry.Warn(args...) }
func (l *logrusLoggers) Warnf(format string, args ...interface{})  { l.entry.Warnf(format, args...) }
func (l *logrusLoggers) Error(args ...interface{})                 { l.entry.Error(args...) }
func (l *logrusLoggers) Errorf(format string, args ...interface{}) { l.entry.Errorf(format, args...) }

func (l *logrusLoggers) With(fields Fields) Loggers {
	return &logrusLoggers{entry: l.entry.WithFields(logrus.Fields(fields))}
}
