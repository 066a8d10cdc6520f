package logger

import (
	"github.com/pion/logging"
	"github.com/sirupsen/logrus"
)

// PionFactory routes pion's scoped loggers into a logrus logger.
type PionFactory struct {
	Logger *logrus.Logger
}

func (f PionFactory) NewLogger(scope string) logging.LeveledLogger {
	return &pionLogger{entry: f.Logger.WithField("scope", scope)}
}

type pionLogger struct {
	entry *logrus.Entry
}

func (l *pionLogger) Trace(msg string)                          { l.entry.Trace(msg) }
func (l *pionLogger) Tracef(format string, args ...interface{}) { l.entry.Tracef(format, args...) }
func (l *pionLogger) Debug(msg string)                          { l.entry.Debug(msg) }
func (l *pionLogger) Debugf(format string, args ...interface{}) { l.entry.Debugf(format, args...) }
func (l *pionLogger) Info(msg string)                           { l.entry.Info(msg) }
func (l *pionLogger) Infof(format string, args ...interface{})  { l.entry.Infof(format, args...) }
func (l *pionLogger) Warn(msg string)                           { l.entry.Warn(msg) }
func (l *pionLogger) Warnf(format string, args ...interface{})  { l.entry.Warnf(format, args...) }
func (l *pionLogger) Error(msg string)                          { l.entry.Error(msg) }
func (l *pionLogger) Errorf(format string, args ...interface{}) { l.entry.Errorf(format, args...) }
