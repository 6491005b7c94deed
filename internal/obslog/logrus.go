package obslog

import "github.com/sirupsen/logrus"

// logrusLogger wraps a logrus.FieldLogger so With* calls actually
// thread an *logrus.Entry through the chain rather than discarding it.
type logrusLogger struct {
	log logrus.FieldLogger
}

// New wraps a freshly configured logrus.Logger as a Logger.
func New(base *logrus.Logger) Logger {
	return &logrusLogger{log: base}
}

func (l *logrusLogger) Debug(args ...interface{})                 { l.log.Debug(args...) }
func (l *logrusLogger) Debugf(format string, args ...interface{}) { l.log.Debugf(format, args...) }
func (l *logrusLogger) Info(args ...interface{})                  { l.log.Info(args...) }
func (l *logrusLogger) Infof(format string, args ...interface{})  { l.log.Infof(format, args...) }
func (l *logrusLogger) Warn(args ...interface{})                  { l.log.Warn(args...) }
func (l *logrusLogger) Warnf(format string, args ...interface{})  { l.log.Warnf(format, args...) }
func (l *logrusLogger) Error(args ...interface{})                 { l.log.Error(args...) }
func (l *logrusLogger) Errorf(format string, args ...interface{}) { l.log.Errorf(format, args...) }

func (l *logrusLogger) WithField(field string, value interface{}) Logger {
	return &logrusLogger{log: l.log.WithField(field, value)}
}

func (l *logrusLogger) WithFields(fields Fields) Logger {
	return &logrusLogger{log: l.log.WithFields(logrus.Fields(fields))}
}

func (l *logrusLogger) WithError(err error) Logger {
	return &logrusLogger{log: l.log.WithError(err)}
}
