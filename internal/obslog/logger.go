// Package obslog defines the small structured-logging interface the
// ingress core logs through, so every package outside internal/obslog
// depends on an interface rather than on logrus directly.
package obslog

// Logger is the structured logger every component in this repository
// logs through for drop reasons and delivery failures.
type Logger interface {
	Debug(args ...interface{})
	Debugf(format string, args ...interface{})

	Info(args ...interface{})
	Infof(format string, args ...interface{})

	Warn(args ...interface{})
	Warnf(format string, args ...interface{})

	Error(args ...interface{})
	Errorf(format string, args ...interface{})

	WithField(field string, value interface{}) Logger
	WithFields(fields Fields) Logger
	WithError(err error) Logger
}

// Fields is a set of structured key/value pairs attached to a log
// line.
type Fields map[string]interface{}
