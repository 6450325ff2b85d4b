package val

import (
	"os"

	"github.com/sirupsen/logrus"
)

// LogLevel mirrors the runtime-filterable levels of the original
// debug.log hook (VAL_LOG_* in original_source).
type LogLevel int

const (
	LogOff LogLevel = iota
	LogCritical
	LogWarning
	LogInfo
	LogDebug
	LogTrace
)

// Logger is the structured-logging sink a Session writes to. Because
// WithField returns a Logger, logrus types do not satisfy it directly;
// logrusLogger adapts a *logrus.Entry to it, matching the way
// samsamfire-gocanopen wires sirupsen/logrus through pkg/sdo and
// pkg/node. Callers embedding VAL on constrained hardware can supply a
// zero-alloc no-op implementation instead.
type Logger interface {
	WithField(key string, value interface{}) Logger
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// logrusLogger adapts *logrus.Entry to the Logger interface.
type logrusLogger struct{ e *logrus.Entry }

func newDefaultLogger() Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.WarnLevel)
	return logrusLogger{e: logrus.NewEntry(l)}
}

func (l logrusLogger) WithField(key string, value interface{}) Logger {
	return logrusLogger{e: l.e.WithField(key, value)}
}
func (l logrusLogger) Debugf(format string, args ...interface{}) { l.e.Debugf(format, args...) }
func (l logrusLogger) Infof(format string, args ...interface{})  { l.e.Infof(format, args...) }
func (l logrusLogger) Warnf(format string, args ...interface{})  { l.e.Warnf(format, args...) }
func (l logrusLogger) Errorf(format string, args ...interface{}) { l.e.Errorf(format, args...) }

// noopLogger discards everything; used when min_level is LogOff.
type noopLogger struct{}

func (noopLogger) WithField(string, interface{}) Logger        { return noopLogger{} }
func (noopLogger) Debugf(string, ...interface{})                {}
func (noopLogger) Infof(string, ...interface{})                 {}
func (noopLogger) Warnf(string, ...interface{})                 {}
func (noopLogger) Errorf(string, ...interface{})                {}
