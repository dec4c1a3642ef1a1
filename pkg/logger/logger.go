// Package logger is dropline's leveled, colored logging facade
// (Info/Warn/Error/Success/Section/Banner), backed by logrus.
package logger

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

var base = newBase()

func newBase() *logrus.Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05",
		ForceColors:     true,
	})
	l.SetLevel(logrus.InfoLevel)
	l.SetOutput(os.Stdout)
	return l
}

// SetLevel sets the minimum level that will be emitted, accepting the
// logrus level names ("debug", "info", "warn", "error").
func SetLevel(level string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return
	}
	base.SetLevel(lvl)
}

// Fields is a lightweight alias so call sites don't need to import logrus
// directly to attach structured context (transfer id, chunk id, peer addr).
type Fields = logrus.Fields

func Debug(format string, args ...interface{}) { base.Debugf(format, args...) }
func Info(format string, args ...interface{})  { base.Infof(format, args...) }
func Warn(format string, args ...interface{})  { base.Warnf(format, args...) }
func Error(format string, args ...interface{}) { base.Errorf(format, args...) }

// Success logs at info level tagged so it stands out; logrus has no
// distinct "success" level, so this is carried as a field instead.
func Success(format string, args ...interface{}) {
	base.WithField("status", "ok").Infof(format, args...)
}

// Fatal logs at fatal level and exits 1.
func Fatal(format string, args ...interface{}) {
	base.Fatalf(format, args...)
}

// WithFields returns an entry carrying structured context for one log
// line, e.g. logger.WithFields(logger.Fields{"transfer_id": id}).Info("...").
func WithFields(fields Fields) *logrus.Entry {
	return base.WithFields(fields)
}

// Section prints a plain section header.
func Section(title string) {
	fmt.Printf("\n=== %s ===\n\n", title)
}

// Banner prints the application's startup banner.
func Banner(title, version string) {
	fmt.Printf("%s (version %s)\n", title, version)
}
