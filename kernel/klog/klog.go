// Package klog wraps logrus so that the rest of the kernel packages never
// import it directly. Its callers are the registry (one Info line per
// successful switch) and the priority scheduler (one Debug line per aging
// promotion); allocators and IPC transports do not log, and print_stats
// output goes through kernel.Sink instead.
package klog

import "github.com/sirupsen/logrus"

var log = logrus.New()

// SetOutput points the logger at w; tests redirect this to capture output.
func SetOutput(w logrusWriter) { log.SetOutput(w) }

// logrusWriter mirrors io.Writer without importing io just for this alias.
type logrusWriter interface {
	Write(p []byte) (n int, err error)
}

// SetLevel adjusts verbosity; defaults to logrus.InfoLevel.
func SetLevel(level logrus.Level) { log.SetLevel(level) }

// Debugf logs a low-level diagnostic, e.g. a priority-scheduler aging
// promotion.
func Debugf(format string, args ...interface{}) { log.Debugf(format, args...) }

// Infof logs a routine lifecycle event, e.g. a successful registry swap.
func Infof(format string, args ...interface{}) { log.Infof(format, args...) }

// Warnf logs a recoverable anomaly, e.g. a denied capability grant.
func Warnf(format string, args ...interface{}) { log.Warnf(format, args...) }

// WithField returns a logrus entry for structured call sites that need more
// than one field (e.g. role + variant name on a registry swap).
func WithField(key string, value interface{}) *logrus.Entry {
	return log.WithField(key, value)
}
