package monitoring

import (
	"log"
	"sync/atomic"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Tagged returns a logger that prefixes every message with "[tag] " and
// forwards to whatever Logf is at call time, so SetLogger still applies
// to loggers created before it was called.
func Tagged(tag string) func(format string, v ...interface{}) {
	prefix := "[" + tag + "] "
	return func(format string, v ...interface{}) {
		Logf(prefix+format, v...)
	}
}

// RateLimited wraps a logger so that only the first n messages and then
// every n-th message after that are emitted. Per-frame warnings (lost
// tracking, dropped taps) use it to avoid flooding the log at 30–60 fps.
// The returned count is the total number of calls, emitted or not.
func RateLimited(n int64, logf func(format string, v ...interface{})) func(format string, v ...interface{}) int64 {
	if n <= 0 {
		n = 1
	}
	var calls atomic.Int64
	return func(format string, v ...interface{}) int64 {
		c := calls.Add(1)
		if c <= n || c%n == 0 {
			logf(format, v...)
		}
		return c
	}
}
