// Package testutil provides shared test helpers.
package testutil

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/banshee-data/floorobjects/internal/monitoring"
)

// LocalDebugRequest creates a request that appears to come from localhost,
// which tsweb's debug handler requires.
func LocalDebugRequest(method, path string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, path, body)
	req.RemoteAddr = "127.0.0.1:12345"
	return req
}

// TempDBPath returns a path for a sqlite file inside t's temp dir.
func TempDBPath(t testing.TB, name string) string {
	t.Helper()
	return filepath.Join(t.TempDir(), name)
}

// LogCapture collects messages written through monitoring.Logf.
type LogCapture struct {
	mu   sync.Mutex
	msgs []string
}

// Messages returns the captured messages in order.
func (c *LogCapture) Messages() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.msgs...)
}

// CaptureLogs redirects monitoring.Logf into the returned capture until the
// test ends. Tests using it must not run in parallel.
func CaptureLogs(t testing.TB) *LogCapture {
	t.Helper()
	c := &LogCapture{}
	prev := monitoring.Logf
	monitoring.SetLogger(func(format string, v ...interface{}) {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.msgs = append(c.msgs, fmt.Sprintf(format, v...))
	})
	t.Cleanup(func() { monitoring.SetLogger(prev) })
	return c
}
