// Package testutil holds helpers shared by tests that need real network resources.
package testutil

import (
	"net"
	"testing"
)

// RequireLoopback skips the test in short mode or when no loopback TCP listener
// can be opened, as in some sandboxed CI runners.
func RequireLoopback(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping socket test in short mode")
	}
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("loopback listener unavailable: %v", err)
	}
	_ = listener.Close()
}
