// Package testutil starts throwaway database containers for integration
// tests. Containers are shared by every test of a package binary and are
// reaped by the testcontainers Ryuk sidecar when the binary exits.
package testutil

import (
	"testing"
)

// SkipIfShort skips container-backed tests under go test -short.
func SkipIfShort(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}
}

// requireContainer skips the test when the container could not be started,
// typically because no Docker daemon is reachable.
func requireContainer(t *testing.T, name string, err error) {
	t.Helper()
	if err != nil {
		t.Skipf("%s container unavailable: %v", name, err)
	}
}
