//go:build !windows

package source

import "os"

// openShared opens path read-only. POSIX opens never take mandatory locks,
// so concurrent writers are unaffected.
func openShared(path string) (*os.File, error) {
	return os.Open(path) //nolint:gosec // path is user-provided intentionally
}
