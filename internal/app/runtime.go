package app

import "os"

// InTestMode reports whether the process should skip runtime side effects.
// Set MERIDIAN_TEST_MODE=1 in harnesses that import main packages.
func InTestMode() bool {
	return os.Getenv("MERIDIAN_TEST_MODE") == "1"
}
