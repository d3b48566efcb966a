// Package testing switches the runtime into test mode for any test binary
// that imports it.
package testing

import "os"

func init() {
	_ = os.Setenv("ROOFING_TEST_MODE", "1")
}
