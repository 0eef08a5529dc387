package app

import (
	"os"
	"sync/atomic"
)

// testModeEnv makes the binaries return before dialing Postgres or Redis.
const testModeEnv = "INVOICEFLOW_TEST_MODE"

var testMode atomic.Pointer[bool]

// InTestMode reports whether INVOICEFLOW_TEST_MODE=1. The environment is read
// on first use; RefreshTestMode rereads it.
func InTestMode() bool {
	if v := testMode.Load(); v != nil {
		return *v
	}
	return RefreshTestMode()
}

// RefreshTestMode rereads the environment and returns the new value.
func RefreshTestMode() bool {
	v := os.Getenv(testModeEnv) == "1"
	testMode.Store(&v)
	return v
}
