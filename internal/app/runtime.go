package app

import (
	"os"
	"sync"
)

// TestModeEnv, when set to "1", disables process side effects such as
// listeners, cron registration and outbound connections.
const TestModeEnv = "PIVOTBOARD_TEST_MODE"

var testMode = sync.OnceValue(func() bool {
	return os.Getenv(TestModeEnv) == "1"
})

// InTestMode reports whether the process should skip runtime side effects.
// The environment is read once.
func InTestMode() bool {
	return testMode()
}
