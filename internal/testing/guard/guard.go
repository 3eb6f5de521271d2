// Package guard switches the process into test mode when imported, before any
// main package reads the flag.
package guard

import (
	"os"

	"github.com/odyssey-erp/pivotboard/internal/app"
)

func init() {
	if os.Getenv(app.TestModeEnv) == "" {
		_ = os.Setenv(app.TestModeEnv, "1")
	}
}
