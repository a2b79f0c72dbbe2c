// internal/webagent/main_test.go
package webagent

import (
	"os"
	"testing"

	"go.uber.org/goleak"
	"go.uber.org/zap/zapcore"

	"github.com/xkilldash9x/scout-cli/internal/config"
	"github.com/xkilldash9x/scout-cli/internal/observability"
)

// TestMain initializes the global logger once for the package and verifies no
// goroutines leak across the suite.
func TestMain(m *testing.M) {
	cfg := config.NewDefaultConfig()
	logCfg := cfg.Logger
	logCfg.Level = "debug"
	logCfg.Format = "console"

	observability.Initialize(logCfg, zapcore.Lock(os.Stdout))

	exitCode := m.Run()

	observability.Sync()
	observability.ResetForTest()

	if exitCode == 0 {
		if err := goleak.Find(); err != nil {
			os.Exit(1)
		}
	}
	os.Exit(exitCode)
}
