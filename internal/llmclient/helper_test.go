package llmclient

import (
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/scout-cli/internal/config"
)

func setupTestLogger(t *testing.T) *zap.Logger {
	t.Helper()
	return zaptest.NewLogger(t)
}

// getValidLLMConfig returns a minimal model configuration that passes client
// construction.
func getValidLLMConfig() config.LLMModelConfig {
	return config.LLMModelConfig{
		Provider:   config.ProviderGemini,
		Model:      "gemini-2.5-pro",
		APIKey:     "test-api-key",
		APITimeout: 5 * time.Second,
	}
}
