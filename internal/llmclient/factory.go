// internal/llmclient/factory.go
package llmclient

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/xkilldash9x/scout-cli/api/schemas"
	"github.com/xkilldash9x/scout-cli/internal/config"
)

// NewClient is a factory that builds an LLMClient for the named model from the
// router configuration. The API key falls back to SCOUT_LLM_API_KEY when the
// config leaves it blank, so secrets stay out of config files.
func NewClient(router config.LLMRouterConfig, modelName string, logger *zap.Logger) (schemas.LLMClient, error) {
	modelCfg, ok := router.Models[modelName]
	if !ok {
		// An unlisted model is assumed to be Gemini-hosted; only the name is needed.
		modelCfg = config.LLMModelConfig{Provider: config.ProviderGemini, Model: modelName}
	}
	if modelCfg.Model == "" {
		modelCfg.Model = modelName
	}
	if modelCfg.APIKey == "" {
		modelCfg.APIKey = os.Getenv("SCOUT_LLM_API_KEY")
	}

	switch modelCfg.Provider {
	case config.ProviderGemini, "":
		return NewGeminiClient(modelCfg, logger)
	default:
		return nil, fmt.Errorf("unknown or unsupported LLM provider configured: %q. Supported: [%s]", modelCfg.Provider, config.ProviderGemini)
	}
}
