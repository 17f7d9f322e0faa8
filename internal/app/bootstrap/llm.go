// internal/app/bootstrap/llm.go
package bootstrap

import (
	"context"
	"fmt"

	"github.com/dalemusser/doctorados/internal/app/system/explain"
	"github.com/dalemusser/doctorados/internal/clients/gemini"
	"github.com/dalemusser/doctorados/internal/clients/openai"
	"go.uber.org/zap"
)

// NewExplainer builds the explanation service for the configured provider.
// Call ValidateLLM first.
func NewExplainer(ctx context.Context, appCfg AppConfig, logger *zap.Logger) (*explain.Explainer, error) {
	var (
		gen   explain.Generator
		model string
	)

	switch appCfg.LLMProvider {
	case ProviderOpenAI:
		c, err := openai.New(openai.Config{
			APIKey:      appCfg.OpenAIAPIKey,
			BaseURL:     appCfg.OpenAIBaseURL,
			Model:       appCfg.OpenAIModel,
			MaxTokens:   appCfg.LLMMaxTokens,
			Temperature: appCfg.LLMTemperature,
			MaxRetries:  appCfg.LLMMaxRetries,
		}, logger)
		if err != nil {
			return nil, err
		}
		gen, model = c, c.Model()
	case ProviderGemini:
		c, err := gemini.New(ctx, gemini.Config{
			APIKey:      appCfg.GeminiAPIKey,
			Model:       appCfg.GeminiModel,
			MaxTokens:   appCfg.LLMMaxTokens,
			Temperature: appCfg.LLMTemperature,
		}, logger)
		if err != nil {
			return nil, err
		}
		gen, model = c, c.Model()
	default:
		return nil, fmt.Errorf("unknown llm_provider %q", appCfg.LLMProvider)
	}

	logger.Info("text generation configured",
		zap.String("provider", appCfg.LLMProvider),
		zap.String("model", model),
		zap.Duration("timeout", appCfg.LLMTimeout))
	return explain.New(gen, appCfg.LLMTimeout, logger), nil
}
