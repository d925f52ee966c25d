package main

import (
	"fmt"
	"os"

	"github.com/loomrt/loom/pkg/loomerr"
	"github.com/loomrt/loom/pkg/model"
)

// resolveProvider builds a model.Provider for the given ref. The
// provider family is picked by explicit --provider flag when set,
// otherwise inferred from which API key environment variable is
// present, matching the teacher's zero-config provider detection in
// cmd/hector (ServeCmd.loadConfig's zero-config branch).
func resolveProvider(providerName, apiKeyFlag, baseURL, modelRef string) (model.Provider, error) {
	if providerName == "" {
		providerName = detectProviderFamily()
	}

	switch providerName {
	case "anthropic":
		apiKey := firstNonEmpty(apiKeyFlag, os.Getenv("ANTHROPIC_API_KEY"))
		if apiKey == "" {
			return nil, loomerr.New(loomerr.Validation, "loomctl.resolveProvider", fmt.Errorf("ANTHROPIC_API_KEY is not set"))
		}
		return model.NewAnthropicProvider(model.AnthropicConfig{
			APIKey:       apiKey,
			BaseURL:      baseURL,
			DefaultModel: modelRef,
			Retry:        model.DefaultRetryPolicy(),
		})
	case "openai":
		apiKey := firstNonEmpty(apiKeyFlag, os.Getenv("OPENAI_API_KEY"))
		if apiKey == "" {
			return nil, loomerr.New(loomerr.Validation, "loomctl.resolveProvider", fmt.Errorf("OPENAI_API_KEY is not set"))
		}
		return model.NewOpenAIProvider(model.OpenAIConfig{
			APIKey:       apiKey,
			BaseURL:      baseURL,
			DefaultModel: modelRef,
			Retry:        model.DefaultRetryPolicy(),
		})
	default:
		return nil, loomerr.New(loomerr.Validation, "loomctl.resolveProvider", fmt.Errorf("unknown provider %q (want anthropic or openai)", providerName))
	}
}

func detectProviderFamily() string {
	if os.Getenv("ANTHROPIC_API_KEY") != "" {
		return "anthropic"
	}
	return "openai"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
