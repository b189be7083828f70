//go:build bedrock

package main

import (
	"log/slog"

	"cryptochat/internal/adapter/llm"
	"cryptochat/internal/domain"
	"cryptochat/internal/infra/config"
)

const bedrockAvailable = true

func createBedrockProvider(pc config.ProviderConfig, log *slog.Logger) (domain.LLMProvider, error) {
	return llm.NewBedrockProvider(pc, log)
}
