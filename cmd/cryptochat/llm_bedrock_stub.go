//go:build !bedrock

package main

import (
	"fmt"
	"log/slog"

	"cryptochat/internal/domain"
	"cryptochat/internal/infra/config"
)

const bedrockAvailable = false

func createBedrockProvider(_ config.ProviderConfig, _ *slog.Logger) (domain.LLMProvider, error) {
	return nil, fmt.Errorf("bedrock provider requires build with -tags bedrock")
}
