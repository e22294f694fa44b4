package ai

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"github.com/j0lvera/echobot/internal/config"
)

const (
	retryBaseDelay = 500 * time.Millisecond
	retryMaxDelay  = 8 * time.Second
)

// Params for creating a completion client
type Params struct {
	fx.In

	Config *config.Config
	Logger zerolog.Logger
}

// Result of creating a completion client
type Result struct {
	fx.Out

	Client Client
}

// New creates the single long-lived completion client from configuration.
func New(p Params) (Result, error) {
	cfg := p.Config.Completion

	var client Client
	switch cfg.Provider {
	case "langchain", "":
		c, err := NewLangChainClient(cfg.APIType, cfg.APIKey, cfg.BaseURL, cfg.APIVersion, cfg.Model, cfg.Timeout)
		if err != nil {
			return Result{}, err
		}
		client = c
	case "openai":
		client = NewOpenAIClient(cfg.APIType, cfg.APIKey, cfg.BaseURL, cfg.APIVersion, cfg.Model, cfg.Timeout)
	default:
		return Result{}, fmt.Errorf("unsupported completion provider: %s", cfg.Provider)
	}

	p.Logger.Info().
		Str("provider", cfg.Provider).
		Str("api_type", cfg.APIType).
		Str("model", cfg.Model).
		Int("max_attempts", cfg.MaxAttempts).
		Msg("completion client configured")

	return Result{
		Client: WithRetry(client, cfg.MaxAttempts, retryBaseDelay, retryMaxDelay),
	}, nil
}

// Module provides the completion client
func Module() fx.Option {
	return fx.Module(
		"ai",
		fx.Provide(
			New,
		),
	)
}
