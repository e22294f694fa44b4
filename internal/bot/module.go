package bot

import (
	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"github.com/j0lvera/echobot/internal/ai"
	"github.com/j0lvera/echobot/internal/config"
	"github.com/j0lvera/echobot/internal/memory"
	"github.com/j0lvera/echobot/internal/observability"
)

type Params struct {
	fx.In

	Config  *config.Config
	Store   *memory.Store
	Client  ai.Client
	Metrics *observability.Metrics
	Logger  zerolog.Logger
}

type Result struct {
	fx.Out

	Bot *Bot
}

func New(p Params) Result {
	return Result{
		Bot: NewBot(p.Store, p.Client, p.Config.Messages.Welcome, p.Metrics, p.Logger),
	}
}

func Module() fx.Option {
	return fx.Module(
		"bot",
		fx.Provide(
			New,
		),
	)
}
