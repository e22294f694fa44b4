package telegram

import (
	"context"
	"fmt"

	tbot "github.com/go-telegram/bot"
	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"github.com/j0lvera/echobot/internal/bot"
	"github.com/j0lvera/echobot/internal/config"
)

type Params struct {
	fx.In

	Config *config.Config
	Bot    *bot.Bot
	Logger zerolog.Logger
}

// Register starts long polling when a telegram token is configured.
func Register(lc fx.Lifecycle, p Params) error {
	if p.Config.TelegramToken == "" {
		p.Logger.Info().Msg("telegram channel disabled: no token")
		return nil
	}

	channel := NewChannel(p.Bot, p.Config.Messages.Error, p.Logger)

	tg, err := tbot.New(p.Config.TelegramToken, tbot.WithDefaultHandler(channel.handleUpdate))
	if err != nil {
		return fmt.Errorf("failed to create telegram bot: %w", err)
	}

	pollCtx, cancel := context.WithCancel(context.Background())

	lc.Append(
		fx.Hook{
			OnStart: func(ctx context.Context) error {
				me, err := tg.GetMe(ctx)
				if err != nil {
					cancel()
					return fmt.Errorf("failed to resolve telegram bot identity: %w", err)
				}
				channel.selfID = me.ID

				p.Logger.Info().Str("username", me.Username).Msg("starting telegram bot...")
				go tg.Start(pollCtx)
				return nil
			},
			OnStop: func(ctx context.Context) error {
				p.Logger.Info().Msg("stopping telegram bot...")
				cancel()
				return nil
			},
		},
	)

	return nil
}

func Module() fx.Option {
	return fx.Module(
		"telegram",
		fx.Invoke(Register),
	)
}
