package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

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

// Register starts the HTTP channel with the application lifecycle.
func Register(lc fx.Lifecycle, p Params) {
	srv := &http.Server{
		Addr:              p.Config.HTTPAddr,
		Handler:           NewServer(p.Config.BotID, p.Bot, p.Logger).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(
		fx.Hook{
			OnStart: func(ctx context.Context) error {
				ln, err := net.Listen("tcp", srv.Addr)
				if err != nil {
					return err
				}
				p.Logger.Info().Str("addr", srv.Addr).Msg("starting http channel...")
				go func() {
					if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
						p.Logger.Error().Err(err).Msg("http channel stopped")
					}
				}()
				return nil
			},
			OnStop: func(ctx context.Context) error {
				p.Logger.Info().Msg("stopping http channel...")
				return srv.Shutdown(ctx)
			},
		},
	)
}

func Module() fx.Option {
	return fx.Module(
		"httpapi",
		fx.Invoke(Register),
	)
}
