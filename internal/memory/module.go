package memory

import (
	"context"

	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"github.com/j0lvera/echobot/internal/config"
)

type Params struct {
	fx.In

	Config *config.Config
	Logger zerolog.Logger
}

type Result struct {
	fx.Out

	Store *Store
}

func New(lc fx.Lifecycle, p Params) (Result, error) {
	backend, err := NewBackend(context.Background(), BackendConfig{
		Type:             Type(p.Config.Memory.Type),
		ConnectionString: p.Config.Memory.URL,
		Username:         p.Config.Memory.Username,
		Password:         p.Config.Memory.Password,
		DBName:           p.Config.Memory.DBName,
		TTL:              p.Config.Memory.TTL,
	})
	if err != nil {
		return Result{}, err
	}

	store := NewStore(backend)

	lc.Append(
		fx.Hook{
			OnStart: func(ctx context.Context) error {
				p.Logger.Info().Str("backend", p.Config.Memory.Type).Msg("conversation memory ready")
				return nil
			},
			OnStop: func(ctx context.Context) error {
				p.Logger.Info().Msg("closing conversation memory")
				return store.Close(ctx)
			},
		},
	)

	return Result{Store: store}, nil
}

func Module() fx.Option {
	return fx.Module(
		"memory",
		fx.Provide(New),
	)
}
