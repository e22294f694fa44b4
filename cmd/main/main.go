package main

import (
	"github.com/j0lvera/echobot/internal/ai"
	"github.com/j0lvera/echobot/internal/bot"
	"github.com/j0lvera/echobot/internal/config"
	"github.com/j0lvera/echobot/internal/httpapi"
	"github.com/j0lvera/echobot/internal/log"
	"github.com/j0lvera/echobot/internal/memory"
	"github.com/j0lvera/echobot/internal/observability"
	"github.com/j0lvera/echobot/internal/telegram"
	"go.uber.org/fx"
)

func main() {

	fx.New(
		config.Module(),
		log.Module(),
		observability.Module(),
		memory.Module(),
		ai.Module(),
		bot.Module(),
		httpapi.Module(),
		telegram.Module(),
	).Run()
}
