package fx

import (
	"lol-account-manager/internal/api"
	"lol-account-manager/internal/config"
	"lol-account-manager/internal/database"
	"lol-account-manager/internal/logger"
	"lol-account-manager/internal/repository"
	"lol-account-manager/internal/server"
	"lol-account-manager/internal/service"
	"lol-account-manager/internal/transfer"

	"go.uber.org/fx"
)

var Module = fx.Options(
	fx.Provide(logger.New),
	fx.Provide(config.Load),
	fx.Provide(database.New),
	// repos
	fx.Provide(repository.NewAccountRepository),
	// api client
	fx.Provide(fx.Annotate(api.NewRiotClient, fx.As(new(service.RiotAPI)))),
	// svc
	fx.Provide(service.NewAccountService),
	fx.Provide(service.NewSyncService),
	fx.Provide(transfer.NewService),
	// server
	fx.Provide(server.NewServer),
)
