package fx

import (
	"github.com/Gabriel-Palomares/matchmaking/internal/config"
	"github.com/Gabriel-Palomares/matchmaking/internal/database"
	"github.com/Gabriel-Palomares/matchmaking/internal/logger"
	"github.com/Gabriel-Palomares/matchmaking/internal/repository"
	"github.com/Gabriel-Palomares/matchmaking/internal/server"
	"github.com/Gabriel-Palomares/matchmaking/internal/service"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func provideMatchmakingService(players *repository.PlayerRepository, modes *repository.GameModeRepository, matches *repository.MatchRepository, log zerolog.Logger) *service.MatchmakingService {
	return service.NewMatchmakingService(players, modes, matches, log)
}

func providePlayerService(players *repository.PlayerRepository, log zerolog.Logger) *service.PlayerService {
	return service.NewPlayerService(players, log)
}

func provideHistoryService(players *repository.PlayerRepository, modes *repository.GameModeRepository, matches *repository.MatchRepository, log zerolog.Logger) *service.HistoryService {
	return service.NewHistoryService(players, modes, matches, log)
}

var Module = fx.Options(
	fx.Provide(logger.New),
	fx.Provide(config.Load),
	fx.Provide(database.New),
	// repos
	fx.Provide(repository.NewPlayerRepository),
	fx.Provide(repository.NewGameModeRepository),
	fx.Provide(repository.NewMatchRepository),
	// svc
	fx.Provide(provideMatchmakingService),
	fx.Provide(providePlayerService),
	fx.Provide(provideHistoryService),
	// server
	fx.Provide(server.New),
)
