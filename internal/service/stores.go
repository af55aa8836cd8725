package service

import (
	"context"

	"github.com/Gabriel-Palomares/matchmaking/internal/domain"
	"github.com/Gabriel-Palomares/matchmaking/internal/repository"
)

// The services consume narrow store interfaces so the persistence layer
// stays swappable; internal/repository provides the sqlite implementations.

type PlayerStore interface {
	// FindByIDs silently omits ids that do not resolve.
	FindByIDs(ctx context.Context, ids []int64) ([]domain.Player, error)
	FindByID(ctx context.Context, id int64) (*domain.Player, error)
	FindByName(ctx context.Context, name string) (*domain.Player, error)
	List(ctx context.Context) ([]domain.Player, error)
	Create(ctx context.Context, name string) (*domain.Player, error)
	Rename(ctx context.Context, id int64, name string) error
	Delete(ctx context.Context, id int64) error
}

type GameModeStore interface {
	FindByID(ctx context.Context, id int64) (*domain.GameMode, error)
	List(ctx context.Context) ([]domain.GameMode, error)
}

type MatchStore interface {
	CreateWithTeams(ctx context.Context, modeID int64, teams []domain.Team) (domain.Match, []domain.Team, error)
	GetWithTeams(ctx context.Context, matchID int64) (*domain.MatchWithTeams, error)
	HasResults(ctx context.Context, matchID int64) (bool, error)
	RecordOutcome(ctx context.Context, results []domain.TeamResult, players []domain.Player) error
	ListRecent(ctx context.Context, limit int) ([]domain.MatchWithTeams, error)
	ListForPlayer(ctx context.Context, playerID int64, limit int) ([]repository.PlayerHistoryEntry, error)
}
