package service

import (
	"context"

	"github.com/Gabriel-Palomares/matchmaking/internal/constants"
	"github.com/Gabriel-Palomares/matchmaking/internal/domain"
	"github.com/Gabriel-Palomares/matchmaking/internal/repository"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// HistoryService answers the read-only queries the UI shows: recent matches
// and a single player's record.
type HistoryService struct {
	players PlayerStore
	modes   GameModeStore
	matches MatchStore
	logger  zerolog.Logger
}

func NewHistoryService(players PlayerStore, modes GameModeStore, matches MatchStore, logger zerolog.Logger) *HistoryService {
	return &HistoryService{players: players, modes: modes, matches: matches, logger: logger}
}

type PlayerHistory struct {
	Player  domain.Player
	Entries []repository.PlayerHistoryEntry
}

// RecentMatches returns the latest matches, newest first, with their teams
// and results.
func (s *HistoryService) RecentMatches(ctx context.Context) ([]domain.MatchWithTeams, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	return s.matches.ListRecent(ctx, constants.RecentMatchesLimit)
}

// Match returns one match with its teams, members and results.
func (s *HistoryService) Match(ctx context.Context, matchID int64) (*domain.MatchWithTeams, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	return s.matches.GetWithTeams(ctx, matchID)
}

// PlayerHistory returns a player's profile together with their match record,
// newest first. The profile and the record are fetched concurrently.
func (s *HistoryService) PlayerHistory(ctx context.Context, playerID int64) (*PlayerHistory, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	var (
		player  *domain.Player
		entries []repository.PlayerHistoryEntry
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := s.players.FindByID(gctx, playerID)
		if err != nil {
			return err
		}
		player = p
		return nil
	})
	g.Go(func() error {
		e, err := s.matches.ListForPlayer(gctx, playerID, constants.HistoryLimit)
		if err != nil {
			return err
		}
		entries = e
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.logger.Debug().
		Int64("player_id", playerID).
		Int("entries", len(entries)).
		Msg("player history loaded")

	return &PlayerHistory{Player: *player, Entries: entries}, nil
}

// GameModes lists the configured modes.
func (s *HistoryService) GameModes(ctx context.Context) ([]domain.GameMode, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	return s.modes.List(ctx)
}
