package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Gabriel-Palomares/matchmaking/internal/constants"
	"github.com/Gabriel-Palomares/matchmaking/internal/domain"

	"github.com/rs/zerolog"
)

// PlayerService is the management surface for players: registration, rename,
// removal and listing. New players start at the calibration rating.
type PlayerService struct {
	players PlayerStore
	logger  zerolog.Logger
}

func NewPlayerService(players PlayerStore, logger zerolog.Logger) *PlayerService {
	return &PlayerService{players: players, logger: logger}
}

func (s *PlayerService) Create(ctx context.Context, name string) (*domain.Player, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.ErrEmptyName
	}

	if _, err := s.players.FindByName(ctx, name); err == nil {
		return nil, fmt.Errorf("%w: %q", domain.ErrNameTaken, name)
	} else if !errors.Is(err, domain.ErrPlayerNotFound) {
		return nil, err
	}

	player, err := s.players.Create(ctx, name)
	if err != nil {
		s.logger.Error().Err(err).Str("name", name).Msg("failed to create player")
		return nil, err
	}

	return player, nil
}

func (s *PlayerService) Rename(ctx context.Context, id int64, newName string) (*domain.Player, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	newName = strings.TrimSpace(newName)
	if newName == "" {
		return nil, domain.ErrEmptyName
	}

	player, err := s.players.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	other, err := s.players.FindByName(ctx, newName)
	if err == nil && other.ID != id {
		return nil, fmt.Errorf("%w: %q", domain.ErrNameTaken, newName)
	}
	if err != nil && !errors.Is(err, domain.ErrPlayerNotFound) {
		return nil, err
	}

	if err := s.players.Rename(ctx, id, newName); err != nil {
		return nil, err
	}

	s.logger.Info().Int64("player_id", id).Str("name", newName).Msg("player renamed")
	player.Name = newName
	return player, nil
}

// Delete removes a player. A player that already appears in match history
// cannot be removed; the member rows keep old matches explainable.
func (s *PlayerService) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	if _, err := s.players.FindByID(ctx, id); err != nil {
		return err
	}

	return s.players.Delete(ctx, id)
}

func (s *PlayerService) Get(ctx context.Context, id int64) (*domain.Player, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	return s.players.FindByID(ctx, id)
}

// List returns all players in leaderboard order (rating descending).
func (s *PlayerService) List(ctx context.Context) ([]domain.Player, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	return s.players.List(ctx)
}
