package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Gabriel-Palomares/matchmaking/internal/domain"

	"github.com/rs/zerolog"
)

type GameModeRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewGameModeRepository(sqlDB *sql.DB, logger zerolog.Logger) *GameModeRepository {
	return &GameModeRepository{
		db:     sqlDB,
		logger: logger,
	}
}

const gameModeColumns = "id, name, players_per_team, auto_balance, created_at, updated_at"

func scanGameMode(row interface{ Scan(...any) error }) (domain.GameMode, error) {
	var m domain.GameMode
	err := row.Scan(&m.ID, &m.Name, &m.PlayersPerTeam, &m.AutoBalance, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

func (r *GameModeRepository) FindByID(ctx context.Context, id int64) (*domain.GameMode, error) {
	row := r.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM game_modes WHERE id = ?", gameModeColumns), id)
	m, err := scanGameMode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", domain.ErrModeNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get game mode %d: %w", id, err)
	}
	return &m, nil
}

func (r *GameModeRepository) List(ctx context.Context) ([]domain.GameMode, error) {
	rows, err := r.db.QueryContext(ctx,
		fmt.Sprintf("SELECT %s FROM game_modes ORDER BY id ASC", gameModeColumns))
	if err != nil {
		return nil, fmt.Errorf("failed to list game modes: %w", err)
	}
	defer rows.Close()

	modes := []domain.GameMode{}
	for rows.Next() {
		m, err := scanGameMode(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan game mode: %w", err)
		}
		modes = append(modes, m)
	}
	return modes, rows.Err()
}
