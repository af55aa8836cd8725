package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Gabriel-Palomares/matchmaking/internal/domain"

	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

type PlayerRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewPlayerRepository(sqlDB *sql.DB, logger zerolog.Logger) *PlayerRepository {
	return &PlayerRepository{
		db:     sqlDB,
		logger: logger,
	}
}

const playerColumns = "id, name, rating, matches_played, total_mvp, total_underdog, created_at, updated_at"

func scanPlayer(row interface{ Scan(...any) error }) (domain.Player, error) {
	var p domain.Player
	err := row.Scan(&p.ID, &p.Name, &p.Rating, &p.MatchesPlayed, &p.TotalMVP, &p.TotalUnderdog, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// FindByIDs resolves the given player ids. Ids that do not exist are
// silently omitted from the result; callers that care compare lengths.
func (r *PlayerRepository) FindByIDs(ctx context.Context, ids []int64) ([]domain.Player, error) {
	if len(ids) == 0 {
		return []domain.Player{}, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	query := fmt.Sprintf("SELECT %s FROM players WHERE id IN (%s)", playerColumns, placeholders)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query players by ids: %w", err)
	}
	defer rows.Close()

	var players []domain.Player
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

func (r *PlayerRepository) FindByID(ctx context.Context, id int64) (*domain.Player, error) {
	row := r.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM players WHERE id = ?", playerColumns), id)
	p, err := scanPlayer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", domain.ErrPlayerNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get player %d: %w", id, err)
	}
	return &p, nil
}

func (r *PlayerRepository) FindByName(ctx context.Context, name string) (*domain.Player, error) {
	row := r.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM players WHERE name = ?", playerColumns), name)
	p, err := scanPlayer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: name %q", domain.ErrPlayerNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get player %q: %w", name, err)
	}
	return &p, nil
}

// List returns all players ordered by rating descending, id ascending on
// ties. This is the leaderboard order the UI shows.
func (r *PlayerRepository) List(ctx context.Context) ([]domain.Player, error) {
	rows, err := r.db.QueryContext(ctx,
		fmt.Sprintf("SELECT %s FROM players ORDER BY rating DESC, id ASC", playerColumns))
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	defer rows.Close()

	players := []domain.Player{}
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

func (r *PlayerRepository) Create(ctx context.Context, name string) (*domain.Player, error) {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO players (name, rating, created_at, updated_at) VALUES (?, ?, ?, ?)",
		name, domain.InitialRating, now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %q", domain.ErrNameTaken, name)
		}
		return nil, fmt.Errorf("failed to create player %q: %w", name, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read new player id: %w", err)
	}

	r.logger.Info().Int64("player_id", id).Str("name", name).Msg("player created")
	return &domain.Player{
		ID:        id,
		Name:      name,
		Rating:    domain.InitialRating,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (r *PlayerRepository) Rename(ctx context.Context, id int64, name string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE players SET name = ?, updated_at = ? WHERE id = ?",
		name, time.Now().UTC(), id,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %q", domain.ErrNameTaken, name)
		}
		return fmt.Errorf("failed to rename player %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rename result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: id %d", domain.ErrPlayerNotFound, id)
	}
	return nil
}

func (r *PlayerRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM players WHERE id = ?", id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: id %d", domain.ErrPlayerHasHistory, id)
		}
		return fmt.Errorf("failed to delete player %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: id %d", domain.ErrPlayerNotFound, id)
	}

	r.logger.Info().Int64("player_id", id).Msg("player deleted")
	return nil
}

// updatePlayerOutcome writes a post-match player snapshot. Shared with the
// match repository so result recording can run it inside its transaction.
func updatePlayerOutcome(ctx context.Context, q executor, p domain.Player) error {
	_, err := q.ExecContext(ctx,
		"UPDATE players SET rating = ?, matches_played = ?, total_mvp = ?, total_underdog = ?, updated_at = ? WHERE id = ?",
		p.Rating, p.MatchesPlayed, p.TotalMVP, p.TotalUnderdog, time.Now().UTC(), p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update player %d outcome: %w", p.ID, err)
	}
	return nil
}

type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

func isForeignKeyViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey
}
