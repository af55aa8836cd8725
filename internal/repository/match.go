package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Gabriel-Palomares/matchmaking/internal/domain"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

type MatchRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewMatchRepository(sqlDB *sql.DB, logger zerolog.Logger) *MatchRepository {
	return &MatchRepository{
		db:     sqlDB,
		logger: logger,
	}
}

// PlayerHistoryEntry is one row of a player's match history: the match they
// played, the team they were on and that team's outcome if one was recorded.
type PlayerHistoryEntry struct {
	MatchID   int64
	PlayedAt  time.Time
	ModeName  string
	TeamLabel string
	Outcome   *domain.Outcome
}

// CreateWithTeams persists a match together with its teams and their member
// rows in a single transaction. The teams' MemberIDs and labels must already
// be set; ids are filled in on return.
func (r *MatchRepository) CreateWithTeams(ctx context.Context, modeID int64, teams []domain.Team) (domain.Match, []domain.Team, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Match{}, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx,
		"INSERT INTO matches (mode_id, created_at) VALUES (?, ?)", modeID, now)
	if err != nil {
		return domain.Match{}, nil, fmt.Errorf("failed to insert match: %w", err)
	}
	matchID, err := res.LastInsertId()
	if err != nil {
		return domain.Match{}, nil, fmt.Errorf("failed to read new match id: %w", err)
	}

	saved := make([]domain.Team, len(teams))
	for i, team := range teams {
		teamRes, err := tx.ExecContext(ctx,
			"INSERT INTO teams (match_id, label, position, created_at) VALUES (?, ?, ?, ?)",
			matchID, team.Label, i, now)
		if err != nil {
			return domain.Match{}, nil, fmt.Errorf("failed to insert team %q: %w", team.Label, err)
		}
		teamID, err := teamRes.LastInsertId()
		if err != nil {
			return domain.Match{}, nil, fmt.Errorf("failed to read new team id: %w", err)
		}

		for pos, playerID := range team.MemberIDs {
			_, err := tx.ExecContext(ctx,
				"INSERT INTO team_members (team_id, player_id, position) VALUES (?, ?, ?)",
				teamID, playerID, pos)
			if err != nil {
				return domain.Match{}, nil, fmt.Errorf("failed to insert member %d of team %q: %w", playerID, team.Label, err)
			}
		}

		team.ID = teamID
		team.MatchID = matchID
		team.CreatedAt = now
		saved[i] = team
	}

	if err := tx.Commit(); err != nil {
		return domain.Match{}, nil, fmt.Errorf("failed to commit match creation: %w", err)
	}

	r.logger.Info().
		Int64("match_id", matchID).
		Int64("mode_id", modeID).
		Int("teams", len(saved)).
		Msg("match created")

	return domain.Match{ID: matchID, ModeID: modeID, CreatedAt: now}, saved, nil
}

// GetWithTeams loads a match with its mode, teams in formation order, member
// ids in assignment order and any recorded results.
func (r *MatchRepository) GetWithTeams(ctx context.Context, matchID int64) (*domain.MatchWithTeams, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT m.id, m.mode_id, m.created_at,
		       g.id, g.name, g.players_per_team, g.auto_balance, g.created_at, g.updated_at
		FROM matches m
		JOIN game_modes g ON g.id = m.mode_id
		WHERE m.id = ?`, matchID)

	var result domain.MatchWithTeams
	err := row.Scan(
		&result.Match.ID, &result.Match.ModeID, &result.Match.CreatedAt,
		&result.Mode.ID, &result.Mode.Name, &result.Mode.PlayersPerTeam,
		&result.Mode.AutoBalance, &result.Mode.CreatedAt, &result.Mode.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", domain.ErrMatchNotFound, matchID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get match %d: %w", matchID, err)
	}

	teams, err := r.loadTeams(ctx, matchID)
	if err != nil {
		return nil, err
	}
	result.Teams = teams

	return &result, nil
}

func (r *MatchRepository) loadTeams(ctx context.Context, matchID int64) ([]domain.Team, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT t.id, t.match_id, t.label, t.created_at, tr.id, tr.outcome, tr.created_at
		FROM teams t
		LEFT JOIN team_results tr ON tr.team_id = t.id
		WHERE t.match_id = ?
		ORDER BY t.position ASC`, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to load teams for match %d: %w", matchID, err)
	}
	defer rows.Close()

	teams := []domain.Team{}
	for rows.Next() {
		var t domain.Team
		var resultID, outcome *string
		var resultAt *time.Time
		if err := rows.Scan(&t.ID, &t.MatchID, &t.Label, &t.CreatedAt, &resultID, &outcome, &resultAt); err != nil {
			return nil, fmt.Errorf("failed to scan team: %w", err)
		}
		if resultID != nil {
			t.Result = &domain.TeamResult{
				ID:        *resultID,
				TeamID:    t.ID,
				Outcome:   domain.Outcome(*outcome),
				CreatedAt: *resultAt,
			}
		}
		teams = append(teams, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range teams {
		memberRows, err := r.db.QueryContext(ctx,
			"SELECT player_id FROM team_members WHERE team_id = ? ORDER BY position ASC",
			teams[i].ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load members for team %d: %w", teams[i].ID, err)
		}
		for memberRows.Next() {
			var playerID int64
			if err := memberRows.Scan(&playerID); err != nil {
				memberRows.Close()
				return nil, fmt.Errorf("failed to scan team member: %w", err)
			}
			teams[i].MemberIDs = append(teams[i].MemberIDs, playerID)
		}
		if err := memberRows.Err(); err != nil {
			memberRows.Close()
			return nil, err
		}
		memberRows.Close()
	}

	return teams, nil
}

// HasResults reports whether any team of the match already has a result row.
func (r *MatchRepository) HasResults(ctx context.Context, matchID int64) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM team_results tr
		JOIN teams t ON t.id = tr.team_id
		WHERE t.match_id = ?`, matchID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to count results for match %d: %w", matchID, err)
	}
	return count > 0, nil
}

// RecordOutcome writes one result row per team and the updated player
// snapshots in a single transaction, so a failure never leaves a match with
// results but stale ratings or the other way around.
func (r *MatchRepository) RecordOutcome(ctx context.Context, results []domain.TeamResult, players []domain.Player) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, result := range results {
		id := result.ID
		if id == "" {
			id, err = gonanoid.New()
			if err != nil {
				return fmt.Errorf("failed to generate nanoid: %w", err)
			}
		}
		_, err := tx.ExecContext(ctx,
			"INSERT INTO team_results (id, team_id, outcome, created_at) VALUES (?, ?, ?, ?)",
			id, result.TeamID, string(result.Outcome), now)
		if err != nil {
			return fmt.Errorf("failed to insert result for team %d: %w", result.TeamID, err)
		}
	}

	for _, p := range players {
		if err := updatePlayerOutcome(ctx, tx, p); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit result recording: %w", err)
	}

	r.logger.Info().
		Int("results", len(results)).
		Int("players", len(players)).
		Msg("match outcome recorded")
	return nil
}

// ListRecent returns the most recent matches, newest first, each with its
// teams and results loaded.
func (r *MatchRepository) ListRecent(ctx context.Context, limit int) ([]domain.MatchWithTeams, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT m.id, m.mode_id, m.created_at,
		       g.id, g.name, g.players_per_team, g.auto_balance, g.created_at, g.updated_at
		FROM matches m
		JOIN game_modes g ON g.id = m.mode_id
		ORDER BY m.created_at DESC, m.id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent matches: %w", err)
	}
	defer rows.Close()

	matches := []domain.MatchWithTeams{}
	for rows.Next() {
		var m domain.MatchWithTeams
		err := rows.Scan(
			&m.Match.ID, &m.Match.ModeID, &m.Match.CreatedAt,
			&m.Mode.ID, &m.Mode.Name, &m.Mode.PlayersPerTeam,
			&m.Mode.AutoBalance, &m.Mode.CreatedAt, &m.Mode.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range matches {
		teams, err := r.loadTeams(ctx, matches[i].Match.ID)
		if err != nil {
			return nil, err
		}
		matches[i].Teams = teams
	}

	return matches, nil
}

// ListForPlayer returns a player's match history, newest first.
func (r *MatchRepository) ListForPlayer(ctx context.Context, playerID int64, limit int) ([]PlayerHistoryEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT m.id, m.created_at, g.name, t.label, tr.outcome
		FROM team_members tm
		JOIN teams t ON t.id = tm.team_id
		JOIN matches m ON m.id = t.match_id
		JOIN game_modes g ON g.id = m.mode_id
		LEFT JOIN team_results tr ON tr.team_id = t.id
		WHERE tm.player_id = ?
		ORDER BY m.created_at DESC, m.id DESC
		LIMIT ?`, playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list history for player %d: %w", playerID, err)
	}
	defer rows.Close()

	entries := []PlayerHistoryEntry{}
	for rows.Next() {
		var e PlayerHistoryEntry
		var outcome *string
		if err := rows.Scan(&e.MatchID, &e.PlayedAt, &e.ModeName, &e.TeamLabel, &outcome); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		if outcome != nil {
			o := domain.Outcome(*outcome)
			e.Outcome = &o
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
