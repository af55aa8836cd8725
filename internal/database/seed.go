package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/Gabriel-Palomares/matchmaking/internal/domain"

	"github.com/rs/zerolog"
)

type seedMode struct {
	name           string
	playersPerTeam int
	autoBalance    bool
}

var seedModes = []seedMode{
	{"Soccer 5v5 (Balanced)", 5, true},
	{"Basketball 3v3 (Balanced)", 3, true},
	{"CS 5v5 (Fixed Teams)", 5, false},
}

var seedPlayers = []string{
	"Gui", "Rafa", "Duda", "Leo", "Ana", "Bia",
	"Caio", "Vini", "Gabi", "Lucas", "Fer",
}

// Seed inserts the starter game modes and test players. Each table is only
// seeded when it is empty, so restarts never duplicate rows.
func Seed(db *sql.DB, logger zerolog.Logger) error {
	now := time.Now().UTC()

	var modeCount int
	if err := db.QueryRow("SELECT COUNT(*) FROM game_modes").Scan(&modeCount); err != nil {
		return fmt.Errorf("failed to count game modes: %w", err)
	}
	if modeCount == 0 {
		logger.Info().Msg("seeding game modes")
		for _, m := range seedModes {
			_, err := db.Exec(
				"INSERT INTO game_modes (name, players_per_team, auto_balance, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
				m.name, m.playersPerTeam, m.autoBalance, now, now,
			)
			if err != nil {
				return fmt.Errorf("failed to seed game mode %q: %w", m.name, err)
			}
		}
	}

	var playerCount int
	if err := db.QueryRow("SELECT COUNT(*) FROM players").Scan(&playerCount); err != nil {
		return fmt.Errorf("failed to count players: %w", err)
	}
	if playerCount == 0 {
		logger.Info().Int("count", len(seedPlayers)).Msg("seeding test players")
		for _, name := range seedPlayers {
			_, err := db.Exec(
				"INSERT INTO players (name, rating, created_at, updated_at) VALUES (?, ?, ?, ?)",
				name, domain.InitialRating, now, now,
			)
			if err != nil {
				return fmt.Errorf("failed to seed player %q: %w", name, err)
			}
		}
	}

	return nil
}
