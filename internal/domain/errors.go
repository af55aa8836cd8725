package domain

import "errors"

// Failures reported to callers. All are input or precondition errors; the
// engine never retries on its own.
var (
	ErrModeNotFound   = errors.New("game mode not found")
	ErrMatchNotFound  = errors.New("match not found")
	ErrPlayerNotFound = errors.New("player not found")

	// ErrInsufficientPlayers: the resolved pool cannot fill two teams.
	ErrInsufficientPlayers = errors.New("not enough players to form two teams")

	// ErrInsufficientTeams: a result was recorded against a match with
	// fewer than two teams.
	ErrInsufficientTeams = errors.New("match does not have enough teams to record a result")

	// ErrWrongModeKind: fixed-team registration against an auto-balanced
	// mode.
	ErrWrongModeKind = errors.New("game mode kind does not allow this operation")

	// ErrTeamSizeMismatch: a supplied roster does not match the mode's
	// players per team.
	ErrTeamSizeMismatch = errors.New("team size does not match the game mode")

	// ErrNoWinnerSpecified: a decisive result without a winning team id.
	ErrNoWinnerSpecified = errors.New("a winning team must be specified when the result is not a draw")

	// ErrResultAlreadyRecorded: the match already has results. Each team
	// carries exactly one result row; recording twice would duplicate them
	// and re-apply rating deltas.
	ErrResultAlreadyRecorded = errors.New("match result already recorded")

	ErrNameTaken        = errors.New("player name already in use")
	ErrEmptyName        = errors.New("player name cannot be empty")
	ErrPlayerHasHistory = errors.New("player has match history and cannot be deleted")
)
