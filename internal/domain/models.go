package domain

import (
	"time"
)

const (
	// InitialRating is the provisional rating assigned to new players.
	InitialRating = 1000.0

	// CalibrationMatches is how many matches a player plays before the
	// rating leaves calibration.
	CalibrationMatches = 5
)

type Player struct {
	ID            int64
	Name          string
	Rating        float64
	MatchesPlayed int
	TotalMVP      int
	TotalUnderdog int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// InCalibration reports whether the player's rating is still calibrating.
func (p Player) InCalibration() bool {
	return p.MatchesPlayed < CalibrationMatches
}

// RegisterMatchOutcome returns an updated snapshot of the player after a
// match: matches played is incremented, the rating is overwritten, and the
// MVP / underdog counters grow when the respective flag is set. The receiver
// is not mutated.
func (p Player) RegisterMatchOutcome(newRating float64, wasMVP, wasUnderdog bool) Player {
	p.MatchesPlayed++
	p.Rating = newRating
	if wasMVP {
		p.TotalMVP++
	}
	if wasUnderdog {
		p.TotalUnderdog++
	}
	return p
}

type GameMode struct {
	ID             int64
	Name           string
	PlayersPerTeam int

	// AutoBalance routes match creation to the rating balancer; fixed-team
	// modes take caller-supplied rosters instead.
	AutoBalance bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

type Match struct {
	ID        int64
	ModeID    int64
	CreatedAt time.Time
}

// Team is one side of a match. MemberIDs holds the player ids in assignment
// order; the member set is fixed once the team is formed.
type Team struct {
	ID        int64
	MatchID   int64
	Label     string
	MemberIDs []int64
	Result    *TeamResult
	CreatedAt time.Time
}

type Outcome string

const (
	OutcomeWin  Outcome = "WIN"
	OutcomeLoss Outcome = "LOSS"
	OutcomeDraw Outcome = "DRAW"
)

// TeamResult records a team's final outcome. At most one exists per team and
// it is never updated.
type TeamResult struct {
	ID        string // nanoid
	TeamID    int64
	Outcome   Outcome
	CreatedAt time.Time
}

// MatchWithTeams is a match fetched together with its mode, its teams, their
// members and any recorded results, teams in formation order.
type MatchWithTeams struct {
	Match Match
	Mode  GameMode
	Teams []Team
}
