package service

import (
	"context"
	"fmt"

	"github.com/Gabriel-Palomares/matchmaking/internal/constants"
	"github.com/Gabriel-Palomares/matchmaking/internal/domain"
	"github.com/Gabriel-Palomares/matchmaking/internal/matchmaker"
	"github.com/Gabriel-Palomares/matchmaking/internal/rating"

	"github.com/rs/zerolog"
)

// MatchmakingService owns the match lifecycle: forming teams out of a player
// pool, registering fixed-roster matches and recording results with the
// rating updates they trigger.
type MatchmakingService struct {
	players PlayerStore
	modes   GameModeStore
	matches MatchStore
	logger  zerolog.Logger
}

func NewMatchmakingService(players PlayerStore, modes GameModeStore, matches MatchStore, logger zerolog.Logger) *MatchmakingService {
	return &MatchmakingService{players: players, modes: modes, matches: matches, logger: logger}
}

// CreateMatchResult is what match creation hands back: the persisted match,
// its formed teams and the reserves that sat out.
type CreateMatchResult struct {
	Match    domain.Match
	Teams    []domain.Team
	Reserves []domain.Player
}

// ResultRequest describes the outcome of a finished match. MVP and underdog
// ids are optional and each applies to at most one player.
type ResultRequest struct {
	IsDraw           bool
	WinningTeamID    *int64
	MVPPlayerID      *int64
	UnderdogPlayerID *int64
}

// CreateMatch forms a match from the given player pool. Ids that do not
// resolve are dropped, matching the store contract; the pool that remains is
// cut to a multiple of the mode's team size, the lowest-rated players become
// reserves and the actives are split per the mode's balancing flag.
func (s *MatchmakingService) CreateMatch(ctx context.Context, playerIDs []int64, modeID int64) (*CreateMatchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	mode, err := s.modes.FindByID(ctx, modeID)
	if err != nil {
		return nil, err
	}

	pool, err := s.players.FindByIDs(ctx, playerIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve player pool: %w", err)
	}
	if len(pool) < len(playerIDs) {
		s.logger.Warn().
			Int("requested", len(playerIDs)).
			Int("resolved", len(pool)).
			Msg("some player ids did not resolve and were dropped")
	}

	split, err := matchmaker.SelectReserves(pool, mode.PlayersPerTeam)
	if err != nil {
		return nil, err
	}

	var rosters []matchmaker.Roster
	if mode.AutoBalance {
		rosters = matchmaker.BalanceTeams(split.Active, split.NumTeams)
	} else {
		rosters = matchmaker.FixedTeams(split.Active, split.NumTeams, mode.PlayersPerTeam)
	}

	match, teams, err := s.matches.CreateWithTeams(ctx, mode.ID, rostersToTeams(rosters))
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("match_id", match.ID).
		Str("mode", mode.Name).
		Bool("auto_balance", mode.AutoBalance).
		Int("teams", len(teams)).
		Int("reserves", len(split.Reserves)).
		Msg("match created")

	return &CreateMatchResult{
		Match:    match,
		Teams:    teams,
		Reserves: split.Reserves,
	}, nil
}

// RegisterFixedMatch persists a match whose two rosters were chosen by the
// caller. Only allowed for modes without automatic balancing.
func (s *MatchmakingService) RegisterFixedMatch(ctx context.Context, modeID int64, teamAIDs, teamBIDs []int64) (domain.Match, []domain.Team, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	mode, err := s.modes.FindByID(ctx, modeID)
	if err != nil {
		return domain.Match{}, nil, err
	}
	if mode.AutoBalance {
		return domain.Match{}, nil, fmt.Errorf("%w: mode %q auto-balances its teams", domain.ErrWrongModeKind, mode.Name)
	}
	if len(teamAIDs) != mode.PlayersPerTeam || len(teamBIDs) != mode.PlayersPerTeam {
		return domain.Match{}, nil, fmt.Errorf("%w: team A has %d, team B has %d, mode requires %d",
			domain.ErrTeamSizeMismatch, len(teamAIDs), len(teamBIDs), mode.PlayersPerTeam)
	}

	teamA, err := s.players.FindByIDs(ctx, teamAIDs)
	if err != nil {
		return domain.Match{}, nil, fmt.Errorf("failed to resolve team A: %w", err)
	}
	teamB, err := s.players.FindByIDs(ctx, teamBIDs)
	if err != nil {
		return domain.Match{}, nil, fmt.Errorf("failed to resolve team B: %w", err)
	}

	pair, err := matchmaker.FixedPair(teamA, teamB, mode.PlayersPerTeam)
	if err != nil {
		return domain.Match{}, nil, err
	}

	match, teams, err := s.matches.CreateWithTeams(ctx, mode.ID, rostersToTeams(pair[:]))
	if err != nil {
		return domain.Match{}, nil, err
	}

	s.logger.Info().
		Int64("match_id", match.ID).
		Str("mode", mode.Name).
		Msg("fixed match registered")

	return match, teams, nil
}

// RecordResult scores the first two teams of the match, reruns the rating
// update for every member of both and writes one immutable result row per
// team. Both teams' updates use the opposing average rating as it stood
// before any update from this match.
func (s *MatchmakingService) RecordResult(ctx context.Context, matchID int64, req ResultRequest) error {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	match, err := s.matches.GetWithTeams(ctx, matchID)
	if err != nil {
		return err
	}
	if len(match.Teams) < 2 {
		return fmt.Errorf("%w: match %d has %d", domain.ErrInsufficientTeams, matchID, len(match.Teams))
	}

	recorded, err := s.matches.HasResults(ctx, matchID)
	if err != nil {
		return err
	}
	if recorded {
		return fmt.Errorf("%w: match %d", domain.ErrResultAlreadyRecorded, matchID)
	}

	// Result recording only supports two contestants; extra teams are
	// ignored, as they always have been.
	teamA := match.Teams[0]
	teamB := match.Teams[1]

	scoreA, scoreB := rating.ScoreDraw, rating.ScoreDraw
	if !req.IsDraw {
		if req.WinningTeamID == nil {
			return domain.ErrNoWinnerSpecified
		}
		if teamA.ID == *req.WinningTeamID {
			scoreA, scoreB = rating.ScoreWin, rating.ScoreLoss
		} else {
			scoreA, scoreB = rating.ScoreLoss, rating.ScoreWin
		}
	}

	playersA, err := s.players.FindByIDs(ctx, teamA.MemberIDs)
	if err != nil {
		return fmt.Errorf("failed to resolve team %q members: %w", teamA.Label, err)
	}
	playersB, err := s.players.FindByIDs(ctx, teamB.MemberIDs)
	if err != nil {
		return fmt.Errorf("failed to resolve team %q members: %w", teamB.Label, err)
	}

	// Both averages are snapshotted before either team is updated.
	avgA := rating.TeamAverage(playersA)
	avgB := rating.TeamAverage(playersB)

	updatedA := applyTeamOutcome(playersA, avgB, scoreA, req.MVPPlayerID, req.UnderdogPlayerID)
	updatedB := applyTeamOutcome(playersB, avgA, scoreB, req.MVPPlayerID, req.UnderdogPlayerID)

	results := []domain.TeamResult{
		{TeamID: teamA.ID, Outcome: outcomeFromScore(scoreA)},
		{TeamID: teamB.ID, Outcome: outcomeFromScore(scoreB)},
	}

	if err := s.matches.RecordOutcome(ctx, results, append(updatedA, updatedB...)); err != nil {
		return err
	}

	s.logger.Info().
		Int64("match_id", matchID).
		Str("team_a", string(results[0].Outcome)).
		Str("team_b", string(results[1].Outcome)).
		Msg("result recorded")
	return nil
}

// applyTeamOutcome runs the rating update for every member of one team and
// returns the updated snapshots. The underdog highlight only counts for a
// team that lost outright.
func applyTeamOutcome(players []domain.Player, opponentAvg, score float64, mvpID, underdogID *int64) []domain.Player {
	updated := make([]domain.Player, len(players))
	for i, p := range players {
		isMVP := mvpID != nil && p.ID == *mvpID
		isUnderdog := score == rating.ScoreLoss && underdogID != nil && p.ID == *underdogID

		newRating := rating.UpdateRating(p, opponentAvg, score, isMVP, isUnderdog)
		updated[i] = p.RegisterMatchOutcome(newRating, isMVP, isUnderdog)
	}
	return updated
}

func outcomeFromScore(score float64) domain.Outcome {
	switch score {
	case rating.ScoreWin:
		return domain.OutcomeWin
	case rating.ScoreLoss:
		return domain.OutcomeLoss
	default:
		return domain.OutcomeDraw
	}
}

func rostersToTeams(rosters []matchmaker.Roster) []domain.Team {
	teams := make([]domain.Team, len(rosters))
	for i, roster := range rosters {
		memberIDs := make([]int64, len(roster.Players))
		for j, p := range roster.Players {
			memberIDs[j] = p.ID
		}
		teams[i] = domain.Team{Label: roster.Label, MemberIDs: memberIDs}
	}
	return teams
}
