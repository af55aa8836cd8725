package service

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/Gabriel-Palomares/matchmaking/internal/domain"
	"github.com/Gabriel-Palomares/matchmaking/internal/rating"
	"github.com/Gabriel-Palomares/matchmaking/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// in-memory stores for service tests

type fakePlayerStore struct {
	players map[int64]domain.Player
	nextID  int64
}

func newFakePlayerStore(players ...domain.Player) *fakePlayerStore {
	s := &fakePlayerStore{players: map[int64]domain.Player{}}
	for _, p := range players {
		s.players[p.ID] = p
		if p.ID > s.nextID {
			s.nextID = p.ID
		}
	}
	return s
}

func (s *fakePlayerStore) FindByIDs(_ context.Context, ids []int64) ([]domain.Player, error) {
	out := []domain.Player{}
	for _, id := range ids {
		if p, ok := s.players[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *fakePlayerStore) FindByID(_ context.Context, id int64) (*domain.Player, error) {
	p, ok := s.players[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", domain.ErrPlayerNotFound, id)
	}
	return &p, nil
}

func (s *fakePlayerStore) FindByName(_ context.Context, name string) (*domain.Player, error) {
	for _, p := range s.players {
		if p.Name == name {
			return &p, nil
		}
	}
	return nil, fmt.Errorf("%w: name %q", domain.ErrPlayerNotFound, name)
}

func (s *fakePlayerStore) List(_ context.Context) ([]domain.Player, error) {
	out := make([]domain.Player, 0, len(s.players))
	for _, p := range s.players {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rating != out[j].Rating {
			return out[i].Rating > out[j].Rating
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *fakePlayerStore) Create(_ context.Context, name string) (*domain.Player, error) {
	s.nextID++
	p := domain.Player{ID: s.nextID, Name: name, Rating: domain.InitialRating}
	s.players[p.ID] = p
	return &p, nil
}

func (s *fakePlayerStore) Rename(_ context.Context, id int64, name string) error {
	p, ok := s.players[id]
	if !ok {
		return fmt.Errorf("%w: id %d", domain.ErrPlayerNotFound, id)
	}
	p.Name = name
	s.players[id] = p
	return nil
}

func (s *fakePlayerStore) Delete(_ context.Context, id int64) error {
	if _, ok := s.players[id]; !ok {
		return fmt.Errorf("%w: id %d", domain.ErrPlayerNotFound, id)
	}
	delete(s.players, id)
	return nil
}

type fakeGameModeStore struct {
	modes map[int64]domain.GameMode
}

func (s *fakeGameModeStore) FindByID(_ context.Context, id int64) (*domain.GameMode, error) {
	m, ok := s.modes[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", domain.ErrModeNotFound, id)
	}
	return &m, nil
}

func (s *fakeGameModeStore) List(_ context.Context) ([]domain.GameMode, error) {
	out := make([]domain.GameMode, 0, len(s.modes))
	for _, m := range s.modes {
		out = append(out, m)
	}
	return out, nil
}

type fakeMatchStore struct {
	matches     map[int64]*domain.MatchWithTeams
	nextMatchID int64
	nextTeamID  int64

	recordedResults []domain.TeamResult
	recordedPlayers []domain.Player
	recordCalls     int
}

func newFakeMatchStore() *fakeMatchStore {
	return &fakeMatchStore{matches: map[int64]*domain.MatchWithTeams{}}
}

func (s *fakeMatchStore) CreateWithTeams(_ context.Context, modeID int64, teams []domain.Team) (domain.Match, []domain.Team, error) {
	s.nextMatchID++
	match := domain.Match{ID: s.nextMatchID, ModeID: modeID}

	saved := make([]domain.Team, len(teams))
	for i, team := range teams {
		s.nextTeamID++
		team.ID = s.nextTeamID
		team.MatchID = match.ID
		saved[i] = team
	}

	s.matches[match.ID] = &domain.MatchWithTeams{Match: match, Teams: saved}
	return match, saved, nil
}

func (s *fakeMatchStore) GetWithTeams(_ context.Context, matchID int64) (*domain.MatchWithTeams, error) {
	m, ok := s.matches[matchID]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", domain.ErrMatchNotFound, matchID)
	}
	return m, nil
}

func (s *fakeMatchStore) HasResults(_ context.Context, matchID int64) (bool, error) {
	m, ok := s.matches[matchID]
	if !ok {
		return false, fmt.Errorf("%w: id %d", domain.ErrMatchNotFound, matchID)
	}
	for _, t := range m.Teams {
		if t.Result != nil {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeMatchStore) RecordOutcome(_ context.Context, results []domain.TeamResult, players []domain.Player) error {
	s.recordCalls++
	s.recordedResults = results
	s.recordedPlayers = players
	for _, res := range results {
		for _, m := range s.matches {
			for i := range m.Teams {
				if m.Teams[i].ID == res.TeamID {
					r := res
					m.Teams[i].Result = &r
				}
			}
		}
	}
	return nil
}

func (s *fakeMatchStore) ListRecent(_ context.Context, limit int) ([]domain.MatchWithTeams, error) {
	out := []domain.MatchWithTeams{}
	for _, m := range s.matches {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Match.ID > out[j].Match.ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeMatchStore) ListForPlayer(_ context.Context, playerID int64, _ int) ([]repository.PlayerHistoryEntry, error) {
	out := []repository.PlayerHistoryEntry{}
	for _, m := range s.matches {
		for _, t := range m.Teams {
			for _, id := range t.MemberIDs {
				if id == playerID {
					entry := repository.PlayerHistoryEntry{MatchID: m.Match.ID, TeamLabel: t.Label}
					if t.Result != nil {
						o := t.Result.Outcome
						entry.Outcome = &o
					}
					out = append(out, entry)
				}
			}
		}
	}
	return out, nil
}

func makePlayers(ratings ...float64) []domain.Player {
	players := make([]domain.Player, len(ratings))
	for i, r := range ratings {
		players[i] = domain.Player{
			ID:            int64(i + 1),
			Name:          fmt.Sprintf("player-%d", i+1),
			Rating:        r,
			MatchesPlayed: 10,
		}
	}
	return players
}

func newMatchmaking(players *fakePlayerStore, modes *fakeGameModeStore, matches *fakeMatchStore) *MatchmakingService {
	return NewMatchmakingService(players, modes, matches, zerolog.Nop())
}

func balancedMode5v5() *fakeGameModeStore {
	return &fakeGameModeStore{modes: map[int64]domain.GameMode{
		1: {ID: 1, Name: "Soccer 5v5 (Balanced)", PlayersPerTeam: 5, AutoBalance: true},
	}}
}

func ids(n int) []int64 {
	out := make([]int64, n)
	for i := range out {
		out[i] = int64(i + 1)
	}
	return out
}

func TestCreateMatchElevenPlayersBalanced(t *testing.T) {
	ratings := []float64{1200, 1150, 1100, 1050, 1000, 990, 980, 970, 960, 950, 700}
	players := newFakePlayerStore(makePlayers(ratings...)...)
	matches := newFakeMatchStore()
	svc := newMatchmaking(players, balancedMode5v5(), matches)

	result, err := svc.CreateMatch(context.Background(), ids(11), 1)
	require.NoError(t, err)

	require.Len(t, result.Teams, 2)
	for _, team := range result.Teams {
		assert.Len(t, team.MemberIDs, 5)
		assert.NotZero(t, team.ID)
		assert.Equal(t, result.Match.ID, team.MatchID)
	}

	// The single reserve is the lowest rated of the eleven.
	require.Len(t, result.Reserves, 1)
	assert.Equal(t, 700.0, result.Reserves[0].Rating)

	// The match and its teams were persisted.
	stored, err := matches.GetWithTeams(context.Background(), result.Match.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Teams, 2)
}

func TestCreateMatchEqualRatingsBalancePerfectly(t *testing.T) {
	ratings := make([]float64, 11)
	for i := range ratings {
		ratings[i] = 1000
	}
	players := newFakePlayerStore(makePlayers(ratings...)...)
	svc := newMatchmaking(players, balancedMode5v5(), newFakeMatchStore())

	result, err := svc.CreateMatch(context.Background(), ids(11), 1)
	require.NoError(t, err)

	require.Len(t, result.Teams, 2)
	for _, team := range result.Teams {
		sum := 0.0
		for _, id := range team.MemberIDs {
			sum += players.players[id].Rating
		}
		assert.InDelta(t, 5000.0, sum, 1e-9)
	}
}

func TestCreateMatchDropsUnresolvableIDs(t *testing.T) {
	ratings := []float64{1200, 1150, 1100, 1050, 1000, 990, 980, 970, 960, 950}
	players := newFakePlayerStore(makePlayers(ratings...)...)
	svc := newMatchmaking(players, balancedMode5v5(), newFakeMatchStore())

	// Two ids do not exist; the match forms from the ten that do.
	requested := append(ids(10), 98, 99)
	result, err := svc.CreateMatch(context.Background(), requested, 1)
	require.NoError(t, err)

	require.Len(t, result.Teams, 2)
	assert.Empty(t, result.Reserves)
}

func TestCreateMatchErrors(t *testing.T) {
	players := newFakePlayerStore(makePlayers(1000, 1000, 1000, 1000, 1000, 1000, 1000, 1000, 1000)...)
	svc := newMatchmaking(players, balancedMode5v5(), newFakeMatchStore())

	_, err := svc.CreateMatch(context.Background(), ids(9), 42)
	assert.ErrorIs(t, err, domain.ErrModeNotFound)

	// Nine resolved players cannot fill two teams of five.
	_, err = svc.CreateMatch(context.Background(), ids(9), 1)
	assert.ErrorIs(t, err, domain.ErrInsufficientPlayers)
}

func TestCreateMatchFixedModeSlicesWithoutBalancing(t *testing.T) {
	ratings := []float64{1000, 1200, 900, 1100, 950, 1050}
	players := newFakePlayerStore(makePlayers(ratings...)...)
	modes := &fakeGameModeStore{modes: map[int64]domain.GameMode{
		1: {ID: 1, Name: "CS 3v3 (Fixed Teams)", PlayersPerTeam: 3, AutoBalance: false},
	}}
	svc := newMatchmaking(players, modes, newFakeMatchStore())

	result, err := svc.CreateMatch(context.Background(), ids(6), 1)
	require.NoError(t, err)

	// The reserve cut sorts the pool by rating first, then the fixed
	// assigner slices contiguously: top three against bottom three.
	require.Len(t, result.Teams, 2)
	assert.Equal(t, []int64{2, 4, 6}, result.Teams[0].MemberIDs)
	assert.Equal(t, []int64{1, 5, 3}, result.Teams[1].MemberIDs)
}

func TestRegisterFixedMatch(t *testing.T) {
	players := newFakePlayerStore(makePlayers(1000, 1100, 900, 950)...)
	modes := &fakeGameModeStore{modes: map[int64]domain.GameMode{
		1: {ID: 1, Name: "Duel 2v2 (Fixed)", PlayersPerTeam: 2, AutoBalance: false},
		2: {ID: 2, Name: "Duel 2v2 (Balanced)", PlayersPerTeam: 2, AutoBalance: true},
	}}
	matches := newFakeMatchStore()
	svc := newMatchmaking(players, modes, matches)

	match, teams, err := svc.RegisterFixedMatch(context.Background(), 1, []int64{1, 2}, []int64{3, 4})
	require.NoError(t, err)
	assert.NotZero(t, match.ID)
	require.Len(t, teams, 2)
	assert.Equal(t, "Team A (Fixed)", teams[0].Label)
	assert.Equal(t, "Team B (Fixed)", teams[1].Label)
	assert.ElementsMatch(t, []int64{1, 2}, teams[0].MemberIDs)
	assert.ElementsMatch(t, []int64{3, 4}, teams[1].MemberIDs)
}

func TestRegisterFixedMatchErrors(t *testing.T) {
	players := newFakePlayerStore(makePlayers(1000, 1100, 900, 950)...)
	modes := &fakeGameModeStore{modes: map[int64]domain.GameMode{
		1: {ID: 1, Name: "Duel 2v2 (Fixed)", PlayersPerTeam: 2, AutoBalance: false},
		2: {ID: 2, Name: "Duel 2v2 (Balanced)", PlayersPerTeam: 2, AutoBalance: true},
	}}
	svc := newMatchmaking(players, modes, newFakeMatchStore())

	_, _, err := svc.RegisterFixedMatch(context.Background(), 2, []int64{1, 2}, []int64{3, 4})
	assert.ErrorIs(t, err, domain.ErrWrongModeKind)

	_, _, err = svc.RegisterFixedMatch(context.Background(), 1, []int64{1}, []int64{3, 4})
	assert.ErrorIs(t, err, domain.ErrTeamSizeMismatch)

	_, _, err = svc.RegisterFixedMatch(context.Background(), 1, []int64{1, 2}, []int64{3, 4, 5})
	assert.ErrorIs(t, err, domain.ErrTeamSizeMismatch)
}

// setupRecordedMatch creates a 2v2 fixed match with the given ratings and
// returns the service, stores and the two team ids.
func setupRecordedMatch(t *testing.T, ratings ...float64) (*MatchmakingService, *fakePlayerStore, *fakeMatchStore, domain.Team, domain.Team) {
	t.Helper()
	require.Len(t, ratings, 4)

	players := newFakePlayerStore(makePlayers(ratings...)...)
	modes := &fakeGameModeStore{modes: map[int64]domain.GameMode{
		1: {ID: 1, Name: "Duel 2v2 (Fixed)", PlayersPerTeam: 2, AutoBalance: false},
	}}
	matches := newFakeMatchStore()
	svc := newMatchmaking(players, modes, matches)

	_, teams, err := svc.RegisterFixedMatch(context.Background(), 1, []int64{1, 2}, []int64{3, 4})
	require.NoError(t, err)
	return svc, players, matches, teams[0], teams[1]
}

func playerByID(t *testing.T, players []domain.Player, id int64) domain.Player {
	t.Helper()
	for _, p := range players {
		if p.ID == id {
			return p
		}
	}
	t.Fatalf("player %d not in recorded snapshots", id)
	return domain.Player{}
}

func TestRecordResultDraw(t *testing.T) {
	svc, _, matches, teamA, _ := setupRecordedMatch(t, 1000, 1000, 1000, 1000)

	mvp := int64(1)      // on team A
	underdog := int64(3) // on team B

	err := svc.RecordResult(context.Background(), teamA.MatchID, ResultRequest{
		IsDraw:           true,
		MVPPlayerID:      &mvp,
		UnderdogPlayerID: &underdog,
	})
	require.NoError(t, err)

	require.Len(t, matches.recordedResults, 2)
	assert.Equal(t, domain.OutcomeDraw, matches.recordedResults[0].Outcome)
	assert.Equal(t, domain.OutcomeDraw, matches.recordedResults[1].Outcome)

	// Equal ratings and a draw: the base delta is zero for everyone.
	require.Len(t, matches.recordedPlayers, 4)

	// The MVP gets the flat bonus on top and the counter moves.
	mvpSnapshot := playerByID(t, matches.recordedPlayers, mvp)
	assert.InDelta(t, 1010.0, mvpSnapshot.Rating, 1e-9)
	assert.Equal(t, 1, mvpSnapshot.TotalMVP)
	assert.Equal(t, 11, mvpSnapshot.MatchesPlayed)

	// The flagged underdog's team drew, not lost: no mitigation, no count.
	underdogSnapshot := playerByID(t, matches.recordedPlayers, underdog)
	assert.InDelta(t, 1000.0, underdogSnapshot.Rating, 1e-9)
	assert.Equal(t, 0, underdogSnapshot.TotalUnderdog)

	for _, id := range []int64{2, 4} {
		snapshot := playerByID(t, matches.recordedPlayers, id)
		assert.InDelta(t, 1000.0, snapshot.Rating, 1e-9)
		assert.Equal(t, 11, snapshot.MatchesPlayed)
	}
}

func TestRecordResultDecisive(t *testing.T) {
	svc, _, matches, teamA, teamB := setupRecordedMatch(t, 1000, 1000, 1000, 1000)

	underdog := int64(1) // on team A, which will lose

	err := svc.RecordResult(context.Background(), teamA.MatchID, ResultRequest{
		WinningTeamID:    &teamB.ID,
		UnderdogPlayerID: &underdog,
	})
	require.NoError(t, err)

	require.Len(t, matches.recordedResults, 2)
	assert.Equal(t, teamA.ID, matches.recordedResults[0].TeamID)
	assert.Equal(t, domain.OutcomeLoss, matches.recordedResults[0].Outcome)
	assert.Equal(t, teamB.ID, matches.recordedResults[1].TeamID)
	assert.Equal(t, domain.OutcomeWin, matches.recordedResults[1].Outcome)

	// Equal opponents, K=30: winners +15, losers -15, underdog -15+5.
	assert.InDelta(t, 990.0, playerByID(t, matches.recordedPlayers, 1).Rating, 1e-9)
	assert.Equal(t, 1, playerByID(t, matches.recordedPlayers, 1).TotalUnderdog)
	assert.InDelta(t, 985.0, playerByID(t, matches.recordedPlayers, 2).Rating, 1e-9)
	assert.InDelta(t, 1015.0, playerByID(t, matches.recordedPlayers, 3).Rating, 1e-9)
	assert.InDelta(t, 1015.0, playerByID(t, matches.recordedPlayers, 4).Rating, 1e-9)
}

func TestRecordResultUsesPreUpdateAverages(t *testing.T) {
	// Uneven teams: every update must be computed against the opposing
	// average as it stood before this match touched anyone.
	svc, players, matches, teamA, _ := setupRecordedMatch(t, 1200, 1000, 950, 850)

	preA := (1200.0 + 1000.0) / 2
	preB := (950.0 + 850.0) / 2

	winner := teamA.ID
	err := svc.RecordResult(context.Background(), teamA.MatchID, ResultRequest{WinningTeamID: &winner})
	require.NoError(t, err)

	for id := int64(1); id <= 4; id++ {
		score, oppAvg := rating.ScoreWin, preB
		if id >= 3 {
			score, oppAvg = rating.ScoreLoss, preA
		}
		before := players.players[id]
		want := rating.UpdateRating(before, oppAvg, score, false, false)
		assert.InDelta(t, want, playerByID(t, matches.recordedPlayers, id).Rating, 1e-9, "player %d", id)
	}
}

func TestRecordResultErrors(t *testing.T) {
	svc, _, matches, teamA, _ := setupRecordedMatch(t, 1000, 1000, 1000, 1000)

	err := svc.RecordResult(context.Background(), 999, ResultRequest{IsDraw: true})
	assert.ErrorIs(t, err, domain.ErrMatchNotFound)

	// Decisive result without a winner.
	err = svc.RecordResult(context.Background(), teamA.MatchID, ResultRequest{})
	assert.ErrorIs(t, err, domain.ErrNoWinnerSpecified)

	// A match with fewer than two teams cannot be scored.
	matches.nextMatchID++
	oneTeam := &domain.MatchWithTeams{
		Match: domain.Match{ID: matches.nextMatchID},
		Teams: []domain.Team{{ID: 77, MatchID: matches.nextMatchID, MemberIDs: []int64{1, 2}}},
	}
	matches.matches[oneTeam.Match.ID] = oneTeam
	err = svc.RecordResult(context.Background(), oneTeam.Match.ID, ResultRequest{IsDraw: true})
	assert.ErrorIs(t, err, domain.ErrInsufficientTeams)
}

func TestRecordResultTwiceIsRejected(t *testing.T) {
	// The engine guards re-entry: each team carries exactly one result row,
	// so a second recording must fail instead of duplicating rows and
	// re-applying deltas.
	svc, _, matches, teamA, _ := setupRecordedMatch(t, 1000, 1000, 1000, 1000)

	err := svc.RecordResult(context.Background(), teamA.MatchID, ResultRequest{IsDraw: true})
	require.NoError(t, err)
	assert.Equal(t, 1, matches.recordCalls)

	err = svc.RecordResult(context.Background(), teamA.MatchID, ResultRequest{IsDraw: true})
	assert.ErrorIs(t, err, domain.ErrResultAlreadyRecorded)
	assert.Equal(t, 1, matches.recordCalls)
}
