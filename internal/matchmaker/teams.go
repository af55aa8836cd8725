// Package matchmaker partitions a player pool into the teams of a match:
// reserve selection, rating-balanced formation and fixed-roster formation.
package matchmaker

import (
	"fmt"
	"sort"

	"github.com/Gabriel-Palomares/matchmaking/internal/domain"
)

// Roster is a formed team before it is persisted: a label plus its players
// in assignment order.
type Roster struct {
	Label   string
	Players []domain.Player
}

// Split is the outcome of reserve selection: the active players that will be
// placed on teams and the reserves sitting this match out.
type Split struct {
	Active   []domain.Player
	Reserves []domain.Player
	NumTeams int
}

// SortByRating orders players by rating descending. Equal ratings are broken
// by ascending player id so the order is deterministic regardless of how the
// store returned the pool.
func SortByRating(players []domain.Player) {
	sort.Slice(players, func(i, j int) bool {
		if players[i].Rating != players[j].Rating {
			return players[i].Rating > players[j].Rating
		}
		return players[i].ID < players[j].ID
	})
}

// SelectReserves splits a pool into active players and reserves for teams of
// size playersPerTeam. The pool is cut down to the largest multiple of the
// team size; the lowest-rated players are held back as reserves.
func SelectReserves(pool []domain.Player, playersPerTeam int) (Split, error) {
	if len(pool) < 2*playersPerTeam {
		return Split{}, fmt.Errorf("%w: have %d, need %d",
			domain.ErrInsufficientPlayers, len(pool), 2*playersPerTeam)
	}

	numTeams := len(pool) / playersPerTeam
	numActive := numTeams * playersPerTeam

	sorted := make([]domain.Player, len(pool))
	copy(sorted, pool)
	SortByRating(sorted)

	return Split{
		Active:   sorted[:numActive],
		Reserves: sorted[numActive:],
		NumTeams: numTeams,
	}, nil
}

// BalanceTeams distributes players across numTeams so the summed team
// ratings come out as even as the greedy heuristic allows: players are
// processed from highest to lowest rating and each one joins the team with
// the lowest running sum, the first such team winning ties. Not globally
// optimal, but deterministic.
func BalanceTeams(players []domain.Player, numTeams int) []Roster {
	sorted := make([]domain.Player, len(players))
	copy(sorted, players)
	SortByRating(sorted)

	teams := make([]Roster, numTeams)
	sums := make([]float64, numTeams)
	for i := range teams {
		teams[i].Label = teamLabel(i)
	}

	for _, p := range sorted {
		weakest := 0
		for i := 1; i < numTeams; i++ {
			if sums[i] < sums[weakest] {
				weakest = i
			}
		}
		teams[weakest].Players = append(teams[weakest].Players, p)
		sums[weakest] += p.Rating
	}

	return teams
}

// FixedTeams slices the pool into numTeams contiguous chunks of
// playersPerTeam in input order. No sorting, no balancing.
func FixedTeams(players []domain.Player, numTeams, playersPerTeam int) []Roster {
	teams := make([]Roster, numTeams)
	next := 0
	for i := range teams {
		teams[i].Label = teamLabel(i)
		teams[i].Players = players[next : next+playersPerTeam]
		next += playersPerTeam
	}
	return teams
}

// FixedPair builds the two teams of an explicitly registered match from
// caller-supplied rosters. Both rosters must match the mode's team size.
func FixedPair(teamA, teamB []domain.Player, playersPerTeam int) ([2]Roster, error) {
	if len(teamA) != playersPerTeam || len(teamB) != playersPerTeam {
		return [2]Roster{}, fmt.Errorf("%w: team A has %d, team B has %d, mode requires %d",
			domain.ErrTeamSizeMismatch, len(teamA), len(teamB), playersPerTeam)
	}
	return [2]Roster{
		{Label: teamLabel(0) + " (Fixed)", Players: teamA},
		{Label: teamLabel(1) + " (Fixed)", Players: teamB},
	}, nil
}

func teamLabel(i int) string {
	return fmt.Sprintf("Team %c", rune('A'+i))
}
