// Package rating implements the ELO update applied to every player after a
// match.
package rating

import (
	"math"

	"github.com/Gabriel-Palomares/matchmaking/internal/domain"
)

const (
	// KFactorCalibration moves calibrating ratings faster.
	KFactorCalibration = 50.0
	KFactorNormal      = 30.0

	// MVPBonus is added to the match MVP's rating.
	MVPBonus = 10.0

	// UnderdogMitigation softens the loss of the losing team's standout.
	// It only applies when the player's team lost outright (score 0.0).
	UnderdogMitigation = 5.0

	// RatingFloor is the lowest rating a player can reach.
	RatingFloor = 100.0

	// Score values per team outcome.
	ScoreWin  = 1.0
	ScoreLoss = 0.0
	ScoreDraw = 0.5
)

// ExpectedScore is the standard logistic ELO expectation of a player rated
// rating against an opponent pool averaging opponentAvg.
func ExpectedScore(rating, opponentAvg float64) float64 {
	return 1.0 / (1.0 + math.Pow(10.0, (opponentAvg-rating)/400.0))
}

// UpdateRating computes a player's new rating from the team outcome score
// (1.0 win, 0.0 loss, 0.5 draw) against the opposing team's pre-match
// average rating. The result never falls below RatingFloor.
func UpdateRating(player domain.Player, opponentAvg, score float64, isMVP, isUnderdog bool) float64 {
	kFactor := KFactorNormal
	if player.InCalibration() {
		kFactor = KFactorCalibration
	}

	expected := ExpectedScore(player.Rating, opponentAvg)
	baseDelta := kFactor * (score - expected)

	bonus := 0.0
	if isMVP {
		bonus += MVPBonus
	}
	if isUnderdog && score == ScoreLoss {
		bonus += UnderdogMitigation
	}

	return math.Max(RatingFloor, player.Rating+baseDelta+bonus)
}

// TeamAverage is the arithmetic mean of the players' ratings. An empty team
// averages to the initial rating, matching how a missing average is seeded.
func TeamAverage(players []domain.Player) float64 {
	if len(players) == 0 {
		return domain.InitialRating
	}
	sum := 0.0
	for _, p := range players {
		sum += p.Rating
	}
	return sum / float64(len(players))
}
