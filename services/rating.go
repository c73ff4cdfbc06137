package services

import "math"

// KFactor is the ELO K-factor used for every rated match.
const KFactor = 32

// CalcDeltas computes the per-side rating adjustments for a match between
// sides rated ratingA and ratingB that ended scoreA:scoreB.
//
// Each delta is round(K * (actual - expected)) with rounding half away from
// zero, applied independently per side. The two deltas are stored on the
// match record as computed here; reversal always subtracts the stored
// values and never re-runs this formula.
//
// Equal scores yield an actual of 0.5 per side. Callers reject draws before
// reaching this function, but the formula supports them.
func CalcDeltas(ratingA, ratingB, scoreA, scoreB int) (deltaA, deltaB int) {
	expectedA := 1.0 / (1.0 + math.Pow(10, float64(ratingB-ratingA)/400.0))
	expectedB := 1.0 - expectedA

	var actualA float64
	switch {
	case scoreA > scoreB:
		actualA = 1.0
	case scoreA < scoreB:
		actualA = 0.0
	default:
		actualA = 0.5
	}
	actualB := 1.0 - actualA

	deltaA = int(math.Round(KFactor * (actualA - expectedA)))
	deltaB = int(math.Round(KFactor * (actualB - expectedB)))
	return deltaA, deltaB
}

// TeamRating is the effective rating of a doubles side: the floor of the
// arithmetic mean of its two members' current ratings.
func TeamRating(rating1, rating2 int) int {
	return int(math.Floor((float64(rating1) + float64(rating2)) / 2.0))
}
