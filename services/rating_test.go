package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalcDeltasEqualRatings(t *testing.T) {
	dA, dB := CalcDeltas(1000, 1000, 11, 7)
	assert.Equal(t, 16, dA)
	assert.Equal(t, -16, dB)

	dA, dB = CalcDeltas(1000, 1000, 3, 11)
	assert.Equal(t, -16, dA)
	assert.Equal(t, 16, dB)
}

func TestCalcDeltasFavoriteWinsSmall(t *testing.T) {
	// A 200-point favorite gains little for a win.
	dA, dB := CalcDeltas(1200, 1000, 11, 5)
	assert.Equal(t, 8, dA)
	assert.Equal(t, -8, dB)
}

func TestCalcDeltasUpsetPaysMore(t *testing.T) {
	// The same favorite losing pays out the mirror of the underdog's gain.
	dA, dB := CalcDeltas(1200, 1000, 5, 11)
	assert.Equal(t, -24, dA)
	assert.Equal(t, 24, dB)
}

func TestCalcDeltasZeroSum(t *testing.T) {
	cases := []struct {
		ra, rb, sa, sb int
	}{
		{1000, 1000, 11, 9},
		{1350, 980, 7, 11},
		{1000, 1777, 11, 0},
		{900, 1100, 2, 11},
	}
	for _, c := range cases {
		dA, dB := CalcDeltas(c.ra, c.rb, c.sa, c.sb)
		assert.Equal(t, 0, dA+dB, "deltas must cancel for %d vs %d", c.ra, c.rb)
	}
}

func TestCalcDeltasDrawBetweenEquals(t *testing.T) {
	// Equal scores score 0.5 each; between equal ratings nothing moves.
	dA, dB := CalcDeltas(1000, 1000, 5, 5)
	assert.Equal(t, 0, dA)
	assert.Equal(t, 0, dB)
}

func TestTeamRatingFloorsAverage(t *testing.T) {
	assert.Equal(t, 1000, TeamRating(1000, 1000))
	assert.Equal(t, 1000, TeamRating(1000, 1001))
	assert.Equal(t, 1050, TeamRating(1000, 1100))
	assert.Equal(t, 999, TeamRating(999, 1000))
}
