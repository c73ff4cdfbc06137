package services

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sotoclub/sotopong/models"
	"github.com/sotoclub/sotopong/repositories/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func strPtr(s string) *string { return &s }

func newMatchFixture(t *testing.T, names ...string) (MatchService, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	svc := NewMatchService(store, store.Matches(), store.Players(), testLogger())
	for _, name := range names {
		err := store.Players().Create(context.Background(), nil, &models.Player{
			Name:   name,
			Rating: models.InitialRating,
		})
		require.NoError(t, err)
	}
	return svc, store
}

func playerByName(t *testing.T, store *memory.Store, name string) *models.Player {
	t.Helper()
	p, err := store.Players().GetByName(context.Background(), nil, name)
	require.NoError(t, err)
	return p
}

func TestRecordSinglesAppliesDeltas(t *testing.T) {
	svc, store := newMatchFixture(t, "alice", "bob")
	ctx := context.Background()

	match, err := svc.Record(ctx, RecordMatchInput{
		Side1: SideInput{Player: "alice", Score: 11},
		Side2: SideInput{Player: "bob", Score: 7},
	})
	require.NoError(t, err)

	assert.Equal(t, models.MatchKindSingles, match.Kind)
	assert.Equal(t, 1, match.WinnerSide)
	assert.Equal(t, 16, match.Side1.Delta)
	assert.Equal(t, -16, match.Side2.Delta)
	assert.NotEmpty(t, match.Date)
	assert.NotEmpty(t, match.Time)

	alice := playerByName(t, store, "alice")
	bob := playerByName(t, store, "bob")
	assert.Equal(t, 1016, alice.Rating)
	assert.Equal(t, 1, alice.Wins)
	assert.Equal(t, 0, alice.Losses)
	assert.Equal(t, 984, bob.Rating)
	assert.Equal(t, 0, bob.Wins)
	assert.Equal(t, 1, bob.Losses)
}

func TestDeleteMatchRestoresState(t *testing.T) {
	svc, store := newMatchFixture(t, "alice", "bob")
	ctx := context.Background()

	match, err := svc.Record(ctx, RecordMatchInput{
		Side1: SideInput{Player: "alice", Score: 11},
		Side2: SideInput{Player: "bob", Score: 9},
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, match.ID))

	for _, name := range []string{"alice", "bob"} {
		p := playerByName(t, store, name)
		assert.Equal(t, models.InitialRating, p.Rating, name)
		assert.Equal(t, 0, p.Wins, name)
		assert.Equal(t, 0, p.Losses, name)
	}

	matches, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestRecordDoublesUsesTeamRating(t *testing.T) {
	svc, store := newMatchFixture(t, "alice", "bob", "carol", "dave")
	ctx := context.Background()

	match, err := svc.Record(ctx, RecordMatchInput{
		Side1: SideInput{Player: "alice", Partner: strPtr("bob"), Score: 11},
		Side2: SideInput{Player: "carol", Partner: strPtr("dave"), Score: 6},
	})
	require.NoError(t, err)
	require.Equal(t, models.MatchKindDoubles, match.Kind)

	// Equal team averages, so the full upset premium applies to each player.
	assert.Equal(t, 16, match.Side1.Delta)
	assert.Equal(t, -16, match.Side2.Delta)

	for _, name := range []string{"alice", "bob"} {
		p := playerByName(t, store, name)
		assert.Equal(t, 1016, p.Rating, name)
		assert.Equal(t, 1, p.Wins, name)
	}
	for _, name := range []string{"carol", "dave"} {
		p := playerByName(t, store, name)
		assert.Equal(t, 984, p.Rating, name)
		assert.Equal(t, 1, p.Losses, name)
	}

	require.NoError(t, svc.Delete(ctx, match.ID))
	for _, name := range []string{"alice", "bob", "carol", "dave"} {
		p := playerByName(t, store, name)
		assert.Equal(t, models.InitialRating, p.Rating, name)
		assert.Equal(t, 0, p.Wins, name)
		assert.Equal(t, 0, p.Losses, name)
	}
}

func TestRecordRejectsDraw(t *testing.T) {
	svc, store := newMatchFixture(t, "alice", "bob")

	_, err := svc.Record(context.Background(), RecordMatchInput{
		Side1: SideInput{Player: "alice", Score: 10},
		Side2: SideInput{Player: "bob", Score: 10},
	})
	assert.ErrorIs(t, err, ErrDrawNotAllowed)

	alice := playerByName(t, store, "alice")
	assert.Equal(t, models.InitialRating, alice.Rating)
}

func TestRecordRejectsNegativeScore(t *testing.T) {
	svc, _ := newMatchFixture(t, "alice", "bob")

	_, err := svc.Record(context.Background(), RecordMatchInput{
		Side1: SideInput{Player: "alice", Score: -1},
		Side2: SideInput{Player: "bob", Score: 11},
	})
	assert.ErrorIs(t, err, ErrNegativeScore)
}

func TestRecordRejectsSelfMatch(t *testing.T) {
	svc, _ := newMatchFixture(t, "alice", "bob", "carol")

	_, err := svc.Record(context.Background(), RecordMatchInput{
		Side1: SideInput{Player: "alice", Score: 11},
		Side2: SideInput{Player: "alice", Score: 5},
	})
	assert.ErrorIs(t, err, ErrSelfMatch)

	// A player doubling as their own partner is the same violation.
	_, err = svc.Record(context.Background(), RecordMatchInput{
		Side1: SideInput{Player: "alice", Partner: strPtr("alice"), Score: 11},
		Side2: SideInput{Player: "bob", Partner: strPtr("carol"), Score: 5},
	})
	assert.ErrorIs(t, err, ErrSelfMatch)
}

func TestRecordRejectsMixedSides(t *testing.T) {
	svc, _ := newMatchFixture(t, "alice", "bob", "carol")

	_, err := svc.Record(context.Background(), RecordMatchInput{
		Side1: SideInput{Player: "alice", Partner: strPtr("bob"), Score: 11},
		Side2: SideInput{Player: "carol", Score: 5},
	})
	assert.ErrorIs(t, err, ErrMixedSides)
}

func TestRecordBlankPartnerMeansSingles(t *testing.T) {
	svc, _ := newMatchFixture(t, "alice", "bob")

	match, err := svc.Record(context.Background(), RecordMatchInput{
		Side1: SideInput{Player: "alice", Partner: strPtr("  "), Score: 11},
		Side2: SideInput{Player: "bob", Score: 5},
	})
	require.NoError(t, err)
	assert.Equal(t, models.MatchKindSingles, match.Kind)
	assert.Nil(t, match.Side1.Partner)
}

func TestRecordUnknownPlayer(t *testing.T) {
	svc, store := newMatchFixture(t, "alice")

	_, err := svc.Record(context.Background(), RecordMatchInput{
		Side1: SideInput{Player: "alice", Score: 11},
		Side2: SideInput{Player: "ghost", Score: 5},
	})
	assert.ErrorIs(t, err, ErrPlayerNotFound)

	alice := playerByName(t, store, "alice")
	assert.Equal(t, models.InitialRating, alice.Rating)
	assert.Equal(t, 0, alice.Wins)
}

func TestDeleteMatchNotFound(t *testing.T) {
	svc, _ := newMatchFixture(t)
	assert.ErrorIs(t, svc.Delete(context.Background(), 42), ErrMatchNotFound)
}

func TestListMatchesNewestFirst(t *testing.T) {
	svc, _ := newMatchFixture(t, "alice", "bob")
	ctx := context.Background()

	first, err := svc.Record(ctx, RecordMatchInput{
		Side1: SideInput{Player: "alice", Score: 11},
		Side2: SideInput{Player: "bob", Score: 3},
	})
	require.NoError(t, err)
	second, err := svc.Record(ctx, RecordMatchInput{
		Side1: SideInput{Player: "bob", Score: 11},
		Side2: SideInput{Player: "alice", Score: 8},
	})
	require.NoError(t, err)

	matches, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, second.ID, matches[0].ID)
	assert.Equal(t, first.ID, matches[1].ID)
}
