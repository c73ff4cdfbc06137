package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sotoclub/sotopong/models"
	"github.com/sotoclub/sotopong/repositories/memory"
)

func newPlayerFixture(t *testing.T) (PlayerService, MatchService, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	players := NewPlayerService(store, store.Players(), store.Matches(), nil, testLogger())
	matches := NewMatchService(store, store.Matches(), store.Players(), testLogger())
	return players, matches, store
}

func TestCreatePlayer(t *testing.T) {
	svc, _, _ := newPlayerFixture(t)

	player, err := svc.Create(context.Background(), "  alice  ")
	require.NoError(t, err)
	assert.Equal(t, "alice", player.Name)
	assert.Equal(t, models.InitialRating, player.Rating)
	assert.Equal(t, 0, player.Wins)
	assert.Equal(t, 0, player.Losses)
	assert.NotZero(t, player.ID)
}

func TestCreatePlayerEmptyName(t *testing.T) {
	svc, _, _ := newPlayerFixture(t)

	_, err := svc.Create(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrPlayerNameRequired)
}

func TestCreatePlayerDuplicateName(t *testing.T) {
	svc, _, _ := newPlayerFixture(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "alice")
	require.NoError(t, err)

	_, err = svc.Create(ctx, "alice")
	assert.ErrorIs(t, err, ErrPlayerNameConflict)

	players, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, players, 1)
}

func TestListPlayersIsLeaderboard(t *testing.T) {
	svc, matches, _ := newPlayerFixture(t)
	ctx := context.Background()

	for _, name := range []string{"alice", "bob", "carol"} {
		_, err := svc.Create(ctx, name)
		require.NoError(t, err)
	}
	_, err := matches.Record(ctx, RecordMatchInput{
		Side1: SideInput{Player: "carol", Score: 11},
		Side2: SideInput{Player: "alice", Score: 4},
	})
	require.NoError(t, err)

	players, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, players, 3)
	assert.Equal(t, "carol", players[0].Name)
	assert.Equal(t, "bob", players[1].Name)
	assert.Equal(t, "alice", players[2].Name)
}

func TestDeletePlayerReversesAllMatches(t *testing.T) {
	svc, matchSvc, store := newPlayerFixture(t)
	ctx := context.Background()

	var alice *models.Player
	for _, name := range []string{"alice", "bob", "carol", "dave"} {
		p, err := svc.Create(ctx, name)
		require.NoError(t, err)
		if name == "alice" {
			alice = p
		}
	}

	// alice beats bob and carol, loses to dave. Retiring alice must put all
	// three opponents back where they started.
	for _, m := range []RecordMatchInput{
		{Side1: SideInput{Player: "alice", Score: 11}, Side2: SideInput{Player: "bob", Score: 5}},
		{Side1: SideInput{Player: "alice", Score: 11}, Side2: SideInput{Player: "carol", Score: 9}},
		{Side1: SideInput{Player: "dave", Score: 11}, Side2: SideInput{Player: "alice", Score: 7}},
	} {
		_, err := matchSvc.Record(ctx, m)
		require.NoError(t, err)
	}

	require.NoError(t, svc.Delete(ctx, alice.ID))

	for _, name := range []string{"bob", "carol", "dave"} {
		p := playerByName(t, store, name)
		assert.Equal(t, models.InitialRating, p.Rating, name)
		assert.Equal(t, 0, p.Wins, name)
		assert.Equal(t, 0, p.Losses, name)
	}

	matches, err := matchSvc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, matches)

	players, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, players, 3)
}

func TestDeletePlayerNotFound(t *testing.T) {
	svc, _, _ := newPlayerFixture(t)
	assert.ErrorIs(t, svc.Delete(context.Background(), 99), ErrPlayerNotFound)
}

func TestUploadAvatarWithoutStorage(t *testing.T) {
	svc, _, _ := newPlayerFixture(t)
	ctx := context.Background()

	player, err := svc.Create(ctx, "alice")
	require.NoError(t, err)

	_, err = svc.UploadAvatar(ctx, player.ID, "image/png", strings.NewReader("img"))
	assert.ErrorIs(t, err, ErrAvatarStorageDisabled)
}
