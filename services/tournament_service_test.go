package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sotoclub/sotopong/models"
	"github.com/sotoclub/sotopong/repositories/memory"
)

func newTournamentFixture(t *testing.T, players ...string) (TournamentService, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	svc := NewTournamentService(store, store.Tournaments(), store.Entrants(), store.Players(), nil, testLogger())
	for _, name := range players {
		err := store.Players().Create(context.Background(), nil, &models.Player{
			Name:   name,
			Rating: models.InitialRating,
		})
		require.NoError(t, err)
	}
	return svc, store
}

func createActiveTournament(t *testing.T, svc TournamentService, mode models.PrizeMode, entrants map[string]int) *models.Tournament {
	t.Helper()
	ctx := context.Background()

	tournament, err := svc.Create(ctx, CreateTournamentInput{Name: "friday cup", PrizeMode: mode})
	require.NoError(t, err)

	for name, bet := range entrants {
		_, err := svc.AddEntrant(ctx, tournament.ID, AddEntrantInput{PlayerName: name, Bet: bet})
		require.NoError(t, err)
	}
	return tournament
}

func entrantByName(t *testing.T, svc TournamentService, tournamentID int, name string) *models.TournamentPlayer {
	t.Helper()
	tournament, err := svc.Get(context.Background(), tournamentID)
	require.NoError(t, err)
	for _, e := range tournament.Entrants {
		if e.PlayerName == name {
			return e
		}
	}
	t.Fatalf("entrant %q not found in tournament %d", name, tournamentID)
	return nil
}

func TestCreateTournamentValidation(t *testing.T) {
	svc, _ := newTournamentFixture(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateTournamentInput{Name: "  ", PrizeMode: models.PrizeModeWinnerTakesAll})
	assert.ErrorIs(t, err, ErrTournamentNameRequired)

	_, err = svc.Create(ctx, CreateTournamentInput{Name: "cup", PrizeMode: "loser_takes_all"})
	assert.ErrorIs(t, err, ErrInvalidPrizeMode)

	tournament, err := svc.Create(ctx, CreateTournamentInput{Name: "cup", PrizeMode: models.PrizeModeTop3Split})
	require.NoError(t, err)
	assert.Equal(t, models.TournamentStatusActive, tournament.Status)
}

func TestAddEntrantValidation(t *testing.T) {
	svc, _ := newTournamentFixture(t, "alice")
	tournament := createActiveTournament(t, svc, models.PrizeModeWinnerTakesAll, nil)
	ctx := context.Background()

	_, err := svc.AddEntrant(ctx, tournament.ID, AddEntrantInput{PlayerName: "ghost"})
	assert.ErrorIs(t, err, ErrPlayerNotFound)

	_, err = svc.AddEntrant(ctx, tournament.ID, AddEntrantInput{PlayerName: "alice", Bet: -10})
	assert.ErrorIs(t, err, ErrNegativeBet)

	_, err = svc.AddEntrant(ctx, tournament.ID, AddEntrantInput{PlayerName: "alice", Bet: 50})
	require.NoError(t, err)

	_, err = svc.AddEntrant(ctx, tournament.ID, AddEntrantInput{PlayerName: "alice"})
	assert.ErrorIs(t, err, ErrEntrantConflict)

	_, err = svc.AddEntrant(ctx, 99, AddEntrantInput{PlayerName: "alice"})
	assert.ErrorIs(t, err, ErrTournamentNotFound)
}

func TestFinishAppliesPlacementAwards(t *testing.T) {
	svc, store := newTournamentFixture(t, "alice", "bob", "carol", "dave", "erin")
	tournament := createActiveTournament(t, svc, models.PrizeModeWinnerTakesAll, map[string]int{
		"alice": 0, "bob": 0, "carol": 0, "dave": 0, "erin": 0,
	})
	ctx := context.Background()

	finished, err := svc.Finish(ctx, tournament.ID, FinishTournamentInput{
		Winner:      "alice",
		SecondPlace: strPtr("bob"),
		ThirdPlace:  strPtr("carol"),
		// dave reached the semifinal; bob's rounds must not stack on his
		// placement award.
		RoundsWon: map[string]int{"dave": 2, "bob": 3, "erin": 1},
	})
	require.NoError(t, err)
	assert.Equal(t, models.TournamentStatusFinished, finished.Status)
	require.NotNil(t, finished.Winner)
	assert.Equal(t, "alice", *finished.Winner)

	expected := map[string]int{"alice": 50, "bob": 25, "carol": 10, "dave": 5, "erin": 0}
	for name, award := range expected {
		p := playerByName(t, store, name)
		assert.Equal(t, models.InitialRating+award, p.Rating, name)
		// Tournament awards move rating only, never the match tally.
		assert.Equal(t, 0, p.Wins, name)
		assert.Equal(t, 0, p.Losses, name)

		entrant := entrantByName(t, svc, tournament.ID, name)
		assert.Equal(t, award, entrant.RatingDelta, name)
	}

	alice := entrantByName(t, svc, tournament.ID, "alice")
	require.NotNil(t, alice.FinishPlace)
	assert.Equal(t, 1, *alice.FinishPlace)
	erin := entrantByName(t, svc, tournament.ID, "erin")
	assert.Nil(t, erin.FinishPlace)
}

func TestFinishIsOneWay(t *testing.T) {
	svc, store := newTournamentFixture(t, "alice", "bob")
	tournament := createActiveTournament(t, svc, models.PrizeModeWinnerTakesAll, map[string]int{
		"alice": 0, "bob": 0,
	})
	ctx := context.Background()

	_, err := svc.Finish(ctx, tournament.ID, FinishTournamentInput{Winner: "alice"})
	require.NoError(t, err)

	_, err = svc.Finish(ctx, tournament.ID, FinishTournamentInput{Winner: "bob"})
	assert.ErrorIs(t, err, ErrTournamentNotActive)

	// The first settlement stands untouched.
	alice := playerByName(t, store, "alice")
	assert.Equal(t, models.InitialRating+50, alice.Rating)
	bob := playerByName(t, store, "bob")
	assert.Equal(t, models.InitialRating, bob.Rating)

	finished, err := svc.Get(ctx, tournament.ID)
	require.NoError(t, err)
	require.NotNil(t, finished.Winner)
	assert.Equal(t, "alice", *finished.Winner)
}

func TestFinishRequiresEnteredWinner(t *testing.T) {
	svc, _ := newTournamentFixture(t, "alice", "bob")
	tournament := createActiveTournament(t, svc, models.PrizeModeWinnerTakesAll, map[string]int{"alice": 0})
	ctx := context.Background()

	_, err := svc.Finish(ctx, tournament.ID, FinishTournamentInput{Winner: "bob"})
	assert.ErrorIs(t, err, ErrWinnerNotEntered)

	_, err = svc.Finish(ctx, tournament.ID, FinishTournamentInput{Winner: "  "})
	assert.ErrorIs(t, err, ErrWinnerNotEntered)

	// The failed finish must not flip the status.
	tournament, err = svc.Get(ctx, tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TournamentStatusActive, tournament.Status)
}

func TestRosterFrozenAfterFinish(t *testing.T) {
	svc, _ := newTournamentFixture(t, "alice", "bob")
	tournament := createActiveTournament(t, svc, models.PrizeModeWinnerTakesAll, map[string]int{
		"alice": 0, "bob": 0,
	})
	ctx := context.Background()

	_, err := svc.Finish(ctx, tournament.ID, FinishTournamentInput{Winner: "alice"})
	require.NoError(t, err)

	_, err = svc.AddEntrant(ctx, tournament.ID, AddEntrantInput{PlayerName: "bob"})
	assert.ErrorIs(t, err, ErrTournamentNotActive)

	err = svc.RemoveEntrant(ctx, tournament.ID, "bob")
	assert.ErrorIs(t, err, ErrTournamentNotActive)

	err = svc.SaveBracket(ctx, tournament.ID, `{"round":1}`)
	assert.ErrorIs(t, err, ErrTournamentNotActive)
}

func TestWinnerTakesAllPayout(t *testing.T) {
	svc, _ := newTournamentFixture(t, "alice", "bob", "carol")
	tournament := createActiveTournament(t, svc, models.PrizeModeWinnerTakesAll, map[string]int{
		"alice": 40, "bob": 35, "carol": 25,
	})
	ctx := context.Background()

	_, err := svc.Finish(ctx, tournament.ID, FinishTournamentInput{
		Winner:      "bob",
		SecondPlace: strPtr("alice"),
	})
	require.NoError(t, err)

	assert.Equal(t, 100, entrantByName(t, svc, tournament.ID, "bob").Prize)
	assert.Equal(t, 0, entrantByName(t, svc, tournament.ID, "alice").Prize)
	assert.Equal(t, 0, entrantByName(t, svc, tournament.ID, "carol").Prize)
}

func TestTop3SplitPayout(t *testing.T) {
	svc, _ := newTournamentFixture(t, "alice", "bob", "carol", "dave")
	tournament := createActiveTournament(t, svc, models.PrizeModeTop3Split, map[string]int{
		"alice": 25, "bob": 25, "carol": 25, "dave": 25,
	})
	ctx := context.Background()

	_, err := svc.Finish(ctx, tournament.ID, FinishTournamentInput{
		Winner:      "alice",
		SecondPlace: strPtr("bob"),
		ThirdPlace:  strPtr("carol"),
	})
	require.NoError(t, err)

	assert.Equal(t, 50, entrantByName(t, svc, tournament.ID, "alice").Prize)
	assert.Equal(t, 30, entrantByName(t, svc, tournament.ID, "bob").Prize)
	assert.Equal(t, 20, entrantByName(t, svc, tournament.ID, "carol").Prize)
	assert.Equal(t, 0, entrantByName(t, svc, tournament.ID, "dave").Prize)
}

func TestTop3SplitUnfilledPlacesRollUp(t *testing.T) {
	svc, _ := newTournamentFixture(t, "alice", "bob")
	tournament := createActiveTournament(t, svc, models.PrizeModeTop3Split, map[string]int{
		"alice": 60, "bob": 40,
	})
	ctx := context.Background()

	_, err := svc.Finish(ctx, tournament.ID, FinishTournamentInput{
		Winner:      "alice",
		SecondPlace: strPtr("bob"),
	})
	require.NoError(t, err)

	// No third place, so its share stays with the winner.
	assert.Equal(t, 70, entrantByName(t, svc, tournament.ID, "alice").Prize)
	assert.Equal(t, 30, entrantByName(t, svc, tournament.ID, "bob").Prize)
}

func TestSaveBracketStoresBlob(t *testing.T) {
	svc, _ := newTournamentFixture(t, "alice")
	tournament := createActiveTournament(t, svc, models.PrizeModeWinnerTakesAll, map[string]int{"alice": 0})
	ctx := context.Background()

	blob := `{"rounds":[["alice"]]}`
	require.NoError(t, svc.SaveBracket(ctx, tournament.ID, blob))

	got, err := svc.Get(ctx, tournament.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Bracket)
	assert.Equal(t, blob, *got.Bracket)
}

func TestDeleteTournamentKeepsAppliedAwards(t *testing.T) {
	svc, store := newTournamentFixture(t, "alice", "bob")
	tournament := createActiveTournament(t, svc, models.PrizeModeWinnerTakesAll, map[string]int{
		"alice": 0, "bob": 0,
	})
	ctx := context.Background()

	_, err := svc.Finish(ctx, tournament.ID, FinishTournamentInput{Winner: "alice"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, tournament.ID))

	_, err = svc.Get(ctx, tournament.ID)
	assert.ErrorIs(t, err, ErrTournamentNotFound)

	// Removing the record never claws back settled ratings.
	alice := playerByName(t, store, "alice")
	assert.Equal(t, models.InitialRating+50, alice.Rating)
}
