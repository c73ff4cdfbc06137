package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sotoclub/sotopong/brackets"
	"github.com/sotoclub/sotopong/models"
	"github.com/sotoclub/sotopong/repositories"
)

// Placement awards applied at settlement. Placement strictly dominates the
// rounds-won fallback: a placed entrant never receives the semifinal award.
const (
	firstPlaceAward  = 50
	secondPlaceAward = 25
	thirdPlaceAward  = 10
	semifinalAward   = 5
	semifinalRounds  = 2
)

// Prize pot shares for top3_split, in percent. The winner receives the
// remainder of the pot, so an unfilled second or third place rolls its
// share up to the winner.
const (
	secondPrizeShare = 30
	thirdPrizeShare  = 20
)

type CreateTournamentInput struct {
	Name      string           `json:"name"`
	PrizeMode models.PrizeMode `json:"prize_mode"`
}

type AddEntrantInput struct {
	PlayerName string `json:"player_name"`
	Bet        int    `json:"bet"`
}

type FinishTournamentInput struct {
	Winner      string         `json:"winner"`
	SecondPlace *string        `json:"second_place,omitempty"`
	ThirdPlace  *string        `json:"third_place,omitempty"`
	Bracket     *string        `json:"bracket,omitempty"`
	RoundsWon   map[string]int `json:"rounds_won,omitempty"`
}

type TournamentService interface {
	Create(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error)
	List(ctx context.Context) ([]*models.Tournament, error)
	Get(ctx context.Context, id int) (*models.Tournament, error)
	// Delete removes the tournament and its roster rows. Rating deltas
	// already applied by a finish stay applied: there is no unfinish.
	Delete(ctx context.Context, id int) error

	AddEntrant(ctx context.Context, tournamentID int, input AddEntrantInput) (*models.TournamentPlayer, error)
	RemoveEntrant(ctx context.Context, tournamentID int, playerName string) error
	SaveBracket(ctx context.Context, tournamentID int, bracket string) error
	// Finish settles the tournament: resolves placements, applies the
	// placement awards to player ratings (rating only, never the win/loss
	// tally), pays out the bet pot, stores the per-entrant audit trail and
	// freezes the tournament. One atomic transaction; not reversible.
	Finish(ctx context.Context, tournamentID int, input FinishTournamentInput) (*models.Tournament, error)
}

type tournamentService struct {
	tx             repositories.Transactor
	tournamentRepo repositories.TournamentRepository
	entrantRepo    repositories.EntrantRepository
	playerRepo     repositories.PlayerRepository
	hub            *brackets.Hub // nil in tests
	logger         *slog.Logger
}

func NewTournamentService(
	tx repositories.Transactor,
	tournamentRepo repositories.TournamentRepository,
	entrantRepo repositories.EntrantRepository,
	playerRepo repositories.PlayerRepository,
	hub *brackets.Hub,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		tx:             tx,
		tournamentRepo: tournamentRepo,
		entrantRepo:    entrantRepo,
		playerRepo:     playerRepo,
		hub:            hub,
		logger:         logger,
	}
}

func (s *tournamentService) Create(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrTournamentNameRequired
	}
	if input.PrizeMode != models.PrizeModeWinnerTakesAll && input.PrizeMode != models.PrizeModeTop3Split {
		return nil, ErrInvalidPrizeMode
	}

	tournament := &models.Tournament{
		Name:      name,
		Status:    models.TournamentStatusActive,
		PrizeMode: input.PrizeMode,
	}
	if err := s.tournamentRepo.Create(ctx, nil, tournament); err != nil {
		return nil, fmt.Errorf("failed to create tournament %q: %w", name, err)
	}

	s.logger.Info("tournament created", slog.Int("id", tournament.ID), slog.String("name", name))
	return tournament, nil
}

func (s *tournamentService) List(ctx context.Context) ([]*models.Tournament, error) {
	tournaments, err := s.tournamentRepo.List(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	return tournaments, nil
}

func (s *tournamentService) Get(ctx context.Context, id int) (*models.Tournament, error) {
	tournament, err := s.getTournament(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	entrants, err := s.entrantRepo.ListByTournament(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	tournament.Entrants = entrants
	return tournament, nil
}

func (s *tournamentService) Delete(ctx context.Context, id int) error {
	err := s.tournamentRepo.Delete(ctx, nil, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return ErrTournamentNotFound
		}
		return err
	}
	s.logger.Info("tournament deleted", slog.Int("id", id))
	return nil
}

func (s *tournamentService) AddEntrant(ctx context.Context, tournamentID int, input AddEntrantInput) (*models.TournamentPlayer, error) {
	playerName := strings.TrimSpace(input.PlayerName)
	if playerName == "" {
		return nil, ErrPlayerNameRequired
	}
	if input.Bet < 0 {
		return nil, ErrNegativeBet
	}

	entrant := &models.TournamentPlayer{
		TournamentID: tournamentID,
		PlayerName:   playerName,
		Bet:          input.Bet,
	}

	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.requireActive(ctx, exec, tournamentID); err != nil {
			return err
		}
		if _, err := s.playerRepo.GetByName(ctx, exec, playerName); err != nil {
			if errors.Is(err, repositories.ErrPlayerNotFound) {
				return fmt.Errorf("%w: %q", ErrPlayerNotFound, playerName)
			}
			return err
		}
		if err := s.entrantRepo.Create(ctx, exec, entrant); err != nil {
			if errors.Is(err, repositories.ErrEntrantConflict) {
				return ErrEntrantConflict
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entrant, nil
}

func (s *tournamentService) RemoveEntrant(ctx context.Context, tournamentID int, playerName string) error {
	return s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.requireActive(ctx, exec, tournamentID); err != nil {
			return err
		}
		if err := s.entrantRepo.Delete(ctx, exec, tournamentID, playerName); err != nil {
			if errors.Is(err, repositories.ErrEntrantNotFound) {
				return ErrEntrantNotFound
			}
			return err
		}
		return nil
	})
}

func (s *tournamentService) SaveBracket(ctx context.Context, tournamentID int, bracket string) error {
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.requireActive(ctx, exec, tournamentID); err != nil {
			return err
		}
		return s.tournamentRepo.UpdateBracket(ctx, exec, tournamentID, bracket)
	})
	if err != nil {
		return err
	}

	if s.hub != nil {
		s.hub.BroadcastToRoom(brackets.RoomID(tournamentID), brackets.Message{
			Type:    brackets.MessageBracketSaved,
			Payload: bracket,
			RoomID:  brackets.RoomID(tournamentID),
		})
	}
	return nil
}

func (s *tournamentService) Finish(ctx context.Context, tournamentID int, input FinishTournamentInput) (*models.Tournament, error) {
	winner := strings.TrimSpace(input.Winner)
	if winner == "" {
		return nil, ErrWinnerNotEntered
	}
	second := normalizeName(input.SecondPlace)
	third := normalizeName(input.ThirdPlace)

	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		tournament, err := s.getTournament(ctx, exec, tournamentID)
		if err != nil {
			return err
		}
		if tournament.Status != models.TournamentStatusActive {
			return ErrTournamentNotActive
		}

		entrants, err := s.entrantRepo.ListByTournament(ctx, exec, tournamentID)
		if err != nil {
			return err
		}
		if !rosterContains(entrants, winner) {
			return ErrWinnerNotEntered
		}

		prizes := prizePayouts(entrants, winner, second, third, tournament.PrizeMode)

		for _, entrant := range entrants {
			place := placementOf(entrant.PlayerName, winner, second, third)
			award := placementAward(place, input.RoundsWon[entrant.PlayerName])

			if award != 0 {
				if err := s.playerRepo.AdjustRating(ctx, exec, entrant.PlayerName, award); err != nil {
					return fmt.Errorf("failed to award %q: %w", entrant.PlayerName, err)
				}
			}
			if err := s.entrantRepo.UpdateSettlement(ctx, exec, entrant.ID, award, place, prizes[entrant.PlayerName]); err != nil {
				return err
			}
		}

		return s.tournamentRepo.Finish(ctx, exec, tournamentID, winner, second, third, input.Bracket)
	})
	if err != nil {
		return nil, err
	}

	tournament, err := s.Get(ctx, tournamentID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("tournament finished",
		slog.Int("id", tournamentID),
		slog.String("winner", winner),
		slog.Int("entrants", len(tournament.Entrants)),
	)
	if s.hub != nil {
		s.hub.BroadcastToRoom(brackets.RoomID(tournamentID), brackets.Message{
			Type:    brackets.MessageTournamentFinished,
			Payload: tournament,
			RoomID:  brackets.RoomID(tournamentID),
		})
	}
	return tournament, nil
}

func (s *tournamentService) getTournament(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, exec, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return tournament, nil
}

func (s *tournamentService) requireActive(ctx context.Context, exec repositories.SQLExecutor, id int) error {
	tournament, err := s.getTournament(ctx, exec, id)
	if err != nil {
		return err
	}
	if tournament.Status != models.TournamentStatusActive {
		return ErrTournamentNotActive
	}
	return nil
}

func normalizeName(name *string) *string {
	if name == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*name)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func rosterContains(entrants []*models.TournamentPlayer, name string) bool {
	for _, e := range entrants {
		if e.PlayerName == name {
			return true
		}
	}
	return false
}

// placementOf resolves an entrant's final placement. Winner beats second
// beats third, so a name appearing twice takes the better place.
func placementOf(name, winner string, second, third *string) *int {
	var place int
	switch {
	case name == winner:
		place = 1
	case second != nil && name == *second:
		place = 2
	case third != nil && name == *third:
		place = 3
	default:
		return nil
	}
	return &place
}

func placementAward(place *int, roundsWon int) int {
	if place != nil {
		switch *place {
		case 1:
			return firstPlaceAward
		case 2:
			return secondPlaceAward
		case 3:
			return thirdPlaceAward
		}
	}
	if roundsWon >= semifinalRounds {
		return semifinalAward
	}
	return 0
}

// prizePayouts splits the bet pot among the placed entrants. Money only;
// ratings are never touched by payouts.
func prizePayouts(entrants []*models.TournamentPlayer, winner string, second, third *string, mode models.PrizeMode) map[string]int {
	pot := 0
	for _, e := range entrants {
		pot += e.Bet
	}

	payouts := make(map[string]int)
	if pot == 0 {
		return payouts
	}

	if mode == models.PrizeModeTop3Split {
		if second != nil && *second != winner && rosterContains(entrants, *second) {
			payouts[*second] = pot * secondPrizeShare / 100
		}
		if third != nil && *third != winner && rosterContains(entrants, *third) {
			payouts[*third] = pot * thirdPrizeShare / 100
		}
	}

	paid := 0
	for _, amount := range payouts {
		paid += amount
	}
	payouts[winner] = pot - paid
	return payouts
}
