package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sotoclub/sotopong/models"
	"github.com/sotoclub/sotopong/repositories"
)

// SideInput is one side of a match being recorded. Partner is present on
// both sides (doubles) or on neither (singles); a mixed 1-vs-2 match is not
// modeled.
type SideInput struct {
	Player  string  `json:"player"`
	Partner *string `json:"partner,omitempty"`
	Score   int     `json:"score"`
}

type RecordMatchInput struct {
	Side1 SideInput `json:"side1"`
	Side2 SideInput `json:"side2"`
}

type MatchService interface {
	List(ctx context.Context) ([]*models.Match, error)
	// Record validates the outcome, computes the rating deltas from the
	// participants' current ratings, applies them to every participant and
	// persists the match with the applied deltas, all in one transaction.
	Record(ctx context.Context, input RecordMatchInput) (*models.Match, error)
	// Delete reverses the match's stored deltas for every participant and
	// removes the record, atomically.
	Delete(ctx context.Context, id int) error
}

type matchService struct {
	tx         repositories.Transactor
	matchRepo  repositories.MatchRepository
	playerRepo repositories.PlayerRepository
	logger     *slog.Logger
}

func NewMatchService(
	tx repositories.Transactor,
	matchRepo repositories.MatchRepository,
	playerRepo repositories.PlayerRepository,
	logger *slog.Logger,
) MatchService {
	return &matchService{
		tx:         tx,
		matchRepo:  matchRepo,
		playerRepo: playerRepo,
		logger:     logger,
	}
}

func (s *matchService) List(ctx context.Context) ([]*models.Match, error) {
	matches, err := s.matchRepo.List(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	for _, m := range matches {
		m.FormatPlayedAt()
	}
	return matches, nil
}

func (s *matchService) Record(ctx context.Context, input RecordMatchInput) (*models.Match, error) {
	side1, side2 := normalizeSide(input.Side1), normalizeSide(input.Side2)

	if side1.Score < 0 || side2.Score < 0 {
		return nil, ErrNegativeScore
	}
	if side1.Score == side2.Score {
		return nil, ErrDrawNotAllowed
	}

	kind, err := matchKind(side1, side2)
	if err != nil {
		return nil, err
	}
	if err := checkDistinctPlayers(side1, side2); err != nil {
		return nil, err
	}

	winnerSide := 1
	if side2.Score > side1.Score {
		winnerSide = 2
	}

	match := &models.Match{
		Kind:       kind,
		Side1:      side1,
		Side2:      side2,
		WinnerSide: winnerSide,
	}

	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		rating1, err := s.sideRating(ctx, exec, match.Side1)
		if err != nil {
			return err
		}
		rating2, err := s.sideRating(ctx, exec, match.Side2)
		if err != nil {
			return err
		}

		match.Side1.Delta, match.Side2.Delta = CalcDeltas(rating1, rating2, match.Side1.Score, match.Side2.Score)

		for i, side := range match.Sides() {
			won := match.SideWon(i + 1)
			for _, name := range side.Names() {
				if err := s.playerRepo.ApplyDelta(ctx, exec, name, side.Delta, won); err != nil {
					return fmt.Errorf("failed to apply delta to %q: %w", name, err)
				}
			}
		}

		return s.matchRepo.Create(ctx, exec, match)
	})
	if err != nil {
		return nil, err
	}

	match.FormatPlayedAt()
	s.logger.Info("match recorded",
		slog.Int("id", match.ID),
		slog.String("kind", string(match.Kind)),
		slog.Int("d1", match.Side1.Delta),
		slog.Int("d2", match.Side2.Delta),
	)
	return match, nil
}

func (s *matchService) Delete(ctx context.Context, id int) error {
	return s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		match, err := s.matchRepo.GetByID(ctx, exec, id)
		if err != nil {
			if errors.Is(err, repositories.ErrMatchNotFound) {
				return ErrMatchNotFound
			}
			return err
		}

		for i, side := range match.Sides() {
			won := match.SideWon(i + 1)
			for _, name := range side.Names() {
				if err := s.playerRepo.ReverseDelta(ctx, exec, name, side.Delta, won); err != nil {
					return fmt.Errorf("failed to reverse delta for %q: %w", name, err)
				}
			}
		}

		if err := s.matchRepo.Delete(ctx, exec, id); err != nil {
			return err
		}

		s.logger.Info("match deleted", slog.Int("id", id))
		return nil
	})
}

// sideRating resolves the effective rating of a side from the current
// player records: the player's own rating for singles, the floored team
// average for doubles.
func (s *matchService) sideRating(ctx context.Context, exec repositories.SQLExecutor, side models.MatchSide) (int, error) {
	player, err := s.getPlayer(ctx, exec, side.Player)
	if err != nil {
		return 0, err
	}
	if side.Partner == nil {
		return player.Rating, nil
	}
	partner, err := s.getPlayer(ctx, exec, *side.Partner)
	if err != nil {
		return 0, err
	}
	return TeamRating(player.Rating, partner.Rating), nil
}

func (s *matchService) getPlayer(ctx context.Context, exec repositories.SQLExecutor, name string) (*models.Player, error) {
	player, err := s.playerRepo.GetByName(ctx, exec, name)
	if err != nil {
		if errors.Is(err, repositories.ErrPlayerNotFound) {
			return nil, fmt.Errorf("%w: %q", ErrPlayerNotFound, name)
		}
		return nil, err
	}
	return player, nil
}

func normalizeSide(in SideInput) models.MatchSide {
	side := models.MatchSide{
		Player: strings.TrimSpace(in.Player),
		Score:  in.Score,
	}
	if in.Partner != nil {
		if partner := strings.TrimSpace(*in.Partner); partner != "" {
			side.Partner = &partner
		}
	}
	return side
}

func matchKind(side1, side2 models.MatchSide) (models.MatchKind, error) {
	hasPartner1, hasPartner2 := side1.Partner != nil, side2.Partner != nil
	switch {
	case hasPartner1 && hasPartner2:
		return models.MatchKindDoubles, nil
	case !hasPartner1 && !hasPartner2:
		return models.MatchKindSingles, nil
	default:
		return "", ErrMixedSides
	}
}

func checkDistinctPlayers(side1, side2 models.MatchSide) error {
	seen := make(map[string]bool)
	for _, name := range append(side1.Names(), side2.Names()...) {
		if name == "" {
			return ErrPlayerNameRequired
		}
		if seen[name] {
			return ErrSelfMatch
		}
		seen[name] = true
	}
	return nil
}
