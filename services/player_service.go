package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/sotoclub/sotopong/models"
	"github.com/sotoclub/sotopong/repositories"
	"github.com/sotoclub/sotopong/storage"
)

type PlayerService interface {
	List(ctx context.Context) ([]*models.Player, error)
	Create(ctx context.Context, name string) (*models.Player, error)
	// Delete retires a player: every match the player took part in is
	// reversed for every other participant and removed, then the player
	// record itself is deleted. One atomic transaction.
	Delete(ctx context.Context, id int) error
	UploadAvatar(ctx context.Context, id int, contentType string, body io.Reader) (*models.Player, error)
}

type playerService struct {
	tx         repositories.Transactor
	playerRepo repositories.PlayerRepository
	matchRepo  repositories.MatchRepository
	uploader   storage.FileUploader // nil when avatar storage is not configured
	logger     *slog.Logger
}

func NewPlayerService(
	tx repositories.Transactor,
	playerRepo repositories.PlayerRepository,
	matchRepo repositories.MatchRepository,
	uploader storage.FileUploader,
	logger *slog.Logger,
) PlayerService {
	return &playerService{
		tx:         tx,
		playerRepo: playerRepo,
		matchRepo:  matchRepo,
		uploader:   uploader,
		logger:     logger,
	}
}

func (s *playerService) List(ctx context.Context) ([]*models.Player, error) {
	players, err := s.playerRepo.List(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	for _, p := range players {
		s.fillAvatarURL(p)
	}
	return players, nil
}

func (s *playerService) Create(ctx context.Context, name string) (*models.Player, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrPlayerNameRequired
	}

	player := &models.Player{
		Name:   name,
		Rating: models.InitialRating,
	}
	if err := s.playerRepo.Create(ctx, nil, player); err != nil {
		if errors.Is(err, repositories.ErrPlayerNameConflict) {
			return nil, ErrPlayerNameConflict
		}
		return nil, fmt.Errorf("failed to create player %q: %w", name, err)
	}

	s.logger.Info("player registered", slog.Int("id", player.ID), slog.String("name", player.Name))
	return player, nil
}

func (s *playerService) Delete(ctx context.Context, id int) error {
	var retired *models.Player

	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		player, err := s.playerRepo.GetByID(ctx, exec, id)
		if err != nil {
			if errors.Is(err, repositories.ErrPlayerNotFound) {
				return ErrPlayerNotFound
			}
			return err
		}
		retired = player

		matches, err := s.matchRepo.ListByPlayer(ctx, exec, player.Name)
		if err != nil {
			return err
		}

		// Roll back every match the player took part in for every other
		// participant. The retiring player's own aggregate is left alone;
		// the row is about to be deleted anyway.
		for _, match := range matches {
			for i, side := range match.Sides() {
				won := match.SideWon(i + 1)
				for _, name := range side.Names() {
					if name == player.Name {
						continue
					}
					if err := s.playerRepo.ReverseDelta(ctx, exec, name, side.Delta, won); err != nil {
						return fmt.Errorf("failed to reverse match %d for %q: %w", match.ID, name, err)
					}
				}
			}
			if err := s.matchRepo.Delete(ctx, exec, match.ID); err != nil {
				return fmt.Errorf("failed to delete match %d: %w", match.ID, err)
			}
		}

		if err := s.playerRepo.Delete(ctx, exec, id); err != nil {
			return fmt.Errorf("failed to delete player %d: %w", id, err)
		}

		s.logger.Info("player retired",
			slog.Int("id", id),
			slog.String("name", player.Name),
			slog.Int("matches_reversed", len(matches)),
		)
		return nil
	})
	if err != nil {
		return err
	}

	// Best effort: the avatar object is presentation data, not ledger state.
	if s.uploader != nil && retired != nil && retired.AvatarKey != nil {
		if delErr := s.uploader.Delete(ctx, *retired.AvatarKey); delErr != nil {
			s.logger.Warn("failed to delete avatar object", slog.String("key", *retired.AvatarKey), slog.Any("error", delErr))
		}
	}
	return nil
}

var avatarExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
}

func (s *playerService) UploadAvatar(ctx context.Context, id int, contentType string, body io.Reader) (*models.Player, error) {
	if s.uploader == nil {
		return nil, ErrAvatarStorageDisabled
	}
	ext, ok := avatarExtensions[contentType]
	if !ok {
		return nil, ErrUnsupportedAvatarType
	}

	player, err := s.playerRepo.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, repositories.ErrPlayerNotFound) {
			return nil, ErrPlayerNotFound
		}
		return nil, err
	}

	key := fmt.Sprintf("avatars/player_%d%s", player.ID, ext)
	if _, err := s.uploader.Upload(ctx, key, contentType, body); err != nil {
		return nil, fmt.Errorf("failed to upload avatar for player %d: %w", id, err)
	}
	if err := s.playerRepo.UpdateAvatarKey(ctx, nil, id, &key); err != nil {
		return nil, err
	}

	player.AvatarKey = &key
	s.fillAvatarURL(player)
	return player, nil
}

func (s *playerService) fillAvatarURL(p *models.Player) {
	if s.uploader == nil || p.AvatarKey == nil {
		return
	}
	url := s.uploader.GetPublicURL(*p.AvatarKey)
	if url != "" {
		p.AvatarURL = &url
	}
}
