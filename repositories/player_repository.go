package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/sotoclub/sotopong/models"
)

var (
	ErrPlayerNotFound     = errors.New("player not found")
	ErrPlayerNameConflict = errors.New("player name already taken")
)

type PlayerRepository interface {
	Create(ctx context.Context, exec SQLExecutor, player *models.Player) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Player, error)
	GetByName(ctx context.Context, exec SQLExecutor, name string) (*models.Player, error)
	List(ctx context.Context, exec SQLExecutor) ([]*models.Player, error)

	// ApplyDelta folds one event into the aggregate: rating moves by delta
	// and exactly one of the win/loss counters is incremented.
	ApplyDelta(ctx context.Context, exec SQLExecutor, name string, delta int, won bool) error
	// ReverseDelta is the exact inverse of ApplyDelta with the same
	// arguments. No recomputation, no clamping.
	ReverseDelta(ctx context.Context, exec SQLExecutor, name string, delta int, won bool) error
	// AdjustRating moves rating only, leaving the win/loss tally alone.
	// Tournament settlements use this path.
	AdjustRating(ctx context.Context, exec SQLExecutor, name string, delta int) error

	UpdateAvatarKey(ctx context.Context, exec SQLExecutor, id int, key *string) error
	Delete(ctx context.Context, exec SQLExecutor, id int) error
}

type postgresPlayerRepository struct {
	db *sql.DB
}

func NewPostgresPlayerRepository(db *sql.DB) PlayerRepository {
	return &postgresPlayerRepository{db: db}
}

func (r *postgresPlayerRepository) executor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const playerColumns = `id, name, rating, wins, losses, avatar_key, created_at`

func scanPlayer(row interface{ Scan(...interface{}) error }) (*models.Player, error) {
	var p models.Player
	var avatarKey sql.NullString
	if err := row.Scan(&p.ID, &p.Name, &p.Rating, &p.Wins, &p.Losses, &avatarKey, &p.CreatedAt); err != nil {
		return nil, err
	}
	if avatarKey.Valid {
		p.AvatarKey = &avatarKey.String
	}
	return &p, nil
}

func (r *postgresPlayerRepository) Create(ctx context.Context, exec SQLExecutor, player *models.Player) error {
	query := `
		INSERT INTO players (name, rating, wins, losses)
		VALUES ($1, $2, 0, 0)
		RETURNING id, created_at`

	err := r.executor(exec).QueryRowContext(ctx, query, player.Name, player.Rating).
		Scan(&player.ID, &player.CreatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrPlayerNameConflict
		}
		return fmt.Errorf("failed to insert player %q: %w", player.Name, err)
	}
	return nil
}

func (r *postgresPlayerRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players WHERE id = $1`
	player, err := scanPlayer(r.executor(exec).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to scan player %d: %w", id, err)
	}
	return player, nil
}

func (r *postgresPlayerRepository) GetByName(ctx context.Context, exec SQLExecutor, name string) (*models.Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players WHERE name = $1`
	player, err := scanPlayer(r.executor(exec).QueryRowContext(ctx, query, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to scan player %q: %w", name, err)
	}
	return player, nil
}

func (r *postgresPlayerRepository) List(ctx context.Context, exec SQLExecutor) ([]*models.Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players ORDER BY rating DESC, name ASC`

	rows, err := r.executor(exec).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query players: %w", err)
	}
	defer rows.Close()

	players := make([]*models.Player, 0)
	for rows.Next() {
		player, scanErr := scanPlayer(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan player row: %w", scanErr)
		}
		players = append(players, player)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during player rows iteration: %w", err)
	}
	return players, nil
}

func (r *postgresPlayerRepository) ApplyDelta(ctx context.Context, exec SQLExecutor, name string, delta int, won bool) error {
	return r.shiftAggregate(ctx, exec, name, delta, won, +1)
}

func (r *postgresPlayerRepository) ReverseDelta(ctx context.Context, exec SQLExecutor, name string, delta int, won bool) error {
	return r.shiftAggregate(ctx, exec, name, -delta, won, -1)
}

func (r *postgresPlayerRepository) shiftAggregate(ctx context.Context, exec SQLExecutor, name string, ratingShift int, won bool, counterShift int) error {
	winShift, lossShift := 0, counterShift
	if won {
		winShift, lossShift = counterShift, 0
	}

	query := `
		UPDATE players
		SET rating = rating + $1, wins = wins + $2, losses = losses + $3
		WHERE name = $4`

	result, err := r.executor(exec).ExecContext(ctx, query, ratingShift, winShift, lossShift, name)
	if err != nil {
		return fmt.Errorf("failed to shift aggregate for player %q: %w", name, err)
	}
	return checkAffectedRows(result, ErrPlayerNotFound)
}

func (r *postgresPlayerRepository) AdjustRating(ctx context.Context, exec SQLExecutor, name string, delta int) error {
	query := `UPDATE players SET rating = rating + $1 WHERE name = $2`
	result, err := r.executor(exec).ExecContext(ctx, query, delta, name)
	if err != nil {
		return fmt.Errorf("failed to adjust rating for player %q: %w", name, err)
	}
	return checkAffectedRows(result, ErrPlayerNotFound)
}

func (r *postgresPlayerRepository) UpdateAvatarKey(ctx context.Context, exec SQLExecutor, id int, key *string) error {
	query := `UPDATE players SET avatar_key = $1 WHERE id = $2`
	result, err := r.executor(exec).ExecContext(ctx, query, key, id)
	if err != nil {
		return fmt.Errorf("failed to update avatar for player %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrPlayerNotFound)
}

func (r *postgresPlayerRepository) Delete(ctx context.Context, exec SQLExecutor, id int) error {
	query := `DELETE FROM players WHERE id = $1`
	result, err := r.executor(exec).ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete player %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrPlayerNotFound)
}
