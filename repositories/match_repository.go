package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sotoclub/sotopong/models"
)

var ErrMatchNotFound = errors.New("match not found")

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	List(ctx context.Context, exec SQLExecutor) ([]*models.Match, error)
	// ListByPlayer returns every match in which the named player occupies
	// any slot on either side.
	ListByPlayer(ctx context.Context, exec SQLExecutor, name string) ([]*models.Match, error)
	Delete(ctx context.Context, exec SQLExecutor, id int) error
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) executor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const matchColumns = `id, kind, s1_player, s1_partner, s2_player, s2_partner,
	score1, score2, winner_side, d1, d2, played_at`

func scanMatch(row interface{ Scan(...interface{}) error }) (*models.Match, error) {
	var m models.Match
	if err := row.Scan(
		&m.ID,
		&m.Kind,
		&m.Side1.Player,
		&m.Side1.Partner,
		&m.Side2.Player,
		&m.Side2.Partner,
		&m.Side1.Score,
		&m.Side2.Score,
		&m.WinnerSide,
		&m.Side1.Delta,
		&m.Side2.Delta,
		&m.PlayedAt,
	); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	query := `
		INSERT INTO matches
			(kind, s1_player, s1_partner, s2_player, s2_partner,
			 score1, score2, winner_side, d1, d2)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, played_at`

	err := r.executor(exec).QueryRowContext(ctx, query,
		match.Kind,
		match.Side1.Player,
		match.Side1.Partner,
		match.Side2.Player,
		match.Side2.Partner,
		match.Side1.Score,
		match.Side2.Score,
		match.WinnerSide,
		match.Side1.Delta,
		match.Side2.Delta,
	).Scan(&match.ID, &match.PlayedAt)
	if err != nil {
		return fmt.Errorf("failed to insert match: %w", err)
	}
	return nil
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`
	match, err := scanMatch(r.executor(exec).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to scan match %d: %w", id, err)
	}
	return match, nil
}

func (r *postgresMatchRepository) List(ctx context.Context, exec SQLExecutor) ([]*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches ORDER BY id DESC`
	return r.queryMatches(ctx, exec, query)
}

func (r *postgresMatchRepository) ListByPlayer(ctx context.Context, exec SQLExecutor, name string) ([]*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches
		WHERE s1_player = $1 OR s1_partner = $1 OR s2_player = $1 OR s2_partner = $1
		ORDER BY id ASC`
	return r.queryMatches(ctx, exec, query, name)
}

func (r *postgresMatchRepository) queryMatches(ctx context.Context, exec SQLExecutor, query string, args ...interface{}) ([]*models.Match, error) {
	rows, err := r.executor(exec).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		match, scanErr := scanMatch(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", scanErr)
		}
		matches = append(matches, match)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during match rows iteration: %w", err)
	}
	return matches, nil
}

func (r *postgresMatchRepository) Delete(ctx context.Context, exec SQLExecutor, id int) error {
	query := `DELETE FROM matches WHERE id = $1`
	result, err := r.executor(exec).ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete match %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}
