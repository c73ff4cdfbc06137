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
	ErrEntrantNotFound = errors.New("entrant not found")
	ErrEntrantConflict = errors.New("player already entered in this tournament")
)

type EntrantRepository interface {
	Create(ctx context.Context, exec SQLExecutor, entrant *models.TournamentPlayer) error
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.TournamentPlayer, error)
	// UpdateSettlement writes the audit trail of a finished tournament:
	// the applied rating delta, resolved placement and prize payout.
	UpdateSettlement(ctx context.Context, exec SQLExecutor, id int, ratingDelta int, finishPlace *int, prize int) error
	Delete(ctx context.Context, exec SQLExecutor, tournamentID int, playerName string) error
}

type postgresEntrantRepository struct {
	db *sql.DB
}

func NewPostgresEntrantRepository(db *sql.DB) EntrantRepository {
	return &postgresEntrantRepository{db: db}
}

func (r *postgresEntrantRepository) executor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresEntrantRepository) Create(ctx context.Context, exec SQLExecutor, entrant *models.TournamentPlayer) error {
	query := `
		INSERT INTO tournament_players (tournament_id, player_name, bet)
		VALUES ($1, $2, $3)
		RETURNING id`

	err := r.executor(exec).QueryRowContext(ctx, query,
		entrant.TournamentID,
		entrant.PlayerName,
		entrant.Bet,
	).Scan(&entrant.ID)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Code {
			case "23505": // unique_violation
				return ErrEntrantConflict
			case "23503": // foreign_key_violation
				return ErrTournamentNotFound
			}
		}
		return fmt.Errorf("failed to insert entrant %q: %w", entrant.PlayerName, err)
	}
	return nil
}

func (r *postgresEntrantRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.TournamentPlayer, error) {
	query := `
		SELECT id, tournament_id, player_name, bet, rating_delta, finish_place, prize
		FROM tournament_players
		WHERE tournament_id = $1
		ORDER BY id ASC`

	rows, err := r.executor(exec).QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query entrants for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	entrants := make([]*models.TournamentPlayer, 0)
	for rows.Next() {
		var e models.TournamentPlayer
		if scanErr := rows.Scan(&e.ID, &e.TournamentID, &e.PlayerName, &e.Bet, &e.RatingDelta, &e.FinishPlace, &e.Prize); scanErr != nil {
			return nil, fmt.Errorf("failed to scan entrant row: %w", scanErr)
		}
		entrants = append(entrants, &e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during entrant rows iteration: %w", err)
	}
	return entrants, nil
}

func (r *postgresEntrantRepository) UpdateSettlement(ctx context.Context, exec SQLExecutor, id int, ratingDelta int, finishPlace *int, prize int) error {
	query := `
		UPDATE tournament_players
		SET rating_delta = $1, finish_place = $2, prize = $3
		WHERE id = $4`

	result, err := r.executor(exec).ExecContext(ctx, query, ratingDelta, finishPlace, prize, id)
	if err != nil {
		return fmt.Errorf("failed to settle entrant %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrEntrantNotFound)
}

func (r *postgresEntrantRepository) Delete(ctx context.Context, exec SQLExecutor, tournamentID int, playerName string) error {
	query := `DELETE FROM tournament_players WHERE tournament_id = $1 AND player_name = $2`
	result, err := r.executor(exec).ExecContext(ctx, query, tournamentID, playerName)
	if err != nil {
		return fmt.Errorf("failed to delete entrant %q: %w", playerName, err)
	}
	return checkAffectedRows(result, ErrEntrantNotFound)
}
