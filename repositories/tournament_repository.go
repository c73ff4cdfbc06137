package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sotoclub/sotopong/models"
)

var ErrTournamentNotFound = errors.New("tournament not found")

type TournamentRepository interface {
	Create(ctx context.Context, exec SQLExecutor, tournament *models.Tournament) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error)
	List(ctx context.Context, exec SQLExecutor) ([]*models.Tournament, error)
	UpdateBracket(ctx context.Context, exec SQLExecutor, id int, bracket string) error
	// Finish freezes the tournament: one-way status flip plus final
	// placements and bracket, all in a single statement.
	Finish(ctx context.Context, exec SQLExecutor, id int, winner string, second, third, bracket *string) error
	Delete(ctx context.Context, exec SQLExecutor, id int) error
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

func (r *postgresTournamentRepository) executor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const tournamentColumns = `id, name, status, prize_mode, winner, second_place, third_place, bracket, created_at`

func scanTournament(row interface{ Scan(...interface{}) error }) (*models.Tournament, error) {
	var t models.Tournament
	if err := row.Scan(
		&t.ID,
		&t.Name,
		&t.Status,
		&t.PrizeMode,
		&t.Winner,
		&t.SecondPlace,
		&t.ThirdPlace,
		&t.Bracket,
		&t.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *postgresTournamentRepository) Create(ctx context.Context, exec SQLExecutor, tournament *models.Tournament) error {
	query := `
		INSERT INTO tournaments (name, status, prize_mode)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := r.executor(exec).QueryRowContext(ctx, query,
		tournament.Name,
		tournament.Status,
		tournament.PrizeMode,
	).Scan(&tournament.ID, &tournament.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert tournament %q: %w", tournament.Name, err)
	}
	return nil
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE id = $1`
	tournament, err := scanTournament(r.executor(exec).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to scan tournament %d: %w", id, err)
	}
	return tournament, nil
}

func (r *postgresTournamentRepository) List(ctx context.Context, exec SQLExecutor) ([]*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments ORDER BY id DESC`

	rows, err := r.executor(exec).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query tournaments: %w", err)
	}
	defer rows.Close()

	tournaments := make([]*models.Tournament, 0)
	for rows.Next() {
		tournament, scanErr := scanTournament(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan tournament row: %w", scanErr)
		}
		tournaments = append(tournaments, tournament)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during tournament rows iteration: %w", err)
	}
	return tournaments, nil
}

func (r *postgresTournamentRepository) UpdateBracket(ctx context.Context, exec SQLExecutor, id int, bracket string) error {
	query := `UPDATE tournaments SET bracket = $1 WHERE id = $2`
	result, err := r.executor(exec).ExecContext(ctx, query, bracket, id)
	if err != nil {
		return fmt.Errorf("failed to update bracket for tournament %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) Finish(ctx context.Context, exec SQLExecutor, id int, winner string, second, third, bracket *string) error {
	query := `
		UPDATE tournaments
		SET status = $1,
		    winner = $2,
		    second_place = $3,
		    third_place = $4,
		    bracket = COALESCE($5, bracket)
		WHERE id = $6`

	result, err := r.executor(exec).ExecContext(ctx, query,
		models.TournamentStatusFinished, winner, second, third, bracket, id)
	if err != nil {
		return fmt.Errorf("failed to finish tournament %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) Delete(ctx context.Context, exec SQLExecutor, id int) error {
	query := `DELETE FROM tournaments WHERE id = $1`
	result, err := r.executor(exec).ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete tournament %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}
