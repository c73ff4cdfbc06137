// Package memory implements the repository interfaces against in-process
// maps. It exists for service-level tests, which exercise the full ledger
// logic without a running Postgres.
package memory

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/sotoclub/sotopong/models"
	"github.com/sotoclub/sotopong/repositories"
)

type Store struct {
	mu sync.Mutex

	players     map[string]*models.Player
	matches     map[int]*models.Match
	tournaments map[int]*models.Tournament
	entrants    map[int]*models.TournamentPlayer

	nextPlayerID     int
	nextMatchID      int
	nextTournamentID int
	nextEntrantID    int
}

func NewStore() *Store {
	return &Store{
		players:          make(map[string]*models.Player),
		matches:          make(map[int]*models.Match),
		tournaments:      make(map[int]*models.Tournament),
		entrants:         make(map[int]*models.TournamentPlayer),
		nextPlayerID:     1,
		nextMatchID:      1,
		nextTournamentID: 1,
		nextEntrantID:    1,
	}
}

// txToken marks calls made from inside WithinTx, where the store mutex is
// already held. It satisfies SQLExecutor only so it can travel through the
// repository interfaces; its methods are never invoked.
type txToken struct{}

var errNotSQL = errors.New("memory store does not execute SQL")

func (*txToken) ExecContext(context.Context, string, ...interface{}) (sql.Result, error) {
	return nil, errNotSQL
}
func (*txToken) QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error) {
	return nil, errNotSQL
}
func (*txToken) QueryRowContext(context.Context, string, ...interface{}) *sql.Row {
	return nil
}

func (s *Store) lock(exec repositories.SQLExecutor) func() {
	if _, inTx := exec.(*txToken); inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// WithinTx serializes the whole unit of work under the store mutex.
func (s *Store) WithinTx(_ context.Context, fn func(exec repositories.SQLExecutor) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&txToken{})
}

// Players returns a PlayerRepository view of the store.
func (s *Store) Players() repositories.PlayerRepository { return (*playerStore)(s) }

// Matches returns a MatchRepository view of the store.
func (s *Store) Matches() repositories.MatchRepository { return (*matchStore)(s) }

// Tournaments returns a TournamentRepository view of the store.
func (s *Store) Tournaments() repositories.TournamentRepository { return (*tournamentStore)(s) }

// Entrants returns an EntrantRepository view of the store.
func (s *Store) Entrants() repositories.EntrantRepository { return (*entrantStore)(s) }

type playerStore Store

func (ps *playerStore) Create(_ context.Context, exec repositories.SQLExecutor, player *models.Player) error {
	s := (*Store)(ps)
	defer s.lock(exec)()

	if _, exists := s.players[player.Name]; exists {
		return repositories.ErrPlayerNameConflict
	}
	player.ID = s.nextPlayerID
	s.nextPlayerID++
	player.CreatedAt = time.Now()
	cp := *player
	s.players[player.Name] = &cp
	return nil
}

func (ps *playerStore) GetByID(_ context.Context, exec repositories.SQLExecutor, id int) (*models.Player, error) {
	s := (*Store)(ps)
	defer s.lock(exec)()

	for _, p := range s.players {
		if p.ID == id {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repositories.ErrPlayerNotFound
}

func (ps *playerStore) GetByName(_ context.Context, exec repositories.SQLExecutor, name string) (*models.Player, error) {
	s := (*Store)(ps)
	defer s.lock(exec)()

	p, ok := s.players[name]
	if !ok {
		return nil, repositories.ErrPlayerNotFound
	}
	cp := *p
	return &cp, nil
}

func (ps *playerStore) List(_ context.Context, exec repositories.SQLExecutor) ([]*models.Player, error) {
	s := (*Store)(ps)
	defer s.lock(exec)()

	out := make([]*models.Player, 0, len(s.players))
	for _, p := range s.players {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rating != out[j].Rating {
			return out[i].Rating > out[j].Rating
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (ps *playerStore) ApplyDelta(_ context.Context, exec repositories.SQLExecutor, name string, delta int, won bool) error {
	return (*Store)(ps).shiftAggregate(exec, name, delta, won, +1)
}

func (ps *playerStore) ReverseDelta(_ context.Context, exec repositories.SQLExecutor, name string, delta int, won bool) error {
	return (*Store)(ps).shiftAggregate(exec, name, -delta, won, -1)
}

func (s *Store) shiftAggregate(exec repositories.SQLExecutor, name string, ratingShift int, won bool, counterShift int) error {
	defer s.lock(exec)()

	p, ok := s.players[name]
	if !ok {
		return repositories.ErrPlayerNotFound
	}
	p.Rating += ratingShift
	if won {
		p.Wins += counterShift
	} else {
		p.Losses += counterShift
	}
	return nil
}

func (ps *playerStore) AdjustRating(_ context.Context, exec repositories.SQLExecutor, name string, delta int) error {
	s := (*Store)(ps)
	defer s.lock(exec)()

	p, ok := s.players[name]
	if !ok {
		return repositories.ErrPlayerNotFound
	}
	p.Rating += delta
	return nil
}

func (ps *playerStore) UpdateAvatarKey(_ context.Context, exec repositories.SQLExecutor, id int, key *string) error {
	s := (*Store)(ps)
	defer s.lock(exec)()

	for _, p := range s.players {
		if p.ID == id {
			p.AvatarKey = key
			return nil
		}
	}
	return repositories.ErrPlayerNotFound
}

func (ps *playerStore) Delete(_ context.Context, exec repositories.SQLExecutor, id int) error {
	s := (*Store)(ps)
	defer s.lock(exec)()

	for name, p := range s.players {
		if p.ID == id {
			delete(s.players, name)
			return nil
		}
	}
	return repositories.ErrPlayerNotFound
}

type matchStore Store

func (ms *matchStore) Create(_ context.Context, exec repositories.SQLExecutor, match *models.Match) error {
	s := (*Store)(ms)
	defer s.lock(exec)()

	match.ID = s.nextMatchID
	s.nextMatchID++
	match.PlayedAt = time.Now()
	cp := *match
	s.matches[match.ID] = &cp
	return nil
}

func (ms *matchStore) GetByID(_ context.Context, exec repositories.SQLExecutor, id int) (*models.Match, error) {
	s := (*Store)(ms)
	defer s.lock(exec)()

	m, ok := s.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	cp := *m
	return &cp, nil
}

func (ms *matchStore) List(_ context.Context, exec repositories.SQLExecutor) ([]*models.Match, error) {
	s := (*Store)(ms)
	defer s.lock(exec)()

	out := make([]*models.Match, 0, len(s.matches))
	for _, m := range s.matches {
		cp := *m
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (ms *matchStore) ListByPlayer(_ context.Context, exec repositories.SQLExecutor, name string) ([]*models.Match, error) {
	s := (*Store)(ms)
	defer s.lock(exec)()

	out := make([]*models.Match, 0)
	for _, m := range s.matches {
		if matchHasPlayer(m, name) {
			cp := *m
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func matchHasPlayer(m *models.Match, name string) bool {
	for _, side := range m.Sides() {
		for _, n := range side.Names() {
			if n == name {
				return true
			}
		}
	}
	return false
}

func (ms *matchStore) Delete(_ context.Context, exec repositories.SQLExecutor, id int) error {
	s := (*Store)(ms)
	defer s.lock(exec)()

	if _, ok := s.matches[id]; !ok {
		return repositories.ErrMatchNotFound
	}
	delete(s.matches, id)
	return nil
}

type tournamentStore Store

func (ts *tournamentStore) Create(_ context.Context, exec repositories.SQLExecutor, tournament *models.Tournament) error {
	s := (*Store)(ts)
	defer s.lock(exec)()

	tournament.ID = s.nextTournamentID
	s.nextTournamentID++
	tournament.CreatedAt = time.Now()
	cp := *tournament
	cp.Entrants = nil
	s.tournaments[tournament.ID] = &cp
	return nil
}

func (ts *tournamentStore) GetByID(_ context.Context, exec repositories.SQLExecutor, id int) (*models.Tournament, error) {
	s := (*Store)(ts)
	defer s.lock(exec)()

	t, ok := s.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	cp := *t
	return &cp, nil
}

func (ts *tournamentStore) List(_ context.Context, exec repositories.SQLExecutor) ([]*models.Tournament, error) {
	s := (*Store)(ts)
	defer s.lock(exec)()

	out := make([]*models.Tournament, 0, len(s.tournaments))
	for _, t := range s.tournaments {
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (ts *tournamentStore) UpdateBracket(_ context.Context, exec repositories.SQLExecutor, id int, bracket string) error {
	s := (*Store)(ts)
	defer s.lock(exec)()

	t, ok := s.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	b := bracket
	t.Bracket = &b
	return nil
}

func (ts *tournamentStore) Finish(_ context.Context, exec repositories.SQLExecutor, id int, winner string, second, third, bracket *string) error {
	s := (*Store)(ts)
	defer s.lock(exec)()

	t, ok := s.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.Status = models.TournamentStatusFinished
	w := winner
	t.Winner = &w
	t.SecondPlace = second
	t.ThirdPlace = third
	if bracket != nil {
		t.Bracket = bracket
	}
	return nil
}

func (ts *tournamentStore) Delete(_ context.Context, exec repositories.SQLExecutor, id int) error {
	s := (*Store)(ts)
	defer s.lock(exec)()

	if _, ok := s.tournaments[id]; !ok {
		return repositories.ErrTournamentNotFound
	}
	delete(s.tournaments, id)
	for entrantID, e := range s.entrants {
		if e.TournamentID == id {
			delete(s.entrants, entrantID)
		}
	}
	return nil
}

type entrantStore Store

func (es *entrantStore) Create(_ context.Context, exec repositories.SQLExecutor, entrant *models.TournamentPlayer) error {
	s := (*Store)(es)
	defer s.lock(exec)()

	if _, ok := s.tournaments[entrant.TournamentID]; !ok {
		return repositories.ErrTournamentNotFound
	}
	for _, e := range s.entrants {
		if e.TournamentID == entrant.TournamentID && e.PlayerName == entrant.PlayerName {
			return repositories.ErrEntrantConflict
		}
	}
	entrant.ID = s.nextEntrantID
	s.nextEntrantID++
	cp := *entrant
	s.entrants[entrant.ID] = &cp
	return nil
}

func (es *entrantStore) ListByTournament(_ context.Context, exec repositories.SQLExecutor, tournamentID int) ([]*models.TournamentPlayer, error) {
	s := (*Store)(es)
	defer s.lock(exec)()

	out := make([]*models.TournamentPlayer, 0)
	for _, e := range s.entrants {
		if e.TournamentID == tournamentID {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (es *entrantStore) UpdateSettlement(_ context.Context, exec repositories.SQLExecutor, id int, ratingDelta int, finishPlace *int, prize int) error {
	s := (*Store)(es)
	defer s.lock(exec)()

	e, ok := s.entrants[id]
	if !ok {
		return repositories.ErrEntrantNotFound
	}
	e.RatingDelta = ratingDelta
	e.FinishPlace = finishPlace
	e.Prize = prize
	return nil
}

func (es *entrantStore) Delete(_ context.Context, exec repositories.SQLExecutor, tournamentID int, playerName string) error {
	s := (*Store)(es)
	defer s.lock(exec)()

	for id, e := range s.entrants {
		if e.TournamentID == tournamentID && e.PlayerName == playerName {
			delete(s.entrants, id)
			return nil
		}
	}
	return repositories.ErrEntrantNotFound
}
