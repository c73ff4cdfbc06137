package models

import "time"

type TournamentStatus string

const (
	TournamentStatusActive   TournamentStatus = "active"
	TournamentStatusFinished TournamentStatus = "finished"
)

type PrizeMode string

const (
	PrizeModeWinnerTakesAll PrizeMode = "winner_takes_all"
	PrizeModeTop3Split      PrizeMode = "top3_split"
)

type Tournament struct {
	ID          int              `json:"id"`
	Name        string           `json:"name"`
	Status      TournamentStatus `json:"status"`
	PrizeMode   PrizeMode        `json:"prize_mode"`
	Winner      *string          `json:"winner,omitempty"`
	SecondPlace *string          `json:"second_place,omitempty"`
	ThirdPlace  *string          `json:"third_place,omitempty"`
	// Bracket is an opaque blob owned by the frontend. The server stores
	// and relays it verbatim and never parses it.
	Bracket   *string   `json:"bracket,omitempty"`
	CreatedAt time.Time `json:"created_at"`

	Entrants []*TournamentPlayer `json:"entrants,omitempty"`
}

// TournamentPlayer is one roster entry. RatingDelta, FinishPlace and Prize
// are written once at settlement and are immutable afterwards.
type TournamentPlayer struct {
	ID           int    `json:"id"`
	TournamentID int    `json:"tournament_id"`
	PlayerName   string `json:"player_name"`
	Bet          int    `json:"bet"`
	RatingDelta  int    `json:"rating_delta"`
	FinishPlace  *int   `json:"finish_place,omitempty"`
	Prize        int    `json:"prize"`
}
