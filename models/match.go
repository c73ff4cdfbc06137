package models

import "time"

type MatchKind string

const (
	MatchKindSingles MatchKind = "singles"
	MatchKindDoubles MatchKind = "doubles"
)

// MatchSide is one side of a recorded match. Partner is set only for
// doubles; Delta is the rating adjustment that was applied to every player
// on this side when the match was recorded. It is written once and is the
// exact amount subtracted again if the match is deleted; it is never
// recomputed from current ratings.
type MatchSide struct {
	Player  string  `json:"player"`
	Partner *string `json:"partner,omitempty"`
	Score   int     `json:"score"`
	Delta   int     `json:"delta"`
}

// Names returns the players on this side, skipping the empty partner slot
// of a singles side.
func (s MatchSide) Names() []string {
	if s.Partner == nil {
		return []string{s.Player}
	}
	return []string{s.Player, *s.Partner}
}

type Match struct {
	ID         int       `json:"id"`
	Kind       MatchKind `json:"kind"`
	Side1      MatchSide `json:"side1"`
	Side2      MatchSide `json:"side2"`
	WinnerSide int       `json:"winner_side"` // 1 or 2
	PlayedAt   time.Time `json:"played_at"`

	// Presentation fields derived from PlayedAt, filled by FormatPlayedAt.
	Date string `json:"date,omitempty"`
	Time string `json:"time,omitempty"`
}

// FormatPlayedAt fills Date and Time in the layout the frontend expects.
func (m *Match) FormatPlayedAt() {
	m.Date = m.PlayedAt.Format("02.01.2006")
	m.Time = m.PlayedAt.Format("15:04")
}

// Sides returns both sides with their 1-based side numbers.
func (m *Match) Sides() [2]MatchSide {
	return [2]MatchSide{m.Side1, m.Side2}
}

// SideWon reports whether the given 1-based side number won the match.
func (m *Match) SideWon(side int) bool {
	return m.WinnerSide == side
}
