package models

import "time"

// InitialRating is the rating every player starts with. A player's current
// rating is always InitialRating plus the sum of the stored deltas of every
// event (match or tournament settlement) currently on record for them.
const InitialRating = 1000

type Player struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Rating    int       `json:"rating"`
	Wins      int       `json:"wins"`
	Losses    int       `json:"losses"`
	AvatarKey *string   `json:"-"`
	AvatarURL *string   `json:"avatar_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
