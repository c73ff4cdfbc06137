package services

import "errors"

// Business-rule errors shared by the services and the HTTP error mapping.
// Every one of them is raised before any mutation, so a rejected call never
// leaves a partial state behind.
var (
	// Missing resources
	ErrPlayerNotFound     = errors.New("player not found")
	ErrMatchNotFound      = errors.New("match not found")
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrEntrantNotFound    = errors.New("entrant not found")

	// Conflicts
	ErrPlayerNameConflict = errors.New("player name is already in use")
	ErrEntrantConflict    = errors.New("player is already entered in this tournament")

	// Validation
	ErrPlayerNameRequired     = errors.New("player name must not be empty")
	ErrTournamentNameRequired = errors.New("tournament name must not be empty")
	ErrInvalidPrizeMode       = errors.New("prize mode must be winner_takes_all or top3_split")
	ErrDrawNotAllowed         = errors.New("a match cannot end in a draw")
	ErrNegativeScore          = errors.New("score must not be negative")
	ErrSelfMatch              = errors.New("a player cannot appear twice in the same match")
	ErrMixedSides             = errors.New("doubles requires a partner on both sides")
	ErrNegativeBet            = errors.New("bet must not be negative")

	// State rules
	ErrTournamentNotActive = errors.New("tournament is not active")
	ErrWinnerNotEntered    = errors.New("winner is not an entrant of this tournament")

	// Auth and uploads
	ErrInvalidCredentials    = errors.New("invalid admin credentials")
	ErrAvatarStorageDisabled = errors.New("avatar storage is not configured")
	ErrUnsupportedAvatarType = errors.New("avatar must be a png, jpeg or webp image")
)
