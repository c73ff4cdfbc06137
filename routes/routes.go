package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sotoclub/sotopong/handlers"
	"github.com/sotoclub/sotopong/middleware"
)

type Handlers struct {
	Auth       *handlers.AuthHandler
	Player     *handlers.PlayerHandler
	Match      *handlers.MatchHandler
	Tournament *handlers.TournamentHandler
	WebSocket  *handlers.WebSocketHandler
}

// New builds the router. Reads are public; every mutation sits behind the
// admin token.
func New(h Handlers, jwtSecret []byte, allowedOrigins []string) *chi.Mux {
	router := chi.NewRouter()

	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/ws/tournaments/{tournamentID}", h.WebSocket.SubscribeHandler)

	router.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", h.Auth.LoginHandler)

		r.Get("/players", h.Player.ListHandler)
		r.Get("/matches", h.Match.ListHandler)
		r.Get("/tournaments", h.Tournament.ListHandler)
		r.Get("/tournaments/{tournamentID}", h.Tournament.GetHandler)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin(jwtSecret))

			r.Post("/players", h.Player.CreateHandler)
			r.Delete("/players/{playerID}", h.Player.DeleteHandler)
			r.Post("/players/{playerID}/avatar", h.Player.UploadAvatarHandler)

			r.Post("/matches", h.Match.CreateHandler)
			r.Delete("/matches/{matchID}", h.Match.DeleteHandler)

			r.Post("/tournaments", h.Tournament.CreateHandler)
			r.Delete("/tournaments/{tournamentID}", h.Tournament.DeleteHandler)
			r.Post("/tournaments/{tournamentID}/entrants", h.Tournament.AddEntrantHandler)
			r.Delete("/tournaments/{tournamentID}/entrants/{playerName}", h.Tournament.RemoveEntrantHandler)
			r.Put("/tournaments/{tournamentID}/bracket", h.Tournament.SaveBracketHandler)
			r.Post("/tournaments/{tournamentID}/finish", h.Tournament.FinishHandler)
		})
	})

	return router
}
