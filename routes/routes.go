package routes

import (
	"github.com/Dosada05/bracket-relay/handlers"
	"github.com/Dosada05/bracket-relay/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func SetupRoutes(
	router *chi.Mux,
	jwtSecret []byte,
	tournamentHandler *handlers.TournamentHandler,
	registrationHandler *handlers.RegistrationHandler,
	matchHandler *handlers.MatchHandler,
	webhookHandler *handlers.WebhookHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticate(jwtSecret)

	// Вебхук провайдера: без аутентификации, провайдер токенов не носит.
	router.Post("/webhooks/provider", webhookHandler.ProviderNotificationHandler)

	router.Route("/tournaments", func(r chi.Router) {
		// Публичные маршруты для просмотра
		r.Get("/", tournamentHandler.ListHandler)
		r.Get("/{tournamentID}", tournamentHandler.GetByIDHandler)
		r.Get("/{tournamentID}/matches", matchHandler.ListByTournamentHandler)
		r.Get("/{tournamentID}/registrations", registrationHandler.ListHandler)

		// Защищённые маршруты организатора
		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Post("/", tournamentHandler.CreateHandler)
			r.Patch("/{tournamentID}/status", tournamentHandler.UpdateStatusHandler)
			r.Delete("/{tournamentID}", tournamentHandler.DeleteHandler)

			r.Post("/{tournamentID}/registrations", registrationHandler.BulkRegisterHandler)
			r.Post("/{tournamentID}/registrations/single", registrationHandler.ManualRegisterHandler)
			r.Delete("/{tournamentID}/registrations/{registrationID}", registrationHandler.RemoveHandler)

			r.Post("/{tournamentID}/bracket", tournamentHandler.GenerateBracketHandler)
			r.Delete("/{tournamentID}/bracket", tournamentHandler.ResetBracketHandler)
			r.Post("/{tournamentID}/refresh", tournamentHandler.RefreshHandler)
			r.Get("/{tournamentID}/standings", tournamentHandler.StandingsHandler)
		})
	})

	router.Group(func(r chi.Router) {
		r.Use(authenticate)
		r.Post("/matches/correction", matchHandler.CorrectionHandler)
	})

	router.Get("/ws/tournaments/{tournamentID}", webSocketHandler.ServeWs)
}
