package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(apiHandler *APIHandler, limiter *RateLimiter) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)    // Recover from panics
	r.Use(middleware.StripSlashes) // Ensure consistent path handling

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Entry screen
	r.Get("/", apiHandler.EntryHandler)
	r.Get("/login", apiHandler.LoginRedirectHandler)

	r.Route("/home", func(r chi.Router) {
		r.With(limiter.Middleware).Get("/", apiHandler.SessionHandler)

		// Routes bound to a mounted session screen
		r.Route("/{screenID}", func(r chi.Router) {
			r.Use(apiHandler.ScreenCtx)

			r.Get("/", apiHandler.PageHandler)
			r.Get("/state", apiHandler.StateHandler)
			r.Post("/draft", apiHandler.DraftHandler)
			r.With(limiter.Middleware).Post("/ask", apiHandler.AskHandler)
			r.Get("/ws", apiHandler.WebSocketHandler)
		})
	})

	return r
}
