package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/aiguardian/guardian/internal/middleware"
)

// NewRouter assembles the API routes. Device and authentication routes
// require a logged-in user. metricsHandler may be nil.
func NewRouter(
	authHandler *AuthHandler,
	deviceHandler *DeviceHandler,
	flowHandler *FlowHandler,
	sessions middleware.SessionSource,
	metricsHandler http.Handler,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(middleware.WithRequestLogging(logger))
	r.Use(chiMiddleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(chiMiddleware.AllowContentType("application/json"))

		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)
		r.Get("/session", authHandler.Session)
		r.Put("/session/face", authHandler.EnrollFace)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireSession(sessions))

			r.Get("/devices", deviceHandler.List)
			r.Post("/devices/{id}/lock", deviceHandler.Lock)
			r.Post("/devices/{id}/auth", flowHandler.Begin)
			r.Get("/alerts", deviceHandler.Alerts)

			r.Route("/auth/{attemptID}", func(r chi.Router) {
				r.Get("/", flowHandler.Get)
				r.Delete("/", flowHandler.Cancel)
				r.Post("/start", flowHandler.Start)
				r.Post("/capture", flowHandler.Capture)
				r.Post("/retake", flowHandler.Retake)
				r.Post("/submit", flowHandler.Submit)
			})
		})
	})

	return r
}
