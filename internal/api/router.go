package api

import (
	"net/http"
	"time"

	"github.com/Rrens/event-assistant/internal/api/handler"
	customMiddleware "github.com/Rrens/event-assistant/internal/api/middleware"
	"github.com/Rrens/event-assistant/internal/llm"
	"github.com/Rrens/event-assistant/internal/security"
	"github.com/Rrens/event-assistant/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Dependencies are the services and infrastructure the HTTP layer serves.
// Limiter and Cache are optional.
type Dependencies struct {
	JWTManager *security.JWTManager
	Users      *service.UserService
	Auth       *service.AuthService
	Events     *service.EventService
	Guests     *service.GuestService
	Assistant  handler.Assistant
	LLMRouter  *llm.Router
	Limiter    customMiddleware.Limiter
	Cache      handler.CacheFlusher
	Stores     map[string]handler.Pinger
	Timeout    time.Duration
}

// NewRouter creates and configures the HTTP router
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(customMiddleware.Logger)
	r.Use(middleware.Recoverer)
	if deps.Timeout > 0 {
		r.Use(middleware.Timeout(deps.Timeout))
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authHandler := handler.NewAuthHandler(deps.Auth, deps.Users)
	userHandler := handler.NewUserHandler(deps.Users)
	eventHandler := handler.NewEventHandler(deps.Events)
	guestHandler := handler.NewGuestHandler(deps.Guests)
	assistantHandler := handler.NewAssistantHandler(deps.Assistant)

	authMiddleware := customMiddleware.NewAuthMiddleware(deps.JWTManager)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", handler.HealthCheck)
		r.Get("/ready", handler.ReadyCheck(deps.Stores))

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			r.Get("/auth/me", authHandler.Me)
			r.Get("/llm-providers", handler.ListLLMProviders(deps.LLMRouter))
			if deps.Cache != nil {
				r.Post("/cache/flush", handler.FlushCache(deps.Cache))
			}

			r.Route("/users", func(r chi.Router) {
				r.Get("/", userHandler.List)
				r.Patch("/me", userHandler.UpdateMe)
				r.Delete("/me", userHandler.DeleteMe)
				r.Get("/{userID}", userHandler.Get)
			})

			r.Route("/events", func(r chi.Router) {
				r.Get("/", eventHandler.List)
				r.Post("/", eventHandler.Create)

				r.Route("/{title}", func(r chi.Router) {
					r.Get("/", eventHandler.Get)
					r.Patch("/", eventHandler.Update)
					r.Delete("/", eventHandler.Delete)

					r.Get("/guests", guestHandler.List)
					r.Post("/guests", guestHandler.Add)
					r.Delete("/guests/{guest}", guestHandler.Remove)
				})
			})

			r.Group(func(r chi.Router) {
				if deps.Limiter != nil {
					r.Use(customMiddleware.NewRateLimitMiddleware(deps.Limiter).Limit)
				}
				r.Get("/assistant/prompt", assistantHandler.Prompt)
			})
		})
	})

	return r
}
