package routes

import (
	"github.com/BradenHooton/vectradex/internal/auth"
	"github.com/BradenHooton/vectradex/internal/handlers"
	"github.com/BradenHooton/vectradex/internal/middleware"
	"github.com/BradenHooton/vectradex/internal/models"
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all application routes under the given router
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	machineHandler *handlers.MachineHandler,
	dashboardHandler *handlers.DashboardHandler,
	tokenManager *auth.TokenManager,
	userRepo auth.UserRepository,
	rateLimitConfig middleware.RateLimitConfig,
) {
	// Public routes - no authentication required
	router.Group(func(r chi.Router) {
		r.Use(middleware.RateLimitByIP(rateLimitConfig))
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/password/forgot", authHandler.ForgotPassword)
		r.Post("/auth/password/reset", authHandler.ResetPassword)
	})
	router.Post("/auth/logout", authHandler.Logout)

	// Protected routes - authentication required
	router.Group(func(r chi.Router) {
		r.Use(auth.AuthMiddleware(tokenManager))

		// Any authenticated user
		r.Get("/auth/me", authHandler.Me)
		r.Get("/machines", machineHandler.List)
		r.Get("/machines/status", machineHandler.Statuses)
		r.Get("/machines/{id}/status", machineHandler.Status)
		r.Post("/machines/{id}/stop", machineHandler.RegisterStop)
		r.Get("/machines/{id}/history", machineHandler.History)
		r.Get("/dashboard/metrics", dashboardHandler.Metrics)
		r.Get("/dashboard/timeseries", dashboardHandler.TimeSeries)

		// Managers and admins
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(userRepo, models.RoleAdmin, models.RoleManager))
			r.Post("/machines", machineHandler.Create)
			r.Post("/machines/events", machineHandler.CreateEvent)
		})

		// Admin-only routes
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(userRepo, models.RoleAdmin))
			r.Post("/auth/register", authHandler.Register)
			r.Delete("/machines/{id}", machineHandler.Delete)
		})
	})
}
