package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/viniciusroberto/pluggy-lead-pulse/internal/infra/observability"
	"github.com/viniciusroberto/pluggy-lead-pulse/internal/service"
)

// Deps carries everything the router needs.
type Deps struct {
	Sessions       *service.SessionStore
	Guard          *service.AccessGuard
	Dashboard      *service.DashboardService
	Validation     *service.ValidationService
	Users          *service.UserService
	Export         *service.ExportService
	Metrics        *observability.Metrics
	JWTSecret      string
	AllowedOrigins []string
	Logger         *zap.Logger
}

// NewRouter creates the HTTP router with all routes and middleware.
// Routes follow the API contract of the lead dashboard frontend.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(d.Logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler())
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(d.Metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {

		// =============================================
		// 1. 🔐 Autenticação
		// =============================================
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", loginHandler(d.Sessions, d.Guard, d.Logger))
			r.Post("/signup", signupHandler(d.Sessions, d.Logger))
			r.Post("/logout", logoutHandler(d.Sessions, d.Logger))
			r.Get("/session", sessionHandler(d.Sessions, d.Guard, d.Logger))
			r.Post("/retry", retryHandler(d.Guard))
			r.Post("/clear", clearHandler(d.Sessions, d.Guard, d.Logger))
		})

		// =============================================
		// 2. 📊 Dashboard (protected)
		// =============================================
		r.Group(func(r chi.Router) {
			r.Use(JWTAuthMiddleware(d.JWTSecret, d.Logger))
			r.Use(RequireAccess(d.Guard, false, d.Logger))

			r.Get("/dashboard", dashboardHandler(d.Dashboard, d.Metrics, d.Logger))
			r.Get("/metrics/service", serviceMetricsHandler(d.Metrics))

			// =============================================
			// 3. 📋 Leads: export, chat, validação
			// =============================================
			r.Get("/leads/export", exportHandler(d.Export, d.Logger))
			r.Get("/leads/{telefone}/chat", chatHandler(d.Validation, d.Logger))
			r.Get("/leads/{telefone}/validation", getValidationHandler(d.Validation, d.Logger))
			r.Put("/leads/{telefone}/validation", putValidationHandler(d.Validation, d.Logger))
		})

		// =============================================
		// 4. 👤 Administração de usuários (admin)
		// =============================================
		r.Group(func(r chi.Router) {
			r.Use(JWTAuthMiddleware(d.JWTSecret, d.Logger))
			r.Use(RequireAccess(d.Guard, true, d.Logger))

			r.Get("/admin/users", listUsersHandler(d.Users, d.Logger))
			r.Post("/admin/users", createUserHandler(d.Users, d.Logger))
			r.Patch("/admin/users/{id}", updateUserHandler(d.Users, d.Logger))
		})
	})

	return r
}

// ============================================================
// Operational handlers
// ============================================================

func healthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
