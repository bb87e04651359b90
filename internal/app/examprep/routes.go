// Package examprep собирает HTTP API: зависимости, маршруты и сервер.
package examprep

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/magabrotheeeer/examprep/docs"
	"github.com/magabrotheeeer/examprep/internal/catalog"
	"github.com/magabrotheeeer/examprep/internal/http/handlers/analysis"
	"github.com/magabrotheeeer/examprep/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/examprep/internal/http/handlers/auth/logout"
	"github.com/magabrotheeeer/examprep/internal/http/handlers/auth/me"
	"github.com/magabrotheeeer/examprep/internal/http/handlers/auth/register"
	"github.com/magabrotheeeer/examprep/internal/http/handlers/checkout/create"
	"github.com/magabrotheeeer/examprep/internal/http/handlers/dashboard/progress"
	"github.com/magabrotheeeer/examprep/internal/http/handlers/health"
	"github.com/magabrotheeeer/examprep/internal/http/handlers/problems/detail"
	problemlist "github.com/magabrotheeeer/examprep/internal/http/handlers/problems/list"
	"github.com/magabrotheeeer/examprep/internal/http/handlers/problems/solution"
	"github.com/magabrotheeeer/examprep/internal/http/handlers/problems/submit"
	"github.com/magabrotheeeer/examprep/internal/http/handlers/problems/topics"
	tierlist "github.com/magabrotheeeer/examprep/internal/http/handlers/tiers/list"
	"github.com/magabrotheeeer/examprep/internal/http/handlers/webhook/stripe"
	"github.com/magabrotheeeer/examprep/internal/http/middlewarectx"
	analysissvc "github.com/magabrotheeeer/examprep/internal/services/analysis"
	authsvc "github.com/magabrotheeeer/examprep/internal/services/auth"
	checkoutsvc "github.com/magabrotheeeer/examprep/internal/services/checkout"
	progresssvc "github.com/magabrotheeeer/examprep/internal/services/progress"
	reconcilesvc "github.com/magabrotheeeer/examprep/internal/services/reconcile"
)

// Services - зависимости обработчиков.
type Services struct {
	Auth      *authsvc.Service
	Catalog   *catalog.Store
	Progress  *progresssvc.Service
	Analyzer  analysissvc.Analyzer
	Checkout  *checkoutsvc.Service
	Reconcile *reconcilesvc.Service
	Limiter   *middlewarectx.IPRateLimiter
	Health    map[string]health.Pinger
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, s Services, allowedOrigins []string) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		cors.Handler(cors.Options{
			AllowedOrigins: allowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
			MaxAge:         300,
		}),
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Get("/tiers", tierlist.New(logger).ServeHTTP)
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.RateLimitMiddleware(s.Limiter, logger))
			r.Post("/auth/register", register.New(logger, s.Auth).ServeHTTP)
			r.Post("/auth/login", login.New(logger, s.Auth).ServeHTTP)
		})

		// Webhook (без аутентификации, проверяется подпись)
		r.Post("/webhooks/stripe", stripe.New(logger, s.Reconcile).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(s.Auth, logger))
			r.Post("/auth/logout", logout.New(logger, s.Auth).ServeHTTP)
			r.Get("/auth/me", me.New(logger, s.Auth).ServeHTTP)
			r.Get("/dashboard/progress", progress.New(logger, s.Progress).ServeHTTP)
			r.With(middlewarectx.RateLimitMiddleware(s.Limiter, logger)).
				Post("/checkout/create-session", create.New(logger, s.Checkout).ServeHTTP)

			// Нужна действующая подписка
			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.ActiveEntitlementMiddleware(s.Auth, logger))
				r.Get("/problems", problemlist.New(logger, s.Catalog).ServeHTTP)
				r.Get("/problems/topics", topics.New(logger, s.Catalog).ServeHTTP)
				r.Get("/problems/{id}", detail.New(logger, s.Catalog).ServeHTTP)
				r.Get("/problems/{id}/solution", solution.New(logger, s.Catalog).ServeHTTP)
				r.Post("/problems/{id}/submit", submit.New(logger, s.Catalog, s.Progress).ServeHTTP)
				r.Get("/analysis", analysis.New(logger, s.Catalog, s.Progress, s.Analyzer).ServeHTTP)
			})
		})
	})

	r.Get("/health", health.New(logger, s.Health).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
