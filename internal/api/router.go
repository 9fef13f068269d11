package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/riandyrn/otelchi"
	otelchimetric "github.com/riandyrn/otelchi/metric"
	"go.opentelemetry.io/otel"

	"github.com/socialchef/scribe/internal/middleware"
	"github.com/socialchef/scribe/internal/sentry"
)

// Router serves the keep-alive routes and, when ADMIN_JWT_SECRET is set, the
// allow-list admin API.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(otelchi.Middleware(s.cfg.ServiceName,
		otelchi.WithChiRoutes(r),
		otelchi.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/health" && r.URL.Path != "/"
		}),
	))

	metricCfg := otelchimetric.NewBaseConfig(s.cfg.ServiceName, otelchimetric.WithMeterProvider(otel.GetMeterProvider()))
	r.Use(otelchimetric.NewRequestDurationMillis(metricCfg))
	r.Use(otelchimetric.NewRequestInFlight(metricCfg))

	r.Use(sentry.HTTPMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	r.Get("/", s.HandleAlive)
	r.Get("/health", s.HandleHealth)

	if s.cfg.AdminJWTSecret != "" {
		r.Group(func(r chi.Router) {
			r.Use(middleware.AdminAuthMiddleware(s.cfg))
			r.Get("/api/allowed-users", s.HandleListAllowedUsers)
			r.Post("/api/allowed-users", s.HandleAddAllowedUser)
		})
	}

	return r
}
