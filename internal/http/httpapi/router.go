package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"fittingroom/internal/http/handlers"
	"fittingroom/internal/metrics"
	"fittingroom/internal/middleware"
)

// RouterOptions carries the cross-cutting pieces the router needs besides the
// handlers themselves.
type RouterOptions struct {
	Metrics       *metrics.Collector
	CountryLookup middleware.CountryLookup
}

func NewRouter(ctx context.Context, app *handlers.App, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		middleware.ClientContext(middleware.DefaultLocale, opts.CountryLookup),
		middleware.Logger(*app.Logger, opts.Metrics),
		chimw.Recoverer,
	)
	if app.Config != nil {
		r.Use(middleware.CORS(app.Config.CORSAllowedOrigins))
	}

	r.Get("/v1/healthz", app.Health)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		perMinute := 0
		if app.Config != nil {
			perMinute = app.Config.RateLimitPerMin
		}
		r.Use(middleware.RateLimit(ctx, perMinute, time.Minute))
		r.Post("/generate", app.Generate)
	})

	return r
}
