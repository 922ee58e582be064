package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Deps son las dependencias del router.
type Deps struct {
	JWKS    JWKSSource
	Health  map[string]Pinger
	Metrics http.Handler // nil = sin /metrics
}

// NewRouter arma las rutas públicas.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(WithRequestID)
	r.Use(WithLogging)
	r.Use(WithMetrics)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) { WriteError(w, ErrNotFound) })
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, ErrMethodNotAllowed)
	})

	jwks := NewJWKSController(d.JWKS)
	r.Get("/apps/{appID}/.well-known/jwks.json", jwks.GetByApp)
	r.Head("/apps/{appID}/.well-known/jwks.json", jwks.GetByApp)

	r.Get("/healthz", HealthHandler(d.Health))
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}
	return r
}
