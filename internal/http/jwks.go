package http

import (
	"context"
	"errors"
	"net/http"
	"regexp"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/jwtkeys/internal/domain/repository"
	"github.com/dropDatabas3/jwtkeys/internal/observability/logger"
)

// JWKSSource devuelve el JWKS JSON de un app (*jwt.JWKSCache).
type JWKSSource interface {
	Get(ctx context.Context, appID string) ([]byte, error)
}

var appIDRE = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,64}$`)

// JWKSController maneja GET/HEAD /apps/{appID}/.well-known/jwks.json
type JWKSController struct {
	source JWKSSource
}

func NewJWKSController(source JWKSSource) *JWKSController {
	return &JWKSController{source: source}
}

func (c *JWKSController) GetByApp(w http.ResponseWriter, r *http.Request) {
	appID := chi.URLParam(r, "appID")
	if !appIDRE.MatchString(appID) {
		WriteError(w, ErrBadRequest.WithDetail("invalid app id"))
		return
	}
	ctx := logger.WithApp(r.Context(), appID)
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("JWKSController.GetByApp"))

	data, err := c.source.Get(ctx, appID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			WriteError(w, ErrNotFound)
			return
		}
		log.Error("failed to load jwks", logger.Err(err))
		WriteError(w, ErrInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=60")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	_, _ = w.Write(data)
}
