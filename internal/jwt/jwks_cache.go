package jwt

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/dropDatabas3/jwtkeys/internal/cache"
	"github.com/dropDatabas3/jwtkeys/internal/domain/repository"
	"github.com/dropDatabas3/jwtkeys/internal/observability/logger"
)

// JWKSCache cachea el JWKS JSON por app durante un TTL corto. Cargas concurrentes
// del mismo app se colapsan en una sola lectura del store.
type JWKSCache struct {
	c    cache.Client
	ttl  time.Duration
	load func(ctx context.Context, appID string) ([]byte, error)
	sf   singleflight.Group
}

const loadTimeout = 10 * time.Second

func NewJWKSCache(c cache.Client, ttl time.Duration, loader func(context.Context, string) ([]byte, error)) *JWKSCache {
	return &JWKSCache{c: c, ttl: ttl, load: loader}
}

// NewJWKSCacheFromKeys arma el loader sobre las claves de verificación.
func NewJWKSCacheFromKeys(c cache.Client, ttl time.Duration, ks KeySource) *JWKSCache {
	return NewJWKSCache(c, ttl, func(ctx context.Context, appID string) ([]byte, error) {
		keys, err := ks.VerificationKeys(ctx, appID)
		if err != nil {
			return nil, err
		}
		return JWKSJSON(keys)
	})
}

func cacheKey(appID string) string {
	return "jwks:" + repository.NormalizeAppID(appID)
}

func (j *JWKSCache) Get(ctx context.Context, appID string) ([]byte, error) {
	key := cacheKey(appID)
	if b, err := j.c.Get(ctx, key); err == nil {
		return b, nil
	} else if !cache.IsNotFound(err) {
		// cache caído: servimos desde el store
		logger.From(ctx).Warn("jwks cache read failed", logger.Component("jwks_cache"), logger.Err(err))
	}

	ch := j.sf.DoChan(key, func() (any, error) {
		// la carga es compartida: no depende de la cancelación del primer caller
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()
		data, err := j.load(lctx, repository.NormalizeAppID(appID))
		if err != nil {
			return nil, err
		}
		if err := j.c.Set(lctx, key, data, j.ttl); err != nil {
			logger.From(ctx).Warn("jwks cache write failed", logger.Component("jwks_cache"), logger.Err(err))
		}
		return data, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.([]byte), nil
	}
}

// Invalidate descarta el JWKS cacheado de un app.
func (j *JWKSCache) Invalidate(ctx context.Context, appID string) error {
	return j.c.Delete(ctx, cacheKey(appID))
}
