package jwt

import (
	"context"
	"errors"
	"fmt"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"

	"github.com/dropDatabas3/jwtkeys/internal/keys"
)

var validMethods = []string{keys.AlgHS256, keys.AlgRS256, keys.AlgES256, keys.AlgEdDSA}

// Parse valida la firma contra las claves del app (por kid), chequea iss si el
// Issuer lo tiene y valida exp/nbf con una tolerancia de 30s.
// Devuelve las claims como map[string]any.
func (i *Issuer) Parse(ctx context.Context, appID, token string) (map[string]any, error) {
	opts := []jwtv5.ParserOption{
		jwtv5.WithValidMethods(validMethods),
		jwtv5.WithLeeway(30 * time.Second),
		jwtv5.WithTimeFunc(i.now),
	}
	if i.Iss != "" {
		opts = append(opts, jwtv5.WithIssuer(i.Iss))
	}

	tok, err := jwtv5.Parse(token, i.Keyfunc(ctx, appID), opts...)
	if err != nil {
		if errors.Is(err, jwtv5.ErrTokenInvalidIssuer) {
			return nil, ErrInvalidIssuer
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !tok.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := tok.Claims.(jwtv5.MapClaims)
	if !ok {
		return nil, errors.New("claims_type")
	}
	out := make(map[string]any, len(claims))
	for k, v := range claims {
		out[k] = v
	}
	return out, nil
}
