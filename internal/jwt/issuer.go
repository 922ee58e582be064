// Package jwt firma y verifica tokens con las claves de firma por app.
package jwt

import (
	"context"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"

	"github.com/dropDatabas3/jwtkeys/internal/domain/repository"
	"github.com/dropDatabas3/jwtkeys/internal/keys"
)

var (
	ErrInvalidIssuer     = errors.New("invalid_issuer")
	ErrKidMissing        = errors.New("kid_missing")
	ErrAlgorithmMismatch = errors.New("alg_mismatch")
	ErrInvalidToken      = errors.New("invalid_jwt")
)

// KeySource resuelve claves por app (*keys.Manager).
type KeySource interface {
	SigningKey(ctx context.Context, appID string) (repository.SigningKey, error)
	VerificationKeys(ctx context.Context, appID string) ([]repository.SigningKey, error)
	KeyByID(ctx context.Context, appID, kid string) (repository.SigningKey, error)
}

// Issuer firma tokens con la clave vigente de cada app.
type Issuer struct {
	Iss       string        // "iss"; vacío = no se inyecta ni se valida
	Keys      KeySource
	AccessTTL time.Duration // TTL por defecto (ej: 15m)

	now func() time.Time
}

func NewIssuer(iss string, ks KeySource) *Issuer {
	return &Issuer{
		Iss:       iss,
		Keys:      ks,
		AccessTTL: 15 * time.Minute,
		now:       time.Now,
	}
}

// Sign firma claims arbitrarios con la clave vigente del app, setea header kid/typ
// y devuelve el JWT firmado junto con el kid usado.
func (i *Issuer) Sign(ctx context.Context, appID string, claims jwtv5.MapClaims) (string, string, error) {
	key, err := i.Keys.SigningKey(ctx, appID)
	if err != nil {
		return "", "", err
	}
	info := key.Info()
	method, signKey, err := signingMaterial(key)
	if err != nil {
		return "", "", err
	}

	tk := jwtv5.NewWithClaims(method, claims)
	tk.Header["kid"] = info.KeyID
	tk.Header["typ"] = "JWT"
	signed, err := tk.SignedString(signKey)
	if err != nil {
		return "", "", fmt.Errorf("jwt: sign with %s: %w", info.KeyID, err)
	}
	return signed, info.KeyID, nil
}

// IssueAccess emite un access token con claims estándar más extra (flat).
func (i *Issuer) IssueAccess(ctx context.Context, appID, sub, aud string, extra map[string]any) (string, time.Time, error) {
	now := i.now().UTC()
	exp := now.Add(i.AccessTTL)

	claims := jwtv5.MapClaims{
		"sub": sub,
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"exp": exp.Unix(),
	}
	if i.Iss != "" {
		claims["iss"] = i.Iss
	}
	if aud != "" {
		claims["aud"] = aud
	}
	for k, v := range extra {
		claims[k] = v
	}
	signed, _, err := i.Sign(ctx, appID, claims)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Keyfunc resuelve la clave por 'kid' dentro de las claves del app. Sin kid, o con
// un alg distinto al de la clave guardada, el token falla.
func (i *Issuer) Keyfunc(ctx context.Context, appID string) jwtv5.Keyfunc {
	return func(t *jwtv5.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, ErrKidMissing
		}
		key, err := i.Keys.KeyByID(ctx, appID, kid)
		if err != nil {
			return nil, err
		}
		if t.Method.Alg() != key.Info().Algorithm {
			return nil, ErrAlgorithmMismatch
		}
		return verificationMaterial(key)
	}
}

// signingMaterial devuelve el método y la clave privada (o secreto) de una fila.
func signingMaterial(key repository.SigningKey) (jwtv5.SigningMethod, any, error) {
	info := key.Info()
	method := jwtv5.GetSigningMethod(info.Algorithm)
	if method == nil {
		return nil, nil, fmt.Errorf("%w: %q", keys.ErrUnsupportedAlgorithm, info.Algorithm)
	}

	switch k := key.(type) {
	case *repository.SymmetricSigningKey:
		if !keys.IsSymmetric(info.Algorithm) {
			return nil, nil, fmt.Errorf("jwt: key %s: %w", info.KeyID, ErrAlgorithmMismatch)
		}
		return method, keys.SecretBytes(k), nil
	case *repository.AsymmetricSigningKey:
		m, err := keys.ParseAsymmetric(k.KeyString)
		if err != nil {
			return nil, nil, fmt.Errorf("jwt: key %s: %w", info.KeyID, err)
		}
		if !matches(info.Algorithm, m.Public) {
			return nil, nil, fmt.Errorf("jwt: key %s: %w", info.KeyID, ErrAlgorithmMismatch)
		}
		return method, m.Private, nil
	}
	return nil, nil, fmt.Errorf("jwt: unknown key type %T", key)
}

func verificationMaterial(key repository.SigningKey) (any, error) {
	info := key.Info()
	switch k := key.(type) {
	case *repository.SymmetricSigningKey:
		if !keys.IsSymmetric(info.Algorithm) {
			return nil, ErrAlgorithmMismatch
		}
		return keys.SecretBytes(k), nil
	case *repository.AsymmetricSigningKey:
		m, err := keys.ParseAsymmetric(k.KeyString)
		if err != nil {
			return nil, err
		}
		if !matches(info.Algorithm, m.Public) {
			return nil, ErrAlgorithmMismatch
		}
		return m.Public, nil
	}
	return nil, fmt.Errorf("jwt: unknown key type %T", key)
}

func matches(alg string, pub any) bool {
	switch pub.(type) {
	case *rsa.PublicKey:
		return alg == keys.AlgRS256
	case *ecdsa.PublicKey:
		return alg == keys.AlgES256
	case ed25519.PublicKey:
		return alg == keys.AlgEdDSA
	}
	return false
}
