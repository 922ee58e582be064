package jwt

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"

	"github.com/dropDatabas3/jwtkeys/internal/domain/repository"
	"github.com/dropDatabas3/jwtkeys/internal/keys"
)

// BuildJWKS arma el JWKS público de un app. Las claves simétricas nunca se
// publican; las filas asimétricas que no parsean se omiten.
func BuildJWKS(ks []repository.SigningKey) repository.JWKS {
	out := repository.JWKS{Keys: make([]repository.JWK, 0, len(ks))}
	for _, k := range ks {
		a, ok := k.(*repository.AsymmetricSigningKey)
		if !ok {
			continue
		}
		m, err := keys.ParseAsymmetric(a.KeyString)
		if err != nil {
			continue
		}
		if jwk, ok := publicJWK(a.KeyID, a.Algorithm, m.Public); ok {
			out.Keys = append(out.Keys, jwk)
		}
	}
	return out
}

// JWKSJSON serializa BuildJWKS.
func JWKSJSON(ks []repository.SigningKey) ([]byte, error) {
	return json.Marshal(BuildJWKS(ks))
}

func publicJWK(kid, alg string, pub any) (repository.JWK, bool) {
	jwk := repository.JWK{KID: kid, Alg: alg, Use: "sig"}
	switch p := pub.(type) {
	case *rsa.PublicKey:
		jwk.Kty = "RSA"
		jwk.N = EncodeBase64URL(p.N.Bytes())
		jwk.E = EncodeBase64URL(big.NewInt(int64(p.E)).Bytes())
	case *ecdsa.PublicKey:
		size := (p.Curve.Params().BitSize + 7) / 8
		jwk.Kty = "EC"
		jwk.Crv = p.Curve.Params().Name
		jwk.X = EncodeBase64URL(p.X.FillBytes(make([]byte, size)))
		jwk.Y = EncodeBase64URL(p.Y.FillBytes(make([]byte, size)))
	case ed25519.PublicKey:
		jwk.Kty = "OKP"
		jwk.Crv = "Ed25519"
		jwk.X = EncodeBase64URL(p)
	default:
		return repository.JWK{}, false
	}
	return jwk, true
}

// EncodeBase64URL codifica sin padding, como pide RFC 7515.
func EncodeBase64URL(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}
