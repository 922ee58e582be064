// Package keys genera material de claves de firma y orquesta la rotación por
// app sobre el store transaccional.
package keys

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/dropDatabas3/jwtkeys/internal/domain/repository"
)

// Algoritmos soportados (columna algorithm, VARCHAR(10)).
const (
	AlgHS256 = "HS256"
	AlgRS256 = "RS256"
	AlgES256 = "ES256"
	AlgEdDSA = "EdDSA"
)

var (
	ErrUnsupportedAlgorithm = errors.New("keys: unsupported algorithm")
	ErrMalformedKeyString   = errors.New("keys: malformed asymmetric key string")
)

// IsSymmetric indica si el algoritmo usa un secreto compartido.
func IsSymmetric(alg string) bool { return alg == AlgHS256 }

// Supported indica si el algoritmo es conocido.
func Supported(alg string) bool {
	switch alg {
	case AlgHS256, AlgRS256, AlgES256, AlgEdDSA:
		return true
	}
	return false
}

// GenerateKeyString crea material nuevo para alg y lo codifica como key_string.
//
//   - HS256: 32 bytes aleatorios en base64url (sin '|' ni ';').
//   - RS256/ES256/EdDSA: base64(PKIX público) | base64(PKCS8 privado).
func GenerateKeyString(alg string) (string, error) {
	switch alg {
	case AlgHS256:
		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			return "", err
		}
		return base64.RawURLEncoding.EncodeToString(b), nil
	case AlgRS256:
		priv, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			return "", err
		}
		return encodeAsymmetric(priv.Public(), priv)
	case AlgES256:
		priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		if err != nil {
			return "", err
		}
		return encodeAsymmetric(priv.Public(), priv)
	case AlgEdDSA:
		pub, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return "", err
		}
		return encodeAsymmetric(pub, priv)
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, alg)
}

func encodeAsymmetric(pub crypto.PublicKey, priv any) (string, error) {
	pubDER, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", fmt.Errorf("keys: marshal public: %w", err)
	}
	privDER, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return "", fmt.Errorf("keys: marshal private: %w", err)
	}
	return base64.StdEncoding.EncodeToString(pubDER) +
		repository.AsymmetricFieldSeparator +
		base64.StdEncoding.EncodeToString(privDER), nil
}

// AsymmetricMaterial es el par decodificado de un key_string asimétrico.
type AsymmetricMaterial struct {
	Public  crypto.PublicKey
	Private crypto.Signer
}

// ParseAsymmetric decodifica "<pub>|<priv>" (o el separador legacy ';').
func ParseAsymmetric(keyString string) (*AsymmetricMaterial, error) {
	sep := repository.AsymmetricFieldSeparator
	if !strings.Contains(keyString, sep) {
		sep = repository.LegacyAsymmetricFieldSeparator
	}
	parts := strings.Split(keyString, sep)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, ErrMalformedKeyString
	}

	pubDER, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, fmt.Errorf("%w: public: %v", ErrMalformedKeyString, err)
	}
	pub, err := x509.ParsePKIXPublicKey(pubDER)
	if err != nil {
		return nil, fmt.Errorf("%w: public: %v", ErrMalformedKeyString, err)
	}

	privDER, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: private: %v", ErrMalformedKeyString, err)
	}
	privAny, err := x509.ParsePKCS8PrivateKey(privDER)
	if err != nil {
		return nil, fmt.Errorf("%w: private: %v", ErrMalformedKeyString, err)
	}
	signer, ok := privAny.(crypto.Signer)
	if !ok {
		return nil, fmt.Errorf("%w: private key is not a signer", ErrMalformedKeyString)
	}
	return &AsymmetricMaterial{Public: pub, Private: signer}, nil
}

// SecretBytes devuelve el secreto HS256 tal como lo usa el firmador.
func SecretBytes(k *repository.SymmetricSigningKey) []byte {
	return []byte(k.Secret())
}
