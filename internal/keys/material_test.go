package keys

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/jwtkeys/internal/domain/repository"
)

func TestGenerateKeyString_Symmetric(t *testing.T) {
	for i := 0; i < 50; i++ {
		ks, err := GenerateKeyString(AlgHS256)
		require.NoError(t, err)
		assert.Len(t, ks, 43)
		assert.False(t, repository.IsAsymmetricKeyString(ks), "generated secret must never look asymmetric: %q", ks)

		k, ok := repository.NewSigningKey(repository.SigningKeyInfo{KeyString: ks}).(*repository.SymmetricSigningKey)
		require.True(t, ok)
		assert.Equal(t, []byte(ks), SecretBytes(k))
	}
}

func TestGenerateKeyString_AsymmetricRoundTrip(t *testing.T) {
	cases := []struct {
		alg   string
		check func(t *testing.T, m *AsymmetricMaterial)
	}{
		{AlgRS256, func(t *testing.T, m *AsymmetricMaterial) {
			_, ok := m.Public.(*rsa.PublicKey)
			assert.True(t, ok)
			_, ok = m.Private.(*rsa.PrivateKey)
			assert.True(t, ok)
		}},
		{AlgES256, func(t *testing.T, m *AsymmetricMaterial) {
			pub, ok := m.Public.(*ecdsa.PublicKey)
			require.True(t, ok)
			assert.Equal(t, "P-256", pub.Curve.Params().Name)
		}},
		{AlgEdDSA, func(t *testing.T, m *AsymmetricMaterial) {
			_, ok := m.Public.(ed25519.PublicKey)
			assert.True(t, ok)
			_, ok = m.Private.(ed25519.PrivateKey)
			assert.True(t, ok)
		}},
	}
	for _, tc := range cases {
		t.Run(tc.alg, func(t *testing.T) {
			ks, err := GenerateKeyString(tc.alg)
			require.NoError(t, err)
			assert.Equal(t, 1, strings.Count(ks, repository.AsymmetricFieldSeparator))
			assert.True(t, repository.IsAsymmetricKeyString(ks))

			m, err := ParseAsymmetric(ks)
			require.NoError(t, err)
			tc.check(t, m)
		})
	}
}

func TestParseAsymmetric_LegacySeparator(t *testing.T) {
	ks, err := GenerateKeyString(AlgEdDSA)
	require.NoError(t, err)
	legacy := strings.Replace(ks, repository.AsymmetricFieldSeparator, repository.LegacyAsymmetricFieldSeparator, 1)

	m, err := ParseAsymmetric(legacy)
	require.NoError(t, err)
	_, ok := m.Public.(ed25519.PublicKey)
	assert.True(t, ok)
}

func TestParseAsymmetric_Malformed(t *testing.T) {
	for _, ks := range []string{"", "onlyone", "|", "a|", "|b", "a|b|c", "!!!|@@@", "aGVsbG8=|d29ybGQ="} {
		_, err := ParseAsymmetric(ks)
		assert.ErrorIs(t, err, ErrMalformedKeyString, "key string %q", ks)
	}
}

func TestGenerateKeyString_Unsupported(t *testing.T) {
	_, err := GenerateKeyString("HS512")
	assert.ErrorIs(t, err, ErrUnsupportedAlgorithm)
	assert.False(t, Supported("none"))
	assert.True(t, IsSymmetric(AlgHS256))
	assert.False(t, IsSymmetric(AlgES256))
}
