package jwt

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/jwtkeys/internal/cache"
	"github.com/dropDatabas3/jwtkeys/internal/domain/repository"
	"github.com/dropDatabas3/jwtkeys/internal/keys"
)

func TestBuildJWKS_PublishesOnlyAsymmetric(t *testing.T) {
	ks := newStaticKeys()
	ks.add(t, "acme", "hs", keys.AlgHS256)
	ks.add(t, "acme", "rs", keys.AlgRS256)
	ks.add(t, "acme", "es", keys.AlgES256)
	ks.add(t, "acme", "ed", keys.AlgEdDSA)
	all, _ := ks.VerificationKeys(context.Background(), "acme")
	all = append(all, repository.NewSigningKey(repository.SigningKeyInfo{KeyID: "broken", KeyString: "a|b", Algorithm: keys.AlgRS256}))

	jwks := BuildJWKS(all)
	require.Len(t, jwks.Keys, 3)

	byKid := map[string]repository.JWK{}
	for _, k := range jwks.Keys {
		byKid[k.KID] = k
		assert.Equal(t, "sig", k.Use)
	}
	assert.NotContains(t, byKid, "hs")
	assert.NotContains(t, byKid, "broken")

	assert.Equal(t, "RSA", byKid["rs"].Kty)
	assert.Equal(t, "AQAB", byKid["rs"].E)
	assert.NotEmpty(t, byKid["rs"].N)

	assert.Equal(t, "EC", byKid["es"].Kty)
	assert.Equal(t, "P-256", byKid["es"].Crv)
	assert.Len(t, byKid["es"].X, 43)
	assert.Len(t, byKid["es"].Y, 43)

	assert.Equal(t, "OKP", byKid["ed"].Kty)
	assert.Equal(t, "Ed25519", byKid["ed"].Crv)
	assert.Equal(t, keys.AlgEdDSA, byKid["ed"].Alg)
}

func TestJWKSJSON_EmptyIsEmptyArray(t *testing.T) {
	b, err := JWKSJSON(nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"keys":[]}`, string(b))
}

func TestJWKSCache_CachesAndCollapsesLoads(t *testing.T) {
	var loads atomic.Int32
	release := make(chan struct{})
	loader := func(ctx context.Context, appID string) ([]byte, error) {
		loads.Add(1)
		<-release
		return json.Marshal(map[string]string{"app": appID})
	}
	jc := NewJWKSCache(cache.NewMemory(""), time.Minute, loader)
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([][]byte, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b, err := jc.Get(ctx, "acme")
			assert.NoError(t, err)
			results[i] = b
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), loads.Load())
	for _, b := range results {
		assert.JSONEq(t, `{"app":"acme"}`, string(b))
	}

	_, err := jc.Get(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, int32(1), loads.Load(), "second read is served from cache")

	require.NoError(t, jc.Invalidate(ctx, "acme"))
	_, err = jc.Get(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, int32(2), loads.Load())
}

func TestJWKSCache_CancelledCallerDoesNotFailOthers(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var (
		loadErr atomic.Value
		once    sync.Once
	)
	jc := NewJWKSCache(cache.NewMemory(""), time.Minute, func(ctx context.Context, appID string) ([]byte, error) {
		once.Do(func() { close(started) })
		<-release
		if err := ctx.Err(); err != nil {
			loadErr.Store(err)
			return nil, err
		}
		return []byte(`{"keys":[]}`), nil
	})

	ctx1, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := jc.Get(ctx1, "acme")
		first <- err
	}()
	<-started

	second := make(chan error, 1)
	go func() {
		b, err := jc.Get(context.Background(), "acme")
		if err == nil && string(b) != `{"keys":[]}` {
			err = errors.New("unexpected body " + string(b))
		}
		second <- err
	}()

	cancel()
	assert.ErrorIs(t, <-first, context.Canceled)

	close(release)
	require.NoError(t, <-second)
	assert.Nil(t, loadErr.Load())
}

func TestJWKSCache_EmptyAppIsPublic(t *testing.T) {
	var got string
	jc := NewJWKSCache(cache.NewMemory(""), time.Minute, func(ctx context.Context, appID string) ([]byte, error) {
		got = appID
		return []byte(`{"keys":[]}`), nil
	})
	_, err := jc.Get(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, repository.PublicAppID, got)
}

func TestJWKSCache_LoaderErrorNotCached(t *testing.T) {
	boom := errors.New("db down")
	fail := true
	jc := NewJWKSCache(cache.NewMemory(""), time.Minute, func(ctx context.Context, appID string) ([]byte, error) {
		if fail {
			return nil, boom
		}
		return []byte(`{"keys":[]}`), nil
	})
	ctx := context.Background()
	_, err := jc.Get(ctx, "acme")
	assert.ErrorIs(t, err, boom)

	fail = false
	b, err := jc.Get(ctx, "acme")
	require.NoError(t, err)
	assert.JSONEq(t, `{"keys":[]}`, string(b))
}

func TestNewJWKSCacheFromKeys(t *testing.T) {
	ks := newStaticKeys()
	ks.add(t, "acme", "ed", keys.AlgEdDSA)
	jc := NewJWKSCacheFromKeys(cache.NewMemory(""), time.Minute, ks)

	b, err := jc.Get(context.Background(), "acme")
	require.NoError(t, err)
	var out repository.JWKS
	require.NoError(t, json.Unmarshal(b, &out))
	require.Len(t, out.Keys, 1)
	assert.Equal(t, "ed", out.Keys[0].KID)
}
