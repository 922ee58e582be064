package cache

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRedis responde los comandos en memoria desde un hook; nunca abre conexión.
type fakeRedis struct {
	mu   sync.Mutex
	data map[string]string
	ttls map[string]string
	keys []string
}

func (f *fakeRedis) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return nil, fmt.Errorf("fake redis: unexpected dial to %s", addr)
	}
}

func (f *fakeRedis) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		return fmt.Errorf("fake redis: pipelines not supported")
	}
}

func (f *fakeRedis) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		f.mu.Lock()
		defer f.mu.Unlock()

		args := cmd.Args()
		key := func() string {
			k := fmt.Sprint(args[1])
			f.keys = append(f.keys, k)
			return k
		}
		switch c := cmd.(type) {
		case *redis.StringCmd:
			switch cmd.Name() {
			case "get":
				v, ok := f.data[key()]
				if !ok {
					c.SetErr(redis.Nil)
					return redis.Nil
				}
				c.SetVal(v)
			case "info":
				c.SetVal("# Stats\r\nkeyspace_hits:7\r\nkeyspace_misses:3\r\n")
			}
		case *redis.StatusCmd:
			switch cmd.Name() {
			case "set":
				k := key()
				f.data[k] = string(args[2].([]byte))
				if len(args) > 4 {
					f.ttls[k] = fmt.Sprint(args[3], args[4])
				}
				c.SetVal("OK")
			case "ping":
				c.SetVal("PONG")
			}
		case *redis.IntCmd:
			switch cmd.Name() {
			case "del":
				delete(f.data, key())
				c.SetVal(1)
			case "dbsize":
				c.SetVal(int64(len(f.data)))
			}
		}
		return nil
	}
}

func newFakeRedis(t *testing.T, prefix string) (*redisClient, *fakeRedis) {
	t.Helper()
	fake := &fakeRedis{data: map[string]string{}, ttls: map[string]string{}}
	rdb := redis.NewClient(&redis.Options{Addr: "fake:6379"})
	rdb.AddHook(fake)
	c := newRedisFromClient(rdb, prefix)
	t.Cleanup(func() { _ = c.Close() })
	return c, fake
}

func TestRedis_MissIsNotFound(t *testing.T) {
	c, _ := newFakeRedis(t, "jwks")
	_, err := c.Get(context.Background(), "acme")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedis_KeysArePrefixed(t *testing.T) {
	ctx := context.Background()
	c, fake := newFakeRedis(t, "jwks")

	require.NoError(t, c.Set(ctx, "acme", []byte(`{"keys":[]}`), time.Minute))
	assert.Contains(t, fake.data, "jwks:acme")
	assert.NotContains(t, fake.data, "acme")
	assert.True(t, strings.HasPrefix(fake.ttls["jwks:acme"], "ex"))

	got, err := c.Get(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, `{"keys":[]}`, string(got))

	require.NoError(t, c.Delete(ctx, "acme"))
	_, err = c.Get(ctx, "acme")
	assert.True(t, IsNotFound(err))

	assert.Equal(t, []string{"jwks:acme", "jwks:acme", "jwks:acme", "jwks:acme"}, fake.keys)
}

func TestRedis_EmptyPrefixAndNegativeTTL(t *testing.T) {
	ctx := context.Background()
	c, fake := newFakeRedis(t, "")

	require.NoError(t, c.Set(ctx, "acme", []byte("v"), -time.Second))
	assert.Equal(t, "v", fake.data["acme"])
	assert.NotContains(t, fake.ttls, "acme", "negative ttl stores without expiry")
}

func TestRedis_PingAndStats(t *testing.T) {
	ctx := context.Background()
	c, _ := newFakeRedis(t, "jwks")
	require.NoError(t, c.Ping(ctx))
	require.NoError(t, c.Set(ctx, "a", []byte("1"), 0))

	st, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, "redis", st.Driver)
	assert.Equal(t, int64(1), st.Keys)
	assert.Equal(t, int64(7), st.Hits)
	assert.Equal(t, int64(3), st.Misses)
}
