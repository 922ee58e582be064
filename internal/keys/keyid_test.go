package keys

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStaticKeyID_Deterministic(t *testing.T) {
	a := StaticKeyID("acme", AlgRS256)
	assert.Equal(t, a, StaticKeyID("acme", AlgRS256))
	assert.NotEqual(t, a, StaticKeyID("globex", AlgRS256))
	assert.NotEqual(t, a, StaticKeyID("acme", AlgES256))
	assert.True(t, strings.HasPrefix(a, StaticKeyPrefix))
	assert.LessOrEqual(t, len(a), 255)
}

func TestDynamicKeyID_StableWithinWindow(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	id := DynamicKeyID("acme", AlgHS256, base, time.Hour)

	assert.Equal(t, id, DynamicKeyID("acme", AlgHS256, base.Add(59*time.Minute), time.Hour))
	assert.NotEqual(t, id, DynamicKeyID("acme", AlgHS256, base.Add(time.Hour), time.Hour))
	assert.True(t, strings.HasPrefix(id, DynamicKeyPrefix))
}

func TestWindowBounds(t *testing.T) {
	now := time.UnixMilli(3_600_000*5 + 1234)
	assert.Equal(t, int64(5), WindowIndex(now, time.Hour))
	assert.Equal(t, time.UnixMilli(3_600_000*6), WindowEnd(now, time.Hour))

	assert.Equal(t, int64(0), WindowIndex(now, 0))
	assert.Equal(t, now, WindowEnd(now, 0))
}

func TestRandomKeyID(t *testing.T) {
	a, b := RandomKeyID(StaticKeyPrefix), RandomKeyID(StaticKeyPrefix)
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, StaticKeyPrefix))
}
