package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_PutGet(t *testing.T) {
	s := New()
	defer s.Close()

	s.Put("k", "v", Unset)
	v, ok := s.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestStore_NeverExpiringAlwaysLive(t *testing.T) {
	s := New()
	defer s.Close()

	s.Put("k", "v", Unset)
	time.Sleep(5 * time.Millisecond)
	_, ok := s.Get("k")
	assert.True(t, ok)
}

func TestStore_PutWithZeroExpirySecondsIsNoOp(t *testing.T) {
	s := New()
	defer s.Close()

	s.Put("k", "v", 0)
	_, ok := s.Get("k")
	assert.False(t, ok)
}

func TestStore_ExpiresAfterTTL(t *testing.T) {
	s := New()
	defer s.Close()

	s.items["k"] = item{value: "v", expiresAt: time.Now().Add(-time.Second)}
	_, ok := s.Get("k")
	assert.False(t, ok)
}

func TestStore_GetOrPutSideEffect(t *testing.T) {
	s := New()
	defer s.Close()

	v := s.GetOrPut("missing", "default", Unset)
	assert.Equal(t, "default", v)

	got, ok := s.Get("missing")
	require.True(t, ok)
	assert.Equal(t, "default", got)
}

func TestStore_ExpireDeletesOnNonPositive(t *testing.T) {
	s := New()
	defer s.Close()

	s.Put("k", "v", 100)
	s.Expire("k", 0)
	_, ok := s.Get("k")
	assert.False(t, ok)
}

func TestStore_FlushAll(t *testing.T) {
	s := New()
	defer s.Close()

	s.Put("a", 1, Unset)
	s.Put("b", 2, Unset)
	s.FlushAll()
	_, ok := s.Get("a")
	assert.False(t, ok)
}

func TestStore_SweepExpiresSampledKeys(t *testing.T) {
	s := New()
	defer s.Close()

	s.items["old"] = item{value: "v", expiresAt: time.Now().Add(-time.Second)}
	ratio := s.sweep()
	assert.Equal(t, 1.0, ratio)
	_, ok := s.Get("old")
	assert.False(t, ok)
}
