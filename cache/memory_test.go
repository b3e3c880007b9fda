package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZaguanLabs/gotlex"
)

func TestMemoryStore_Contract(t *testing.T) {
	testStoreContract(t, func(t *testing.T, clock *fakeClock, namespaces ...gotlex.Namespace) gotlex.Store {
		s, err := NewMemoryStore(namespaces, WithClock(clock.Now))
		require.NoError(t, err)
		return s
	})
}

func TestNewMemoryStore_InvalidTTL(t *testing.T) {
	_, err := NewMemoryStore([]gotlex.Namespace{{Name: "dict", TTL: -time.Second}})
	var cfgErr *gotlex.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "dict", cfgErr.Namespace)
}

func TestMemoryStore_Len(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	s, err := NewMemoryStore([]gotlex.Namespace{{Name: "dict", TTL: time.Hour}}, WithClock(clock.Now))
	require.NoError(t, err)

	require.NoError(t, s.Put(ctx, "dict", "a", json.RawMessage(`1`)))
	require.NoError(t, s.Put(ctx, "dict", "A", json.RawMessage(`2`)))
	require.NoError(t, s.Put(ctx, "dict", "b", json.RawMessage(`3`)))
	assert.Equal(t, 2, s.Len())

	// Expired entries are still held until cleanup.
	clock.Advance(2 * time.Hour)
	assert.Equal(t, 2, s.Len())

	_, err = s.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s, err := NewMemoryStore([]gotlex.Namespace{{Name: "dict", TTL: time.Hour}})
	require.NoError(t, err)

	value := json.RawMessage(`"maison"`)
	require.NoError(t, s.Put(ctx, "dict", "k", value))
	value[1] = 'X'

	got, ok, err := s.Get(ctx, "dict", "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `"maison"`, string(got))

	got[1] = 'Y'
	again, _, _ := s.Get(ctx, "dict", "k")
	assert.Equal(t, `"maison"`, string(again))
}

func TestMemoryStore_StatsSizeUnknown(t *testing.T) {
	s, err := NewMemoryStore([]gotlex.Namespace{{Name: "dict", TTL: time.Hour}})
	require.NoError(t, err)

	report, err := s.Stats(context.Background())
	require.NoError(t, err)
	assert.False(t, report.SizeKnown)
	require.Len(t, report.Namespaces, 1)
	assert.True(t, report.Namespaces[0].Configured)
}
