package cache

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZaguanLabs/gotlex"
)

const day = 24 * time.Hour

// fakeClock is a settable time source shared by a store and its test.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 10, 9, 30, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// storeFactory opens an empty store with the given namespaces and clock.
type storeFactory func(t *testing.T, clock *fakeClock, namespaces ...gotlex.Namespace) gotlex.Store

// testStoreContract runs the behaviour every gotlex.Store must share.
func testStoreContract(t *testing.T, open storeFactory) {
	ctx := context.Background()
	dict := gotlex.Namespace{Name: "dict", TTL: 14 * day}

	t.Run("RoundTrip", func(t *testing.T) {
		s := open(t, newFakeClock(), dict)
		values := []string{`{"def":"to run"}`, `"maison"`, `[1,2,3]`, `null`, `{"html":"<b>été</b>"}`}
		for i, v := range values {
			key := string(rune('a' + i))
			require.NoError(t, s.Put(ctx, "dict", key, json.RawMessage(v)))

			got, ok, err := s.Get(ctx, "dict", key)
			require.NoError(t, err)
			require.True(t, ok, "value %s not found", v)
			assert.Equal(t, v, string(got), "payload must come back byte for byte")
		}
	})

	t.Run("NeverWrittenIsMiss", func(t *testing.T) {
		s := open(t, newFakeClock(), dict)
		got, ok, err := s.Get(ctx, "dict", "absent")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, got)
	})

	t.Run("KeyNormalization", func(t *testing.T) {
		s := open(t, newFakeClock(), dict)
		require.NoError(t, s.Put(ctx, "dict", "Maison", json.RawMessage(`"house"`)))

		got, ok, err := s.Get(ctx, "dict", " maison ")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, `"house"`, string(got))
	})

	t.Run("PutOverwrites", func(t *testing.T) {
		clock := newFakeClock()
		s := open(t, clock, dict)
		require.NoError(t, s.Put(ctx, "dict", "courir", json.RawMessage(`"old"`)))
		clock.Advance(13 * day)
		require.NoError(t, s.Put(ctx, "dict", "courir", json.RawMessage(`"new"`)))

		// The second write restarts the TTL.
		clock.Advance(13 * day)
		got, ok, err := s.Get(ctx, "dict", "courir")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, `"new"`, string(got))
	})

	t.Run("DictionaryLifecycle", func(t *testing.T) {
		clock := newFakeClock()
		s := open(t, clock, dict)
		require.NoError(t, s.Put(ctx, "dict", "courir", json.RawMessage(`{"def":"to run"}`)))

		clock.Advance(1 * day)
		got, ok, err := s.Get(ctx, "dict", "courir")
		require.NoError(t, err)
		require.True(t, ok)
		assert.JSONEq(t, `{"def":"to run"}`, string(got))

		clock.Advance(14 * day)
		_, ok, err = s.Get(ctx, "dict", "courir")
		require.NoError(t, err)
		assert.False(t, ok, "entry older than its TTL must be a miss")

		report, err := s.Stats(ctx)
		require.NoError(t, err)
		st, ok := report.Namespace("dict")
		require.True(t, ok)
		assert.Equal(t, 1, st.Total)
		assert.Equal(t, 0, st.Fresh)
		assert.Equal(t, 1, st.Expired)
		assert.Equal(t, 14*day, st.TTL)

		removed, err := s.CleanupExpired(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, removed)

		report, err = s.Stats(ctx)
		require.NoError(t, err)
		st, ok = report.Namespace("dict")
		require.True(t, ok)
		assert.Equal(t, 0, st.Total)
	})

	t.Run("TTLBoundary", func(t *testing.T) {
		clock := newFakeClock()
		s := open(t, clock, gotlex.Namespace{Name: "t", TTL: time.Hour})
		require.NoError(t, s.Put(ctx, "t", "k", json.RawMessage(`1`)))

		clock.Advance(time.Hour - time.Second)
		_, ok, err := s.Get(ctx, "t", "k")
		require.NoError(t, err)
		assert.True(t, ok, "entry younger than its TTL must be fresh")

		clock.Advance(time.Second)
		_, ok, err = s.Get(ctx, "t", "k")
		require.NoError(t, err)
		assert.False(t, ok, "entry aged exactly its TTL must be expired")
	})

	t.Run("CleanupPerNamespaceTTL", func(t *testing.T) {
		clock := newFakeClock()
		s := open(t, clock,
			gotlex.Namespace{Name: gotlex.NamespaceTranslation, TTL: 7 * day},
			gotlex.Namespace{Name: gotlex.NamespaceConjugation, TTL: 30 * day},
		)
		require.NoError(t, s.Put(ctx, gotlex.NamespaceTranslation, "maison", json.RawMessage(`"house"`)))
		require.NoError(t, s.Put(ctx, gotlex.NamespaceConjugation, "aller", json.RawMessage(`"vais"`)))
		clock.Advance(10 * day)

		removed, err := s.CleanupExpired(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, removed)

		_, ok, err := s.Get(ctx, gotlex.NamespaceConjugation, "aller")
		require.NoError(t, err)
		assert.True(t, ok, "conjugation entry must survive cleanup")

		report, err := s.Stats(ctx)
		require.NoError(t, err)
		tr, _ := report.Namespace(gotlex.NamespaceTranslation)
		assert.Equal(t, 0, tr.Total)
		conj, _ := report.Namespace(gotlex.NamespaceConjugation)
		assert.Equal(t, 1, conj.Total)

		removed, err = s.CleanupExpired(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, removed, "second cleanup must remove nothing")
	})

	t.Run("ClearAllThenStats", func(t *testing.T) {
		s := open(t, newFakeClock(),
			gotlex.Namespace{Name: gotlex.NamespaceTranslation, TTL: 7 * day},
			gotlex.Namespace{Name: gotlex.NamespaceDictionary, TTL: 14 * day},
		)
		require.NoError(t, s.Put(ctx, gotlex.NamespaceTranslation, "a", json.RawMessage(`1`)))
		require.NoError(t, s.Put(ctx, gotlex.NamespaceTranslation, "b", json.RawMessage(`2`)))
		require.NoError(t, s.Put(ctx, gotlex.NamespaceDictionary, "c", json.RawMessage(`3`)))

		cleared, err := s.ClearAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, cleared)

		report, err := s.Stats(ctx)
		require.NoError(t, err)
		require.Len(t, report.Namespaces, 2)
		for _, st := range report.Namespaces {
			assert.Zero(t, st.Total, st.Name)
			assert.Zero(t, st.Fresh, st.Name)
			assert.Zero(t, st.Expired, st.Name)
		}

		cleared, err = s.ClearAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, cleared)
	})

	t.Run("Delete", func(t *testing.T) {
		s := open(t, newFakeClock(), dict)
		require.NoError(t, s.Put(ctx, "dict", "courir", json.RawMessage(`1`)))

		existed, err := s.Delete(ctx, "dict", "COURIR")
		require.NoError(t, err)
		assert.True(t, existed)

		existed, err = s.Delete(ctx, "dict", "courir")
		require.NoError(t, err)
		assert.False(t, existed)
	})

	t.Run("UnconfiguredNamespace", func(t *testing.T) {
		s := open(t, newFakeClock(), dict)
		var cfgErr *gotlex.ConfigurationError

		_, _, err := s.Get(ctx, "nope", "k")
		require.ErrorAs(t, err, &cfgErr)
		assert.Equal(t, "nope", cfgErr.Namespace)

		err = s.Put(ctx, "nope", "k", json.RawMessage(`1`))
		require.ErrorAs(t, err, &cfgErr)

		_, err = s.Delete(ctx, "nope", "k")
		require.ErrorAs(t, err, &cfgErr)
	})

	t.Run("InvalidValue", func(t *testing.T) {
		s := open(t, newFakeClock(), dict)
		var valueErr *gotlex.ValueError

		err := s.Put(ctx, "dict", "k", json.RawMessage(`{"unterminated"`))
		require.ErrorAs(t, err, &valueErr)

		err = s.Put(ctx, "dict", "k", nil)
		require.ErrorAs(t, err, &valueErr)

		_, ok, err := s.Get(ctx, "dict", "k")
		require.NoError(t, err)
		assert.False(t, ok, "rejected value must not be stored")
	})

	t.Run("TypedValues", func(t *testing.T) {
		type definition struct {
			Word string   `json:"word"`
			Defs []string `json:"defs"`
		}
		s := open(t, newFakeClock(), dict)
		in := definition{Word: "être", Defs: []string{"to be", "being"}}
		require.NoError(t, gotlex.PutValue(ctx, s, "dict", "être", in))

		out, ok, err := gotlex.GetValue[definition](ctx, s, "dict", "ÊTRE")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, in, out)
	})

	t.Run("DumpAndRestore", func(t *testing.T) {
		clock := newFakeClock()
		s := open(t, clock, dict)
		require.NoError(t, s.Put(ctx, "dict", "b", json.RawMessage(`2`)))
		clock.Advance(time.Hour)
		require.NoError(t, s.Put(ctx, "dict", "a", json.RawMessage(`1`)))

		entries, err := s.(gotlex.Dumper).Dump(ctx)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "a", entries[0].Key)
		assert.Equal(t, "b", entries[1].Key)
		assert.True(t, entries[1].CreatedAt.Equal(clock.Now().Add(-time.Hour)))

		other := open(t, clock, dict)
		entries = append(entries, gotlex.Entry{Namespace: "unknown", Key: "x", Value: json.RawMessage(`1`)})
		n, err := other.(gotlex.Restorer).Restore(ctx, entries)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		// Timestamps survive a restore, so b expires an hour before a.
		clock.Advance(14*day - time.Hour)
		_, ok, err := other.Get(ctx, "dict", "b")
		require.NoError(t, err)
		assert.False(t, ok)
		_, ok, err = other.Get(ctx, "dict", "a")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("ConcurrentPuts", func(t *testing.T) {
		s := open(t, newFakeClock(), dict)
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				key := string(rune('a' + i))
				assert.NoError(t, s.Put(ctx, "dict", key, json.RawMessage(`true`)))
			}(i)
		}
		wg.Wait()

		report, err := s.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 8, report.Totals().Total)
	})
}
