package querycache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matperez/coderag/internal/retrieve"
)

func TestSetThenGetReturnsStoredHits(t *testing.T) {
	c, err := New(16, time.Minute)
	require.NoError(t, err)
	defer c.Close()

	key := Key("authenticate", retrieve.DefaultOptions(false))
	hits := []retrieve.Hit{{ChunkID: 1, Path: "a.go"}}
	c.Set(key, hits)

	got, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, hits, got)
}

func TestGetMissOnUnknownKey(t *testing.T) {
	c, err := New(16, time.Minute)
	require.NoError(t, err)
	defer c.Close()

	_, ok := c.Get("nonexistent")
	assert.False(t, ok)
}

func TestInvalidateBumpsEpochAndMissesStaleEntries(t *testing.T) {
	c, err := New(16, time.Minute)
	require.NoError(t, err)
	defer c.Close()

	key := Key("authenticate", retrieve.DefaultOptions(false))
	c.Set(key, []retrieve.Hit{{ChunkID: 1}})
	c.Invalidate()

	_, ok := c.Get(key)
	assert.False(t, ok)
}

func TestKeyDiffersByOptionsNotJustQuery(t *testing.T) {
	optsA := retrieve.DefaultOptions(false)
	optsB := retrieve.DefaultOptions(true)
	optsB.VectorWeight = 0.9

	assert.NotEqual(t, Key("q", optsA), Key("q", optsB))
}

func TestKeyStableAcrossEqualSliceContentsRegardlessOfOrder(t *testing.T) {
	a := retrieve.DefaultOptions(false)
	a.FileExtensions = []string{"go", "php"}
	b := retrieve.DefaultOptions(false)
	b.FileExtensions = []string{"php", "go"}

	assert.Equal(t, Key("q", a), Key("q", b))
}

func TestMetricsTrackHitsAndMisses(t *testing.T) {
	c, err := New(16, time.Minute)
	require.NoError(t, err)
	defer c.Close()

	key := Key("q", retrieve.DefaultOptions(false))
	c.Get(key)
	c.Set(key, []retrieve.Hit{{ChunkID: 1}})
	c.Get(key)

	m := c.GetMetrics()
	assert.Equal(t, int64(1), m.Hits)
	assert.Equal(t, int64(1), m.Misses)
}
