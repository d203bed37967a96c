package cache

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestCache(t *testing.T) {
	t.Helper()

	require.NoError(t, Reset())
	viper.Reset()
	viper.Set("cache.dbfile", filepath.Join(t.TempDir(), "cache.db"))
	viper.Set("cache.ttl", "1h")

	t.Cleanup(func() {
		_ = Reset()
		viper.Reset()
	})
}

func TestGetSetRoundTrip(t *testing.T) {
	setupTestCache(t)

	db, err := Global()
	require.NoError(t, err)

	require.NoError(t, db.Set("openbd_cache", "9784061530194", `{"title":"T"}`))

	data, hit, err := db.Get("openbd_cache", "9784061530194", time.Hour)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, `{"title":"T"}`, data)
}

func TestGetMissingKey(t *testing.T) {
	setupTestCache(t)

	db, err := Global()
	require.NoError(t, err)

	_, hit, err := db.Get("googlebooks_cache", "missing", time.Hour)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestInvalidTableRejected(t *testing.T) {
	setupTestCache(t)

	db, err := Global()
	require.NoError(t, err)

	require.Error(t, db.Set("books; DROP TABLE books", "k", "v"))
	_, _, err = db.Get("not_a_table", "k", time.Hour)
	require.Error(t, err)
}

func TestGetOrFetchCachesResult(t *testing.T) {
	setupTestCache(t)

	calls := 0
	fetch := func() (string, error) {
		calls++
		return "fetched", nil
	}

	got, fromCache, err := GetOrFetch("openbd_cache", "key1", fetch)
	require.NoError(t, err)
	assert.Equal(t, "fetched", got)
	assert.False(t, fromCache)

	got, fromCache, err = GetOrFetch("openbd_cache", "key1", fetch)
	require.NoError(t, err)
	assert.Equal(t, "fetched", got)
	assert.True(t, fromCache)
	assert.Equal(t, 1, calls, "second lookup should not refetch")
}

func TestGetOrFetchPropagatesFetchError(t *testing.T) {
	setupTestCache(t)

	wantErr := errors.New("provider down")
	_, _, err := GetOrFetch("openbd_cache", "key2", func() (string, error) {
		return "", wantErr
	})
	require.ErrorIs(t, err, wantErr)
}

func TestSelectNegativeTTL(t *testing.T) {
	type result struct{ NotFound bool }

	sel := SelectNegativeTTL(func(r result) bool { return r.NotFound })
	assert.Equal(t, NegativeTTL, sel(result{NotFound: true}))
	assert.Equal(t, DefaultTTL, sel(result{NotFound: false}))
}

func TestClearAll(t *testing.T) {
	setupTestCache(t)

	db, err := Global()
	require.NoError(t, err)

	require.NoError(t, db.Set("googlebooks_cache", "a", "1"))
	require.NoError(t, db.Set("googlebooks_cache", "b", "2"))

	deleted, err := db.ClearAll("googlebooks_cache")
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	_, hit, err := db.Get("googlebooks_cache", "a", time.Hour)
	require.NoError(t, err)
	assert.False(t, hit)
}
