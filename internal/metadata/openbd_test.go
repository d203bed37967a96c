package metadata

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lepinkainen/shelfscan/internal/cache"
	"github.com/lepinkainen/shelfscan/internal/ratelimit"
)

func setupProviderTest(t *testing.T) {
	t.Helper()

	require.NoError(t, cache.Reset())
	viper.Reset()
	viper.Set("cache.dbfile", filepath.Join(t.TempDir(), "cache.db"))
	viper.Set("cache.ttl", "1h")

	t.Cleanup(func() {
		_ = cache.Reset()
		viper.Reset()
	})
}

func newMockedOpenBDClient(transport *httpmock.MockTransport) *OpenBDClient {
	return &OpenBDClient{
		httpClient: &http.Client{Transport: transport, Timeout: 10 * time.Second},
		limiter:    ratelimit.New("openBD", 100),
		baseURL:    "https://openbd.test",
	}
}

func TestOpenBDLookupFound(t *testing.T) {
	setupProviderTest(t)

	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", "https://openbd.test/v1/get",
		httpmock.NewStringResponder(200, `[{"summary":{"isbn":"9784061530194","title":"T","author":"A","publisher":"P","cover":"https://cover.example/1.jpg"}}]`))

	client := newMockedOpenBDClient(transport)
	summary, err := client.Lookup(context.Background(), "9784061530194")
	require.NoError(t, err)
	require.NotNil(t, summary)
	assert.Equal(t, "T", summary.Title)
	assert.Equal(t, "A", summary.Author)
}

func TestOpenBDLookupNullEntryIsMiss(t *testing.T) {
	setupProviderTest(t)

	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", "https://openbd.test/v1/get",
		httpmock.NewStringResponder(200, `[null]`))

	client := newMockedOpenBDClient(transport)
	summary, err := client.Lookup(context.Background(), "9790000000001")
	require.NoError(t, err)
	assert.Nil(t, summary, "null catalog entry means not found, not an error")
}

func TestOpenBDLookupServerError(t *testing.T) {
	setupProviderTest(t)

	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", "https://openbd.test/v1/get",
		httpmock.NewStringResponder(500, "boom"))

	client := newMockedOpenBDClient(transport)
	_, err := client.Lookup(context.Background(), "9784061530194")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestOpenBDLookupUsesCache(t *testing.T) {
	setupProviderTest(t)

	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", "https://openbd.test/v1/get",
		httpmock.NewStringResponder(200, `[{"summary":{"isbn":"9784061530194","title":"T","author":"A","publisher":"P","cover":""}}]`))

	client := newMockedOpenBDClient(transport)

	_, err := client.Lookup(context.Background(), "9784061530194")
	require.NoError(t, err)
	_, err = client.Lookup(context.Background(), "9784061530194")
	require.NoError(t, err)

	assert.Equal(t, 1, transport.GetTotalCallCount(), "second lookup should hit the cache")
}

func TestOpenBDLookupCachesMisses(t *testing.T) {
	setupProviderTest(t)

	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", "https://openbd.test/v1/get",
		httpmock.NewStringResponder(200, `[null]`))

	client := newMockedOpenBDClient(transport)

	for i := 0; i < 3; i++ {
		summary, err := client.Lookup(context.Background(), "9790000000001")
		require.NoError(t, err)
		assert.Nil(t, summary)
	}
	assert.Equal(t, 1, transport.GetTotalCallCount(), "misses should be negative-cached")
}
