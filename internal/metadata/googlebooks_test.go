package metadata

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lepinkainen/shelfscan/internal/ratelimit"
)

func newMockedGoogleBooksClient(transport *httpmock.MockTransport) *GoogleBooksClient {
	return &GoogleBooksClient{
		httpClient: &http.Client{Transport: transport, Timeout: 10 * time.Second},
		limiter:    ratelimit.New("Google Books", 100),
		baseURL:    "https://books.test",
	}
}

func TestGoogleBooksLookupFound(t *testing.T) {
	setupProviderTest(t)

	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", "https://books.test/volumes",
		httpmock.NewStringResponder(200, `{
			"totalItems": 1,
			"items": [{"volumeInfo": {
				"title": "Snow Country",
				"authors": ["Yasunari Kawabata", "Edward G. Seidensticker"],
				"publisher": "Vintage",
				"imageLinks": {"thumbnail": "http://books.google.com/thumb.jpg"}
			}}]
		}`))

	client := newMockedGoogleBooksClient(transport)
	volume, err := client.Lookup(context.Background(), "9780679761044")
	require.NoError(t, err)
	require.NotNil(t, volume)
	assert.Equal(t, "Snow Country", volume.Title)
	assert.Len(t, volume.Authors, 2)
	assert.Equal(t, "http://books.google.com/thumb.jpg", volume.ImageLinks.Thumbnail)
}

func TestGoogleBooksLookupNoItems(t *testing.T) {
	setupProviderTest(t)

	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", "https://books.test/volumes",
		httpmock.NewStringResponder(200, `{"totalItems": 0}`))

	client := newMockedGoogleBooksClient(transport)
	volume, err := client.Lookup(context.Background(), "9790000000001")
	require.NoError(t, err)
	assert.Nil(t, volume)
}

func TestGoogleBooksLookupNormalizesISBN(t *testing.T) {
	setupProviderTest(t)

	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", "https://books.test/volumes",
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "isbn:9784061530194", req.URL.Query().Get("q"))
			return httpmock.NewStringResponse(200, `{"totalItems": 0}`), nil
		})

	client := newMockedGoogleBooksClient(transport)
	_, err := client.Lookup(context.Background(), "978-4-06-153019-4")
	require.NoError(t, err)
	assert.Equal(t, 1, transport.GetTotalCallCount())
}

func TestGoogleBooksLookupBadJSON(t *testing.T) {
	setupProviderTest(t)

	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", "https://books.test/volumes",
		httpmock.NewStringResponder(200, `{"totalItems": `))

	client := newMockedGoogleBooksClient(transport)
	_, err := client.Lookup(context.Background(), "9784061530194")
	require.Error(t, err)
}
