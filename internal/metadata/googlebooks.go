package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/lepinkainen/shelfscan/internal/cache"
	"github.com/lepinkainen/shelfscan/internal/config"
	"github.com/lepinkainen/shelfscan/internal/ratelimit"
)

// VolumeInfo holds the fields of a Google Books volume the pipeline
// cares about. Every field may be absent.
type VolumeInfo struct {
	Title      string   `json:"title"`
	Authors    []string `json:"authors"`
	Publisher  string   `json:"publisher"`
	ImageLinks struct {
		Thumbnail      string `json:"thumbnail"`
		SmallThumbnail string `json:"smallThumbnail"`
	} `json:"imageLinks"`
}

// googleBooksResponse matches the Google Books API response structure
type googleBooksResponse struct {
	TotalItems int `json:"totalItems"`
	Items      []struct {
		VolumeInfo VolumeInfo `json:"volumeInfo"`
	} `json:"items"`
}

type cachedGoogleBooksResult struct {
	Volume   *VolumeInfo `json:"volume"`
	NotFound bool        `json:"not_found"`
}

// GoogleBooksClient queries the Google Books API, the fallback lookup
// provider.
type GoogleBooksClient struct {
	httpClient *http.Client
	limiter    *ratelimit.Limiter
	baseURL    string
}

// NewGoogleBooksClient creates a Google Books client from configuration
func NewGoogleBooksClient() *GoogleBooksClient {
	return &GoogleBooksClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    ratelimit.ForProvider("Google Books", "googlebooks"),
		baseURL:    viper.GetString("providers.googlebooks.baseurl"),
	}
}

// normalizeISBN strips hyphens and spaces from ISBN
func normalizeISBN(isbn string) string {
	normalized := strings.ReplaceAll(isbn, "-", "")
	return strings.ReplaceAll(normalized, " ", "")
}

// Lookup fetches the best-matching volume for an ISBN. Returns nil, nil
// when no volume matches.
func (c *GoogleBooksClient) Lookup(ctx context.Context, isbn string) (*VolumeInfo, error) {
	normalized := normalizeISBN(isbn)

	cached, _, err := cache.GetOrFetchWithTTL("googlebooks_cache", normalized, func() (*cachedGoogleBooksResult, error) {
		return c.fetch(ctx, normalized)
	}, cache.SelectNegativeTTL(func(r *cachedGoogleBooksResult) bool {
		return r.NotFound
	}))
	if err != nil {
		return nil, err
	}
	if cached.NotFound {
		return nil, nil
	}
	return cached.Volume, nil
}

func (c *GoogleBooksClient) fetch(ctx context.Context, isbn string) (*cachedGoogleBooksResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	url := fmt.Sprintf("%s/volumes?q=isbn:%s", c.baseURL, isbn)
	if config.GoogleBooksAPIKey != "" {
		url = fmt.Sprintf("%s&key=%s", url, config.GoogleBooksAPIKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	var result googleBooksResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if result.TotalItems == 0 || len(result.Items) == 0 {
		slog.Debug("No Google Books volume", "isbn", isbn)
		return &cachedGoogleBooksResult{NotFound: true}, nil
	}

	// First item is the best match
	volume := result.Items[0].VolumeInfo
	slog.Debug("Google Books volume found", "isbn", isbn, "title", volume.Title)
	return &cachedGoogleBooksResult{Volume: &volume}, nil
}
