// Package metadata resolves an ISBN into a normalized book draft by
// querying a primary catalog (openBD) and falling back to Google Books.
package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/viper"

	"github.com/lepinkainen/shelfscan/internal/cache"
	"github.com/lepinkainen/shelfscan/internal/ratelimit"
)

// OpenBDSummary is the summary block of an openBD record. Field names
// map directly onto the draft.
type OpenBDSummary struct {
	ISBN      string `json:"isbn"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	Publisher string `json:"publisher"`
	Cover     string `json:"cover"`
}

type openBDEntry struct {
	Summary OpenBDSummary `json:"summary"`
}

// cachedOpenBDResult wraps a summary with a not-found marker so misses
// can be negative-cached.
type cachedOpenBDResult struct {
	Summary  *OpenBDSummary `json:"summary"`
	NotFound bool           `json:"not_found"`
}

// OpenBDClient queries the openBD API, the primary lookup provider.
type OpenBDClient struct {
	httpClient *http.Client
	limiter    *ratelimit.Limiter
	baseURL    string
}

// NewOpenBDClient creates an openBD client from configuration
func NewOpenBDClient() *OpenBDClient {
	return &OpenBDClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    ratelimit.ForProvider("openBD", "openbd"),
		baseURL:    viper.GetString("providers.openbd.baseurl"),
	}
}

// Lookup fetches the openBD summary for an ISBN. Returns nil, nil when
// the catalog has no record, allowing the fallback provider to try.
func (c *OpenBDClient) Lookup(ctx context.Context, isbn string) (*OpenBDSummary, error) {
	cached, _, err := cache.GetOrFetchWithTTL("openbd_cache", isbn, func() (*cachedOpenBDResult, error) {
		return c.fetch(ctx, isbn)
	}, cache.SelectNegativeTTL(func(r *cachedOpenBDResult) bool {
		return r.NotFound
	}))
	if err != nil {
		return nil, err
	}
	if cached.NotFound {
		return nil, nil
	}
	return cached.Summary, nil
}

func (c *OpenBDClient) fetch(ctx context.Context, isbn string) (*cachedOpenBDResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	url := fmt.Sprintf("%s/v1/get?isbn=%s", c.baseURL, isbn)

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

	// openBD answers with one array slot per requested ISBN, null when
	// the catalog has no record
	var entries []*openBDEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if len(entries) == 0 || entries[0] == nil || entries[0].Summary.Title == "" {
		slog.Debug("No openBD record", "isbn", isbn)
		return &cachedOpenBDResult{NotFound: true}, nil
	}

	summary := entries[0].Summary
	slog.Debug("openBD record found", "isbn", isbn, "title", summary.Title)
	return &cachedOpenBDResult{Summary: &summary}, nil
}
