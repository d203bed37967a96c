package datastore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
)

// RESTTableClient implements the Store interface against a hosted row
// API using PostgREST conventions (filters as column=eq.value query
// parameters, Prefer: return=representation on writes).
type RESTTableClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewRESTTableClient creates a new RESTTableClient instance
func NewRESTTableClient(baseURL, apiKey string) *RESTTableClient {
	return &RESTTableClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{},
	}
}

// Connect verifies the configured base URL
func (c *RESTTableClient) Connect(ctx context.Context) error {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Host == "" {
		return fmt.Errorf("base URL must include a host")
	}
	return nil
}

// Select returns records matching filter, optionally ordered
func (c *RESTTableClient) Select(ctx context.Context, table string, filter Filter, order string) ([]map[string]any, error) {
	u, err := c.tableURL(table, filter)
	if err != nil {
		return nil, err
	}
	if order != "" {
		orderSQL, err := orderClause(order)
		if err != nil {
			return nil, err
		}
		q := u.Query()
		q.Set("order", restOrder(orderSQL))
		u.RawQuery = q.Encode()
	}

	resp, err := c.do(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}

	var records []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return records, nil
}

// Insert stores a record and returns the server's representation of it
func (c *RESTTableClient) Insert(ctx context.Context, table string, record map[string]any) (map[string]any, error) {
	u, err := c.tableURL(table, nil)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, u.String(), bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusConflict {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("insert into %s: %w", table, ErrConflict)
	}
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}

	var stored []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&stored); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(stored) == 0 {
		return nil, fmt.Errorf("insert returned no representation")
	}
	return stored[0], nil
}

// Update applies patch to all records matching filter
func (c *RESTTableClient) Update(ctx context.Context, table string, patch map[string]any, filter Filter) error {
	u, err := c.tableURL(table, filter)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("failed to marshal patch: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPatch, u.String(), bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return apiError(resp)
	}
	return nil
}

// Delete removes all records matching filter
func (c *RESTTableClient) Delete(ctx context.Context, table string, filter Filter) error {
	u, err := c.tableURL(table, filter)
	if err != nil {
		return err
	}

	resp, err := c.do(ctx, http.MethodDelete, u.String(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return apiError(resp)
	}
	return nil
}

// Close is a no-op for the HTTP client
func (c *RESTTableClient) Close() error {
	return nil
}

func (c *RESTTableClient) tableURL(table string, filter Filter) (*url.URL, error) {
	if err := validIdent(table); err != nil {
		return nil, err
	}
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	u.Path = path.Join(u.Path, table)

	q := u.Query()
	for _, col := range sortedKeys(filter) {
		if err := validIdent(col); err != nil {
			return nil, err
		}
		q.Set(col, fmt.Sprintf("eq.%v", filter[col]))
	}
	u.RawQuery = q.Encode()
	return u, nil
}

func (c *RESTTableClient) do(ctx context.Context, method, url string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if method != http.MethodGet {
		req.Header.Set("Prefer", "return=representation")
	}
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	return resp, nil
}

// restOrder converts a validated SQL order clause into PostgREST form
// ("created_at DESC" -> "created_at.desc").
func restOrder(orderSQL string) string {
	switch {
	case len(orderSQL) > 5 && orderSQL[len(orderSQL)-5:] == " DESC":
		return orderSQL[:len(orderSQL)-5] + ".desc"
	case len(orderSQL) > 4 && orderSQL[len(orderSQL)-4:] == " ASC":
		return orderSQL[:len(orderSQL)-4] + ".asc"
	default:
		return orderSQL
	}
}

func apiError(resp *http.Response) error {
	var errResp map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}
	return fmt.Errorf("API error (status %d): %v", resp.StatusCode, errResp)
}
