package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
)

// ErrNotAuthenticated is returned by calls that need a token before Authenticate succeeded
var ErrNotAuthenticated = errors.New("client not authenticated - call Authenticate() first")

// APIError is a non-2xx reply from the server
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

// Client provides HTTP client for the loghub API
type Client struct {
	config     Config
	httpClient *http.Client
	// streamClient has no overall timeout
	streamClient *http.Client
	token        string
	baseURL      *url.URL
}

// NewClient creates a new loghub HTTP client
func NewClient(config Config) (*Client, error) {
	config.SetDefaults()

	if config.ServerURL == "" {
		return nil, fmt.Errorf("ServerURL is required")
	}
	if config.ClientID == "" {
		return nil, fmt.Errorf("ClientID is required")
	}

	baseURL, err := url.Parse(config.ServerURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ServerURL: %w", err)
	}

	return &Client{
		config:       config,
		httpClient:   &http.Client{Timeout: config.Timeout},
		streamClient: &http.Client{},
		baseURL:      baseURL,
	}, nil
}

// Authenticate logs in and stores the token
func (c *Client) Authenticate(ctx context.Context) (*AuthResponse, error) {
	req := AuthRequest{ClientID: c.config.ClientID, Password: c.config.Password}

	var resp AuthResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/auth/login", req, &resp, false); err != nil {
		return nil, fmt.Errorf("authentication failed: %w", err)
	}

	c.token = resp.Token
	return &resp, nil
}

// History returns at most limit of the newest retained events; zero returns all
func (c *Client) History(ctx context.Context, limit int) (*LogsResponse, error) {
	if c.token == "" {
		return nil, ErrNotAuthenticated
	}

	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	var resp LogsResponse
	if err := c.doRequestWithQuery(ctx, http.MethodGet, "/api/v1/logs", query, nil, &resp, true); err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	return &resp, nil
}

// Ingest records one or more lines on the server
func (c *Client) Ingest(ctx context.Context, entries ...IngestEntry) (*IngestResponse, error) {
	if c.token == "" {
		return nil, ErrNotAuthenticated
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("no log entries supplied")
	}

	var resp IngestResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/logs", entries, &resp, true); err != nil {
		return nil, fmt.Errorf("failed to ingest logs: %w", err)
	}
	return &resp, nil
}

// Debug returns the hub debug view
func (c *Client) Debug(ctx context.Context) (*DebugResponse, error) {
	if c.token == "" {
		return nil, ErrNotAuthenticated
	}

	var resp DebugResponse
	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/debug/hub", nil, &resp, true); err != nil {
		return nil, fmt.Errorf("failed to get debug view: %w", err)
	}
	return &resp, nil
}

// GetHealth returns the health status of the server
func (c *Client) GetHealth(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	err := c.doRequest(ctx, http.MethodGet, "/api/v1/health", nil, &resp, false)
	var apiErr *APIError
	// An unhealthy hub answers 503 with the same body
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusServiceUnavailable && resp.Message != "" {
		return &resp, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get health status: %w", err)
	}
	return &resp, nil
}

// Admin Methods (require admin token)

// AdminGetStats returns hub counters and the snapshot (admin only)
func (c *Client) AdminGetStats(ctx context.Context) (*AdminStatsResponse, error) {
	if c.token == "" {
		return nil, ErrNotAuthenticated
	}

	var resp AdminStatsResponse
	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/admin/stats", nil, &resp, true); err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}
	return &resp, nil
}

// AdminRecover clears poisoned state on the server (admin only)
func (c *Client) AdminRecover(ctx context.Context) (*RecoverResponse, error) {
	if c.token == "" {
		return nil, ErrNotAuthenticated
	}

	var resp RecoverResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/admin/recover", nil, &resp, true); err != nil {
		return nil, fmt.Errorf("failed to recover hub: %w", err)
	}
	return &resp, nil
}

// doRequestWithQuery performs an HTTP request with query parameters and optional authentication.
// On an error status the body is still decoded into respBody when it parses.
func (c *Client) doRequestWithQuery(ctx context.Context, method, path string, queryParams url.Values, reqBody interface{}, respBody interface{}, requireAuth bool) error {
	u := &url.URL{Path: path}
	if len(queryParams) > 0 {
		u.RawQuery = queryParams.Encode()
	}
	fullURL := c.baseURL.ResolveReference(u)

	var bodyReader io.Reader
	if reqBody != nil {
		jsonBody, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL.String(), bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if requireAuth && c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		if respBody != nil {
			_ = json.Unmarshal(bodyBytes, respBody)
		}
		var errResp ErrorResponse
		if err := json.Unmarshal(bodyBytes, &errResp); err != nil || errResp.Message == "" {
			return &APIError{StatusCode: resp.StatusCode, Message: string(bytes.TrimSpace(bodyBytes))}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: errResp.Message}
	}

	if respBody != nil {
		if err := json.Unmarshal(bodyBytes, respBody); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}

// doRequest performs an HTTP request with optional authentication
func (c *Client) doRequest(ctx context.Context, method, path string, reqBody interface{}, respBody interface{}, requireAuth bool) error {
	return c.doRequestWithQuery(ctx, method, path, nil, reqBody, respBody, requireAuth)
}

// IsAuthenticated returns whether the client has a token
func (c *Client) IsAuthenticated() bool {
	return c.token != ""
}

// GetToken returns the current authentication token
func (c *Client) GetToken() string {
	return c.token
}

// SetToken sets the authentication token (useful for testing or token reuse)
func (c *Client) SetToken(token string) {
	c.token = token
}
