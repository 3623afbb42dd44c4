package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/stash/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the Spotify Web API root.
const DefaultBaseURL = "https://api.spotify.com/v1"

// ClientOpts configures a [Client].
type ClientOpts struct {
	BaseURL    string
	HTTPClient *http.Client
	Token      *oauth2.Token
	Logger     *log.Logger

	// RequestsPerSecond paces requests when above zero.
	RequestsPerSecond float64

	// Retry applies to GET requests only.
	Retry shared.RetryPolicy
}

// Client makes bearer-authenticated requests to the Web API.
//
// The token and HTTP client are fixed at construction and shared read-only.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      *oauth2.Token
	limiter    *rate.Limiter
	retry      shared.RetryPolicy
	logger     *log.Logger
}

// NewClient creates a [Client]. A nil token is rejected since every request needs one.
func NewClient(opts ClientOpts) (*Client, error) {
	if opts.Token == nil || opts.Token.AccessToken == "" {
		return nil, fmt.Errorf("%w: access token is required", shared.ErrMissingCredentials)
	}

	c := &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: opts.HTTPClient,
		token:      opts.Token,
		retry:      opts.Retry,
		logger:     opts.Logger,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if c.logger == nil {
		c.logger = shared.DiscardLogger()
	}
	if opts.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	return c, nil
}

// URL resolves endpoint against the base URL. Absolute URLs are returned unchanged.
func (c *Client) URL(endpoint string) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	return c.baseURL + "/" + strings.TrimLeft(endpoint, "/")
}

// GetJSON fetches endpoint with query and returns the raw 2xx body.
func (c *Client) GetJSON(ctx context.Context, stage, endpoint string, query url.Values) ([]byte, error) {
	target := c.URL(endpoint)
	if len(query) > 0 {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + query.Encode()
	}

	var body []byte
	err := shared.Retry(ctx, c.retry, c.logger, func() error {
		data, err := c.do(ctx, stage, http.MethodGet, target, nil)
		if err != nil {
			return err
		}
		body = data
		return nil
	})
	return body, err
}

// PostJSON sends payload as a JSON body to endpoint. It is never retried.
func (c *Client) PostJSON(ctx context.Context, stage, endpoint string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to encode request: %w", stage, err)
	}
	return c.do(ctx, stage, http.MethodPost, c.URL(endpoint), data)
}

func (c *Client) do(ctx context.Context, stage, method, target string, payload []byte) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create request: %w", stage, err)
	}
	c.token.SetAuthHeader(req)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%s: %w: %v", stage, shared.ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: failed to read response: %v", stage, shared.ErrTransport, err)
	}

	c.logger.Debug("api request", "method", method, "path", req.URL.Path, "status", resp.StatusCode)

	if !shared.IsSuccess(resp.StatusCode) {
		return nil, shared.NewHTTPStatusError(stage, resp.StatusCode, body)
	}
	return body, nil
}
