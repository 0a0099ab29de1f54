package api

import (
	"log/slog"
	"net/http"
	"time"
)

// Default REST bases.
const (
	DefaultCLOBURL  = "https://clob.polymarket.com"
	DefaultGammaURL = "https://gamma-api.polymarket.com"
)

// Client provides access to the Polymarket CLOB and Gamma REST APIs.
type Client struct {
	clobURL    string
	gammaURL   string
	userAgent  string
	httpClient *http.Client
	logger     *slog.Logger

	maxRetries   int
	retryBackoff time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a new REST API client. Empty bases fall back to the public endpoints.
func NewClient(clobURL, gammaURL string, opts ...ClientOption) *Client {
	if clobURL == "" {
		clobURL = DefaultCLOBURL
	}
	if gammaURL == "" {
		gammaURL = DefaultGammaURL
	}

	c := &Client{
		clobURL:   clobURL,
		gammaURL:  gammaURL,
		userAgent: "PolyAlpha/1.0",
		httpClient: &http.Client{
			Timeout: 6 * time.Second,
		},
		logger:       slog.Default(),
		maxRetries:   1,
		retryBackoff: 200 * time.Millisecond,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithRetries sets the retry configuration.
func WithRetries(max int, backoff time.Duration) ClientOption {
	return func(c *Client) {
		c.maxRetries = max
		c.retryBackoff = backoff
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}
