package musrv

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Config holds client configuration.
type Config struct {
	BaseURL    string       // Required: server root, e.g. http://host:8080/
	HTTPClient *http.Client // Optional: HTTP client (defaults to http.DefaultClient)
	Logger     Logger       // Optional: Logger interface for debug logging
	UserAgent  string       // Optional: defaults to DefaultUserAgent
	MaxRetries int          // Optional: attempts per request (defaults to 3)
}

// Logger is an optional interface for logging.
type Logger interface {
	// Debugf logs a debug message with format and arguments.
	Debugf(format string, args ...interface{})
}

// Client talks to one music server.
type Client struct {
	base       *url.URL
	httpClient *http.Client
	logger     Logger
	userAgent  string
	maxRetries int
	backoff    time.Duration
}

const (
	// DefaultUserAgent is sent when Config.UserAgent is empty.
	DefaultUserAgent = "crate/1.0"

	defaultMaxRetries = 3
	initialBackoff    = 1 * time.Second
)

// NewClient creates a new server client.
//
// Returns ErrInvalidConfig when BaseURL is missing or is not an absolute
// http(s) URL.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: BaseURL is required", ErrInvalidConfig)
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("%w: BaseURL must be http or https, got %q", ErrInvalidConfig, cfg.BaseURL)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("%w: BaseURL has no host", ErrInvalidConfig)
	}
	// Relative references resolve below the base path only with a trailing slash.
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	base.RawQuery = ""
	base.Fragment = ""

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	return &Client{
		base:       base,
		httpClient: httpClient,
		logger:     cfg.Logger,
		userAgent:  userAgent,
		maxRetries: maxRetries,
		backoff:    initialBackoff,
	}, nil
}

// BaseURL returns the normalized server root, always ending in "/".
func (c *Client) BaseURL() string {
	return c.base.String()
}

// ResolveURL resolves ref (absolute, or relative to the server root).
func (c *Client) ResolveURL(ref string) (string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("failed to parse url %q: %w", ref, err)
	}
	return c.base.ResolveReference(u).String(), nil
}

// PlaylistURL is the playlist endpoint for a folder path.
func (c *Client) PlaylistURL(path string) string {
	return c.endpoint("api/folder.m3u8", pathQuery(path))
}

func (c *Client) endpoint(name string, query url.Values) string {
	u := &url.URL{Path: name, RawQuery: query.Encode()}
	return c.base.ResolveReference(u).String()
}

func pathQuery(path string) url.Values {
	return url.Values{"path": []string{path}}
}

// logDebugf logs a debug message if a logger is configured.
func (c *Client) logDebugf(format string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Debugf(format, args...)
	}
}
