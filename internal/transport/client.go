// Package transport issues the HTTP requests used by downloads and update checks.
// It picks a plain or TLS client by URL scheme and never retries on its own.
package transport

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"
)

const (
	// DefaultUserAgent identifies the application to release APIs.
	DefaultUserAgent = "make-your-life-easier-app"
	// DefaultAPIBaseURL is the release index API root.
	DefaultAPIBaseURL = "https://api.github.com"

	maxBodySize = 10 << 20
)

// Client selects a transport per URL scheme.
type Client struct {
	plain     *http.Client
	secure    *http.Client
	apiBase   string
	userAgent string
}

type options struct {
	timeout         time.Duration
	headerTimeout   time.Duration
	followRedirects bool
	tlsConfig       *tls.Config
	apiBase         string
	userAgent       string
}

// Option configures a Client.
type Option func(*options)

// WithTimeout bounds a whole request including reading the body. Zero means no limit.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithResponseHeaderTimeout bounds the wait for response headers.
func WithResponseHeaderTimeout(d time.Duration) Option {
	return func(o *options) { o.headerTimeout = d }
}

// WithoutRedirects returns 3xx responses to the caller instead of following them.
func WithoutRedirects() Option {
	return func(o *options) { o.followRedirects = false }
}

// WithTLSConfig overrides the TLS configuration of the secure client.
func WithTLSConfig(cfg *tls.Config) Option {
	return func(o *options) { o.tlsConfig = cfg }
}

// WithAPIBaseURL points release lookups at another API root.
func WithAPIBaseURL(base string) Option {
	return func(o *options) { o.apiBase = strings.TrimRight(base, "/") }
}

// WithUserAgent sets the User-Agent sent with every request.
func WithUserAgent(ua string) Option {
	return func(o *options) { o.userAgent = ua }
}

// New creates a Client backed by pooled transports.
func New(opts ...Option) *Client {
	o := &options{
		followRedirects: true,
		tlsConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
		apiBase:         DefaultAPIBaseURL,
		userAgent:       DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(o)
	}

	plainTransport := cleanhttp.DefaultPooledTransport()
	plainTransport.ResponseHeaderTimeout = o.headerTimeout

	secureTransport := cleanhttp.DefaultPooledTransport()
	secureTransport.ResponseHeaderTimeout = o.headerTimeout
	secureTransport.TLSClientConfig = o.tlsConfig

	newClient := func(rt http.RoundTripper) *http.Client {
		c := &http.Client{Transport: rt, Timeout: o.timeout}
		if !o.followRedirects {
			c.CheckRedirect = func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			}
		}
		return c
	}

	return &Client{
		plain:     newClient(plainTransport),
		secure:    newClient(secureTransport),
		apiBase:   o.apiBase,
		userAgent: o.userAgent,
	}
}

// ClientFor returns the client matching rawURL's scheme.
func (c *Client) ClientFor(rawURL string) (*http.Client, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}
	switch strings.ToLower(u.Scheme) {
	case "https":
		return c.secure, nil
	case "http":
		return c.plain, nil
	default:
		return nil, fmt.Errorf("unsupported URL scheme %q", u.Scheme)
	}
}

// Do sends req through the client for its scheme, adding the default User-Agent.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	hc, err := c.ClientFor(req.URL.String())
	if err != nil {
		return nil, err
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	return hc.Do(req)
}

// GetJSON issues a GET and decodes a 2xx JSON body into out.
func (c *Client) GetJSON(ctx context.Context, rawURL string, headers map[string]string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return c.doJSON(req, out)
}

// PostForm sends params URL-encoded and decodes a 2xx JSON body into out.
func (c *Client) PostForm(ctx context.Context, rawURL string, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(params.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.doJSON(req, out)
}

func (c *Client) doJSON(req *http.Request, out any) error {
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}

	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &HTTPError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &ParseError{Err: err}
	}
	return nil
}
