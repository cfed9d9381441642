// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/SEERINTELAI/academic-research-tool-sub000/internal/httputil"
	"github.com/SEERINTELAI/academic-research-tool-sub000/pkg/types"
)

// DefaultTimeout is the per-request HTTP timeout of a source client.
const DefaultTimeout = 30 * time.Second

// DefaultUserAgent is sent when no user agent is configured.
const DefaultUserAgent = "research-tool/0.1 (mailto:research-tool@example.org)"

// SourceClient searches one bibliographic API and normalizes its records.
// Implementations wait on their own rate limiter before every outbound call
// and are safe for concurrent use.
type SourceClient interface {
	Tag() types.SourceTag
	Search(ctx context.Context, query string, limit int, yearFrom, yearTo *int) ([]types.PaperRecord, error)

	// GetByID returns (nil, nil) when the source has no such record.
	GetByID(ctx context.Context, id string) (*types.PaperRecord, error)
}

// intervalPolicy returns the minimum delay between requests, depending on
// whether an API key is configured. Zero means unlimited.
type intervalPolicy func(hasKey bool) time.Duration

func fixedInterval(d time.Duration) intervalPolicy {
	return func(bool) time.Duration { return d }
}

func keyedInterval(anonymous, keyed time.Duration) intervalPolicy {
	return func(hasKey bool) time.Duration {
		if hasKey {
			return keyed
		}
		return anonymous
	}
}

// clientBase carries what every source client shares: HTTP client, rate
// limiter and credentials.
type clientBase struct {
	tag        types.SourceTag
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	apiKey     string
	email      string
	userAgent  string
	interval   *time.Duration
}

// Option configures a source client.
type Option func(*clientBase)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *clientBase) { c.httpClient = hc }
}

// WithAPIKey sets the API key. Sources with keyed rate tiers use the faster
// interval when a key is present.
func WithAPIKey(key string) Option {
	return func(c *clientBase) { c.apiKey = key }
}

// WithEmail sets the contact address for polite-pool access.
func WithEmail(email string) Option {
	return func(c *clientBase) { c.email = email }
}

// WithBaseURL overrides the API endpoint.
func WithBaseURL(u string) Option {
	return func(c *clientBase) { c.baseURL = u }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *clientBase) { c.userAgent = ua }
}

// WithMinInterval overrides the source's default minimum delay between
// requests. Zero removes the limit.
func WithMinInterval(d time.Duration) Option {
	return func(c *clientBase) { c.interval = &d }
}

func newClientBase(tag types.SourceTag, policy intervalPolicy, opts []Option) clientBase {
	c := clientBase{
		tag:        tag,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		userAgent:  DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(&c)
	}

	interval := policy(c.apiKey != "")
	if c.interval != nil {
		interval = *c.interval
	}
	if interval > 0 {
		c.limiter = rate.NewLimiter(rate.Every(interval), 1)
	} else {
		c.limiter = rate.NewLimiter(rate.Inf, 1)
	}
	return c
}

// Tag returns the source identifier.
func (c *clientBase) Tag() types.SourceTag { return c.tag }

// endpoint returns the configured base URL or def.
func (c *clientBase) endpoint(def string) string {
	if c.baseURL != "" {
		return c.baseURL
	}
	return def
}

// fetch waits for the rate limiter, sends req with retry on 429/503 and
// returns the body of a 200 response. Any other status becomes an APIError.
func (c *clientBase) fetch(ctx context.Context, req *http.Request) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, c.httpClient, req, 0)
	if err != nil {
		return nil, fmt.Errorf("%s API request: %w", c.tag, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, newAPIError(c.tag, resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s response: %w", c.tag, err)
	}
	return body, nil
}

func (c *clientBase) decodeError(err error) error {
	return fmt.Errorf("%w: parsing %s response: %v", ErrInvalidResponse, c.tag, err)
}

// NewClient builds the client for one source.
func NewClient(tag types.SourceTag, opts ...Option) (SourceClient, error) {
	switch tag {
	case types.SourceOpenAlex:
		return NewOpenAlexClient(opts...), nil
	case types.SourceArxiv:
		return NewArxivClient(opts...), nil
	case types.SourceCrossRef:
		return NewCrossRefClient(opts...), nil
	case types.SourcePubMed:
		return NewPubMedClient(opts...), nil
	case types.SourceCore:
		return NewCoreClient(opts...), nil
	case types.SourceSemanticScholar:
		return NewSemanticScholarClient(opts...), nil
	}
	return nil, fmt.Errorf("%w: unknown source %q", ErrInvalidRequest, tag)
}

// NewClients builds a client for every source not disabled in cfg.
func NewClients(cfg types.SearchConfig) (map[types.SourceTag]SourceClient, error) {
	clients := make(map[types.SourceTag]SourceClient, len(types.AllSources))
	for _, tag := range types.AllSources {
		sc := cfg.Sources[tag]
		if sc.Disabled {
			continue
		}
		client, err := NewClient(tag, optionsFromConfig(sc)...)
		if err != nil {
			return nil, err
		}
		clients[tag] = client
	}
	return clients, nil
}

func optionsFromConfig(sc types.SourceConfig) []Option {
	var opts []Option
	if sc.Timeout > 0 {
		opts = append(opts, WithHTTPClient(&http.Client{Timeout: sc.Timeout}))
	}
	if sc.UserAgent != "" {
		opts = append(opts, WithUserAgent(sc.UserAgent))
	}
	if sc.BaseURL != "" {
		opts = append(opts, WithBaseURL(sc.BaseURL))
	}
	if sc.APIKey != "" {
		opts = append(opts, WithAPIKey(sc.APIKey))
	}
	if sc.Email != "" {
		opts = append(opts, WithEmail(sc.Email))
	}
	if sc.MinInterval > 0 {
		opts = append(opts, WithMinInterval(sc.MinInterval))
	}
	return opts
}
