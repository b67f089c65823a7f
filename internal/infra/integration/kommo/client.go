package kommo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/xavierca1/salesops-sync/internal/infra/http/middleware"
	"github.com/xavierca1/salesops-sync/internal/infra/logging"
)

const (
	// PageSize is the largest page Kommo serves.
	PageSize = 250

	DefaultMaxRetries     = 5
	DefaultInitialBackoff = 2 * time.Second
	DefaultRateLimit      = 5.0
	DefaultTimeout        = 60 * time.Second
)

type Resource string

const (
	ResourceLeads     Resource = "leads"
	ResourceEvents    Resource = "events"
	ResourceUsers     Resource = "users"
	ResourcePipelines Resource = "pipelines"
)

func (r Resource) path() string {
	if r == ResourcePipelines {
		return "/leads/pipelines"
	}
	return "/" + string(r)
}

// Filter bounds a listing by unix timestamps. Zero fields are omitted.
type Filter struct {
	CreatedFrom int64
	UpdatedFrom int64
}

func (f Filter) apply(q url.Values) {
	if f.CreatedFrom > 0 {
		q.Set("filter[created_at][from]", strconv.FormatInt(f.CreatedFrom, 10))
	}
	if f.UpdatedFrom > 0 {
		q.Set("filter[updated_at][from]", strconv.FormatInt(f.UpdatedFrom, 10))
	}
}

// Limiter gates every outbound request. *rate.Limiter satisfies it.
type Limiter interface {
	Wait(ctx context.Context) error
}

type Client struct {
	baseURL        string
	apiToken       string
	http           *http.Client
	limiter        Limiter
	maxRetries     int
	initialBackoff time.Duration
	newTimer       func() backoff.Timer
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLimiter(l Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithRateLimit caps outbound traffic at rps requests per second.
func WithRateLimit(rps float64) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(rps), 1) }
}

func WithMaxRetries(n int) Option {
	return func(c *Client) { c.maxRetries = n }
}

// WithRetryTimer replaces the timer used between retries (tests use an instant one).
func WithRetryTimer(newTimer func() backoff.Timer) Option {
	return func(c *Client) { c.newTimer = newTimer }
}

func NewClient(baseURL, apiToken string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		apiToken:       apiToken,
		http:           &http.Client{Timeout: DefaultTimeout},
		limiter:        rate.NewLimiter(rate.Limit(DefaultRateLimit), 1),
		maxRetries:     DefaultMaxRetries,
		initialBackoff: DefaultInitialBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL builds the v4 API root for a Kommo subdomain.
func BaseURL(subdomain string) string {
	return fmt.Sprintf("https://%s.kommo.com/api/v4", subdomain)
}

// Ping checks credentials and connectivity with GET /account.
func (c *Client) Ping(ctx context.Context) error {
	body, err := c.get(ctx, "account", "/account", nil)
	if err != nil {
		return fmt.Errorf("kommo connectivity check failed: %w", err)
	}
	if len(body) == 0 {
		return fmt.Errorf("kommo connectivity check failed: empty account response")
	}
	return nil
}

// FetchPage returns one page of raw records. An empty slice means the listing is exhausted.
func (c *Client) FetchPage(ctx context.Context, resource Resource, filter Filter, page, limit int) ([]json.RawMessage, error) {
	return fetchPage[json.RawMessage](ctx, c, resource, filter, page, limit)
}

func (c *Client) GetLeads(ctx context.Context, filter Filter, page int) ([]Lead, error) {
	return fetchPage[Lead](ctx, c, ResourceLeads, filter, page, PageSize)
}

// GetEvents lists lead events only; contact and company events are never requested.
func (c *Client) GetEvents(ctx context.Context, filter Filter, page int) ([]Event, error) {
	return fetchPage[Event](ctx, c, ResourceEvents, filter, page, PageSize)
}

func (c *Client) GetUsers(ctx context.Context) ([]User, error) {
	var all []User
	for page := 1; ; page++ {
		users, err := fetchPage[User](ctx, c, ResourceUsers, Filter{}, page, PageSize)
		if err != nil {
			return nil, err
		}
		all = append(all, users...)
		if len(users) < PageSize {
			return all, nil
		}
	}
}

// GetPipelines is not paginated by Kommo; every pipeline comes with its statuses embedded.
func (c *Client) GetPipelines(ctx context.Context) ([]Pipeline, error) {
	body, err := c.get(ctx, string(ResourcePipelines), ResourcePipelines.path(), nil)
	if err != nil {
		return nil, err
	}
	return decodeEmbedded[Pipeline](body, string(ResourcePipelines))
}

func fetchPage[T any](ctx context.Context, c *Client, resource Resource, filter Filter, page, limit int) ([]T, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("page", strconv.Itoa(page))
	filter.apply(q)
	if resource == ResourceEvents {
		q.Set("filter[entity]", "lead")
	}

	body, err := c.get(ctx, string(resource), resource.path(), q)
	if err != nil {
		return nil, err
	}
	return decodeEmbedded[T](body, string(resource))
}

func decodeEmbedded[T any](body []byte, key string) ([]T, error) {
	if len(body) == 0 {
		return nil, nil
	}

	var envelope struct {
		Embedded map[string]json.RawMessage `json:"_embedded"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("malformed kommo response for %s: %w", key, err)
	}

	raw, ok := envelope.Embedded[key]
	if !ok || len(raw) == 0 {
		return nil, nil
	}

	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("malformed kommo %s payload: %w", key, err)
	}
	return items, nil
}

// get performs a GET with the limiter in front of every attempt. Transient
// failures are retried with 2s, 4s, 8s, 16s, 32s waits before giving up.
func (c *Client) get(ctx context.Context, label, path string, q url.Values) ([]byte, error) {
	var body []byte
	attempt := 0

	operation := func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(fmt.Errorf("rate limiter: %w", err))
		}

		b, err := c.do(ctx, label, path, q)
		if err != nil {
			if IsRetryable(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		body = b
		return nil
	}

	notify := func(err error, wait time.Duration) {
		attempt++
		middleware.RecordKommoRetry(label)
		logging.Ctx(ctx).Warn().
			Err(err).
			Str("resource", label).
			Int("attempt", attempt).
			Int("max_attempts", c.maxRetries).
			Dur("wait", wait).
			Msgf("⚠️ Kommo API/network error, retrying in %s", wait)
	}

	var timer backoff.Timer
	if c.newTimer != nil {
		timer = c.newTimer()
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), uint64(c.maxRetries)), ctx)
	if err := backoff.RetryNotifyWithTimer(operation, policy, notify, timer); err != nil {
		middleware.RecordIntegrationError("kommo")
		return nil, err
	}
	return body, nil
}

func (c *Client) newBackOff() *backoff.ExponentialBackOff {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     c.initialBackoff,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         c.initialBackoff << 5,
		MaxElapsedTime:      0,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
	b.Reset()
	return b
}

func (c *Client) do(ctx context.Context, label, path string, q url.Values) ([]byte, error) {
	endpoint := c.baseURL + path
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	c.addAuthHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		middleware.RecordKommoRequest(label, "error")
		return nil, err
	}
	defer resp.Body.Close()

	middleware.RecordKommoRequest(label, strconv.Itoa(resp.StatusCode))

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read kommo response: %w", err)
	}

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Path: path, Body: string(body)}
	}

	return body, nil
}

func (c *Client) addAuthHeaders(req *http.Request) {
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiToken))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
}
