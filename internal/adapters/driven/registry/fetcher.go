package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/airbridge/internal/core/domain"
	"github.com/custodia-labs/airbridge/internal/core/ports/driven"
	"github.com/custodia-labs/airbridge/internal/logger"
)

// Ensure Fetcher implements the interface.
var _ driven.SpecFetcher = (*Fetcher)(nil)

const (
	// DefaultTimeout bounds a single HTTP request.
	DefaultTimeout = 30 * time.Second

	// DefaultRetries is how many attempts a transient failure gets.
	DefaultRetries = 3

	// DefaultRequestsPerSecond throttles registry traffic.
	DefaultRequestsPerSecond = 2.0

	// DefaultBurst allows short request bursts within the rate.
	DefaultBurst = 4

	// retryDelay is the base pause between attempts, scaled linearly.
	retryDelay = 500 * time.Millisecond

	// maxDocumentBytes caps a fetched document.
	maxDocumentBytes = 10 << 20
)

// Config configures the fetcher.
type Config struct {
	// Timeout is the per-request timeout (default: 30s).
	Timeout time.Duration

	// Retries is the attempt budget for transient failures (default: 3).
	Retries int

	// RequestsPerSecond is the rate limit (default: 2).
	RequestsPerSecond float64

	// Burst is the rate limiter burst size (default: 4).
	Burst int
}

// Fetcher retrieves specification and catalog documents.
type Fetcher struct {
	client  *http.Client
	limiter *rate.Limiter
	retries int
}

// NewFetcher creates a fetcher, filling zero config fields with defaults.
func NewFetcher(cfg Config) *Fetcher {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retries <= 0 {
		cfg.Retries = DefaultRetries
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if cfg.Burst <= 0 {
		cfg.Burst = DefaultBurst
	}

	return &Fetcher{
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		retries: cfg.Retries,
	}
}

// FetchSpec retrieves a connector specification document and parses it as
// JSON or YAML.
func (f *Fetcher) FetchSpec(ctx context.Context, location string) (map[string]any, error) {
	body, err := f.FetchDocument(ctx, location)
	if err != nil {
		return nil, err
	}
	return parseSpec(body)
}

// FetchDocument retrieves a document verbatim from an http(s) URL or a
// local path.
func (f *Fetcher) FetchDocument(ctx context.Context, location string) ([]byte, error) {
	if isHTTP(location) {
		return f.get(ctx, location)
	}
	data, err := os.ReadFile(location)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("document %s: %w", location, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read document %s: %w", location, err)
	}
	return data, nil
}

// get fetches a URL with rate limiting and retries. Transport errors and
// 5xx responses are retried; other statuses fail fast.
func (f *Fetcher) get(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= f.retries; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryDelay * time.Duration(attempt-1)):
			}
		}
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		body, retryable, err := f.getOnce(ctx, url)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retryable {
			break
		}
		logger.Warn("fetch %s attempt %d/%d failed: %v", url, attempt, f.retries, err)
	}
	return nil, fmt.Errorf("fetch %s: %w", url, lastErr)
}

func (f *Fetcher) getOnce(ctx context.Context, url string) (body []byte, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, fmt.Errorf("create request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
	if err != nil {
		return nil, true, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, false, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, false, fmt.Errorf("%w: status 404", domain.ErrNotFound)
	case resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("status %d", resp.StatusCode)
	default:
		return nil, false, fmt.Errorf("status %d", resp.StatusCode)
	}
}

// parseSpec decodes a document body as JSON first, then YAML.
func parseSpec(body []byte) (map[string]any, error) {
	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err == nil && doc != nil {
		return doc, nil
	}
	doc = nil
	if err := yaml.Unmarshal(body, &doc); err == nil && doc != nil {
		return doc, nil
	}
	return nil, fmt.Errorf("%w: document is neither a JSON nor a YAML object", domain.ErrSpecInvalid)
}

func isHTTP(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}
