// Package requestor is the stateless HTTP GET wrapper used by polling and
// by one-shot single-flag/single-segment fetches. Persistent connections
// come from a shared *retryablehttp.Client configured to make a single
// attempt per Get: a transport-level failure (DNS, connection reset,
// timeout) is returned as an error and retried only by the data source's
// own schedule. HTTP status handling, including the 304/ETag dance and the
// unrecoverable-4xx cutoff, is this package's and the data source's own
// responsibility, not retryablehttp's.
package requestor

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/flagcore/flagcore-go/pkg/ldlog"
	"github.com/flagcore/flagcore-go/pkg/ldmodel"
)

type cacheEntry struct {
	etag string
	body []byte
}

// Requestor performs single-shot authenticated GETs with ETag caching,
// keyed per URL.
type Requestor struct {
	client    *retryablehttp.Client
	sdkKey    string
	userAgent string

	mu    sync.Mutex
	cache map[string]cacheEntry

	log ldlog.Loggers
}

// New builds a Requestor. connectTimeout/readTimeout bound the underlying
// HTTP client's dial and response timeouts.
func New(sdkKey, userAgent string, connectTimeout, readTimeout time.Duration, log ldlog.Loggers) *Requestor {
	if log == nil {
		log = ldlog.NewDefaultLoggers()
	}
	rc := retryablehttp.NewClient()
	rc.RetryMax = 0 // the data source owns retry/backoff policy, not this transport
	rc.Logger = nil
	// Only transport errors count as failures here; every HTTP response,
	// whatever its status, is handed back to Get's own status handling.
	rc.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		return err != nil, nil
	}
	rc.HTTPClient.Timeout = readTimeout
	if t, ok := rc.HTTPClient.Transport.(*http.Transport); ok {
		t.DialContext = (&net.Dialer{Timeout: connectTimeout}).DialContext
	}
	return &Requestor{
		client:    rc,
		sdkKey:    sdkKey,
		userAgent: userAgent,
		cache:     map[string]cacheEntry{},
		log:       log,
	}
}

// Get fetches url, returning the cached body unmodified on a 304, or the
// fresh body on 2xx (after updating the ETag cache). Any other status
// returns *ldmodel.ErrUnexpectedResponse.
func (r *Requestor) Get(ctx context.Context, url string) ([]byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", r.sdkKey)
	req.Header.Set("User-Agent", r.userAgent)

	r.mu.Lock()
	cached, hasCached := r.cache[url]
	r.mu.Unlock()
	if hasCached {
		req.Header.Set("If-None-Match", cached.etag)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotModified:
		r.log.Debugf("304 not modified for %s", url)
		return cached.body, nil
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		etag := resp.Header.Get("ETag")
		if etag != "" {
			r.mu.Lock()
			r.cache[url] = cacheEntry{etag: etag, body: body}
			r.mu.Unlock()
		}
		return body, nil
	default:
		return nil, &ldmodel.ErrUnexpectedResponse{Status: resp.StatusCode, URL: url}
	}
}

func (r *Requestor) String() string {
	return fmt.Sprintf("requestor(agent=%s)", r.userAgent)
}
