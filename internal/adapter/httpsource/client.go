package httpsource

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	cleanhttp "github.com/hashicorp/go-cleanhttp"

	"github.com/vertextoedge/aaxfetch/internal/domain"
	"github.com/vertextoedge/aaxfetch/internal/domain/vo"
	"github.com/vertextoedge/aaxfetch/internal/port"
)

// DefaultUserAgent is the desktop download manager string the content service expects
const DefaultUserAgent = "Audible ADM 6.6.0.19;Windows Vista  Build 9200"

// Options configures the HTTP source
type Options struct {
	UserAgent             string
	ResponseHeaderTimeout time.Duration
	ProbeTimeout          time.Duration
}

// Client talks to the content service over HTTP
type Client struct {
	httpClient *http.Client
	opts       Options
}

// Ensure Client implements port.RemoteSource
var _ port.RemoteSource = (*Client)(nil)

// NewClient creates a client on a pooled transport tuned for one large download
func NewClient(opts Options) *Client {
	transport := cleanhttp.DefaultPooledTransport()
	// Raw bytes only, compression would break byte offsets
	transport.DisableCompression = true
	transport.ResponseHeaderTimeout = opts.ResponseHeaderTimeout

	return NewClientWithHTTP(&http.Client{
		Transport: transport,
		Timeout:   0, // No timeout for downloads
	}, opts)
}

// NewClientWithHTTP creates a client on a caller supplied http.Client
func NewClientWithHTTP(hc *http.Client, opts Options) *Client {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = 30 * time.Second
	}
	return &Client{
		httpClient: hc,
		opts:       opts,
	}
}

// Probe discovers the total size and range support of the resource
func (c *Client) Probe(ctx context.Context, loc domain.Locator) (*domain.RemoteResource, error) {
	if err := loc.Validate(); err != nil {
		return nil, domain.NewFatalError("probe", err)
	}

	probeCtx, cancel := context.WithTimeout(ctx, c.opts.ProbeTimeout)
	defer cancel()

	resp, err := c.do(probeCtx, http.MethodHead, loc, "")
	if err != nil {
		return nil, c.transportError(ctx, "probe", err)
	}
	resp.Body.Close()

	res := &domain.RemoteResource{
		TotalSize: vo.UnknownSize(),
		Locator:   loc,
	}

	switch {
	case resp.StatusCode == http.StatusMethodNotAllowed || resp.StatusCode == http.StatusNotImplemented:
		// HEAD unsupported, ask with a one byte range instead
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		res.TotalSize = vo.FromContentLength(resp.ContentLength)
		res.SupportsRanges = acceptsBytes(resp.Header)
		res.ContentType = resp.Header.Get("Content-Type")
		if res.TotalSize.Known() && res.SupportsRanges {
			return res, nil
		}
	default:
		return nil, statusError("probe", resp)
	}

	return c.probeRange(ctx, probeCtx, loc, res)
}

// probeRange issues GET bytes=0-0 and reads the total from Content-Range
func (c *Client) probeRange(parent, ctx context.Context, loc domain.Locator, res *domain.RemoteResource) (*domain.RemoteResource, error) {
	resp, err := c.do(ctx, http.MethodGet, loc, "bytes=0-0")
	if err != nil {
		return nil, c.transportError(parent, "probe", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "" && res.ContentType == "" {
		res.ContentType = ct
	}

	switch resp.StatusCode {
	case http.StatusPartialContent:
		_, _, total, err := ParseContentRange(resp.Header.Get("Content-Range"))
		if err != nil {
			return nil, domain.NewRetryableError("probe", fmt.Errorf("%w: %v", domain.ErrInvalidContentRange, err), 0)
		}
		res.SupportsRanges = true
		if total >= 0 {
			res.TotalSize = vo.MustByteSize(total)
		}
		return res, nil

	case http.StatusOK:
		// Range ignored, the body is the whole resource
		res.SupportsRanges = false
		if size := vo.FromContentLength(resp.ContentLength); size.Known() {
			res.TotalSize = size
		}
		return res, nil

	case http.StatusRequestedRangeNotSatisfiable:
		// Only an empty resource cannot satisfy bytes=0-0
		_, _, total, err := ParseContentRange(resp.Header.Get("Content-Range"))
		if err != nil || total < 0 {
			total = 0
		}
		res.SupportsRanges = true
		res.TotalSize = vo.MustByteSize(total)
		return res, nil
	}

	return nil, statusError("probe", resp)
}

// Fetch requests the resource body, from offset when ranged is set
func (c *Client) Fetch(ctx context.Context, loc domain.Locator, offset int64, ranged bool) (*port.RemoteBody, error) {
	if err := loc.Validate(); err != nil {
		return nil, domain.NewFatalError("fetch", err)
	}

	rangeHeader := ""
	if ranged {
		rangeHeader = fmt.Sprintf("bytes=%d-", offset)
	}

	resp, err := c.do(ctx, http.MethodGet, loc, rangeHeader)
	if err != nil {
		return nil, c.transportError(ctx, "fetch", err)
	}

	switch resp.StatusCode {
	case http.StatusPartialContent:
		start, end, total, err := ParseContentRange(resp.Header.Get("Content-Range"))
		if err != nil {
			resp.Body.Close()
			return nil, domain.NewRestartError("fetch", fmt.Errorf("%w: %v", domain.ErrInvalidContentRange, err))
		}
		if start != offset {
			resp.Body.Close()
			return nil, domain.NewRestartError("fetch",
				fmt.Errorf("%w: starts at %d, requested %d", domain.ErrInvalidContentRange, start, offset))
		}
		if total >= 0 && end != total-1 {
			resp.Body.Close()
			return nil, domain.NewRestartError("fetch",
				fmt.Errorf("%w: ends at %d of %d", domain.ErrInvalidContentRange, end, total))
		}

		size := vo.UnknownSize()
		if total >= 0 {
			size = vo.MustByteSize(total)
		}
		return &port.RemoteBody{
			Body:      resp.Body,
			Partial:   true,
			Start:     start,
			TotalSize: size,
		}, nil

	case http.StatusOK:
		if ranged && offset > 0 {
			resp.Body.Close()
			return nil, domain.NewRestartError("fetch", domain.ErrServerRejectedRange)
		}
		return &port.RemoteBody{
			Body:      resp.Body,
			TotalSize: vo.FromContentLength(resp.ContentLength),
		}, nil

	case http.StatusRequestedRangeNotSatisfiable:
		resp.Body.Close()
		return nil, domain.NewRestartError("fetch", domain.ErrRangeNotSatisfiable)
	}

	defer resp.Body.Close()
	return nil, statusError("fetch", resp)
}

func (c *Client) do(ctx context.Context, method string, loc domain.Locator, rangeHeader string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, loc.URL, nil)
	if err != nil {
		return nil, domain.NewFatalError("request", fmt.Errorf("%w: %v", domain.ErrInvalidLocator, err))
	}

	req.Header.Set("User-Agent", c.opts.UserAgent)
	if loc.Authorization != "" {
		req.Header.Set("Authorization", loc.Authorization)
	}
	if rangeHeader != "" {
		req.Header.Set("Range", rangeHeader)
	}

	return c.httpClient.Do(req)
}

// transportError classifies a failed round trip. A canceled parent context is a
// caller abort; anything else is treated as a transient network condition.
func (c *Client) transportError(parent context.Context, op string, err error) error {
	var te *domain.TransferError
	if errors.As(err, &te) {
		return err
	}
	if parent.Err() != nil {
		return domain.NewFatalError(op, parent.Err())
	}
	return domain.NewRetryableError(op, fmt.Errorf("%w: %v", domain.ErrRemoteUnavailable, err), 0)
}

// statusError maps an unhandled response status to a classified error
func statusError(op string, resp *http.Response) error {
	code := resp.StatusCode
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return domain.NewFatalError(op, fmt.Errorf("%w: %d", domain.ErrUnauthorized, code))
	case code == http.StatusNotFound, code == http.StatusGone,
		code == http.StatusRequestTimeout, code == http.StatusTooManyRequests,
		code >= 500:
		retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"), time.Now())
		return domain.NewRetryableError(op,
			fmt.Errorf("%w: %w", domain.ErrRemoteUnavailable, &domain.StatusError{Code: code, Status: resp.Status}),
			retryAfter)
	default:
		return domain.NewFatalError(op, &domain.StatusError{Code: code, Status: resp.Status})
	}
}

func acceptsBytes(h http.Header) bool {
	for _, v := range h.Values("Accept-Ranges") {
		for _, unit := range strings.Split(v, ",") {
			if strings.EqualFold(strings.TrimSpace(unit), "bytes") {
				return true
			}
		}
	}
	return false
}

// parseRetryAfter accepts delay-seconds or an HTTP date
func parseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(value); err == nil {
		if d := t.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}
