package httpsource

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/vertextoedge/aaxfetch/internal/domain"
)

func payload(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i % 251)
	}
	return b
}

// rangeServer serves content with full Range support
func rangeServer(t *testing.T, content []byte) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeContent(w, r, "book.aax", time.Time{}, bytes.NewReader(content))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient() *Client {
	return NewClient(Options{ResponseHeaderTimeout: 5 * time.Second})
}

func TestClient_ProbeHead(t *testing.T) {
	srv := rangeServer(t, payload(1000))

	res, err := newTestClient().Probe(context.Background(), domain.Locator{URL: srv.URL})
	if err != nil {
		t.Fatalf("Probe() error = %v", err)
	}
	if res.TotalSize.Bytes() != 1000 {
		t.Errorf("TotalSize = %v, want 1000", res.TotalSize.Bytes())
	}
	if !res.SupportsRanges {
		t.Error("SupportsRanges = false, want true")
	}
}

func TestClient_ProbeSendsHeaders(t *testing.T) {
	var gotUA, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Accept-Ranges", "bytes")
		w.Header().Set("Content-Length", "10")
	}))
	defer srv.Close()

	_, err := newTestClient().Probe(context.Background(), domain.Locator{URL: srv.URL, Authorization: "Bearer opaque"})
	if err != nil {
		t.Fatalf("Probe() error = %v", err)
	}
	if gotUA != DefaultUserAgent {
		t.Errorf("User-Agent = %q, want %q", gotUA, DefaultUserAgent)
	}
	if gotAuth != "Bearer opaque" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer opaque")
	}
}

func TestClient_ProbeFallsBackToRangedGet(t *testing.T) {
	content := payload(1000000)
	var methods []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method)
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		http.ServeContent(w, r, "book.aax", time.Time{}, bytes.NewReader(content))
	}))
	defer srv.Close()

	res, err := newTestClient().Probe(context.Background(), domain.Locator{URL: srv.URL})
	if err != nil {
		t.Fatalf("Probe() error = %v", err)
	}
	if res.TotalSize.Bytes() != 1000000 || !res.SupportsRanges {
		t.Errorf("Probe() = (%v, %v), want (1000000, true)", res.TotalSize.Bytes(), res.SupportsRanges)
	}
	if strings.Join(methods, ",") != "HEAD,GET" {
		t.Errorf("methods = %v, want HEAD then GET", methods)
	}
}

func TestClient_ProbeNoRangeSupport(t *testing.T) {
	content := payload(500)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "500")
		if r.Method == http.MethodGet {
			w.Write(content)
		}
	}))
	defer srv.Close()

	res, err := newTestClient().Probe(context.Background(), domain.Locator{URL: srv.URL})
	if err != nil {
		t.Fatalf("Probe() error = %v", err)
	}
	if res.SupportsRanges {
		t.Error("SupportsRanges = true, want false")
	}
	if res.TotalSize.Bytes() != 500 {
		t.Errorf("TotalSize = %v, want 500", res.TotalSize.Bytes())
	}
}

func TestClient_ProbeUnknownSize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Accept-Ranges", "bytes")
		if r.Method == http.MethodGet {
			w.Header().Set("Content-Range", "bytes 0-0/*")
			w.WriteHeader(http.StatusPartialContent)
			w.Write([]byte{0})
		}
	}))
	defer srv.Close()

	res, err := newTestClient().Probe(context.Background(), domain.Locator{URL: srv.URL})
	if err != nil {
		t.Fatalf("Probe() error = %v", err)
	}
	if res.TotalSize.Known() {
		t.Errorf("TotalSize = %v, want unknown", res.TotalSize)
	}
	if !res.SupportsRanges {
		t.Error("SupportsRanges = false, want true")
	}
}

func TestClient_ProbeStatusClassification(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		retryAfter string
		wantClass  domain.FailureClass
		wantIs     error
		wantDelay  time.Duration
	}{
		{"unauthorized", http.StatusUnauthorized, "", domain.ClassFatal, domain.ErrUnauthorized, 0},
		{"forbidden", http.StatusForbidden, "", domain.ClassFatal, domain.ErrUnauthorized, 0},
		{"expired link", http.StatusNotFound, "", domain.ClassRetryable, domain.ErrRemoteUnavailable, 0},
		{"gone", http.StatusGone, "", domain.ClassRetryable, domain.ErrRemoteUnavailable, 0},
		{"throttled", http.StatusTooManyRequests, "7", domain.ClassRetryable, domain.ErrRemoteUnavailable, 7 * time.Second},
		{"unavailable", http.StatusServiceUnavailable, "2", domain.ClassRetryable, domain.ErrRemoteUnavailable, 2 * time.Second},
		{"bad request", http.StatusBadRequest, "", domain.ClassFatal, domain.ErrUnexpectedStatus, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.retryAfter != "" {
					w.Header().Set("Retry-After", tt.retryAfter)
				}
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			_, err := newTestClient().Probe(context.Background(), domain.Locator{URL: srv.URL})
			if err == nil {
				t.Fatal("Probe() error = nil")
			}
			if got := domain.Classify(err); got != tt.wantClass {
				t.Errorf("Classify() = %v, want %v", got, tt.wantClass)
			}
			if !errors.Is(err, tt.wantIs) {
				t.Errorf("error = %v, want %v", err, tt.wantIs)
			}
			delay, _ := domain.GetRetryAfter(err)
			if delay != tt.wantDelay {
				t.Errorf("RetryAfter = %v, want %v", delay, tt.wantDelay)
			}
		})
	}
}

func TestClient_ProbeInvalidLocator(t *testing.T) {
	_, err := newTestClient().Probe(context.Background(), domain.Locator{URL: "ftp://example.com/book"})
	if !domain.IsFatal(err) || !errors.Is(err, domain.ErrInvalidLocator) {
		t.Errorf("Probe() error = %v, want fatal ErrInvalidLocator", err)
	}
}

func TestClient_ProbeUnreachableIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := newTestClient().Probe(context.Background(), domain.Locator{URL: url})
	if !domain.IsRetryable(err) {
		t.Errorf("Probe() error = %v, want retryable", err)
	}
}

func TestClient_ProbeCanceledIsFatal(t *testing.T) {
	srv := rangeServer(t, payload(10))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestClient().Probe(ctx, domain.Locator{URL: srv.URL})
	if !domain.IsFatal(err) || !errors.Is(err, context.Canceled) {
		t.Errorf("Probe() error = %v, want fatal context.Canceled", err)
	}
}

func TestClient_FetchRanged(t *testing.T) {
	content := payload(1000)
	srv := rangeServer(t, content)

	body, err := newTestClient().Fetch(context.Background(), domain.Locator{URL: srv.URL}, 400, true)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	defer body.Body.Close()

	if !body.Partial || body.Start != 400 || body.TotalSize.Bytes() != 1000 {
		t.Errorf("Fetch() = partial %v start %d total %d", body.Partial, body.Start, body.TotalSize.Bytes())
	}
	got, _ := io.ReadAll(body.Body)
	if !bytes.Equal(got, content[400:]) {
		t.Errorf("body length %d, want %d bytes from offset 400", len(got), 600)
	}
}

func TestClient_FetchWholeBody(t *testing.T) {
	content := payload(300)
	var gotRange string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRange = r.Header.Get("Range")
		w.Write(content)
	}))
	defer srv.Close()

	body, err := newTestClient().Fetch(context.Background(), domain.Locator{URL: srv.URL}, 0, false)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	defer body.Body.Close()

	if gotRange != "" {
		t.Errorf("Range header = %q, want none", gotRange)
	}
	if body.Partial {
		t.Error("Partial = true, want false")
	}
}

func TestClient_FetchRangeIgnored(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload(100))
	}))
	defer srv.Close()

	c := newTestClient()

	_, err := c.Fetch(context.Background(), domain.Locator{URL: srv.URL}, 40, true)
	if !errors.Is(err, domain.ErrServerRejectedRange) || !domain.RequiresRestart(err) {
		t.Errorf("Fetch(offset 40) error = %v, want restart ErrServerRejectedRange", err)
	}

	body, err := c.Fetch(context.Background(), domain.Locator{URL: srv.URL}, 0, true)
	if err != nil {
		t.Fatalf("Fetch(offset 0) error = %v", err)
	}
	body.Body.Close()
}

func TestClient_FetchRangeNotSatisfiable(t *testing.T) {
	srv := rangeServer(t, payload(100))

	_, err := newTestClient().Fetch(context.Background(), domain.Locator{URL: srv.URL}, 100, true)
	if !errors.Is(err, domain.ErrRangeNotSatisfiable) {
		t.Errorf("Fetch() error = %v, want ErrRangeNotSatisfiable", err)
	}
}

func TestClient_FetchWrongContentRange(t *testing.T) {
	tests := []struct {
		name         string
		contentRange string
	}{
		{"wrong start", "bytes 10-99/100"},
		{"short range", "bytes 40-80/100"},
		{"garbage", "items 1-2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Range", tt.contentRange)
				w.WriteHeader(http.StatusPartialContent)
			}))
			defer srv.Close()

			_, err := newTestClient().Fetch(context.Background(), domain.Locator{URL: srv.URL}, 40, true)
			if !errors.Is(err, domain.ErrInvalidContentRange) || !domain.RequiresRestart(err) {
				t.Errorf("Fetch() error = %v, want restart ErrInvalidContentRange", err)
			}
		})
	}
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		value string
		want  time.Duration
	}{
		{"", 0},
		{"5", 5 * time.Second},
		{"-3", 0},
		{now.Add(90 * time.Second).Format(http.TimeFormat), 90 * time.Second},
		{now.Add(-time.Minute).Format(http.TimeFormat), 0},
		{"soon", 0},
	}

	for _, tt := range tests {
		if got := parseRetryAfter(tt.value, now); got != tt.want {
			t.Errorf("parseRetryAfter(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}
