package imageref

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shouni/go-http-kit/pkg/httpkit"
)

// DefaultMaxFetchBytes bounds a single remote image download.
const DefaultMaxFetchBytes = 20 << 20

const (
	defaultFetchTimeout = 30 * time.Second
	maxRedirects        = 5
)

// ErrUnsafeURL is returned for locators that point at a disallowed scheme or a
// private network.
var ErrUnsafeURL = errors.New("imageref: unsafe url")

// Fetcher downloads remote locators for providers that only take raw bytes.
type Fetcher struct {
	client   httpkit.ClientInterface
	maxBytes int64
	lookupIP func(host string) ([]net.IP, error)
}

// FetcherOptions configures a Fetcher.
type FetcherOptions struct {
	// Client replaces the built-in guarded client. The URL guard still runs
	// before each download, redirects and dialing are up to the client.
	Client httpkit.ClientInterface
	// HTTPClient is the base for the built-in client. Its CheckRedirect is
	// always replaced by the URL guard.
	HTTPClient *http.Client
	MaxBytes   int64
	// LookupIP overrides DNS resolution. Tests use it to point at httptest
	// servers without tripping the private network guard.
	LookupIP func(host string) ([]net.IP, error)
}

// NewFetcher builds a Fetcher with defaults for zero options.
func NewFetcher(opts FetcherOptions) *Fetcher {
	f := &Fetcher{maxBytes: opts.MaxBytes, lookupIP: opts.LookupIP}
	if f.maxBytes <= 0 {
		f.maxBytes = DefaultMaxFetchBytes
	}
	if f.lookupIP == nil {
		f.lookupIP = net.LookupIP
	}
	f.client = opts.Client
	if f.client == nil {
		f.client = f.newGuardedClient(opts.HTTPClient)
	}
	return f
}

// Resolve returns payload bytes for ref: inline references are decoded,
// remote locators are downloaded.
func (f *Fetcher) Resolve(ctx context.Context, ref string) ([]byte, error) {
	if IsInline(ref) {
		return Decode(ref), nil
	}
	return f.Fetch(ctx, ref)
}

// Fetch downloads rawURL after checking it against the SSRF guard.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	rawURL = strings.TrimSpace(rawURL)
	if err := f.checkURL(rawURL); err != nil {
		return nil, err
	}
	data, err := f.client.FetchBytes(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("imageref: download: %w", err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("imageref: download: image exceeds %d bytes", f.maxBytes)
	}
	return data, nil
}

func (f *Fetcher) checkURL(rawURL string) error {
	parsed, err := url.ParseRequestURI(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnsafeURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%w: scheme %q", ErrUnsafeURL, parsed.Scheme)
	}
	_, err = f.resolvePublic(parsed.Hostname())
	return err
}

// resolvePublic resolves host and fails unless every address is public.
func (f *Fetcher) resolvePublic(host string) ([]net.IP, error) {
	var ips []net.IP
	if ip := net.ParseIP(host); ip != nil {
		ips = []net.IP{ip}
	} else {
		resolved, err := f.lookupIP(host)
		if err != nil {
			return nil, fmt.Errorf("%w: resolve %s: %v", ErrUnsafeURL, host, err)
		}
		ips = resolved
	}
	if len(ips) == 0 {
		return nil, fmt.Errorf("%w: no address for %s", ErrUnsafeURL, host)
	}
	for _, ip := range ips {
		if restrictedIP(ip) {
			return nil, fmt.Errorf("%w: restricted address %s", ErrUnsafeURL, ip)
		}
	}
	return ips, nil
}

func restrictedIP(ip net.IP) bool {
	return ip.IsPrivate() || ip.IsLoopback() || ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() || ip.IsUnspecified()
}

// guardedClient is the default httpkit client. Every redirect hop goes
// through the URL guard and the default transport dials only addresses the
// guard resolved itself, so a second DNS answer never reaches the socket.
type guardedClient struct {
	http     *http.Client
	maxBytes int64
}

var _ httpkit.ClientInterface = (*guardedClient)(nil)

func (f *Fetcher) newGuardedClient(base *http.Client) *guardedClient {
	var hc http.Client
	if base != nil {
		hc = *base
	} else {
		hc = http.Client{Timeout: defaultFetchTimeout, Transport: f.guardedTransport()}
	}
	hc.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return fmt.Errorf("stopped after %d redirects", maxRedirects)
		}
		return f.checkURL(req.URL.String())
	}
	return &guardedClient{http: &hc, maxBytes: f.maxBytes}
}

func (f *Fetcher) guardedTransport() *http.Transport {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	// a proxy would be dialed instead of the checked host
	transport.Proxy = nil
	transport.DialContext = f.dialPublic(&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second})
	return transport
}

func (f *Fetcher) dialPublic(dialer *net.Dialer) func(ctx context.Context, network, addr string) (net.Conn, error) {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, err
		}
		ips, err := f.resolvePublic(host)
		if err != nil {
			return nil, err
		}
		var lastErr error
		for _, ip := range ips {
			conn, err := dialer.DialContext(ctx, network, net.JoinHostPort(ip.String(), port))
			if err == nil {
				return conn, nil
			}
			lastErr = err
		}
		return nil, lastErr
	}
}

func (c *guardedClient) DoRequest(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(data)) > c.maxBytes {
		return nil, fmt.Errorf("image exceeds %d bytes", c.maxBytes)
	}
	return data, nil
}

func (c *guardedClient) FetchBytes(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	return c.DoRequest(req)
}

func (c *guardedClient) FetchAndDecodeJSON(ctx context.Context, rawURL string, v any) error {
	data, err := c.FetchBytes(ctx, rawURL)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func (c *guardedClient) PostJSONAndFetchBytes(ctx context.Context, rawURL string, data any) ([]byte, error) {
	body, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode body: %w", err)
	}
	return c.PostRawBodyAndFetchBytes(ctx, rawURL, body, "application/json")
}

func (c *guardedClient) PostRawBodyAndFetchBytes(ctx context.Context, rawURL string, body []byte, contentType string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	return c.DoRequest(req)
}
