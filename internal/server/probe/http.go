package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/warrantypool/internal/logging"
	"golang.org/x/time/rate"
)

const (
	DefaultTimeout = 25 * time.Second
	maxBodyDrain   = 64 << 10
)

// Config describes the upstream landing page and how to read the answer.
type Config struct {
	// URL is the landing page requested with the session cookies.
	URL string
	// AuthenticatedPrefix is the path prefix the final URL has when the
	// session is valid.
	AuthenticatedPrefix string
	// LoginMarker, when found in the final URL, means the upstream bounced
	// the request to a login page.
	LoginMarker string
	Timeout     time.Duration
	// RatePerSecond limits probe starts; zero disables limiting.
	RatePerSecond float64
	Burst         int
}

// HTTPProber replays session cookies against the landing page in a fresh
// cookie jar per probe and inspects where the redirects end.
type HTTPProber struct {
	cfg       Config
	target    *url.URL
	limiter   *rate.Limiter
	transport http.RoundTripper
	log       logging.Logger
}

// NewHTTPProber validates cfg and builds a prober. A nil transport uses
// http.DefaultTransport.
func NewHTTPProber(cfg Config, transport http.RoundTripper, log logging.Logger) (*HTTPProber, error) {
	target, err := url.Parse(cfg.URL)
	if err != nil || target.Host == "" {
		return nil, fmt.Errorf("invalid probe url %q", cfg.URL)
	}
	if cfg.AuthenticatedPrefix == "" {
		return nil, errors.New("probe authenticated prefix is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if transport == nil {
		transport = http.DefaultTransport
	}
	if log == nil {
		log = logging.NopLogger{}
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RatePerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}

	return &HTTPProber{
		cfg:       cfg,
		target:    target,
		limiter:   limiter,
		transport: transport,
		log:       log.With("component", "probe"),
	}, nil
}

// Probe never panics and never blocks longer than the configured timeout.
func (p *HTTPProber) Probe(ctx context.Context, token string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{Outcome: Failed, Err: fmt.Errorf("probe panic: %v", r)}
		}
	}()

	cookies, err := Normalize(token)
	if err != nil {
		return Result{Outcome: Failed, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	if err := p.limiter.Wait(ctx); err != nil {
		return Result{Outcome: Failed, Err: fmt.Errorf("rate limit wait: %w", err)}
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return Result{Outcome: Failed, Err: err}
	}
	jar.SetCookies(p.target, p.httpCookies(cookies))

	client := &http.Client{Jar: jar, Transport: p.transport}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.URL, nil)
	if err != nil {
		return Result{Outcome: Failed, Err: err}
	}

	resp, err := client.Do(req)
	if err != nil {
		return Result{Outcome: Failed, Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyDrain))

	if resp.StatusCode >= http.StatusInternalServerError {
		return Result{Outcome: Failed, Err: fmt.Errorf("upstream status %d", resp.StatusCode)}
	}

	final := resp.Request.URL
	p.log.Debug(ctx, "probe finished", "final_url", final.Redacted(), "status", resp.StatusCode)

	if p.authenticated(final) {
		return Result{Outcome: Live}
	}
	return Result{Outcome: Dead}
}

func (p *HTTPProber) authenticated(final *url.URL) bool {
	if !strings.HasPrefix(final.Path, p.cfg.AuthenticatedPrefix) {
		return false
	}
	if p.cfg.LoginMarker != "" && strings.Contains(final.String(), p.cfg.LoginMarker) {
		return false
	}
	return true
}

func (p *HTTPProber) httpCookies(in []Cookie) []*http.Cookie {
	out := make([]*http.Cookie, 0, len(in))
	for _, c := range in {
		// an empty domain makes the jar scope the cookie to the target host
		out = append(out, &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HttpOnly: c.HTTPOnly,
		})
	}
	return out
}
