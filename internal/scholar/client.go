// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package scholar extracts bibliographic records from the Google Scholar web
// interface. A Client owns the HTTP session (cookie jar, headers, session
// identifier) and fetches pages through a randomized delay; a 503 answer is
// treated as a verification challenge and handed to a ChallengeResolver.
// Result pages are walked lazily by a Paginator that yields Publications.
//
// A Client serves one logical caller. It is not safe for concurrent use.
package scholar

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strings"

	"github.com/pdiddy/scholarly/internal/httputil"
	"github.com/pdiddy/scholarly/pkg/types"
)

const (
	// sessionCookie is the cookie carrying the session identifier.
	sessionCookie = "GSP"

	acceptHeader         = "text/html,application/xhtml+xml,application/xml"
	acceptLanguageHeader = "en-US,en"

	defaultMaxChallengeAttempts = 3
)

// Client is the scholar session. Construct it once with NewClient and pass
// it to every operation.
type Client struct {
	httpClient *http.Client
	host       string
	userAgent  string
	sessionID  string
	pacer      *httputil.Pacer
	resolver   *ChallengeResolver
	bib        BibParser
	logger     *slog.Logger

	// options collected before the resolver is assembled
	solver    Solver
	imageHost ImageHost
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client. A cookie jar is attached if the
// client has none.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithSolver sets the capability that turns a challenge image into a typed
// answer. The default reads from standard input.
func WithSolver(s Solver) Option {
	return func(c *Client) {
		c.solver = s
	}
}

// WithImageHost sets where challenge images are published for the operator.
func WithImageHost(h ImageHost) Option {
	return func(c *Client) {
		c.imageHost = h
	}
}

// WithBibParser sets the BibTeX parser used by Fill.
func WithBibParser(p BibParser) Option {
	return func(c *Client) {
		c.bib = p
	}
}

// WithLogger sets the structured logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates a scholar session from cfg.
func NewClient(cfg types.ScholarConfig, opts ...Option) (*Client, error) {
	host := strings.TrimRight(cfg.Host, "/")
	u, err := url.Parse(host)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid search host %q", cfg.Host)
	}

	id, err := newSessionID()
	if err != nil {
		return nil, fmt.Errorf("generating session id: %w", err)
	}

	c := &Client{
		host:      host,
		userAgent: cfg.UserAgent,
		sessionID: id,
		pacer:     httputil.NewPacer(cfg.MinDelay, cfg.DelayJitter, cfg.RequestsPerSecond, cfg.Burst),
		bib:       BibTeXParser{},
		logger:    slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(math.MaxInt)})),
	}
	if c.userAgent == "" {
		c.userAgent = types.DefaultUserAgent
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = types.DefaultScholarConfig().Timeout
		}
		c.httpClient = &http.Client{Timeout: timeout}
	}
	if c.httpClient.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("creating cookie jar: %w", err)
		}
		c.httpClient.Jar = jar
	}
	c.httpClient.Jar = &sessionJar{
		CookieJar: c.httpClient.Jar,
		host:      u.Host,
		cookie:    &http.Cookie{Name: sessionCookie, Value: "ID=" + id + ":CF=4"},
	}

	if c.imageHost == nil {
		endpoint := cfg.ImageHostURL
		if endpoint == "" {
			endpoint = types.DefaultScholarConfig().ImageHostURL
		}
		c.imageHost = &PostImageHost{Endpoint: endpoint, Client: c.httpClient}
	}
	if c.solver == nil {
		c.solver = &ConsoleSolver{In: os.Stdin, Out: os.Stdout}
	}

	maxAttempts := cfg.MaxChallengeAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxChallengeAttempts
	}
	c.resolver = &ChallengeResolver{
		client:      c,
		solver:      c.solver,
		imageHost:   c.imageHost,
		maxAttempts: maxAttempts,
	}

	return c, nil
}

// SessionID returns the 16-character hex identifier sent in the session cookie.
func (c *Client) SessionID() string { return c.sessionID }

// Host returns the search host the client talks to.
func (c *Client) Host() string { return c.host }

// Fetch returns the body of the page at path (relative to the search host).
// Every call first pauses for the configured randomized delay. A 503 answer
// is resolved as a verification challenge and the resolved page is
// returned as if the first request had succeeded. Any other non-200 status
// fails with a *RemoteError.
func (c *Client) Fetch(ctx context.Context, path string) (string, error) {
	run := c.resolver.begin()
	for {
		if err := c.pacer.Pause(ctx); err != nil {
			return "", err
		}

		resp, err := c.get(ctx, c.host+path)
		if err != nil {
			return "", fmt.Errorf("fetching %s: %w", path, err)
		}
		c.logger.Debug("fetched page", "path", path, "status", resp.StatusCode)

		switch resp.StatusCode {
		case http.StatusOK:
			return string(resp.Body), nil
		case http.StatusServiceUnavailable:
			next, err := run.resolve(ctx, path, string(resp.Body))
			if err != nil {
				return "", err
			}
			path = next
		default:
			return "", &RemoteError{StatusCode: resp.StatusCode, Status: resp.Status, Path: path}
		}
	}
}

// response is a fully read HTTP response.
type response struct {
	StatusCode int
	Status     string
	Body       []byte
	// FinalURL is the URL after redirects were followed.
	FinalURL string
}

// get issues one GET through the session: rate gate, headers and cookie
// jar. The jar supplies the session cookie.
func (c *Client) get(ctx context.Context, rawURL string) (*response, error) {
	if err := c.pacer.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("Accept-Language", acceptLanguageHeader)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	return &response{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       body,
		FinalURL:   resp.Request.URL.String(),
	}, nil
}

// sessionJar sends exactly one session cookie, the client's own, to the
// search host. A session cookie set by the host is stored but not sent.
// Other hosts, such as the image host, never see it.
type sessionJar struct {
	http.CookieJar
	host   string
	cookie *http.Cookie
}

func (j *sessionJar) Cookies(u *url.URL) []*http.Cookie {
	stored := j.CookieJar.Cookies(u)
	if u.Host != j.host {
		return stored
	}
	out := make([]*http.Cookie, 0, len(stored)+1)
	out = append(out, j.cookie)
	for _, ck := range stored {
		if ck.Name != sessionCookie {
			out = append(out, ck)
		}
	}
	return out
}

// newSessionID returns 16 random hex characters.
func newSessionID() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
