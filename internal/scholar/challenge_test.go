// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scholar

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var captchaImage = []byte{0xff, 0xd8, 0xff, 0xe0, 'J', 'F', 'I', 'F'}

// challengeHost blocks /scholar until the answer "abc" is submitted.
type challengeHost struct {
	solved    atomic.Bool
	blocked   atomic.Int32
	redirects atomic.Int32
	content   string
}

func (h *challengeHost) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/scholar", func(w http.ResponseWriter, r *http.Request) {
		if !h.solved.Load() {
			h.blocked.Add(1)
			w.WriteHeader(http.StatusServiceUnavailable)
			io.WriteString(w, challengePage)
			return
		}
		io.WriteString(w, h.content)
	})
	mux.HandleFunc("/sorry/image", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tok123", r.URL.Query().Get("id"))
		w.Write(captchaImage)
	})
	mux.HandleFunc("/sorry/CaptchaRedirect", func(w http.ResponseWriter, r *http.Request) {
		h.redirects.Add(1)
		q := r.URL.Query()
		assert.Equal(t, "tok123", q.Get("id"))
		assert.Equal(t, "Submit", q.Get("submit"))
		if q.Get("captcha") == "abc" {
			h.solved.Store(true)
		}
		http.Redirect(w, r, q.Get("continue"), http.StatusFound)
	})
	return mux
}

func TestFetch_ChallengeResolved(t *testing.T) {
	host := &challengeHost{content: "<html>results</html>"}
	ts := httptest.NewServer(host.handler(t))
	defer ts.Close()

	solver := &stubSolver{answers: []string{"abc"}}
	images := &stubImageHost{url: "https://img.example/captcha.jpg"}
	c := newTestClient(t, ts, WithSolver(solver), WithImageHost(images))

	got, err := c.Fetch(context.Background(), "/scholar?q=x")
	require.NoError(t, err)

	direct, err := c.Fetch(context.Background(), "/scholar?q=x")
	require.NoError(t, err)

	assert.Equal(t, direct, got)
	assert.Equal(t, []string{"https://img.example/captcha.jpg"}, solver.seen)
	require.Len(t, images.uploaded, 1)
	assert.Equal(t, captchaImage, images.uploaded[0])
	assert.Equal(t, int32(1), host.blocked.Load())
	assert.Equal(t, int32(1), host.redirects.Load())
}

func TestFetch_ChallengeWrongAnswerThenRight(t *testing.T) {
	host := &challengeHost{content: "ok"}
	ts := httptest.NewServer(host.handler(t))
	defer ts.Close()

	solver := &stubSolver{answers: []string{"nope", "abc"}}
	c := newTestClient(t, ts, WithSolver(solver))

	got, err := c.Fetch(context.Background(), "/scholar?q=x")
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 2, solver.calls())
	// The rejected answer redirects back onto the blocked page once.
	assert.Equal(t, int32(3), host.blocked.Load())
}

func TestFetch_ChallengeBoundExceeded(t *testing.T) {
	host := &challengeHost{content: "never"}
	ts := httptest.NewServer(host.handler(t))
	defer ts.Close()

	solver := &stubSolver{answers: []string{"wrong"}}
	cfg := testCfg(ts.URL)
	cfg.MaxChallengeAttempts = 2
	c, err := NewClient(cfg, WithHTTPClient(ts.Client()), WithSolver(solver), WithImageHost(&stubImageHost{}))
	require.NoError(t, err)

	_, err = c.Fetch(context.Background(), "/scholar?q=x")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrChallengeFailed)
	assert.Equal(t, 2, solver.calls())
	// Initial request, then per attempt the redirect landing and the re-fetch.
	assert.Equal(t, int32(5), host.blocked.Load())
}

func TestFetch_ChallengeWithoutToken(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		io.WriteString(w, `<html><form><input name="only"></form></html>`)
	}))
	defer ts.Close()

	solver := &stubSolver{answers: []string{"abc"}}
	c := newTestClient(t, ts, WithSolver(solver))

	_, err := c.Fetch(context.Background(), "/scholar?q=x")
	require.Error(t, err)
	assert.True(t, IsParse(err))
	assert.Equal(t, 0, solver.calls())
}

func TestFetch_ChallengeSolverError(t *testing.T) {
	host := &challengeHost{}
	ts := httptest.NewServer(host.handler(t))
	defer ts.Close()

	c := newTestClient(t, ts, WithSolver(&stubSolver{}))
	_, err := c.Fetch(context.Background(), "/scholar?q=x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "solving challenge")
	assert.Equal(t, int32(0), host.redirects.Load())
}

func TestChallengeRun_States(t *testing.T) {
	host := &challengeHost{content: "ok"}
	ts := httptest.NewServer(host.handler(t))
	defer ts.Close()

	cfg := testCfg(ts.URL)
	cfg.MaxChallengeAttempts = 1
	c, err := NewClient(cfg, WithHTTPClient(ts.Client()), WithSolver(&stubSolver{answers: []string{"abc"}}), WithImageHost(&stubImageHost{}))
	require.NoError(t, err)

	run := c.resolver.begin()
	assert.Equal(t, ChallengeIdle, run.state)

	next, err := run.resolve(context.Background(), "/scholar?q=x", challengePage)
	require.NoError(t, err)
	assert.Equal(t, "/scholar?q=x", next)
	assert.Equal(t, ChallengeResolved, run.state)
	assert.Equal(t, 1, run.attempts)

	_, err = run.resolve(context.Background(), "/scholar?q=x", challengePage)
	assert.ErrorIs(t, err, ErrChallengeFailed)
	assert.Equal(t, ChallengeFailed, run.state)
}

func TestFetch_LogsChallengeStates(t *testing.T) {
	host := &challengeHost{content: "ok"}
	ts := httptest.NewServer(host.handler(t))
	defer ts.Close()

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	c := newTestClient(t, ts, WithSolver(&stubSolver{answers: []string{"abc"}}), WithLogger(logger))

	_, err := c.Fetch(context.Background(), "/scholar?q=x")
	require.NoError(t, err)

	out := logs.String()
	assert.Contains(t, out, "from=idle to=awaiting-solution attempt=1")
	assert.Contains(t, out, "from=awaiting-solution to=resolved attempt=1")
}

func TestChallengeState_String(t *testing.T) {
	assert.Equal(t, "idle", ChallengeIdle.String())
	assert.Equal(t, "awaiting-solution", ChallengeAwaitingSolution.String())
	assert.Equal(t, "resolved", ChallengeResolved.String())
	assert.Equal(t, "failed", ChallengeFailed.String())
	assert.Equal(t, "ChallengeState(9)", ChallengeState(9).String())
}

func TestChallengeToken(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    string
		wantErr bool
	}{
		{"second input", challengePage, "tok123", false},
		{"two inputs minimal", `<input value="a"><input value="b">`, "b", false},
		{"single input", `<input value="a">`, "", true},
		{"no inputs", `<html><p>blocked</p></html>`, "", true},
		{"second input without value", `<input value="a"><input name="id">`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := challengeToken(tt.body)
			if tt.wantErr {
				assert.True(t, IsParse(err), "err = %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPostImageHost_Upload(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		f, hdr, err := r.FormFile("upload[]")
		if !assert.NoError(t, err) {
			return
		}
		defer f.Close()
		assert.Equal(t, "scholarly_captcha.jpg", hdr.Filename)
		data, _ := io.ReadAll(f)
		assert.Equal(t, captchaImage, data)

		io.WriteString(w, `<html><body><img src="/logo.png" alt="logo">
<img src="https://i.example/abc/scholarly_captcha.jpg" alt="scholarly_captcha"></body></html>`)
	}))
	defer ts.Close()

	h := &PostImageHost{Endpoint: ts.URL, Client: ts.Client()}
	got, err := h.Upload(context.Background(), "scholarly_captcha.jpg", captchaImage)
	require.NoError(t, err)
	assert.Equal(t, "https://i.example/abc/scholarly_captcha.jpg", got)
}

func TestPostImageHost_MissingMarker(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, `<html><body><img src="/logo.png" alt="logo"></body></html>`)
	}))
	defer ts.Close()

	h := &PostImageHost{Endpoint: ts.URL, Client: ts.Client()}
	_, err := h.Upload(context.Background(), "scholarly_captcha.jpg", captchaImage)
	assert.True(t, IsParse(err))
}

func TestConsoleSolver(t *testing.T) {
	var out bytes.Buffer
	s := &ConsoleSolver{In: strings.NewReader("  x7kq \nsecond\n"), Out: &out}

	got, err := s.Solve(context.Background(), "https://i.example/c.jpg")
	require.NoError(t, err)
	assert.Equal(t, "x7kq", got)
	assert.Contains(t, out.String(), "CAPTCHA image URL: https://i.example/c.jpg\n")
	assert.Contains(t, out.String(), "Enter CAPTCHA: ")

	got, err = s.Solve(context.Background(), "https://i.example/d.jpg")
	require.NoError(t, err)
	assert.Equal(t, "second", got)

	_, err = s.Solve(context.Background(), "https://i.example/e.jpg")
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))
}

func TestConsoleSolver_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	s := &ConsoleSolver{In: strings.NewReader("abc\n"), Out: &out}
	_, err := s.Solve(ctx, "u")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, out.String())
}
