// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scholar

import (
	"context"
	"fmt"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pdiddy/scholarly/pkg/types"
)

// testCfg returns a config without delays or rate limits.
func testCfg(host string) types.ScholarConfig {
	return types.ScholarConfig{
		HTTPConfig:           types.HTTPConfig{UserAgent: "test/0.1"},
		Host:                 host,
		MaxChallengeAttempts: 3,
	}
}

func newTestClient(t *testing.T, ts *httptest.Server, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{WithHTTPClient(ts.Client()), WithSolver(&stubSolver{}), WithImageHost(&stubImageHost{url: "https://img.example/x.jpg"})}, opts...)
	c, err := NewClient(testCfg(ts.URL), opts...)
	require.NoError(t, err)
	return c
}

// --- stubs ---

type stubSolver struct {
	mu      sync.Mutex
	answers []string
	seen    []string
}

func (s *stubSolver) Solve(_ context.Context, imageURL string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = append(s.seen, imageURL)
	if len(s.answers) == 0 {
		return "", fmt.Errorf("no scripted answer")
	}
	a := s.answers[0]
	if len(s.answers) > 1 {
		s.answers = s.answers[1:]
	}
	return a, nil
}

func (s *stubSolver) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}

type stubImageHost struct {
	url      string
	uploaded [][]byte
}

func (h *stubImageHost) Upload(_ context.Context, _ string, img []byte) (string, error) {
	h.uploaded = append(h.uploaded, img)
	return h.url, nil
}

type stubBibParser struct {
	entries []BibEntry
}

func (p stubBibParser) Parse(string) ([]BibEntry, error) { return p.entries, nil }

// --- fixtures ---

// row renders one result row. Empty parts are left out.
type row struct {
	title    string // inner HTML of h3.gs_rt
	authors  string
	snippet  string
	links    string // inner HTML of div.gs_fl
	eprint   string // href of the direct download link
	noAuthor bool
}

func (r row) html() string {
	var b strings.Builder
	b.WriteString(`<div class="gs_r gs_or gs_scl">`)
	if r.eprint != "" {
		fmt.Fprintf(&b, `<div class="gs_ggs gs_fl"><div class="gs_ggsd"><a href="%s">[PDF] example.org</a></div></div>`, r.eprint)
	}
	b.WriteString(`<div class="gs_ri">`)
	fmt.Fprintf(&b, `<h3 class="gs_rt">%s</h3>`, r.title)
	if !r.noAuthor {
		fmt.Fprintf(&b, `<div class="gs_a">%s</div>`, r.authors)
	}
	if r.snippet != "" {
		fmt.Fprintf(&b, `<div class="gs_rs">%s</div>`, r.snippet)
	}
	fmt.Fprintf(&b, `<div class="gs_fl">%s</div>`, r.links)
	b.WriteString(`</div></div>`)
	return b.String()
}

func simpleRow(title string) row {
	return row{
		title:   fmt.Sprintf(`<a href="https://example.org/%s">%s</a>`, strings.ReplaceAll(title, " ", "-"), title),
		authors: "A Author, B Writer - Journal, 2020 - example.org",
	}
}

// resultPage renders a listing page; next is the href of the next-page
// control or empty for the last page.
func resultPage(next string, rows ...row) string {
	var b strings.Builder
	b.WriteString(`<html><body><div id="gs_res_ccl_mid">`)
	for _, r := range rows {
		b.WriteString(r.html())
	}
	b.WriteString(`</div>`)
	if next != "" {
		fmt.Fprintf(&b, `<div id="gs_n"><a href="%s"><span class="gs_ico gs_ico_nav_next"></span><b>Next</b></a></div>`, next)
	}
	b.WriteString(`</body></html>`)
	return b.String()
}

const challengePage = `<html><body>
<form action="CaptchaRedirect" method="get">
<input type="hidden" name="continue" value="https://scholar.google.com/scholar?q=x">
<input type="hidden" name="id" value="tok123">
<img src="/sorry/image?id=tok123">
<input type="text" name="captcha" value="">
</form></body></html>`

const sampleBibTeX = `@article{vaswani2017attention,
  title={Attention is all you need},
  author={Vaswani, Ashish and Shazeer, Noam},
  journal={Advances in neural information processing systems},
  volume={30},
  year={2017}
}
`
