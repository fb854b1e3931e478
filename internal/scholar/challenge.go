// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scholar

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Solver turns a published challenge image into the answer typed by a human.
type Solver interface {
	Solve(ctx context.Context, imageURL string) (string, error)
}

// ImageHost publishes challenge image bytes and returns a URL a human can open.
type ImageHost interface {
	Upload(ctx context.Context, name string, img []byte) (string, error)
}

// ChallengeState is the progress of verification challenges within one fetch.
type ChallengeState int

// Challenge states. A fetch starts Idle and moves to AwaitingSolution for
// each challenge; it ends Resolved, or Failed once the bound is hit.
const (
	ChallengeIdle ChallengeState = iota
	ChallengeAwaitingSolution
	ChallengeResolved
	ChallengeFailed
)

func (s ChallengeState) String() string {
	switch s {
	case ChallengeIdle:
		return "idle"
	case ChallengeAwaitingSolution:
		return "awaiting-solution"
	case ChallengeResolved:
		return "resolved"
	case ChallengeFailed:
		return "failed"
	default:
		return fmt.Sprintf("ChallengeState(%d)", int(s))
	}
}

// challengeImageName is the upload file name; the image host echoes it
// back as the alt attribute of the hosted image.
const challengeImageName = "scholarly_captcha"

// forwardedPathRe pulls the path and query out of the URL the challenge
// redirect lands on.
var forwardedPathRe = regexp.MustCompile(`^https?://[^/]*(/.*)$`)

// ChallengeResolver answers verification challenges raised by the search
// host. The markup it reads is the host's current challenge page; the token
// is taken from the second input element and nothing else is checked.
type ChallengeResolver struct {
	client      *Client
	solver      Solver
	imageHost   ImageHost
	maxAttempts int
}

// challengeRun tracks challenges met by a single Fetch call.
type challengeRun struct {
	r        *ChallengeResolver
	state    ChallengeState
	attempts int
}

func (r *ChallengeResolver) begin() *challengeRun {
	return &challengeRun{r: r, state: ChallengeIdle}
}

// resolve handles one blocked response. It fails with ErrChallengeFailed
// once the attempt bound is used up.
func (run *challengeRun) resolve(ctx context.Context, path, blockedBody string) (string, error) {
	if run.attempts >= run.r.maxAttempts {
		run.setState(ChallengeFailed)
		return "", fmt.Errorf("%w: still blocked on %s after %d attempt(s)", ErrChallengeFailed, path, run.attempts)
	}
	run.attempts++
	run.setState(ChallengeAwaitingSolution)
	run.r.client.logger.Info("verification challenge", "path", path, "attempt", run.attempts, "max", run.r.maxAttempts)

	next, err := run.r.Resolve(ctx, path, blockedBody)
	if err != nil {
		run.setState(ChallengeFailed)
		return "", err
	}
	run.setState(ChallengeResolved)
	return next, nil
}

func (run *challengeRun) setState(s ChallengeState) {
	run.r.client.logger.Debug("challenge state", "from", run.state.String(), "to", s.String(), "attempt", run.attempts)
	run.state = s
}

// Resolve walks one challenge: read the token, fetch and publish the image,
// ask the solver, submit the answer, and return the path the host
// forwarded to. The caller fetches that path to get the original content.
func (r *ChallengeResolver) Resolve(ctx context.Context, originalPath, blockedBody string) (string, error) {
	token, err := challengeToken(blockedBody)
	if err != nil {
		return "", err
	}

	c := r.client
	img, err := c.get(ctx, c.host+ChallengeImagePath(token))
	if err != nil {
		return "", fmt.Errorf("fetching challenge image: %w", err)
	}
	if img.StatusCode != http.StatusOK {
		return "", &RemoteError{StatusCode: img.StatusCode, Status: img.Status, Path: ChallengeImagePath(token)}
	}

	imageURL, err := r.imageHost.Upload(ctx, challengeImageName+".jpg", img.Body)
	if err != nil {
		return "", fmt.Errorf("publishing challenge image: %w", err)
	}

	answer, err := r.solver.Solve(ctx, imageURL)
	if err != nil {
		return "", fmt.Errorf("solving challenge: %w", err)
	}

	redirect, err := c.get(ctx, c.host+ChallengeRedirectPath(c.host+originalPath, token, answer))
	if err != nil {
		return "", fmt.Errorf("submitting challenge answer: %w", err)
	}
	c.logger.Info("forwarded", "url", redirect.FinalURL)

	m := forwardedPathRe.FindStringSubmatch(redirect.FinalURL)
	if m == nil {
		return "", parseErr("forwarded path", redirect.FinalURL)
	}
	return m[1], nil
}

// challengeToken returns the value of the second input element.
func challengeToken(body string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parsing challenge page: %w", err)
	}
	inputs := doc.Find("input")
	if inputs.Length() < 2 {
		return "", parseErr("challenge token input", fmt.Sprintf("found %d input element(s), need 2", inputs.Length()))
	}
	token, ok := inputs.Eq(1).Attr("value")
	if !ok {
		return "", parseErr("challenge token value", "second input has no value attribute")
	}
	return token, nil
}

// ConsoleSolver prints the image URL to Out and reads one line from In.
type ConsoleSolver struct {
	In  io.Reader
	Out io.Writer

	scanner *bufio.Scanner
}

// Solve blocks until a line is read. There is no timeout; ctx is only
// checked before prompting.
func (s *ConsoleSolver) Solve(ctx context.Context, imageURL string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.scanner == nil {
		s.scanner = bufio.NewScanner(s.In)
	}
	fmt.Fprintf(s.Out, "CAPTCHA image URL: %s\n", imageURL)
	fmt.Fprint(s.Out, "Enter CAPTCHA: ")
	if !s.scanner.Scan() {
		if err := s.scanner.Err(); err != nil {
			return "", fmt.Errorf("reading answer: %w", err)
		}
		return "", io.ErrUnexpectedEOF
	}
	return strings.TrimSpace(s.scanner.Text()), nil
}

// PostImageHost uploads images to a postimage-style form endpoint and reads
// the hosted URL from the img element whose alt matches the file name.
type PostImageHost struct {
	Endpoint string
	Client   *http.Client
}

// Upload posts img as the "upload[]" form file.
func (h *PostImageHost) Upload(ctx context.Context, name string, img []byte) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("upload[]", name)
	if err != nil {
		return "", fmt.Errorf("creating form file: %w", err)
	}
	if _, err := fw.Write(img); err != nil {
		return "", fmt.Errorf("writing form file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("closing form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.Endpoint, &buf)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("image host request: %w", err)
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("parsing image host response: %w", err)
	}

	alt := strings.TrimSuffix(name, ".jpg")
	src, ok := doc.Find(fmt.Sprintf(`[alt=%q]`, alt)).First().Attr("src")
	if !ok {
		return "", parseErr("hosted image", fmt.Sprintf("no element with alt=%q in image host response", alt))
	}
	return src, nil
}

