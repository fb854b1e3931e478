// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scholar

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
)

// Request paths relative to the search host.
const (
	pubSearchPath       = "/scholar?q=%s"
	authorSearchPath    = "/citations?view_op=search_authors&hl=en&mauthors=%s"
	keywordSearchPath   = "/citations?view_op=search_authors&hl=en&mauthors=label:%s"
	authorProfilePath   = "/citations?user=%s&hl=en"
	publicationViewPath = "/citations?view_op=view_citation&citation_for_view=%s"
	citedByPath         = "/scholar?oi=bibs&hl=en&cites=%s"
	challengeImagePath  = "/sorry/image?id=%s"
	challengeSubmitPath = "/sorry/CaptchaRedirect?continue=%s&id=%s&captcha=%s&submit=Submit"
)

// Identifier patterns matched against link targets on result pages.
var (
	authorIDRe          = regexp.MustCompile(`user=([A-Za-z0-9_-]*)`)
	publicationViewIDRe = regexp.MustCompile(`citation_for_view=([A-Za-z0-9_-]*:[A-Za-z0-9_-]*)`)
	citesIDRe           = regexp.MustCompile(`cites=([A-Za-z0-9_-]*)`)
)

// PubSearchPath returns the publication search path for query.
func PubSearchPath(query string) string {
	return fmt.Sprintf(pubSearchPath, url.QueryEscape(query))
}

// AuthorSearchPath returns the author search path for name.
func AuthorSearchPath(name string) string {
	return fmt.Sprintf(authorSearchPath, url.QueryEscape(name))
}

// KeywordSearchPath returns the author-by-label search path for keyword.
func KeywordSearchPath(keyword string) string {
	return fmt.Sprintf(keywordSearchPath, url.QueryEscape(keyword))
}

// AuthorProfilePath returns the profile path for an author id.
func AuthorProfilePath(id string) string {
	return fmt.Sprintf(authorProfilePath, url.QueryEscape(id))
}

// PublicationViewPath returns the single-publication detail path.
func PublicationViewPath(id string) string {
	return fmt.Sprintf(publicationViewPath, url.QueryEscape(id))
}

// CitedByPath returns the listing path of publications citing id.
func CitedByPath(id string) string {
	return fmt.Sprintf(citedByPath, url.QueryEscape(id))
}

// ChallengeImagePath returns the path of the challenge image for token.
func ChallengeImagePath(token string) string {
	return fmt.Sprintf(challengeImagePath, url.QueryEscape(token))
}

// ChallengeRedirectPath returns the challenge submission path. dest is the
// absolute URL the host should forward to once the answer is accepted.
func ChallengeRedirectPath(dest, token, answer string) string {
	return fmt.Sprintf(challengeSubmitPath, url.QueryEscape(dest), url.QueryEscape(token), url.QueryEscape(answer))
}

// AuthorID extracts the author id from a profile link.
func AuthorID(link string) (string, bool) {
	return firstGroup(authorIDRe, link)
}

// PublicationViewID extracts the "user:pub" id from a publication link.
func PublicationViewID(link string) (string, bool) {
	return firstGroup(publicationViewIDRe, link)
}

// CitesID extracts the cited-by id from a "Cited by" link.
func CitesID(link string) (string, bool) {
	return firstGroup(citesIDRe, link)
}

func firstGroup(re *regexp.Regexp, s string) (string, bool) {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// SearchPubs runs a publication search and returns a Paginator over the
// results. The first page is fetched before SearchPubs returns.
func (c *Client) SearchPubs(ctx context.Context, query string) (*Paginator, error) {
	return c.paginate(ctx, PubSearchPath(query))
}

// CitedBy returns a Paginator over the publications citing the work with
// the given cited-by id.
func (c *Client) CitedBy(ctx context.Context, citesID string) (*Paginator, error) {
	return c.paginate(ctx, CitedByPath(citesID))
}

func (c *Client) paginate(ctx context.Context, path string) (*Paginator, error) {
	doc, err := c.fetchDocument(ctx, path)
	if err != nil {
		return nil, err
	}
	return newPaginator(c, doc), nil
}
