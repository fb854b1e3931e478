// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scholar

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/pdiddy/scholarly/pkg/types"
)

// Result page markup. These selectors track the current layout of the
// search host and break when it changes.
const (
	rowSelector      = "div.gs_r"
	dataBoxSelector  = "div.gs_ri"
	titleSelector    = "h3.gs_rt"
	actionsSelector  = "div.gs_fl"
	nextPageSelector = ".gs_ico.gs_ico_nav_next"

	// citationMarkerSelector matches the "[CITATION]" and "[BOOK]"/"[PDF]"
	// labels that precede some titles.
	citationMarkerSelector = "span.gs_ctu, span.gs_ctc"
)

// ruleScope says which element a rowRule selector is evaluated against.
type ruleScope int

const (
	scopeDataBox ruleScope = iota
	scopeRow
)

// rowRule maps one piece of row markup to one bibliographic field.
type rowRule struct {
	field     string
	scope     ruleScope
	selector  string
	required  bool
	transform func(*goquery.Selection) (string, error)
}

// rowRules run in order; the title rule removes marker labels before the
// url rule reads the title anchor.
var rowRules = []rowRule{
	{field: types.KeyTitle, scope: scopeDataBox, selector: titleSelector, required: true, transform: titleText},
	{field: types.KeyURL, scope: scopeDataBox, selector: titleSelector + " a", transform: attrOf("href")},
	{field: types.KeyAuthor, scope: scopeDataBox, selector: "div.gs_a", required: true, transform: func(s *goquery.Selection) (string, error) {
		return FormatAuthors(s.Text()), nil
	}},
	{field: types.KeyAbstract, scope: scopeDataBox, selector: "div.gs_rs", transform: func(s *goquery.Selection) (string, error) {
		return TrimAbstractLabel(s.Text()), nil
	}},
	{field: types.KeyEprint, scope: scopeRow, selector: "div.gs_ggs.gs_fl", transform: func(s *goquery.Selection) (string, error) {
		return attrOf("href")(s.Find("a").First())
	}},
}

// linkRule matches an action link by its text.
type linkRule struct {
	marker string
	apply  func(p *Publication, text, href string) error
}

var linkRules = []linkRule{
	{marker: "Import into BibTeX", apply: func(p *Publication, _, href string) error {
		p.BibURL = href
		return nil
	}},
	{marker: "Cited by", apply: applyCitedBy},
}

var countRe = regexp.MustCompile(`\d+`)

// newPublication builds a summary Publication from one result row.
func newPublication(c *Client, row *goquery.Selection) (*Publication, error) {
	p := &Publication{Source: SourceScholar, client: c}

	box := row.Find(dataBoxSelector).First()
	if box.Length() == 0 {
		return nil, parseErr(dataBoxSelector, "result row has no data block")
	}

	for _, rule := range rowRules {
		scope := box
		if rule.scope == scopeRow {
			scope = row
		}
		sel := scope.Find(rule.selector).First()
		if sel.Length() == 0 {
			if rule.required {
				return nil, parseErr(rule.selector, "")
			}
			continue
		}
		v, err := rule.transform(sel)
		if err != nil {
			return nil, fmt.Errorf("extracting %s: %w", rule.field, err)
		}
		if v != "" {
			p.Bib.Set(rule.field, v)
		}
	}

	var linkErr error
	box.Find(actionsSelector).First().Find("a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		text := a.Text()
		href, _ := a.Attr("href")
		for _, rule := range linkRules {
			if !strings.Contains(text, rule.marker) {
				continue
			}
			if err := rule.apply(p, text, href); err != nil {
				linkErr = err
				return false
			}
		}
		return true
	})
	if linkErr != nil {
		return nil, linkErr
	}

	return p, nil
}

// titleText drops a leading citation/book marker and returns the title.
func titleText(s *goquery.Selection) (string, error) {
	if s.Find(citationMarkerSelector).Length() > 0 {
		s.Find("span").First().Remove()
	}
	title := strings.TrimSpace(s.Text())
	if title == "" {
		return "", parseErr("title", "title block is empty")
	}
	return title, nil
}

func attrOf(name string) func(*goquery.Selection) (string, error) {
	return func(s *goquery.Selection) (string, error) {
		v, ok := s.Attr(name)
		if !ok {
			return "", parseErr(name+" attribute", fmt.Sprintf("missing on <%s>", goquery.NodeName(s)))
		}
		return v, nil
	}
}

func applyCitedBy(p *Publication, text, href string) error {
	digits := countRe.FindString(text)
	if digits == "" {
		return parseErr("citation count", fmt.Sprintf("no number in %q", text))
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return parseErr("citation count", err.Error())
	}
	id, ok := CitesID(href)
	if !ok {
		return parseErr("cited-by id", fmt.Sprintf("no cites= in %q", href))
	}
	p.CitedBy = &Citation{Count: n, ID: id}
	return nil
}

// nextPageLink returns the href of the "next page" control, if any.
func nextPageLink(doc *goquery.Document) (string, bool, error) {
	icon := doc.Find(nextPageSelector).First()
	if icon.Length() == 0 {
		return "", false, nil
	}
	href, ok := icon.Parent().Attr("href")
	if !ok {
		return "", false, parseErr("next page link", "navigation icon parent has no href")
	}
	return href, true, nil
}

// FormatAuthors turns the attribution line "A Smith, B Jones - Venue, 2020 -
// host" into "A Smith and B Jones".
func FormatAuthors(attribution string) string {
	authors, _, _ := strings.Cut(attribution, " - ")
	names := strings.Split(authors, ",")
	for i, n := range names {
		names[i] = strings.TrimSpace(n)
	}
	return strings.Join(names, " and ")
}

// TrimAbstractLabel strips a leading "Abstract" label (any case) and the
// separator character that follows it, then trims spaces. A snippet
// without the label is returned as is.
func TrimAbstractLabel(snippet string) string {
	const label = "abstract"
	if len(snippet) >= len(label) && strings.EqualFold(snippet[:len(label)], label) {
		rest := snippet[len(label):]
		if rest != "" {
			_, size := utf8.DecodeRuneInString(rest)
			rest = rest[size:]
		}
		return strings.TrimSpace(rest)
	}
	return snippet
}
