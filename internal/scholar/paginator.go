// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scholar

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Paginator walks a result listing one Publication at a time, fetching the
// next page only when the rows of the current one are used up. Rows are
// yielded in page order.
//
// A Paginator cannot be restarted: once Next returns false, run the query
// again for a fresh one. It holds live page state and must not be copied.
//
//	it, err := client.SearchPubs(ctx, "graph neural networks")
//	for it.Next(ctx) {
//		pub := it.Publication()
//		...
//	}
//	if err := it.Err(); err != nil { ... }
type Paginator struct {
	c    *Client
	doc  *goquery.Document
	rows *goquery.Selection
	next int

	cur   *Publication
	err   error
	done  bool
	pages int
}

func newPaginator(c *Client, doc *goquery.Document) *Paginator {
	p := &Paginator{c: c}
	p.load(doc)
	return p
}

func emptyPaginator() *Paginator {
	return &Paginator{done: true}
}

func (p *Paginator) load(doc *goquery.Document) {
	p.doc = doc
	p.rows = doc.Find(rowSelector)
	p.next = 0
	p.pages++
}

// Next advances to the next Publication. It returns false when the listing
// is exhausted or an error occurred; check Err to tell the two apart.
func (p *Paginator) Next(ctx context.Context) bool {
	if p.done {
		return false
	}

	for p.next >= p.rows.Length() {
		href, ok, err := nextPageLink(p.doc)
		if err != nil {
			return p.fail(err)
		}
		if !ok {
			p.done = true
			p.cur = nil
			return false
		}
		p.c.logger.Debug("following next page", "href", href, "page", p.pages+1)
		doc, err := p.c.fetchDocument(ctx, href)
		if err != nil {
			return p.fail(err)
		}
		p.load(doc)
	}

	pub, err := newPublication(p.c, p.rows.Eq(p.next))
	p.next++
	if err != nil {
		return p.fail(fmt.Errorf("page %d row %d: %w", p.pages, p.next, err))
	}
	p.cur = pub
	return true
}

func (p *Paginator) fail(err error) bool {
	p.err = err
	p.done = true
	p.cur = nil
	return false
}

// Publication returns the record produced by the last successful Next.
func (p *Paginator) Publication() *Publication { return p.cur }

// Err returns the error that stopped iteration, if any.
func (p *Paginator) Err() error { return p.err }

// Pages returns how many result pages have been loaded so far.
func (p *Paginator) Pages() int { return p.pages }

// Collect drains up to limit publications (all of them if limit <= 0).
// The publications read before an error are returned with it.
func (p *Paginator) Collect(ctx context.Context, limit int) ([]*Publication, error) {
	var pubs []*Publication
	for (limit <= 0 || len(pubs) < limit) && p.Next(ctx) {
		pubs = append(pubs, p.Publication())
	}
	return pubs, p.Err()
}

// fetchDocument fetches path and parses it as HTML.
func (c *Client) fetchDocument(ctx context.Context, path string) (*goquery.Document, error) {
	body, err := c.Fetch(ctx, path)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return doc, nil
}
