// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scholar

import (
	"context"
	"fmt"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/scholarly/pkg/types"
)

// Source identifies where a Publication was extracted from.
type Source string

// SourceScholar marks publications built from a search result listing.
const SourceScholar Source = "scholar"

// Citation is the "Cited by N" affordance of a result row.
type Citation struct {
	// Count is the number of citing works shown on the row.
	Count int `json:"count" yaml:"count"`

	// ID is the cited-by identifier used to list the citing works.
	ID string `json:"id" yaml:"id"`
}

// Publication is one bibliographic record. It starts as a cheap summary
// built from a result row; Fill adds the full BibTeX fields with one more
// fetch.
type Publication struct {
	Source Source    `json:"source" yaml:"source"`
	Bib    types.Bib `json:"bib" yaml:"bib"`

	// CitedBy is nil when the row had no "Cited by" link.
	CitedBy *Citation `json:"cited_by,omitempty" yaml:"cited_by,omitempty"`

	// BibURL is the "Import into BibTeX" reference fetched by Fill.
	BibURL string `json:"bib_url,omitempty" yaml:"bib_url,omitempty"`

	filled bool
	client *Client
}

// Filled reports whether Fill has completed at least once.
func (p *Publication) Filled() bool { return p.filled }

// Fill fetches the BibTeX entry behind BibURL and merges its fields into
// Bib, overwriting summary fields on collision. Calling Fill again refetches
// and merges again; Filled stays true. On error nothing is rolled back.
func (p *Publication) Fill(ctx context.Context) error {
	if p.BibURL == "" {
		return fmt.Errorf("%w: %q", ErrNoDetailRef, p.Bib.Title)
	}
	if p.client == nil {
		return fmt.Errorf("%w: %q", ErrDetached, p.Bib.Title)
	}

	text, err := p.client.Fetch(ctx, p.BibURL)
	if err != nil {
		return fmt.Errorf("fetching BibTeX for %q: %w", p.Bib.Title, err)
	}
	entries, err := p.client.bib.Parse(text)
	if err != nil {
		return fmt.Errorf("parsing BibTeX for %q: %w", p.Bib.Title, err)
	}
	if len(entries) == 0 {
		return parseErr("BibTeX entry", fmt.Sprintf("no entries in detail page for %q", p.Bib.Title))
	}

	p.Bib.Merge(entries[0].fieldMap())
	p.filled = true
	return nil
}

// GetCitedBy returns a Paginator over the works citing p. Without a cited-by
// id it first tries Fill; if there is still none, the Paginator is empty.
func (p *Publication) GetCitedBy(ctx context.Context) (*Paginator, error) {
	if p.CitedBy == nil {
		if err := p.Fill(ctx); err != nil {
			return nil, err
		}
	}
	if p.CitedBy == nil {
		return emptyPaginator(), nil
	}
	if p.client == nil {
		return nil, fmt.Errorf("%w: %q", ErrDetached, p.Bib.Title)
	}
	return p.client.CitedBy(ctx, p.CitedBy.ID)
}

// String renders the record as YAML for inspection.
func (p *Publication) String() string {
	view := struct {
		Source  Source    `yaml:"source"`
		Bib     types.Bib `yaml:"bib"`
		CitedBy *Citation `yaml:"cited_by,omitempty"`
		BibURL  string    `yaml:"bib_url,omitempty"`
		Filled  bool      `yaml:"filled"`
	}{p.Source, p.Bib, p.CitedBy, p.BibURL, p.filled}

	out, err := yaml.Marshal(view)
	if err != nil {
		return fmt.Sprintf("%+v", view)
	}
	return string(out)
}
