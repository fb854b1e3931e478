// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scholar

import (
	"fmt"
	"strings"

	"github.com/nickng/bibtex"
)

// BibEntry is one parsed BibTeX entry.
type BibEntry struct {
	Type   string
	Key    string
	Fields map[string]string
}

// fieldMap returns the entry fields plus ENTRYTYPE and ID, the shape merged
// into a Publication by Fill.
func (e BibEntry) fieldMap() map[string]string {
	m := make(map[string]string, len(e.Fields)+2)
	for k, v := range e.Fields {
		m[k] = v
	}
	if e.Type != "" {
		m["ENTRYTYPE"] = e.Type
	}
	if e.Key != "" {
		m["ID"] = e.Key
	}
	return m
}

// BibParser parses the text of a BibTeX export page.
type BibParser interface {
	Parse(text string) ([]BibEntry, error)
}

// BibTeXParser is the default BibParser.
type BibTeXParser struct{}

// Parse returns the entries of text in order. Field names are lowercased.
func (BibTeXParser) Parse(text string) ([]BibEntry, error) {
	parsed, err := bibtex.Parse(strings.NewReader(text))
	if err != nil {
		return nil, fmt.Errorf("parsing BibTeX: %w", err)
	}

	entries := make([]BibEntry, 0, len(parsed.Entries))
	for _, e := range parsed.Entries {
		fields := make(map[string]string, len(e.Fields))
		for k, v := range e.Fields {
			if v == nil {
				continue
			}
			fields[strings.ToLower(k)] = v.String()
		}
		entries = append(entries, BibEntry{Type: strings.ToLower(e.Type), Key: e.CiteName, Fields: fields})
	}
	return entries, nil
}
