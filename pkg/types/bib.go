// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for scholarly: the session
// configuration and the bibliographic field record carried by publications.
package types

import (
	"slices"
)

// Well-known bibliographic keys. Keys outside this set live in Bib.Extra.
const (
	KeyTitle    = "title"
	KeyURL      = "url"
	KeyAuthor   = "author"
	KeyAbstract = "abstract"
	KeyEprint   = "eprint"
)

// Bib holds the bibliographic fields of a publication. An empty string
// means the field is absent. Fields merged in from a BibTeX entry that have
// no named counterpart are kept in Extra.
type Bib struct {
	Title    string `json:"title" yaml:"title"`
	URL      string `json:"url,omitempty" yaml:"url,omitempty"`
	Author   string `json:"author,omitempty" yaml:"author,omitempty"`
	Abstract string `json:"abstract,omitempty" yaml:"abstract,omitempty"`
	Eprint   string `json:"eprint,omitempty" yaml:"eprint,omitempty"`

	Extra map[string]string `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// Get returns the value stored under key and whether it is present.
func (b *Bib) Get(key string) (string, bool) {
	var v string
	switch key {
	case KeyTitle:
		v = b.Title
	case KeyURL:
		v = b.URL
	case KeyAuthor:
		v = b.Author
	case KeyAbstract:
		v = b.Abstract
	case KeyEprint:
		v = b.Eprint
	default:
		v = b.Extra[key]
	}
	return v, v != ""
}

// Set stores value under key, routing unknown keys to Extra.
func (b *Bib) Set(key, value string) {
	switch key {
	case KeyTitle:
		b.Title = value
	case KeyURL:
		b.URL = value
	case KeyAuthor:
		b.Author = value
	case KeyAbstract:
		b.Abstract = value
	case KeyEprint:
		b.Eprint = value
	default:
		if b.Extra == nil {
			b.Extra = make(map[string]string)
		}
		b.Extra[key] = value
	}
}

// Merge copies every field of fields into b. Incoming values overwrite
// existing ones on key collision.
func (b *Bib) Merge(fields map[string]string) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		b.Set(k, fields[k])
	}
}

// Keys returns the keys of all present fields in sorted order.
func (b *Bib) Keys() []string {
	var keys []string
	for _, k := range []string{KeyTitle, KeyURL, KeyAuthor, KeyAbstract, KeyEprint} {
		if _, ok := b.Get(k); ok {
			keys = append(keys, k)
		}
	}
	for k, v := range b.Extra {
		if v != "" {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys
}
