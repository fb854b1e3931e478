// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scholar

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.yaml.in/yaml/v3"
)

// FormatTable writes publications as a human-readable table to w.
func FormatTable(pubs []*Publication, w io.Writer) {
	if len(pubs) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}

	fmt.Fprintf(w, "%-4s  %-60s  %-24s  %-8s  %s\n", "#", "Title", "Authors", "Cited by", "Filled")
	fmt.Fprintln(w, strings.Repeat("-", 110))

	for i, p := range pubs {
		cited := ""
		if p.CitedBy != nil {
			cited = strconv.Itoa(p.CitedBy.Count)
		}
		filled := ""
		if p.Filled() {
			filled = "yes"
		}
		fmt.Fprintf(w, "%-4d  %-60s  %-24s  %-8s  %s\n",
			i+1, truncate(p.Bib.Title, 60), truncate(firstAuthor(p.Bib.Author), 24), cited, filled)
	}

	fmt.Fprintf(w, "\n%d results\n", len(pubs))
}

// publicationJSON is the serialized form of a Publication.
type publicationJSON struct {
	*Publication
	Filled bool `json:"filled"`
}

// FormatJSON writes publications as indented JSON to w.
func FormatJSON(pubs []*Publication, w io.Writer) error {
	out := make([]publicationJSON, len(pubs))
	for i, p := range pubs {
		out[i] = publicationJSON{Publication: p, Filled: p.Filled()}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// CSLItem represents a bibliographic entry in CSL (Citation Style Language)
// format, consumable by Pandoc and reference managers.
type CSLItem struct {
	ID             string    `yaml:"id"`
	Type           string    `yaml:"type"`
	Title          string    `yaml:"title"`
	Author         []CSLName `yaml:"author,omitempty"`
	Abstract       string    `yaml:"abstract,omitempty"`
	URL            string    `yaml:"URL,omitempty"`
	ContainerTitle string    `yaml:"container-title,omitempty"`
	Publisher      string    `yaml:"publisher,omitempty"`
	Volume         string    `yaml:"volume,omitempty"`
	Issue          string    `yaml:"issue,omitempty"`
	Page           string    `yaml:"page,omitempty"`
	Issued         *CSLDate  `yaml:"issued,omitempty"`
	DOI            string    `yaml:"DOI,omitempty"`
}

// CSLName represents a person's name in CSL format.
type CSLName struct {
	Family  string `yaml:"family,omitempty"`
	Given   string `yaml:"given,omitempty"`
	Literal string `yaml:"literal,omitempty"`
}

// CSLDate represents a date in CSL format using date-parts.
type CSLDate struct {
	DateParts [][]int `yaml:"date-parts"`
}

// FormatCSL writes publications as a CSL-YAML list to w.
func FormatCSL(pubs []*Publication, w io.Writer) error {
	items := make([]CSLItem, len(pubs))
	for i, p := range pubs {
		items[i] = toCSLItem(p, i)
	}
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(items)
}

// cslTypes maps BibTeX entry types to CSL types.
var cslTypes = map[string]string{
	"article":       "article-journal",
	"inproceedings": "paper-conference",
	"book":          "book",
	"incollection":  "chapter",
	"phdthesis":     "thesis",
	"mastersthesis": "thesis",
	"techreport":    "report",
}

// toCSLItem converts a Publication to a CSLItem. Filled publications
// contribute their BibTeX fields; summaries only carry title, authors,
// abstract and url.
func toCSLItem(p *Publication, idx int) CSLItem {
	b := p.Bib
	item := CSLItem{
		ID:       b.Extra["ID"],
		Type:     "article",
		Title:    b.Title,
		Abstract: b.Abstract,
		URL:      b.URL,
		DOI:      b.Extra["doi"],
		Volume:   b.Extra["volume"],
		Issue:    b.Extra["number"],
		Page:     strings.ReplaceAll(b.Extra["pages"], "--", "-"),

		Publisher: b.Extra["publisher"],
	}
	if item.ID == "" {
		item.ID = fmt.Sprintf("pub%d", idx+1)
	}
	if t, ok := cslTypes[b.Extra["ENTRYTYPE"]]; ok {
		item.Type = t
	}
	for _, k := range []string{"journal", "booktitle"} {
		if v := b.Extra[k]; v != "" {
			item.ContainerTitle = v
			break
		}
	}

	for _, a := range splitAuthors(b.Author) {
		item.Author = append(item.Author, parseAuthorName(a))
	}

	if y, err := strconv.Atoi(strings.TrimSpace(b.Extra["year"])); err == nil && y > 0 {
		item.Issued = &CSLDate{DateParts: [][]int{{y}}}
	}
	return item
}

// splitAuthors splits an "A and B" author string.
func splitAuthors(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, a := range strings.Split(s, " and ") {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}

// parseAuthorName splits a name into CSL family/given parts. BibTeX
// "Family, Given" names split on the comma; otherwise the last token is
// the family name. Single-token names use the literal field.
func parseAuthorName(name string) CSLName {
	name = strings.TrimSpace(name)
	if name == "" {
		return CSLName{}
	}
	if family, given, ok := strings.Cut(name, ","); ok {
		return CSLName{Family: strings.TrimSpace(family), Given: strings.TrimSpace(given)}
	}
	idx := strings.LastIndex(name, " ")
	if idx < 0 {
		return CSLName{Literal: name}
	}
	return CSLName{
		Given:  name[:idx],
		Family: name[idx+1:],
	}
}

func firstAuthor(authors string) string {
	list := splitAuthors(authors)
	switch len(list) {
	case 0:
		return ""
	case 1:
		return list[0]
	default:
		return list[0] + " et al."
	}
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
