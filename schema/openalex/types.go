// Package openalex contains a partial schema for the OpenAlex works API,
// limited to the fields the enrichment rules consume.
package openalex

import (
	"encoding/json"
	"fmt"
)

// Work entity in OpenAlex.
type Work struct {
	ID                    string        `json:"id"`
	Title                 string        `json:"title"`
	DOI                   string        `json:"doi"`
	Language              string        `json:"language"`
	PublicationDate       string        `json:"publication_date"`
	AbstractInvertedIndex InvertedIndex `json:"abstract_inverted_index"`
	IDs                   struct {
		Openalex string   `json:"openalex"`
		DOI      string   `json:"doi"`
		PMID     string   `json:"pmid"`
		ISBN     ISBNList `json:"isbn"`
	} `json:"ids"`
	Biblio struct {
		Volume    string `json:"volume"`
		Issue     string `json:"issue"`
		FirstPage string `json:"first_page"`
		LastPage  string `json:"last_page"`
	} `json:"biblio"`
	Keywords   []Tagged `json:"keywords"`
	OpenAccess struct {
		IsOa     bool   `json:"is_oa"`
		OaStatus string `json:"oa_status"`
		OaUrl    string `json:"oa_url"`
	} `json:"open_access"`
	SustainableDevelopmentGoals []Tagged `json:"sustainable_development_goals"`
}

// Tagged is a scored display name, used for keywords and sustainable
// development goals.
type Tagged struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"display_name"`
	Score       float64 `json:"score"`
}

// Pages returns a page range as string.
func (w *Work) Pages() string {
	f := w.Biblio.FirstPage
	l := w.Biblio.LastPage
	switch {
	case len(f) == 0 && len(l) == 0:
		return ""
	case len(f) > 0 && len(l) == 0:
		return f
	case len(f) == 0 && len(l) > 0:
		return l
	default:
		return fmt.Sprintf("%s-%s", f, l)
	}
}

// InvertedIndex maps a word to the zero-based token positions it occupies in
// the abstract. An index of unexpected shape decodes to nil, which disables
// the abstract rule without failing the whole payload.
type InvertedIndex map[string][]int

func (ii *InvertedIndex) UnmarshalJSON(b []byte) error {
	var m map[string][]int
	if err := json.Unmarshal(b, &m); err != nil {
		return nil
	}
	*ii = m
	return nil
}

// ISBNList accepts both a bare string and a list of strings, both of which
// occur in the wild for ids.isbn.
type ISBNList []string

func (l *ISBNList) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*l = ISBNList{s}
		return nil
	}
	var ss []string
	if err := json.Unmarshal(b, &ss); err != nil {
		return err
	}
	*l = ss
	return nil
}

// First returns the first entry, or "".
func (l ISBNList) First() string {
	if len(l) == 0 {
		return ""
	}
	return l[0]
}
