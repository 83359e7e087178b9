// Package merge computes the field updates for one record from one external
// payload. The policy is fill-if-empty for scalar fields, presence-checked
// additions for tags and labeled note lines, and creators only when the
// record has none. A merge never overwrites user data outside these rules
// and has no side effects until the caller applies the decision.
package merge

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"

	"github.com/bzuer/zoteroEhancer/fetch"
	"github.com/bzuer/zoteroEhancer/record"
	"github.com/bzuer/zoteroEhancer/schema/googlebooks"
	"github.com/bzuer/zoteroEhancer/schema/openalex"
)

// OpKind discriminates staged mutations.
type OpKind int

const (
	OpSetField OpKind = iota
	OpAddTag
	OpAddCreator
)

// Op is a single staged mutation. Name holds the field name for OpSetField
// and the tag name for OpAddTag.
type Op struct {
	Kind    OpKind
	Name    string
	Value   string
	Creator record.Creator
}

// Decision is the ordered list of mutations one merge produced.
type Decision struct {
	ops []Op
}

// Changed reports whether applying the decision would modify the record.
func (d *Decision) Changed() bool { return len(d.ops) > 0 }

// Ops returns a copy of the staged mutations in order.
func (d *Decision) Ops() []Op { return append([]Op(nil), d.ops...) }

// Apply stages all mutations onto the item. The caller commits them with a
// single SaveTx.
func (d *Decision) Apply(it record.Item) {
	for _, op := range d.ops {
		switch op.Kind {
		case OpSetField:
			it.SetField(op.Name, op.Value)
		case OpAddTag:
			it.AddTag(op.Name)
		case OpAddCreator:
			it.AddCreator(op.Creator)
		}
	}
}

// staged is a view of an item plus its pending writes, so a later rule
// observes values set by an earlier rule in the same pass.
type staged struct {
	it     record.Item
	d      *Decision
	fields map[string]string
	tags   map[string]bool
}

func newStaged(it record.Item, d *Decision) *staged {
	return &staged{it: it, d: d, fields: make(map[string]string), tags: make(map[string]bool)}
}

func (s *staged) field(name string) string {
	if v, ok := s.fields[name]; ok {
		return v
	}
	return s.it.GetField(name)
}

func (s *staged) setField(name, value string) {
	s.fields[name] = value
	s.d.ops = append(s.d.ops, Op{Kind: OpSetField, Name: name, Value: value})
}

// fillField writes only when the field is currently empty.
func (s *staged) fillField(name, value string) {
	if value == "" || s.field(name) != "" {
		return
	}
	s.setField(name, value)
}

func (s *staged) addTag(name string) {
	if name == "" || s.tags[name] || s.it.HasTag(name) {
		return
	}
	s.tags[name] = true
	s.d.ops = append(s.d.ops, Op{Kind: OpAddTag, Name: name})
}

func (s *staged) addCreator(c record.Creator) {
	s.d.ops = append(s.d.ops, Op{Kind: OpAddCreator, Creator: c})
}

// appendExtra appends a line to the free-text note field unless a line with
// the guard label is already present, which keeps repeated runs idempotent.
func (s *staged) appendExtra(guard, line string) {
	extra := s.field(record.FieldExtra)
	if strings.Contains(extra, guard) {
		return
	}
	if extra != "" {
		line = extra + "\n" + line
	}
	s.setField(record.FieldExtra, line)
}

// Merge dispatches on the payload variant. lookupID is the identifier the
// payload was fetched with.
func Merge(it record.Item, p *fetch.Payload, lookupID string) *Decision {
	switch {
	case p == nil:
		return &Decision{}
	case p.Book != nil:
		return Book(it, p.Book, lookupID)
	case p.Work != nil:
		return Work(it, p.Work)
	}
	return &Decision{}
}

// Book merges a Google Books volume into an item. lookupISBN is the
// normalized ISBN the volume was fetched with.
func Book(it record.Item, vi *googlebooks.VolumeInfo, lookupISBN string) *Decision {
	d := &Decision{}
	s := newStaged(it, d)

	if s.field(record.FieldTitle) == "" && vi.Title != "" {
		s.setField(record.FieldTitle, vi.Title)
	}
	// The subtitle rule re-evaluates against the possibly just-set title,
	// so it can fire in the same pass as the empty-title rule above.
	if vi.Subtitle != "" {
		title := s.field(record.FieldTitle)
		if title == "" || !strings.Contains(title, vi.Subtitle) {
			s.setField(record.FieldTitle, vi.Title+": "+vi.Subtitle)
		}
	}
	if len(vi.Authors) > 0 && len(it.GetCreators()) == 0 {
		for _, name := range vi.Authors {
			first, last := splitName(name)
			s.addCreator(record.Creator{FirstName: first, LastName: last, Type: record.CreatorAuthor})
		}
	}
	s.fillField(record.FieldPublisher, vi.Publisher)
	s.fillField(record.FieldDate, tidyDate(vi.PublishedDate))
	if s.field(record.FieldAbstract) == "" && vi.Description != "" {
		s.fillField(record.FieldAbstract, StripHTML(vi.Description))
	}
	if vi.PageCount > 0 {
		s.fillField(record.FieldNumPages, strconv.FormatInt(vi.PageCount, 10))
	}
	if vi.Language != "" {
		s.fillField(record.FieldLanguage, strings.ToUpper(vi.Language))
	}
	for _, category := range vi.Categories {
		s.addTag(category)
	}
	// An ISBN discovered by scanning free-text fields is written back into
	// the record's own ISBN field.
	if lookupISBN != "" && it.SupportsField(record.FieldISBN) {
		s.fillField(record.FieldISBN, lookupISBN)
	}
	if best := vi.BestISBN(); best != "" && best != lookupISBN && it.SupportsField(record.FieldISBN) {
		s.setField(record.FieldISBN, best)
	}
	if vi.ImageLinks.Thumbnail != "" {
		s.appendExtra("thumbnail:", "thumbnail: "+vi.ImageLinks.Thumbnail)
	}
	if vi.InfoLink != "" {
		s.appendExtra("Google Books:", "Google Books: "+vi.InfoLink)
	}
	if vi.Series != "" || vi.Volume != "" {
		var parts []string
		guard := "Volume:"
		if vi.Series != "" {
			parts = append(parts, "Series: "+vi.Series)
			guard = "Series:"
		}
		if vi.Volume != "" {
			parts = append(parts, "Volume: "+vi.Volume)
		}
		s.appendExtra(guard, strings.Join(parts, "; "))
	}
	return d
}

// Work merges an OpenAlex work into an item.
func Work(it record.Item, w *openalex.Work) *Decision {
	d := &Decision{}
	s := newStaged(it, d)

	if s.field(record.FieldAbstract) == "" && len(w.AbstractInvertedIndex) > 0 {
		if text := ReconstructAbstract(w.AbstractInvertedIndex); text != "" {
			s.setField(record.FieldAbstract, text)
		}
	}
	if isbn := w.IDs.ISBN.First(); isbn != "" && s.field(record.FieldISBN) == "" {
		clean := strings.ReplaceAll(isbn, "urn:isbn:", "")
		if clean != "" && it.SupportsField(record.FieldISBN) {
			s.setField(record.FieldISBN, clean)
		}
	}
	s.fillField(record.FieldVolume, strings.TrimSpace(w.Biblio.Volume))
	s.fillField(record.FieldIssue, strings.TrimSpace(w.Biblio.Issue))
	if w.Biblio.FirstPage != "" {
		s.fillField(record.FieldPages, w.Pages())
	}
	for _, kw := range w.Keywords {
		s.addTag(kw.DisplayName)
	}
	if u := w.OpenAccess.OaUrl; u != "" {
		cur := s.field(record.FieldURL)
		if cur == "" || strings.Contains(cur, "doi.org") {
			s.setField(record.FieldURL, u)
		}
	}
	if len(w.SustainableDevelopmentGoals) > 0 {
		names := make([]string, 0, len(w.SustainableDevelopmentGoals))
		for _, sdg := range w.SustainableDevelopmentGoals {
			names = append(names, sdg.DisplayName)
		}
		s.appendExtra("SDG:", "SDG: "+strings.Join(names, "; "))
	}
	return d
}

// maxAbstractPositions caps the token positions accepted from an inverted
// index, so a payload with one absurd position cannot force a huge
// allocation. Real abstracts stay far below this.
const maxAbstractPositions = 1 << 16

// ReconstructAbstract rebuilds the plain text of an abstract from a
// word to positions inverted index. Positions are zero-based; under
// well-formed input each position belongs to exactly one word. Unassigned
// and out-of-range positions are dropped from the output.
func ReconstructAbstract(index map[string][]int) string {
	max := -1
	for _, positions := range index {
		for _, p := range positions {
			if p > max && p <= maxAbstractPositions {
				max = p
			}
		}
	}
	if max < 0 {
		return ""
	}
	slots := make([]string, max+1)
	for word, positions := range index {
		for _, p := range positions {
			if p >= 0 && p <= max {
				slots[p] = word
			}
		}
	}
	words := make([]string, 0, len(slots))
	for _, w := range slots {
		if w != "" {
			words = append(words, w)
		}
	}
	return strings.Join(words, " ")
}

// StripHTML removes markup from description-style text.
func StripHTML(s string) string {
	if !strings.Contains(s, "<") {
		return s
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	return strings.TrimSpace(doc.Text())
}

// splitName splits a display name on whitespace: the final token becomes
// the last name, everything before it the first name. Single-token names
// get an empty first name.
func splitName(full string) (first, last string) {
	parts := strings.Fields(full)
	if len(parts) == 0 {
		return "", ""
	}
	return strings.Join(parts[:len(parts)-1], " "), parts[len(parts)-1]
}

// tidyDate normalizes full dates to YYYY-MM-DD; partial or unparseable
// values are stored as given.
func tidyDate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) < 8 {
		return s
	}
	t, err := dateparse.ParseStrict(s)
	if err != nil {
		return s
	}
	return t.Format("2006-01-02")
}
