package enrich

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/bzuer/zoteroEhancer/fetch"
	"github.com/bzuer/zoteroEhancer/identifier"
	"github.com/bzuer/zoteroEhancer/record"
	"github.com/bzuer/zoteroEhancer/schema/googlebooks"
)

// fakeSource behaves like the ISBN source but serves canned payloads.
type fakeSource struct {
	mu       sync.Mutex
	fetched  []string
	payloads map[string]*fetch.Payload
	errs     map[string]error
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) Eligible(it record.Item) bool {
	return it.IsRegularItem() && (it.Type() == record.ItemTypeBook || it.GetField(record.FieldISBN) != "")
}

func (f *fakeSource) Identify(it record.Item) (string, bool) {
	return identifier.ISBN(it)
}

func (f *fakeSource) Fetch(ctx context.Context, id string) (*fetch.Payload, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, id)
	f.mu.Unlock()
	if err := f.errs[id]; err != nil {
		return nil, err
	}
	return f.payloads[id], nil
}

func TestPartition(t *testing.T) {
	items := make([]record.Item, 25)
	for i := range items {
		items[i] = &record.MemItem{ItemType: record.ItemTypeBook}
	}
	groups := partition(items, 12)
	var sizes []int
	for _, g := range groups {
		sizes = append(sizes, len(g))
	}
	if len(sizes) != 3 || sizes[0] != 12 || sizes[1] != 12 || sizes[2] != 1 {
		t.Fatalf("got batch sizes %v, want [12 12 1]", sizes)
	}
	if got := partition(nil, 12); got != nil {
		t.Fatalf("expected no groups for no items, got %v", got)
	}
}

func TestRunEndToEnd(t *testing.T) {
	// records with an explicit ISBN, a note-embedded ISBN, and no ISBN
	explicit := &record.MemItem{
		ItemType: record.ItemTypeBook,
		Fields:   map[string]string{record.FieldISBN: "978-0-13-468599-1"},
	}
	scanned := &record.MemItem{
		ItemType: record.ItemTypeBook,
		Fields:   map[string]string{record.FieldExtra: "see ISBN: 978-0-596-52068-7 for details"},
	}
	bare := &record.MemItem{ItemType: record.ItemTypeBook}
	attachment := &record.MemItem{ItemType: record.ItemTypeAttachment}

	src := &fakeSource{
		payloads: map[string]*fetch.Payload{
			"9780596520687": {Book: &googlebooks.VolumeInfo{
				Title:   "Learning X",
				Authors: []string{"Jane A. Doe"},
			}},
			"9780134685991": {Book: &googlebooks.VolumeInfo{Title: "Other"}},
		},
	}
	e := &Enricher{Source: src, BatchSize: 2}
	res, err := e.Run(context.Background(), []record.Item{explicit, scanned, bare, attachment})
	if err != nil {
		t.Fatal(err)
	}
	if res.Selected != 4 || res.Eligible != 3 || res.Updated != 2 {
		t.Fatalf("got %+v, want selected=4 eligible=3 updated=2", res)
	}
	if scanned.GetField(record.FieldTitle) != "Learning X" {
		t.Errorf("scanned item title: got %q", scanned.GetField(record.FieldTitle))
	}
	// the identifier discovered in the note is written back
	if scanned.GetField(record.FieldISBN) != "9780596520687" {
		t.Errorf("scanned item ISBN: got %q", scanned.GetField(record.FieldISBN))
	}
	wantCreators := []record.Creator{{FirstName: "Jane A.", LastName: "Doe", Type: record.CreatorAuthor}}
	if len(scanned.Creators) != 1 || scanned.Creators[0] != wantCreators[0] {
		t.Errorf("scanned item creators: got %+v", scanned.Creators)
	}
	if scanned.Saves != 1 || explicit.Saves != 1 {
		t.Errorf("save counts: scanned=%d explicit=%d, want 1 each", scanned.Saves, explicit.Saves)
	}
	// the bare record has no derivable key and never reaches the source
	if len(src.fetched) != 2 {
		t.Errorf("fetched %v, want exactly the two resolvable identifiers", src.fetched)
	}
}

func TestRunContainsFailures(t *testing.T) {
	ok := &record.MemItem{
		ItemType: record.ItemTypeBook,
		Fields:   map[string]string{record.FieldISBN: "9780596520687"},
	}
	failing := &record.MemItem{
		ItemType: record.ItemTypeBook,
		Fields:   map[string]string{record.FieldISBN: "9780134685991"},
	}
	unsaved := &record.MemItem{
		ItemType: record.ItemTypeBook,
		Fields:   map[string]string{record.FieldISBN: "9791234567890"},
		SaveErr:  errors.New("db locked"),
	}
	src := &fakeSource{
		payloads: map[string]*fetch.Payload{
			"9780596520687": {Book: &googlebooks.VolumeInfo{Title: "A"}},
			"9791234567890": {Book: &googlebooks.VolumeInfo{Title: "B"}},
		},
		errs: map[string]error{
			"9780134685991": errors.New("connection reset"),
		},
	}
	e := &Enricher{Source: src}
	res, err := e.Run(context.Background(), []record.Item{ok, failing, unsaved})
	if err != nil {
		t.Fatal(err)
	}
	if res.Updated != 1 {
		t.Fatalf("got updated=%d, want 1", res.Updated)
	}
	// the failed fetch counts as no data, only the failed write-back counts
	if res.Failed != 1 {
		t.Fatalf("got failed=%d, want 1", res.Failed)
	}
	if ok.GetField(record.FieldTitle) != "A" {
		t.Errorf("sibling record not processed: %+v", ok.Fields)
	}
	if failing.GetField(record.FieldTitle) != "" {
		t.Errorf("failed fetch must leave the record untouched")
	}
	// the merge was applied but the save failed; the item does not count
	if unsaved.Saves != 0 {
		t.Errorf("unexpected save count %d", unsaved.Saves)
	}
}

func TestRunUnchangedRecordNotSaved(t *testing.T) {
	it := &record.MemItem{
		ItemType: record.ItemTypeBook,
		Fields: map[string]string{
			record.FieldISBN:  "9780596520687",
			record.FieldTitle: "Already set",
		},
	}
	src := &fakeSource{
		payloads: map[string]*fetch.Payload{
			"9780596520687": {Book: &googlebooks.VolumeInfo{Title: "Other"}},
		},
	}
	e := &Enricher{Source: src}
	res, err := e.Run(context.Background(), []record.Item{it})
	if err != nil {
		t.Fatal(err)
	}
	if res.Updated != 0 || it.Saves != 0 {
		t.Fatalf("unchanged record written back: updated=%d saves=%d", res.Updated, it.Saves)
	}
}

func TestSummary(t *testing.T) {
	var cases = []struct {
		res  Result
		want string
	}{
		{Result{Selected: 5}, "No eligible items selected."},
		{Result{Selected: 5, Eligible: 3, Updated: 2}, "It's ready. 2 updated items."},
		{Result{Selected: 5, Eligible: 3}, "It's ready. 0 updated items."},
	}
	for _, c := range cases {
		if got := c.res.Summary(); got != c.want {
			t.Errorf("got %q, want %q", got, c.want)
		}
	}
}
