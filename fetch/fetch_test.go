package fetch

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/bzuer/zoteroEhancer/record"
)

const volumesJSON = `{
  "totalItems": 1,
  "items": [
    {
      "volumeInfo": {
        "title": "Learning X",
        "subtitle": "A Field Guide",
        "authors": ["Jane A. Doe"],
        "publisher": "Acme Press",
        "publishedDate": "2009-05-01",
        "pageCount": 355,
        "industryIdentifiers": [
          {"type": "ISBN_10", "identifier": "0596520689"},
          {"type": "ISBN_13", "identifier": "9780596520687"}
        ]
      }
    }
  ]
}`

const workJSON = `{
  "id": "https://openalex.org/W2741809807",
  "title": "An example work",
  "doi": "https://doi.org/10.7717/peerj.4375",
  "biblio": {"volume": "6", "first_page": "e4375"},
  "abstract_inverted_index": {"Hello": [0], "world": [1]}
}`

func TestGoogleBooksFetch(t *testing.T) {
	var gotURL *url.URL
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURL = r.URL
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, volumesJSON)
	}))
	defer server.Close()

	g := &GoogleBooks{Endpoint: server.URL, APIKey: "secret"}
	p, err := g.Fetch(context.Background(), "9780596520687")
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if p == nil || p.Book == nil {
		t.Fatal("expected a book payload")
	}
	if p.Book.Title != "Learning X" {
		t.Errorf("got title %q", p.Book.Title)
	}
	if got := gotURL.Query().Get("q"); got != "isbn:9780596520687" {
		t.Errorf("got query %q", got)
	}
	if got := gotURL.Query().Get("key"); got != "secret" {
		t.Errorf("got key %q", got)
	}
}

func TestGoogleBooksFetchNoResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"totalItems": 0}`)
	}))
	defer server.Close()

	g := &GoogleBooks{Endpoint: server.URL}
	p, err := g.Fetch(context.Background(), "9791234567890")
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if p != nil {
		t.Errorf("expected nil payload for empty response, got %+v", p)
	}
}

func TestGoogleBooksFetchHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	g := &GoogleBooks{Endpoint: server.URL}
	if _, err := g.Fetch(context.Background(), "9780596520687"); err == nil {
		t.Fatal("expected an error for HTTP 429")
	}
}

func TestGoogleBooksFetchBadBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `<html>not json</html>`)
	}))
	defer server.Close()

	g := &GoogleBooks{Endpoint: server.URL}
	if _, err := g.Fetch(context.Background(), "9780596520687"); err == nil {
		t.Fatal("expected a decode error")
	}
}

func TestGoogleBooksEligible(t *testing.T) {
	g := &GoogleBooks{}
	var cases = []struct {
		about string
		item  *record.MemItem
		want  bool
	}{
		{"book", &record.MemItem{ItemType: record.ItemTypeBook}, true},
		{"book section", &record.MemItem{ItemType: record.ItemTypeBookSection}, true},
		{"attachment", &record.MemItem{ItemType: record.ItemTypeAttachment}, false},
		{
			"article with ISBN",
			&record.MemItem{
				ItemType: "conferencePaper",
				Fields:   map[string]string{record.FieldISBN: "9780596520687"},
			},
			true,
		},
		{"article without ISBN", &record.MemItem{ItemType: "journalArticle"}, false},
	}
	for _, c := range cases {
		if got := g.Eligible(c.item); got != c.want {
			t.Errorf("%s: got %v, want %v", c.about, got, c.want)
		}
	}
}

func TestOpenAlexFetch(t *testing.T) {
	var gotPath string
	var gotMailto string
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMailto = r.URL.Query().Get("mailto")
		gotUA = r.Header.Get("User-Agent")
		io.WriteString(w, workJSON)
	}))
	defer server.Close()

	o := &OpenAlex{
		Endpoint:     server.URL,
		ContactEmail: "metadata@example.com",
		UserAgent:    "zoteroenhancer/test",
	}
	p, err := o.Fetch(context.Background(), "10.7717/peerj.4375")
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if p == nil || p.Work == nil {
		t.Fatal("expected a work payload")
	}
	if p.Work.Title != "An example work" {
		t.Errorf("got title %q", p.Work.Title)
	}
	if gotPath != "/doi:10.7717/peerj.4375" {
		t.Errorf("got path %q", gotPath)
	}
	if gotMailto != "metadata@example.com" {
		t.Errorf("got mailto %q", gotMailto)
	}
	if gotUA != "zoteroenhancer/test" {
		t.Errorf("got user agent %q", gotUA)
	}
}

func TestOpenAlexFetchEscapesDOI(t *testing.T) {
	var gotPath string
	var gotMailto string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMailto = r.URL.Query().Get("mailto")
		io.WriteString(w, workJSON)
	}))
	defer server.Close()

	o := &OpenAlex{Endpoint: server.URL, ContactEmail: "metadata@example.com"}
	// # and space must not truncate the path or detach the query
	if _, err := o.Fetch(context.Background(), "10.1000/odd doi#frag"); err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if gotPath != "/doi:10.1000/odd doi#frag" {
		t.Errorf("got path %q", gotPath)
	}
	if gotMailto != "metadata@example.com" {
		t.Errorf("got mailto %q", gotMailto)
	}
}

func TestOpenAlexFetchNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	o := &OpenAlex{Endpoint: server.URL}
	if _, err := o.Fetch(context.Background(), "10.1000/missing"); err == nil {
		t.Fatal("expected an error for HTTP 404")
	}
}

func TestOpenAlexEligible(t *testing.T) {
	o := &OpenAlex{}
	withDOI := &record.MemItem{
		ItemType: "journalArticle",
		Fields:   map[string]string{record.FieldDOI: "10.7717/peerj.4375"},
	}
	if !o.Eligible(withDOI) {
		t.Error("item with DOI should be eligible")
	}
	if o.Eligible(&record.MemItem{ItemType: "journalArticle"}) {
		t.Error("item without DOI should not be eligible")
	}
	note := &record.MemItem{
		ItemType: record.ItemTypeNote,
		Fields:   map[string]string{record.FieldDOI: "10.7717/peerj.4375"},
	}
	if o.Eligible(note) {
		t.Error("note should not be eligible")
	}
}
