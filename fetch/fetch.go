// Package fetch talks to the external metadata sources. Each client issues
// exactly one lookup per identifier and returns a nil payload for a
// well-formed response with no results; transport failures, non-success
// statuses and unparseable bodies surface as errors, which the scheduler
// contains per record.
package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/segmentio/encoding/json"
	"golang.org/x/time/rate"

	"github.com/bzuer/zoteroEhancer/identifier"
	"github.com/bzuer/zoteroEhancer/record"
	"github.com/bzuer/zoteroEhancer/schema/googlebooks"
	"github.com/bzuer/zoteroEhancer/schema/openalex"
)

// Default API endpoints.
const (
	DefaultGoogleBooksEndpoint = "https://www.googleapis.com/books/v1/volumes"
	DefaultOpenAlexEndpoint    = "https://api.openalex.org/works"
)

// Doer abstracts https://pkg.go.dev/net/http#Client.Do.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// Payload is the normalized result of one successful lookup. Exactly one
// side is set, depending on the source. It exists only for the duration of
// one merge.
type Payload struct {
	Book *googlebooks.VolumeInfo
	Work *openalex.Work
}

// GoogleBooks looks up book metadata by ISBN.
type GoogleBooks struct {
	Client    Doer
	Endpoint  string // DefaultGoogleBooksEndpoint when empty
	APIKey    string // optional, appended as key parameter
	UserAgent string
	Limiter   *rate.Limiter // optional request pacing
}

func (g *GoogleBooks) Name() string { return "googlebooks" }

// Eligible reports whether an item should be considered for an ISBN lookup:
// a regular item that is book-like or already carries an ISBN field.
func (g *GoogleBooks) Eligible(it record.Item) bool {
	if !it.IsRegularItem() {
		return false
	}
	switch it.Type() {
	case record.ItemTypeBook, record.ItemTypeBookSection:
		return true
	}
	return strings.TrimSpace(it.GetField(record.FieldISBN)) != ""
}

// Identify derives the lookup ISBN for an item.
func (g *GoogleBooks) Identify(it record.Item) (string, bool) {
	return identifier.ISBN(it)
}

// Fetch issues one volumes query for an ISBN.
func (g *GoogleBooks) Fetch(ctx context.Context, isbn string) (*Payload, error) {
	endpoint := g.Endpoint
	if endpoint == "" {
		endpoint = DefaultGoogleBooksEndpoint
	}
	vs := url.Values{}
	vs.Set("q", "isbn:"+isbn)
	if k := strings.TrimSpace(g.APIKey); k != "" {
		vs.Set("key", k)
	}
	link := endpoint + "?" + vs.Encode()
	resp, err := get(ctx, g.Client, g.Limiter, g.UserAgent, link)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("googlebooks: HTTP %d for %s", resp.StatusCode, isbn)
	}
	var vr googlebooks.VolumesResponse
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		return nil, fmt.Errorf("googlebooks: decode: %w", err)
	}
	vi := vr.First()
	if vi == nil {
		return nil, nil
	}
	return &Payload{Book: vi}, nil
}

// OpenAlex looks up scholarly works by DOI.
type OpenAlex struct {
	Client       Doer
	Endpoint     string // DefaultOpenAlexEndpoint when empty
	ContactEmail string // optional, joins the polite pool via mailto
	UserAgent    string
	Limiter      *rate.Limiter
}

func (o *OpenAlex) Name() string { return "openalex" }

// Eligible reports whether an item should be considered for a DOI lookup.
func (o *OpenAlex) Eligible(it record.Item) bool {
	return it.IsRegularItem() && strings.TrimSpace(it.GetField(record.FieldDOI)) != ""
}

// Identify derives the lookup DOI for an item.
func (o *OpenAlex) Identify(it record.Item) (string, bool) {
	return identifier.DOI(it)
}

// addOptionalEmail appends the mailto parameter.
func (o *OpenAlex) addOptionalEmail(vs url.Values) {
	if o.ContactEmail != "" {
		vs.Add("mailto", o.ContactEmail)
	}
}

// Fetch issues one works lookup for a DOI.
func (o *OpenAlex) Fetch(ctx context.Context, doi string) (*Payload, error) {
	endpoint := o.Endpoint
	if endpoint == "" {
		endpoint = DefaultOpenAlexEndpoint
	}
	// Escape the DOI as a path segment, keeping / and : literal. DOIs may
	// carry #, ? or spaces, which would otherwise truncate or break the URL.
	link := endpoint + "/" + (&url.URL{Path: "doi:" + doi}).EscapedPath()
	vs := url.Values{}
	o.addOptionalEmail(vs)
	if len(vs) > 0 {
		link += "?" + vs.Encode()
	}
	resp, err := get(ctx, o.Client, o.Limiter, o.UserAgent, link)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("openalex: HTTP %d for %s", resp.StatusCode, doi)
	}
	var work openalex.Work
	if err := json.NewDecoder(resp.Body).Decode(&work); err != nil {
		return nil, fmt.Errorf("openalex: decode: %w", err)
	}
	return &Payload{Work: &work}, nil
}

func get(ctx context.Context, client Doer, limiter *rate.Limiter, userAgent, link string) (*http.Response, error) {
	if client == nil {
		client = http.DefaultClient
	}
	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, "GET", link, nil)
	if err != nil {
		return nil, err
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	return client.Do(req)
}
