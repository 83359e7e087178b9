// Package record defines the host-side view of a bibliographic item. The
// enrichment engine reads field values and stages writes through this
// surface; the owning application persists an item with a single SaveTx call
// after all mutations for that item have been staged.
package record

// Field names used by the enrichment rules. An unset field reads as the
// empty string; there is no null-vs-empty distinction.
const (
	FieldTitle     = "title"
	FieldISBN      = "ISBN"
	FieldDOI       = "DOI"
	FieldPublisher = "publisher"
	FieldDate      = "date"
	FieldAbstract  = "abstractNote"
	FieldVolume    = "volume"
	FieldIssue     = "issue"
	FieldPages     = "pages"
	FieldURL       = "url"
	FieldLanguage  = "language"
	FieldNumPages  = "numPages"
	FieldExtra     = "extra"
)

// Item types with special meaning to the eligibility filter.
const (
	ItemTypeBook        = "book"
	ItemTypeBookSection = "bookSection"
	ItemTypeAttachment  = "attachment"
	ItemTypeNote        = "note"
)

// CreatorAuthor is the creator role assigned to names taken from a source.
const CreatorAuthor = "author"

// Creator is one entry in an item's ordered creator list.
type Creator struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Type      string `json:"creatorType"`
}

// Item is the collaborator owning a bibliographic record. Implementations
// stage SetField, AddCreator and AddTag calls and commit them atomically in
// SaveTx. An Item is only ever touched by one pipeline at a time.
type Item interface {
	// Type returns the item type, e.g. "book" or "journalArticle".
	Type() string
	// IsRegularItem reports whether the item is a proper bibliographic
	// entry, as opposed to an attachment or a standalone note.
	IsRegularItem() bool
	// GetField returns the current value of a named field, "" if unset.
	GetField(name string) string
	// SetField stages a new value for a named field.
	SetField(name, value string)
	// GetCreators returns the ordered creator list.
	GetCreators() []Creator
	// AddCreator appends a creator entry.
	AddCreator(c Creator)
	// HasTag reports whether a tag is already present.
	HasTag(name string) bool
	// AddTag adds a tag. Adding an existing tag is a no-op.
	AddTag(name string)
	// SupportsField reports whether the item type carries a named field
	// at all, e.g. journal articles have no ISBN field.
	SupportsField(name string) bool
	// SaveTx commits all staged mutations.
	SaveTx() error
}
