package record

// MemItem is an in-memory Item, used by the command line tools, which read
// items from a JSON export, and by tests. Mutations take effect immediately;
// SaveTx only counts commits, or fails when SaveErr is set.
type MemItem struct {
	ItemType string            `json:"itemType"`
	Fields   map[string]string `json:"fields,omitempty"`
	Creators []Creator         `json:"creators,omitempty"`
	Tags     []string          `json:"tags,omitempty"`

	SaveErr error `json:"-"`
	Saves   int   `json:"-"`
}

// isbnFieldTypes lists the item types that carry an ISBN field, mirroring
// the host application's field validity rules for the fields this engine
// writes.
var isbnFieldTypes = map[string]bool{
	ItemTypeBook:          true,
	ItemTypeBookSection:   true,
	"conferencePaper":     true,
	"dictionaryEntry":     true,
	"encyclopediaArticle": true,
}

func (m *MemItem) Type() string { return m.ItemType }

func (m *MemItem) IsRegularItem() bool {
	return m.ItemType != ItemTypeAttachment && m.ItemType != ItemTypeNote
}

func (m *MemItem) GetField(name string) string { return m.Fields[name] }

func (m *MemItem) SetField(name, value string) {
	if m.Fields == nil {
		m.Fields = make(map[string]string)
	}
	m.Fields[name] = value
}

func (m *MemItem) GetCreators() []Creator { return m.Creators }

func (m *MemItem) AddCreator(c Creator) { m.Creators = append(m.Creators, c) }

func (m *MemItem) HasTag(name string) bool {
	for _, t := range m.Tags {
		if t == name {
			return true
		}
	}
	return false
}

func (m *MemItem) AddTag(name string) {
	if m.HasTag(name) {
		return
	}
	m.Tags = append(m.Tags, name)
}

func (m *MemItem) SupportsField(name string) bool {
	if name == FieldISBN {
		return isbnFieldTypes[m.ItemType]
	}
	return true
}

func (m *MemItem) SaveTx() error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.Saves++
	return nil
}
