package doclink

import (
	"strings"
)

// ResolutionStatus is the outcome of resolving one hyperlink against the
// lookup service.
type ResolutionStatus int

const (
	ResolutionUnknown ResolutionStatus = iota
	ResolutionActive
	ResolutionExpired
	ResolutionNotFound
	ResolutionInvalid
)

func (s ResolutionStatus) String() string {
	switch s {
	case ResolutionActive:
		return "Active"
	case ResolutionExpired:
		return "Expired"
	case ResolutionNotFound:
		return "NotFound"
	case ResolutionInvalid:
		return "Invalid"
	default:
		return "Unknown"
	}
}

// ActionTaken describes what the mutator did to a hyperlink.
type ActionTaken int

const (
	ActionNone ActionTaken = iota
	ActionUpdated
	ActionRemoved
)

func (a ActionTaken) String() string {
	switch a {
	case ActionUpdated:
		return "Updated"
	case ActionRemoved:
		return "Removed"
	default:
		return "None"
	}
}

// HyperlinkRecord tracks one hyperlink through a document session: created
// during extraction, enriched by the resolver, mutated by the rewrite pass,
// and consumed by the change-log emitter.
type HyperlinkRecord struct {
	ID          string // stable surrogate key per document run
	OriginalURL string
	DisplayText string

	LookupID       string // extracted canonical identifier, possibly empty
	RequiresUpdate bool   // true iff LookupID is non-empty

	Resolved   ResolutionStatus
	DocumentID string
	ContentID  string
	APITitle   string

	UpdatedURL         string
	UpdatedDisplayText string

	Action ActionTaken
}

// DocumentRecord is one authoritative record returned by the lookup
// service. All fields are optional strings as they arrive on the wire.
type DocumentRecord struct {
	LookupID   string
	DocumentID string
	ContentID  string
	Title      string
	Status     string // "Active", "Expired", or other
}

// IsExpired reports whether the record's status is Expired,
// case-insensitively.
func (r *DocumentRecord) IsExpired() bool {
	return strings.EqualFold(r.Status, "Expired")
}

// RecordDictionary indexes resolver records by both Document_ID and
// Content_ID, case-insensitively. First writer wins for each key.
type RecordDictionary struct {
	records map[string]*DocumentRecord
}

// NewRecordDictionary creates an empty dictionary.
func NewRecordDictionary() *RecordDictionary {
	return &RecordDictionary{records: make(map[string]*DocumentRecord)}
}

// Add registers a record under both its DocumentID and ContentID keys.
// Empty keys and duplicates are ignored.
func (d *RecordDictionary) Add(record *DocumentRecord) {
	if record == nil {
		return
	}
	d.addKey(record.DocumentID, record)
	d.addKey(record.ContentID, record)
}

func (d *RecordDictionary) addKey(key string, record *DocumentRecord) {
	key = strings.TrimSpace(key)
	if key == "" {
		return
	}
	norm := strings.ToLower(key)
	if _, exists := d.records[norm]; exists {
		return
	}
	d.records[norm] = record
}

// Lookup returns the record registered under the given key,
// case-insensitively.
func (d *RecordDictionary) Lookup(key string) (*DocumentRecord, bool) {
	record, ok := d.records[strings.ToLower(strings.TrimSpace(key))]
	return record, ok
}

// Len returns the number of distinct keys.
func (d *RecordDictionary) Len() int {
	return len(d.records)
}

// ApiProcessingResult summarizes one resolver call: which input identifiers
// matched a live record, which matched an expired one, and which matched
// nothing at all.
type ApiProcessingResult struct {
	Found   []*DocumentRecord
	Expired []*DocumentRecord
	Missing []string
	Error   string
}

// DocumentMetadata carries the package-level core properties read during
// extraction.
type DocumentMetadata struct {
	Title       string
	Author      string
	Subject     string
	Keywords    string
	Description string
}
