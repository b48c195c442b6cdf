package doclink

import (
	"fmt"
	"time"
)

// ChangeType classifies a single entry in a document's change log.
type ChangeType string

const (
	ChangeHyperlinkUpdated     ChangeType = "HyperlinkUpdated"
	ChangeHyperlinkRemoved     ChangeType = "HyperlinkRemoved"
	ChangeHyperlinkStatusAdded ChangeType = "HyperlinkStatusAdded"
	ChangeContentIDAdded       ChangeType = "ContentIdAdded"
	ChangeTitleReplaced        ChangeType = "TitleReplaced"
	ChangePossibleTitleChange  ChangeType = "PossibleTitleChange"
	ChangeTextReplaced         ChangeType = "TextReplaced"
	ChangeTextOptimized        ChangeType = "TextOptimized"
	ChangeInformation          ChangeType = "Information"
	ChangeError                ChangeType = "Error"
)

// ChangeEntry records one mutation (or notable observation) made during a
// document session. The change log outlives the session and is the visible
// result for the caller.
type ChangeEntry struct {
	Type      ChangeType
	OldValue  string
	NewValue  string
	ElementID string
	Details   string
	Timestamp time.Time
}

func (e ChangeEntry) String() string {
	if e.OldValue != "" || e.NewValue != "" {
		return fmt.Sprintf("[%s] %s: %q -> %q (%s)", e.Type, e.ElementID, e.OldValue, e.NewValue, e.Details)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.ElementID, e.Details)
}

// ChangeLog accumulates change entries for one document session. It is not
// safe for concurrent use; each session owns exactly one.
type ChangeLog struct {
	entries []ChangeEntry
	clock   func() time.Time
}

// NewChangeLog creates an empty change log stamping entries with the given
// clock. A nil clock falls back to time.Now.
func NewChangeLog(clock func() time.Time) *ChangeLog {
	if clock == nil {
		clock = time.Now
	}
	return &ChangeLog{clock: clock}
}

// Add appends an entry, stamping it with the log's clock.
func (cl *ChangeLog) Add(entry ChangeEntry) {
	entry.Timestamp = cl.clock()
	cl.entries = append(cl.entries, entry)
}

// Record is shorthand for Add with the common fields.
func (cl *ChangeLog) Record(t ChangeType, elementID, oldValue, newValue, details string) {
	cl.Add(ChangeEntry{
		Type:      t,
		ElementID: elementID,
		OldValue:  oldValue,
		NewValue:  newValue,
		Details:   details,
	})
}

// Entries returns the recorded entries in order.
func (cl *ChangeLog) Entries() []ChangeEntry {
	return cl.entries
}

// CountByType returns how many entries of the given type were recorded.
func (cl *ChangeLog) CountByType(t ChangeType) int {
	count := 0
	for _, e := range cl.entries {
		if e.Type == t {
			count++
		}
	}
	return count
}

// Len returns the number of recorded entries.
func (cl *ChangeLog) Len() int {
	return len(cl.entries)
}
