package doclink

import (
	"fmt"
	"strings"
)

// Display-text suffixes. Detection is case-insensitive; emission uses this
// exact casing.
const (
	ExpiredSuffix  = " - Expired"
	NotFoundSuffix = " - Not Found"
)

// viewFragmentPrefix is the sub-address prefix of every rewritten URL. The
// "!" is emitted verbatim.
const viewFragmentPrefix = "!/view?docid="

// HyperlinkMutator applies the resolve-and-rewrite state machine to one
// hyperlink at a time inside an open session. Ordering is fixed: URL swap,
// then content-id appending, then status suffix. Each hyperlink's changes
// are committed to the in-memory tree before the next one is processed.
type HyperlinkMutator struct {
	pkg       *Package
	cfg       *Config
	changeLog *ChangeLog
	logger    *Logger
}

// NewHyperlinkMutator creates a mutator bound to an open package.
func NewHyperlinkMutator(pkg *Package, cfg *Config, changeLog *ChangeLog, logger *Logger) *HyperlinkMutator {
	if logger == nil {
		logger = NopLogger()
	}
	return &HyperlinkMutator{pkg: pkg, cfg: cfg, changeLog: changeLog, logger: logger}
}

// Apply resolves one hyperlink against the record dictionary and rewrites
// its URL and display text. The record is updated in place with the
// outcome.
func (m *HyperlinkMutator) Apply(record *HyperlinkRecord, ref HyperlinkRef, dict *RecordDictionary) error {
	displayText := ref.DisplayText()
	hasExpired := hasSuffixFold(displayText, ExpiredSuffix)
	hasNotFound := hasSuffixFold(displayText, NotFoundSuffix)

	resolved, ok := dict.Lookup(record.LookupID)
	if !ok {
		if hasExpired || hasNotFound {
			record.Resolved = ResolutionNotFound
			return nil
		}
		updated := displayText + NotFoundSuffix
		ReplaceHyperlinkDisplayText(ref.Element, updated)
		m.changeLog.Record(ChangeHyperlinkStatusAdded, record.ID, displayText, updated,
			fmt.Sprintf("lookup id %q not found", record.LookupID))
		record.Resolved = ResolutionNotFound
		record.UpdatedDisplayText = updated
		record.Action = ActionUpdated
		return nil
	}

	return m.rewriteRecord(record, ref, resolved, displayText, hasExpired, hasNotFound)
}

func (m *HyperlinkMutator) rewriteRecord(record *HyperlinkRecord, ref HyperlinkRef, resolved *DocumentRecord, displayText string, hasExpired, hasNotFound bool) error {
	record.DocumentID = resolved.DocumentID
	record.ContentID = resolved.ContentID
	record.APITitle = resolved.Title
	if resolved.IsExpired() {
		record.Resolved = ResolutionExpired
	} else {
		record.Resolved = ResolutionActive
	}

	// Step 1-2: URL swap.
	docID := resolved.DocumentID
	if docID == "" {
		docID = resolved.ContentID
	}
	if docID != "" {
		targetURL := m.cfg.BaseAddress() + "#" + viewFragmentPrefix + docID
		if targetURL != ref.Target {
			if err := m.swapRelationship(ref, targetURL); err != nil {
				return err
			}
			m.changeLog.Record(ChangeHyperlinkUpdated, record.ID, ref.Target, targetURL, "url rewritten to authoritative record")
			record.UpdatedURL = targetURL
			record.Action = ActionUpdated
		}
	}

	// Steps 3-5 accumulate display-text edits, applied once at the end.
	text := displayText

	// Step 3: content-id appending, including the 5-to-6 digit upgrade.
	if !hasExpired && !hasNotFound && resolved.ContentID != "" {
		last6 := lastSixDigits(resolved.ContentID)
		last5 := last6[1:]
		pat5 := " (" + last5 + ")"
		pat6 := " (" + last6 + ")"

		switch {
		case strings.HasSuffix(text, pat5) && !strings.HasSuffix(text, pat6):
			text = text[:len(text)-len(pat5)] + pat6
			m.changeLog.Record(ChangeContentIDAdded, record.ID, displayText, text, "content id upgraded to six digits")
		case !containsFold(text, pat6):
			text = strings.TrimRight(text, " \t") + pat6
			m.changeLog.Record(ChangeContentIDAdded, record.ID, displayText, text, "content id appended")
		}
	}

	// Step 4: status suffix.
	if resolved.IsExpired() {
		if !hasExpired {
			old := text
			text += ExpiredSuffix
			m.changeLog.Record(ChangeHyperlinkStatusAdded, record.ID, old, text, "record expired")
		}
	} else if statusIsNotFound(resolved.Status) && !hasExpired && !hasNotFound {
		old := text
		text += NotFoundSuffix
		m.changeLog.Record(ChangeHyperlinkStatusAdded, record.ID, old, text, "record not found")
	}

	// Step 5: title comparison. Status suffixes and the trailing
	// nine-character content-id pattern are not part of the title.
	if resolved.Title != "" {
		base := stripStatusSuffixes(text)
		base = stripContentIDPattern(base)
		if !strings.EqualFold(strings.TrimSpace(base), strings.TrimSpace(resolved.Title)) {
			if m.cfg.Validation.AutoReplaceTitles {
				old := text
				text = resolved.Title
				if resolved.ContentID != "" {
					text += " (" + lastSixDigits(resolved.ContentID) + ")"
				}
				text += statusSuffixOf(old)
				m.changeLog.Record(ChangeTitleReplaced, record.ID, old, text, "display text replaced with resolver title")
			} else if m.cfg.Validation.ReportTitleDifferences {
				m.changeLog.Record(ChangePossibleTitleChange, record.ID, base, resolved.Title, "display text differs from resolver title")
			}
		}
	}

	// Step 6: one replace-text operation, preserving the first run's
	// formatting.
	if text != displayText {
		ReplaceHyperlinkDisplayText(ref.Element, text)
		record.UpdatedDisplayText = text
		record.Action = ActionUpdated
	}

	return nil
}

// swapRelationship performs the atomic relationship swap: create the new
// relationship, rebind the element, then delete the old relationship
// (tolerating already-deleted). Any failure deletes the half-created new
// relationship before returning. The old relationship is never deleted
// first.
func (m *HyperlinkMutator) swapRelationship(ref HyperlinkRef, targetURL string) (err error) {
	newID, err := m.pkg.AddHyperlinkRelationship(targetURL, true, "")
	if err != nil {
		return &RelationshipError{RelID: ref.RelID, During: "swap", Cause: err}
	}

	defer func() {
		if r := recover(); r != nil {
			m.pkg.DeleteHyperlinkRelationship(newID)
			err = &RelationshipError{RelID: ref.RelID, During: "swap", Cause: RecoverError(r)}
		}
	}()

	SetHyperlinkElementID(ref.Element, newID)
	m.pkg.DeleteHyperlinkRelationship(ref.RelID)
	return nil
}

// lastSixDigits returns the rightmost six characters of a content id,
// left-padded with zeros when the id is shorter.
func lastSixDigits(contentID string) string {
	if len(contentID) > 6 {
		contentID = contentID[len(contentID)-6:]
	}
	for len(contentID) < 6 {
		contentID = "0" + contentID
	}
	return contentID
}

// stripContentIDPattern removes a trailing " (dddddd)" pattern (nine
// characters) when present.
func stripContentIDPattern(text string) string {
	if len(text) < 9 {
		return text
	}
	tail := text[len(text)-9:]
	if tail[0] != ' ' || tail[1] != '(' || tail[8] != ')' {
		return text
	}
	for i := 2; i < 8; i++ {
		if tail[i] < '0' || tail[i] > '9' {
			return text
		}
	}
	return text[:len(text)-9]
}

func stripStatusSuffixes(text string) string {
	for {
		switch {
		case hasSuffixFold(text, ExpiredSuffix):
			text = text[:len(text)-len(ExpiredSuffix)]
		case hasSuffixFold(text, NotFoundSuffix):
			text = text[:len(text)-len(NotFoundSuffix)]
		default:
			return text
		}
	}
}

// statusSuffixOf returns the status suffix carried by the text, empty when
// none.
func statusSuffixOf(text string) string {
	if hasSuffixFold(text, ExpiredSuffix) {
		return ExpiredSuffix
	}
	if hasSuffixFold(text, NotFoundSuffix) {
		return NotFoundSuffix
	}
	return ""
}

func statusIsNotFound(status string) bool {
	return strings.EqualFold(status, "NotFound") || strings.EqualFold(status, "Not Found")
}

func hasSuffixFold(s, suffix string) bool {
	if len(s) < len(suffix) {
		return false
	}
	return strings.EqualFold(s[len(s)-len(suffix):], suffix)
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
