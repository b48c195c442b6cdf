package doclink

import (
	"fmt"
	"strings"
)

// SweepInvisibleHyperlinks removes hyperlink elements whose trimmed display
// text is empty, along with their relationships. Elements are visited
// backward by index so removals never shift the position of an unseen
// element. Broken relationships (element id that resolves to nothing) are
// tolerated; the element is still removed. Returns the number of removed
// elements.
func SweepInvisibleHyperlinks(pkg *Package, changeLog *ChangeLog, logger *Logger) int {
	if logger == nil {
		logger = NopLogger()
	}

	refs := pkg.Hyperlinks()
	removed := 0
	for i := len(refs) - 1; i >= 0; i-- {
		ref := refs[i]
		if strings.TrimSpace(ref.DisplayText()) != "" {
			continue
		}

		RemoveHyperlinkElement(ref.Paragraph, ref.Element)
		if !ref.BrokenRel {
			pkg.DeleteHyperlinkRelationship(ref.RelID)
		}
		removed++

		details := fmt.Sprintf("invisible hyperlink removed (target %q)", ref.Target)
		if ref.BrokenRel {
			details = fmt.Sprintf("invisible hyperlink removed (broken relationship %q)", ref.RelID)
		}
		changeLog.Record(ChangeHyperlinkRemoved, ref.RelID, ref.Target, "", details)
		logger.Debug("swept invisible hyperlink rel=%s target=%s", ref.RelID, ref.Target)
	}
	return removed
}
