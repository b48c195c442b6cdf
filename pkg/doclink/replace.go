package doclink

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/benjaminschreck/doclink/pkg/doclink/xml"
)

// TextReplacer applies the user's ordered replacement rules to every
// paragraph, preserving complex structure. Simple paragraphs are rewritten
// as a whole (consolidated into the first run); complex paragraphs are
// edited text node by text node, never touching nodes under a field code
// or drawing.
type TextReplacer struct {
	rules     []ReplacementRule
	changeLog *ChangeLog
	logger    *Logger

	trackChanges   bool
	revisionAuthor string
	revisionDate   string
	revisionSeq    int
}

// NewTextReplacer creates a replacer for the given rules. Disabled and
// blank rules are assumed to have been filtered by the caller
// (Config.EnabledRules).
func NewTextReplacer(rules []ReplacementRule, changeLog *ChangeLog, logger *Logger) *TextReplacer {
	if logger == nil {
		logger = NopLogger()
	}
	return &TextReplacer{rules: rules, changeLog: changeLog, logger: logger}
}

// EnableTrackChanges switches the replacer into tracked-revision mode:
// replaced runs become tracked deletions followed by a tracked insertion
// carrying the new text.
func (tr *TextReplacer) EnableTrackChanges(author, date string) {
	tr.trackChanges = true
	tr.revisionAuthor = author
	tr.revisionDate = date
}

// Apply runs every rule over every paragraph. Returns the number of
// paragraphs changed.
func (tr *TextReplacer) Apply(pkg *Package) int {
	if len(tr.rules) == 0 {
		return 0
	}

	changed := 0
	for _, para := range pkg.Paragraphs() {
		if tr.applyToParagraph(para) {
			changed++
		}
	}
	return changed
}

func (tr *TextReplacer) applyToParagraph(para *xml.Paragraph) bool {
	if isSimpleParagraph(para) {
		return tr.applySimple(para)
	}
	return tr.applyComplex(para)
}

// isSimpleParagraph reports whether a paragraph contains only plain runs
// of text and formatting: no hyperlink, no field code, no drawing, no
// tracked revision.
func isSimpleParagraph(para *xml.Paragraph) bool {
	if len(para.Hyperlinks) > 0 {
		return false
	}
	for _, content := range para.Content {
		switch content.(type) {
		case *xml.Hyperlink, *xml.Ins, *xml.Del:
			return false
		}
	}
	if para.HasComplexField() {
		return false
	}
	for i := range para.Runs {
		run := &para.Runs[i]
		if run.HasDrawing() || len(run.RawXML) > 0 {
			return false
		}
	}
	return true
}

func (tr *TextReplacer) applySimple(para *xml.Paragraph) bool {
	original := para.GetText()
	replaced := original
	for _, rule := range tr.rules {
		replaced = replaceWholeWord(replaced, rule.SourceText, rule.ReplacementText)
	}
	if replaced == original {
		return false
	}

	if tr.trackChanges {
		tr.rewriteTracked(para, replaced)
	} else {
		RewriteSimpleParagraphText(para, replaced)
	}
	tr.changeLog.Record(ChangeTextReplaced, "", original, replaced, "paragraph text replaced")
	return true
}

// applyComplex applies each rule to each individual text node that is not
// under a field code or drawing, leaving the paragraph's structure intact.
func (tr *TextReplacer) applyComplex(para *xml.Paragraph) bool {
	changed := false
	for _, run := range paragraphRuns(para) {
		if run.Text == nil {
			continue
		}
		if run.FieldChar != nil || run.InstrText != nil || run.HasDrawing() {
			continue
		}
		original := run.Text.Content
		replaced := original
		for _, rule := range tr.rules {
			replaced = replaceWholeWord(replaced, rule.SourceText, rule.ReplacementText)
		}
		if replaced == original {
			continue
		}
		run.Text = &xml.Text{Content: replaced, Space: spaceAttrFor(replaced)}
		tr.changeLog.Record(ChangeTextReplaced, "", original, replaced, "text node replaced")
		changed = true
	}
	return changed
}

// rewriteTracked replaces a simple paragraph's content with a tracked
// deletion of the existing runs and a tracked insertion of the new text,
// carrying the first surviving run's formatting.
func (tr *TextReplacer) rewriteTracked(para *xml.Paragraph, newText string) {
	var props *xml.RunProperties
	for i := range para.Runs {
		if para.Runs[i].Text != nil {
			props = para.Runs[i].Properties
			break
		}
	}

	deleted := make([]xml.Run, 0, len(para.Runs))
	var kept []xml.ParagraphContent
	for i := range para.Runs {
		run := para.Runs[i]
		if run.Text == nil {
			kept = append(kept, &para.Runs[i])
			continue
		}
		deleted = append(deleted, run)
	}

	var content []xml.ParagraphContent
	content = append(content, kept...)
	if len(deleted) > 0 {
		content = append(content, &xml.Del{
			ID:     tr.nextRevisionID(),
			Author: tr.revisionAuthor,
			Date:   tr.revisionDate,
			Runs:   deleted,
		})
	}
	content = append(content, &xml.Ins{
		ID:     tr.nextRevisionID(),
		Author: tr.revisionAuthor,
		Date:   tr.revisionDate,
		Runs: []xml.Run{{
			Properties: props,
			Text:       &xml.Text{Content: newText, Space: spaceAttrFor(newText)},
		}},
	})

	para.Content = content
	para.Runs = nil
}

func (tr *TextReplacer) nextRevisionID() string {
	tr.revisionSeq++
	return strconv.Itoa(tr.revisionSeq)
}

// replaceWholeWord replaces every whole-word (or whole-phrase) occurrence
// of source in text with replacement, case-insensitively. A boundary is
// any rune that is not a letter, digit, or underscore, or the start/end of
// the text; internal whitespace in source matches itself, so multi-word
// phrases work. The replacement is written exactly as given.
func replaceWholeWord(text, source, replacement string) string {
	if source == "" {
		return text
	}

	lowerText := strings.ToLower(text)
	lowerSource := strings.ToLower(source)

	var sb strings.Builder
	pos := 0
	for {
		idx := strings.Index(lowerText[pos:], lowerSource)
		if idx < 0 {
			break
		}
		start := pos + idx
		end := start + len(source)

		if boundaryBefore(text, start) && boundaryAfter(text, end) {
			sb.WriteString(text[pos:start])
			sb.WriteString(replacement)
			pos = end
		} else {
			sb.WriteString(text[pos : start+1])
			pos = start + 1
		}
	}
	sb.WriteString(text[pos:])
	return sb.String()
}

// boundaryBefore reports whether the rune ending at start (exclusive) is a
// word boundary: text start, or a rune that is not a letter, digit, or
// underscore.
func boundaryBefore(text string, start int) bool {
	if start <= 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(text[:start])
	return !isWordRune(r)
}

// boundaryAfter reports whether the rune starting at end is a word
// boundary: text end, or a rune that is not a letter, digit, or
// underscore.
func boundaryAfter(text string, end int) bool {
	if end >= len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[end:])
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}
