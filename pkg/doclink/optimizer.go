package doclink

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/benjaminschreck/doclink/pkg/doclink/xml"
)

// TextOptimizer runs the conservative cleanup passes. Every pass is
// idempotent, toggle-controlled, and reports its change count; block
// elements are never re-ordered.
type TextOptimizer struct {
	cfg       TextConfig
	changeLog *ChangeLog
	logger    *Logger
}

// NewTextOptimizer creates an optimizer with the given toggles.
func NewTextOptimizer(cfg TextConfig, changeLog *ChangeLog, logger *Logger) *TextOptimizer {
	if logger == nil {
		logger = NopLogger()
	}
	return &TextOptimizer{cfg: cfg, changeLog: changeLog, logger: logger}
}

// Apply runs every enabled pass and returns the total change count.
func (o *TextOptimizer) Apply(pkg *Package) int {
	total := 0
	run := func(name string, enabled bool, pass func(*Package) int) {
		if !enabled {
			return
		}
		count := pass(pkg)
		if count > 0 {
			o.changeLog.Record(ChangeTextOptimized, "", "", "", fmt.Sprintf("%s: %d changes", name, count))
			o.logger.Debug("optimizer pass %s made %d changes", name, count)
		}
		total += count
	}

	run("whitespace", o.cfg.RemoveExtraSpaces, o.collapseWhitespace)
	run("empty-paragraphs", o.cfg.RemoveEmptyParagraphs, o.removeEmptyParagraphs)
	run("line-breaks", o.cfg.StandardizeLineBreaks, o.capLineBreaks)
	run("tables", o.cfg.OptimizeTableFormatting, o.fillEmptyTableCells)
	run("lists", o.cfg.OptimizeListFormatting, o.normalizeListIndentation)
	run("spacing", o.cfg.StandardizeSpacing, o.standardizeSpacing)

	return total
}

var multiSpacePattern = regexp.MustCompile(" {2,}")

// collapseWhitespace collapses runs of two or more spaces inside each text
// node and normalizes stray carriage returns.
func (o *TextOptimizer) collapseWhitespace(pkg *Package) int {
	count := 0
	for _, para := range pkg.Paragraphs() {
		for _, run := range paragraphRuns(para) {
			if run.Text == nil {
				continue
			}
			original := run.Text.Content
			cleaned := strings.ReplaceAll(original, "\r\n", "\n")
			cleaned = strings.ReplaceAll(cleaned, "\r", "\n")
			cleaned = multiSpacePattern.ReplaceAllString(cleaned, " ")
			if cleaned != original {
				run.Text = &xml.Text{Content: cleaned, Space: spaceAttrFor(cleaned)}
				count++
			}
		}
	}
	return count
}

// removeEmptyParagraphs drops body paragraphs whose concatenated inner
// text is whitespace-only and that carry no hyperlink, field, break, or
// preserved raw content. Table-cell paragraphs are left alone; the table
// pass guarantees cells stay non-empty instead.
func (o *TextOptimizer) removeEmptyParagraphs(pkg *Package) int {
	body := pkg.Document().Body
	count := 0
	var kept []xml.BodyElement
	for _, elem := range body.Elements {
		para, ok := elem.(*xml.Paragraph)
		if ok && paragraphIsRemovable(para) {
			count++
			continue
		}
		kept = append(kept, elem)
	}

	// A body must keep at least one block element.
	if len(kept) == 0 && count > 0 {
		kept = append(kept, &xml.Paragraph{})
		count--
	}

	body.Elements = kept
	return count
}

func paragraphIsRemovable(para *xml.Paragraph) bool {
	if strings.TrimSpace(para.GetText()) != "" {
		return false
	}
	if len(para.Hyperlinks) > 0 || para.HasComplexField() {
		return false
	}
	for _, content := range para.Content {
		switch content.(type) {
		case *xml.Hyperlink, *xml.Ins, *xml.Del:
			return false
		}
	}
	for _, run := range paragraphRuns(para) {
		if run.Break != nil || len(run.RawXML) > 0 {
			return false
		}
	}
	return true
}

// capLineBreaks removes line-break runs beyond the configured maximum
// number of consecutive breaks within one paragraph.
func (o *TextOptimizer) capLineBreaks(pkg *Package) int {
	max := o.cfg.MaxConsecutiveLineBreaks
	if max < 1 {
		max = 2
	}

	count := 0
	for _, para := range pkg.Paragraphs() {
		if len(para.Content) > 0 {
			var kept []xml.ParagraphContent
			consecutive := 0
			for _, content := range para.Content {
				run, ok := content.(*xml.Run)
				if ok && isLineBreakRun(run) {
					consecutive++
					if consecutive > max {
						count++
						continue
					}
				} else {
					consecutive = 0
				}
				kept = append(kept, content)
			}
			para.Content = kept
			continue
		}

		var kept []xml.Run
		consecutive := 0
		for i := range para.Runs {
			if isLineBreakRun(&para.Runs[i]) {
				consecutive++
				if consecutive > max {
					count++
					continue
				}
			} else {
				consecutive = 0
			}
			kept = append(kept, para.Runs[i])
		}
		para.Runs = kept
	}
	return count
}

// isLineBreakRun reports whether a run is nothing but a text-wrapping line
// break. Page and column breaks are never removed.
func isLineBreakRun(run *xml.Run) bool {
	if run.Break == nil || run.Text != nil || run.FieldChar != nil || run.InstrText != nil || len(run.RawXML) > 0 {
		return false
	}
	return run.Break.Type == "" || run.Break.Type == "textWrapping"
}

// fillEmptyTableCells inserts a minimal empty paragraph into any table
// cell that has none, which some consumers reject.
func (o *TextOptimizer) fillEmptyTableCells(pkg *Package) int {
	count := 0
	for _, table := range pkg.Tables() {
		for ri := range table.Rows {
			for ci := range table.Rows[ri].Cells {
				cell := &table.Rows[ri].Cells[ci]
				if len(cell.Paragraphs) == 0 {
					cell.Paragraphs = append(cell.Paragraphs, xml.Paragraph{})
					count++
				}
			}
		}
	}
	return count
}

const listIndentPerLevel = 720 // twentieths of a point

var ilvlPattern = regexp.MustCompile(`ilvl[^>]*val="(\d+)"`)

// normalizeListIndentation sets each list-item paragraph's indentation to
// level * 720 twentieths of a point.
func (o *TextOptimizer) normalizeListIndentation(pkg *Package) int {
	count := 0
	for _, para := range pkg.Paragraphs() {
		level, isList := listLevel(para)
		if !isList {
			continue
		}
		want := level * listIndentPerLevel
		if para.Properties.Indentation == nil || para.Properties.Indentation.Left != want {
			right := 0
			if para.Properties.Indentation != nil {
				right = para.Properties.Indentation.Right
			}
			para.Properties.Indentation = &xml.Indentation{Left: want, Right: right}
			count++
		}
	}
	return count
}

// listLevel extracts the numbering level from a paragraph's preserved
// numbering properties. Level defaults to zero when the numPr carries no
// ilvl.
func listLevel(para *xml.Paragraph) (int, bool) {
	if para.Properties == nil {
		return 0, false
	}
	for _, raw := range para.Properties.RawXML {
		if raw.XMLName.Local != "numPr" {
			continue
		}
		if m := ilvlPattern.FindStringSubmatch(string(raw.Content)); m != nil {
			level := 0
			fmt.Sscanf(m[1], "%d", &level)
			return level, true
		}
		return 0, true
	}
	return 0, false
}

// Standard paragraph spacing: single line spacing expressed in 240ths.
var standardSpacing = xml.Spacing{Line: 240, LineRule: "auto"}

// standardizeSpacing sets a standard line-spacing property on paragraphs
// that have none or a non-standard one.
func (o *TextOptimizer) standardizeSpacing(pkg *Package) int {
	count := 0
	for _, para := range pkg.Paragraphs() {
		if para.Properties == nil {
			para.Properties = &xml.ParagraphProperties{}
		}
		spacing := para.Properties.Spacing
		if spacing == nil {
			s := standardSpacing
			para.Properties.Spacing = &s
			count++
			continue
		}
		if spacing.Line != standardSpacing.Line || spacing.LineRule != standardSpacing.LineRule {
			spacing.Line = standardSpacing.Line
			spacing.LineRule = standardSpacing.LineRule
			count++
		}
	}
	return count
}
