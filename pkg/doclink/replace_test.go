package doclink

import (
	"testing"

	"github.com/benjaminschreck/doclink/pkg/doclink/xml"
)

func enabledRules(pairs ...string) []ReplacementRule {
	var rules []ReplacementRule
	for i := 0; i+1 < len(pairs); i += 2 {
		rules = append(rules, ReplacementRule{SourceText: pairs[i], ReplacementText: pairs[i+1], Enabled: true})
	}
	return rules
}

func TestReplaceWholeWord(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		source      string
		replacement string
		want        string
	}{
		{"whole word", "the cat sat", "cat", "dog", "the dog sat"},
		{"case-insensitive match", "The CAT sat", "cat", "dog", "The dog sat"},
		{"no partial match", "concatenate cats", "cat", "dog", "concatenate cats"},
		{"inside word untouched", "scatter", "cat", "dog", "scatter"},
		{"phrase", "read the style guide now", "style guide", "handbook", "read the handbook now"},
		{"phrase with extra space not matched", "style  guide", "style guide", "handbook", "style  guide"},
		{"punctuation boundary", "end. cat.", "cat", "dog", "end. dog."},
		{"start and end", "cat", "cat", "dog", "dog"},
		{"replacement case preserved", "acme corp", "acme corp", "Acme Corporation", "Acme Corporation"},
		{"underscore blocks boundary", "cat_food", "cat", "dog", "cat_food"},
		{"repeated", "cat cat cat", "cat", "dog", "dog dog dog"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := replaceWholeWord(tt.text, tt.source, tt.replacement); got != tt.want {
				t.Errorf("replaceWholeWord(%q, %q, %q) = %q, want %q", tt.text, tt.source, tt.replacement, got, tt.want)
			}
		})
	}
}

func TestReplacer_SimpleParagraphConsolidated(t *testing.T) {
	body := `<w:p><w:r><w:rPr><w:i/></w:rPr><w:t>alpha </w:t></w:r><w:r><w:t>beta gamma</w:t></w:r></w:p>`
	pkg := openTestPackage(t, body, nil)
	changeLog := NewChangeLog(nil)

	replacer := NewTextReplacer(enabledRules("beta", "BETA"), changeLog, NopLogger())
	changed := replacer.Apply(pkg)

	if changed != 1 {
		t.Fatalf("changed = %d, want 1", changed)
	}
	para := pkg.Paragraphs()[0]
	if got := para.GetText(); got != "alpha BETA gamma" {
		t.Errorf("text = %q", got)
	}
	if len(para.Runs) != 1 {
		t.Errorf("expected consolidation into one run, got %d", len(para.Runs))
	}
	if para.Runs[0].Properties == nil || para.Runs[0].Properties.Italic == nil {
		t.Error("first run's formatting lost")
	}
	if n := len(findChanges(changeLog.Entries(), ChangeTextReplaced)); n != 1 {
		t.Errorf("expected one TextReplaced change, got %d", n)
	}
}

func TestReplacer_RulesApplyInOrder(t *testing.T) {
	pkg := openTestPackage(t, paraXML("one"), nil)
	replacer := NewTextReplacer(enabledRules("one", "two", "two", "three"), NewChangeLog(nil), NopLogger())
	replacer.Apply(pkg)

	// The second rule sees the first rule's output.
	if got := pkg.Paragraphs()[0].GetText(); got != "three" {
		t.Errorf("text = %q, want %q", got, "three")
	}
}

func TestReplacer_ComplexParagraphKeepsStructure(t *testing.T) {
	body := `<w:p><w:r><w:t>before cat </w:t></w:r>` +
		`<w:hyperlink r:id="rId1"><w:r><w:t>cat link</w:t></w:r></w:hyperlink>` +
		`<w:r><w:t> after cat</w:t></w:r></w:p>`
	pkg := openTestPackage(t, body, []testRel{{ID: "rId1", Target: "https://host/a"}})
	changeLog := NewChangeLog(nil)

	replacer := NewTextReplacer(enabledRules("cat", "dog"), changeLog, NopLogger())
	replacer.Apply(pkg)

	para := pkg.Paragraphs()[0]
	if got := para.GetText(); got != "before dog dog link after dog" {
		t.Errorf("text = %q", got)
	}
	// The hyperlink element survives with its text node rewritten in
	// place.
	refs := pkg.Hyperlinks()
	if len(refs) != 1 {
		t.Fatalf("hyperlink lost: %d", len(refs))
	}
	if got := refs[0].DisplayText(); got != "dog link" {
		t.Errorf("hyperlink text = %q", got)
	}
}

func TestReplacer_FieldCodeTextUntouched(t *testing.T) {
	body := `<w:p>` +
		`<w:r><w:fldChar w:fldCharType="begin"/></w:r>` +
		`<w:r><w:instrText> HYPERLINK "https://host/cat" </w:instrText></w:r>` +
		`<w:r><w:fldChar w:fldCharType="separate"/></w:r>` +
		`<w:r><w:t>cat result</w:t></w:r>` +
		`<w:r><w:fldChar w:fldCharType="end"/></w:r>` +
		`</w:p>`
	pkg := openTestPackage(t, body, nil)

	replacer := NewTextReplacer(enabledRules("cat", "dog"), NewChangeLog(nil), NopLogger())
	replacer.Apply(pkg)

	para := pkg.Paragraphs()[0]
	// The instruction text keeps its URL; the visible cached result is
	// fair game.
	if instr := para.FieldInstruction(); instr != ` HYPERLINK "https://host/cat" ` {
		t.Errorf("field instruction mutated: %q", instr)
	}
	if got := para.GetText(); got != "dog result" {
		t.Errorf("cached field result = %q", got)
	}
	if len(para.Runs) != 5 {
		t.Errorf("field paragraph was consolidated: %d runs", len(para.Runs))
	}
}

func TestReplacer_NoMatchNoChange(t *testing.T) {
	pkg := openTestPackage(t, paraXML("nothing to see"), nil)
	changeLog := NewChangeLog(nil)
	replacer := NewTextReplacer(enabledRules("cat", "dog"), changeLog, NopLogger())

	if changed := replacer.Apply(pkg); changed != 0 {
		t.Errorf("changed = %d, want 0", changed)
	}
	if changeLog.Len() != 0 {
		t.Errorf("expected no change entries, got %d", changeLog.Len())
	}
}

func TestReplacer_TrackChangesMode(t *testing.T) {
	pkg := openTestPackage(t, paraXML("old cat text"), nil)
	replacer := NewTextReplacer(enabledRules("cat", "dog"), NewChangeLog(nil), NopLogger())
	replacer.EnableTrackChanges("reviewer", "2024-05-01T00:00:00Z")

	if changed := replacer.Apply(pkg); changed != 1 {
		t.Fatalf("changed = %d", changed)
	}

	para := pkg.Paragraphs()[0]
	var dels []*xml.Del
	var inss []*xml.Ins
	for _, content := range para.Content {
		switch c := content.(type) {
		case *xml.Del:
			dels = append(dels, c)
		case *xml.Ins:
			inss = append(inss, c)
		}
	}
	if len(dels) != 1 || len(inss) != 1 {
		t.Fatalf("expected one tracked deletion and one insertion, got %d/%d", len(dels), len(inss))
	}
	if dels[0].Author != "reviewer" || inss[0].Author != "reviewer" {
		t.Error("revision author missing")
	}
	if len(dels[0].Runs) != 1 || dels[0].Runs[0].GetText() != "old cat text" {
		t.Error("tracked deletion should carry the original runs")
	}
	// Visible text is the inserted replacement.
	if got := para.GetText(); got != "old dog text" {
		t.Errorf("visible text = %q", got)
	}
}
