package doclink

import (
	"testing"
)

func TestSweeper_RemovesEmptyHyperlink(t *testing.T) {
	body := hyperlinkParaXML("rId1", "") + hyperlinkParaXML("rId2", "visible")
	pkg := openTestPackage(t, body, []testRel{
		{ID: "rId1", Target: "https://host/empty"},
		{ID: "rId2", Target: "https://host/visible"},
	})
	changeLog := NewChangeLog(nil)

	removed := SweepInvisibleHyperlinks(pkg, changeLog, NopLogger())

	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	refs := pkg.Hyperlinks()
	if len(refs) != 1 || refs[0].DisplayText() != "visible" {
		t.Fatalf("surviving hyperlinks wrong: %d", len(refs))
	}
	if _, found := pkg.RelationshipTarget("rId1"); found {
		t.Error("swept relationship should be deleted")
	}
	if _, found := pkg.RelationshipTarget("rId2"); !found {
		t.Error("visible hyperlink's relationship must survive")
	}
	if n := len(findChanges(changeLog.Entries(), ChangeHyperlinkRemoved)); n != 1 {
		t.Errorf("expected one HyperlinkRemoved change, got %d", n)
	}
}

func TestSweeper_WhitespaceOnlyTextIsInvisible(t *testing.T) {
	body := `<w:p><w:hyperlink r:id="rId1"><w:r><w:t xml:space="preserve">   </w:t></w:r></w:hyperlink></w:p>`
	pkg := openTestPackage(t, body, []testRel{{ID: "rId1", Target: "https://host/ws"}})
	changeLog := NewChangeLog(nil)

	if removed := SweepInvisibleHyperlinks(pkg, changeLog, NopLogger()); removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
}

func TestSweeper_BrokenRelationshipTolerated(t *testing.T) {
	body := hyperlinkParaXML("rId9", "")
	pkg := openTestPackage(t, body, nil)
	changeLog := NewChangeLog(nil)

	if removed := SweepInvisibleHyperlinks(pkg, changeLog, NopLogger()); removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if len(pkg.Hyperlinks()) != 0 {
		t.Error("broken-relationship element should be gone")
	}
}

// Multiple invisible links in one paragraph: the backward traversal must
// remove all of them without skipping.
func TestSweeper_MultipleInOneParagraph(t *testing.T) {
	body := `<w:p>` +
		`<w:hyperlink r:id="rId1"><w:r><w:t></w:t></w:r></w:hyperlink>` +
		`<w:r><w:t>middle</w:t></w:r>` +
		`<w:hyperlink r:id="rId2"><w:r><w:t></w:t></w:r></w:hyperlink>` +
		`<w:hyperlink r:id="rId3"><w:r><w:t>keep</w:t></w:r></w:hyperlink>` +
		`</w:p>`
	pkg := openTestPackage(t, body, []testRel{
		{ID: "rId1", Target: "https://host/1"},
		{ID: "rId2", Target: "https://host/2"},
		{ID: "rId3", Target: "https://host/3"},
	})
	changeLog := NewChangeLog(nil)

	if removed := SweepInvisibleHyperlinks(pkg, changeLog, NopLogger()); removed != 2 {
		t.Fatalf("removed = %d, want 2", removed)
	}

	refs := pkg.Hyperlinks()
	if len(refs) != 1 || refs[0].DisplayText() != "keep" {
		t.Fatalf("wrong survivor set: %d refs", len(refs))
	}
	if got := pkg.Paragraphs()[0].GetText(); got != "middlekeep" {
		t.Errorf("paragraph text after sweep = %q", got)
	}
}

// All and only the elements empty at the start of the sweep are removed:
// an element whose text is non-empty stays even if another empty one sits
// beside it.
func TestSweeper_OnlyEmptyRemoved(t *testing.T) {
	body := hyperlinkParaXML("rId1", "a") + hyperlinkParaXML("rId2", "") + hyperlinkParaXML("rId3", "c")
	pkg := openTestPackage(t, body, []testRel{
		{ID: "rId1", Target: "https://host/a"},
		{ID: "rId2", Target: "https://host/b"},
		{ID: "rId3", Target: "https://host/c"},
	})

	SweepInvisibleHyperlinks(pkg, NewChangeLog(nil), NopLogger())

	refs := pkg.Hyperlinks()
	if len(refs) != 2 {
		t.Fatalf("expected 2 survivors, got %d", len(refs))
	}
	if refs[0].DisplayText() != "a" || refs[1].DisplayText() != "c" {
		t.Errorf("wrong survivors: %q, %q", refs[0].DisplayText(), refs[1].DisplayText())
	}
}
