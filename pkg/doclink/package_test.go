package doclink

import (
	"os"
	"strings"
	"testing"
)

func TestOpenPackage_ParsesPartsAndMetadata(t *testing.T) {
	path := writeDocxFile(t, paraXML("hello"), nil)

	pkg, err := OpenPackage(path, false)
	if err != nil {
		t.Fatalf("OpenPackage failed: %v", err)
	}
	defer pkg.Close()

	meta := pkg.Metadata()
	if meta.Title != "Test Document" || meta.Author != "Unit Test" {
		t.Errorf("unexpected metadata: %+v", meta)
	}

	paras := pkg.Paragraphs()
	if len(paras) != 1 || paras[0].GetText() != "hello" {
		t.Errorf("unexpected paragraphs: %d", len(paras))
	}
}

func TestOpenPackage_RejectsNonPackage(t *testing.T) {
	path := writeDocxFile(t, paraXML("x"), nil)
	if err := os.WriteFile(path, []byte("not a zip"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenPackage(path, false); err == nil {
		t.Fatal("expected error opening a non-package file")
	}
}

func TestPackage_HyperlinkEnumeration(t *testing.T) {
	body := hyperlinkParaXML("rId1", "Alpha") + paraXML("plain") + hyperlinkParaXML("rId2", "Beta") + hyperlinkParaXML("rId9", "Broken")
	pkg := openTestPackage(t, body, []testRel{
		{ID: "rId1", Target: "https://host/a"},
		{ID: "rId2", Target: "https://host/b"},
	})

	refs := pkg.Hyperlinks()
	if len(refs) != 3 {
		t.Fatalf("expected 3 hyperlinks, got %d", len(refs))
	}
	if refs[0].DisplayText() != "Alpha" || refs[0].Target != "https://host/a" || refs[0].BrokenRel {
		t.Errorf("unexpected first ref: %+v", refs[0])
	}
	if !refs[2].BrokenRel {
		t.Error("expected rId9 reference to be flagged broken")
	}

	// Enumeration is stable across reads.
	again := pkg.Hyperlinks()
	for i := range refs {
		if refs[i].Element != again[i].Element {
			t.Errorf("enumeration unstable at %d", i)
		}
	}
}

func TestPackage_AddAndDeleteRelationship(t *testing.T) {
	pkg := openTestPackage(t, hyperlinkParaXML("rId1", "x"), []testRel{{ID: "rId1", Target: "https://host/a"}})

	id, err := pkg.AddHyperlinkRelationship("https://host/new", true, "")
	if err != nil {
		t.Fatalf("AddHyperlinkRelationship failed: %v", err)
	}
	if id != "rId2" {
		t.Errorf("expected generated id rId2, got %s", id)
	}

	// A live preferred id fails cleanly.
	if _, err := pkg.AddHyperlinkRelationship("https://host/other", true, "rId1"); err == nil {
		t.Fatal("expected preferred-id conflict error")
	}

	// Deleting twice tolerates the second call.
	pkg.DeleteHyperlinkRelationship("rId2")
	pkg.DeleteHyperlinkRelationship("rId2")
	if _, found := pkg.RelationshipTarget("rId2"); found {
		t.Error("rId2 should be gone")
	}
	if _, found := pkg.RelationshipTarget("rId1"); !found {
		t.Error("rId1 should survive")
	}
}

func TestReplaceHyperlinkDisplayText_PreservesFirstRunFormatting(t *testing.T) {
	pkg := openTestPackage(t, hyperlinkParaXML("rId1", "old text"), []testRel{{ID: "rId1", Target: "https://host/a"}})
	ref := singleHyperlink(t, pkg)

	ReplaceHyperlinkDisplayText(ref.Element, "new text")

	if got := ref.DisplayText(); got != "new text" {
		t.Errorf("display text = %q", got)
	}
	if len(ref.Element.Runs) != 1 {
		t.Fatalf("expected one run, got %d", len(ref.Element.Runs))
	}
	props := ref.Element.Runs[0].Properties
	if props == nil || props.Style == nil || props.Style.Val != "Hyperlink" {
		t.Error("first run's character style was not preserved")
	}
}

func TestRewriteSimpleParagraphText_Consolidates(t *testing.T) {
	body := `<w:p><w:r><w:rPr><w:b/></w:rPr><w:t>one </w:t></w:r><w:r><w:t>two</w:t></w:r></w:p>`
	pkg := openTestPackage(t, body, nil)
	para := pkg.Paragraphs()[0]

	RewriteSimpleParagraphText(para, "rewritten")

	if got := para.GetText(); got != "rewritten" {
		t.Errorf("paragraph text = %q", got)
	}
	if len(para.Runs) != 1 {
		t.Fatalf("expected one consolidated run, got %d", len(para.Runs))
	}
	if para.Runs[0].Properties == nil || para.Runs[0].Properties.Bold == nil {
		t.Error("first run's bold formatting was not preserved")
	}
}

func TestPackage_MarkFieldsDirty(t *testing.T) {
	body := `<w:p>` +
		`<w:r><w:fldChar w:fldCharType="begin"/></w:r>` +
		`<w:r><w:instrText xml:space="preserve"> TOC \o "1-3" </w:instrText></w:r>` +
		`<w:r><w:fldChar w:fldCharType="separate"/></w:r>` +
		`<w:r><w:t>Table of Contents</w:t></w:r>` +
		`<w:r><w:fldChar w:fldCharType="end"/></w:r>` +
		`</w:p>` +
		`<w:p>` +
		`<w:r><w:fldChar w:fldCharType="begin"/></w:r>` +
		`<w:r><w:instrText> AUTHOR </w:instrText></w:r>` +
		`<w:r><w:fldChar w:fldCharType="end"/></w:r>` +
		`</w:p>`
	pkg := openTestPackage(t, body, nil)

	marked := pkg.MarkFieldsDirty(isRecomputableField)
	if marked != 1 {
		t.Fatalf("expected 1 field marked, got %d", marked)
	}

	// Idempotent: the second pass finds nothing new.
	if again := pkg.MarkFieldsDirty(isRecomputableField); again != 0 {
		t.Errorf("expected no fields on second pass, got %d", again)
	}
}

func TestPackage_SaveRoundTrip(t *testing.T) {
	path := writeDocxFile(t,
		hyperlinkParaXML("rId1", "Link text")+paraXML("body & text"),
		[]testRel{{ID: "rId1", Target: "https://host/a?x=1&y=2"}})

	pkg, err := OpenPackage(path, true)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	newID, err := pkg.AddHyperlinkRelationship("https://host/new#!/view?docid=D-1", true, "")
	if err != nil {
		t.Fatalf("add relationship: %v", err)
	}
	ref := singleHyperlink(t, pkg)
	SetHyperlinkElementID(ref.Element, newID)
	pkg.DeleteHyperlinkRelationship("rId1")
	ReplaceHyperlinkDisplayText(ref.Element, "Updated text")

	if err := pkg.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}
	pkg.Close()

	reopened, err := OpenPackage(path, false)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	refs := reopened.Hyperlinks()
	if len(refs) != 1 {
		t.Fatalf("expected 1 hyperlink after round trip, got %d", len(refs))
	}
	if refs[0].BrokenRel {
		t.Fatal("hyperlink relationship did not survive the round trip")
	}
	if refs[0].Target != "https://host/new#!/view?docid=D-1" {
		t.Errorf("target = %q", refs[0].Target)
	}
	if !strings.Contains(refs[0].Target, "#!/view?docid=") {
		t.Error("fragment bang was not preserved verbatim")
	}
	if got := refs[0].DisplayText(); got != "Updated text" {
		t.Errorf("display text = %q", got)
	}

	if got := reopened.Paragraphs()[1].GetText(); got != "body & text" {
		t.Errorf("plain paragraph text = %q", got)
	}

	// Untouched parts are copied through byte for byte.
	if string(reopened.parts["docProps/core.xml"]) != testCoreProperties {
		t.Error("core properties part was rewritten")
	}
}

func TestPackage_SaveRefusesReadOnly(t *testing.T) {
	path := writeDocxFile(t, paraXML("x"), nil)
	pkg, err := OpenPackage(path, false)
	if err != nil {
		t.Fatal(err)
	}
	defer pkg.Close()
	if err := pkg.Save(); err == nil {
		t.Fatal("expected read-only save to fail")
	}
}

func TestPackage_TableCellParagraphs(t *testing.T) {
	body := `<w:tbl><w:tblPr><w:tblW w:type="auto" w:w="0"/></w:tblPr><w:tr><w:tc>` +
		hyperlinkParaXML("rId1", "in cell") +
		`</w:tc></w:tr></w:tbl>`
	pkg := openTestPackage(t, body, []testRel{{ID: "rId1", Target: "https://host/cell"}})

	refs := pkg.Hyperlinks()
	if len(refs) != 1 || refs[0].DisplayText() != "in cell" {
		t.Fatalf("hyperlink inside table cell not enumerated: %d", len(refs))
	}
}
