package xml

import (
	"strings"
	"testing"
)

const testHeader = `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">`

func parseTestDocument(t *testing.T, body string) *Document {
	t.Helper()
	doc, err := ParseDocument(strings.NewReader(testHeader + "<w:body>" + body + "</w:body></w:document>"))
	if err != nil {
		t.Fatalf("ParseDocument failed: %v", err)
	}
	return doc
}

func TestParseDocument_Paragraphs(t *testing.T) {
	doc := parseTestDocument(t, `<w:p><w:r><w:t>hello</w:t></w:r><w:r><w:t> world</w:t></w:r></w:p>`)

	if len(doc.Body.Elements) != 1 {
		t.Fatalf("elements = %d", len(doc.Body.Elements))
	}
	para, ok := doc.Body.Elements[0].(*Paragraph)
	if !ok {
		t.Fatalf("expected paragraph, got %T", doc.Body.Elements[0])
	}
	if got := para.GetText(); got != "hello world" {
		t.Errorf("text = %q", got)
	}
	if len(para.Runs) != 2 {
		t.Errorf("runs = %d", len(para.Runs))
	}
}

func TestParseDocument_HyperlinkContentOrder(t *testing.T) {
	doc := parseTestDocument(t,
		`<w:p><w:r><w:t>see </w:t></w:r><w:hyperlink r:id="rId7"><w:r><w:t>the link</w:t></w:r></w:hyperlink><w:r><w:t> here</w:t></w:r></w:p>`)

	para := doc.Body.Elements[0].(*Paragraph)
	if len(para.Content) != 3 {
		t.Fatalf("content entries = %d, want 3", len(para.Content))
	}
	link, ok := para.Content[1].(*Hyperlink)
	if !ok {
		t.Fatalf("middle entry is %T", para.Content[1])
	}
	if link.ID != "rId7" || link.GetText() != "the link" {
		t.Errorf("hyperlink = %q %q", link.ID, link.GetText())
	}
	if got := para.GetText(); got != "see the link here" {
		t.Errorf("text = %q", got)
	}
}

func TestParseDocument_FieldRuns(t *testing.T) {
	doc := parseTestDocument(t,
		`<w:p><w:r><w:fldChar w:fldCharType="begin"/></w:r><w:r><w:instrText> TOC </w:instrText></w:r><w:r><w:fldChar w:fldCharType="end"/></w:r></w:p>`)

	para := doc.Body.Elements[0].(*Paragraph)
	if !para.HasComplexField() {
		t.Error("field paragraph not detected")
	}
	if got := para.FieldInstruction(); got != " TOC " {
		t.Errorf("instruction = %q", got)
	}
}

func TestParseDocument_PreservesUnknownRunContent(t *testing.T) {
	doc := parseTestDocument(t,
		`<w:p><w:r><w:drawing><wp:inline xmlns:wp="http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing"><wp:extent cx="100" cy="100"/></wp:inline></w:drawing></w:r></w:p>`)

	para := doc.Body.Elements[0].(*Paragraph)
	run := &para.Runs[0]
	if !run.HasDrawing() {
		t.Fatal("drawing not preserved as raw content")
	}
	if len(run.RawXML) != 1 || !strings.Contains(string(run.RawXML[0].Content), "extent") {
		t.Error("raw drawing content incomplete")
	}
}

func TestParseDocument_SectionPropertiesCaptured(t *testing.T) {
	doc := parseTestDocument(t, `<w:p><w:r><w:t>x</w:t></w:r></w:p><w:sectPr><w:pgSz w:w="11906" w:h="16838"/></w:sectPr>`)

	if doc.Body.SectionProperties == nil {
		t.Fatal("sectPr not captured")
	}
	if !strings.Contains(string(doc.Body.SectionProperties.Content), "pgSz") {
		t.Error("sectPr content incomplete")
	}
}

func TestParseDocument_Tables(t *testing.T) {
	doc := parseTestDocument(t,
		`<w:tbl><w:tblPr><w:tblStyle w:val="TableGrid"/></w:tblPr><w:tr><w:tc><w:p><w:r><w:t>cell</w:t></w:r></w:p></w:tc></w:tr></w:tbl>`)

	table, ok := doc.Body.Elements[0].(*Table)
	if !ok {
		t.Fatalf("expected table, got %T", doc.Body.Elements[0])
	}
	if len(table.Rows) != 1 || len(table.Rows[0].Cells) != 1 {
		t.Fatal("table shape wrong")
	}
	if got := table.Rows[0].Cells[0].GetText(); got != "cell" {
		t.Errorf("cell text = %q", got)
	}
}

func TestExtractNamespaces(t *testing.T) {
	doc := parseTestDocument(t, `<w:p/>`)
	namespaces := doc.ExtractNamespaces()
	if namespaces["w"] != "http://schemas.openxmlformats.org/wordprocessingml/2006/main" {
		t.Errorf("w namespace = %q", namespaces["w"])
	}
	if namespaces["r"] != "http://schemas.openxmlformats.org/officeDocument/2006/relationships" {
		t.Errorf("r namespace = %q", namespaces["r"])
	}
}

func TestTrackedChanges_RoundTrip(t *testing.T) {
	doc := parseTestDocument(t,
		`<w:p><w:del w:id="1" w:author="rev"><w:r><w:delText>gone</w:delText></w:r></w:del><w:ins w:id="2" w:author="rev"><w:r><w:t>added</w:t></w:r></w:ins></w:p>`)

	para := doc.Body.Elements[0].(*Paragraph)
	if len(para.Content) != 2 {
		t.Fatalf("content = %d", len(para.Content))
	}
	del, ok := para.Content[0].(*Del)
	if !ok || del.Author != "rev" || len(del.Runs) != 1 || del.Runs[0].GetText() != "gone" {
		t.Fatalf("deletion not decoded: %+v", para.Content[0])
	}
	ins, ok := para.Content[1].(*Ins)
	if !ok || ins.GetText() != "added" {
		t.Fatalf("insertion not decoded: %+v", para.Content[1])
	}

	// Deleted text is invisible; inserted text shows.
	if got := para.GetText(); got != "added" {
		t.Errorf("visible text = %q", got)
	}
}
