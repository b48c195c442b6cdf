// helpers_test.go builds minimal document packages in memory for tests.
package doclink

import (
	"archive/zip"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testDocumentHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">`

const testContentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`

const testRootRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`

const testCoreProperties = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:dcterms="http://purl.org/dc/terms/">
<dc:title>Test Document</dc:title>
<dc:creator>Unit Test</dc:creator>
<dc:subject>fixtures</dc:subject>
</cp:coreProperties>`

// testRel describes one hyperlink relationship for buildDocxBytes.
type testRel struct {
	ID     string
	Target string
}

// buildDocxBytes assembles a docx archive whose body is the given XML
// (sequence of w:p / w:tbl elements) and whose document relationships are
// the given hyperlink targets.
func buildDocxBytes(t *testing.T, bodyXML string, rels []testRel) []byte {
	t.Helper()

	var relsXML strings.Builder
	relsXML.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`)
	relsXML.WriteString("\n")
	relsXML.WriteString(`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`)
	for _, rel := range rels {
		relsXML.WriteString(fmt.Sprintf(
			`<Relationship Id="%s" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/hyperlink" Target="%s" TargetMode="External"/>`,
			rel.ID, escapeAttr(rel.Target)))
	}
	relsXML.WriteString(`</Relationships>`)

	document := testDocumentHeader + "<w:body>" + bodyXML + "</w:body></w:document>"

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	parts := []struct {
		name    string
		content string
	}{
		{"[Content_Types].xml", testContentTypes},
		{"_rels/.rels", testRootRels},
		{"docProps/core.xml", testCoreProperties},
		{"word/document.xml", document},
		{"word/_rels/document.xml.rels", relsXML.String()},
	}
	for _, part := range parts {
		fw, err := zw.Create(part.name)
		if err != nil {
			t.Fatalf("failed to create zip part %s: %v", part.name, err)
		}
		if _, err := fw.Write([]byte(part.content)); err != nil {
			t.Fatalf("failed to write zip part %s: %v", part.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("failed to close zip: %v", err)
	}
	return buf.Bytes()
}

// writeDocxFile writes a built docx into a temp directory and returns its
// path.
func writeDocxFile(t *testing.T, bodyXML string, rels []testRel) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.docx")
	if err := os.WriteFile(path, buildDocxBytes(t, bodyXML, rels), 0o644); err != nil {
		t.Fatalf("failed to write test docx: %v", err)
	}
	return path
}

// openTestPackage opens a built docx as a writable in-memory package.
func openTestPackage(t *testing.T, bodyXML string, rels []testRel) *Package {
	t.Helper()
	pkg, err := openPackageBytes(buildDocxBytes(t, bodyXML, rels))
	if err != nil {
		t.Fatalf("failed to open test package: %v", err)
	}
	pkg.writable = true
	return pkg
}

// paraXML builds a single-run paragraph.
func paraXML(text string) string {
	return `<w:p><w:r><w:t>` + escapeText(text) + `</w:t></w:r></w:p>`
}

// hyperlinkParaXML builds a paragraph holding one hyperlink with one run.
func hyperlinkParaXML(relID, display string) string {
	return `<w:p><w:hyperlink r:id="` + relID + `"><w:r><w:rPr><w:rStyle w:val="Hyperlink"/></w:rPr><w:t>` +
		escapeText(display) + `</w:t></w:r></w:hyperlink></w:p>`
}

func escapeText(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	return s
}

// findChanges filters change entries by type.
func findChanges(entries []ChangeEntry, t ChangeType) []ChangeEntry {
	var out []ChangeEntry
	for _, entry := range entries {
		if entry.Type == t {
			out = append(out, entry)
		}
	}
	return out
}

// singleHyperlink fetches the only hyperlink ref in the package.
func singleHyperlink(t *testing.T, pkg *Package) HyperlinkRef {
	t.Helper()
	refs := pkg.Hyperlinks()
	if len(refs) != 1 {
		t.Fatalf("expected exactly one hyperlink, got %d", len(refs))
	}
	return refs[0]
}
