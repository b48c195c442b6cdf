package doclink

import (
	"archive/zip"
	"bytes"
	goxml "encoding/xml"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/benjaminschreck/doclink/pkg/doclink/xml"
)

const (
	documentPart       = "word/document.xml"
	documentRelsPart   = "word/_rels/document.xml.rels"
	corePropertiesPart = "docProps/core.xml"
)

// Package is an open OOXML word-processing package. The whole archive is
// read into memory at open time; nothing touches the filesystem again
// until Save. All mutation happens on the parsed document tree and the
// relationship list, and Save re-emits only the parts that can change,
// copying every other part through byte for byte.
type Package struct {
	path      string
	writable  bool
	closed    bool
	partOrder []string
	parts     map[string][]byte
	doc       *xml.Document
	rels      *xml.Relationships
	core      *xml.CoreProperties
	relsDirty bool
}

// HyperlinkRef identifies one hyperlink element in the open package,
// pairing the element with its paragraph so mutators can rewrite or remove
// it in place.
type HyperlinkRef struct {
	Paragraph *xml.Paragraph
	Element   *xml.Hyperlink
	RelID     string
	Target    string
	// BrokenRel marks an element whose relationship id does not resolve.
	// Extraction skips these; the invisible-link sweeper removes them.
	BrokenRel bool
}

// DisplayText returns the element's concatenated visible text.
func (h HyperlinkRef) DisplayText() string {
	if h.Element == nil {
		return ""
	}
	return h.Element.GetText()
}

// OpenPackage opens the document package at path. With writable false the
// package still parses fully but Save refuses to run, which is how the
// on-disk validator re-reads saved files.
func OpenPackage(path string, writable bool) (*Package, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, NewDocumentError("open", path, err)
	}

	pkg, err := openPackageBytes(content)
	if err != nil {
		return nil, NewDocumentError("open", path, err)
	}
	pkg.path = path
	pkg.writable = writable
	return pkg, nil
}

func openPackageBytes(content []byte) (*Package, error) {
	zipReader, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("failed to read zip archive: %w", err)
	}

	pkg := &Package{
		parts: make(map[string][]byte, len(zipReader.File)),
	}
	for _, file := range zipReader.File {
		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open part %s: %w", file.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read part %s: %w", file.Name, err)
		}
		pkg.parts[file.Name] = data
		pkg.partOrder = append(pkg.partOrder, file.Name)
	}

	docData, ok := pkg.parts[documentPart]
	if !ok {
		return nil, fmt.Errorf("not a valid document package: missing %s", documentPart)
	}

	doc, err := xml.ParseDocument(bytes.NewReader(docData))
	if err != nil {
		return nil, err
	}
	pkg.doc = doc

	pkg.rels = &xml.Relationships{}
	if relsData, ok := pkg.parts[documentRelsPart]; ok {
		if err := goxml.Unmarshal(relsData, pkg.rels); err != nil {
			return nil, fmt.Errorf("failed to parse relationships: %w", err)
		}
	}

	if coreData, ok := pkg.parts[corePropertiesPart]; ok {
		var core xml.CoreProperties
		if err := goxml.Unmarshal(coreData, &core); err == nil {
			pkg.core = &core
		}
	}

	return pkg, nil
}

// Close releases the package. It is safe to call more than once; mutations
// after Close are a programming error and save attempts fail.
func (p *Package) Close() error {
	p.closed = true
	return nil
}

// Path returns the file path the package was opened from.
func (p *Package) Path() string {
	return p.path
}

// Document returns the parsed main document part.
func (p *Package) Document() *xml.Document {
	return p.doc
}

// Metadata returns the package-level core properties, zero-valued when the
// package carries none.
func (p *Package) Metadata() DocumentMetadata {
	if p.core == nil {
		return DocumentMetadata{}
	}
	return DocumentMetadata{
		Title:       p.core.Title,
		Author:      p.core.Creator,
		Subject:     p.core.Subject,
		Keywords:    p.core.Keywords,
		Description: p.core.Description,
	}
}

// RelationshipTarget resolves a relationship id to its target URI.
func (p *Package) RelationshipTarget(relID string) (string, bool) {
	for _, rel := range p.rels.Relationships {
		if rel.ID == relID {
			return rel.Target, true
		}
	}
	return "", false
}

// Relationships returns the current relationship list.
func (p *Package) Relationships() []xml.Relationship {
	return p.rels.Relationships
}

// Hyperlinks enumerates every hyperlink element in document order,
// including table cells. Enumeration is stable across calls as long as no
// mutation happens in between. Elements whose relationship id does not
// resolve are flagged BrokenRel rather than dropped, so the sweeper can
// still remove them.
func (p *Package) Hyperlinks() []HyperlinkRef {
	var refs []HyperlinkRef
	for _, para := range p.Paragraphs() {
		for _, content := range para.Content {
			link, ok := content.(*xml.Hyperlink)
			if !ok || link.ID == "" {
				continue
			}
			target, found := p.RelationshipTarget(link.ID)
			refs = append(refs, HyperlinkRef{
				Paragraph: para,
				Element:   link,
				RelID:     link.ID,
				Target:    target,
				BrokenRel: !found,
			})
		}
	}
	return refs
}

// Paragraphs returns every paragraph in the body and inside table cells,
// in document order.
func (p *Package) Paragraphs() []*xml.Paragraph {
	var paras []*xml.Paragraph
	if p.doc == nil || p.doc.Body == nil {
		return paras
	}
	for _, elem := range p.doc.Body.Elements {
		switch el := elem.(type) {
		case *xml.Paragraph:
			paras = append(paras, el)
		case *xml.Table:
			for ri := range el.Rows {
				for ci := range el.Rows[ri].Cells {
					cell := &el.Rows[ri].Cells[ci]
					for pi := range cell.Paragraphs {
						paras = append(paras, &cell.Paragraphs[pi])
					}
				}
			}
		}
	}
	return paras
}

// Tables returns the body's tables in document order.
func (p *Package) Tables() []*xml.Table {
	var tables []*xml.Table
	if p.doc == nil || p.doc.Body == nil {
		return tables
	}
	for _, elem := range p.doc.Body.Elements {
		if table, ok := elem.(*xml.Table); ok {
			tables = append(tables, table)
		}
	}
	return tables
}

// AddHyperlinkRelationship registers a new hyperlink relationship and
// returns its id. With a preferredID the call fails cleanly if that id is
// already live, so callers fall back to the generated id.
func (p *Package) AddHyperlinkRelationship(target string, external bool, preferredID string) (string, error) {
	id := preferredID
	if id != "" {
		for _, rel := range p.rels.Relationships {
			if rel.ID == id {
				return "", &RelationshipError{RelID: id, During: "swap", Cause: fmt.Errorf("relationship id already in use")}
			}
		}
	} else {
		id = p.nextRelationshipID()
	}

	rel := xml.Relationship{
		ID:     id,
		Type:   xml.HyperlinkRelationshipType,
		Target: target,
	}
	if external {
		rel.TargetMode = xml.TargetModeExternal
	}
	p.rels.Relationships = append(p.rels.Relationships, rel)
	p.relsDirty = true
	return id, nil
}

// DeleteHyperlinkRelationship removes a relationship by id, tolerating ids
// that were already deleted.
func (p *Package) DeleteHyperlinkRelationship(relID string) {
	for i, rel := range p.rels.Relationships {
		if rel.ID == relID {
			p.rels.Relationships = append(p.rels.Relationships[:i], p.rels.Relationships[i+1:]...)
			p.relsDirty = true
			return
		}
	}
}

// nextRelationshipID generates an unused rIdN id one past the highest
// numeric id currently present.
func (p *Package) nextRelationshipID() string {
	maxID := 0
	for _, rel := range p.rels.Relationships {
		if strings.HasPrefix(rel.ID, "rId") {
			if num, err := strconv.Atoi(strings.TrimPrefix(rel.ID, "rId")); err == nil && num > maxID {
				maxID = num
			}
		}
	}
	return fmt.Sprintf("rId%d", maxID+1)
}

// SetHyperlinkElementID rebinds a hyperlink element to a different
// relationship id.
func SetHyperlinkElementID(el *xml.Hyperlink, relID string) {
	el.ID = relID
}

// ReplaceHyperlinkDisplayText replaces a hyperlink's visible text with a
// single run carrying the first existing run's formatting properties. Runs
// without text (field characters, drawings) are preserved.
func ReplaceHyperlinkDisplayText(el *xml.Hyperlink, text string) {
	var props *xml.RunProperties
	for i := range el.Runs {
		if el.Runs[i].Text != nil {
			props = el.Runs[i].Properties
			break
		}
	}
	if props == nil && len(el.Runs) > 0 {
		props = el.Runs[0].Properties
	}

	var kept []xml.Run
	inserted := false
	for _, run := range el.Runs {
		if run.Text == nil {
			kept = append(kept, run)
			continue
		}
		if !inserted {
			kept = append(kept, xml.Run{
				Properties: props,
				Text:       &xml.Text{Content: text, Space: spaceAttrFor(text)},
			})
			inserted = true
		}
	}
	if !inserted {
		kept = append(kept, xml.Run{
			Properties: props,
			Text:       &xml.Text{Content: text, Space: spaceAttrFor(text)},
		})
	}
	el.Runs = kept
}

func spaceAttrFor(text string) string {
	if text != strings.TrimSpace(text) {
		return "preserve"
	}
	return ""
}

// RemoveHyperlinkElement removes a hyperlink element from its paragraph,
// keeping the rest of the paragraph content intact.
func RemoveHyperlinkElement(para *xml.Paragraph, el *xml.Hyperlink) {
	var content []xml.ParagraphContent
	for _, c := range para.Content {
		if link, ok := c.(*xml.Hyperlink); ok && link == el {
			continue
		}
		content = append(content, c)
	}
	para.Content = content

	var links []xml.Hyperlink
	for i := range para.Hyperlinks {
		if para.Hyperlinks[i].ID == el.ID && para.Hyperlinks[i].GetText() == el.GetText() {
			continue
		}
		links = append(links, para.Hyperlinks[i])
	}
	para.Hyperlinks = links
}

// RewriteSimpleParagraphText consolidates a simple paragraph's text into
// its first text-bearing run, preserving that run's formatting, and drops
// the other plain text runs. Callers must have classified the paragraph as
// simple first; runs carrying breaks, fields, or raw content are left
// alone.
func RewriteSimpleParagraphText(para *xml.Paragraph, text string) {
	var kept []xml.Run
	inserted := false
	for _, run := range para.Runs {
		if run.Text == nil {
			kept = append(kept, run)
			continue
		}
		if !inserted {
			run.Text = &xml.Text{Content: text, Space: spaceAttrFor(text)}
			kept = append(kept, run)
			inserted = true
		}
	}
	if !inserted {
		kept = append(kept, xml.Run{Text: &xml.Text{Content: text, Space: spaceAttrFor(text)}})
	}
	para.Runs = kept
	para.Content = nil
}

// MarkFieldsDirty sets the dirty flag on every field whose instruction text
// matches the predicate, so the consuming word processor recomputes the
// field on next open. Returns the number of fields marked.
func (p *Package) MarkFieldsDirty(predicate func(instruction string) bool) int {
	marked := 0
	for _, para := range p.Paragraphs() {
		if !para.HasComplexField() {
			continue
		}
		if predicate != nil && !predicate(para.FieldInstruction()) {
			continue
		}
		for _, run := range paragraphRuns(para) {
			if run.FieldChar != nil && run.FieldChar.Type == "begin" && !run.FieldChar.Dirty {
				run.FieldChar.Dirty = true
				marked++
			}
		}
	}
	return marked
}

// paragraphRuns returns pointers to the runs that back the paragraph's
// marshaled output: Content entries when present, the Runs slice
// otherwise.
func paragraphRuns(para *xml.Paragraph) []*xml.Run {
	var runs []*xml.Run
	if len(para.Content) > 0 {
		for _, content := range para.Content {
			switch c := content.(type) {
			case *xml.Run:
				runs = append(runs, c)
			case *xml.Hyperlink:
				for i := range c.Runs {
					runs = append(runs, &c.Runs[i])
				}
			}
		}
		return runs
	}
	for i := range para.Runs {
		runs = append(runs, &para.Runs[i])
	}
	return runs
}

// Save writes the package back to the path it was opened from. Every part
// is copied through unchanged except the main document (re-marshaled from
// the tree) and, when relationships changed, the relationships part. The
// write goes through a temporary sibling file and an atomic rename.
func (p *Package) Save() error {
	if !p.writable {
		return NewDocumentError("save", p.path, fmt.Errorf("package opened read-only"))
	}
	if p.closed {
		return NewDocumentError("save", p.path, fmt.Errorf("package already closed"))
	}

	var buf bytes.Buffer
	if err := p.writeArchive(&buf); err != nil {
		return NewDocumentError("save", p.path, err)
	}

	tmp := p.path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return NewDocumentError("save", p.path, err)
	}
	if err := os.Rename(tmp, p.path); err != nil {
		os.Remove(tmp)
		return NewDocumentError("save", p.path, err)
	}
	return nil
}

func (p *Package) writeArchive(w io.Writer) error {
	docData, err := marshalDocument(p.doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	var relsData []byte
	if p.relsDirty {
		relsData, err = marshalRelationships(p.rels)
		if err != nil {
			return fmt.Errorf("failed to marshal relationships: %w", err)
		}
	}

	zw := zip.NewWriter(w)
	wroteRels := false
	for _, name := range p.partOrder {
		fw, err := zw.Create(name)
		if err != nil {
			return err
		}
		switch {
		case name == documentPart:
			_, err = fw.Write(docData)
		case name == documentRelsPart && p.relsDirty:
			wroteRels = true
			_, err = fw.Write(relsData)
		default:
			_, err = fw.Write(p.parts[name])
		}
		if err != nil {
			return err
		}
	}

	// A package without a relationships part gains one the first time a
	// hyperlink relationship is added.
	if p.relsDirty && !wroteRels {
		fw, err := zw.Create(documentRelsPart)
		if err != nil {
			return err
		}
		if _, err := fw.Write(relsData); err != nil {
			return err
		}
	}

	return zw.Close()
}
