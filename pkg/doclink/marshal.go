package doclink

import (
	"bytes"
	goxml "encoding/xml"
	"fmt"
	"strings"

	"github.com/benjaminschreck/doclink/pkg/doclink/xml"
)

// Well-known OOXML namespace prefixes, used to rewrite captured raw XML
// (which carries full namespace URIs) back into prefixed form, and to
// declare a sane default set on documents that lost their root attributes.
var knownNamespaces = []struct {
	prefix string
	uri    string
}{
	{"w", "http://schemas.openxmlformats.org/wordprocessingml/2006/main"},
	{"r", "http://schemas.openxmlformats.org/officeDocument/2006/relationships"},
	{"wp", "http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing"},
	{"a", "http://schemas.openxmlformats.org/drawingml/2006/main"},
	{"pic", "http://schemas.openxmlformats.org/drawingml/2006/picture"},
	{"mc", "http://schemas.openxmlformats.org/markup-compatibility/2006"},
	{"wp14", "http://schemas.microsoft.com/office/word/2010/wordprocessingDrawing"},
	{"a14", "http://schemas.microsoft.com/office/drawing/2010/main"},
	{"w14", "http://schemas.microsoft.com/office/word/2010/wordml"},
	{"xml", "http://www.w3.org/XML/1998/namespace"},
}

// marshalDocument re-emits word/document.xml from the parsed tree. The
// model's MarshalXML methods write w:-prefixed names directly; raw XML
// captured at parse time cannot flow through an Encoder, so it is spliced
// in afterwards via unique text markers, the namespace URIs it carries
// rewritten back to prefixes.
func marshalDocument(doc *xml.Document) ([]byte, error) {
	if doc == nil || doc.Body == nil {
		return nil, fmt.Errorf("document has no body")
	}

	stash := stashRawContent(doc)
	defer stash.restore()

	var inner bytes.Buffer
	enc := goxml.NewEncoder(&inner)
	if err := enc.EncodeElement(doc.Body, goxml.StartElement{Name: goxml.Name{Local: "w:body"}}); err != nil {
		return nil, err
	}
	if err := enc.Flush(); err != nil {
		return nil, err
	}

	body := applyPrefixFixes(inner.String())
	prefixes := namespacePrefixMap(doc)

	for marker, raw := range stash.markers {
		cleaned := rewriteNamespaceURIs(string(raw), prefixes)
		// Property markers marshal as elements. Run markers marshal inside
		// the run's w:t; the raw content must land after the text element,
		// never inside it.
		body = strings.ReplaceAll(body, "<rawXMLMarker>"+marker+"</rawXMLMarker>", cleaned)
		body = strings.ReplaceAll(body, "<w:t>"+marker+"</w:t>", cleaned)
		body = strings.ReplaceAll(body, marker+"</w:t>", "</w:t>"+cleaned)
		body = strings.ReplaceAll(body, marker, cleaned)
	}

	if doc.Body.SectionProperties != nil {
		sectPr := rewriteNamespaceURIs(string(doc.Body.SectionProperties.Content), prefixes)
		if idx := strings.LastIndex(body, "</w:body>"); idx >= 0 {
			body = body[:idx] + sectPr + body[idx:]
		}
	}

	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`)
	buf.WriteString("\n")
	buf.WriteString("<w:document")
	for _, attr := range rootAttributes(doc) {
		buf.WriteString(" ")
		buf.WriteString(attr)
	}
	buf.WriteString(">")
	buf.WriteString(body)
	buf.WriteString("</w:document>")

	return buf.Bytes(), nil
}

// marshalRelationships re-emits word/_rels/document.xml.rels.
func marshalRelationships(rels *xml.Relationships) ([]byte, error) {
	data, err := goxml.Marshal(rels)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`)
	buf.WriteString("\n")
	buf.Write(data)
	return buf.Bytes(), nil
}

// prefixFixes patches the element and attribute names encoding/xml emits
// without the w: prefix. Child types that implement MarshalXML already
// prefix themselves; the ones that rely on struct tags (boolean run
// properties, widths, fonts) come out bare and are repaired here. Attribute
// fixes are safe against visible text because the encoder escapes quotes
// in character data, so ` val="` can only occur inside a tag.
var prefixFixes = []struct{ old, new string }{
	{"<b></b>", "<w:b/>"},
	{"<i></i>", "<w:i/>"},
	{"<strike></strike>", "<w:strike/>"},
	{"<u ", "<w:u "},
	{"</u>", "</w:u>"},
	{"<color ", "<w:color "},
	{"</color>", "</w:color>"},
	{"<rFonts ", "<w:rFonts "},
	{"</rFonts>", "</w:rFonts>"},
	{"<vertAlign ", "<w:vertAlign "},
	{"</vertAlign>", "</w:vertAlign>"},
	{`<tabs xmlns="http://schemas.openxmlformats.org/wordprocessingml/2006/main">`, "<w:tabs>"},
	{"<tabs>", "<w:tabs>"},
	{"</tabs>", "</w:tabs>"},
	{` type="`, ` w:type="`},
	{` w="`, ` w:w="`},
	{` val="`, ` w:val="`},
	{` ascii="`, ` w:ascii="`},
}

func applyPrefixFixes(body string) string {
	for _, fix := range prefixFixes {
		body = strings.ReplaceAll(body, fix.old, fix.new)
	}
	return body
}

// rootAttributes reconstructs the document root's attribute list as
// ready-to-emit name="value" strings. Namespace declarations survive from
// the parse; a document with none (built programmatically) gets the
// well-known set so its prefixed content stays resolvable.
func rootAttributes(doc *xml.Document) []string {
	uriToPrefix := make(map[string]string)
	for _, ns := range knownNamespaces {
		uriToPrefix[ns.uri] = ns.prefix
	}
	for prefix, uri := range doc.ExtractNamespaces() {
		if prefix != "" {
			uriToPrefix[uri] = prefix
		}
	}

	var attrs []string
	seen := make(map[string]bool)
	for _, attr := range doc.Attrs {
		var name string
		switch {
		case attr.Name.Space == "xmlns":
			name = "xmlns:" + attr.Name.Local
		case attr.Name.Local == "xmlns":
			name = "xmlns"
		case strings.HasPrefix(attr.Name.Local, "xmlns:"):
			name = attr.Name.Local
		case attr.Name.Space == "":
			name = attr.Name.Local
		default:
			prefix, ok := uriToPrefix[attr.Name.Space]
			if !ok {
				continue
			}
			name = prefix + ":" + attr.Name.Local
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		attrs = append(attrs, fmt.Sprintf(`%s="%s"`, name, escapeAttr(attr.Value)))
	}

	if !seen["xmlns:w"] {
		defaults := []string{"w", "r", "wp", "a", "pic"}
		for _, prefix := range defaults {
			for _, ns := range knownNamespaces {
				if ns.prefix == prefix {
					attrs = append(attrs, fmt.Sprintf("xmlns:%s=%q", prefix, ns.uri))
				}
			}
		}
	}

	return attrs
}

// namespacePrefixMap inverts the document's declared namespaces (URI to
// prefix), with the well-known set as fallback for URIs the root never
// declared.
func namespacePrefixMap(doc *xml.Document) map[string]string {
	uriToPrefix := make(map[string]string)
	for _, ns := range knownNamespaces {
		uriToPrefix[ns.uri] = ns.prefix
	}
	for prefix, uri := range doc.ExtractNamespaces() {
		if prefix != "" {
			uriToPrefix[uri] = prefix
		}
	}
	return uriToPrefix
}

// rewriteNamespaceURIs converts "URI:local" names inside captured raw XML
// back to "prefix:local". The decoder expands prefixes to full URIs while
// tokenizing, so raw captures arrive in expanded form.
func rewriteNamespaceURIs(raw string, uriToPrefix map[string]string) string {
	for uri, prefix := range uriToPrefix {
		raw = strings.ReplaceAll(raw, uri+":", prefix+":")
	}
	return raw
}

func escapeAttr(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, `"`, "&quot;")
	return s
}

// rawStash holds the temporary marker substitutions made while marshaling
// and knows how to undo them, so a save never permanently mutates the
// in-memory tree.
type rawStash struct {
	markers map[string][]byte
	undos   []func()
}

func (s *rawStash) restore() {
	for i := len(s.undos) - 1; i >= 0; i-- {
		s.undos[i]()
	}
}

// stashRawContent walks every run and paragraph-property set that will be
// marshaled and swaps raw XML out for unique markers.
func stashRawContent(doc *xml.Document) *rawStash {
	stash := &rawStash{markers: make(map[string][]byte)}
	index := 0

	nextMarker := func(content []byte) string {
		marker := fmt.Sprintf("__RAW_XML_MARKER_%d__", index)
		index++
		stash.markers[marker] = content
		return marker
	}

	stashRun := func(run *xml.Run) {
		if len(run.RawXML) == 0 {
			return
		}
		savedText := run.Text
		savedRaw := run.RawXML
		stash.undos = append(stash.undos, func() {
			run.Text = savedText
			run.RawXML = savedRaw
		})

		// One marker per run, holding the run's raw content concatenated,
		// so the post-marshal splice sees a single substitution point.
		var combined bytes.Buffer
		for _, raw := range savedRaw {
			combined.Write(raw.Content)
		}
		marker := nextMarker(combined.Bytes())
		if savedText != nil {
			run.Text = &xml.Text{Content: savedText.Content + marker, Space: savedText.Space}
		} else {
			run.Text = &xml.Text{Content: marker}
		}
		run.RawXML = nil
	}

	stashParagraph := func(para *xml.Paragraph) {
		if para.Properties != nil && len(para.Properties.RawXML) > 0 {
			props := para.Properties
			stash.undos = append(stash.undos, func() {
				props.RawXMLMarkers = nil
			})
			for _, raw := range props.RawXML {
				props.RawXMLMarkers = append(props.RawXMLMarkers, nextMarker(raw.Content))
			}
		}
		for _, run := range marshaledRuns(para) {
			stashRun(run)
		}
	}

	for _, elem := range doc.Body.Elements {
		switch el := elem.(type) {
		case *xml.Paragraph:
			stashParagraph(el)
		case *xml.Table:
			for ri := range el.Rows {
				for ci := range el.Rows[ri].Cells {
					cell := &el.Rows[ri].Cells[ci]
					for pi := range cell.Paragraphs {
						stashParagraph(&cell.Paragraphs[pi])
					}
				}
			}
		}
	}

	return stash
}

// marshaledRuns returns pointers to exactly the runs Paragraph.MarshalXML
// will emit: the Content entries when Content is populated, the legacy
// Runs/Hyperlinks slices otherwise.
func marshaledRuns(para *xml.Paragraph) []*xml.Run {
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
			case *xml.Ins:
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
	for i := range para.Hyperlinks {
		for j := range para.Hyperlinks[i].Runs {
			runs = append(runs, &para.Hyperlinks[i].Runs[j])
		}
	}
	return runs
}
