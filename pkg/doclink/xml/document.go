package xml

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"sync"
)

var parseContexts sync.Map

type parseContext struct {
	namespaceStack []map[string]string
}

// Document represents the root of word/document.xml.
type Document struct {
	XMLName xml.Name   `xml:"document"`
	Body    *Body      `xml:"body"`
	Attrs   []xml.Attr `xml:"-"` // root element attributes (namespace declarations, mc:Ignorable, ...)
}

// UnmarshalXML preserves the root element's attributes, which carry every
// namespace declaration the document depends on, and tracks a namespace
// scope stack across the parse so nested elements can resolve prefixes
// introduced anywhere in the ancestor chain.
func (doc *Document) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	doc.Attrs = start.Attr
	parseContexts.Store(d, &parseContext{
		namespaceStack: []map[string]string{extractNamespacesFromAttrs(start.Attr)},
	})
	defer parseContexts.Delete(d)

	var temp struct {
		XMLName xml.Name `xml:"document"`
		Body    *Body    `xml:"body"`
	}

	if err := d.DecodeElement(&temp, &start); err != nil {
		return err
	}

	doc.XMLName = temp.XMLName
	doc.Body = temp.Body
	return nil
}

func parseContextForDecoder(d *xml.Decoder) *parseContext {
	ctx, ok := parseContexts.Load(d)
	if !ok {
		return nil
	}
	parseCtx, ok := ctx.(*parseContext)
	if !ok {
		return nil
	}
	return parseCtx
}

func pushParseNamespaceScope(d *xml.Decoder, attrs []xml.Attr) {
	parseCtx := parseContextForDecoder(d)
	if parseCtx == nil {
		return
	}

	current := map[string]string{}
	if n := len(parseCtx.namespaceStack); n > 0 {
		current = copyNamespaces(parseCtx.namespaceStack[n-1])
	}
	for prefix, uri := range extractNamespacesFromAttrs(attrs) {
		current[prefix] = uri
	}

	parseCtx.namespaceStack = append(parseCtx.namespaceStack, current)
}

func popParseNamespaceScope(d *xml.Decoder) {
	parseCtx := parseContextForDecoder(d)
	if parseCtx == nil || len(parseCtx.namespaceStack) == 0 {
		return
	}
	parseCtx.namespaceStack = parseCtx.namespaceStack[:len(parseCtx.namespaceStack)-1]
}

func copyNamespaces(namespaces map[string]string) map[string]string {
	if len(namespaces) == 0 {
		return map[string]string{}
	}
	dup := make(map[string]string, len(namespaces))
	for prefix, uri := range namespaces {
		dup[prefix] = uri
	}
	return dup
}

// Body represents the document body: a flat, order-preserving sequence of
// paragraphs and tables terminated by the section properties.
type Body struct {
	Elements          []BodyElement  `xml:"-"`
	SectionProperties *RawXMLElement `xml:"-"`
}

// UnmarshalXML decodes elements one token at a time instead of relying on
// struct tags, because encoding/xml has no way to express "zero or more
// elements from a closed set, in original order" with plain tags.
func (b *Body) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	pushParseNamespaceScope(d, start.Attr)
	defer popParseNamespaceScope(d)

	for {
		token, err := d.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		switch t := token.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				var para Paragraph
				if err := d.DecodeElement(&para, &t); err != nil {
					return err
				}
				b.Elements = append(b.Elements, &para)
			case "tbl":
				var table Table
				if err := d.DecodeElement(&table, &t); err != nil {
					return err
				}
				b.Elements = append(b.Elements, &table)
			case "sectPr":
				raw, err := captureRawElement(d, t)
				if err != nil {
					return err
				}
				b.SectionProperties = raw
			}
		case xml.EndElement:
			if t.Name.Local == "body" {
				return nil
			}
		}
	}

	return nil
}

// captureRawElement reads a complete element (including all descendants) as
// reconstructed XML text, for elements whose internal structure the model
// never needs to inspect (section properties, drawings, and similar).
func captureRawElement(d *xml.Decoder, start xml.StartElement) (*RawXMLElement, error) {
	raw := &RawXMLElement{XMLName: start.Name, Attrs: start.Attr}

	depth := 1
	var buf strings.Builder
	writeOpenTag(&buf, start.Name, start.Attr)

	for depth > 0 {
		tok, err := d.Token()
		if err != nil {
			return nil, err
		}

		switch tt := tok.(type) {
		case xml.StartElement:
			depth++
			writeOpenTag(&buf, tt.Name, tt.Attr)
		case xml.EndElement:
			depth--
			if depth > 0 {
				writeCloseTag(&buf, tt.Name)
			}
		case xml.CharData:
			buf.Write(tt)
		}
	}

	writeCloseTag(&buf, start.Name)
	raw.Content = []byte(buf.String())
	return raw, nil
}

// MarshalXML re-emits body elements in their original order. Section
// properties are appended by the doclink package's marshalDocument, which needs to
// see the raw namespace-qualified text rather than a re-parsed struct.
func (b Body) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	if err := e.EncodeToken(start); err != nil {
		return err
	}

	for _, elem := range b.Elements {
		switch el := elem.(type) {
		case *Paragraph:
			if err := e.EncodeElement(el, xml.StartElement{Name: xml.Name{Local: "w:p"}}); err != nil {
				return err
			}
		case *Table:
			if err := e.EncodeElement(el, xml.StartElement{Name: xml.Name{Local: "w:tbl"}}); err != nil {
				return err
			}
		}
	}

	return e.EncodeToken(xml.EndElement{Name: start.Name})
}

// ParseDocument parses word/document.xml into a Document.
func ParseDocument(r io.Reader) (*Document, error) {
	decoder := xml.NewDecoder(r)

	var doc Document
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}

	return &doc, nil
}

// ExtractNamespaces returns the prefix -> URI map declared on the document
// root element.
func (doc *Document) ExtractNamespaces() map[string]string {
	return extractNamespacesFromAttrs(doc.Attrs)
}

func extractNamespacesFromAttrs(attrs []xml.Attr) map[string]string {
	namespaces := make(map[string]string)

	for _, attr := range attrs {
		// encoding/xml surfaces xmlns declarations in three different
		// shapes depending on how the source document wrote them.
		if attr.Name.Space == "xmlns" {
			namespaces[attr.Name.Local] = attr.Value
		} else if attr.Name.Local == "xmlns" {
			namespaces[""] = attr.Value
		} else if strings.HasPrefix(attr.Name.Local, "xmlns:") {
			prefix := strings.TrimPrefix(attr.Name.Local, "xmlns:")
			namespaces[prefix] = attr.Value
		}
	}

	return namespaces
}

// MergeNamespaces adds namespace declarations the document doesn't already
// carry. Existing declarations always win, so a prefix already bound to a
// URI on the root element is left untouched.
func (doc *Document) MergeNamespaces(additional map[string]string) {
	if len(additional) == 0 {
		return
	}

	existing := extractNamespacesFromAttrs(doc.Attrs)

	for prefix, uri := range additional {
		if _, ok := existing[prefix]; ok {
			continue
		}

		var attr xml.Attr
		if prefix == "" {
			attr = xml.Attr{Name: xml.Name{Local: "xmlns"}, Value: uri}
		} else {
			attr = xml.Attr{Name: xml.Name{Local: "xmlns:" + prefix}, Value: uri}
		}
		doc.Attrs = append(doc.Attrs, attr)
	}
}
