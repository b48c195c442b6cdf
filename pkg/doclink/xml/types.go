package xml

import (
	"encoding/xml"
)

// BodyElement represents any element that can appear in a document body.
type BodyElement interface {
	isBodyElement()
}

// ParagraphContent represents any content that can appear in a paragraph.
type ParagraphContent interface {
	isParagraphContent()
}

// RawXMLElement represents a raw XML element that is preserved but not parsed.
type RawXMLElement struct {
	XMLName xml.Name
	Attrs   []xml.Attr
	Content []byte
}

// Empty represents an empty element, used for boolean-style properties.
type Empty struct{}

// Style represents a style reference (pStyle, tblStyle, rStyle, ...).
type Style struct {
	Val string `xml:"val,attr"`
}

// MarshalXML implements custom XML marshaling for Style. The element name
// depends on context (pStyle, tblStyle, ...) so the caller-supplied name is
// kept.
func (s Style) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Attr = []xml.Attr{
		{Name: xml.Name{Local: "w:val"}, Value: s.Val},
	}
	return e.EncodeElement(struct{}{}, start)
}

// writeOpenTag and writeCloseTag centralize the
// open/close tag reconstruction shared by every UnmarshalXML implementation
// that preserves an unknown element as raw XML text.
func writeOpenTag(buf rawBuf, name xml.Name, attrs []xml.Attr) {
	buf.WriteString("<")
	if name.Space != "" {
		buf.WriteString(name.Space)
		buf.WriteString(":")
	}
	buf.WriteString(name.Local)
	for _, attr := range attrs {
		buf.WriteString(" ")
		if attr.Name.Space != "" {
			buf.WriteString(attr.Name.Space)
			buf.WriteString(":")
		}
		buf.WriteString(attr.Name.Local)
		buf.WriteString("=\"")
		buf.WriteString(attr.Value)
		buf.WriteString("\"")
	}
	buf.WriteString(">")
}

func writeCloseTag(buf rawBuf, name xml.Name) {
	buf.WriteString("</")
	if name.Space != "" {
		buf.WriteString(name.Space)
		buf.WriteString(":")
	}
	buf.WriteString(name.Local)
	buf.WriteString(">")
}

// rawBuf is the minimal string-builder surface writeOpenTag/writeCloseTag
// need; it exists so callers can pass *strings.Builder without this file
// importing "strings" just for the interface.
type rawBuf interface {
	WriteString(string) (int, error)
}
