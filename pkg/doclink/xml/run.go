package xml

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// Run represents a w:r run of text sharing one set of formatting
// properties. Besides plain text and line breaks, a run can carry a field
// character (w:fldChar) or field instruction (w:instrText), the pieces
// Word assembles into a TOC, PAGE, REF, or HYPERLINK field, or an
// arbitrary element the model doesn't need to understand (drawings,
// OLE objects, footnote references, ...), preserved verbatim in RawXML.
type Run struct {
	Properties *RunProperties `xml:"rPr"`
	Text       *Text          `xml:"t"`
	Break      *Break         `xml:"br"`
	FieldChar  *FieldChar     `xml:"fldChar"`
	InstrText  *InstrText     `xml:"instrText"`
	// RawXML preserves elements the model treats opaquely: drawings,
	// embedded objects, footnote/endnote references, and anything else
	// not listed above.
	RawXML []RawXMLElement `xml:"-"`
}

func (r Run) isParagraphContent() {}

// UnmarshalXML decodes run children, preserving unrecognized elements as
// raw XML text so a round trip never silently drops content (most commonly
// a w:drawing).
func (r *Run) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
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
			case "rPr":
				var props RunProperties
				if err := d.DecodeElement(&props, &t); err != nil {
					return err
				}
				r.Properties = &props
			case "t":
				var text Text
				if err := d.DecodeElement(&text, &t); err != nil {
					return err
				}
				r.Text = &text
			case "br":
				var br Break
				if err := d.DecodeElement(&br, &t); err != nil {
					return err
				}
				r.Break = &br
			case "fldChar":
				var fc FieldChar
				if err := d.DecodeElement(&fc, &t); err != nil {
					return err
				}
				r.FieldChar = &fc
			case "instrText":
				var it InstrText
				if err := d.DecodeElement(&it, &t); err != nil {
					return err
				}
				r.InstrText = &it
			default:
				raw, err := captureRawElement(d, t)
				if err != nil {
					return err
				}
				r.RawXML = append(r.RawXML, *raw)
			}
		case xml.EndElement:
			if t.Name.Local == "r" {
				return nil
			}
		}
	}

	return nil
}

// MarshalXML re-emits a run's children. RawXML content is spliced back in
// by the marker-substitution pass after the document is fully marshaled,
// since encoding/xml cannot emit pre-rendered, already-prefixed XML text
// through an Encoder.
func (r Run) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Name = xml.Name{Local: "w:r"}
	if err := e.EncodeToken(start); err != nil {
		return err
	}

	if r.Properties != nil {
		if err := e.EncodeElement(r.Properties, xml.StartElement{Name: xml.Name{Local: "w:rPr"}}); err != nil {
			return err
		}
	}
	if r.FieldChar != nil {
		if err := e.Encode(r.FieldChar); err != nil {
			return err
		}
	}
	if r.InstrText != nil {
		if err := e.EncodeElement(r.InstrText, xml.StartElement{Name: xml.Name{Local: "w:instrText"}}); err != nil {
			return err
		}
	}
	if r.Text != nil {
		if err := e.EncodeElement(r.Text, xml.StartElement{Name: xml.Name{Local: "w:t"}}); err != nil {
			return err
		}
	}
	if r.Break != nil {
		if err := e.Encode(r.Break); err != nil {
			return err
		}
	}

	return e.EncodeToken(xml.EndElement{Name: start.Name})
}

// GetText returns the run's visible text, empty for a break, field
// character, or raw/unknown content.
func (r *Run) GetText() string {
	if r.Text == nil {
		return ""
	}
	return r.Text.Content
}

// HasDrawing reports whether the run carries a w:drawing element, which
// marks it as an image/shape anchor rather than text.
func (r *Run) HasDrawing() bool {
	for _, raw := range r.RawXML {
		if raw.XMLName.Local == "drawing" {
			return true
		}
	}
	return false
}

// RunProperties represents run formatting properties.
type RunProperties struct {
	Bold          *Empty          `xml:"b"`
	Italic        *Empty          `xml:"i"`
	Underline     *UnderlineStyle `xml:"u"`
	Strike        *Empty          `xml:"strike"`
	VerticalAlign *VerticalAlign  `xml:"vertAlign"`
	Color         *Color          `xml:"color"`
	Size          *Size           `xml:"sz"`
	SizeCs        *Size           `xml:"szCs"`
	Kern          *Kern           `xml:"kern"`
	Lang          *Lang           `xml:"lang"`
	Font          *Font           `xml:"rFonts"`
	Style         *RunStyle       `xml:"rStyle"`
}

// Text represents w:t text content.
type Text struct {
	XMLName xml.Name `xml:"t"`
	Space   string   `xml:"space,attr"`
	Content string   `xml:",chardata"`
}

// MarshalXML adds xml:space="preserve" when the text carries significant
// leading/trailing whitespace, matching how Word itself marks such runs.
func (t Text) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Name = xml.Name{Local: "w:t"}
	if t.Space == "preserve" {
		start.Attr = append(start.Attr, xml.Attr{
			Name:  xml.Name{Space: "http://www.w3.org/XML/1998/namespace", Local: "space"},
			Value: "preserve",
		})
	}
	return e.EncodeElement(t.Content, start)
}

// InstrText represents w:instrText, the raw field instruction text inside
// a complex field (e.g. ` HYPERLINK "https://example.com" `).
type InstrText struct {
	XMLName xml.Name `xml:"instrText"`
	Space   string   `xml:"space,attr"`
	Content string   `xml:",chardata"`
}

func (t InstrText) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Name = xml.Name{Local: "w:instrText"}
	if t.Space == "preserve" {
		start.Attr = append(start.Attr, xml.Attr{
			Name:  xml.Name{Space: "http://www.w3.org/XML/1998/namespace", Local: "space"},
			Value: "preserve",
		})
	}
	return e.EncodeElement(t.Content, start)
}

// FieldChar represents w:fldChar, one of the begin/separate/end markers
// that bracket a complex field's instruction and cached result. Dirty marks
// the field's cached result as stale so the consuming word processor
// recomputes it on next open.
type FieldChar struct {
	Type  string `xml:"fldCharType,attr"` // "begin", "separate", or "end"
	Dirty bool   `xml:"dirty,attr,omitempty"`
}

func (f *FieldChar) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Name = xml.Name{Local: "w:fldChar"}
	start.Attr = nil
	if f.Type != "" {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "w:fldCharType"}, Value: f.Type})
	}
	if f.Dirty {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "w:dirty"}, Value: "true"})
	}
	return e.EncodeElement(struct{}{}, start)
}

// Break represents a line, page, or column break.
type Break struct {
	Type string `xml:"type,attr,omitempty"`
}

func (b *Break) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Name = xml.Name{Local: "w:br"}
	start.Attr = nil
	if b.Type != "" {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "w:type"}, Value: b.Type})
	}
	return e.EncodeElement(struct{}{}, start)
}

// Color represents text color.
type Color struct {
	Val string `xml:"val,attr"`
}

// Size represents a font size in half-points.
type Size struct {
	Val int `xml:"val,attr"`
}

func (s Size) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	if !strings.HasPrefix(start.Name.Local, "w:") {
		start.Name.Local = "w:" + start.Name.Local
	}
	start.Attr = []xml.Attr{{Name: xml.Name{Local: "w:val"}, Value: fmt.Sprintf("%d", s.Val)}}
	return e.EncodeElement(struct{}{}, start)
}

// Kern represents the minimum font size, in half-points, at which kerning
// is applied.
type Kern struct {
	Val int `xml:"val,attr"`
}

func (k Kern) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Name = xml.Name{Local: "w:kern"}
	start.Attr = []xml.Attr{{Name: xml.Name{Local: "w:val"}, Value: fmt.Sprintf("%d", k.Val)}}
	return e.EncodeElement(struct{}{}, start)
}

// Lang represents run language settings.
type Lang struct {
	Val      string `xml:"val,attr,omitempty"`
	EastAsia string `xml:"eastAsia,attr,omitempty"`
	Bidi     string `xml:"bidi,attr,omitempty"`
}

func (l Lang) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Name = xml.Name{Local: "w:lang"}
	start.Attr = nil
	if l.Val != "" {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "w:val"}, Value: l.Val})
	}
	if l.EastAsia != "" {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "w:eastAsia"}, Value: l.EastAsia})
	}
	if l.Bidi != "" {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "w:bidi"}, Value: l.Bidi})
	}
	return e.EncodeElement(struct{}{}, start)
}

// Font represents the ASCII font face for a run.
type Font struct {
	ASCII string `xml:"ascii,attr"`
}

// RunStyle represents a character style reference.
type RunStyle struct {
	Val string `xml:"val,attr"`
}

func (s RunStyle) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Name = xml.Name{Local: "w:rStyle"}
	start.Attr = []xml.Attr{{Name: xml.Name{Local: "w:val"}, Value: s.Val}}
	return e.EncodeElement(struct{}{}, start)
}

// UnderlineStyle represents underline formatting.
type UnderlineStyle struct {
	Val string `xml:"val,attr"`
}

// VerticalAlign represents superscript/subscript alignment.
type VerticalAlign struct {
	Val string `xml:"val,attr"`
}

func (v VerticalAlign) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Attr = []xml.Attr{{Name: xml.Name{Local: "w:val"}, Value: v.Val}}
	return e.EncodeElement(struct{}{}, start)
}
