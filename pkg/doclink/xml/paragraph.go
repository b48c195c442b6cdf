package xml

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// Paragraph represents a paragraph in the document body or a table cell.
type Paragraph struct {
	Properties *ParagraphProperties `xml:"pPr"`
	// Content preserves the original interleaving of runs and hyperlinks.
	Content []ParagraphContent `xml:"-"`
	// Runs and Hyperlinks are kept alongside Content for callers that only
	// care about one kind of child and don't want to type-switch.
	Runs       []Run       `xml:"-"`
	Hyperlinks []Hyperlink `xml:"-"`
}

func (p Paragraph) isBodyElement() {}

// UnmarshalXML decodes paragraph children in document order.
func (p *Paragraph) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var tempContent []ParagraphContent
	var tempRuns []Run
	var tempHyperlinks []Hyperlink
	needsContent := false

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
			case "pPr":
				var props ParagraphProperties
				if err := d.DecodeElement(&props, &t); err != nil {
					return err
				}
				p.Properties = &props
			case "r":
				var run Run
				if err := d.DecodeElement(&run, &t); err != nil {
					return err
				}
				tempContent = append(tempContent, &run)
				tempRuns = append(tempRuns, run)
			case "hyperlink":
				var hyperlink Hyperlink
				if err := d.DecodeElement(&hyperlink, &t); err != nil {
					return err
				}
				tempContent = append(tempContent, &hyperlink)
				tempHyperlinks = append(tempHyperlinks, hyperlink)
				needsContent = true
			case "ins":
				id, author, date, runs, err := decodeRevisionWrapper(d, t)
				if err != nil {
					return err
				}
				tempContent = append(tempContent, &Ins{ID: id, Author: author, Date: date, Runs: runs})
				needsContent = true
			case "del":
				id, author, date, runs, err := decodeRevisionWrapper(d, t)
				if err != nil {
					return err
				}
				tempContent = append(tempContent, &Del{ID: id, Author: author, Date: date, Runs: runs})
				needsContent = true
			}
		case xml.EndElement:
			if t.Name.Local == "p" {
				// Content is only populated when hyperlinks or tracked
				// changes are present so that plain-run paragraphs keep
				// using the legacy fields; callers that need full ordering
				// should prefer Content whenever it is non-empty and fall
				// back to Runs/Hyperlinks otherwise.
				if needsContent {
					p.Content = tempContent
				}
				p.Runs = tempRuns
				p.Hyperlinks = tempHyperlinks
				return nil
			}
		}
	}

	return nil
}

// MarshalXML re-emits the paragraph's children in their original order.
func (p Paragraph) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Name = xml.Name{Local: "w:p"}
	if err := e.EncodeToken(start); err != nil {
		return err
	}

	if p.Properties != nil {
		if err := e.EncodeElement(p.Properties, xml.StartElement{Name: xml.Name{Local: "w:pPr"}}); err != nil {
			return err
		}
	}

	if len(p.Content) > 0 {
		for _, content := range p.Content {
			switch c := content.(type) {
			case *Run:
				if err := e.EncodeElement(c, xml.StartElement{Name: xml.Name{Local: "w:r"}}); err != nil {
					return err
				}
			case *Hyperlink:
				if err := e.EncodeElement(c, xml.StartElement{Name: xml.Name{Local: "w:hyperlink"}}); err != nil {
					return err
				}
			case *Ins:
				if err := e.EncodeElement(c, xml.StartElement{Name: xml.Name{Local: "w:ins"}}); err != nil {
					return err
				}
			case *Del:
				if err := e.EncodeElement(c, xml.StartElement{Name: xml.Name{Local: "w:del"}}); err != nil {
					return err
				}
			}
		}
	} else {
		for _, run := range p.Runs {
			if err := e.EncodeElement(&run, xml.StartElement{Name: xml.Name{Local: "w:r"}}); err != nil {
				return err
			}
		}
		for _, hyperlink := range p.Hyperlinks {
			if err := e.EncodeElement(&hyperlink, xml.StartElement{Name: xml.Name{Local: "w:hyperlink"}}); err != nil {
				return err
			}
		}
	}

	return e.EncodeToken(xml.EndElement{Name: start.Name})
}

// GetText returns the concatenated visible text of every run and hyperlink
// in the paragraph, in document order.
func (p *Paragraph) GetText() string {
	var texts []string

	if len(p.Content) > 0 {
		for _, content := range p.Content {
			switch c := content.(type) {
			case *Run:
				if text := c.GetText(); text != "" {
					texts = append(texts, text)
				}
			case *Hyperlink:
				if text := c.GetText(); text != "" {
					texts = append(texts, text)
				}
			case *Ins:
				if text := c.GetText(); text != "" {
					texts = append(texts, text)
				}
			}
		}
		return strings.Join(texts, "")
	}

	for _, run := range p.Runs {
		if text := run.GetText(); text != "" {
			texts = append(texts, text)
		}
	}
	for _, hyperlink := range p.Hyperlinks {
		if text := hyperlink.GetText(); text != "" {
			texts = append(texts, text)
		}
	}

	return strings.Join(texts, "")
}

// HasComplexField reports whether any run in the paragraph carries a field
// character or field instruction, which marks Word's "complex field" form
// (a fldChar begin/separate/end sequence) rather than a plain run of text.
// Paragraphs flagged this way need field-aware handling instead of a
// straight text scan: the visible text for a TOC/PAGE/REF/HYPERLINK field
// lives in the run *after* the separate fldChar, not in the instruction
// text itself.
func (p *Paragraph) HasComplexField() bool {
	for _, run := range p.allRuns() {
		if run.FieldChar != nil || run.InstrText != nil {
			return true
		}
	}
	return false
}

// FieldInstruction returns the concatenated instruction text (the content
// of every w:instrText run) for the paragraph, e.g. ` HYPERLINK "..." `.
func (p *Paragraph) FieldInstruction() string {
	var sb strings.Builder
	for _, run := range p.allRuns() {
		if run.InstrText != nil {
			sb.WriteString(run.InstrText.Content)
		}
	}
	return sb.String()
}

func (p *Paragraph) allRuns() []*Run {
	var runs []*Run
	if len(p.Content) > 0 {
		for _, content := range p.Content {
			switch c := content.(type) {
			case *Run:
				runs = append(runs, c)
			case *Hyperlink:
				for i := range c.Runs {
					runs = append(runs, &c.Runs[i])
				}
			}
		}
		return runs
	}
	for i := range p.Runs {
		runs = append(runs, &p.Runs[i])
	}
	for _, h := range p.Hyperlinks {
		for i := range h.Runs {
			runs = append(runs, &h.Runs[i])
		}
	}
	return runs
}

// ParagraphProperties represents paragraph formatting properties.
type ParagraphProperties struct {
	Style          *Style         `xml:"pStyle"`
	Tabs           *Tabs          `xml:"tabs"`
	OverflowPunct  bool           `xml:"-"`
	AutoSpaceDE    bool           `xml:"-"`
	AutoSpaceDN    bool           `xml:"-"`
	AdjustRightInd bool           `xml:"-"`
	Alignment      *Alignment     `xml:"jc"`
	Indentation    *Indentation   `xml:"ind"`
	Spacing        *Spacing       `xml:"spacing"`
	TextAlignment  *TextAlignment `xml:"-"`
	RunProperties  *RunProperties `xml:"rPr"`
	// RawXML preserves paragraph-property elements the model doesn't model
	// explicitly (numbering references, border definitions, ...).
	RawXML        []RawXMLElement `xml:"-"`
	RawXMLMarkers []string        `xml:"-"`
}

// UnmarshalXML preserves unknown paragraph-property elements verbatim.
func (p *ParagraphProperties) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
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
			case "pStyle":
				var style Style
				if err := d.DecodeElement(&style, &t); err != nil {
					return err
				}
				p.Style = &style
			case "tabs":
				var tabs Tabs
				if err := d.DecodeElement(&tabs, &t); err != nil {
					return err
				}
				p.Tabs = &tabs
			case "jc":
				var alignment Alignment
				if err := d.DecodeElement(&alignment, &t); err != nil {
					return err
				}
				p.Alignment = &alignment
			case "ind":
				var indentation Indentation
				if err := d.DecodeElement(&indentation, &t); err != nil {
					return err
				}
				p.Indentation = &indentation
			case "spacing":
				var spacing Spacing
				if err := d.DecodeElement(&spacing, &t); err != nil {
					return err
				}
				p.Spacing = &spacing
			case "overflowPunct":
				p.OverflowPunct = true
				if err := d.Skip(); err != nil {
					return err
				}
			case "autoSpaceDE":
				p.AutoSpaceDE = true
				if err := d.Skip(); err != nil {
					return err
				}
			case "autoSpaceDN":
				p.AutoSpaceDN = true
				if err := d.Skip(); err != nil {
					return err
				}
			case "adjustRightInd":
				p.AdjustRightInd = true
				if err := d.Skip(); err != nil {
					return err
				}
			case "textAlignment":
				var textAlign TextAlignment
				if err := d.DecodeElement(&textAlign, &t); err != nil {
					return err
				}
				p.TextAlignment = &textAlign
			case "rPr":
				var runProps RunProperties
				if err := d.DecodeElement(&runProps, &t); err != nil {
					return err
				}
				p.RunProperties = &runProps
			default:
				raw, err := captureRawElement(d, t)
				if err != nil {
					return err
				}
				p.RawXML = append(p.RawXML, *raw)
			}
		case xml.EndElement:
			if t.Name.Local == "pPr" {
				return nil
			}
		}
	}

	return nil
}

// MarshalXML re-emits paragraph properties in schema order.
func (p ParagraphProperties) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Name = xml.Name{Local: "w:pPr"}
	if err := e.EncodeToken(start); err != nil {
		return err
	}

	if p.Style != nil {
		if err := e.EncodeElement(p.Style, xml.StartElement{Name: xml.Name{Local: "w:pStyle"}}); err != nil {
			return err
		}
	}
	if p.Tabs != nil {
		if err := e.EncodeElement(p.Tabs, xml.StartElement{Name: xml.Name{Local: "w:tabs"}}); err != nil {
			return err
		}
	}
	if p.OverflowPunct {
		if err := e.EncodeElement(struct{}{}, xml.StartElement{Name: xml.Name{Local: "w:overflowPunct"}}); err != nil {
			return err
		}
	}
	if p.AutoSpaceDE {
		if err := e.EncodeElement(struct{}{}, xml.StartElement{Name: xml.Name{Local: "w:autoSpaceDE"}}); err != nil {
			return err
		}
	}
	if p.AutoSpaceDN {
		if err := e.EncodeElement(struct{}{}, xml.StartElement{Name: xml.Name{Local: "w:autoSpaceDN"}}); err != nil {
			return err
		}
	}
	if p.AdjustRightInd {
		if err := e.EncodeElement(struct{}{}, xml.StartElement{Name: xml.Name{Local: "w:adjustRightInd"}}); err != nil {
			return err
		}
	}
	if p.Alignment != nil {
		if err := e.EncodeElement(p.Alignment, xml.StartElement{Name: xml.Name{Local: "w:jc"}}); err != nil {
			return err
		}
	}
	if p.Indentation != nil {
		if err := e.EncodeElement(p.Indentation, xml.StartElement{Name: xml.Name{Local: "w:ind"}}); err != nil {
			return err
		}
	}
	if p.Spacing != nil {
		if err := e.EncodeElement(p.Spacing, xml.StartElement{Name: xml.Name{Local: "w:spacing"}}); err != nil {
			return err
		}
	}
	if p.TextAlignment != nil {
		if err := e.EncodeElement(p.TextAlignment, xml.StartElement{Name: xml.Name{Local: "w:textAlignment"}}); err != nil {
			return err
		}
	}
	if p.RunProperties != nil {
		if err := e.EncodeElement(p.RunProperties, xml.StartElement{Name: xml.Name{Local: "w:rPr"}}); err != nil {
			return err
		}
	}

	for _, marker := range p.RawXMLMarkers {
		markerElem := struct {
			XMLName xml.Name
			Content string `xml:",chardata"`
		}{
			XMLName: xml.Name{Local: "rawXMLMarker"},
			Content: marker,
		}
		if err := e.EncodeElement(&markerElem, xml.StartElement{Name: xml.Name{Local: "rawXMLMarker"}}); err != nil {
			return err
		}
	}

	return e.EncodeToken(xml.EndElement{Name: start.Name})
}

// TextAlignment represents text alignment settings.
type TextAlignment struct {
	Val string `xml:"val,attr"`
}

func (t TextAlignment) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Name = xml.Name{Local: "w:textAlignment"}
	start.Attr = nil
	if t.Val != "" {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "w:val"}, Value: t.Val})
	}
	return e.EncodeElement(struct{}{}, start)
}

// Tabs represents a set of custom tab stops.
type Tabs struct {
	XMLName xml.Name `xml:"tabs"`
	Tab     []Tab    `xml:"tab"`
}

// Tab represents a single tab stop.
type Tab struct {
	Val string `xml:"val,attr"`
	Pos string `xml:"pos,attr"`
}

func (t Tab) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Name = xml.Name{Local: "w:tab"}
	start.Attr = nil
	if t.Val != "" {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "w:val"}, Value: t.Val})
	}
	if t.Pos != "" {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "w:pos"}, Value: t.Pos})
	}
	return e.EncodeElement(struct{}{}, start)
}

// Alignment represents paragraph text alignment.
type Alignment struct {
	Val string `xml:"val,attr"`
}

func (a Alignment) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Name = xml.Name{Local: "w:jc"}
	start.Attr = []xml.Attr{{Name: xml.Name{Local: "w:val"}, Value: a.Val}}
	return e.EncodeElement(struct{}{}, start)
}

// Indentation represents paragraph indentation.
type Indentation struct {
	Left  int `xml:"left,attr"`
	Right int `xml:"right,attr"`
}

func (i Indentation) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Name = xml.Name{Local: "w:ind"}
	start.Attr = []xml.Attr{
		{Name: xml.Name{Local: "w:left"}, Value: fmt.Sprintf("%d", i.Left)},
		{Name: xml.Name{Local: "w:right"}, Value: fmt.Sprintf("%d", i.Right)},
	}
	return e.EncodeElement(struct{}{}, start)
}

// Spacing represents paragraph spacing before/after/between lines.
type Spacing struct {
	Before   int    `xml:"before,attr,omitempty"`
	After    int    `xml:"after,attr,omitempty"`
	Line     int    `xml:"line,attr,omitempty"`
	LineRule string `xml:"lineRule,attr,omitempty"`
}

func (s Spacing) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Name = xml.Name{Local: "w:spacing"}
	start.Attr = nil
	if s.Before != 0 {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "w:before"}, Value: fmt.Sprintf("%d", s.Before)})
	}
	if s.After != 0 {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "w:after"}, Value: fmt.Sprintf("%d", s.After)})
	}
	if s.Line != 0 {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "w:line"}, Value: fmt.Sprintf("%d", s.Line)})
	}
	if s.LineRule != "" {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "w:lineRule"}, Value: s.LineRule})
	}
	return e.EncodeElement(struct{}{}, start)
}

// Hyperlink represents a w:hyperlink element. ID is the opaque relationship
// id (r:id) that resolves to a target URL or bookmark through the part's
// relationships file; it carries no meaning on its own.
type Hyperlink struct {
	ID      string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
	Anchor  string `xml:"anchor,attr,omitempty"`
	History string `xml:"history,attr,omitempty"`
	Runs    []Run  `xml:"r"`
}

func (h Hyperlink) isParagraphContent() {}

// MarshalXML re-emits the hyperlink with its relationship-id attribute
// namespaced the way OOXML readers expect (r:id, not a bare id).
func (h Hyperlink) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Name = xml.Name{Local: "w:hyperlink"}
	start.Attr = nil

	if h.ID != "" {
		start.Attr = append(start.Attr, xml.Attr{
			Name:  xml.Name{Space: "http://schemas.openxmlformats.org/officeDocument/2006/relationships", Local: "id"},
			Value: h.ID,
		})
	}
	if h.Anchor != "" {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "w:anchor"}, Value: h.Anchor})
	}
	if h.History != "" {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "w:history"}, Value: h.History})
	}

	if err := e.EncodeToken(start); err != nil {
		return err
	}

	for _, run := range h.Runs {
		if err := e.EncodeElement(&run, xml.StartElement{Name: xml.Name{Local: "w:r"}}); err != nil {
			return err
		}
	}

	return e.EncodeToken(xml.EndElement{Name: start.Name})
}

// GetText returns the concatenated visible text of a hyperlink's runs.
func (h *Hyperlink) GetText() string {
	var texts []string
	for _, run := range h.Runs {
		if text := run.GetText(); text != "" {
			texts = append(texts, text)
		}
	}
	return strings.Join(texts, "")
}

// IsExternal reports whether the hyperlink carries a relationship id,
// meaning its target is resolved externally through the part's
// relationships file rather than an in-document bookmark anchor.
func (h *Hyperlink) IsExternal() bool {
	return h.ID != ""
}
