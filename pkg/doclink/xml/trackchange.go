package xml

import (
	"encoding/xml"
	"io"
	"strings"
)

// Ins represents a w:ins tracked insertion wrapping one or more runs.
type Ins struct {
	ID     string `xml:"id,attr"`
	Author string `xml:"author,attr"`
	Date   string `xml:"date,attr"`
	Runs   []Run  `xml:"r"`
}

func (i Ins) isParagraphContent() {}

func (i Ins) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Name = xml.Name{Local: "w:ins"}
	start.Attr = revisionAttrs(i.ID, i.Author, i.Date)

	if err := e.EncodeToken(start); err != nil {
		return err
	}
	for _, run := range i.Runs {
		if err := e.EncodeElement(&run, xml.StartElement{Name: xml.Name{Local: "w:r"}}); err != nil {
			return err
		}
	}
	return e.EncodeToken(xml.EndElement{Name: start.Name})
}

// GetText returns the visible text of the inserted runs.
func (i *Ins) GetText() string {
	var sb strings.Builder
	for _, run := range i.Runs {
		sb.WriteString(run.GetText())
	}
	return sb.String()
}

// Del represents a w:del tracked deletion. The wrapped runs' text is
// emitted as w:delText, which is how OOXML distinguishes deleted content
// from live content; a deleted run contributes nothing to the visible text.
type Del struct {
	ID     string `xml:"id,attr"`
	Author string `xml:"author,attr"`
	Date   string `xml:"date,attr"`
	Runs   []Run  `xml:"r"`
}

func (d Del) isParagraphContent() {}

func (d Del) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Name = xml.Name{Local: "w:del"}
	start.Attr = revisionAttrs(d.ID, d.Author, d.Date)

	if err := e.EncodeToken(start); err != nil {
		return err
	}

	for _, run := range d.Runs {
		runStart := xml.StartElement{Name: xml.Name{Local: "w:r"}}
		if err := e.EncodeToken(runStart); err != nil {
			return err
		}
		if run.Properties != nil {
			if err := e.EncodeElement(run.Properties, xml.StartElement{Name: xml.Name{Local: "w:rPr"}}); err != nil {
				return err
			}
		}
		if run.Text != nil {
			delStart := xml.StartElement{Name: xml.Name{Local: "w:delText"}}
			if run.Text.Space == "preserve" {
				delStart.Attr = append(delStart.Attr, xml.Attr{
					Name:  xml.Name{Space: "http://www.w3.org/XML/1998/namespace", Local: "space"},
					Value: "preserve",
				})
			}
			if err := e.EncodeElement(run.Text.Content, delStart); err != nil {
				return err
			}
		}
		if err := e.EncodeToken(xml.EndElement{Name: runStart.Name}); err != nil {
			return err
		}
	}

	return e.EncodeToken(xml.EndElement{Name: start.Name})
}

func revisionAttrs(id, author, date string) []xml.Attr {
	var attrs []xml.Attr
	if id != "" {
		attrs = append(attrs, xml.Attr{Name: xml.Name{Local: "w:id"}, Value: id})
	}
	if author != "" {
		attrs = append(attrs, xml.Attr{Name: xml.Name{Local: "w:author"}, Value: author})
	}
	if date != "" {
		attrs = append(attrs, xml.Attr{Name: xml.Name{Local: "w:date"}, Value: date})
	}
	return attrs
}

// decodeRevisionWrapper decodes a w:ins or w:del element's attributes and
// child runs. Deleted runs arrive with w:delText children, which the run
// decoder does not recognize, so text is recovered here token by token.
func decodeRevisionWrapper(d *xml.Decoder, start xml.StartElement) (id, author, date string, runs []Run, err error) {
	for _, attr := range start.Attr {
		switch attr.Name.Local {
		case "id":
			id = attr.Value
		case "author":
			author = attr.Value
		case "date":
			date = attr.Value
		}
	}

	for {
		token, tokErr := d.Token()
		if tokErr == io.EOF {
			break
		}
		if tokErr != nil {
			return "", "", "", nil, tokErr
		}

		switch t := token.(type) {
		case xml.StartElement:
			if t.Name.Local == "r" {
				run, runErr := decodeRevisionRun(d, t)
				if runErr != nil {
					return "", "", "", nil, runErr
				}
				runs = append(runs, run)
			} else if skipErr := d.Skip(); skipErr != nil {
				return "", "", "", nil, skipErr
			}
		case xml.EndElement:
			if t.Name.Local == start.Name.Local {
				return id, author, date, runs, nil
			}
		}
	}

	return id, author, date, runs, nil
}

func decodeRevisionRun(d *xml.Decoder, start xml.StartElement) (Run, error) {
	var run Run
	for {
		token, err := d.Token()
		if err != nil {
			return run, err
		}

		switch t := token.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "rPr":
				var props RunProperties
				if err := d.DecodeElement(&props, &t); err != nil {
					return run, err
				}
				run.Properties = &props
			case "t", "delText":
				// Text pins its element name to w:t, so decode into an
				// unnamed shape that accepts w:delText as well.
				var text struct {
					Space   string `xml:"space,attr"`
					Content string `xml:",chardata"`
				}
				if err := d.DecodeElement(&text, &t); err != nil {
					return run, err
				}
				run.Text = &Text{Space: text.Space, Content: text.Content}
			default:
				if err := d.Skip(); err != nil {
					return run, err
				}
			}
		case xml.EndElement:
			if t.Name.Local == "r" {
				return run, nil
			}
		}
	}
}
