// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gaply/gaply-worker/pkg/types"
)

// Document is a paper's structured content: header metadata plus
// paragraphs in reading order, abstract first.
type Document struct {
	Paper      types.Paper
	Paragraphs []Paragraph
}

// Paragraph is one paragraph of paper text with its position.
type Paragraph struct {
	Section   types.Section
	Page      int
	Index     int
	Sentences []string
}

// teiPara captures a TEI <p> element. The custom unmarshaller flattens
// nested markup (refs, formulas) into plain text, which xml.Unmarshal's
// chardata mapping would drop.
type teiPara struct {
	Coords string
	Text   string
}

func (p *teiPara) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for _, attr := range start.Attr {
		if attr.Name.Local == "coords" {
			p.Coords = attr.Value
		}
	}
	var sb strings.Builder
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.CharData:
			sb.Write(t)
		case xml.EndElement:
			if t.Name == start.Name {
				p.Text = collapseSpace(sb.String())
				return nil
			}
		}
	}
}

type teiAuthor struct {
	Forenames []string `xml:"persName>forename"`
	Surname   string   `xml:"persName>surname"`
}

type teiIDNO struct {
	Type  string `xml:"type,attr"`
	Value string `xml:",chardata"`
}

type teiDoc struct {
	XMLName xml.Name `xml:"TEI"`
	Header  struct {
		Title   string      `xml:"fileDesc>titleStmt>title"`
		Authors []teiAuthor `xml:"fileDesc>sourceDesc>biblStruct>analytic>author"`
		IDNOs   []teiIDNO   `xml:"fileDesc>sourceDesc>biblStruct>idno"`
		Date    struct {
			When string `xml:"when,attr"`
		} `xml:"fileDesc>sourceDesc>biblStruct>monogr>imprint>date"`
		Abstract struct {
			DivParas []teiPara `xml:"div>p"`
			Paras    []teiPara `xml:"p"`
		} `xml:"profileDesc>abstract"`
	} `xml:"teiHeader"`
	Body struct {
		Divs []struct {
			Paras []teiPara `xml:"p"`
		} `xml:"div"`
	} `xml:"text>body"`
}

// ParseTEI parses GROBID TEI XML into a Document. Paragraph indices are
// assigned across the whole paper in reading order so chunk ids derived
// from them are deterministic for a given TEI input.
func ParseTEI(data []byte) (Document, error) {
	var tei teiDoc
	if err := xml.Unmarshal(data, &tei); err != nil {
		return Document{}, fmt.Errorf("%w: parsing TEI: %v", types.ErrValidation, err)
	}

	doc := Document{
		Paper: types.Paper{
			Title: collapseSpace(tei.Header.Title),
		},
	}
	for _, a := range tei.Header.Authors {
		name := strings.TrimSpace(strings.Join(append(a.Forenames, a.Surname), " "))
		if name != "" {
			doc.Paper.Authors = append(doc.Paper.Authors, name)
		}
	}
	for _, id := range tei.Header.IDNOs {
		if strings.EqualFold(id.Type, "DOI") {
			doc.Paper.DOI = strings.TrimSpace(id.Value)
		}
	}
	if when := tei.Header.Date.When; when != "" {
		for _, layout := range []string{"2006-01-02", "2006-01", "2006"} {
			if t, err := time.Parse(layout, when); err == nil {
				doc.Paper.Date = t
				break
			}
		}
	}

	index := 0
	abstractParas := tei.Header.Abstract.DivParas
	if len(abstractParas) == 0 {
		abstractParas = tei.Header.Abstract.Paras
	}
	var abstractText []string
	for _, p := range abstractParas {
		if p.Text == "" {
			continue
		}
		abstractText = append(abstractText, p.Text)
		doc.Paragraphs = append(doc.Paragraphs, Paragraph{
			Section:   types.SectionAbstract,
			Page:      coordsPage(p.Coords),
			Index:     index,
			Sentences: SplitSentences(p.Text),
		})
		index++
	}
	doc.Paper.Abstract = strings.Join(abstractText, " ")

	for _, div := range tei.Body.Divs {
		for _, p := range div.Paras {
			if p.Text == "" {
				continue
			}
			doc.Paragraphs = append(doc.Paragraphs, Paragraph{
				Section:   types.SectionBody,
				Page:      coordsPage(p.Coords),
				Index:     index,
				Sentences: SplitSentences(p.Text),
			})
			index++
		}
	}

	if len(doc.Paragraphs) == 0 {
		return Document{}, fmt.Errorf("%w: TEI contains no paragraph text", types.ErrValidation)
	}
	return doc, nil
}

// coordsPage reads the page number from a TEI coords attribute
// ("page,x,y,w,h;..."). Pages default to 1 when coordinates are absent.
func coordsPage(coords string) int {
	first, _, _ := strings.Cut(coords, ",")
	if page, err := strconv.Atoi(first); err == nil && page >= 1 {
		return page
	}
	return 1
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
