package adapterImp

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"formassist/entities"
	"formassist/pkg/document/adapter"
)

const htmlBlockSelector = "h1,h2,h3,h4,h5,h6,p,li,td,th,dt,dd,caption"

var htmlBlockTags = map[string]bool{
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"p": true, "li": true, "td": true, "th": true, "dt": true, "dd": true, "caption": true,
}

type htmlDoc struct{}

// htmlBlock is a block element and the text nodes it owns: those not inside
// a nested block element.
type htmlBlock struct {
	sel   *goquery.Selection
	texts []*html.Node
}

func (b htmlBlock) text() string {
	var sb strings.Builder
	for _, n := range b.texts {
		sb.WriteString(n.Data)
	}
	return sb.String()
}

// NewHTML returns the adapter for HTML forms. Every block element is a block
// holding its own text; text of nested block elements belongs to those.
// A container whose own text is blank (a cell wrapping a paragraph) yields
// no block.
func NewHTML() adapter.Adapter { return htmlDoc{} }

func (htmlDoc) Format() string { return adapter.FormatHTML }

func (htmlDoc) ContentType() string { return "text/html; charset=utf-8" }

func (htmlDoc) Parse(doc []byte) ([]entities.TextBlock, error) {
	_, blocks, err := loadHTML(doc)
	if err != nil {
		return nil, err
	}
	return htmlBlocksOf(blocks), nil
}

func (htmlDoc) Serialize(original []byte, blocks []entities.TextBlock) ([]byte, error) {
	doc, hb, err := loadHTML(original)
	if err != nil {
		return nil, err
	}
	changed, err := adapter.ChangedBlocks(htmlBlocksOf(hb), blocks)
	if err != nil {
		return nil, err
	}
	if len(changed) == 0 {
		return bytes.Clone(original), nil
	}
	for idx, content := range changed {
		rewriteText(hb[idx], content)
	}
	out, err := doc.Html()
	if err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}
	return []byte(out), nil
}

func loadHTML(b []byte) (*goquery.Document, []htmlBlock, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(b))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", entities.ErrMalformedDocument, err)
	}
	var blocks []htmlBlock
	doc.Find(htmlBlockSelector).Each(func(_ int, s *goquery.Selection) {
		hb := htmlBlock{sel: s}
		var walk func(n *html.Node)
		walk = func(n *html.Node) {
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				switch {
				case c.Type == html.TextNode:
					hb.texts = append(hb.texts, c)
				case c.Type == html.ElementNode && htmlBlockTags[c.Data]:
				default:
					walk(c)
				}
			}
		}
		walk(s.Get(0))
		nested := s.Find(htmlBlockSelector).Length() > 0
		if nested && strings.TrimSpace(hb.text()) == "" {
			return
		}
		blocks = append(blocks, hb)
	})
	return doc, blocks, nil
}

func htmlBlocksOf(blocks []htmlBlock) []entities.TextBlock {
	out := make([]entities.TextBlock, len(blocks))
	for i, b := range blocks {
		out[i] = entities.TextBlock{Index: i, Content: b.text(), Kind: htmlKind(b.sel)}
	}
	return out
}

func htmlKind(s *goquery.Selection) entities.BlockKind {
	name := goquery.NodeName(s)
	switch {
	case len(name) == 2 && name[0] == 'h' && name[1] >= '1' && name[1] <= '6':
		return entities.KindHeading
	case name == "td" || name == "th" || s.ParentsFiltered("td,th").Length() > 0:
		return entities.KindTableCell
	default:
		return entities.KindParagraph
	}
}

// rewriteText edits the block's own text nodes in place so inline markup
// around the question and nested blocks survive an inserted answer.
func rewriteText(b htmlBlock, content string) {
	texts := b.texts
	if len(texts) == 0 {
		b.sel.SetText(content)
		return
	}

	if at, inserted, ok := insertion(b.text(), content); ok {
		pos := 0
		for i, n := range texts {
			end := pos + len(n.Data)
			if at <= end || i == len(texts)-1 {
				k := min(max(at-pos, 0), len(n.Data))
				n.Data = n.Data[:k] + inserted + n.Data[k:]
				return
			}
			pos = end
		}
	}
	texts[0].Data = content
	for _, n := range texts[1:] {
		n.Data = ""
	}
}
