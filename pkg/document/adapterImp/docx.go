package adapterImp

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"unicode/utf8"

	"formassist/entities"
	"formassist/pkg/document/adapter"
)

const (
	docxMain   = "word/document.xml"
	wordNS     = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	wordNSISO  = "http://purl.oclc.org/ooxml/wordprocessingml/main"
	markupComp = "http://schemas.openxmlformats.org/markup-compatibility/2006"
)

type docx struct{}

// NewDOCX returns the word-processing package adapter. Only the main document
// part is read or rewritten; every other part is copied as stored.
func NewDOCX() adapter.Adapter { return docx{} }

func (docx) Format() string { return adapter.FormatDOCX }

func (docx) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
}

// textRun is one w:t element; offsets index into document.xml and the
// paragraph's decoded text.
type textRun struct {
	tagStart     int
	contentStart int
	contentEnd   int
	textStart    int
	textEnd      int
	text         string
	preserve     bool
	selfClosing  bool
}

type paragraph struct {
	block       entities.TextBlock
	start       int
	end         int
	endTagStart int
	prefix      string
	selfClosing bool
	runs        []textRun
	text        strings.Builder
}

func (docx) Parse(doc []byte) ([]entities.TextBlock, error) {
	_, paras, err := readDocx(doc)
	if err != nil {
		return nil, err
	}
	return blocksOf(paras), nil
}

func (docx) Serialize(original []byte, blocks []entities.TextBlock) ([]byte, error) {
	zr, paras, err := readDocx(original)
	if err != nil {
		return nil, err
	}
	changed, err := adapter.ChangedBlocks(blocksOf(paras), blocks)
	if err != nil {
		return nil, err
	}
	if len(changed) == 0 {
		return bytes.Clone(original), nil
	}
	main, err := readPart(zr, docxMain)
	if err != nil {
		return nil, err
	}
	patched := splice(main, paras, changed)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	if zr.Comment != "" {
		if err := zw.SetComment(zr.Comment); err != nil {
			return nil, err
		}
	}
	for _, f := range zr.File {
		if f.Name != docxMain {
			if err := zw.Copy(f); err != nil {
				return nil, fmt.Errorf("copy %s: %w", f.Name, err)
			}
			continue
		}
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     f.Name,
			Method:   f.Method,
			Modified: f.Modified,
			Comment:  f.Comment,
		})
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(patched); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func readDocx(doc []byte) (*zip.Reader, []*paragraph, error) {
	zr, err := zip.NewReader(bytes.NewReader(doc), int64(len(doc)))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: not a zip package: %v", entities.ErrMalformedDocument, err)
	}
	main, err := readPart(zr, docxMain)
	if err != nil {
		return nil, nil, err
	}
	paras, err := scanParagraphs(main)
	if err != nil {
		return nil, nil, err
	}
	return zr, paras, nil
}

func readPart(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: open %s: %v", entities.ErrMalformedDocument, name, err)
		}
		defer rc.Close()
		b, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %v", entities.ErrMalformedDocument, name, err)
		}
		return b, nil
	}
	return nil, fmt.Errorf("%w: missing part %s", entities.ErrMalformedDocument, name)
}

func blocksOf(paras []*paragraph) []entities.TextBlock {
	out := make([]entities.TextBlock, len(paras))
	for i, p := range paras {
		out[i] = p.block
	}
	return out
}

func isWord(n xml.Name) bool { return n.Space == wordNS || n.Space == wordNSISO }

// scanParagraphs walks document.xml once. Paragraphs get their index when
// they open, so a paragraph inside a text box follows its host paragraph.
// mc:Fallback content repeats mc:Choice content and is skipped.
func scanParagraphs(b []byte) ([]*paragraph, error) {
	dec := xml.NewDecoder(bytes.NewReader(b))
	var (
		paras    []*paragraph
		stack    []*paragraph
		cur      *textRun
		tcDepth  int
		pPrDepth int
		fallback int
	)
	top := func() *paragraph {
		if len(stack) == 0 {
			return nil
		}
		return stack[len(stack)-1]
	}
	for {
		off := int(dec.InputOffset())
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", entities.ErrMalformedDocument, docxMain, err)
		}
		after := int(dec.InputOffset())

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Space == markupComp && t.Name.Local == "Fallback" {
				fallback++
				continue
			}
			if fallback > 0 || !isWord(t.Name) {
				continue
			}
			switch t.Name.Local {
			case "p":
				p := &paragraph{start: off, prefix: tagPrefix(b[off:after])}
				p.block = entities.TextBlock{Index: len(paras), Kind: entities.KindParagraph}
				if tcDepth > 0 {
					p.block.Kind = entities.KindTableCell
				}
				paras = append(paras, p)
				stack = append(stack, p)
			case "tc":
				tcDepth++
			case "pPr":
				pPrDepth++
			case "pStyle":
				if p := top(); p != nil && p.block.Kind == entities.KindParagraph && isHeadingStyle(attr(t, "val")) {
					p.block.Kind = entities.KindHeading
				}
			case "t":
				if p := top(); p != nil {
					cur = &textRun{tagStart: off, contentStart: after, textStart: p.text.Len(), preserve: attr(t, "space") != ""}
				}
			case "tab":
				if p := top(); p != nil && pPrDepth == 0 && cur == nil {
					p.text.WriteByte('\t')
				}
			case "br", "cr":
				if p := top(); p != nil && cur == nil {
					p.text.WriteByte('\n')
				}
			}
		case xml.EndElement:
			if t.Name.Space == markupComp && t.Name.Local == "Fallback" {
				fallback--
				continue
			}
			if fallback > 0 || !isWord(t.Name) {
				continue
			}
			switch t.Name.Local {
			case "p":
				if p := top(); p != nil {
					stack = stack[:len(stack)-1]
					p.endTagStart, p.end = off, after
					p.selfClosing = off == after
					if p.selfClosing {
						p.endTagStart = p.start
					}
					p.block.Content = p.text.String()
				}
			case "tc":
				tcDepth--
			case "pPr":
				pPrDepth--
			case "t":
				if p := top(); p != nil && cur != nil {
					cur.contentEnd = off
					cur.selfClosing = off == after && cur.contentStart == off
					cur.textEnd = p.text.Len()
					cur.text = p.text.String()[cur.textStart:cur.textEnd]
					p.runs = append(p.runs, *cur)
				}
				cur = nil
			}
		case xml.CharData:
			if p := top(); p != nil && cur != nil {
				p.text.Write(t)
			}
		}
	}
	if len(stack) != 0 {
		return nil, fmt.Errorf("%w: unterminated paragraph", entities.ErrMalformedDocument)
	}
	return paras, nil
}

func attr(se xml.StartElement, local string) string {
	for _, a := range se.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

func isHeadingStyle(style string) bool {
	s := strings.ToLower(style)
	return strings.HasPrefix(s, "heading") || s == "title" || s == "subtitle"
}

// tagPrefix returns "w" for "<w:p ...>" and "" for an unprefixed tag.
func tagPrefix(raw []byte) string {
	s := strings.TrimPrefix(string(raw), "<")
	end := strings.IndexAny(s, " \t\r\n/>")
	if end < 0 {
		end = len(s)
	}
	name := s[:end]
	if i := strings.IndexByte(name, ':'); i >= 0 {
		return name[:i]
	}
	return ""
}

type edit struct {
	start, end int
	text       string
}

// splice rewrites only the text runs of changed paragraphs. A pure insertion
// lands in the run that owns that position; anything else moves the whole
// new text into the first run and empties the others.
func splice(b []byte, paras []*paragraph, changed map[int]string) []byte {
	var edits []edit
	for idx, content := range changed {
		edits = append(edits, paragraphEdits(b, paras[idx], content)...)
	}
	sort.SliceStable(edits, func(i, j int) bool { return edits[i].start < edits[j].start })

	var out bytes.Buffer
	out.Grow(len(b) + 256)
	pos := 0
	for _, e := range edits {
		out.Write(b[pos:e.start])
		out.WriteString(e.text)
		pos = e.end
	}
	out.Write(b[pos:])
	return out.Bytes()
}

func paragraphEdits(b []byte, p *paragraph, content string) []edit {
	old := p.block.Content
	runs := make([]textRun, 0, len(p.runs))
	for _, r := range p.runs {
		if !r.selfClosing {
			runs = append(runs, r)
		}
	}
	if len(runs) == 0 {
		text := content
		if strings.HasPrefix(content, old) {
			text = content[len(old):]
		}
		return []edit{newRunEdit(b, p, text)}
	}

	at, inserted, ok := insertion(old, content)
	if ok {
		r, i := ownerRun(runs, at)
		var edits []edit
		edits = appendPreserve(edits, b, r)
		switch {
		case i == r.textEnd:
			edits = append(edits, edit{r.contentEnd, r.contentEnd, escape(inserted)})
		case i == r.textStart:
			edits = append(edits, edit{r.contentStart, r.contentStart, escape(inserted)})
		default:
			k := i - r.textStart
			edits = append(edits, edit{r.contentStart, r.contentEnd, escape(r.text[:k] + inserted + r.text[k:])})
		}
		return edits
	}

	var edits []edit
	for i, r := range runs {
		text := ""
		if i == 0 {
			text = content
			edits = appendPreserve(edits, b, r)
		}
		edits = append(edits, edit{r.contentStart, r.contentEnd, escape(text)})
	}
	return edits
}

// insertion reports whether updated equals old with one string inserted, and
// where.
func insertion(old, updated string) (int, string, bool) {
	if len(updated) < len(old) {
		return 0, "", false
	}
	pre := 0
	for pre < len(old) && old[pre] == updated[pre] {
		pre++
	}
	for pre > 0 && pre < len(old) && !utf8.RuneStart(old[pre]) {
		pre--
	}
	suf := 0
	for suf < len(old)-pre && old[len(old)-1-suf] == updated[len(updated)-1-suf] {
		suf++
	}
	if pre+suf != len(old) {
		return 0, "", false
	}
	return pre, updated[pre : len(updated)-suf], true
}

// ownerRun picks the run that should receive text inserted at text offset at,
// returning the run and the clamped offset inside it.
func ownerRun(runs []textRun, at int) (textRun, int) {
	for _, r := range runs {
		if at >= r.textStart && at <= r.textEnd {
			return r, at
		}
	}
	best := runs[0]
	for _, r := range runs {
		if r.textEnd <= at {
			best = r
		}
	}
	if best.textEnd <= at {
		return best, best.textEnd
	}
	return best, best.textStart
}

func appendPreserve(edits []edit, b []byte, r textRun) []edit {
	if r.preserve || r.contentStart == 0 || b[r.contentStart-1] != '>' {
		return edits
	}
	return append(edits, edit{r.contentStart - 1, r.contentStart - 1, ` xml:space="preserve"`})
}

func newRunEdit(b []byte, p *paragraph, text string) edit {
	pre := ""
	if p.prefix != "" {
		pre = p.prefix + ":"
	}
	run := fmt.Sprintf(`<%sr><%st xml:space="preserve">%s</%st></%sr>`, pre, pre, escape(text), pre, pre)
	if p.selfClosing {
		open := strings.TrimSpace(string(b[p.start:p.end]))
		open = strings.TrimSpace(strings.TrimSuffix(open, "/>")) + ">"
		return edit{p.start, p.end, open + run + "</" + pre + "p>"}
	}
	return edit{p.endTagStart, p.endTagStart, run}
}

func escape(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
