// Package adapter defines the boundary between the pipeline and a concrete
// document format. Implementations live in adapterImp.
package adapter

import (
	"archive/zip"
	"bytes"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"formassist/entities"
)

const (
	FormatDOCX = "docx"
	FormatXLSX = "xlsx"
	FormatHTML = "html"
)

// Adapter parses a document into ordered text blocks and writes blocks back.
// Serialize must only change the text of blocks whose content differs from
// the original parse; with no such block it returns the original bytes.
type Adapter interface {
	Format() string
	ContentType() string
	Parse(doc []byte) ([]entities.TextBlock, error)
	Serialize(original []byte, blocks []entities.TextBlock) ([]byte, error)
}

type Registry struct {
	byFormat map[string]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{byFormat: map[string]Adapter{}}
	for _, a := range adapters {
		r.byFormat[a.Format()] = a
	}
	return r
}

func (r *Registry) Formats() []string {
	out := make([]string, 0, len(r.byFormat))
	for f := range r.byFormat {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) Get(format string) (Adapter, error) {
	a, ok := r.byFormat[strings.ToLower(strings.TrimPrefix(format, "."))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", entities.ErrUnsupportedFormat, format)
	}
	return a, nil
}

// Resolve picks an adapter: an explicit format wins, then content sniffing,
// then the filename extension.
func (r *Registry) Resolve(format, filename string, data []byte) (Adapter, error) {
	if format != "" {
		return r.Get(format)
	}
	if f := Detect(data); f != "" {
		return r.Get(f)
	}
	if ext := filepath.Ext(filename); ext != "" {
		if ext == ".htm" {
			ext = ".html"
		}
		return r.Get(ext)
	}
	return nil, fmt.Errorf("%w: cannot detect format of %q", entities.ErrUnsupportedFormat, filename)
}

// Detect sniffs the format from content. It returns "" when unsure.
func Detect(data []byte) string {
	if bytes.HasPrefix(data, []byte("PK\x03\x04")) {
		zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			return ""
		}
		for _, f := range zr.File {
			switch f.Name {
			case "word/document.xml":
				return FormatDOCX
			case "xl/workbook.xml":
				return FormatXLSX
			}
		}
		return ""
	}
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	lower := strings.ToLower(string(bytes.TrimSpace(head)))
	for _, marker := range []string{"<!doctype html", "<html", "<body", "<p", "<table", "<h1", "<div"} {
		if strings.HasPrefix(lower, marker) {
			return FormatHTML
		}
	}
	return ""
}

// ChangedBlocks compares updated blocks against a fresh parse of the
// original and returns the new content keyed by index.
func ChangedBlocks(parsed, updated []entities.TextBlock) (map[int]string, error) {
	changed := map[int]string{}
	for _, b := range updated {
		if b.Index < 0 || b.Index >= len(parsed) {
			return nil, fmt.Errorf("%w: %d (document has %d blocks)", entities.ErrBlockIndex, b.Index, len(parsed))
		}
		if parsed[b.Index].Content != b.Content {
			changed[b.Index] = b.Content
		}
	}
	return changed, nil
}
