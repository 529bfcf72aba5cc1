// Package loader reads knowledge-base entries from a file. The order of
// records in the file is the declaration order used for tie-breaking.
package loader

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"formassist/entities"
)

type document struct {
	Entries []entities.KnowledgeEntry `json:"entries" yaml:"entries"`
}

// Load picks the decoder from the file extension.
func Load(path string) ([]entities.KnowledgeEntry, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(filepath.Ext(path), b)
}

func Decode(ext string, b []byte) ([]entities.KnowledgeEntry, error) {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "yaml", "yml":
		return decodeYAML(b)
	case "json":
		return decodeJSON(b)
	case "csv":
		return decodeCSV(bytes.NewReader(b))
	case "xlsx":
		return decodeXLSX(b)
	default:
		return nil, fmt.Errorf("%w: knowledge base format %q", entities.ErrUnsupportedFormat, ext)
	}
}

// YAML and JSON accept either a top-level list or {entries: [...]}.
func decodeYAML(b []byte) ([]entities.KnowledgeEntry, error) {
	var list []entities.KnowledgeEntry
	if err := yaml.Unmarshal(b, &list); err == nil {
		return list, nil
	}
	var doc document
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("%w: yaml: %v", entities.ErrInvalidKnowledgeBase, err)
	}
	return doc.Entries, nil
}

func decodeJSON(b []byte) ([]entities.KnowledgeEntry, error) {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []entities.KnowledgeEntry
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("%w: json: %v", entities.ErrInvalidKnowledgeBase, err)
		}
		return list, nil
	}
	var doc document
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, fmt.Errorf("%w: json: %v", entities.ErrInvalidKnowledgeBase, err)
	}
	return doc.Entries, nil
}

func decodeCSV(r io.Reader) ([]entities.KnowledgeEntry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	var rows [][]string
	for {
		rec, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("%w: csv: %v", entities.ErrInvalidKnowledgeBase, err)
		}
		rows = append(rows, rec)
	}
	return fromTable(rows)
}

// decodeXLSX reads the first sheet with the same header rules as CSV.
func decodeXLSX(b []byte) ([]entities.KnowledgeEntry, error) {
	x, err := excelize.OpenReader(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("%w: xlsx: %v", entities.ErrInvalidKnowledgeBase, err)
	}
	defer x.Close()
	sheets := x.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: xlsx has no sheets", entities.ErrInvalidKnowledgeBase)
	}
	rows, err := x.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: xlsx: %v", entities.ErrInvalidKnowledgeBase, err)
	}
	return fromTable(rows)
}
