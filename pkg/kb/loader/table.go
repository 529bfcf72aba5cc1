package loader

import (
	"fmt"
	"strings"

	"formassist/entities"
)

// normHeader folds header cells so "Canonical Field", "canonical_field" and
// "canonical-field" are the same column.
func normHeader(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "\uFEFF")
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "-", "")
	s = strings.ReplaceAll(s, "_", "")
	return s
}

func fromTable(rows [][]string) ([]entities.KnowledgeEntry, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: table is empty", entities.ErrInvalidKnowledgeBase)
	}
	head := rows[0]
	hmap := map[string]int{}
	for i, h := range head {
		hmap[normHeader(h)] = i
	}
	findAny := func(keys ...string) int {
		for _, k := range keys {
			if idx, ok := hmap[normHeader(k)]; ok {
				return idx
			}
		}
		return -1
	}

	cField := findAny("canonical_field", "field", "name", "question")
	cAlias := findAny("aliases", "alias", "synonyms", "phrases")
	cValue := findAny("value", "answer")
	if cField == -1 || cValue == -1 {
		return nil, fmt.Errorf("%w: missing required columns, found headers %v, need at least field and value", entities.ErrInvalidKnowledgeBase, head)
	}

	var out []entities.KnowledgeEntry
	for _, rec := range rows[1:] {
		get := func(idx int) string {
			if idx < 0 || idx >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[idx])
		}
		field := get(cField)
		if field == "" && get(cValue) == "" {
			continue
		}
		out = append(out, entities.KnowledgeEntry{
			CanonicalField: field,
			Aliases:        splitAliases(get(cAlias)),
			Value:          get(cValue),
		})
	}
	return out, nil
}

func splitAliases(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ';' || r == '|' })
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
