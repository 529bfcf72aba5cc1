package serviceImp

import (
	"fmt"
	"sort"
	"strings"

	"formassist/entities"
	"formassist/pkg/textnorm"
)

const (
	DefaultThreshold = 1.0
	// partial hits never reach a full score, so the default threshold only
	// accepts a complete phrase.
	partialWeight = 0.9
)

type phrase struct {
	tokens []string
}

type entry struct {
	src     entities.KnowledgeEntry
	phrases []phrase
}

type Svc struct {
	entries   []entry
	threshold float64
}

// New validates the entries and freezes them. Threshold values outside (0,1]
// fall back to DefaultThreshold.
func New(entries []entities.KnowledgeEntry, threshold float64) (*Svc, error) {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	s := &Svc{entries: make([]entry, 0, len(entries)), threshold: threshold}
	seen := map[string]int{}
	for i, e := range entries {
		field := strings.TrimSpace(e.CanonicalField)
		if field == "" {
			return nil, fmt.Errorf("%w: entry %d has an empty canonical field", entities.ErrInvalidKnowledgeBase, i)
		}
		key := textnorm.Normalize(field)
		if prev, dup := seen[key]; dup {
			return nil, fmt.Errorf("%w: canonical field %q declared at %d and %d", entities.ErrInvalidKnowledgeBase, field, prev, i)
		}
		seen[key] = i
		if strings.TrimSpace(e.Value) == "" {
			return nil, fmt.Errorf("%w: field %q has an empty value", entities.ErrInvalidKnowledgeBase, field)
		}

		frozen := entities.KnowledgeEntry{CanonicalField: field, Value: e.Value, Aliases: append([]string(nil), e.Aliases...)}
		en := entry{src: frozen}
		for _, p := range append([]string{field}, e.Aliases...) {
			toks := textnorm.Tokens(p)
			if len(toks) == 0 {
				continue
			}
			en.phrases = append(en.phrases, phrase{tokens: toks})
		}
		if len(en.phrases) == 0 {
			return nil, fmt.Errorf("%w: field %q has no matchable phrase", entities.ErrInvalidKnowledgeBase, field)
		}
		s.entries = append(s.entries, en)
	}
	return s, nil
}

func (s *Svc) Len() int { return len(s.entries) }

func (s *Svc) Threshold() float64 { return s.threshold }

func (s *Svc) Entries() []entities.KnowledgeEntry {
	out := make([]entities.KnowledgeEntry, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.src
		out[i].Aliases = append([]string(nil), e.src.Aliases...)
	}
	return out
}

// Lookup returns the best entry whose score reaches the threshold. Equal
// scores keep the earlier entry.
func (s *Svc) Lookup(normalizedQuestion string) (entities.Match, bool) {
	q := textnorm.Tokens(normalizedQuestion)
	if len(q) == 0 {
		return entities.Match{}, false
	}
	best, bestScore := -1, 0.0
	for i := range s.entries {
		if sc := s.entries[i].score(q); sc > bestScore {
			best, bestScore = i, sc
		}
	}
	if best < 0 || bestScore < s.threshold {
		return entities.Match{}, false
	}
	e := s.entries[best].src
	return entities.Match{Field: e.CanonicalField, Value: e.Value, Confidence: bestScore}, true
}

// Search ranks every entry against free text regardless of the threshold.
func (s *Svc) Search(query string, k int) []entities.Match {
	q := textnorm.Tokens(query)
	if len(q) == 0 || k <= 0 {
		return nil
	}
	scored := make([]entities.Match, 0, len(s.entries))
	for i := range s.entries {
		sc := s.entries[i].score(q)
		if sc == 0 {
			continue
		}
		e := s.entries[i].src
		scored = append(scored, entities.Match{Field: e.CanonicalField, Value: e.Value, Confidence: sc})
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Confidence > scored[j].Confidence })
	if k > len(scored) {
		k = len(scored)
	}
	return scored[:k]
}

func (e *entry) score(q []string) float64 {
	best := 0.0
	for _, p := range e.phrases {
		if sc := phraseScore(p.tokens, q); sc > best {
			best = sc
		}
	}
	return best
}

// phraseScore is 1 when the phrase occurs as a contiguous token run in the
// question and partialWeight*coverage otherwise.
func phraseScore(p, q []string) float64 {
	if containsRun(q, p) {
		return 1
	}
	set := make(map[string]struct{}, len(q))
	for _, t := range q {
		set[t] = struct{}{}
	}
	hit := 0
	for _, t := range p {
		if _, ok := set[t]; ok {
			hit++
		}
	}
	return partialWeight * float64(hit) / float64(len(p))
}

func containsRun(hay, needle []string) bool {
	if len(needle) == 0 || len(needle) > len(hay) {
		return false
	}
outer:
	for i := 0; i+len(needle) <= len(hay); i++ {
		for j := range needle {
			if hay[i+j] != needle[j] {
				continue outer
			}
		}
		return true
	}
	return false
}
