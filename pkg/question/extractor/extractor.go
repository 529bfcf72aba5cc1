package extractor

import (
	"strings"

	"formassist/entities"
	"formassist/pkg/textnorm"
)

const DefaultMinChars = 2

type Options struct {
	// MinChars is the least number of letters/digits a question must carry;
	// anything shorter is treated as punctuation noise.
	MinChars int
}

// Extract returns the blocks that read as questions, in block order.
// Rhetorical statements ending in "?" are accepted; the resolver's
// confidence filters them downstream.
func Extract(blocks []entities.TextBlock, opts Options) []entities.Question {
	minChars := opts.MinChars
	if minChars <= 0 {
		minChars = DefaultMinChars
	}
	out := make([]entities.Question, 0)
	for _, b := range blocks {
		raw := strings.TrimSpace(b.Content)
		if !IsQuestion(raw, minChars) {
			continue
		}
		out = append(out, entities.Question{
			SourceBlockIndex: b.Index,
			RawText:          raw,
			NormalizedText:   textnorm.Normalize(raw),
		})
	}
	return out
}

func IsQuestion(trimmed string, minChars int) bool {
	if !strings.HasSuffix(trimmed, "?") && !strings.HasSuffix(trimmed, "？") {
		return false
	}
	return textnorm.CountAlnum(trimmed) >= minChars
}
