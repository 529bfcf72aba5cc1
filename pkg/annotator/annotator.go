// Package annotator writes resolved answers back into text blocks.
package annotator

import (
	"strings"

	"formassist/entities"
)

const DefaultSeparator = " "

type Options struct {
	Separator string
}

// Annotate returns a copy of blocks where every answered question's block
// gets the answer appended right after the question text. Order and indices
// are unchanged and unanswered blocks are untouched. Running it again on its
// own output changes nothing.
func Annotate(blocks []entities.TextBlock, results []entities.ResolutionResult, opts Options) []entities.TextBlock {
	sep := opts.Separator
	if sep == "" {
		sep = DefaultSeparator
	}
	out := entities.CloneBlocks(blocks)
	pos := make(map[int]int, len(out))
	for i, b := range out {
		pos[b.Index] = i
	}
	for _, r := range results {
		if !r.Resolved() {
			continue
		}
		i, ok := pos[r.Question.SourceBlockIndex]
		if !ok {
			continue
		}
		out[i].Content = insertAnswer(out[i].Content, r.Question.RawText, sep+*r.Answer)
	}
	return out
}

func insertAnswer(content, question, addition string) string {
	at := strings.LastIndex(content, question)
	if at < 0 {
		if strings.Contains(content, addition) {
			return content
		}
		return content + addition
	}
	end := at + len(question)
	if strings.HasPrefix(content[end:], addition) {
		return content
	}
	return content[:end] + addition + content[end:]
}
