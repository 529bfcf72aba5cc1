package entities

type BlockKind string

const (
	KindParagraph BlockKind = "paragraph"
	KindTableCell BlockKind = "table-cell"
	KindHeading   BlockKind = "heading"
)

// TextBlock is one addressable unit of document text. Index is the zero-based
// position in document order and stays stable through annotate/serialize.
type TextBlock struct {
	Index   int       `json:"index"`
	Content string    `json:"content"`
	Kind    BlockKind `json:"kind"`
}

// CloneBlocks returns a copy that can be rewritten without touching the input.
func CloneBlocks(in []TextBlock) []TextBlock {
	out := make([]TextBlock, len(in))
	copy(out, in)
	return out
}
