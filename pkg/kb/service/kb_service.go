package service

import "formassist/entities"

// KnowledgeBase is read-only after construction and safe for concurrent use.
type KnowledgeBase interface {
	Lookup(normalizedQuestion string) (entities.Match, bool)
	Search(query string, k int) []entities.Match
	Entries() []entities.KnowledgeEntry
	Len() int
}
