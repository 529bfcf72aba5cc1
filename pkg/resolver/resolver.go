// Package resolver matches extracted questions against the knowledge base.
package resolver

import "formassist/entities"

// Matcher is the part of the knowledge base the resolver needs.
type Matcher interface {
	Lookup(normalizedQuestion string) (entities.Match, bool)
}

// Resolve returns exactly one result per question, in question order.
func Resolve(questions []entities.Question, kb Matcher) []entities.ResolutionResult {
	out := make([]entities.ResolutionResult, len(questions))
	for i, q := range questions {
		out[i] = entities.ResolutionResult{Question: q}
		if kb == nil {
			continue
		}
		m, ok := kb.Lookup(q.NormalizedText)
		if !ok {
			continue
		}
		field, value := m.Field, m.Value
		out[i].MatchedField = &field
		out[i].Answer = &value
		out[i].Confidence = m.Confidence
	}
	return out
}

// HumanAnswer builds the result for an answer a person supplied.
func HumanAnswer(q entities.Question, answer string) entities.ResolutionResult {
	a := answer
	return entities.ResolutionResult{Question: q, Answer: &a, Confidence: 1}
}

// Partition splits results into answered and unanswered, keeping order.
func Partition(results []entities.ResolutionResult) (resolved, unresolved []entities.ResolutionResult) {
	for _, r := range results {
		if r.Resolved() {
			resolved = append(resolved, r)
		} else {
			unresolved = append(unresolved, r)
		}
	}
	return resolved, unresolved
}
