package resolver

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"formassist/entities"
	kbsvc "formassist/pkg/kb/serviceImp"
	"formassist/pkg/question/extractor"
)

func scenarioKB(t *testing.T) *kbsvc.Svc {
	t.Helper()
	kb, err := kbsvc.New([]entities.KnowledgeEntry{
		{CanonicalField: "Company Name", Aliases: []string{"company name"}, Value: "BGR, Inc."},
	}, 1)
	require.NoError(t, err)
	return kb
}

func questions(texts ...string) []entities.Question {
	blocks := make([]entities.TextBlock, len(texts))
	for i, s := range texts {
		blocks[i] = entities.TextBlock{Index: i, Content: s}
	}
	return extractor.Extract(blocks, extractor.Options{})
}

func TestResolveScenario(t *testing.T) {
	qs := questions("What is the Company Name?", "Unrelated sentence.", "What is your favorite color?")
	require.Len(t, qs, 2)

	res := Resolve(qs, scenarioKB(t))
	require.Len(t, res, 2)

	require.True(t, res[0].Resolved())
	assert.Equal(t, "Company Name", *res[0].MatchedField)
	assert.Equal(t, "BGR, Inc.", *res[0].Answer)
	assert.Equal(t, 1.0, res[0].Confidence)
	assert.False(t, res[0].HumanSourced())

	assert.False(t, res[1].Resolved())
	assert.Nil(t, res[1].MatchedField)
	assert.Zero(t, res[1].Confidence)

	resolved, unresolved := Partition(res)
	assert.Len(t, resolved, 1)
	assert.Len(t, unresolved, 1)
	assert.Equal(t, "What is your favorite color?", unresolved[0].Question.RawText)
}

func TestResolveNeverDrops(t *testing.T) {
	qs := questions("A b?", "C d?", "E f?")
	assert.Len(t, Resolve(qs, nil), 3)
	assert.Empty(t, Resolve(nil, scenarioKB(t)))
}

func TestResolveIsRepeatable(t *testing.T) {
	kb := scenarioKB(t)
	qs := questions("What is the Company Name?", "Company name?", "Name?")
	assert.Equal(t, Resolve(qs, kb), Resolve(qs, kb))
}

func TestHumanAnswer(t *testing.T) {
	r := HumanAnswer(entities.Question{RawText: "Color?"}, "Blue")
	assert.True(t, r.HumanSourced())
	assert.Equal(t, "Blue", *r.Answer)
	assert.Equal(t, 1.0, r.Confidence)
}

func TestResolveConcurrentCallers(t *testing.T) {
	defer goleak.VerifyNone(t)
	kb := scenarioKB(t)
	qs := questions("What is the Company Name?", "What is your favorite color?")
	want := Resolve(qs, kb)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, want, Resolve(qs, kb))
		}()
	}
	wg.Wait()
}
