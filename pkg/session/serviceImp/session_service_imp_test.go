package serviceImp

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"formassist/entities"
	artifactRepo "formassist/pkg/artifact/repository"
	artifactRepoImp "formassist/pkg/artifact/repositoryImp"
	"formassist/pkg/document/adapterImp"
	kbServiceImp "formassist/pkg/kb/serviceImp"
	sessionRepo "formassist/pkg/session/repository"
	sessionRepoImp "formassist/pkg/session/repositoryImp"
	"formassist/pkg/session/service"
)

func docx(t *testing.T, paragraphs ...string) []byte {
	t.Helper()
	var body strings.Builder
	body.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
	for _, p := range paragraphs {
		fmt.Fprintf(&body, `<w:p><w:r><w:rPr><w:i/></w:rPr><w:t>%s</w:t></w:r></w:p>`, p)
	}
	body.WriteString(`<w:sectPr/></w:body></w:document>`)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, data := range map[string]string{
		"[Content_Types].xml": `<?xml version="1.0"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"/>`,
		"word/document.xml":   body.String(),
	} {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = io.WriteString(w, data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func newService(t *testing.T) service.Service {
	t.Helper()
	kb, err := kbServiceImp.New([]entities.KnowledgeEntry{
		{CanonicalField: "Company Name", Aliases: []string{"company name"}, Value: "BGR, Inc."},
		{CanonicalField: "Tax ID", Aliases: []string{"tax identification number"}, Value: "12-3456789"},
	}, 1)
	require.NoError(t, err)
	return New(adapterImp.Default(), kb, sessionRepoImp.NewMemory(), artifactRepoImp.NewMemory(), Options{}, nil)
}

func annotatedBlocks(t *testing.T, svc service.Service, id string, version int) []entities.TextBlock {
	t.Helper()
	art, err := svc.Document(context.Background(), id, version)
	require.NoError(t, err)
	blocks, err := adapterImp.NewDOCX().Parse(art.Data)
	require.NoError(t, err)
	return blocks
}

var scenario = []string{"What is the Company Name?", "Unrelated sentence.", "What is your favorite color?"}

func TestProcessDocumentScenario(t *testing.T) {
	svc := newService(t)
	rec, err := svc.ProcessDocument(context.Background(), service.Upload{Filename: "form.docx", Data: docx(t, scenario...)})
	require.NoError(t, err)

	assert.Equal(t, 1, rec.Version)
	assert.Equal(t, "docx", rec.Format)
	assert.Equal(t, entities.StateResolvedPartial, rec.State)
	assert.Equal(t, 2, rec.QuestionCount())
	require.Len(t, rec.Resolved, 1)
	assert.Equal(t, entities.ResolvedAnswer{
		BlockIndex: 0, Question: "What is the Company Name?", Answer: "BGR, Inc.",
		Field: "Company Name", Confidence: 1, Source: entities.SourceKnowledgeBase,
	}, rec.Resolved[0])
	assert.Equal(t, []entities.UnresolvedQuestion{{BlockIndex: 2, Question: "What is your favorite color?"}}, rec.Unresolved)

	blocks := annotatedBlocks(t, svc, rec.SessionID, 0)
	require.Len(t, blocks, 3)
	assert.Equal(t, "What is the Company Name? BGR, Inc.", blocks[0].Content)
	assert.Equal(t, scenario[1], blocks[1].Content)
	assert.Equal(t, scenario[2], blocks[2].Content)
}

func TestProcessDocumentIsIdempotent(t *testing.T) {
	svc := newService(t)
	data := docx(t, scenario...)
	a, err := svc.ProcessDocument(context.Background(), service.Upload{Filename: "a.docx", Data: data})
	require.NoError(t, err)
	b, err := svc.ProcessDocument(context.Background(), service.Upload{Filename: "a.docx", Data: data})
	require.NoError(t, err)

	assert.NotEqual(t, a.SessionID, b.SessionID)
	assert.Equal(t, a.Resolved, b.Resolved)
	assert.Equal(t, a.Unresolved, b.Unresolved)
}

func TestProcessDocumentWithoutQuestions(t *testing.T) {
	svc := newService(t)
	data := docx(t, "Just a statement.", "Another one.")
	rec, err := svc.ProcessDocument(context.Background(), service.Upload{Filename: "n.docx", Data: data})
	require.NoError(t, err)
	assert.Empty(t, rec.Resolved)
	assert.Empty(t, rec.Unresolved)
	assert.Equal(t, entities.StateResolvedFull, rec.State)

	art, err := svc.Document(context.Background(), rec.SessionID, 1)
	require.NoError(t, err)
	assert.Equal(t, data, art.Data)
}

func TestProcessDocumentErrors(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.ProcessDocument(ctx, service.Upload{Filename: "bad.docx", Data: []byte("not a zip")})
	assert.ErrorIs(t, err, entities.ErrMalformedDocument)

	_, err = svc.ProcessDocument(ctx, service.Upload{Filename: "x.pdf", Format: "pdf", Data: []byte("%PDF")})
	assert.ErrorIs(t, err, entities.ErrUnsupportedFormat)

	_, err = svc.ProcessDocument(ctx, service.Upload{Filename: "empty.docx"})
	assert.ErrorIs(t, err, entities.ErrInvalidInput)
}

func TestProcessHTMLDocument(t *testing.T) {
	svc := newService(t)
	page := []byte(`<html><body><h1>Supplier form</h1><table><tr><td>What is your tax identification number?</td></tr></table><p>Who signs?</p></body></html>`)
	rec, err := svc.ProcessDocument(context.Background(), service.Upload{Filename: "form.html", Data: page})
	require.NoError(t, err)
	assert.Equal(t, "html", rec.Format)
	require.Len(t, rec.Resolved, 1)
	assert.Equal(t, "Tax ID", rec.Resolved[0].Field)
	require.Len(t, rec.Unresolved, 1)
	assert.Equal(t, "Who signs?", rec.Unresolved[0].Question)

	art, err := svc.Document(context.Background(), rec.SessionID, 0)
	require.NoError(t, err)
	assert.Contains(t, string(art.Data), "What is your tax identification number? 12-3456789")
	assert.Equal(t, "form.answered.v1.html", art.Filename)
}

func TestFinalizeSession(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	rec, err := svc.ProcessDocument(ctx, service.Upload{Filename: "form.docx", Data: docx(t, scenario...)})
	require.NoError(t, err)

	next, rejected, err := svc.FinalizeSession(ctx, rec.SessionID, map[string]string{
		"What is your favorite color?": "Blue",
		"What is the Company Name?":    "Overwrite attempt",
		"Not a question in this form?": "x",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Not a question in this form?", "What is the Company Name?"}, rejected)
	assert.Equal(t, 2, next.Version)
	assert.Equal(t, entities.StateFinalized, next.State)
	assert.Empty(t, next.Unresolved)
	assert.Equal(t, rec.QuestionCount(), next.QuestionCount())
	require.Len(t, next.Resolved, 2)
	assert.Equal(t, "BGR, Inc.", next.Resolved[0].Answer)
	assert.Equal(t, entities.ResolvedAnswer{
		BlockIndex: 2, Question: "What is your favorite color?", Answer: "Blue",
		Confidence: 1, Source: entities.SourceHuman,
	}, next.Resolved[1])
	assert.Equal(t, rec.SourceDocumentHandle, next.SourceDocumentHandle)
	assert.NotEqual(t, rec.AnnotatedDocumentHandle, next.AnnotatedDocumentHandle)

	blocks := annotatedBlocks(t, svc, rec.SessionID, 2)
	assert.Equal(t, "What is the Company Name? BGR, Inc.", blocks[0].Content)
	assert.Equal(t, "What is your favorite color? Blue", blocks[2].Content)

	// version 1 is untouched
	v1 := annotatedBlocks(t, svc, rec.SessionID, 1)
	assert.Equal(t, "What is your favorite color?", v1[2].Content)
	versions, err := svc.Versions(ctx, rec.SessionID)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, entities.StateResolvedPartial, versions[0].State)
	assert.Len(t, versions[0].Unresolved, 1)

	// finalized sessions reject everything and stay at version 2
	again, rejected, err := svc.FinalizeSession(ctx, rec.SessionID, map[string]string{"What is your favorite color?": "Red"})
	require.NoError(t, err)
	assert.Equal(t, []string{"What is your favorite color?"}, rejected)
	assert.Equal(t, 2, again.Version)
}

func TestFinalizePartialAndNoop(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	rec, err := svc.ProcessDocument(ctx, service.Upload{Filename: "f.docx", Data: docx(t, "Favorite color?", "Favorite food?")})
	require.NoError(t, err)
	require.Len(t, rec.Unresolved, 2)

	same, rejected, err := svc.FinalizeSession(ctx, rec.SessionID, map[string]string{"Favorite color?": "  "})
	require.NoError(t, err)
	assert.Equal(t, []string{"Favorite color?"}, rejected)
	assert.Equal(t, 1, same.Version)

	next, rejected, err := svc.FinalizeSession(ctx, rec.SessionID, map[string]string{"Favorite food?": "Rice"})
	require.NoError(t, err)
	assert.Empty(t, rejected)
	assert.Equal(t, 2, next.Version)
	assert.Equal(t, entities.StateResolvedPartial, next.State)
	assert.Equal(t, []entities.UnresolvedQuestion{{BlockIndex: 0, Question: "Favorite color?"}}, next.Unresolved)

	last, _, err := svc.FinalizeSession(ctx, rec.SessionID, map[string]string{"Favorite color?": "Green"})
	require.NoError(t, err)
	assert.Equal(t, 3, last.Version)
	assert.Equal(t, entities.StateFinalized, last.State)
	require.Len(t, last.Resolved, 2)
	assert.Equal(t, "Green", last.Resolved[0].Answer)
	assert.Equal(t, "Rice", last.Resolved[1].Answer)

	blocks := annotatedBlocks(t, svc, rec.SessionID, 3)
	assert.Equal(t, "Favorite color? Green", blocks[0].Content)
	assert.Equal(t, "Favorite food? Rice", blocks[1].Content)
}

func TestFinalizeUnknownSession(t *testing.T) {
	svc := newService(t)
	_, _, err := svc.FinalizeSession(context.Background(), "nope", map[string]string{"a?": "b"})
	assert.ErrorIs(t, err, entities.ErrUnknownSession)
	_, err = svc.Document(context.Background(), "nope", 0)
	assert.ErrorIs(t, err, entities.ErrUnknownSession)
}

func TestProcessConcurrentDocuments(t *testing.T) {
	defer goleak.VerifyNone(t)
	svc := newService(t)
	data := docx(t, scenario...)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec, err := svc.ProcessDocument(context.Background(), service.Upload{Filename: fmt.Sprintf("f%d.docx", i), Data: data})
			if assert.NoError(t, err) {
				assert.Len(t, rec.Resolved, 1)
				assert.Len(t, rec.Unresolved, 1)
			}
		}(i)
	}
	wg.Wait()
}

func TestAnnotatedName(t *testing.T) {
	assert.Equal(t, "form.answered.v2.docx", annotatedName("form.docx", 2))
	assert.Equal(t, "document.answered.v1", annotatedName("", 1))
	assert.Equal(t, ".env.answered.v1", annotatedName(".env", 1))
}

func TestFinalizeUnknownSessionKeepsNoLock(t *testing.T) {
	svc := newService(t).(*sessionSvc)
	ctx := context.Background()
	for i := 0; i < 1000; i++ {
		_, _, err := svc.FinalizeSession(ctx, fmt.Sprintf("bogus-%d", i), map[string]string{"a?": "b"})
		require.ErrorIs(t, err, entities.ErrUnknownSession)
	}
	assert.Zero(t, svc.locks.len())

	rec, err := svc.ProcessDocument(ctx, service.Upload{Filename: "f.docx", Data: docx(t, scenario...)})
	require.NoError(t, err)
	_, _, err = svc.FinalizeSession(ctx, rec.SessionID, map[string]string{"What is your favorite color?": "Blue"})
	require.NoError(t, err)
	assert.Zero(t, svc.locks.len())
}

func TestSessionLocksSerializeSameID(t *testing.T) {
	var locks sessionLocks
	unlock := locks.lock("s")
	acquired := make(chan struct{})
	go func() {
		defer locks.lock("s")()
		close(acquired)
	}()
	select {
	case <-acquired:
		t.Fatal("second holder acquired a held lock")
	case <-time.After(20 * time.Millisecond):
	}
	assert.Equal(t, 1, locks.len())
	unlock()
	<-acquired
	assert.Eventually(t, func() bool { return locks.len() == 0 }, time.Second, time.Millisecond)
}

// rejectingSessions fails every write at or above version from.
type rejectingSessions struct {
	sessionRepo.SessionRepository
	from int
}

func (r rejectingSessions) Create(ctx context.Context, rec *entities.SessionRecord) error {
	if rec.Version >= r.from {
		return entities.ErrVersionConflict
	}
	return r.SessionRepository.Create(ctx, rec)
}

// recordingArtifacts remembers every handle it stores.
type recordingArtifacts struct {
	artifactRepo.ArtifactRepository
	mu      sync.Mutex
	handles []string
}

func (r *recordingArtifacts) Put(ctx context.Context, filename, contentType string, data []byte) (string, error) {
	h, err := r.ArtifactRepository.Put(ctx, filename, contentType, data)
	r.mu.Lock()
	r.handles = append(r.handles, h)
	r.mu.Unlock()
	return h, err
}

func newFailingService(t *testing.T, failFrom int) (service.Service, *recordingArtifacts) {
	t.Helper()
	kb, err := kbServiceImp.New([]entities.KnowledgeEntry{
		{CanonicalField: "Company Name", Aliases: []string{"company name"}, Value: "BGR, Inc."},
	}, 1)
	require.NoError(t, err)
	arts := &recordingArtifacts{ArtifactRepository: artifactRepoImp.NewMemory()}
	sessions := rejectingSessions{SessionRepository: sessionRepoImp.NewMemory(), from: failFrom}
	return New(adapterImp.Default(), kb, sessions, arts, Options{}, nil), arts
}

func TestProcessDiscardsDocumentsWhenRecordFails(t *testing.T) {
	svc, arts := newFailingService(t, 1)
	ctx := context.Background()
	_, err := svc.ProcessDocument(ctx, service.Upload{Filename: "f.docx", Data: docx(t, scenario...)})
	require.ErrorIs(t, err, entities.ErrVersionConflict)

	require.Len(t, arts.handles, 2)
	for _, h := range arts.handles {
		_, err := arts.Get(ctx, h)
		assert.ErrorIs(t, err, entities.ErrArtifactNotFound, h)
	}
}

func TestFinalizeDiscardsDocumentWhenRecordFails(t *testing.T) {
	svc, arts := newFailingService(t, 2)
	ctx := context.Background()
	rec, err := svc.ProcessDocument(ctx, service.Upload{Filename: "f.docx", Data: docx(t, scenario...)})
	require.NoError(t, err)

	_, _, err = svc.FinalizeSession(ctx, rec.SessionID, map[string]string{"What is your favorite color?": "Blue"})
	require.ErrorIs(t, err, entities.ErrVersionConflict)

	require.Len(t, arts.handles, 3)
	_, err = arts.Get(ctx, arts.handles[2])
	assert.ErrorIs(t, err, entities.ErrArtifactNotFound)
	for _, h := range []string{rec.SourceDocumentHandle, rec.AnnotatedDocumentHandle} {
		_, err := arts.Get(ctx, h)
		assert.NoError(t, err)
	}
}
