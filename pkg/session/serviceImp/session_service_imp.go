package serviceImp

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"formassist/entities"
	"formassist/pkg/annotator"
	artifactRepo "formassist/pkg/artifact/repository"
	"formassist/pkg/document/adapter"
	kbService "formassist/pkg/kb/service"
	"formassist/pkg/question/extractor"
	"formassist/pkg/resolver"
	sessionRepo "formassist/pkg/session/repository"
	"formassist/pkg/session/service"
)

type Options struct {
	MinQuestionChars int
	Separator        string
}

type sessionSvc struct {
	adapters  *adapter.Registry
	kb        kbService.KnowledgeBase
	sessions  sessionRepo.SessionRepository
	artifacts artifactRepo.ArtifactRepository
	opts      Options
	log       *zap.Logger

	locks sessionLocks
}

func New(
	adapters *adapter.Registry,
	kb kbService.KnowledgeBase,
	sessions sessionRepo.SessionRepository,
	artifacts artifactRepo.ArtifactRepository,
	opts Options,
	log *zap.Logger,
) service.Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &sessionSvc{adapters: adapters, kb: kb, sessions: sessions, artifacts: artifacts, opts: opts, log: log}
}

func (s *sessionSvc) ProcessDocument(ctx context.Context, up service.Upload) (*entities.SessionRecord, error) {
	if len(up.Data) == 0 {
		return nil, fmt.Errorf("%w: empty document", entities.ErrInvalidInput)
	}
	a, err := s.adapters.Resolve(up.Format, up.Filename, up.Data)
	if err != nil {
		return nil, err
	}
	id := uuid.NewString()
	log := s.log.With(zap.String("session", id), zap.String("format", a.Format()), zap.String("file", up.Filename))

	blocks, err := a.Parse(up.Data)
	if err != nil {
		return nil, err
	}
	questions := extractor.Extract(blocks, extractor.Options{MinChars: s.opts.MinQuestionChars})
	log.Debug("extracted", zap.Int("blocks", len(blocks)), zap.Int("questions", len(questions)),
		zap.String("state", string(entities.StateExtracted)))

	results := resolver.Resolve(questions, s.kb)
	annotated := annotator.Annotate(blocks, results, annotator.Options{Separator: s.opts.Separator})
	out, err := a.Serialize(up.Data, annotated)
	if err != nil {
		return nil, err
	}

	rec := &entities.SessionRecord{SessionID: id, Version: 1, Format: a.Format(), Filename: up.Filename}
	for _, r := range results {
		if r.Resolved() {
			rec.Resolved = append(rec.Resolved, resolvedAnswer(r))
		} else {
			rec.Unresolved = append(rec.Unresolved, entities.UnresolvedQuestion{
				BlockIndex: r.Question.SourceBlockIndex,
				Question:   r.Question.RawText,
			})
		}
	}
	rec.State = entities.StateResolvedPartial
	if len(rec.Unresolved) == 0 {
		rec.State = entities.StateResolvedFull
	}

	if rec.SourceDocumentHandle, err = s.artifacts.Put(ctx, up.Filename, a.ContentType(), up.Data); err != nil {
		return nil, err
	}
	if rec.AnnotatedDocumentHandle, err = s.artifacts.Put(ctx, annotatedName(up.Filename, 1), a.ContentType(), out); err != nil {
		s.discard(ctx, log, rec.SourceDocumentHandle)
		return nil, err
	}
	if err := s.sessions.Create(ctx, rec); err != nil {
		s.discard(ctx, log, rec.SourceDocumentHandle, rec.AnnotatedDocumentHandle)
		return nil, err
	}
	log.Info("session processed",
		zap.Int("version", rec.Version),
		zap.Int("resolved", len(rec.Resolved)),
		zap.Int("unresolved", len(rec.Unresolved)),
		zap.String("state", string(rec.State)))
	return rec, nil
}

func (s *sessionSvc) FinalizeSession(ctx context.Context, sessionID string, answers map[string]string) (*entities.SessionRecord, []string, error) {
	defer s.locks.lock(sessionID)()

	latest, err := s.sessions.Latest(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	log := s.log.With(zap.String("session", sessionID), zap.Int("from_version", latest.Version))

	keys := make([]string, 0, len(answers))
	for k := range answers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	open := map[string]bool{}
	if !latest.State.Closed() {
		for _, u := range latest.Unresolved {
			open[u.Question] = true
		}
	}
	accepted := map[string]string{}
	rejected := []string{}
	for _, k := range keys {
		q, v := strings.TrimSpace(k), strings.TrimSpace(answers[k])
		if !open[q] || v == "" {
			rejected = append(rejected, k)
			continue
		}
		accepted[q] = v
	}
	if len(accepted) == 0 {
		log.Info("finalize accepted nothing", zap.Strings("rejected", rejected), zap.String("state", string(latest.State)))
		return latest, rejected, nil
	}

	// Results are rebuilt from the record so the finalize pass needs neither
	// the knowledge base nor the extractor settings used at processing time.
	results := make([]entities.ResolutionResult, 0, latest.QuestionCount())
	for _, r := range latest.Resolved {
		q := entities.Question{SourceBlockIndex: r.BlockIndex, RawText: r.Question}
		if r.Source == entities.SourceHuman {
			results = append(results, resolver.HumanAnswer(q, r.Answer))
			continue
		}
		field, answer := r.Field, r.Answer
		results = append(results, entities.ResolutionResult{Question: q, MatchedField: &field, Answer: &answer, Confidence: r.Confidence})
	}
	for _, u := range latest.Unresolved {
		q := entities.Question{SourceBlockIndex: u.BlockIndex, RawText: u.Question}
		if v, ok := accepted[u.Question]; ok {
			results = append(results, resolver.HumanAnswer(q, v))
		} else {
			results = append(results, entities.ResolutionResult{Question: q})
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Question.SourceBlockIndex < results[j].Question.SourceBlockIndex
	})

	src, err := s.artifacts.Get(ctx, latest.SourceDocumentHandle)
	if err != nil {
		return nil, nil, fmt.Errorf("load source document: %w", err)
	}
	a, err := s.adapters.Get(latest.Format)
	if err != nil {
		return nil, nil, err
	}
	blocks, err := a.Parse(src.Data)
	if err != nil {
		return nil, nil, err
	}
	annotated := annotator.Annotate(blocks, results, annotator.Options{Separator: s.opts.Separator})
	out, err := a.Serialize(src.Data, annotated)
	if err != nil {
		return nil, nil, err
	}

	next := &entities.SessionRecord{
		SessionID:            sessionID,
		Version:              latest.Version + 1,
		Format:               latest.Format,
		Filename:             latest.Filename,
		SourceDocumentHandle: latest.SourceDocumentHandle,
	}
	for _, r := range results {
		if r.Resolved() {
			next.Resolved = append(next.Resolved, resolvedAnswer(r))
		} else {
			next.Unresolved = append(next.Unresolved, entities.UnresolvedQuestion{BlockIndex: r.Question.SourceBlockIndex, Question: r.Question.RawText})
		}
	}
	next.State = entities.StateResolvedPartial
	if len(next.Unresolved) == 0 {
		next.State = entities.StateFinalized
	}
	if next.AnnotatedDocumentHandle, err = s.artifacts.Put(ctx, annotatedName(latest.Filename, next.Version), a.ContentType(), out); err != nil {
		return nil, nil, err
	}
	if err := s.sessions.Create(ctx, next); err != nil {
		s.discard(ctx, log, next.AnnotatedDocumentHandle)
		return nil, nil, err
	}
	log.Info("session finalized",
		zap.Int("version", next.Version),
		zap.Int("accepted", len(accepted)),
		zap.Strings("rejected", rejected),
		zap.Int("unresolved", len(next.Unresolved)),
		zap.String("state", string(next.State)))
	return next, rejected, nil
}

func (s *sessionSvc) Get(ctx context.Context, sessionID string) (*entities.SessionRecord, error) {
	return s.sessions.Latest(ctx, sessionID)
}

func (s *sessionSvc) Versions(ctx context.Context, sessionID string) ([]entities.SessionRecord, error) {
	return s.sessions.Versions(ctx, sessionID)
}

func (s *sessionSvc) Document(ctx context.Context, sessionID string, version int) (*entities.Artifact, error) {
	var (
		rec *entities.SessionRecord
		err error
	)
	if version <= 0 {
		rec, err = s.sessions.Latest(ctx, sessionID)
	} else {
		rec, err = s.sessions.Version(ctx, sessionID, version)
	}
	if err != nil {
		return nil, err
	}
	return s.artifacts.Get(ctx, rec.AnnotatedDocumentHandle)
}

// discard removes documents stored for a record that was never written.
// The caller's error wins; a failed delete is only logged.
func (s *sessionSvc) discard(ctx context.Context, log *zap.Logger, handles ...string) {
	for _, h := range handles {
		if err := s.artifacts.Delete(context.WithoutCancel(ctx), h); err != nil {
			log.Warn("orphaned document", zap.String("handle", h), zap.Error(err))
		}
	}
}

func resolvedAnswer(r entities.ResolutionResult) entities.ResolvedAnswer {
	out := entities.ResolvedAnswer{
		BlockIndex: r.Question.SourceBlockIndex,
		Question:   r.Question.RawText,
		Answer:     *r.Answer,
		Confidence: r.Confidence,
		Source:     entities.SourceHuman,
	}
	if r.MatchedField != nil {
		out.Field = *r.MatchedField
		out.Source = entities.SourceKnowledgeBase
	}
	return out
}

// annotatedName turns "form.docx" into "form.answered.v2.docx".
func annotatedName(filename string, version int) string {
	if filename == "" {
		filename = "document"
	}
	ext := ""
	if i := strings.LastIndex(filename, "."); i > 0 {
		filename, ext = filename[:i], filename[i:]
	}
	return fmt.Sprintf("%s.answered.v%d%s", filename, version, ext)
}
