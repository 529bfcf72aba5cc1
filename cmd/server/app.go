package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"formassist/config"
	"formassist/database"
	"formassist/entities"
	artifactRepo "formassist/pkg/artifact/repository"
	artifactRepoImp "formassist/pkg/artifact/repositoryImp"
	"formassist/pkg/document/adapterImp"
	"formassist/pkg/kb/loader"
	kbRepoImp "formassist/pkg/kb/repositoryImp"
	kbServiceImp "formassist/pkg/kb/serviceImp"
	sessionRepo "formassist/pkg/session/repository"
	sessionRepoImp "formassist/pkg/session/repositoryImp"
	"formassist/pkg/session/service"
	sessionServiceImp "formassist/pkg/session/serviceImp"
)

// app is the wired pipeline shared by every command.
type app struct {
	db       *gorm.DB // nil in memory mode
	kb       *kbServiceImp.Svc
	sessions service.Service
}

func buildApp(ctx context.Context, cfg config.AppConfig, log *zap.Logger, inMemory bool) (*app, error) {
	a := &app{}
	var (
		sessions  sessionRepo.SessionRepository
		artifacts artifactRepo.ArtifactRepository
	)
	if inMemory {
		sessions, artifacts = sessionRepoImp.NewMemory(), artifactRepoImp.NewMemory()
	} else {
		db, err := database.OpenSQLite(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		a.db = db
		sessions, artifacts = sessionRepoImp.New(db), artifactRepoImp.New(db)
	}

	entries, err := loadKnowledge(ctx, cfg, a.db)
	if err != nil {
		return nil, err
	}
	if a.kb, err = kbServiceImp.New(entries, cfg.MatchThreshold); err != nil {
		return nil, err
	}
	log.Info("knowledge base loaded",
		zap.String("source", cfg.KBSource),
		zap.Int("entries", a.kb.Len()),
		zap.Float64("threshold", a.kb.Threshold()))

	a.sessions = sessionServiceImp.New(adapterImp.Default(), a.kb, sessions, artifacts, sessionServiceImp.Options{
		MinQuestionChars: cfg.MinQuestionChars,
		Separator:        cfg.AnswerSeparator,
	}, log)
	return a, nil
}

func loadKnowledge(ctx context.Context, cfg config.AppConfig, db *gorm.DB) ([]entities.KnowledgeEntry, error) {
	if cfg.KBSource == config.KBSourceDB {
		if db == nil {
			return nil, fmt.Errorf("KB_SOURCE=db needs the database; drop --dry-run or use KB_SOURCE=file")
		}
		return kbRepoImp.New(db).All(ctx)
	}
	entries, err := loader.Load(cfg.KBPath)
	if err != nil {
		return nil, fmt.Errorf("load knowledge base %s: %w", cfg.KBPath, err)
	}
	return entries, nil
}
