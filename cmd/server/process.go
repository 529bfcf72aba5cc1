package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"formassist/entities"
	"formassist/pkg/session/service"
)

var (
	processOut    string
	processDryRun bool
	processJobs   int

	finalizeAnswers []string
	finalizeOut     string
)

var processCmd = &cobra.Command{
	Use:   "process FILE...",
	Short: "Answer one or more documents and print their session records",
	Long: `Runs every FILE through extraction, knowledge-base resolution and annotation.
Documents are independent and processed in parallel. Each session record is
printed as one JSON line in argument order; with --out the annotated documents
are written to that directory.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runProcess,
}

var finalizeCmd = &cobra.Command{
	Use:   "finalize SESSION",
	Short: "Supply answers for the unresolved questions of a session",
	Example: `  formassist finalize 3f6c... -a "What is your favorite color?=Blue"`,
	Args:    cobra.ExactArgs(1),
	RunE:    runFinalize,
}

func runProcess(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := buildApp(ctx, cfg, logger, processDryRun)
	if err != nil {
		return err
	}
	if processOut != "" {
		if err := os.MkdirAll(processOut, 0o755); err != nil {
			return err
		}
	}

	records := make([]*entities.SessionRecord, len(args))
	g, gctx := errgroup.WithContext(ctx)
	jobs := processJobs
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}
	g.SetLimit(jobs)
	for i, path := range args {
		i, path := i, path
		g.Go(func() error {
			rec, err := processFile(gctx, a.sessions, path)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			records[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return err
		}
	}
	return nil
}

func processFile(ctx context.Context, svc service.Service, path string) (*entities.SessionRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	rec, err := svc.ProcessDocument(ctx, service.Upload{Filename: filepath.Base(path), Data: data})
	if err != nil {
		return nil, err
	}
	if processOut != "" {
		if err := writeDocument(ctx, svc, rec, processOut); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

// writeDocument saves the annotated document of rec. A directory target keeps
// the stored file name.
func writeDocument(ctx context.Context, svc service.Service, rec *entities.SessionRecord, target string) error {
	art, err := svc.Document(ctx, rec.SessionID, rec.Version)
	if err != nil {
		return err
	}
	if fi, err := os.Stat(target); err == nil && fi.IsDir() {
		target = filepath.Join(target, art.Filename)
	}
	return os.WriteFile(target, art.Data, 0o644)
}

// parseAnswer splits "question=answer". Questions end in "?", so "?=" is
// preferred as the separator and a plain "=" is the fallback.
func parseAnswer(s string) (string, string, error) {
	if i := strings.Index(s, "?="); i >= 0 {
		return s[:i+1], s[i+2:], nil
	}
	q, v, ok := strings.Cut(s, "=")
	if !ok || strings.TrimSpace(q) == "" {
		return "", "", fmt.Errorf("%w: answer %q is not question=answer", entities.ErrInvalidInput, s)
	}
	return q, v, nil
}

func runFinalize(cmd *cobra.Command, args []string) error {
	answers := make(map[string]string, len(finalizeAnswers))
	for _, s := range finalizeAnswers {
		q, v, err := parseAnswer(s)
		if err != nil {
			return err
		}
		answers[q] = v
	}

	ctx := cmd.Context()
	a, err := buildApp(ctx, cfg, logger, false)
	if err != nil {
		return err
	}
	rec, rejected, err := a.sessions.FinalizeSession(ctx, args[0], answers)
	if err != nil {
		return err
	}
	if finalizeOut != "" {
		if err := writeDocument(ctx, a.sessions, rec, finalizeOut); err != nil {
			return err
		}
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{"record": rec, "rejected": rejected})
}
