package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"formassist/config"
	"formassist/database"
	"formassist/pkg/kb/loader"
	kbRepo "formassist/pkg/kb/repository"
	kbRepoImp "formassist/pkg/kb/repositoryImp"
	kbServiceImp "formassist/pkg/kb/serviceImp"
	"formassist/pkg/textnorm"
)

var kbCmd = &cobra.Command{
	Use:   "kb",
	Short: "Inspect or import the knowledge base",
}

var kbImportCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Replace the stored knowledge base with FILE (.yaml, .json, .csv, .xlsx)",
	Long: `Validates FILE and stores its entries in the database, replacing what was
there. Servers started with KB_SOURCE=db read this table at startup.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := database.OpenSQLite(cfg.DBPath)
		if err != nil {
			return err
		}
		n, err := importKnowledge(cmd.Context(), kbRepoImp.New(db), args[0], cfg.MatchThreshold)
		if err != nil {
			return err
		}
		logger.Info("knowledge base imported", zap.String("file", args[0]), zap.Int("entries", n))
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d entries into %s\n", n, cfg.DBPath)
		return nil
	},
}

// importKnowledge stores the entries as the knowledge base normalized them,
// so a later KB_SOURCE=db start sees exactly what was validated.
func importKnowledge(ctx context.Context, repo kbRepo.KBRepository, path string, threshold float64) (int, error) {
	entries, err := loader.Load(path)
	if err != nil {
		return 0, err
	}
	kb, err := kbServiceImp.New(entries, threshold)
	if err != nil {
		return 0, err
	}
	if err := repo.ReplaceAll(ctx, kb.Entries()); err != nil {
		return 0, err
	}
	return kb.Len(), nil
}

var kbLookupCmd = &cobra.Command{
	Use:   "lookup TEXT...",
	Short: "Show what a question resolves to",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cmd.Context(), cfg, logger, cfg.KBSource != config.KBSourceDB)
		if err != nil {
			return err
		}
		norm := textnorm.Normalize(strings.Join(args, " "))
		out := map[string]any{"normalized": norm}
		if m, ok := a.kb.Lookup(norm); ok {
			out["match"] = m
		} else {
			out["candidates"] = a.kb.Search(norm, 3)
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}
