package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"formassist/config"
	"formassist/pkg/logging"
)

var (
	cfg    config.AppConfig
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "formassist",
	Short: "Answer questionnaire documents from a knowledge base",
	Long: `formassist extracts the questions of a DOCX, XLSX or HTML form, answers the
ones its knowledge base covers, writes the answers back into the document and
keeps a versioned session record so the rest can be filled in later.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Load()
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("config: %w", err)
		}
		var err error
		logger, err = logging.New(cfg.Env, cfg.LogLevel)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger.Debug("config loaded", zap.Stringer("config", cfg))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, processCmd, finalizeCmd, kbCmd)
	kbCmd.AddCommand(kbImportCmd, kbLookupCmd)

	processCmd.Flags().StringVar(&processOut, "out", "", "directory for annotated documents")
	processCmd.Flags().BoolVar(&processDryRun, "dry-run", false, "keep sessions in memory instead of the database")
	processCmd.Flags().IntVar(&processJobs, "jobs", 0, "documents processed in parallel (0 = number of CPUs)")

	finalizeCmd.Flags().StringArrayVarP(&finalizeAnswers, "answer", "a", nil, `human answer as "question=answer" (repeatable)`)
	finalizeCmd.Flags().StringVar(&finalizeOut, "out", "", "write the new annotated document to this file")
	_ = finalizeCmd.MarkFlagRequired("answer")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
