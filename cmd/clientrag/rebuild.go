package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/clientrag/internal/config"
	"github.com/kailas-cloud/clientrag/internal/usecase/indexing"
)

var (
	appendMode    bool
	documentsFile string
)

func init() {
	rebuildCmd.Flags().BoolVar(&appendMode, "append", false, "append to existing indexes instead of clearing the directory")
	rebuildCmd.Flags().StringVar(&documentsFile, "documents", "", "document list (default: documents.file from config)")
}

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Fetch, embed and index every configured document",
	Long: `Fetch every document in the document list, embed it and write the
per-client indexes.

A full rebuild clears the index directory first. With --append the specialised
category indexes keep their contents and new chunks are added on top; primary
indexes are always rebuilt from the listed primary documents.

Examples:
  # Full rebuild with config/prod.yaml
  clientrag rebuild --env prod

  # Append a new batch of documents
  clientrag rebuild --append --documents batch.yaml`,
	Args: cobra.NoArgs,
	RunE: runRebuild,
}

func runRebuild(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	path := documentsFile
	if path == "" {
		path = cfg.Documents.File
	}
	docs, err := config.LoadDocuments(path)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	svc, err := a.indexer(ctx)
	if err != nil {
		return err
	}

	run := svc.RebuildAll
	if appendMode {
		run = svc.Append
	}

	logger.Info("Indexing started",
		zap.Int("documents", len(docs)),
		zap.Bool("append", appendMode),
		zap.String("documents_file", path),
	)
	rep, err := run(ctx, docs)
	a.usage()
	if err != nil {
		if indexing.IsRetryable(err) {
			logger.Warn("Indexing failed with a transient error, safe to rerun", zap.Error(err))
		}
		return fmt.Errorf("indexing: %w", err)
	}

	printReport(cmd, rep)
	return nil
}

func printReport(cmd *cobra.Command, rep indexing.Report) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "mode=%s documents=%d skipped=%d chunks=%d duration=%s\n",
		rep.Mode, rep.Documents, rep.Skipped, rep.Chunks, rep.Duration.Round(time.Millisecond))
	for _, st := range rep.Indexes {
		fmt.Fprintf(out, "  %s/%s added=%d chunks=%d vectors=%d\n",
			st.Client, st.Category, st.Added, st.Chunks, st.Vectors)
	}
}

