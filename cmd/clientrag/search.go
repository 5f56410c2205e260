package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	searchClient string
	searchK      int
)

func init() {
	searchCmd.Flags().StringVar(&searchClient, "client", "", "client whose indexes to search (required)")
	searchCmd.Flags().IntVar(&searchK, "k", 0, "results per category (default: index.default_k)")
	_ = searchCmd.MarkFlagRequired("client")
}

var searchCmd = &cobra.Command{
	Use:   "search --client C [--k N] QUERY",
	Short: "Query every index of one client",
	Long: `Embed the query once and print the nearest chunks from the client's
primary index, its structured records and each specialised category as JSON.

Examples:
  clientrag search --client acme "opening hours"
  clientrag search --client acme --k 10 refund policy`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.searcher().Search(ctx, searchClient, strings.Join(args, " "), searchK)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	},
}
