package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dshills/smartsearch/pkg/types"
)

func newReindexCommand() *cobra.Command {
	var entityType string

	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild embeddings in the foreground",
		Long:  "Rebuild embeddings for every entity, or for one type with --type (item, shop or category).",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			var t *types.EntityType
			if entityType != "" {
				parsed, err := types.ParseEntityType(entityType)
				if err != nil {
					return err
				}
				t = &parsed
			}

			a, cleanup, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			out := cmd.OutOrStdout()
			if t != nil {
				n, err := a.Indexer.IndexAllOfType(ctx, *t)
				if err != nil {
					return fmt.Errorf("reindex %s: %w", t.Scope(), err)
				}
				fmt.Fprintf(out, "Indexed %d %s entities\n", n, t.Scope())
				return nil
			}

			stats, err := a.Indexer.IndexAll(ctx)
			if err != nil {
				return fmt.Errorf("reindex: %w", err)
			}
			fmt.Fprintf(out, "Indexed %d, skipped %d, failed %d in %s\n",
				stats.Indexed, stats.Skipped, stats.Failed, stats.Duration.Round(time.Millisecond))
			for _, msg := range stats.ErrorMessages {
				a.Logger.Warn("indexing failure", zap.String("detail", msg))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&entityType, "type", "", "entity type to reindex (item, shop, category)")
	return cmd
}
