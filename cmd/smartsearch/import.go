package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/smartsearch/internal/catalog"
)

func newImportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import a YAML or JSON catalog and index it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := catalog.LoadFile(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			a, cleanup, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			created, err := catalog.Import(ctx, a.Storage, c)
			if err != nil {
				return fmt.Errorf("import failed: %w", err)
			}

			// Hooks log per-entity failures; a later reindex picks them up
			for _, entity := range created {
				a.Hooks.OnEntityCreated(ctx, entity)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d categories, %d shops, %d items\n",
				len(c.Categories), len(c.Shops), len(c.Items))
			return nil
		},
	}
}
