package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// cacheCommand creates the tile store management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the tile store",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every stored tile",
		Long: `Remove every stored tile of the configured backend.

Tiles are never evicted by the server; clear the store after changing a
vibe's colors or pipeline so tiles are regenerated.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			store, err := newCache(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			sp := newSpinner(ctx, os.Stderr, "Clearing tile store...")
			sp.start()
			if err := store.Clear(ctx); err != nil {
				sp.stop()
				return fmt.Errorf("clear tile store: %w", err)
			}
			sp.stop()
			printSuccess("Cleared tile store")
			printDetail("%s", describeCache(cfg))
			return nil
		},
	}
	addConfigFlags(cmd)
	return cmd
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "path",
		Short: "Print the tile store location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			fmt.Println(describeCache(cfg))
			return nil
		},
	}
	addConfigFlags(cmd)
	return cmd
}
