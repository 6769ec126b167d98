// Package cli implements the vibetiles command-line interface.
//
// The main commands are:
//   - serve: run the style and tile server
//   - prewarm: fill a running server's tile store for low zoom levels
//   - vibes: list the vibe registry
//   - style: print the derived style of one vibe
//   - cache: inspect or clear the tile store
//
// All commands support --verbose (-v) for debug-level logging. Loggers are
// passed through context.Context.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/vibetiles/pkg/buildinfo"
	"github.com/matzehuels/vibetiles/pkg/cache"
)

// appName is the application name used for display.
const appName = "vibetiles"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Vibetiles serves restyled map styles and raster tiles",
		Long:         `Vibetiles derives themed ("vibe") variants of a vector map style and serves matching restyled raster tiles from a persistent cache.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	root.AddCommand(c.serveCommand())
	root.AddCommand(c.prewarmCommand())
	root.AddCommand(c.vibesCommand())
	root.AddCommand(c.styleCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// newCache opens the configured tile store.
func newCache(ctx context.Context, cfg *config) (cache.Cache, error) {
	switch cfg.CacheBackend {
	case backendNone:
		return cache.NewNullCache(), nil
	case backendRedis:
		c, err := cache.DialRedis(ctx, cfg.RedisURL, cfg.RedisPrefix)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		return c, nil
	default:
		return cache.NewDiskCache(cfg.CacheDir)
	}
}

// describeCache returns a one-line description of the configured store.
func describeCache(cfg *config) string {
	switch cfg.CacheBackend {
	case backendNone:
		return "disabled"
	case backendRedis:
		return fmt.Sprintf("redis %s (prefix %q)", cfg.RedisURL, cfg.RedisPrefix)
	default:
		return cfg.CacheDir
	}
}
